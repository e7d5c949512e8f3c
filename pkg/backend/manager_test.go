package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gridhost/pkg/settings"
	"gridhost/pkg/store"
)

func startedManager(t *testing.T) *Manager {
	t.Helper()
	set := settings.Default()
	set.Database.Path = filepath.Join(t.TempDir(), "registry.db")

	m := NewManager()
	if err := m.Start(context.Background(), set); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { m.Stop() })
	return m
}

func TestStart_SeedsDefaultBackend(t *testing.T) {
	m := startedManager(t)

	ready := m.Ready()
	if len(ready) != 1 {
		t.Fatalf("ready = %d backends, want 1", len(ready))
	}
	if ready[0].Name != store.DefaultBackendName {
		t.Errorf("seeded backend = %q, want %q", ready[0].Name, store.DefaultBackendName)
	}
}

func TestDispatch_RoundRobin(t *testing.T) {
	m := startedManager(t)
	ctx := context.Background()

	for _, name := range []string{"pool-a", "pool-b"} {
		if _, err := m.Registry().CreateBackend(ctx, name, "remote"); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	// Pool is ordered by name: local, pool-a, pool-b.
	var got []string
	for i := 0; i < 6; i++ {
		rec, err := m.Dispatch(ctx)
		if err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
		got = append(got, rec.Name)
	}

	want := []string{"local", "pool-a", "pool-b", "local", "pool-a", "pool-b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dispatch order = %v, want %v", got, want)
		}
	}
}

func TestDispatch_NoEnabledBackends(t *testing.T) {
	m := startedManager(t)
	ctx := context.Background()

	if err := m.Registry().SetBackendEnabled(ctx, store.DefaultBackendName, false); err != nil {
		t.Fatal(err)
	}
	if err := m.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Dispatch(ctx); !errors.Is(err, ErrNoBackends) {
		t.Errorf("Dispatch = %v, want ErrNoBackends", err)
	}
}

func TestDispatch_BeforeStart(t *testing.T) {
	m := NewManager()
	if _, err := m.Dispatch(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Dispatch = %v, want ErrNotStarted", err)
	}
}

func TestStop_Idempotent(t *testing.T) {
	m := startedManager(t)
	if err := m.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
	if _, err := m.Dispatch(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Dispatch after Stop = %v, want ErrNotStarted", err)
	}
}
