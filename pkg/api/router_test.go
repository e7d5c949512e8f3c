package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"gridhost/pkg/backend"
	"gridhost/pkg/session"
	"gridhost/pkg/settings"
)

type testEnv struct {
	router    http.Handler
	sessions  *session.Manager
	backends  *backend.Manager
	shutdowns int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	set := settings.Default()
	set.Database.Path = filepath.Join(t.TempDir(), "registry.db")
	set.Session.Secret = "0123456789abcdef0123456789abcdef"

	backends := backend.NewManager()
	if err := backends.Start(context.Background(), set); err != nil {
		t.Fatalf("backend Start failed: %v", err)
	}
	t.Cleanup(func() { backends.Stop() })

	sessions := session.NewManager(backends)
	if err := sessions.Start(context.Background(), set); err != nil {
		t.Fatalf("session Start failed: %v", err)
	}
	t.Cleanup(func() { sessions.Stop() })

	env := &testEnv{sessions: sessions, backends: backends}
	env.router = NewRouter(sessions, backends, func() bool {
		env.shutdowns++
		return env.shutdowns == 1
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func (e *testEnv) openSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := e.sessions.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return sess
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/health/ready", "")
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health/ready = %d, want 200", rec.Code)
	}
}

func TestReadiness_NoBackends(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.backends.Registry().SetBackendEnabled(ctx, "local", false); err != nil {
		t.Fatal(err)
	}
	if err := env.backends.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodGet, "/health/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /health/ready = %d, want 503", rec.Code)
	}
}

func TestOpenSession_ReturnsToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/v1/sessions = %d, want 201", rec.Code)
	}

	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data shape: %T", resp.Data)
	}
	if data["token"] == "" || data["token"] == nil {
		t.Error("opened session carries no token")
	}
}

func TestAuthenticatedRoutesRejectMissingToken(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/sessions"},
		{http.MethodGet, "/api/v1/backends"},
		{http.MethodPost, "/api/v1/dispatch"},
		{http.MethodPost, "/api/v1/shutdown"},
	} {
		rec := env.do(t, tc.method, tc.path, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token = %d, want 401", tc.method, tc.path, rec.Code)
		}
		rec = env.do(t, tc.method, tc.path, "bogus-token")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s with bogus token = %d, want 401", tc.method, tc.path, rec.Code)
		}
	}
}

func TestListSessions_OmitsTokens(t *testing.T) {
	env := newTestEnv(t)
	sess := env.openSession(t)

	rec := env.do(t, http.MethodGet, "/api/v1/sessions", sess.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/sessions = %d, want 200", rec.Code)
	}

	resp := decodeResponse(t, rec)
	list, ok := resp.Data.([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("unexpected session list: %v", resp.Data)
	}
	entry := list[0].(map[string]any)
	if token, present := entry["token"]; present && token != "" {
		t.Errorf("session list leaked a token: %v", token)
	}
}

func TestCloseSession(t *testing.T) {
	env := newTestEnv(t)
	sess := env.openSession(t)
	other := env.openSession(t)

	rec := env.do(t, http.MethodDelete, "/api/v1/sessions/"+other.ID, sess.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE session = %d, want 200", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/sessions/"+other.ID, sess.Token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second DELETE = %d, want 404", rec.Code)
	}
}

func TestDispatch(t *testing.T) {
	env := newTestEnv(t)
	sess := env.openSession(t)

	rec := env.do(t, http.MethodPost, "/api/v1/dispatch", sess.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/v1/dispatch = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	if data["backend"] != "local" {
		t.Errorf("dispatched to %v, want local", data["backend"])
	}
}

func TestShutdownEndpoint(t *testing.T) {
	env := newTestEnv(t)
	sess := env.openSession(t)

	rec := env.do(t, http.MethodPost, "/api/v1/shutdown", sess.Token)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /api/v1/shutdown = %d, want 202", rec.Code)
	}
	if env.shutdowns != 1 {
		t.Errorf("shutdown invoked %d times, want 1", env.shutdowns)
	}
}
