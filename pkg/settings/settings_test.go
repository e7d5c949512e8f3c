package settings

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gridhost/pkg/flags"
)

func mustParse(t *testing.T, argv ...string) *flags.Table {
	t.Helper()
	tbl, err := flags.Parse(argv)
	if err != nil {
		t.Fatalf("Parse(%v) failed: %v", argv, err)
	}
	return tbl
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "settings.yaml"))

	set := store.Load()

	if set.Server.Host != "127.0.0.1" {
		t.Errorf("host = %q, want default", set.Server.Host)
	}
	if set.Server.Port != 8080 {
		t.Errorf("port = %d, want default 8080", set.Server.Port)
	}
	if set.Session.UserID != "local" {
		t.Errorf("user_id = %q, want local", set.Session.UserID)
	}
}

func TestLoad_CorruptFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("{{{ not yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	set := NewStore(path).Load()
	if set.Server.Port != 8080 {
		t.Errorf("port = %d, want default after corrupt load", set.Server.Port)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	doc := `
server:
  host: 10.0.0.5
  port: 9000
  environment: development
session:
  user_id: alice
  idle_timeout: 5m
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	set := NewStore(path).Load()

	if set.Server.Host != "10.0.0.5" || set.Server.Port != 9000 {
		t.Errorf("server = %+v", set.Server)
	}
	if set.Server.Environment != EnvDevelopment {
		t.Errorf("environment = %q", set.Server.Environment)
	}
	if set.Session.UserID != "alice" {
		t.Errorf("user_id = %q", set.Session.UserID)
	}
	if set.Session.IdleTimeout != 5*time.Minute {
		t.Errorf("idle_timeout = %v", set.Session.IdleTimeout)
	}
	// Unspecified sections still get defaults.
	if set.Logging.Format != "text" {
		t.Errorf("logging format = %q", set.Logging.Format)
	}
}

func TestResolve_DefaultsWithHostPortFlags(t *testing.T) {
	set := Default()
	tbl := mustParse(t, "--host", "0.0.0.0", "--port", "8000")

	if err := Resolve(tbl, set); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if got := set.BindAddress(); got != "http://0.0.0.0:8000" {
		t.Errorf("bind address = %q", got)
	}
	if set.Server.Environment != EnvProduction {
		t.Errorf("environment = %q, want production default", set.Server.Environment)
	}
	if set.Logging.Level != "warning" {
		t.Errorf("level = %q, want warning under production", set.Logging.Level)
	}
}

func TestResolve_DevelopmentDefaultsToDebug(t *testing.T) {
	set := Default()
	if err := Resolve(mustParse(t, "--environment", "dev"), set); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if set.Server.Environment != EnvDevelopment {
		t.Errorf("environment = %q", set.Server.Environment)
	}
	if set.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug under development", set.Logging.Level)
	}
}

func TestResolve_FlagOverridesFileValue(t *testing.T) {
	set := Default()
	set.Server.Environment = EnvDevelopment // as if loaded from file
	set.Session.UserID = "fromfile"

	if err := Resolve(mustParse(t, "--environment", "production", "--user_id", "fromflag"), set); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if set.Server.Environment != EnvProduction {
		t.Errorf("environment = %q, want flag to win", set.Server.Environment)
	}
	if set.Session.UserID != "fromflag" {
		t.Errorf("user_id = %q, want flag to win", set.Session.UserID)
	}
}

func TestResolve_LockSettingsBareFlag(t *testing.T) {
	set := Default()
	if err := Resolve(mustParse(t, "--lock_settings"), set); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !set.Locked {
		t.Error("expected bare --lock_settings to lock persistence")
	}
}

func TestResolve_InvalidValuesAreFatal(t *testing.T) {
	cases := []struct {
		argv []string
		want error
	}{
		{[]string{"--environment", "staging"}, ErrInvalidEnvironment},
		{[]string{"--asp_loglevel", "verbose"}, ErrInvalidLogLevel},
		{[]string{"--port", "eight"}, flags.ErrInvalidInt},
		{[]string{"--lock_settings", "maybe"}, flags.ErrInvalidBool},
	}

	for _, tc := range cases {
		set := Default()
		err := Resolve(mustParse(t, tc.argv...), set)
		if !errors.Is(err, tc.want) {
			t.Errorf("Resolve(%v) = %v, want %v", tc.argv, err, tc.want)
		}
	}
}

func TestResolve_OutOfRangePortFailsValidation(t *testing.T) {
	set := Default()
	if err := Resolve(mustParse(t, "--port", "70000"), set); err == nil {
		t.Fatal("expected validation error for port 70000")
	}
}

func TestResolve_WarnAliasNormalizes(t *testing.T) {
	set := Default()
	if err := Resolve(mustParse(t, "--asp_loglevel", "WARN"), set); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if set.Logging.Level != "warning" {
		t.Errorf("level = %q, want warning", set.Logging.Level)
	}
}

func TestResolve_DeterministicAcrossFlagOrder(t *testing.T) {
	orderings := [][]string{
		{"--host", "h", "--port", "9001", "--environment", "dev", "--user_id", "u"},
		{"--environment", "dev", "--user_id", "u", "--host", "h", "--port", "9001"},
		{"--user_id", "u", "--environment", "dev", "--port", "9001", "--host", "h"},
	}

	var first *Settings
	for _, argv := range orderings {
		set := Default()
		if err := Resolve(mustParse(t, argv...), set); err != nil {
			t.Fatalf("Resolve(%v) failed: %v", argv, err)
		}
		if first == nil {
			first = set
			continue
		}
		if !reflect.DeepEqual(first, set) {
			t.Errorf("resolution differs across flag order: %+v vs %+v", first, set)
		}
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := NewStore(path)

	set := store.Load()
	if err := Resolve(mustParse(t, "--host", "0.0.0.0", "--port", "8000"), set); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if err := store.Save(set); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got := NewStore(path).Load()
	if got.Server.Host != "0.0.0.0" || got.Server.Port != 8000 {
		t.Errorf("round trip lost server settings: %+v", got.Server)
	}
	if got.Server.Environment != EnvProduction {
		t.Errorf("round trip lost environment: %q", got.Server.Environment)
	}
}

func TestSave_PreservesUnknownSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	doc := `
server:
  port: 9000
experimental:
  shiny_feature: enabled
  knobs:
    depth: 3
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(path)
	set := store.Load()
	if err := Resolve(mustParse(t), set); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if err := store.Save(set); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, fragment := range []string{"experimental", "shiny_feature", "depth"} {
		if !strings.Contains(text, fragment) {
			t.Errorf("saved document dropped %q:\n%s", fragment, text)
		}
	}
}

func TestSave_LockedIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := NewStore(path)
	set := store.Load()
	store.SetLocked(true)

	if err := store.Save(set); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("locked save should not create the settings file")
	}
}

func TestExport(t *testing.T) {
	set := Default()
	if err := Resolve(mustParse(t, "--environment", "dev", "--port", "9009"), set); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	set.Export()

	if got := os.Getenv(EnvVarEnvironment); got != EnvDevelopment {
		t.Errorf("%s = %q", EnvVarEnvironment, got)
	}
	if got := os.Getenv(EnvVarBindAddress); got != "http://127.0.0.1:9009" {
		t.Errorf("%s = %q", EnvVarBindAddress, got)
	}
	if got := os.Getenv(EnvVarLogLevel); got != "debug" {
		t.Errorf("%s = %q", EnvVarLogLevel, got)
	}
}
