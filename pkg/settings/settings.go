// Package settings owns the persisted configuration document and the
// resolution of the effective runtime configuration.
//
// Configuration is resolved from three layers, highest precedence last:
//
//  1. Compiled-in defaults
//  2. The persisted settings document (YAML, section-oriented)
//  3. Explicit command-line flag overrides
//
// The document lives at a well-known relative path by default and is
// re-saved after every successful resolve unless persistence is locked, so
// the on-disk file is always normalized to the effective configuration.
package settings

import (
	"fmt"
	"os"
	"time"
)

// DefaultPath is the settings document location when no --settings_file
// flag is supplied.
const DefaultPath = "data/settings.yaml"

// Environment modes.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Flag keys consumed by the bootstrap layer.
const (
	KeySettingsFile = "settings_file"
	KeyEnvironment  = "environment"
	KeyHost         = "host"
	KeyPort         = "port"
	KeyLogLevel     = "asp_loglevel"
	KeyUserID       = "user_id"
	KeyLockSettings = "lock_settings"
)

// Process environment variables exposed to the service layer once the
// configuration is applied.
const (
	EnvVarEnvironment = "GRIDHOST_ENVIRONMENT"
	EnvVarBindAddress = "GRIDHOST_BIND_ADDRESS"
	EnvVarLogLevel    = "GRIDHOST_LOG_LEVEL"
)

// Settings is the resolved runtime configuration.
//
// It is mutable only during the resolve phase of bootstrap; once the
// coordinator reaches Running it is treated as immutable for the remainder
// of the process lifetime (there is no hot reload).
type Settings struct {
	// Server holds the service layer bind configuration.
	Server ServerSettings `mapstructure:"server" yaml:"server"`

	// Logging controls log output behavior.
	Logging LoggingSettings `mapstructure:"logging" yaml:"logging"`

	// Session configures the client-session subsystem.
	Session SessionSettings `mapstructure:"session" yaml:"session"`

	// Database configures the registry database backing the subsystems.
	Database DatabaseSettings `mapstructure:"database" yaml:"database"`

	// Locked disables all persistence for this process run when true.
	Locked bool `mapstructure:"locked" yaml:"locked"`
}

// ServerSettings holds the service layer bind configuration.
type ServerSettings struct {
	// Host is the bind host for the service layer.
	Host string `mapstructure:"host" yaml:"host" validate:"required"`

	// Port is the bind port for the service layer.
	Port int `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`

	// Environment is the runtime mode: development or production.
	// Empty until resolved; defaults to production.
	Environment string `mapstructure:"environment" yaml:"environment" validate:"omitempty,oneof=development production"`
}

// LoggingSettings controls logging behavior.
type LoggingSettings struct {
	// Level is the minimum log level: debug, info, warning, error.
	// Empty until resolved; the default depends on the environment.
	Level string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warning error"`

	// Format is the log output format: text or json.
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`

	// Output is where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" yaml:"output"`
}

// SessionSettings configures the client-session subsystem.
type SessionSettings struct {
	// UserID is the default local user identity for new sessions.
	UserID string `mapstructure:"user_id" yaml:"user_id"`

	// Secret signs session tokens. When empty an ephemeral secret is
	// generated at startup and tokens do not survive restarts.
	Secret string `mapstructure:"secret" yaml:"secret,omitempty"`

	// IdleTimeout is how long an inactive session is kept before the
	// session manager reaps it.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// DatabaseSettings configures the registry database.
type DatabaseSettings struct {
	// Path is the SQLite database file backing the registry.
	Path string `mapstructure:"path" yaml:"path"`
}

// Default returns the compiled-in default Settings.
//
// Environment and log level are intentionally left empty: their defaults
// are applied during Resolve because the default log level depends on the
// resolved environment.
func Default() *Settings {
	s := &Settings{}
	applyDefaults(s)
	return s
}

// applyDefaults fills missing values. Explicit values are preserved.
func applyDefaults(s *Settings) {
	if s.Server.Host == "" {
		s.Server.Host = "127.0.0.1"
	}
	if s.Server.Port == 0 {
		s.Server.Port = 8080
	}
	if s.Logging.Format == "" {
		s.Logging.Format = "text"
	}
	if s.Logging.Output == "" {
		s.Logging.Output = "stdout"
	}
	if s.Session.UserID == "" {
		s.Session.UserID = "local"
	}
	if s.Session.IdleTimeout == 0 {
		s.Session.IdleTimeout = 30 * time.Minute
	}
	if s.Database.Path == "" {
		s.Database.Path = "data/registry.db"
	}
}

// BindAddress returns the service bind address in scheme://host:port form.
func (s *Settings) BindAddress() string {
	return fmt.Sprintf("http://%s:%d", s.Server.Host, s.Server.Port)
}

// IsDevelopment reports whether the resolved environment is development.
func (s *Settings) IsDevelopment() bool {
	return s.Server.Environment == EnvDevelopment
}

// Export publishes the runtime mode, bind address, and log level as process
// environment variables for the service layer and anything it spawns.
func (s *Settings) Export() {
	os.Setenv(EnvVarEnvironment, s.Server.Environment)
	os.Setenv(EnvVarBindAddress, s.BindAddress())
	os.Setenv(EnvVarLogLevel, s.Logging.Level)
}
