package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"gridhost/internal/logger"
)

// Store loads and saves the settings document at a fixed path.
//
// The underlying viper instance keeps every key read from the file,
// including sections this layer does not model, so a save round-trips
// unrecognized sections instead of dropping them.
type Store struct {
	path string

	mu     sync.Mutex
	v      *viper.Viper
	locked bool
}

// NewStore creates a store for the document at path.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path, v: viper.New()}
}

// Path returns the settings document path.
func (s *Store) Path() string {
	return s.path
}

// SetLocked enables or disables persistence for this process run.
// While locked, Save is a no-op.
func (s *Store) SetLocked(locked bool) {
	s.mu.Lock()
	s.locked = locked
	s.mu.Unlock()
}

// Locked reports whether persistence is disabled.
func (s *Store) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Load reads the settings document into a Settings value.
//
// Load never fails the caller: a missing file is logged at info and a
// corrupt or unreadable one at error, and in both cases the all-default
// Settings is returned so startup can proceed.
func (s *Store) Load() *Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			logger.Info("Settings file not found, using defaults", logger.KeyPath, s.path)
		} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Info("Settings file not found, using defaults", logger.KeyPath, s.path)
		} else {
			logger.Error("Failed to read settings file, using defaults",
				logger.KeyPath, s.path, logger.KeyError, err)
		}
		s.v = v
		return Default()
	}

	var set Settings
	if err := v.Unmarshal(&set, viper.DecodeHook(decodeHooks())); err != nil {
		logger.Error("Failed to decode settings file, using defaults",
			logger.KeyPath, s.path, logger.KeyError, err)
		s.v = v
		return Default()
	}

	applyDefaults(&set)

	if err := Validate(&set); err != nil {
		logger.Error("Settings file failed validation, using defaults",
			logger.KeyPath, s.path, logger.KeyError, err)
		s.v = v
		return Default()
	}

	s.v = v
	return &set
}

// Save serializes the resolved Settings back to the document path.
//
// Sections present in the loaded file but unknown to this layer are
// preserved. When the store is locked, Save does nothing. Write failures
// are reported but the process is expected to continue with in-memory
// settings; callers log and proceed.
func (s *Store) Save(set *Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked {
		logger.Debug("Settings locked, skipping save", logger.KeyPath, s.path)
		return nil
	}

	// Overlay the resolved fields on the loaded key map; everything else
	// read from the file stays as-is.
	s.v.Set("server.host", set.Server.Host)
	s.v.Set("server.port", set.Server.Port)
	s.v.Set("server.environment", set.Server.Environment)
	s.v.Set("logging.level", set.Logging.Level)
	s.v.Set("logging.format", set.Logging.Format)
	s.v.Set("logging.output", set.Logging.Output)
	s.v.Set("session.user_id", set.Session.UserID)
	if set.Session.Secret != "" {
		s.v.Set("session.secret", set.Session.Secret)
	}
	s.v.Set("session.idle_timeout", set.Session.IdleTimeout.String())
	s.v.Set("database.path", set.Database.Path)
	s.v.Set("locked", set.Locked)

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

// decodeHooks returns the mapstructure hooks for custom settings types.
func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook converts strings and integers to time.Duration so the
// document can use human-readable values like "30s" or "5m".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}
