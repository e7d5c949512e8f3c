package settings

import (
	"errors"
	"fmt"
	"strings"

	"gridhost/pkg/flags"
)

// Resolve failure classes.
var (
	// ErrInvalidEnvironment is returned for an environment literal
	// outside {dev, development, prod, production}.
	ErrInvalidEnvironment = errors.New("invalid environment")

	// ErrInvalidLogLevel is returned for an unrecognized log level name.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Resolve applies command-line flag overrides on top of set, which carries
// the file-over-defaults layers, producing the final effective Settings.
//
// Resolution is deterministic: the same document contents and argument
// list always produce the same Settings. Any invalid flag value is
// returned as an error naming the flag and value; the caller aborts
// startup before any subsystem is touched.
func Resolve(tbl *flags.Table, set *Settings) error {
	// Environment first: the log level default depends on it.
	if raw := tbl.Get(KeyEnvironment, ""); raw != "" {
		env, err := ParseEnvironment(raw)
		if err != nil {
			return err
		}
		set.Server.Environment = env
	} else if set.Server.Environment == "" {
		set.Server.Environment = EnvProduction
	}

	set.Server.Host = tbl.Get(KeyHost, set.Server.Host)

	port, err := tbl.GetInt(KeyPort, set.Server.Port)
	if err != nil {
		return err
	}
	set.Server.Port = port

	if raw := tbl.Get(KeyLogLevel, ""); raw != "" {
		level, err := ParseLogLevel(raw)
		if err != nil {
			return err
		}
		set.Logging.Level = level
	} else if set.Logging.Level == "" {
		if set.IsDevelopment() {
			set.Logging.Level = "debug"
		} else {
			set.Logging.Level = "warning"
		}
	}

	set.Session.UserID = tbl.Get(KeyUserID, set.Session.UserID)

	locked, err := tbl.GetBool(KeyLockSettings, set.Locked)
	if err != nil {
		return err
	}
	set.Locked = locked

	return Validate(set)
}

// ParseEnvironment maps an environment literal to its canonical mode.
func ParseEnvironment(raw string) (string, error) {
	switch strings.ToLower(raw) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "prod", "production":
		return EnvProduction, nil
	default:
		return "", fmt.Errorf("%w: %q (expected dev, development, prod, or production)", ErrInvalidEnvironment, raw)
	}
}

// ParseLogLevel maps a log level name to its canonical form.
// "warn" is accepted as an alias for "warning".
func ParseLogLevel(raw string) (string, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return "debug", nil
	case "info":
		return "info", nil
	case "warn", "warning":
		return "warning", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("%w: %q (expected debug, info, warning, or error)", ErrInvalidLogLevel, raw)
	}
}
