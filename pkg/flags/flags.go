// Package flags parses the raw process argument list into a flat key/value
// table.
//
// The grammar is deliberately loose about keys and strict about shape:
// every top-level token must be a "--key" flag marker, a flag followed by a
// non-flag token consumes it as its value, and a flag followed by another
// flag (or nothing) gets the literal value "true". Unknown keys are accepted;
// the table tracks which keys were actually consulted so the caller can warn
// about flags nobody read.
package flags

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Marker is the two-character prefix that introduces a flag token.
const Marker = "--"

// Parse failure classes. Callers match them with errors.Is.
var (
	// ErrNotAFlag is returned when a top-level token does not start with
	// the flag marker.
	ErrNotAFlag = errors.New("expected a --flag token")

	// ErrDuplicateKey is returned when the same key appears twice.
	// Last-token-wins would silently hide operator mistakes, so it is a
	// hard error instead.
	ErrDuplicateKey = errors.New("duplicate flag")

	// ErrInvalidBool is returned by GetBool for values outside the
	// accepted boolean literals.
	ErrInvalidBool = errors.New("invalid boolean flag value")

	// ErrInvalidInt is returned by GetInt for values that do not parse as
	// an integer.
	ErrInvalidInt = errors.New("invalid integer flag value")
)

// Table is an immutable flag table built once from the argument list.
//
// Accessors record every key they are asked for, including absent ones, so
// that the post-startup unused-flag pass only warns about keys no consumer
// ever looked at.
type Table struct {
	values map[string]string
	order  []string
	read   map[string]struct{}
}

// Parse builds a Table from the raw argument tokens.
//
// It returns an error naming the offending token or key on the first
// malformed token or duplicate key; a partially populated table is never
// returned.
func Parse(argv []string) (*Table, error) {
	t := &Table{
		values: make(map[string]string, len(argv)),
		read:   make(map[string]struct{}),
	}

	for i := 0; i < len(argv); i++ {
		tok := argv[i]
		if !strings.HasPrefix(tok, Marker) {
			return nil, fmt.Errorf("%w, got %q", ErrNotAFlag, tok)
		}

		key := strings.ToLower(tok[len(Marker):])
		if _, exists := t.values[key]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}

		// A flag followed by another flag (or by nothing) is a
		// boolean-style flag with the implicit value "true".
		value := "true"
		if i+1 < len(argv) && !strings.HasPrefix(argv[i+1], Marker) {
			value = argv[i+1]
			i++
		}

		t.values[key] = value
		t.order = append(t.order, key)
	}

	return t, nil
}

// Get returns the value stored for key, or def when the key is absent.
// The lookup is recorded for the unused-flag pass either way.
func (t *Table) Get(key, def string) string {
	key = strings.ToLower(key)
	t.read[key] = struct{}{}
	if v, ok := t.values[key]; ok {
		return v
	}
	return def
}

// Has reports whether key was supplied, without marking it as read.
func (t *Table) Has(key string) bool {
	_, ok := t.values[strings.ToLower(key)]
	return ok
}

// GetBool returns the value for key interpreted as a boolean, or def when
// the key is absent.
//
// Exactly {"true","yes","1"} and {"false","no","0"} are accepted, case
// insensitively. Anything else is an error naming the key and the value.
func (t *Table) GetBool(key string, def bool) (bool, error) {
	raw := t.Get(key, "")
	if raw == "" && !t.Has(key) {
		return def, nil
	}

	switch strings.ToLower(raw) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: --%s=%q", ErrInvalidBool, strings.ToLower(key), raw)
	}
}

// GetInt returns the value for key parsed as a decimal integer, or def when
// the key is absent.
func (t *Table) GetInt(key string, def int) (int, error) {
	raw := t.Get(key, "")
	if raw == "" && !t.Has(key) {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: --%s=%q", ErrInvalidInt, strings.ToLower(key), raw)
	}
	return n, nil
}

// Len returns the number of flags in the table.
func (t *Table) Len() int {
	return len(t.values)
}

// Unread returns the keys that were supplied on the command line but never
// consulted through an accessor, in the order they were parsed.
func (t *Table) Unread() []string {
	var unread []string
	for _, key := range t.order {
		if _, ok := t.read[key]; !ok {
			unread = append(unread, key)
		}
	}
	return unread
}

// Args returns the canonical re-serialization of the table: flags in parse
// order, boolean-style "true" values collapsed back to a bare flag token.
// Parsing the result yields an identical table.
func (t *Table) Args() []string {
	args := make([]string, 0, 2*len(t.order))
	for _, key := range t.order {
		args = append(args, Marker+key)
		if v := t.values[key]; v != "true" {
			args = append(args, v)
		}
	}
	return args
}
