// Package environment reads configuration from environment variables.
//
// A Reader looks variables up through an injectable function and records
// every malformed value instead of silently falling back to the default, so
// a typo such as WINDOW_SIZE=3O is reported at startup rather than hidden.
// Unset or empty variables always yield the default.
package environment

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(name string) (string, bool)

// Reader reads typed values from the environment and accumulates errors.
type Reader struct {
	lookup LookupFunc
	errs   []error
}

// New returns a Reader backed by the process environment.
func New() *Reader {
	return NewWithLookup(os.LookupEnv)
}

// NewWithLookup returns a Reader backed by lookup. Tests pass a map-backed
// function to avoid touching the process environment.
func NewWithLookup(lookup LookupFunc) *Reader {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Reader{lookup: lookup}
}

// FromMap returns a LookupFunc that serves values from m.
func FromMap(m map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

// Err returns all errors recorded so far joined together, or nil.
func (r *Reader) Err() error {
	return errors.Join(r.errs...)
}

func (r *Reader) value(name string) (string, bool) {
	v, ok := r.lookup(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *Reader) fail(name, raw string, err error) {
	r.errs = append(r.errs, fmt.Errorf("environment variable %s=%q: %w", name, raw, err))
}

// String returns the named variable, or defaultValue when unset or empty.
func (r *Reader) String(name, defaultValue string) string {
	if v, ok := r.value(name); ok {
		return v
	}
	return defaultValue
}

// Required returns the named variable and records an error when it is
// unset or empty.
func (r *Reader) Required(name string) string {
	v, ok := r.value(name)
	if !ok {
		r.errs = append(r.errs, fmt.Errorf("required environment variable %s is not set", name))
	}
	return v
}

// Int parses the named variable as a decimal integer.
func (r *Reader) Int(name string, defaultValue int) int {
	v, ok := r.value(name)
	if !ok {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(name, v, errors.New("not an integer"))
		return defaultValue
	}
	return n
}

// Int64 parses the named variable as a 64-bit decimal integer.
func (r *Reader) Int64(name string, defaultValue int64) int64 {
	v, ok := r.value(name)
	if !ok {
		return defaultValue
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.fail(name, v, errors.New("not an integer"))
		return defaultValue
	}
	return n
}

// Bool parses the named variable with strconv.ParseBool.
func (r *Reader) Bool(name string, defaultValue bool) bool {
	v, ok := r.value(name)
	if !ok {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(name, v, errors.New("not a boolean"))
		return defaultValue
	}
	return b
}

// Duration parses the named variable as a time.Duration ("90s", "2h").
// A bare "0" is accepted and means zero.
func (r *Reader) Duration(name string, defaultValue time.Duration) time.Duration {
	v, ok := r.value(name)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(name, v, errors.New("not a duration"))
		return defaultValue
	}
	return d
}

// StringSlice parses the named variable as a comma-separated list, trimming
// whitespace and dropping empty elements.
func (r *Reader) StringSlice(name string, defaultValue []string) []string {
	v, ok := r.value(name)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
