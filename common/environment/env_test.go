package environment_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bdobrica/Resumo/common/environment"
)

func reader(m map[string]string) *environment.Reader {
	return environment.NewWithLookup(environment.FromMap(m))
}

func TestString(t *testing.T) {
	r := reader(map[string]string{"NAME": "  hello ", "BLANK": "   "})
	if got := r.String("NAME", "default"); got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
	if got := r.String("BLANK", "default"); got != "default" {
		t.Errorf("blank: got %q, want %q", got, "default")
	}
	if got := r.String("MISSING", "default"); got != "default" {
		t.Errorf("missing: got %q, want %q", got, "default")
	}
	if err := r.Err(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRequired(t *testing.T) {
	r := reader(map[string]string{"TOKEN": "abc"})
	if got := r.Required("TOKEN"); got != "abc" {
		t.Errorf("got %q, want %q", got, "abc")
	}
	r.Required("MISSING_TOKEN")
	err := r.Err()
	if err == nil {
		t.Fatal("expected error for missing variable, got nil")
	}
	if !strings.Contains(err.Error(), "MISSING_TOKEN") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestInt(t *testing.T) {
	r := reader(map[string]string{"SIZE": "42", "BAD": "3O"})
	if got := r.Int("SIZE", 0); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	if got := r.Int("MISSING", 99); got != 99 {
		t.Errorf("got %d, want 99", got)
	}
	if got := r.Int("BAD", 7); got != 7 {
		t.Errorf("bad value: got %d, want default 7", got)
	}
	if r.Err() == nil {
		t.Error("expected the malformed value to be recorded")
	}
}

func TestInt64(t *testing.T) {
	r := reader(map[string]string{"SEED": "9007199254740993"})
	if got := r.Int64("SEED", 0); got != 9007199254740993 {
		t.Errorf("got %d", got)
	}
}

func TestBool(t *testing.T) {
	r := reader(map[string]string{"ON": "true", "OFF": "0", "BAD": "maybe"})
	if !r.Bool("ON", false) {
		t.Error("expected true")
	}
	if r.Bool("OFF", true) {
		t.Error("expected false")
	}
	if !r.Bool("MISSING", true) {
		t.Error("expected default true")
	}
	r.Bool("BAD", false)
	if r.Err() == nil {
		t.Error("expected error for malformed boolean")
	}
}

func TestDuration(t *testing.T) {
	r := reader(map[string]string{"TTL": "90s", "ZERO": "0", "BAD": "soon"})
	if got := r.Duration("TTL", 0); got != 90*time.Second {
		t.Errorf("got %v, want 90s", got)
	}
	if got := r.Duration("ZERO", time.Hour); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
	if got := r.Duration("BAD", time.Minute); got != time.Minute {
		t.Errorf("got %v, want default", got)
	}
	if r.Err() == nil {
		t.Error("expected error for malformed duration")
	}
}

func TestStringSlice(t *testing.T) {
	r := reader(map[string]string{"ROOMS": " !a:x , ,!b:x ", "COMMAS": ",,"})
	got := r.StringSlice("ROOMS", nil)
	if len(got) != 2 || got[0] != "!a:x" || got[1] != "!b:x" {
		t.Errorf("got %v", got)
	}
	def := []string{"d"}
	if got := r.StringSlice("COMMAS", def); len(got) != 1 || got[0] != "d" {
		t.Errorf("only separators should yield default, got %v", got)
	}
}

func TestErr_JoinsAll(t *testing.T) {
	r := reader(map[string]string{"A": "x", "B": "y"})
	r.Int("A", 0)
	r.Bool("B", false)
	err := r.Err()
	if err == nil {
		t.Fatal("expected joined error")
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) || len(joined.Unwrap()) != 2 {
		t.Errorf("expected two joined errors, got %v", err)
	}
}
