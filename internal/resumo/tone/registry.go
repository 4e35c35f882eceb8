package tone

import (
	"fmt"
	"strings"
	"sync"
)

// aliases maps the Spanish names users tend to type to canonical names.
var aliases = map[string]string{
	"mistico":  Mystic,
	"místico":  Mystic,
	"malandro": Street,
	"calle":    Street,
	"cinico":   Cynic,
	"cínico":   Cynic,
}

// Registry holds the available tones and the currently selected one. The
// tone set never changes after construction; only the selection does.
type Registry struct {
	mu      sync.RWMutex
	tones   map[string]Tone
	order   []string
	current Tone
}

// NewRegistry registers tones in the given order and selects defaultName.
// Duplicate names and a default that is not registered are configuration
// errors.
func NewRegistry(defaultName string, tones ...Tone) (*Registry, error) {
	r := &Registry{tones: make(map[string]Tone, len(tones))}
	for _, t := range tones {
		if _, dup := r.tones[t.Name()]; dup {
			return nil, fmt.Errorf("%w: tone %q registered twice", ErrConfiguration, t.Name())
		}
		r.tones[t.Name()] = t
		r.order = append(r.order, t.Name())
	}

	def, ok := r.lookup(defaultName)
	if !ok {
		return nil, fmt.Errorf("%w: default tone %q is not registered (available: %s)",
			ErrConfiguration, defaultName, strings.Join(r.order, ", "))
	}
	r.current = def
	return r, nil
}

// Current returns the selected tone.
func (r *Registry) Current() Tone {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Switch selects the named tone and returns it. An unknown name yields an
// error wrapping ErrUnknownTone and leaves the selection unchanged.
func (r *Registry) Switch(name string) (Tone, error) {
	t, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTone, name)
	}
	r.mu.Lock()
	r.current = t
	r.mu.Unlock()
	return t, nil
}

// Get returns the named tone without selecting it.
func (r *Registry) Get(name string) (Tone, bool) {
	return r.lookup(name)
}

// Names returns the registered tone names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) lookup(name string) (Tone, bool) {
	t, ok := r.tones[Canonical(name)]
	return t, ok
}

// Canonical lower-cases name and resolves Spanish aliases, so "Cínico"
// becomes "cynic". Unknown names are returned lower-cased.
func Canonical(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[key]; ok {
		return canonical
	}
	return key
}
