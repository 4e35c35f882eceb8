// Package chance provides the seedable pseudo-random source shared by the
// analytics (chaos score) and the tones (intro and no-activity picks).
package chance

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source yields pseudo-random integers in [0, n). Implementations must be
// safe for concurrent use.
type Source interface {
	IntN(n int) int
}

// Locked is a mutex-guarded PCG generator.
type Locked struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a Source seeded with seed. Equal seeds produce equal
// sequences.
func New(seed uint64) *Locked {
	return &Locked{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewFromTime returns a Source seeded from the wall clock.
func NewFromTime() *Locked {
	return New(uint64(time.Now().UnixNano()))
}

// IntN returns a pseudo-random int in [0, n). It panics if n <= 0, like
// rand.IntN.
func (l *Locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Between returns a pseudo-random int in the closed range [lo, hi].
func Between(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.IntN(hi-lo+1)
}

// Pick returns a pseudo-random element of items, or "" when items is empty.
func Pick(src Source, items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[src.IntN(len(items))]
}
