// Package analytics derives coarse statistics from a message window: who is
// talking, what about, how negative and how chaotic the conversation is.
// The figures are heuristics meant to flavour a prompt, not measurements.
package analytics

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bdobrica/Resumo/internal/resumo/chance"
	"github.com/bdobrica/Resumo/internal/resumo/window"
)

// Metrics is the snapshot computed from a window at request time.
type Metrics struct {
	TotalMessages  int      `json:"total_messages"`
	ActiveUsers    []string `json:"active_users"`
	TimeSpan       string   `json:"time_span"`
	DominantTopics []string `json:"dominant_topics"`
	ChaosLevel     int      `json:"chaos_level"`
	Negativity     float64  `json:"negativity"`
	RepetitionRate float64  `json:"repetition_rate"`
}

// Config replaces the built-in word lists. Nil slices keep the defaults.
type Config struct {
	StopWords     []string
	NegativeTerms []string
	// TopN bounds ActiveUsers and DominantTopics. Default: 5.
	TopN int
}

const (
	minTopicLength = 4
	maxChaos       = 10
)

// Analyzer computes Metrics. It holds no per-request state and is safe for
// concurrent use when its random source is.
type Analyzer struct {
	stop     map[string]struct{}
	negative [][]string
	topN     int
	rng      chance.Source
}

// New builds an Analyzer. rng supplies the random part of the chaos level.
func New(cfg Config, rng chance.Source) *Analyzer {
	if cfg.StopWords == nil {
		cfg.StopWords = DefaultStopWords
	}
	if cfg.NegativeTerms == nil {
		cfg.NegativeTerms = DefaultNegativeTerms
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 5
	}

	a := &Analyzer{
		stop: make(map[string]struct{}, len(cfg.StopWords)),
		topN: cfg.TopN,
		rng:  rng,
	}
	for _, w := range cfg.StopWords {
		a.stop[lower(w)] = struct{}{}
	}
	for _, term := range cfg.NegativeTerms {
		if toks := tokenize(lower(term)); len(toks) > 0 {
			a.negative = append(a.negative, toks)
		}
	}
	return a
}

// Analyze computes the metrics of msgs. It never fails; an empty window
// yields zero counts, empty lists and an empty time span. The chaos level is
// always within [1, 10].
func (a *Analyzer) Analyze(msgs []window.Message) Metrics {
	m := Metrics{
		TotalMessages:  len(msgs),
		ActiveUsers:    []string{},
		DominantTopics: []string{},
	}

	authors := newCounter()
	texts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		authors.add(msg.Author)
		texts = append(texts, msg.Text)
	}
	m.ActiveUsers = authors.top(a.topN)

	tokens := tokenize(lower(strings.Join(texts, "\n")))
	m.DominantTopics = a.topics(tokens)

	m.ChaosLevel = min(maxChaos, authors.distinct()/2+chance.Between(a.rng, 1, 3))

	if m.TotalMessages > 0 {
		total := float64(m.TotalMessages)
		m.Negativity = float64(a.negativeHits(tokens)) / total
		m.RepetitionRate = float64(authors.distinct()) / total
		m.TimeSpan = timeSpan(msgs[0].Timestamp, msgs[len(msgs)-1].Timestamp)
	}
	return m
}

func (a *Analyzer) topics(tokens []string) []string {
	words := newCounter()
	for _, t := range tokens {
		if utf8.RuneCountInString(t) < minTopicLength {
			continue
		}
		if _, ok := a.stop[t]; ok {
			continue
		}
		words.add(t)
	}
	return words.top(a.topN)
}

// negativeHits counts occurrences of every lexicon term as a run of
// consecutive tokens.
func (a *Analyzer) negativeHits(tokens []string) int {
	hits := 0
	for _, term := range a.negative {
		for i := 0; i+len(term) <= len(tokens); i++ {
			if equalAt(tokens, i, term) {
				hits++
			}
		}
	}
	return hits
}

func equalAt(tokens []string, i int, term []string) bool {
	for j, w := range term {
		if tokens[i+j] != w {
			return false
		}
	}
	return true
}

// timeSpan labels the distance between the first and last message, e.g.
// "15 minutes". Equal timestamps read "now".
func timeSpan(first, last time.Time) string {
	return strings.TrimSpace(humanize.RelTime(first, last, "", ""))
}

// lower folds s to lower case. A Caser keeps state, so each call gets its
// own.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// tokenize splits s on anything that is not a letter, digit or underscore.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// counter counts keys and remembers the order in which they were first
// seen, which breaks ties when ranking.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter) distinct() int {
	return len(c.order)
}

func (c *counter) top(n int) []string {
	ranked := make([]string, len(c.order))
	copy(ranked, c.order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return c.counts[ranked[i]] > c.counts[ranked[j]]
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
