// Package tone implements the personalities the bot can summarise with.
//
// The set of tones is closed: mystic, street and cynic. Each tone renders a
// text/template prompt from the message window; the cynic tone additionally
// receives the chat analytics. Templates are validated when a tone is
// built, so a malformed template fails at startup and never at request
// time.
package tone

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/bdobrica/Resumo/internal/resumo/analytics"
	"github.com/bdobrica/Resumo/internal/resumo/chance"
	"github.com/bdobrica/Resumo/internal/resumo/window"
)

var (
	// ErrConfiguration reports a tone that cannot be built: a malformed or
	// missing template, an unsupported placeholder, an empty phrase list or
	// an unknown tone name.
	ErrConfiguration = errors.New("tone configuration error")

	// ErrUnknownTone reports a switch request for a tone that is not
	// registered.
	ErrUnknownTone = errors.New("unknown tone")
)

// Tone names.
const (
	Mystic = "mystic"
	Street = "street"
	Cynic  = "cynic"
)

// Known lists the supported tone names in their canonical order.
var Known = []string{Mystic, Street, Cynic}

// noneNotable replaces an empty list in a rendered prompt.
const noneNotable = "none notable"

// Tone is one personality variant.
type Tone interface {
	Name() string
	// Render fills the tone's template with msgs and, for tones that use
	// them, the metrics. It does not fail for a tone returned by New.
	Render(msgs []window.Message, m analytics.Metrics) (string, error)
	// NoActivity returns a reply for a chat with nothing to summarise.
	NoActivity(rng chance.Source) string
	// Intro returns the line sent before the generated summary.
	Intro(rng chance.Source) string
	// Confirmation is the reply sent after switching to this tone.
	Confirmation() string
}

// Definition is the raw material of a tone.
type Definition struct {
	Name         string
	Template     string
	Intros       []string
	NoActivity   []string
	Confirmation string
}

// TranscriptData is the template data of the mystic and street tones.
type TranscriptData struct {
	Transcript string
}

// MetricsData is the template data of the cynic tone. Scores are
// preformatted with two decimals and lists are comma-joined.
type MetricsData struct {
	Transcript     string
	TotalMessages  int
	ActiveUsers    string
	TimeSpan       string
	DominantTopics string
	ChaosLevel     int
	Negativity     string
	RepetitionRate string
}

type dataFunc func(msgs []window.Message, m analytics.Metrics) any

type variant struct {
	def  Definition
	tmpl *template.Template
	data dataFunc
}

// New validates def and builds the tone it names.
func New(def Definition) (Tone, error) {
	def.Name = strings.ToLower(strings.TrimSpace(def.Name))

	var data dataFunc
	switch def.Name {
	case Mystic, Street:
		data = transcriptData
	case Cynic:
		data = metricsData
	default:
		return nil, fmt.Errorf("%w: unknown tone %q (known: %s)", ErrConfiguration, def.Name, strings.Join(Known, ", "))
	}

	if strings.TrimSpace(def.Template) == "" {
		return nil, fmt.Errorf("%w: tone %q: empty template", ErrConfiguration, def.Name)
	}
	if len(nonEmpty(def.Intros)) == 0 {
		return nil, fmt.Errorf("%w: tone %q: no intros", ErrConfiguration, def.Name)
	}
	if len(nonEmpty(def.NoActivity)) == 0 {
		return nil, fmt.Errorf("%w: tone %q: no no-activity replies", ErrConfiguration, def.Name)
	}
	if strings.TrimSpace(def.Confirmation) == "" {
		return nil, fmt.Errorf("%w: tone %q: empty confirmation", ErrConfiguration, def.Name)
	}
	def.Intros = nonEmpty(def.Intros)
	def.NoActivity = nonEmpty(def.NoActivity)

	tmpl, err := template.New(def.Name).Option("missingkey=error").Parse(def.Template)
	if err != nil {
		return nil, fmt.Errorf("%w: tone %q: parse: %v", ErrConfiguration, def.Name, err)
	}

	v := &variant{def: def, tmpl: tmpl, data: data}
	if err := v.probe(); err != nil {
		return nil, err
	}
	return v, nil
}

// probe renders the template once with a marker transcript. It catches
// placeholders the tone does not supply and templates that leave the
// transcript out.
func (v *variant) probe() error {
	msgs := []window.Message{{Author: "probe-author", Text: "probe-text"}}
	out, err := v.Render(msgs, analytics.Metrics{})
	if err != nil {
		return fmt.Errorf("%w: tone %q: %v", ErrConfiguration, v.def.Name, err)
	}
	if !strings.Contains(out, Transcript(msgs)) {
		return fmt.Errorf("%w: tone %q: template does not render {{.Transcript}}", ErrConfiguration, v.def.Name)
	}
	return nil
}

func (v *variant) Name() string { return v.def.Name }

func (v *variant) Render(msgs []window.Message, m analytics.Metrics) (string, error) {
	var buf bytes.Buffer
	if err := v.tmpl.Execute(&buf, v.data(msgs, m)); err != nil {
		return "", fmt.Errorf("tone %q: render: %w", v.def.Name, err)
	}
	return buf.String(), nil
}

func (v *variant) NoActivity(rng chance.Source) string {
	return chance.Pick(rng, v.def.NoActivity)
}

func (v *variant) Intro(rng chance.Source) string {
	return chance.Pick(rng, v.def.Intros)
}

func (v *variant) Confirmation() string { return v.def.Confirmation }

// Transcript formats msgs as one "author: text" line per message, oldest
// first.
func Transcript(msgs []window.Message) string {
	var sb strings.Builder
	for i, m := range msgs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(m.Author)
		sb.WriteString(": ")
		sb.WriteString(m.Text)
	}
	return sb.String()
}

func transcriptData(msgs []window.Message, _ analytics.Metrics) any {
	return TranscriptData{Transcript: Transcript(msgs)}
}

func metricsData(msgs []window.Message, m analytics.Metrics) any {
	return MetricsData{
		Transcript:     Transcript(msgs),
		TotalMessages:  m.TotalMessages,
		ActiveUsers:    joinList(m.ActiveUsers),
		TimeSpan:       m.TimeSpan,
		DominantTopics: joinList(m.DominantTopics),
		ChaosLevel:     m.ChaosLevel,
		Negativity:     fmt.Sprintf("%.2f", m.Negativity),
		RepetitionRate: fmt.Sprintf("%.2f", m.RepetitionRate),
	}
}

func joinList(items []string) string {
	if len(items) == 0 {
		return noneNotable
	}
	return strings.Join(items, ", ")
}

func nonEmpty(items []string) []string {
	return slices.DeleteFunc(slices.Clone(items), func(s string) bool {
		return strings.TrimSpace(s) == ""
	})
}

// IsKnown reports whether name, or the tone it is an alias of, is one of
// the supported tones.
func IsKnown(name string) bool {
	return slices.Contains(Known, Canonical(name))
}
