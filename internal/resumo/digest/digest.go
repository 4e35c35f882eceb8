// Package digest is the entry point of the summarising core. It records
// inbound group messages and turns a chat's window into a summary request:
// an intro line plus the prompt to hand to the generation service.
package digest

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bdobrica/Resumo/internal/resumo/analytics"
	"github.com/bdobrica/Resumo/internal/resumo/chance"
	"github.com/bdobrica/Resumo/internal/resumo/tone"
	"github.com/bdobrica/Resumo/internal/resumo/window"
)

// ErrPromptTooLong is returned by BuildSummaryRequest when the rendered
// prompt exceeds the configured limit.
var ErrPromptTooLong = errors.New("prompt too long")

// PromptTooLongMessage is the reply sent when ErrPromptTooLong is hit.
const PromptTooLongMessage = "📚 Demasiados mensajes para procesar de una vez. Inténtalo más tarde, cuando la conversación se calme."

// UserError is an error whose Message can be shown to chat users as is.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string { return e.Err.Error() }
func (e *UserError) Unwrap() error { return e.Err }

// Analyzer computes the metrics of a window.
type Analyzer interface {
	Analyze(msgs []window.Message) analytics.Metrics
}

// SummaryRequest is what the caller needs to produce a digest. When Empty
// is set only NoActivity is meaningful and nothing should be generated.
type SummaryRequest struct {
	ID         string
	ChatID     string
	Empty      bool
	NoActivity string

	Intro    string
	Prompt   string
	Tone     string
	Metrics  analytics.Metrics
	Messages int
}

// Config holds the service limits.
type Config struct {
	// MaxPromptLength is the maximum rendered prompt length in characters.
	// Zero disables the check.
	MaxPromptLength int
}

// Service composes the buffer, the analyzer and the tone registry.
type Service struct {
	buffer   *window.Buffer
	analyzer Analyzer
	tones    *tone.Registry
	rng      chance.Source
	config   Config
}

// New creates a Service.
func New(buffer *window.Buffer, analyzer Analyzer, tones *tone.Registry, rng chance.Source, cfg Config) *Service {
	return &Service{
		buffer:   buffer,
		analyzer: analyzer,
		tones:    tones,
		rng:      rng,
		config:   cfg,
	}
}

// OnMessage records text in the chat's window. Only group messages with
// non-empty text are recorded; whitespace-only text counts as text. The
// return value reports whether it was recorded.
func (s *Service) OnMessage(chatID, author, text string, isGroup bool) bool {
	if !isGroup || text == "" {
		return false
	}
	s.buffer.Record(chatID, author, text)
	return true
}

// BuildSummaryRequest reads the chat's window and renders the prompt with
// the current tone. An empty window yields an Empty request without
// touching the analyzer or the tone template.
func (s *Service) BuildSummaryRequest(chatID string) (SummaryRequest, error) {
	current := s.tones.Current()
	req := SummaryRequest{
		ID:     uuid.NewString(),
		ChatID: chatID,
		Tone:   current.Name(),
	}

	msgs := s.buffer.Read(chatID)
	if len(msgs) == 0 {
		req.Empty = true
		req.NoActivity = current.NoActivity(s.rng)
		return req, nil
	}

	req.Messages = len(msgs)
	req.Metrics = s.analyzer.Analyze(msgs)

	prompt, err := current.Render(msgs, req.Metrics)
	if err != nil {
		return req, fmt.Errorf("digest: %w", err)
	}
	if limit := s.config.MaxPromptLength; limit > 0 {
		if n := utf8.RuneCountInString(prompt); n > limit {
			return req, &UserError{
				Message: PromptTooLongMessage,
				Err:     fmt.Errorf("%w: %d characters, limit %d", ErrPromptTooLong, n, limit),
			}
		}
	}

	req.Prompt = prompt
	req.Intro = current.Intro(s.rng)
	return req, nil
}

// SwitchTone selects the named tone and returns its confirmation. An
// unknown or empty name yields a *UserError wrapping tone.ErrUnknownTone
// whose message lists the valid tones.
func (s *Service) SwitchTone(name string) (string, error) {
	t, err := s.tones.Switch(name)
	if err != nil {
		return "", &UserError{Message: s.ToneUsage(), Err: err}
	}
	return t.Confirmation(), nil
}

// ToneUsage is the usage text of the tone switch command.
func (s *Service) ToneUsage() string {
	return fmt.Sprintf("Uso: /tono <%s>", strings.Join(s.tones.Names(), "|"))
}

// Metrics returns the analytics of the chat's current window.
func (s *Service) Metrics(chatID string) analytics.Metrics {
	return s.analyzer.Analyze(s.buffer.Read(chatID))
}

// CurrentTone returns the name of the selected tone.
func (s *Service) CurrentTone() string {
	return s.tones.Current().Name()
}

// Tones returns the available tone names.
func (s *Service) Tones() []string {
	return s.tones.Names()
}

// Chats returns the number of chats with a window.
func (s *Service) Chats() int {
	return s.buffer.Chats()
}
