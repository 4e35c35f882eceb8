// Package generation hands a rendered prompt to an OpenAI-compatible chat
// completion service (OpenRouter by default) and returns the generated
// text.
//
// Calls are never retried: a failed summary is reported to the chat and the
// user decides whether to ask again.
package generation

import (
	"context"
	"errors"
)

// ErrRateLimit is returned when the upstream API answers 429 Too Many
// Requests.
var ErrRateLimit = errors.New("generation: upstream rate limit exceeded")

// ErrEmptyCompletion is returned when the API answers successfully but
// without any text.
var ErrEmptyCompletion = errors.New("generation: empty completion")

// ErrDisabled is returned by the provider used when no API key is
// configured.
var ErrDisabled = errors.New("generation: no API key configured")

// User-visible replies for failed generations.
const (
	FailureMessage   = "⚠️ Error al generar el resumen. Intenta más tarde."
	RateLimitMessage = "⏳ El servicio de resúmenes está saturado. Vuelve a intentarlo en unos minutos."
	DisabledMessage  = "🔌 Los resúmenes están desactivados: falta la clave del servicio de generación."
)

// Provider generates text for a prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// UserMessage maps a Generate error to the reply shown in the chat.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrRateLimit):
		return RateLimitMessage
	case errors.Is(err, ErrDisabled):
		return DisabledMessage
	default:
		return FailureMessage
	}
}

type disabled struct{}

// Disabled returns a Provider that always fails with ErrDisabled.
func Disabled() Provider { return disabled{} }

func (disabled) Generate(context.Context, string) (string, error) {
	return "", ErrDisabled
}
