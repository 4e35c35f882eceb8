// Package config loads Resumo's configuration from the environment.
//
// Every variable is optional except the Matrix credentials, which only the
// serve command needs. Malformed values are collected and reported together
// so a broken deployment fails at startup with the full list.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bdobrica/Resumo/common/environment"
	"github.com/bdobrica/Resumo/common/redact"
	"github.com/bdobrica/Resumo/internal/resumo/generation"
	"github.com/bdobrica/Resumo/internal/resumo/matrix"
	"github.com/bdobrica/Resumo/internal/resumo/tone"
	"github.com/bdobrica/Resumo/internal/resumo/window"
)

// Defaults.
const (
	DefaultDatabasePath     = "./resumo.db"
	DefaultMaxPromptLength  = 12000
	DefaultSummaryRateLimit = 3
	DefaultLLMTimeout       = 60 * time.Second
)

// Config is the complete runtime configuration.
type Config struct {
	Matrix matrix.Config

	// DatabasePath is the SQLite file for the audit log and sync state.
	// Empty disables persistence.
	DatabasePath string

	Window window.Config

	// MaxPromptLength guards the rendered prompt size. Zero disables it.
	MaxPromptLength int

	DefaultTone string
	// TonesFile is an optional YAML tone pack.
	TonesFile string
	// TonePrompts holds TONE_PROMPT_<NAME> overrides keyed by tone name.
	TonePrompts map[string]string

	// RandomSeed seeds intro picks and the chaos level. Zero seeds from the
	// clock.
	RandomSeed uint64

	LLM generation.Config

	// SummaryRateLimit is the number of summaries allowed per chat per
	// minute. Zero disables throttling.
	SummaryRateLimit int

	// HTTPAddr enables the health server when set (e.g. ":8080").
	HTTPAddr string

	LogLevel  string
	LogFormat string
}

// Load reads the configuration through r. It returns the accumulated parse
// errors of r, if any; call Validate for semantic checks.
func Load(r *environment.Reader) (Config, error) {
	cfg := Config{
		Matrix: matrix.Config{
			Homeserver:  r.String("MATRIX_HOMESERVER", ""),
			UserID:      r.String("MATRIX_USER_ID", ""),
			AccessToken: r.String("MATRIX_ACCESS_TOKEN", ""),
			Rooms:       r.StringSlice("MATRIX_ROOMS", nil),
			AutoJoin:    r.Bool("MATRIX_AUTO_JOIN", true),
		},
		DatabasePath: r.String("DATABASE_PATH", DefaultDatabasePath),
		Window: window.Config{
			MaxMessages:      r.Int("WINDOW_SIZE", window.DefaultConfig().MaxMessages),
			MaxMessageLength: r.Int("MAX_MESSAGE_LENGTH", window.DefaultConfig().MaxMessageLength),
			Retention:        r.Duration("RETENTION", 0),
		},
		MaxPromptLength: r.Int("MAX_PROMPT_LENGTH", DefaultMaxPromptLength),
		DefaultTone:     tone.Canonical(r.String("DEFAULT_TONE", tone.Cynic)),
		TonesFile:       r.String("TONES_FILE", ""),
		TonePrompts:     make(map[string]string),
		RandomSeed:      uint64(r.Int64("RANDOM_SEED", 0)),
		LLM: generation.Config{
			APIKey:    r.String("LLM_API_KEY", ""),
			BaseURL:   r.String("LLM_BASE_URL", generation.DefaultBaseURL),
			Model:     r.String("LLM_MODEL", generation.DefaultModel),
			MaxTokens: r.Int("LLM_MAX_TOKENS", 0),
			Timeout:   r.Duration("LLM_TIMEOUT", DefaultLLMTimeout),
			AppTitle:  r.String("LLM_APP_TITLE", ""),
			AppURL:    r.String("LLM_APP_URL", ""),
		},
		SummaryRateLimit: r.Int("SUMMARY_RATE_LIMIT", DefaultSummaryRateLimit),
		HTTPAddr:         r.String("HTTP_ADDR", ""),
		LogLevel:         strings.ToLower(r.String("LOG_LEVEL", "info")),
		LogFormat:        strings.ToLower(r.String("LOG_FORMAT", "text")),
	}

	for _, name := range tone.Known {
		if tmpl := r.String("TONE_PROMPT_"+strings.ToUpper(name), ""); tmpl != "" {
			cfg.TonePrompts[name] = tmpl
		}
	}

	return cfg, r.Err()
}

// Validate checks the values that do not depend on the chat transport.
func (c Config) Validate() error {
	var errs []error
	if c.Window.MaxMessages <= 0 {
		errs = append(errs, fmt.Errorf("WINDOW_SIZE must be positive, got %d", c.Window.MaxMessages))
	}
	if c.Window.MaxMessageLength <= 0 {
		errs = append(errs, fmt.Errorf("MAX_MESSAGE_LENGTH must be positive, got %d", c.Window.MaxMessageLength))
	}
	if c.Window.Retention < 0 {
		errs = append(errs, fmt.Errorf("RETENTION must not be negative, got %s", c.Window.Retention))
	}
	if c.MaxPromptLength < 0 {
		errs = append(errs, fmt.Errorf("MAX_PROMPT_LENGTH must not be negative, got %d", c.MaxPromptLength))
	}
	if !tone.IsKnown(c.DefaultTone) {
		errs = append(errs, fmt.Errorf("DEFAULT_TONE %q is not one of %s", c.DefaultTone, strings.Join(tone.Known, ", ")))
	}
	if c.SummaryRateLimit < 0 {
		errs = append(errs, fmt.Errorf("SUMMARY_RATE_LIMIT must not be negative, got %d", c.SummaryRateLimit))
	}
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("LLM_MAX_TOKENS must not be negative, got %d", c.LLM.MaxTokens))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("LLM_TIMEOUT must be positive, got %s", c.LLM.Timeout))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// ValidateMatrix checks the Matrix credentials required by the serve
// command.
func (c Config) ValidateMatrix() error {
	var errs []error
	if c.Matrix.Homeserver == "" {
		errs = append(errs, errors.New("MATRIX_HOMESERVER is required"))
	}
	if c.Matrix.UserID == "" {
		errs = append(errs, errors.New("MATRIX_USER_ID is required"))
	}
	if c.Matrix.AccessToken == "" {
		errs = append(errs, errors.New("MATRIX_ACCESS_TOKEN is required"))
	}
	return errors.Join(errs...)
}

// Secrets returns the credential values that must never appear in logs.
func (c Config) Secrets() []string {
	return []string{c.Matrix.AccessToken, c.LLM.APIKey}
}

// LogAttrs summarises the configuration for the startup log with
// credentials masked.
func (c Config) LogAttrs() []any {
	return []any{
		slog.String("homeserver", c.Matrix.Homeserver),
		slog.String("user_id", c.Matrix.UserID),
		slog.String("access_token", redact.Mask(c.Matrix.AccessToken)),
		slog.Int("rooms", len(c.Matrix.Rooms)),
		slog.String("database", c.DatabasePath),
		slog.Int("window_size", c.Window.MaxMessages),
		slog.Duration("retention", c.Window.Retention),
		slog.String("default_tone", c.DefaultTone),
		slog.String("llm_base_url", c.LLM.BaseURL),
		slog.String("llm_model", c.LLM.Model),
		slog.String("llm_api_key", redact.Mask(c.LLM.APIKey)),
		slog.Int("summary_rate_limit", c.SummaryRateLimit),
	}
}
