package config_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bdobrica/Resumo/common/environment"
	"github.com/bdobrica/Resumo/internal/resumo/config"
	"github.com/bdobrica/Resumo/internal/resumo/tone"
)

func load(t *testing.T, env map[string]string) (config.Config, error) {
	t.Helper()
	return config.Load(environment.NewWithLookup(environment.FromMap(env)))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Window.MaxMessages != 30 {
		t.Errorf("window size: got %d, want 30", cfg.Window.MaxMessages)
	}
	if cfg.Window.MaxMessageLength != 3000 {
		t.Errorf("max message length: got %d, want 3000", cfg.Window.MaxMessageLength)
	}
	if cfg.Window.Retention != 0 {
		t.Errorf("retention: got %v, want disabled", cfg.Window.Retention)
	}
	if cfg.DefaultTone != "cynic" {
		t.Errorf("default tone: got %q, want cynic", cfg.DefaultTone)
	}
	if cfg.DatabasePath != "./resumo.db" {
		t.Errorf("database path: got %q", cfg.DatabasePath)
	}
	if cfg.LLM.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("base url: got %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Timeout != 60*time.Second {
		t.Errorf("timeout: got %v", cfg.LLM.Timeout)
	}
	if !cfg.Matrix.AutoJoin {
		t.Error("auto join should default to true")
	}
	if cfg.SummaryRateLimit != 3 {
		t.Errorf("rate limit: got %d", cfg.SummaryRateLimit)
	}
	if err := cfg.ValidateMatrix(); err == nil {
		t.Error("expected missing Matrix credentials to fail")
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"MATRIX_HOMESERVER":   "https://matrix.example.org",
		"MATRIX_USER_ID":      "@resumo:example.org",
		"MATRIX_ACCESS_TOKEN": "syt_token_value",
		"MATRIX_ROOMS":        "!a:example.org, !b:example.org",
		"MATRIX_AUTO_JOIN":    "false",
		"WINDOW_SIZE":         "50",
		"RETENTION":           "2h",
		"DEFAULT_TONE":        "Mystic",
		"TONE_PROMPT_STREET":  "Oye:\n{{.Transcript}}",
		"RANDOM_SEED":         "42",
		"LLM_MAX_TOKENS":      "800",
		"LOG_FORMAT":          "JSON",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := cfg.ValidateMatrix(); err != nil {
		t.Fatalf("ValidateMatrix: %v", err)
	}

	if len(cfg.Matrix.Rooms) != 2 || cfg.Matrix.Rooms[1] != "!b:example.org" {
		t.Errorf("rooms: got %v", cfg.Matrix.Rooms)
	}
	if cfg.Matrix.AutoJoin {
		t.Error("auto join should be off")
	}
	if cfg.Window.MaxMessages != 50 || cfg.Window.Retention != 2*time.Hour {
		t.Errorf("window: got %+v", cfg.Window)
	}
	if cfg.DefaultTone != "mystic" {
		t.Errorf("default tone: got %q", cfg.DefaultTone)
	}
	if got := cfg.TonePrompts["street"]; got != "Oye:\n{{.Transcript}}" {
		t.Errorf("street prompt: got %q", got)
	}
	if cfg.RandomSeed != 42 || cfg.LLM.MaxTokens != 800 || cfg.LogFormat != "json" {
		t.Errorf("unexpected values: seed=%d tokens=%d format=%q", cfg.RandomSeed, cfg.LLM.MaxTokens, cfg.LogFormat)
	}
}

func TestLoad_MalformedValues(t *testing.T) {
	_, err := load(t, map[string]string{
		"WINDOW_SIZE": "thirty",
		"RETENTION":   "1 hour",
	})
	if err == nil {
		t.Fatal("expected parse errors")
	}
	for _, name := range []string{"WINDOW_SIZE", "RETENTION"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should mention %s: %v", name, err)
		}
	}
}

func TestLoad_ToneAliases(t *testing.T) {
	for _, name := range []string{"cinico", "Cínico", " místico ", "malandro"} {
		t.Run(name, func(t *testing.T) {
			cfg, err := load(t, map[string]string{"DEFAULT_TONE": name})
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tone.IsKnown(cfg.DefaultTone) || cfg.DefaultTone != tone.Canonical(name) {
				t.Errorf("default tone: got %q", cfg.DefaultTone)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		env  map[string]string
		want string
	}{
		{map[string]string{"WINDOW_SIZE": "0"}, "WINDOW_SIZE"},
		{map[string]string{"MAX_MESSAGE_LENGTH": "-5"}, "MAX_MESSAGE_LENGTH"},
		{map[string]string{"RETENTION": "-1m"}, "RETENTION"},
		{map[string]string{"MAX_PROMPT_LENGTH": "-1"}, "MAX_PROMPT_LENGTH"},
		{map[string]string{"DEFAULT_TONE": "pirate"}, "DEFAULT_TONE"},
		{map[string]string{"SUMMARY_RATE_LIMIT": "-2"}, "SUMMARY_RATE_LIMIT"},
		{map[string]string{"LLM_TIMEOUT": "0s"}, "LLM_TIMEOUT"},
		{map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			cfg, err := load(t, tt.env)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error mentioning %s", err, tt.want)
			}
		})
	}
}

func TestLogAttrs_MasksSecrets(t *testing.T) {
	cfg, _ := load(t, map[string]string{
		"MATRIX_ACCESS_TOKEN": "syt_very_secret_token_1234",
		"LLM_API_KEY":         "sk-or-v1-abcdefghijklmnop",
	})
	out := fmt.Sprint(cfg.LogAttrs()...)
	for _, secret := range cfg.Secrets() {
		if strings.Contains(out, secret) {
			t.Errorf("secret %q leaked in %s", secret, out)
		}
	}
	if !strings.Contains(out, "***1234") {
		t.Errorf("expected masked token suffix in %s", out)
	}
}
