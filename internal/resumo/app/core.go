package app

import (
	"fmt"

	"github.com/bdobrica/Resumo/internal/resumo/analytics"
	"github.com/bdobrica/Resumo/internal/resumo/chance"
	"github.com/bdobrica/Resumo/internal/resumo/config"
	"github.com/bdobrica/Resumo/internal/resumo/digest"
	"github.com/bdobrica/Resumo/internal/resumo/tone"
	"github.com/bdobrica/Resumo/internal/resumo/window"
)

// BuildTones loads the optional tone pack, applies the template overrides
// and selects the default tone. Any configuration problem wraps
// tone.ErrConfiguration.
func BuildTones(cfg config.Config) (*tone.Registry, error) {
	var pack tone.PackFile
	if cfg.TonesFile != "" {
		var err error
		if pack, err = tone.LoadPackFile(cfg.TonesFile); err != nil {
			return nil, err
		}
	}
	tones, err := tone.Build(pack, cfg.TonePrompts)
	if err != nil {
		return nil, err
	}
	return tone.NewRegistry(cfg.DefaultTone, tones...)
}

// NewService builds the digest service from configuration: the message
// buffer, the analyzer, the tone registry and the shared random source.
func NewService(cfg config.Config) (*digest.Service, error) {
	tones, err := BuildTones(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build tones: %w", err)
	}

	var rng *chance.Locked
	if cfg.RandomSeed != 0 {
		rng = chance.New(cfg.RandomSeed)
	} else {
		rng = chance.NewFromTime()
	}

	return digest.New(
		window.New(cfg.Window),
		analytics.New(analytics.Config{}, rng),
		tones,
		rng,
		digest.Config{MaxPromptLength: cfg.MaxPromptLength},
	), nil
}
