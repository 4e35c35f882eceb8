package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Resumo/common/environment"
	"github.com/bdobrica/Resumo/internal/resumo/config"
	"github.com/bdobrica/Resumo/internal/resumo/observability"
	"github.com/bdobrica/Resumo/internal/resumo/tone"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "resumo",
		Short:        "Group-chat digest bot for Matrix",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL).")
	cmd.PersistentFlags().String("log-format", "", "Log format: text or json (overrides LOG_FORMAT).")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newTonesCmd())
	cmd.AddCommand(newRenderCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// loadConfig reads the environment, applies the flags shared by every
// command, validates and installs the logger.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(environment.New())
	if err != nil {
		return cfg, fmt.Errorf("invalid environment: %w", err)
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if cmd.Flags().Lookup("tone") != nil {
		if v, _ := cmd.Flags().GetString("tone"); v != "" {
			cfg.DefaultTone = tone.Canonical(v)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	observability.Setup(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}
