package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Resumo/common/version"
	"github.com/bdobrica/Resumo/internal/resumo/app"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to Matrix and serve summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if v, _ := cmd.Flags().GetString("http-addr"); v != "" {
				cfg.HTTPAddr = v
			}
			if err := cfg.ValidateMatrix(); err != nil {
				return err
			}

			slog.Info("starting Resumo", "version", version.Info())
			slog.Info("configuration", cfg.LogAttrs()...)

			resumo, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer resumo.Stop()

			return resumo.Run(cmd.Context())
		},
	}
	cmd.Flags().String("tone", "", "Initial tone (overrides DEFAULT_TONE).")
	cmd.Flags().String("http-addr", "", "Health server address (overrides HTTP_ADDR).")
	return cmd
}
