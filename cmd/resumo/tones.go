package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Resumo/internal/resumo/app"
	"github.com/bdobrica/Resumo/internal/resumo/tone"
)

func newTonesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tones",
		Short: "Inspect and validate tones",
	}
	cmd.AddCommand(newTonesListCmd())
	cmd.AddCommand(newTonesValidateCmd())
	cmd.AddCommand(newTonesSchemaCmd())
	return cmd
}

func newTonesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured tones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			reg, err := app.BuildTones(cfg)
			if err != nil {
				return err
			}
			current := reg.Current().Name()
			for _, name := range reg.Names() {
				t, _ := reg.Get(name)
				marker := " "
				if name == current {
					marker = "*"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%s\n", marker, name, t.Confirmation())
			}
			return nil
		},
	}
}

func newTonesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a YAML tone pack without connecting anywhere",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pack, err := tone.LoadPackFile(args[0])
			if err != nil {
				return err
			}
			tones, err := tone.Build(pack, nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ok: %s customises %d of %d tones\n", args[0], len(pack.Tones), len(tones))
			return nil
		},
	}
}

func newTonesSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of tone packs",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := tone.PackSchema()
			if err != nil {
				return err
			}
			_, _ = cmd.OutOrStdout().Write(append(raw, '\n'))
			return nil
		},
	}
}
