package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Resumo/internal/resumo/app"
)

const renderChat = "render"

type transcriptLine struct {
	Author string
	Text   string
}

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the prompt for a transcript read from stdin",
		Long: `Render reads "author: text" lines from stdin, records them as one
group chat and prints the prompt the current tone would send to the
generation service. Nothing is sent anywhere.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if seed, _ := cmd.Flags().GetUint64("seed"); seed != 0 {
				cfg.RandomSeed = seed
			}
			service, err := app.NewService(cfg)
			if err != nil {
				return err
			}

			lines, err := parseTranscript(cmd.InOrStdin())
			if err != nil {
				return err
			}
			for _, l := range lines {
				service.OnMessage(renderChat, l.Author, l.Text, true)
			}

			out := cmd.OutOrStdout()
			if showMetrics, _ := cmd.Flags().GetBool("metrics"); showMetrics {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(service.Metrics(renderChat))
			}

			req, err := service.BuildSummaryRequest(renderChat)
			if err != nil {
				return err
			}
			if req.Empty {
				_, _ = fmt.Fprintln(out, req.NoActivity)
				return nil
			}
			_, _ = fmt.Fprintf(out, "%s\n\n%s\n", req.Intro, req.Prompt)
			return nil
		},
	}
	cmd.Flags().String("tone", "", "Tone to render with (overrides DEFAULT_TONE).")
	cmd.Flags().Uint64("seed", 0, "Random seed (overrides RANDOM_SEED).")
	cmd.Flags().Bool("metrics", false, "Print the analytics as JSON instead of the prompt.")
	return cmd
}

// parseTranscript reads "author: text" lines. Blank lines are skipped and a
// line without a separator continues the previous message.
func parseTranscript(r io.Reader) ([]transcriptLine, error) {
	var lines []transcriptLine
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		author, text, ok := strings.Cut(raw, ": ")
		if !ok || strings.TrimSpace(author) == "" {
			if len(lines) == 0 {
				return nil, fmt.Errorf("transcript line %q has no author", raw)
			}
			lines[len(lines)-1].Text += "\n" + raw
			continue
		}
		lines = append(lines, transcriptLine{Author: strings.TrimSpace(author), Text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Join(errors.New("failed to read transcript"), err)
	}
	return lines, nil
}
