package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tandem/internal/language"
	"tandem/internal/media"
	"tandem/internal/services"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var hint string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "probe <media>",
		Short: "List audio streams and the one chosen for transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			runCtx, _, err := ctx.runContext(cmd, "probe")
			if err != nil {
				return err
			}
			if hint == "" {
				hint = cfg.Transcription.Language
			}

			result, err := media.Inspect(runCtx, cfg.FFprobeBinary(), args[0])
			if err != nil {
				return services.Wrap(services.ErrExternalTool, "probe", "ffprobe", args[0], err)
			}
			selection := media.SelectSpeechStream(result.Streams, hint)
			audioStreams := result.AudioStreams()

			if jsonOutput {
				return writeJSON(cmd, probeReport{
					Source:        args[0],
					Selected:      selection.Index,
					LanguageMatch: selection.LanguageMatched,
					Streams:       audioStreams,
				})
			}

			out := cmd.OutOrStdout()
			if len(audioStreams) == 0 {
				fmt.Fprintln(out, "No audio streams")
				return nil
			}
			rows := make([][]string, 0, len(audioStreams))
			for _, stream := range audioStreams {
				marker := ""
				if stream.Index == selection.Index {
					marker = "*"
				}
				rows = append(rows, []string{
					marker,
					strconv.Itoa(stream.Index),
					language.DisplayName(stream.Language()),
					stream.Summary(),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"", "Stream", "Language", "Details"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&hint, "language", "", "Prefer streams tagged with this language")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print streams as JSON")
	return cmd
}

type probeReport struct {
	Source        string         `json:"source"`
	Selected      int            `json:"selected"`
	LanguageMatch bool           `json:"language_match"`
	Streams       []media.Stream `json:"streams"`
}
