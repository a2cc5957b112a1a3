package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"tandem/internal/align"
	"tandem/internal/audio"
	"tandem/internal/fileutil"
	"tandem/internal/logging"
	"tandem/internal/services"
	"tandem/internal/subtitle"
	"tandem/internal/transcription"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var language string
	var stream int

	cmd := &cobra.Command{
		Use:   "transcribe <media>",
		Short: "Transcribe the speech in a media file into SRT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			runCtx, logger, err := ctx.runContext(cmd, "transcribe")
			if err != nil {
				return err
			}

			run, err := openTranscriptionRun(runCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer run.Close()

			result, runErr := run.transcribeMedia(runCtx, args[0], stream, language)
			if result == nil {
				return runErr
			}
			doc := result.Document(args[0])
			if err := writeOutput(cmd.OutOrStdout(), outPath, subtitle.EncodeSRT(doc)); err != nil {
				return err
			}
			printClientStats(cmd.ErrOrStderr(), run.client.Stats(), len(result.Intervals))
			if runErr != nil {
				return runErr
			}
			return failuresError(result)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the SRT to this path instead of stdout")
	cmd.Flags().StringVar(&language, "language", "", "Language hint passed to the transcription service")
	cmd.Flags().IntVar(&stream, "stream", -1, "Absolute audio stream index (default: ffmpeg's choice)")
	return cmd
}

func newBilingualCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var language string
	var encoding string
	var stream int

	cmd := &cobra.Command{
		Use:   "bilingual <subtitle> <media>",
		Short: "Transcribe media and merge it with a subtitle file into a bilingual SRT",
		Long: "Transcribe the speech in <media>, align the transcript against <subtitle>\n" +
			"and write one SRT where matched cues carry both texts.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			runCtx, logger, err := ctx.runContext(cmd, "bilingual")
			if err != nil {
				return err
			}

			left, err := loadDocument(args[0], encoding, logger)
			if err != nil {
				return err
			}

			run, err := openTranscriptionRun(runCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer run.Close()

			result, err := run.transcribeMedia(runCtx, args[1], stream, language)
			if err != nil {
				return err
			}
			if failures := len(result.Failures); failures > 0 {
				logging.WarnWithContext(logging.WithContext(runCtx, logger), "some segments were not transcribed", "segments_failed",
					logging.Int("failed", failures),
					logging.Int("intervals", len(result.Intervals)),
					logging.Error(result.Err()),
					logging.String(logging.FieldErrorHint, "rerun later; transcribed segments are served from the cache"),
					logging.String(logging.FieldImpact, "untranscribed speech shows up as deletions"),
				)
			}

			pairs, err := align.Align(left.Cues(), result.Document(args[1]).Cues(), align.ConfigFrom(cfg.Alignment))
			if err != nil {
				return services.Wrap(services.ErrValidation, "align", "pair cues", "", err)
			}
			doc := subtitle.NewDocument(subtitle.FormatSRT, args[0], align.Bilingual(pairs))
			if err := writeOutput(cmd.OutOrStdout(), outPath, subtitle.EncodeSRT(doc)); err != nil {
				return err
			}

			summary := align.Summarize(pairs)
			fmt.Fprintf(cmd.ErrOrStderr(), "%d matched, %d deletions, %d insertions (mean overlap %s, mean similarity %s)\n",
				summary.Matched, summary.Deletions, summary.Insertions,
				formatRatio(summary.MeanOverlap), formatRatio(summary.MeanSimilarity))
			printClientStats(cmd.ErrOrStderr(), run.client.Stats(), len(result.Intervals))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the SRT to this path instead of stdout")
	cmd.Flags().StringVar(&language, "language", "", "Language hint passed to the transcription service")
	cmd.Flags().StringVar(&encoding, "encoding", "", "Declared charset of the subtitle file")
	cmd.Flags().IntVar(&stream, "stream", -1, "Absolute audio stream index (default: ffmpeg's choice)")
	return cmd
}

func newSegmentCommand(ctx *commandContext) *cobra.Command {
	var stream int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "segment <media>",
		Short: "Print the speech intervals detected in a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			runCtx, logger, err := ctx.runContext(cmd, "segment")
			if err != nil {
				return err
			}

			segmenter, err := audio.NewSegmenter(cfg.Segmenter)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "segment", "build segmenter", "", err)
			}
			sampleRate := cfg.Segmenter.SampleRate
			stream = resolveStream(runCtx, cfg, logger, args[0], stream, cfg.Transcription.Language)
			pcm, err := audio.ExtractPCM(runCtx, cfg.FFmpegBinary(), args[0], stream, sampleRate)
			if err != nil {
				return services.Wrap(services.ErrExternalTool, "extract", "ffmpeg", args[0], err)
			}
			intervals, err := segmenter.Segment(pcm, sampleRate)
			if err != nil {
				return services.Wrap(services.ErrValidation, "segment", "classify frames", args[0], err)
			}

			if jsonOutput {
				return writeJSON(cmd, intervalsJSON(intervals))
			}
			out := cmd.OutOrStdout()
			if len(intervals) == 0 {
				fmt.Fprintln(out, "No speech detected")
				return nil
			}
			rows := make([][]string, 0, len(intervals))
			for _, iv := range intervals {
				rows = append(rows, []string{
					strconv.Itoa(iv.Index),
					subtitle.FormatTimestamp(iv.Start),
					subtitle.FormatTimestamp(iv.End),
					iv.Duration().String(),
					formatRatio(iv.Confidence),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Start", "End", "Duration", "Confidence"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
			))
			fmt.Fprintf(out, "%d intervals in %s of audio\n", len(intervals), audio.PCMDuration(pcm, sampleRate))
			return nil
		},
	}

	cmd.Flags().IntVar(&stream, "stream", -1, "Absolute audio stream index (default: ffmpeg's choice)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print intervals as JSON")
	return cmd
}

type intervalJSON struct {
	Index      int     `json:"index"`
	StartMs    int64   `json:"start_ms"`
	EndMs      int64   `json:"end_ms"`
	Confidence float64 `json:"confidence"`
}

func intervalsJSON(intervals []audio.SpeechInterval) []intervalJSON {
	out := make([]intervalJSON, 0, len(intervals))
	for _, iv := range intervals {
		out = append(out, intervalJSON{
			Index:      iv.Index,
			StartMs:    iv.Start.Milliseconds(),
			EndMs:      iv.End.Milliseconds(),
			Confidence: iv.Confidence,
		})
	}
	return out
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrValidation, "output", "write file", path, err)
	}
	return nil
}

func printClientStats(w io.Writer, stats transcription.ClientStats, intervals int) {
	fmt.Fprintf(w, "%d intervals: %d cache hits, %d cache misses, %d retries, %d shared, %d failures\n",
		intervals, stats.CacheHits, stats.CacheMisses, stats.Retries, stats.Shared, stats.Failures)
}
