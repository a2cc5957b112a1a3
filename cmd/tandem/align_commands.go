package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tandem/internal/align"
	"tandem/internal/fileutil"
	"tandem/internal/logging"
	"tandem/internal/services"
	"tandem/internal/subtitle"
)

type alignOptions struct {
	window        float64
	minOverlap    float64
	jsonOutput    bool
	srtOut        string
	leftEncoding  string
	rightEncoding string
}

func newAlignCommand(ctx *commandContext) *cobra.Command {
	var opts alignOptions

	cmd := &cobra.Command{
		Use:   "align <left> <right>",
		Short: "Align the cues of two subtitle files",
		Long: "Parse two subtitle files (SRT, WebVTT or ASS) and pair their cues by time overlap.\n" +
			"Unpaired cues are reported as deletions (left only) or insertions (right only).",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			_, logger, err := ctx.runContext(cmd, "align")
			if err != nil {
				return err
			}

			left, err := loadDocument(args[0], opts.leftEncoding, logger)
			if err != nil {
				return err
			}
			right, err := loadDocument(args[1], opts.rightEncoding, logger)
			if err != nil {
				return err
			}

			alignCfg := align.ConfigFrom(cfg.Alignment)
			if cmd.Flags().Changed("window") {
				alignCfg.Window = time.Duration(opts.window * float64(time.Second))
			}
			if cmd.Flags().Changed("min-overlap") {
				alignCfg.MinOverlapRatio = opts.minOverlap
			}

			pairs, err := align.Align(left.Cues(), right.Cues(), alignCfg)
			if err != nil {
				return services.Wrap(services.ErrValidation, "align", "pair cues", "", err)
			}
			summary := align.Summarize(pairs)
			logger.Info("cues aligned",
				logging.String(logging.FieldEventType, "align_complete"),
				logging.Int("left_cues", left.Len()),
				logging.Int("right_cues", right.Len()),
				logging.Int("matched", summary.Matched),
				logging.Int("deletions", summary.Deletions),
				logging.Int("insertions", summary.Insertions),
				logging.Float64("mean_overlap", summary.MeanOverlap),
			)

			if opts.srtOut != "" {
				if err := writeBilingual(opts.srtOut, args[0], pairs); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(cmd, alignReport{
					Left:    args[0],
					Right:   args[1],
					Summary: toSummaryJSON(summary),
					Pairs:   pairsJSON(pairs),
				})
			}
			if shouldColorize(out) {
				fmt.Fprintln(out, renderPairsTable(pairs))
				fmt.Fprintf(out, "%d matched, %d deletions, %d insertions (mean overlap %s)\n",
					summary.Matched, summary.Deletions, summary.Insertions, formatRatio(summary.MeanOverlap))
				return nil
			}
			return writePairsTSV(out, pairs)
		},
	}

	cmd.Flags().Float64Var(&opts.window, "window", 0, "Candidate search window in seconds (default from config)")
	cmd.Flags().Float64Var(&opts.minOverlap, "min-overlap", 0, "Minimum overlap ratio for a pair (default from config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print pairs as JSON")
	cmd.Flags().StringVar(&opts.srtOut, "srt-out", "", "Also write a bilingual SRT to this path")
	cmd.Flags().StringVar(&opts.leftEncoding, "left-encoding", "", "Declared charset of the left file")
	cmd.Flags().StringVar(&opts.rightEncoding, "right-encoding", "", "Declared charset of the right file")
	return cmd
}

type alignReport struct {
	Left    string      `json:"left"`
	Right   string      `json:"right"`
	Summary summaryJSON `json:"summary"`
	Pairs   []pairJSON  `json:"pairs"`
}

type summaryJSON struct {
	Matched        int     `json:"matched"`
	Deletions      int     `json:"deletions"`
	Insertions     int     `json:"insertions"`
	MeanOverlap    float64 `json:"mean_overlap"`
	MeanSimilarity float64 `json:"mean_similarity"`
}

func toSummaryJSON(s align.Summary) summaryJSON {
	return summaryJSON{
		Matched:        s.Matched,
		Deletions:      s.Deletions,
		Insertions:     s.Insertions,
		MeanOverlap:    s.MeanOverlap,
		MeanSimilarity: s.MeanSimilarity,
	}
}

type cueJSON struct {
	ID      int    `json:"id"`
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
	Text    string `json:"text"`
}

type pairJSON struct {
	Kind         align.PairKind `json:"kind"`
	Left         *cueJSON       `json:"left,omitempty"`
	Right        *cueJSON       `json:"right,omitempty"`
	OverlapRatio float64        `json:"overlap_ratio"`
	Similarity   float64        `json:"similarity"`
}

func toCueJSON(cue *subtitle.Cue) *cueJSON {
	if cue == nil {
		return nil
	}
	return &cueJSON{
		ID:      cue.ID,
		StartMs: cue.Start.Milliseconds(),
		EndMs:   cue.End.Milliseconds(),
		Text:    cue.PlainText(),
	}
}

func pairsJSON(pairs []align.AlignedPair) []pairJSON {
	out := make([]pairJSON, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, pairJSON{
			Kind:         p.Kind(),
			Left:         toCueJSON(p.Left),
			Right:        toCueJSON(p.Right),
			OverlapRatio: p.OverlapRatio,
			Similarity:   p.Similarity,
		})
	}
	return out
}

func cueCells(cue *subtitle.Cue) (string, string) {
	if cue == nil {
		return "", ""
	}
	span := subtitle.FormatTimestamp(cue.Start) + " - " + subtitle.FormatTimestamp(cue.End)
	return span, cue.PlainText()
}

func renderPairsTable(pairs []align.AlignedPair) string {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		leftSpan, leftText := cueCells(p.Left)
		rightSpan, rightText := cueCells(p.Right)
		overlap := ""
		if p.Kind() == align.Matched {
			overlap = formatRatio(p.OverlapRatio)
		}
		rows = append(rows, []string{string(p.Kind()), leftSpan, leftText, rightSpan, rightText, overlap})
	}
	return renderTable(
		[]string{"Kind", "Left", "Left Text", "Right", "Right Text", "Overlap"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func writePairsTSV(w io.Writer, pairs []align.AlignedPair) error {
	for _, p := range pairs {
		fields := []string{string(p.Kind())}
		for _, cue := range []*subtitle.Cue{p.Left, p.Right} {
			if cue == nil {
				fields = append(fields, "", "", "")
				continue
			}
			fields = append(fields,
				subtitle.FormatTimestamp(cue.Start),
				subtitle.FormatTimestamp(cue.End),
				strings.ReplaceAll(cue.PlainText(), "\t", " "),
			)
		}
		fields = append(fields, formatRatio(p.OverlapRatio), formatRatio(p.Similarity))
		if _, err := fmt.Fprintln(w, strings.Join(fields, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func writeBilingual(path, source string, pairs []align.AlignedPair) error {
	doc := subtitle.NewDocument(subtitle.FormatSRT, source, align.Bilingual(pairs))
	if err := fileutil.WriteFileAtomic(path, subtitle.EncodeSRT(doc), 0o644); err != nil {
		return services.Wrap(services.ErrValidation, "align", "write bilingual srt", path, err)
	}
	return nil
}
