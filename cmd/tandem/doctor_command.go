package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tandem/internal/config"
	"tandem/internal/preflight"
	"tandem/internal/services"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, directories and the transcription endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			runCtx, _, err := ctx.runContext(cmd, "doctor")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			statuses := preflight.CheckSystemDeps(runCtx, cfg)
			depRows := make([][]string, 0, len(statuses))
			missing := 0
			for _, status := range statuses {
				state := statusLabel(out, status.Available, "MISSING")
				if !status.Available && status.Optional {
					state = "optional"
				}
				if !status.Available && !status.Optional {
					missing++
				}
				detail := status.Command
				switch {
				case !status.Available:
					detail = status.Detail
				case status.Version != "":
					detail = status.Version
				}
				depRows = append(depRows, []string{status.Name, state, detail})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Dependency", "Status", "Detail"},
				depRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			results := preflight.RunAll(runCtx, cfg)
			results = append(results, preflight.CheckCache(runCtx, cfg.CachePath()))
			if cfg.Transcription.Provider != config.ProviderHTTP || strings.TrimSpace(cfg.Transcription.APIKey) == "" {
				results = append(results, preflight.CheckTranscriptionFromConfig(runCtx, cfg))
			}
			checkRows := make([][]string, 0, len(results))
			for _, result := range results {
				checkRows = append(checkRows, []string{result.Name, statusLabel(out, result.Passed, "FAIL"), result.Detail})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Check", "Status", "Detail"},
				checkRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			failed := preflight.Failed(results)
			if missing == 0 && len(failed) == 0 {
				fmt.Fprintln(out, "All checks passed")
				return nil
			}
			names := make([]string, 0, len(failed)+1)
			if missing > 0 {
				names = append(names, fmt.Sprintf("%d required dependencies", missing))
			}
			for _, f := range failed {
				names = append(names, f.Name)
			}
			return services.Wrap(services.ErrConfiguration, "doctor", "preflight", "failed: "+strings.Join(names, ", "), nil)
		},
	}
}
