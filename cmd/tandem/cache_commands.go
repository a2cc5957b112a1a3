package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tandem/internal/services"
	"tandem/internal/subtitle"
	"tandem/internal/transcription"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the transcription cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func withCache(cmd *cobra.Command, ctx *commandContext, stage string, fn func(*transcription.Cache) error) error {
	cfg := ctx.configValue()
	runCtx, logger, err := ctx.runContext(cmd, stage)
	if err != nil {
		return err
	}
	cache, err := transcription.OpenCache(runCtx, cfg.CachePath(), logger)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "cache", "open", cfg.CachePath(), err)
	}
	defer cache.Close()
	cmd.SetContext(runCtx)
	return fn(cache)
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cached transcripts per engine version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, ctx, "cache", func(cache *transcription.Cache) error {
				stats, err := cache.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Cache: %s\n", cache.Path())
				if len(stats) == 0 {
					fmt.Fprintln(out, "Cache is empty")
					return nil
				}
				rows := make([][]string, 0, len(stats))
				for _, s := range stats {
					rows = append(rows, []string{
						s.EngineVersion,
						strconv.FormatInt(s.Entries, 10),
						s.Oldest.Format("2006-01-02 15:04"),
						s.Newest.Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Engine Version", "Entries", "Oldest", "Newest"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print stats as JSON")
	return cmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var engineVersion string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the newest cached transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			version := strings.TrimSpace(engineVersion)
			if version == "" {
				service, err := newService(ctx.configValue())
				if err != nil {
					return err
				}
				version = service.EngineVersion()
			}
			return withCache(cmd, ctx, "cache", func(cache *transcription.Cache) error {
				entries, err := cache.List(cmd.Context(), version, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintf(out, "No cached transcripts for %s\n", version)
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					hash := e.Hash
					if len(hash) > 12 {
						hash = hash[:12]
					}
					rows = append(rows, []string{
						hash,
						subtitle.FormatTimestamp(e.Start),
						subtitle.FormatTimestamp(e.End),
						e.Language,
						e.Text,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Hash", "Start", "End", "Lang", "Text"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&engineVersion, "engine-version", "", "Engine version to list (default: the configured one)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	return cmd
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	var keep string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete transcripts produced by other engine versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			version := strings.TrimSpace(keep)
			if version == "" {
				service, err := newService(ctx.configValue())
				if err != nil {
					return err
				}
				version = service.EngineVersion()
			}
			return withCache(cmd, ctx, "cache", func(cache *transcription.Cache) error {
				removed, err := cache.Prune(cmd.Context(), version)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d transcripts (kept %s)\n", removed, version)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&keep, "keep", "", "Engine version to keep (default: the configured one)")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the transcription cache database",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ctx.configValue().CachePath()
			removed := 0
			for _, p := range []string{path, path + "-wal", path + "-shm", path + ".lock"} {
				err := os.Remove(p)
				switch {
				case err == nil:
					removed++
				case errors.Is(err, os.ErrNotExist):
				default:
					return fmt.Errorf("remove %s: %w", p, err)
				}
			}
			out := cmd.OutOrStdout()
			if removed == 0 {
				fmt.Fprintf(out, "No cache at %s\n", path)
				return nil
			}
			fmt.Fprintf(out, "Cleared cache at %s\n", path)
			return nil
		},
	}
}
