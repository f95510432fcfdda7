package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"hlspack/internal/catalog"
	"hlspack/internal/config"
	"hlspack/internal/deps"
	"hlspack/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, dependency, and catalog health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			printConfigSection(out, ctx, cfg, colorize)
			printDependencySection(cmd.Context(), out, cfg, colorize)
			printDirectorySection(out, cfg, colorize)
			printCatalogSection(cmd.Context(), out, cfg, colorize)
			return nil
		},
	}
}

func printConfigSection(out io.Writer, ctx *commandContext, cfg *config.Config, colorize bool) {
	fmt.Fprintln(out, renderSectionHeader("Configuration", colorize))

	configPath, exists := ctx.configInfo()
	configDetail := configPath
	if !exists {
		configDetail += " (not found, using defaults)"
	}
	fmt.Fprintln(out, renderStatusLine("Config file", statusInfo, configDetail, colorize))
	fmt.Fprintln(out, renderStatusLine("Output directory", statusInfo, cfg.Paths.OutputDir, colorize))
	fmt.Fprintln(out, renderStatusLine("Segment length", statusInfo, fmt.Sprintf("%ds", cfg.Encoder.SegmentSeconds), colorize))
	fmt.Fprintln(out, renderStatusLine("Concurrency", statusInfo, fmt.Sprintf("%d", cfg.Encoder.Concurrency), colorize))
	fmt.Fprintln(out, renderStatusLine("Ladder", statusInfo, ladderConfigDetail(cfg), colorize))
	fmt.Fprintln(out, renderStatusLine("Thumbnails", statusInfo, thumbnailConfigDetail(cfg), colorize))
	fmt.Fprintln(out, renderStatusLine("Upload", statusInfo, uploadConfigDetail(cfg), colorize))
	fmt.Fprintln(out)
}

func printDependencySection(ctx context.Context, out io.Writer, cfg *config.Config, colorize bool) {
	fmt.Fprintln(out, renderSectionHeader("Dependencies", colorize))
	for _, status := range preflight.CheckSystemDeps(cfg) {
		detail := status.Detail
		if status.Available {
			detail = fmt.Sprintf("%s, version %s", status.Path, deps.Version(ctx, status.Command))
		}
		fmt.Fprintln(out, renderStatusLine(status.Name, passFailKind(status.Available), detail, colorize))
	}
	fmt.Fprintln(out)
}

func printDirectorySection(out io.Writer, cfg *config.Config, colorize bool) {
	fmt.Fprintln(out, renderSectionHeader("Directories", colorize))
	checks := []preflight.Result{
		preflight.CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		preflight.CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Ladder.Path != "" {
		checks = append(checks, preflight.CheckLadderFile(cfg.Ladder.Path))
	}
	for _, check := range checks {
		fmt.Fprintln(out, renderStatusLine(check.Name, passFailKind(check.Passed), check.Detail, colorize))
	}
	fmt.Fprintln(out)
}

func printCatalogSection(ctx context.Context, out io.Writer, cfg *config.Config, colorize bool) {
	fmt.Fprintln(out, renderSectionHeader("Catalog", colorize))

	store, err := catalog.Open(cfg)
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Catalog", statusWarn, err.Error(), colorize))
		return
	}
	defer store.Close()
	fmt.Fprintln(out, renderStatusLine("Database", statusInfo, store.Path(), colorize))

	summary, err := store.Summarize(ctx)
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Catalog", statusWarn, err.Error(), colorize))
		return
	}
	kind := statusOK
	if summary.Failed > 0 {
		kind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Runs", kind,
		fmt.Sprintf("%d total, %d completed, %d failed", summary.Total, summary.Completed, summary.Failed), colorize))
}

func ladderConfigDetail(cfg *config.Config) string {
	if cfg.Ladder.Path == "" {
		return "built-in"
	}
	return cfg.Ladder.Path
}

func thumbnailConfigDetail(cfg *config.Config) string {
	if !cfg.Thumbnails.Enabled {
		return "disabled"
	}
	detail := fmt.Sprintf("%s every %ds, width %d",
		cfg.Thumbnails.Mode, cfg.Thumbnails.IntervalSeconds, cfg.Thumbnails.Width)
	if cfg.Thumbnails.Mode == "sprites" {
		detail += fmt.Sprintf(", %dx%d sheets", cfg.Thumbnails.Columns, cfg.Thumbnails.Rows)
	}
	return detail
}

func uploadConfigDetail(cfg *config.Config) string {
	if !cfg.Upload.Enabled {
		return "disabled"
	}
	detail := "gs://" + cfg.Upload.Bucket
	if cfg.Upload.Prefix != "" {
		detail += "/" + cfg.Upload.Prefix
	}
	if cfg.CDN.Enabled {
		detail += fmt.Sprintf(", cdn invalidation via %s", cfg.CDN.URLMap)
	}
	return detail
}
