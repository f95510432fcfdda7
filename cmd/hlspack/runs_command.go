package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hlspack/internal/catalog"
	"hlspack/internal/config"
	"hlspack/internal/services"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		source string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent packaging runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := catalog.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := loadRunRecords(cmd.Context(), store, source, limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No packaging runs recorded")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
				Headers:    []string{"When", "Title", "Status", "Rungs", "Thumbs", "Elapsed", "Location"},
				Rows:       buildRunRows(records),
				RightAlign: []int{3, 5},
			}))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().StringVarP(&source, "source", "s", "", "Only list runs for this source file")
	return cmd
}

func loadRunRecords(ctx context.Context, store *catalog.Store, source string, limit int) ([]catalog.Record, error) {
	if source == "" {
		return store.Recent(ctx, limit)
	}
	expanded, err := config.ExpandPath(source)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "cli", "resolve source", "", err)
	}
	records, err := store.BySource(ctx, expanded)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func buildRunRows(records []catalog.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		location := rec.UploadLocation
		if location == "" {
			location = rec.OutputDir
		}
		status := string(rec.Status)
		if rec.Status == catalog.StatusFailed && rec.ErrorMessage != "" {
			status = fmt.Sprintf("failed: %s", truncate(rec.ErrorMessage, 40))
		}
		rows = append(rows, []string{
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			rec.Title,
			status,
			fmt.Sprintf("%d/%d", rec.RungsPackaged, rec.RungsExpected),
			rec.ThumbnailStatus,
			formatElapsed(rec.ElapsedSeconds),
			location,
		})
	}
	return rows
}

func formatElapsed(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return (time.Duration(seconds * float64(time.Second))).Round(time.Second).String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
