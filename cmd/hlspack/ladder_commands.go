package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"hlspack/internal/config"
	"hlspack/internal/ladder"
	"hlspack/internal/services"
)

func newLadderCommand(ctx *commandContext) *cobra.Command {
	ladderCmd := &cobra.Command{
		Use:   "ladder",
		Short: "Inspect the bitrate ladder",
		// Config is loaded lazily so an explicit path argument works even
		// with a broken config file.
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}

	ladderCmd.AddCommand(newLadderShowCommand(ctx))
	ladderCmd.AddCommand(newLadderCheckCommand(ctx))

	return ladderCmd
}

func newLadderShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show [path]",
		Short: "Render the active ladder as a table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := resolveLadder(ctx, args)
			if err != nil {
				return err
			}

			rungs, invalid := parseEntries(l)
			if len(rungs) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ladderSourceLabel(l))
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
					Headers:    []string{"Rung", "Resolution", "Video", "Maxrate", "Bufsize", "Audio", "Bandwidth", "Avg Bandwidth"},
					Rows:       buildLadderRows(rungs),
					RightAlign: []int{0, 6, 7},
				}))
			}
			for _, problem := range invalid {
				fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine(
					fmt.Sprintf("entry %d", problem.index), statusWarn, problem.detail,
					shouldColorize(cmd.OutOrStdout())))
			}
			return nil
		},
	}
}

func newLadderCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Validate every ladder entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := resolveLadder(ctx, args)
			if err != nil {
				return err
			}

			colorize := shouldColorize(cmd.OutOrStdout())
			rungs, invalid := parseEntries(l)
			for _, rung := range rungs {
				fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine(
					fmt.Sprintf("entry %d", rung.Index), statusOK, rung.Resolution()+" "+rung.VideoBitrate, colorize))
			}
			for _, problem := range invalid {
				fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine(
					fmt.Sprintf("entry %d", problem.index), statusError, problem.detail, colorize))
			}
			if len(invalid) > 0 {
				return services.Wrap(services.ErrValidation, "ladder", "check",
					fmt.Sprintf("%d of %d entries invalid", len(invalid), len(l.Entries)), nil)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d entries ok\n", len(rungs))
			return nil
		},
		Args: cobra.MaximumNArgs(1),
	}
}

// resolveLadder picks the ladder to inspect: the positional path argument,
// then the configured file, then the built-in ladder.
func resolveLadder(ctx *commandContext, args []string) (ladder.Ladder, error) {
	if len(args) > 0 {
		expanded, err := config.ExpandPath(args[0])
		if err != nil {
			return ladder.Ladder{}, services.Wrap(services.ErrValidation, "ladder", "resolve", "", err)
		}
		return ladder.Load(expanded)
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return ladder.Ladder{}, err
	}
	if cfg.Ladder.Path != "" {
		return ladder.Load(cfg.Ladder.Path)
	}
	return ladder.Default(), nil
}

type invalidEntry struct {
	index  int
	detail string
}

// parseEntries splits a ladder into parseable rungs and the problems found
// in the rest.
func parseEntries(l ladder.Ladder) ([]ladder.Rung, []invalidEntry) {
	var rungs []ladder.Rung
	var invalid []invalidEntry
	for index, entry := range l.Entries {
		rung, err := ladder.Parse(index, entry)
		if err != nil {
			invalid = append(invalid, invalidEntry{index: index, detail: err.Error()})
			continue
		}
		rungs = append(rungs, rung)
	}
	return rungs, invalid
}

func buildLadderRows(rungs []ladder.Rung) [][]string {
	rows := make([][]string, 0, len(rungs))
	for _, rung := range rungs {
		rows = append(rows, []string{
			strconv.Itoa(rung.Index),
			rung.Resolution(),
			rung.VideoBitrate,
			rung.MaxRate,
			rung.BufferSize,
			fmt.Sprintf("%dk", rung.AudioBitrateKbps),
			strconv.Itoa(rung.PeakBandwidth()),
			strconv.Itoa(rung.AverageBandwidth()),
		})
	}
	return rows
}

func ladderSourceLabel(l ladder.Ladder) string {
	if strings.TrimSpace(l.Path) == "" {
		return "Built-in ladder"
	}
	return "Ladder from " + l.Path
}
