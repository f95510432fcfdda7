package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"hlspack/internal/config"
	"hlspack/internal/ingest"
	"hlspack/internal/logging"
	"hlspack/internal/pipeline"
	"hlspack/internal/services"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var (
		overrides  packOverrides
		ladderPath string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Package every video file in a directory",
		Long: `Batch scans the directory for video files and packages each one in
turn. A failed file is reported and skipped so the rest of the batch
still completes. With --watch the command keeps running and packages
new files once they stop growing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.runConfig()
			if err != nil {
				return err
			}
			if err := applyPackOverrides(&cfg, overrides); err != nil {
				return err
			}

			dir, err := resolveSourceDir(args[0])
			if err != nil {
				return err
			}
			resolvedLadder, err := resolveLadderOverride(ladderPath)
			if err != nil {
				return err
			}

			runCtx, stop := signalContext(cmd.Context())
			defer stop()

			env, err := newRunEnvironment(runCtx, &cfg)
			if err != nil {
				return err
			}
			defer env.Close()

			files, err := ingest.Scan(dir)
			if err != nil {
				return err
			}

			var packaged, failed int
			for _, file := range files {
				if runCtx.Err() != nil {
					return runCtx.Err()
				}
				if batchOne(runCtx, cmd, env, file, resolvedLadder) {
					packaged++
				} else {
					failed++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Packaged %d of %d files\n", packaged, packaged+failed)

			if watch {
				if err := watchDirectory(runCtx, cmd, env, dir, resolvedLadder); err != nil {
					return err
				}
				return nil
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, packaged+failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep running and package new files once they settle")
	cmd.Flags().IntVarP(&overrides.jobs, "jobs", "j", 0, "Maximum concurrent rung encodes (overrides encoder.concurrency)")
	cmd.Flags().StringVarP(&ladderPath, "ladder", "l", "", "Bitrate ladder file (overrides ladder.path)")
	cmd.Flags().BoolVar(&overrides.noThumbs, "no-thumbs", false, "Skip thumbnail generation")
	cmd.Flags().BoolVar(&overrides.upload, "upload", false, "Upload each package after encoding")

	return cmd
}

// batchOne packages a single file and reports the outcome on one line.
// Failures are contained so the caller can keep going.
func batchOne(ctx context.Context, cmd *cobra.Command, env *runEnvironment, file, ladderPath string) bool {
	result, err := env.pipeline.Run(ctx, pipeline.Request{
		SourcePath: file,
		LadderPath: ladderPath,
	})
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: failed: %v\n", filepath.Base(file), err)
		return false
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: packaged %d rungs in %s\n",
		filepath.Base(file), len(result.Included), result.Elapsed.Round(time.Second))
	return true
}

// watchDirectory packages files as they land in dir until the context is
// canceled. Cancellation is the normal way to stop watching, so it is not
// an error.
func watchDirectory(ctx context.Context, cmd *cobra.Command, env *runEnvironment, dir, ladderPath string) error {
	watcher, err := ingest.NewWatcher(dir, ingest.Options{}, env.logger)
	if err != nil {
		return err
	}
	defer watcher.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for new files\n", dir)
	env.logger.Info("watching directory", logging.String("dir", dir))

	err = watcher.Run(ctx, func(ctx context.Context, path string) {
		batchOne(ctx, cmd, env, path, ladderPath)
	})
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(cmd.OutOrStdout(), "Watch stopped")
		return nil
	}
	return err
}

func resolveSourceDir(path string) (string, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "cli", "resolve directory", "", err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "cli", "resolve directory",
				fmt.Sprintf("directory %s does not exist", expanded), nil)
		}
		return "", services.Wrap(services.ErrValidation, "cli", "resolve directory", "", err)
	}
	if !info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "cli", "resolve directory",
			fmt.Sprintf("%s is not a directory", expanded), nil)
	}
	return expanded, nil
}
