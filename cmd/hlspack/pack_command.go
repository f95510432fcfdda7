package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"hlspack/internal/config"
	"hlspack/internal/pipeline"
	"hlspack/internal/services"
	"hlspack/internal/thumbs"
)

// packOverrides carries per-invocation flag values applied on top of the
// loaded configuration.
type packOverrides struct {
	outputDir string
	jobs      int
	thumbs    bool
	sprites   bool
	noThumbs  bool
	upload    bool
}

func newPackCommand(ctx *commandContext) *cobra.Command {
	var (
		overrides  packOverrides
		title      string
		ladderPath string
	)

	cmd := &cobra.Command{
		Use:   "pack <input>",
		Short: "Package one video file into an HLS adaptive-bitrate stream",
		Long: `Pack probes the input, encodes every rung of the bitrate ladder with
bounded concurrency, writes the master manifest, and generates the
scrubbing thumbnail timeline. With upload enabled the finished package
is pushed to Cloud Storage and the CDN cache is invalidated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.runConfig()
			if err != nil {
				return err
			}
			if err := applyPackOverrides(&cfg, overrides); err != nil {
				return err
			}

			source, err := resolveSourceFile(args[0])
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

			result, err := env.pipeline.Run(runCtx, pipeline.Request{
				SourcePath: source,
				Title:      title,
				LadderPath: resolvedLadder,
			})
			if err != nil {
				return err
			}

			printRunSummary(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&overrides.outputDir, "output", "o", "", "Directory to write packages into (overrides paths.output_dir)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Package title (defaults to a name derived from the input filename)")
	cmd.Flags().IntVarP(&overrides.jobs, "jobs", "j", 0, "Maximum concurrent rung encodes (overrides encoder.concurrency)")
	cmd.Flags().StringVarP(&ladderPath, "ladder", "l", "", "Bitrate ladder file (overrides ladder.path)")
	cmd.Flags().BoolVar(&overrides.thumbs, "thumbs", false, "Generate individual thumbnail frames")
	cmd.Flags().BoolVar(&overrides.sprites, "sprites", false, "Generate thumbnail sprite sheets")
	cmd.Flags().BoolVar(&overrides.noThumbs, "no-thumbs", false, "Skip thumbnail generation")
	cmd.Flags().BoolVar(&overrides.upload, "upload", false, "Upload the package after encoding")
	cmd.MarkFlagsMutuallyExclusive("thumbs", "sprites", "no-thumbs")

	return cmd
}

// applyPackOverrides folds flag values into the config copy and re-validates
// the result so flag mistakes surface as configuration errors.
func applyPackOverrides(cfg *config.Config, overrides packOverrides) error {
	if overrides.outputDir != "" {
		expanded, err := config.ExpandPath(overrides.outputDir)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "cli", "apply flags", "resolve output directory", err)
		}
		cfg.Paths.OutputDir = expanded
	}
	if overrides.jobs > 0 {
		cfg.Encoder.Concurrency = overrides.jobs
	}
	switch {
	case overrides.noThumbs:
		cfg.Thumbnails.Enabled = false
	case overrides.thumbs:
		cfg.Thumbnails.Enabled = true
		cfg.Thumbnails.Mode = "frames"
	case overrides.sprites:
		cfg.Thumbnails.Enabled = true
		cfg.Thumbnails.Mode = "sprites"
	}
	if overrides.upload {
		cfg.Upload.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return services.Wrap(services.ErrConfiguration, "cli", "apply flags", "", err)
	}
	return nil
}

// resolveSourceFile rejects missing inputs and directories before any
// encoder work starts.
func resolveSourceFile(path string) (string, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "cli", "resolve input", "", err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "cli", "resolve input",
				fmt.Sprintf("input file %s does not exist", expanded), nil)
		}
		return "", services.Wrap(services.ErrValidation, "cli", "resolve input", "", err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "cli", "resolve input",
			fmt.Sprintf("%s is a directory, expected a video file", expanded), nil)
	}
	return expanded, nil
}

func resolveLadderOverride(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "cli", "resolve ladder", "", err)
	}
	return expanded, nil
}

func printRunSummary(w io.Writer, result *pipeline.Result) {
	fmt.Fprintf(w, "Packaged %q in %s\n", result.Title, result.Elapsed.Round(time.Second))
	fmt.Fprintln(w, renderSummaryLine("Output", result.OutputDir))
	fmt.Fprintln(w, renderSummaryLine("Source", fmt.Sprintf("%dx%d %s, %.3f fps, %s",
		result.Source.Width, result.Source.Height, result.Source.Codec,
		result.Source.FrameRate, formatSeconds(result.Source.DurationSeconds))))
	fmt.Fprintln(w, renderSummaryLine("Rungs", fmt.Sprintf("%d encoded, %d in master manifest",
		len(result.Rungs), len(result.Included))))
	fmt.Fprintln(w, renderSummaryLine("Thumbnails", formatThumbs(result.Thumbs)))
	if result.Upload != "" {
		fmt.Fprintln(w, renderSummaryLine("Upload", result.Upload))
	}
}

func renderSummaryLine(label, value string) string {
	return fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label, value)
}

func formatThumbs(outcome thumbs.Outcome) string {
	if outcome.Status == thumbs.StatusGenerated {
		return fmt.Sprintf("%s (%s, %d cues)", outcome.Status, outcome.Mode, outcome.Cues)
	}
	if outcome.Cause != "" {
		return fmt.Sprintf("%s (%s)", outcome.Status, outcome.Cause)
	}
	return string(outcome.Status)
}

func formatSeconds(seconds float64) string {
	if math.IsNaN(seconds) || seconds <= 0 {
		return "unknown duration"
	}
	return (time.Duration(seconds * float64(time.Second))).Round(time.Second).String()
}
