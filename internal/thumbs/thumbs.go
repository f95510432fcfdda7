package thumbs

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	_ "image/jpeg"

	"github.com/google/renameio/v2"

	"hlspack/internal/config"
	"hlspack/internal/logging"
	"hlspack/internal/media/probe"
)

// TrackName is the WebVTT cue track written at the package root.
const TrackName = "thumbnails.vtt"

// fallbackFrameHeight is used when the first extracted frame cannot be
// decoded to learn the real tile height.
const fallbackFrameHeight = 90

// Status reports how a generation attempt ended.
type Status string

const (
	StatusGenerated Status = "generated"
	StatusSkipped   Status = "skipped"
)

// Outcome describes the result of a Generate call. Thumbnails are
// best-effort; a skip never fails the surrounding run.
type Outcome struct {
	Status Status
	Mode   string
	Cause  string
	Cues   int
	Track  string
}

func skipped(mode, cause string) Outcome {
	return Outcome{Status: StatusSkipped, Mode: mode, Cause: cause}
}

// Runner executes one ffmpeg invocation.
type Runner func(ctx context.Context, binary string, args []string) error

// Option configures the generator.
type Option func(*Generator)

// WithRunner overrides the ffmpeg runner.
func WithRunner(runner Runner) Option {
	return func(g *Generator) {
		if runner != nil {
			g.runner = runner
		}
	}
}

// Generator produces thumbnail timelines for packaged sources.
type Generator struct {
	binary   string
	workDir  string
	settings config.Thumbnails
	runner   Runner
	logger   *slog.Logger
}

// NewGenerator constructs a generator from configuration.
func NewGenerator(cfg *config.Config, logger *slog.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = logging.NewNop()
	}
	g := &Generator{
		binary:   cfg.FFmpegBinary(),
		workDir:  cfg.Paths.WorkDir,
		settings: cfg.Thumbnails,
		runner:   runFFmpeg,
		logger:   logging.NewComponentLogger(logger, "thumbs"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds the thumbnail timeline for src inside outputDir. It
// reports an Outcome instead of an error: any failure is logged and the
// run carries on without a timeline.
func (g *Generator) Generate(ctx context.Context, src probe.Source, outputDir string) Outcome {
	if !g.settings.Enabled {
		return skipped("", "disabled")
	}

	var outcome Outcome
	switch g.settings.Mode {
	case "frames":
		outcome = g.generateFrames(ctx, src, outputDir)
	case "sprites":
		outcome = g.generateSprites(ctx, src, outputDir)
	default:
		outcome = skipped(g.settings.Mode, fmt.Sprintf("unsupported mode %q", g.settings.Mode))
	}

	if outcome.Status == StatusSkipped {
		g.logger.Warn("thumbnail generation skipped",
			logging.String("mode", outcome.Mode),
			logging.String("cause", outcome.Cause),
			logging.Alert("thumbnails_skipped"),
		)
	} else {
		g.logger.Info("thumbnail timeline written",
			logging.String("mode", outcome.Mode),
			logging.Int("cues", outcome.Cues),
			logging.String("track", outcome.Track),
		)
	}
	return outcome
}

func (g *Generator) generateFrames(ctx context.Context, src probe.Source, outputDir string) Outcome {
	thumbsDir := filepath.Join(outputDir, "thumbs")
	if err := os.MkdirAll(thumbsDir, 0o755); err != nil {
		return skipped("frames", fmt.Sprintf("create thumbs directory: %v", err))
	}

	pattern := filepath.Join(thumbsDir, "thumb_%05d.jpg")
	if err := g.extract(ctx, src.Path, pattern); err != nil {
		return skipped("frames", fmt.Sprintf("extraction failed: %v", err))
	}

	var cues []cue
	interval := g.settings.IntervalSeconds
	for k := 1; ; k++ {
		name := fmt.Sprintf("thumb_%05d.jpg", k)
		if _, err := os.Stat(filepath.Join(thumbsDir, name)); err != nil {
			break
		}
		cues = append(cues, cue{
			start:     (k - 1) * interval,
			end:       k * interval,
			reference: "thumbs/" + name,
		})
	}
	if len(cues) == 0 {
		return skipped("frames", "no thumbnails produced")
	}

	track := filepath.Join(outputDir, TrackName)
	if err := writeTrack(track, cues); err != nil {
		return skipped("frames", fmt.Sprintf("write cue track: %v", err))
	}
	return Outcome{Status: StatusGenerated, Mode: "frames", Cues: len(cues), Track: track}
}

func (g *Generator) generateSprites(ctx context.Context, src probe.Source, outputDir string) Outcome {
	scratch, err := os.MkdirTemp(g.workDir, "sprites-")
	if err != nil {
		return skipped("sprites", fmt.Sprintf("create scratch directory: %v", err))
	}
	defer os.RemoveAll(scratch)

	framePattern := filepath.Join(scratch, "frame_%05d.jpg")
	if err := g.extract(ctx, src.Path, framePattern); err != nil {
		return skipped("sprites", fmt.Sprintf("extraction failed: %v", err))
	}

	frameCount := 0
	for {
		name := fmt.Sprintf("frame_%05d.jpg", frameCount+1)
		if _, err := os.Stat(filepath.Join(scratch, name)); err != nil {
			break
		}
		frameCount++
	}
	if frameCount == 0 {
		return skipped("sprites", "no frames extracted")
	}

	frameHeight := decodeHeight(filepath.Join(scratch, "frame_00001.jpg"))

	tileArgs := []string{
		"-hide_banner", "-nostdin", "-v", "error", "-y",
		"-i", framePattern,
		"-vf", fmt.Sprintf("tile=%dx%d", g.settings.Columns, g.settings.Rows),
		"-start_number", "0",
		filepath.Join(outputDir, "sprite_%d.jpg"),
	}
	if err := g.runner(ctx, g.binary, tileArgs); err != nil {
		return skipped("sprites", fmt.Sprintf("tiling failed: %v", err))
	}

	perSheet := g.settings.Columns * g.settings.Rows
	width := g.settings.Width
	interval := g.settings.IntervalSeconds
	cues := make([]cue, 0, frameCount)
	for i := 1; i <= frameCount; i++ {
		pos := (i - 1) % perSheet
		col := pos % g.settings.Columns
		row := pos / g.settings.Columns
		cues = append(cues, cue{
			start: (i - 1) * interval,
			end:   i * interval,
			reference: fmt.Sprintf("sprite_%d.jpg#xywh=%d,%d,%d,%d",
				(i-1)/perSheet, col*width, row*frameHeight, width, frameHeight),
		})
	}

	track := filepath.Join(outputDir, TrackName)
	if err := writeTrack(track, cues); err != nil {
		return skipped("sprites", fmt.Sprintf("write cue track: %v", err))
	}
	return Outcome{Status: StatusGenerated, Mode: "sprites", Cues: len(cues), Track: track}
}

// extract pulls one frame per interval at the configured width. Height
// follows the source aspect.
func (g *Generator) extract(ctx context.Context, inputPath, outputPattern string) error {
	args := []string{
		"-hide_banner", "-nostdin", "-v", "error", "-y",
		"-i", inputPath,
		"-vf", fmt.Sprintf("fps=1/%d,scale=%d:-1", g.settings.IntervalSeconds, g.settings.Width),
		outputPattern,
	}
	return g.runner(ctx, g.binary, args)
}

func decodeHeight(path string) int {
	file, err := os.Open(path)
	if err != nil {
		return fallbackFrameHeight
	}
	defer file.Close()
	cfg, _, err := image.DecodeConfig(file)
	if err != nil || cfg.Height <= 0 {
		return fallbackFrameHeight
	}
	return cfg.Height
}

type cue struct {
	start     int
	end       int
	reference string
}

func writeTrack(path string, cues []cue) error {
	var b strings.Builder
	b.WriteString("WEBVTT\n")
	for _, c := range cues {
		b.WriteString("\n")
		b.WriteString(formatTimestamp(c.start) + " --> " + formatTimestamp(c.end) + "\n")
		b.WriteString(c.reference + "\n")
	}
	return renameio.WriteFile(path, []byte(b.String()), 0o644)
}

func formatTimestamp(seconds int) string {
	d := time.Duration(seconds) * time.Second
	hours := int(d / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	secs := int(d % time.Minute / time.Second)
	millis := int(d % time.Second / time.Millisecond)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, millis)
}

func runFFmpeg(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			return fmt.Errorf("%w: %s", err, detail)
		}
		return err
	}
	return nil
}
