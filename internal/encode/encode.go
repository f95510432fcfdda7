package encode

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"golang.org/x/sync/errgroup"

	"hlspack/internal/config"
	"hlspack/internal/filters"
	"hlspack/internal/ladder"
	"hlspack/internal/logging"
	"hlspack/internal/media/probe"
	"hlspack/internal/services"
)

// Runner executes one ffmpeg invocation and reports output timestamps
// through progress as the encode advances. The dispatcher's default runner
// shells out; tests inject their own.
type Runner func(ctx context.Context, binary string, args []string, progress func(seconds float64)) error

// Job is a fully resolved encode for one rung.
type Job struct {
	Rung           ladder.Rung
	Filters        filters.Chain
	GOP            int
	Playlist       string
	SegmentPattern string
}

// BuildJob resolves one rung against the probed source. The keyframe
// interval matches the segment length exactly so every segment starts on
// an IDR frame.
func BuildJob(src probe.Source, rung ladder.Rung, outputDir string, segmentSeconds int) Job {
	return Job{
		Rung:           rung,
		Filters:        filters.Compose(src, rung.Width, rung.Height),
		GOP:            segmentSeconds * src.FrameRateRounded,
		Playlist:       filepath.Join(outputDir, fmt.Sprintf("rung_%d.m3u8", rung.Index)),
		SegmentPattern: filepath.Join(outputDir, fmt.Sprintf("rung_%d_%%05d.ts", rung.Index)),
	}
}

// Args builds the complete ffmpeg argument list for the job. Source
// metadata and chapters are stripped; the audio map is optional so silent
// sources still package.
func (j Job) Args(inputPath, preset string, segmentSeconds int) []string {
	gop := strconv.Itoa(j.GOP)
	return []string{
		"-hide_banner", "-nostdin", "-v", "error", "-y",
		"-i", inputPath,
		"-map", "0:v:0",
		"-map", "0:a:0?",
		"-map_metadata", "-1",
		"-map_chapters", "-1",
		"-vf", j.Filters.String(),
		"-c:v", "libx264",
		"-profile:v", "high",
		"-level:v", "4.1",
		"-preset", preset,
		"-pix_fmt", "yuv420p",
		"-b:v", j.Rung.VideoBitrate,
		"-maxrate", j.Rung.MaxRate,
		"-bufsize", j.Rung.BufferSize,
		"-x264-params", "keyint=" + gop + ":min-keyint=" + gop + ":scenecut=0",
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", j.Rung.AudioBitrateKbps),
		"-ac", "2",
		"-ar", "48000",
		"-f", "hls",
		"-hls_time", strconv.Itoa(segmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_flags", "independent_segments",
		"-hls_segment_filename", j.SegmentPattern,
		j.Playlist,
	}
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithRunner overrides the ffmpeg runner.
func WithRunner(runner Runner) Option {
	return func(d *Dispatcher) {
		if runner != nil {
			d.runner = runner
		}
	}
}

// Dispatcher encodes every ladder rung with bounded concurrency.
type Dispatcher struct {
	binary         string
	preset         string
	segmentSeconds int
	concurrency    int
	runner         Runner
	logger         *slog.Logger
}

// NewDispatcher constructs a dispatcher from configuration.
func NewDispatcher(cfg *config.Config, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Dispatcher{
		binary:         cfg.FFmpegBinary(),
		preset:         cfg.Encoder.Preset,
		segmentSeconds: cfg.Encoder.SegmentSeconds,
		concurrency:    cfg.Encoder.Concurrency,
		runner:         runFFmpeg,
		logger:         logging.NewComponentLogger(logger, "encoder"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Encode runs one job per ladder entry and returns the rungs in ladder
// order. Jobs are built lazily right before submission, so a malformed
// entry surfaces only once the rungs ahead of it have been dispatched. At
// most the configured number of encodes run at once; the first failure
// cancels the rest and fails the run.
func (d *Dispatcher) Encode(ctx context.Context, src probe.Source, l ladder.Ladder, outputDir string) ([]ladder.Rung, error) {
	limit := d.concurrency
	if limit < 1 {
		limit = 1
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	rungs := make([]ladder.Rung, 0, len(l.Entries))
	for index, entry := range l.Entries {
		if ctx.Err() != nil {
			break
		}
		rung, err := ladder.Parse(index, entry)
		if err != nil {
			group.Go(func() error { return err })
			break
		}
		job := BuildJob(src, rung, outputDir, d.segmentSeconds)
		rungs = append(rungs, rung)
		group.Go(func() error {
			return d.runJob(ctx, src, job)
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return rungs, nil
}

func (d *Dispatcher) runJob(ctx context.Context, src probe.Source, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	args := job.Args(src.Path, d.preset, d.segmentSeconds)
	jobLogger := d.logger.With(
		logging.Rung(job.Rung.Index),
		logging.String("resolution", job.Rung.Resolution()),
	)
	jobLogger.Info("encoding rung",
		logging.String("bitrate", job.Rung.VideoBitrate),
		logging.Int("gop", job.GOP),
		logging.String("command", d.binary+" "+strings.Join(args, " ")),
	)

	sampler := logging.NewProgressSampler(10)
	onProgress := func(seconds float64) {
		percent := -1.0
		if src.DurationSeconds > 0 {
			percent = seconds / src.DurationSeconds * 100
		}
		if !sampler.ShouldLog(percent) {
			return
		}
		jobLogger.Info("encode progress",
			logging.Float64("progress_percent", math.Round(percent)),
			logging.Duration("out_time", time.Duration(seconds*float64(time.Second)).Round(time.Second)),
		)
	}

	started := time.Now()
	if err := d.runner(ctx, d.binary, args, onProgress); err != nil {
		return services.Wrap(services.ErrExternalTool, "encode", "ffmpeg",
			fmt.Sprintf("rung %d (%s) failed", job.Rung.Index, job.Rung.Resolution()), err)
	}
	jobLogger.Info("rung complete", logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)))
	return nil
}
