package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"log/slog"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"hlspack/internal/catalog"
	"hlspack/internal/config"
	"hlspack/internal/encode"
	"hlspack/internal/ladder"
	"hlspack/internal/logging"
	"hlspack/internal/manifest"
	"hlspack/internal/media/probe"
	"hlspack/internal/services"
	"hlspack/internal/services/cdn"
	"hlspack/internal/services/gcs"
	"hlspack/internal/textutil"
	"hlspack/internal/thumbs"
)

// ProbeFunc inspects a source file. The default shells out to ffprobe.
type ProbeFunc func(ctx context.Context, binary, path string) (probe.Source, error)

// Request describes one source to package.
type Request struct {
	SourcePath string
	// Title overrides the name derived from the source filename.
	Title string
	// LadderPath overrides the configured ladder file.
	LadderPath string
}

// Result reports a finished run.
type Result struct {
	RunID     string
	Title     string
	Slug      string
	OutputDir string
	Source    probe.Source
	Rungs     []ladder.Rung
	Included  []ladder.Rung
	Thumbs    thumbs.Outcome
	Upload    string
	Elapsed   time.Duration
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithProbe overrides source inspection.
func WithProbe(fn ProbeFunc) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.probeFn = fn
		}
	}
}

// WithEncodeRunner overrides the ffmpeg runner used for rung encodes.
func WithEncodeRunner(runner encode.Runner) Option {
	return func(p *Pipeline) {
		p.encodeOpts = append(p.encodeOpts, encode.WithRunner(runner))
	}
}

// WithThumbsRunner overrides the ffmpeg runner used for thumbnails.
func WithThumbsRunner(runner thumbs.Runner) Option {
	return func(p *Pipeline) {
		p.thumbOpts = append(p.thumbOpts, thumbs.WithRunner(runner))
	}
}

// WithCatalog records finished runs in the given store.
func WithCatalog(store *catalog.Store) Option {
	return func(p *Pipeline) { p.store = store }
}

// WithUploader pushes finished packages to object storage.
func WithUploader(uploader gcs.Uploader) Option {
	return func(p *Pipeline) { p.uploader = uploader }
}

// WithInvalidator clears CDN caches after uploads.
func WithInvalidator(invalidator cdn.Invalidator) Option {
	return func(p *Pipeline) { p.invalidator = invalidator }
}

// Pipeline packages one source end to end: probe, encode every rung,
// synthesize the master manifest, generate thumbnails, then record and
// optionally publish the result.
type Pipeline struct {
	cfg         *config.Config
	logger      *slog.Logger
	probeFn     ProbeFunc
	store       *catalog.Store
	uploader    gcs.Uploader
	invalidator cdn.Invalidator

	encodeOpts []encode.Option
	thumbOpts  []thumbs.Option

	dispatcher *encode.Dispatcher
	generator  *thumbs.Generator
}

// New constructs a pipeline from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		cfg:     cfg,
		logger:  logger,
		probeFn: probe.Inspect,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.dispatcher = encode.NewDispatcher(cfg, logger, p.encodeOpts...)
	p.generator = thumbs.NewGenerator(cfg, logger, p.thumbOpts...)
	return p
}

// Run packages one source. Fatal errors abort before the manifest is
// written; thumbnail problems never fail the run.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	title := req.Title
	if title == "" {
		title = textutil.DeriveTitle(req.SourcePath)
	}
	res := &Result{
		RunID: uuid.NewString(),
		Title: title,
		Slug:  textutil.Slug(title),
	}
	res.OutputDir = filepath.Join(p.cfg.Paths.OutputDir, res.Slug)

	ctx = services.WithRunID(ctx, res.RunID)
	ctx = services.WithSource(ctx, req.SourcePath)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(p.logger, "pipeline"))

	logger.Info("run started",
		logging.String("title", res.Title),
		logging.String("output_dir", res.OutputDir),
	)

	expected := 0
	err := func() error {
		unlock, lockErr := p.acquireLock(res.Slug)
		if lockErr != nil {
			return lockErr
		}
		defer unlock()

		l, ladderErr := p.loadLadder(req.LadderPath)
		if ladderErr != nil {
			return ladderErr
		}
		expected = len(l.Entries)

		if mkErr := os.MkdirAll(res.OutputDir, 0o755); mkErr != nil {
			return services.Wrap(services.ErrConfiguration, "pipeline", "prepare output",
				fmt.Sprintf("create %s", res.OutputDir), mkErr)
		}

		src, probeErr := p.probeFn(ctx, p.cfg.FFprobeBinary(), req.SourcePath)
		if probeErr != nil {
			return probeErr
		}
		src.Path = req.SourcePath
		res.Source = src
		logger.Info("source probed",
			logging.String("codec", src.Codec),
			logging.String("resolution", fmt.Sprintf("%dx%d", src.Width, src.Height)),
			logging.Float64("frame_rate", src.FrameRate),
			logging.Int("rotation", src.Rotation),
			logging.Bool("interlaced", src.Interlaced),
		)

		rungs, encodeErr := p.dispatcher.Encode(ctx, src, l, res.OutputDir)
		if encodeErr != nil {
			return encodeErr
		}
		res.Rungs = rungs

		included, manifestErr := manifest.Write(res.OutputDir, rungs, src.FrameRate)
		if manifestErr != nil {
			return manifestErr
		}
		res.Included = included
		logger.Info("master manifest written",
			logging.Int("rungs", len(included)),
			logging.String("path", filepath.Join(res.OutputDir, manifest.FileName)),
		)

		res.Thumbs = p.generator.Generate(ctx, src, res.OutputDir)

		if p.uploader != nil {
			uploadRes, uploadErr := p.uploader.UploadDir(ctx, res.OutputDir, res.Slug)
			if uploadErr != nil {
				return uploadErr
			}
			res.Upload = uploadRes.Location
			logger.Info("package uploaded",
				logging.String("location", uploadRes.Location),
				logging.Int64("objects", uploadRes.Objects),
				logging.Int64("bytes", uploadRes.Bytes),
			)
			if p.invalidator != nil {
				if invErr := p.invalidator.InvalidatePackage(ctx, res.Slug); invErr != nil {
					logger.Warn("cdn invalidation failed; edge caches may serve stale playlists",
						logging.Error(invErr),
						logging.Alert("cdn_invalidation_failed"),
					)
				}
			}
		}
		return nil
	}()

	res.Elapsed = time.Since(started)
	p.record(ctx, logger, req, res, expected, err)

	if err != nil {
		logger.Error("run failed",
			logging.Error(err),
			logging.Duration("elapsed", res.Elapsed.Round(time.Millisecond)),
		)
		return nil, err
	}
	logger.Info("run complete",
		logging.Int("rungs", len(res.Included)),
		logging.String("thumbnails", string(res.Thumbs.Status)),
		logging.Duration("elapsed", res.Elapsed.Round(time.Millisecond)),
	)
	return res, nil
}

func (p *Pipeline) loadLadder(override string) (ladder.Ladder, error) {
	path := override
	if path == "" {
		path = p.cfg.Ladder.Path
	}
	if path == "" {
		return ladder.Default(), nil
	}
	return ladder.Load(path)
}

// acquireLock serializes runs per package directory. Locks live under the
// work directory so they are never swept into an upload.
func (p *Pipeline) acquireLock(slug string) (func(), error) {
	lockDir := filepath.Join(p.cfg.Paths.WorkDir, "locks")
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "lock",
			fmt.Sprintf("create %s", lockDir), err)
	}
	lock := flock.New(filepath.Join(lockDir, slug+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "lock", "acquire package lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "lock",
			fmt.Sprintf("package %q is already being processed", slug), nil)
	}
	return func() { _ = lock.Unlock() }, nil
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, req Request, res *Result, expected int, runErr error) {
	if p.store == nil {
		return
	}
	rec := catalog.Record{
		RunID:           res.RunID,
		SourcePath:      req.SourcePath,
		Title:           res.Title,
		Slug:            res.Slug,
		OutputDir:       res.OutputDir,
		Status:          catalog.StatusCompleted,
		RungsExpected:   expected,
		RungsPackaged:   len(res.Included),
		ThumbnailStatus: string(res.Thumbs.Status),
		ThumbnailCause:  res.Thumbs.Cause,
		ElapsedSeconds:  res.Elapsed.Seconds(),
		UploadLocation:  res.Upload,
	}
	if duration := res.Source.DurationSeconds; !math.IsNaN(duration) {
		rec.DurationSeconds = duration
	}
	if runErr != nil {
		rec.Status = catalog.StatusFailed
		rec.ErrorMessage = runErr.Error()
	}
	if err := p.store.Insert(ctx, &rec); err != nil {
		logger.Warn("failed to record run in catalog",
			logging.Error(err),
			logging.Alert("catalog_write_failed"),
		)
	}
}
