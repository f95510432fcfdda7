package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"hlspack/internal/catalog"
	"hlspack/internal/config"
	"hlspack/internal/logging"
	"hlspack/internal/manifest"
	"hlspack/internal/media/probe"
	"hlspack/internal/pipeline"
	"hlspack/internal/services"
	"hlspack/internal/services/gcs"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories() error: %v", err)
	}
	return cfg
}

func stubProbe(src probe.Source) pipeline.ProbeFunc {
	return func(ctx context.Context, binary, path string) (probe.Source, error) {
		src.Path = path
		return src, nil
	}
}

func hdSource() probe.Source {
	return probe.Source{
		Codec:            "h264",
		Width:            1920,
		Height:           1080,
		DurationSeconds:  3600,
		FrameRate:        29.97,
		FrameRateRounded: 30,
		HasAudio:         true,
	}
}

func playlistWritingRunner(t *testing.T) func(ctx context.Context, binary string, args []string, progress func(float64)) error {
	return func(ctx context.Context, binary string, args []string, progress func(float64)) error {
		playlist := args[len(args)-1]
		if err := os.WriteFile(playlist, []byte("#EXTM3U\n"), 0o644); err != nil {
			t.Errorf("write playlist %s: %v", playlist, err)
		}
		return nil
	}
}

func thumbWritingRunner(t *testing.T) func(ctx context.Context, binary string, args []string) error {
	return func(ctx context.Context, binary string, args []string) error {
		pattern := args[len(args)-1]
		for i := 1; i <= 2; i++ {
			path := fmt.Sprintf(pattern, i)
			if err := os.WriteFile(path, []byte("jpg"), 0o644); err != nil {
				t.Errorf("write thumb %s: %v", path, err)
			}
		}
		return nil
	}
}

func TestRunPackagesSource(t *testing.T) {
	cfg := testConfig(t)
	store, err := catalog.Open(&cfg)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer store.Close()

	p := pipeline.New(&cfg, logging.NewNop(),
		pipeline.WithProbe(stubProbe(hdSource())),
		pipeline.WithEncodeRunner(playlistWritingRunner(t)),
		pipeline.WithThumbsRunner(thumbWritingRunner(t)),
		pipeline.WithCatalog(store),
	)

	res, err := p.Run(context.Background(), pipeline.Request{SourcePath: "/in/movie.mkv"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if res.Title != "Movie" || res.Slug != "movie" {
		t.Fatalf("title/slug = %q/%q", res.Title, res.Slug)
	}
	if res.OutputDir != filepath.Join(cfg.Paths.OutputDir, "movie") {
		t.Fatalf("OutputDir = %q", res.OutputDir)
	}
	if len(res.Rungs) != 4 || len(res.Included) != 4 {
		t.Fatalf("rungs = %d encoded, %d in manifest; want 4/4", len(res.Rungs), len(res.Included))
	}

	data, err := os.ReadFile(filepath.Join(res.OutputDir, manifest.FileName))
	if err != nil {
		t.Fatalf("read master: %v", err)
	}
	if got := strings.Count(string(data), "#EXT-X-STREAM-INF"); got != 4 {
		t.Fatalf("master has %d stream entries, want 4:\n%s", got, data)
	}
	if !strings.Contains(string(data), "FRAME-RATE=29.970") {
		t.Fatalf("master missing probed frame rate:\n%s", data)
	}

	if res.Thumbs.Status != "generated" || res.Thumbs.Cues != 2 {
		t.Fatalf("thumbs outcome = %+v", res.Thumbs)
	}

	records, err := store.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("catalog has %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.Status != catalog.StatusCompleted || rec.RungsPackaged != 4 || rec.RungsExpected != 4 {
		t.Fatalf("catalog record = %+v", rec)
	}
	if rec.RunID != res.RunID || rec.DurationSeconds != 3600 {
		t.Fatalf("catalog record = %+v", rec)
	}
}

func TestRunFailsWhenEncodeFails(t *testing.T) {
	cfg := testConfig(t)
	store, err := catalog.Open(&cfg)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer store.Close()

	p := pipeline.New(&cfg, logging.NewNop(),
		pipeline.WithProbe(stubProbe(hdSource())),
		pipeline.WithEncodeRunner(func(ctx context.Context, binary string, args []string, _ func(float64)) error {
			return errors.New("encoder exploded")
		}),
		pipeline.WithCatalog(store),
	)

	_, err = p.Run(context.Background(), pipeline.Request{SourcePath: "/in/movie.mkv"})
	if err == nil {
		t.Fatal("Run() succeeded despite failing encode")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("error = %v, want external tool marker", err)
	}

	master := filepath.Join(cfg.Paths.OutputDir, "movie", manifest.FileName)
	if _, statErr := os.Stat(master); !os.IsNotExist(statErr) {
		t.Fatal("master manifest written despite failed encode")
	}

	records, err := store.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(records) != 1 || records[0].Status != catalog.StatusFailed {
		t.Fatalf("catalog records = %+v, want one failed run", records)
	}
	if !strings.Contains(records[0].ErrorMessage, "encoder exploded") {
		t.Fatalf("ErrorMessage = %q", records[0].ErrorMessage)
	}
}

func TestRunHonorsTitleAndLadderOverrides(t *testing.T) {
	cfg := testConfig(t)
	ladderPath := filepath.Join(t.TempDir(), "ladder.txt")
	if err := os.WriteFile(ladderPath, []byte("1280x720:3000k:6000k:3300k:128\n"), 0o644); err != nil {
		t.Fatalf("write ladder: %v", err)
	}

	p := pipeline.New(&cfg, logging.NewNop(),
		pipeline.WithProbe(stubProbe(hdSource())),
		pipeline.WithEncodeRunner(playlistWritingRunner(t)),
		pipeline.WithThumbsRunner(thumbWritingRunner(t)),
	)

	res, err := p.Run(context.Background(), pipeline.Request{
		SourcePath: "/in/some.show.s01e01.mkv",
		Title:      "Director's Cut",
		LadderPath: ladderPath,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Title != "Director's Cut" || res.Slug != "director-s-cut" {
		t.Fatalf("title/slug = %q/%q", res.Title, res.Slug)
	}
	if len(res.Rungs) != 1 || res.Rungs[0].Resolution() != "1280x720" {
		t.Fatalf("rungs = %+v, want single 720p rung", res.Rungs)
	}
}

func TestRunRejectsEmptyLadderBeforeProbing(t *testing.T) {
	cfg := testConfig(t)
	ladderPath := filepath.Join(t.TempDir(), "ladder.txt")
	if err := os.WriteFile(ladderPath, []byte("# rungs pending\n\n"), 0o644); err != nil {
		t.Fatalf("write ladder: %v", err)
	}

	probed := false
	p := pipeline.New(&cfg, logging.NewNop(),
		pipeline.WithProbe(func(ctx context.Context, binary, path string) (probe.Source, error) {
			probed = true
			return hdSource(), nil
		}),
		pipeline.WithEncodeRunner(playlistWritingRunner(t)),
	)

	_, err := p.Run(context.Background(), pipeline.Request{
		SourcePath: "/in/movie.mkv",
		LadderPath: ladderPath,
	})
	if err == nil {
		t.Fatal("Run() succeeded with an empty ladder")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want validation marker", err)
	}
	if !strings.Contains(err.Error(), "no ladder entries") {
		t.Fatalf("error = %v, want no ladder entries", err)
	}
	if probed {
		t.Fatal("source was probed despite invalid ladder")
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Paths.OutputDir, "movie")); !os.IsNotExist(statErr) {
		t.Fatal("output directory created despite invalid ladder")
	}
}

type fakeUploader struct {
	localDir string
	prefix   string
}

func (f *fakeUploader) UploadDir(ctx context.Context, localDir, remotePrefix string) (*gcs.Result, error) {
	f.localDir = localDir
	f.prefix = remotePrefix
	return &gcs.Result{Objects: 7, Bytes: 1024, Location: "gs://bucket/vod/" + remotePrefix}, nil
}

func (f *fakeUploader) Close() error { return nil }

type fakeInvalidator struct {
	slug string
}

func (f *fakeInvalidator) InvalidatePackage(ctx context.Context, slug string) error {
	f.slug = slug
	return nil
}

func TestRunUploadsAndInvalidates(t *testing.T) {
	cfg := testConfig(t)
	uploader := &fakeUploader{}
	invalidator := &fakeInvalidator{}

	p := pipeline.New(&cfg, logging.NewNop(),
		pipeline.WithProbe(stubProbe(hdSource())),
		pipeline.WithEncodeRunner(playlistWritingRunner(t)),
		pipeline.WithThumbsRunner(thumbWritingRunner(t)),
		pipeline.WithUploader(uploader),
		pipeline.WithInvalidator(invalidator),
	)

	res, err := p.Run(context.Background(), pipeline.Request{SourcePath: "/in/movie.mkv"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if uploader.localDir != res.OutputDir || uploader.prefix != "movie" {
		t.Fatalf("uploader saw %q/%q", uploader.localDir, uploader.prefix)
	}
	if res.Upload != "gs://bucket/vod/movie" {
		t.Fatalf("Upload = %q", res.Upload)
	}
	if invalidator.slug != "movie" {
		t.Fatalf("invalidator saw %q, want movie", invalidator.slug)
	}
}

func TestRunRejectsConcurrentPackage(t *testing.T) {
	cfg := testConfig(t)
	lockDir := filepath.Join(cfg.Paths.WorkDir, "locks")
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		t.Fatalf("mkdir locks: %v", err)
	}
	held := flock.New(filepath.Join(lockDir, "movie.lock"))
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("prelock failed: locked=%v err=%v", locked, err)
	}
	defer held.Unlock()

	p := pipeline.New(&cfg, logging.NewNop(),
		pipeline.WithProbe(stubProbe(hdSource())),
		pipeline.WithEncodeRunner(playlistWritingRunner(t)),
	)

	_, err = p.Run(context.Background(), pipeline.Request{SourcePath: "/in/movie.mkv"})
	if err == nil {
		t.Fatal("Run() succeeded while package lock was held")
	}
	if !strings.Contains(err.Error(), "already being processed") {
		t.Fatalf("error = %v, want lock conflict", err)
	}
}
