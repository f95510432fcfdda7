package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"log/slog"

	"hlspack/internal/config"
	"hlspack/internal/media/probe"
	"hlspack/internal/pipeline"
	"hlspack/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedBinaries(),
		testsupport.WithThumbnailsDisabled(),
	)
	base := testsupport.BaseDir(cfg)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
output_dir = %q
work_dir = %q
log_dir = %q

[encoder]
ffmpeg_binary = %q
ffprobe_binary = %q
segment_seconds = %d
concurrency = %d
preset = %q

[thumbnails]
enabled = %t

[logging]
level = "error"
`,
		cfg.Paths.OutputDir, cfg.Paths.WorkDir, cfg.Paths.LogDir,
		cfg.Encoder.FFmpegBinary, cfg.Encoder.FFprobeBinary,
		cfg.Encoder.SegmentSeconds, cfg.Encoder.Concurrency, cfg.Encoder.Preset,
		cfg.Thumbnails.Enabled,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// stubPipeline replaces pipeline construction with one whose probe reports
// a fixed 1080p source and whose encode runner writes the playlist files
// ffmpeg would have produced. Sources whose path contains failPattern fail
// at the probe, mimicking an unreadable file. Returns a restore func.
func stubPipeline(t *testing.T, failPattern string) func() {
	t.Helper()

	original := newPipeline
	newPipeline = func(cfg *config.Config, logger *slog.Logger, opts ...pipeline.Option) *pipeline.Pipeline {
		opts = append(opts,
			pipeline.WithProbe(func(ctx context.Context, binary, path string) (probe.Source, error) {
				if failPattern != "" && strings.Contains(path, failPattern) {
					return probe.Source{}, fmt.Errorf("stub probe failure for %s", path)
				}
				return probe.Source{
					Codec:            "h264",
					Width:            1920,
					Height:           1080,
					DurationSeconds:  60,
					FrameRate:        29.97,
					FrameRateRounded: 30,
					HasAudio:         true,
				}, nil
			}),
			pipeline.WithEncodeRunner(func(ctx context.Context, binary string, args []string, progress func(seconds float64)) error {
				playlist := args[len(args)-1]
				return os.WriteFile(playlist, []byte("#EXTM3U\n"), 0o644)
			}),
		)
		return pipeline.New(cfg, logger, opts...)
	}
	return func() { newPipeline = original }
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
