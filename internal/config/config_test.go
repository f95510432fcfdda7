package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"hlspack/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "hlspack", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "hls") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Encoder.FFmpegBinary != "ffmpeg" || cfg.Encoder.FFprobeBinary != "ffprobe" {
		t.Fatalf("unexpected encoder binaries: %q %q", cfg.Encoder.FFmpegBinary, cfg.Encoder.FFprobeBinary)
	}
	if cfg.Encoder.SegmentSeconds != 6 {
		t.Fatalf("unexpected segment seconds: %d", cfg.Encoder.SegmentSeconds)
	}
	if cfg.Encoder.Concurrency != 2 {
		t.Fatalf("unexpected concurrency: %d", cfg.Encoder.Concurrency)
	}
	if cfg.Ladder.Path != "" {
		t.Fatalf("expected empty ladder path by default, got %q", cfg.Ladder.Path)
	}
	if !cfg.Thumbnails.Enabled {
		t.Fatal("expected thumbnails enabled by default")
	}
	if cfg.Thumbnails.Mode != "frames" {
		t.Fatalf("unexpected thumbnail mode: %q", cfg.Thumbnails.Mode)
	}
	if cfg.Upload.Enabled {
		t.Fatal("expected upload disabled by default")
	}
	if cfg.CDN.Enabled {
		t.Fatal("expected cdn disabled by default")
	}
	if cfg.CatalogPath() != filepath.Join(wantWork, "catalog.db") {
		t.Fatalf("unexpected catalog path: %q", cfg.CatalogPath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.LogDir, cfg.Paths.OutputDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "hlspack.toml")

	type payload struct {
		Encoder struct {
			SegmentSeconds int    `toml:"segment_seconds"`
			Concurrency    int    `toml:"concurrency"`
			Preset         string `toml:"preset"`
		} `toml:"encoder"`
		Ladder struct {
			Path string `toml:"path"`
		} `toml:"ladder"`
		Thumbnails struct {
			Mode string `toml:"mode"`
		} `toml:"thumbnails"`
	}
	custom := payload{}
	custom.Encoder.SegmentSeconds = 4
	custom.Encoder.Concurrency = 6
	custom.Encoder.Preset = "Fast"
	custom.Ladder.Path = filepath.Join(tempDir, "ladder.txt")
	custom.Thumbnails.Mode = "SPRITES"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Encoder.SegmentSeconds != 4 {
		t.Fatalf("expected segment seconds 4, got %d", cfg.Encoder.SegmentSeconds)
	}
	if cfg.Encoder.Concurrency != 6 {
		t.Fatalf("expected concurrency 6, got %d", cfg.Encoder.Concurrency)
	}
	if cfg.Encoder.Preset != "fast" {
		t.Fatalf("expected preset to be lowercased, got %q", cfg.Encoder.Preset)
	}
	if cfg.Ladder.Path != filepath.Join(tempDir, "ladder.txt") {
		t.Fatalf("unexpected ladder path: %q", cfg.Ladder.Path)
	}
	if cfg.Thumbnails.Mode != "sprites" {
		t.Fatalf("expected thumbnail mode to normalize, got %q", cfg.Thumbnails.Mode)
	}
}

func TestEnvVarOverridesConfigFileForBucket(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "hlspack.toml")

	type payload struct {
		Upload struct {
			Enabled bool   `toml:"enabled"`
			Bucket  string `toml:"bucket"`
		} `toml:"upload"`
	}
	custom := payload{}
	custom.Upload.Enabled = true
	custom.Upload.Bucket = "file-bucket"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("HLSPACK_BUCKET", "env-bucket")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Upload.Bucket != "env-bucket" {
		t.Fatalf("expected bucket from env, got %q", cfg.Upload.Bucket)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your-bucket") {
		t.Fatalf("sample config missing placeholder bucket: %s", contents)
	}

	// Validate it decodes
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}

	// Path separators differ on Windows.
	if runtime.GOOS != "windows" {
		if !strings.Contains(cfg.Paths.WorkDir, "hlspack") {
			t.Fatalf("expected work dir to contain hlspack, got %q", cfg.Paths.WorkDir)
		}
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Encoder.SegmentSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive segment duration")
	}

	cfg = config.Default()
	cfg.Encoder.Concurrency = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative concurrency")
	}

	cfg = config.Default()
	cfg.Encoder.Preset = "warp9"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown preset")
	}

	cfg = config.Default()
	cfg.Thumbnails.Mode = "filmstrip"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown thumbnail mode")
	}

	cfg = config.Default()
	cfg.Upload.Enabled = true
	cfg.Upload.Bucket = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when upload enabled without bucket")
	}

	cfg = config.Default()
	cfg.Upload.Enabled = true
	cfg.Upload.Bucket = "bucket"
	cfg.CDN.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when cdn enabled without url map")
	}
}
