package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"hlspack/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLadderFile points the config at a ladder file instead of the built-in
// default ladder.
func WithLadderFile(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ladder.Path = path
	}
}

// WithThumbnailsDisabled turns the scrubbing timeline off.
func WithThumbnailsDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Thumbnails.Enabled = false
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			StubBinary(b.t, BinDir(b.t, b.baseDir), name, script)
		}
	}
}

// BinDir ensures and returns the stub binary directory under base, adding it
// to the front of PATH once.
func BinDir(t testing.TB, base string) string {
	t.Helper()

	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}

	oldPath := os.Getenv("PATH")
	prefix := binDir + string(os.PathListSeparator)
	if len(oldPath) < len(prefix) || oldPath[:len(prefix)] != prefix {
		if err := os.Setenv("PATH", prefix+oldPath); err != nil {
			t.Fatalf("set PATH: %v", err)
		}
		t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
	return binDir
}

// StubBinary writes an executable script into dir under the given name.
func StubBinary(t testing.TB, dir, name string, script []byte) string {
	t.Helper()

	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, script, 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
