package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
}

// Encoder contains configuration for the ffmpeg/ffprobe invocations.
type Encoder struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	SegmentSeconds int    `toml:"segment_seconds"`
	Concurrency    int    `toml:"concurrency"`
	Preset         string `toml:"preset"`
}

// Ladder contains configuration for the bitrate ladder source.
type Ladder struct {
	Path string `toml:"path"`
}

// Thumbnails contains configuration for the scrubbing thumbnail timeline.
type Thumbnails struct {
	Enabled         bool   `toml:"enabled"`
	Mode            string `toml:"mode"`
	IntervalSeconds int    `toml:"interval_seconds"`
	Width           int    `toml:"width"`
	Columns         int    `toml:"columns"`
	Rows            int    `toml:"rows"`
}

// Upload contains configuration for publishing packages to Cloud Storage.
type Upload struct {
	Enabled         bool   `toml:"enabled"`
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	CredentialsFile string `toml:"credentials_file"`
}

// CDN contains configuration for cache invalidation after upload.
type CDN struct {
	Enabled    bool   `toml:"enabled"`
	Project    string `toml:"project"`
	URLMap     string `toml:"url_map"`
	PathPrefix string `toml:"path_prefix"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	RetainDays int    `toml:"retain_days"`
}

// Config encapsulates all configuration values for the packager.
//
// Configuration sections by subsystem:
//   - Paths: output, scratch, and log directories
//   - Encoder: ffmpeg/ffprobe binaries, segmenting, concurrency, x264 preset
//   - Ladder: bitrate ladder file location
//   - Thumbnails: scrubbing timeline mode and geometry
//   - Upload: Cloud Storage bucket publishing
//   - CDN: URL-map cache invalidation after publish
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Encoder    Encoder    `toml:"encoder"`
	Ladder     Ladder     `toml:"ladder"`
	Thumbnails Thumbnails `toml:"thumbnails"`
	Upload     Upload     `toml:"upload"`
	CDN        CDN        `toml:"cdn"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hlspack/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/hlspack/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hlspack.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for packaging runs.
// OutputDir is created on a best-effort basis so the tool can start when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for encoding and thumbnails.
func (c *Config) FFmpegBinary() string {
	return c.Encoder.FFmpegBinary
}

// FFprobeBinary returns the ffprobe executable used for source inspection.
func (c *Config) FFprobeBinary() string {
	return c.Encoder.FFprobeBinary
}

// CatalogPath returns the location of the run catalog database.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.WorkDir, "catalog.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
