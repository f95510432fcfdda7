package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEncoder()
	if err := c.normalizeLadder(); err != nil {
		return err
	}
	c.normalizeThumbnails()
	if err := c.normalizeUpload(); err != nil {
		return err
	}
	c.normalizeCDN()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEncoder() {
	c.Encoder.FFmpegBinary = strings.TrimSpace(c.Encoder.FFmpegBinary)
	if c.Encoder.FFmpegBinary == "" {
		c.Encoder.FFmpegBinary = defaultFFmpegBinary
	}
	c.Encoder.FFprobeBinary = strings.TrimSpace(c.Encoder.FFprobeBinary)
	if c.Encoder.FFprobeBinary == "" {
		c.Encoder.FFprobeBinary = defaultFFprobeBinary
	}
	c.Encoder.Preset = strings.ToLower(strings.TrimSpace(c.Encoder.Preset))
	if c.Encoder.Preset == "" {
		c.Encoder.Preset = defaultPreset
	}
}

func (c *Config) normalizeLadder() error {
	c.Ladder.Path = strings.TrimSpace(c.Ladder.Path)
	if c.Ladder.Path == "" {
		return nil
	}
	var err error
	if c.Ladder.Path, err = expandPath(c.Ladder.Path); err != nil {
		return fmt.Errorf("ladder.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeThumbnails() {
	c.Thumbnails.Mode = strings.ToLower(strings.TrimSpace(c.Thumbnails.Mode))
	if c.Thumbnails.Mode == "" {
		c.Thumbnails.Mode = defaultThumbnailMode
	}
	if c.Thumbnails.IntervalSeconds <= 0 {
		c.Thumbnails.IntervalSeconds = defaultThumbnailInterval
	}
	if c.Thumbnails.Width <= 0 {
		c.Thumbnails.Width = defaultThumbnailWidth
	}
	if c.Thumbnails.Columns <= 0 {
		c.Thumbnails.Columns = defaultThumbnailColumns
	}
	if c.Thumbnails.Rows <= 0 {
		c.Thumbnails.Rows = defaultThumbnailRows
	}
}

func (c *Config) normalizeUpload() error {
	if value, ok := os.LookupEnv("HLSPACK_BUCKET"); ok && strings.TrimSpace(value) != "" {
		c.Upload.Bucket = strings.TrimSpace(value)
	}
	c.Upload.Bucket = strings.TrimSpace(c.Upload.Bucket)
	c.Upload.Prefix = strings.Trim(strings.TrimSpace(c.Upload.Prefix), "/")
	c.Upload.CredentialsFile = strings.TrimSpace(c.Upload.CredentialsFile)
	if c.Upload.CredentialsFile != "" {
		var err error
		if c.Upload.CredentialsFile, err = expandPath(c.Upload.CredentialsFile); err != nil {
			return fmt.Errorf("upload.credentials_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeCDN() {
	c.CDN.Project = strings.TrimSpace(c.CDN.Project)
	c.CDN.URLMap = strings.TrimSpace(c.CDN.URLMap)
	c.CDN.PathPrefix = strings.TrimSpace(c.CDN.PathPrefix)
	if c.CDN.PathPrefix == "" {
		c.CDN.PathPrefix = defaultCDNPathPrefix
	}
	if !strings.HasPrefix(c.CDN.PathPrefix, "/") {
		c.CDN.PathPrefix = "/" + c.CDN.PathPrefix
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetainDays < 0 {
		c.Logging.RetainDays = 0
	}
}
