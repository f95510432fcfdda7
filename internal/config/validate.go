package config

import (
	"errors"
	"fmt"
	"strings"
)

var x264Presets = map[string]struct{}{
	"ultrafast": {},
	"superfast": {},
	"veryfast":  {},
	"faster":    {},
	"fast":      {},
	"medium":    {},
	"slow":      {},
	"slower":    {},
	"veryslow":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateThumbnails(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateCDN(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateEncoder() error {
	if strings.TrimSpace(c.Encoder.FFmpegBinary) == "" {
		return errors.New("encoder.ffmpeg_binary must be set")
	}
	if strings.TrimSpace(c.Encoder.FFprobeBinary) == "" {
		return errors.New("encoder.ffprobe_binary must be set")
	}
	if err := ensurePositiveMap(map[string]int{
		"encoder.segment_seconds": c.Encoder.SegmentSeconds,
		"encoder.concurrency":     c.Encoder.Concurrency,
	}); err != nil {
		return err
	}
	if _, ok := x264Presets[c.Encoder.Preset]; !ok {
		return fmt.Errorf("encoder.preset %q is not a valid x264 preset", c.Encoder.Preset)
	}
	return nil
}

func (c *Config) validateThumbnails() error {
	if !c.Thumbnails.Enabled {
		return nil
	}
	switch c.Thumbnails.Mode {
	case "frames", "sprites":
	default:
		return fmt.Errorf("thumbnails.mode must be \"frames\" or \"sprites\", got %q", c.Thumbnails.Mode)
	}
	if err := ensurePositiveMap(map[string]int{
		"thumbnails.interval_seconds": c.Thumbnails.IntervalSeconds,
		"thumbnails.width":            c.Thumbnails.Width,
	}); err != nil {
		return err
	}
	if c.Thumbnails.Mode == "sprites" {
		if err := ensurePositiveMap(map[string]int{
			"thumbnails.columns": c.Thumbnails.Columns,
			"thumbnails.rows":    c.Thumbnails.Rows,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateUpload() error {
	if !c.Upload.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Upload.Bucket) == "" {
		return errors.New("upload.bucket must be set when upload.enabled is true (or set HLSPACK_BUCKET)")
	}
	return nil
}

func (c *Config) validateCDN() error {
	if !c.CDN.Enabled {
		return nil
	}
	if !c.Upload.Enabled {
		return errors.New("cdn.enabled requires upload.enabled")
	}
	if strings.TrimSpace(c.CDN.Project) == "" {
		return errors.New("cdn.project must be set when cdn.enabled is true")
	}
	if strings.TrimSpace(c.CDN.URLMap) == "" {
		return errors.New("cdn.url_map must be set when cdn.enabled is true")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
