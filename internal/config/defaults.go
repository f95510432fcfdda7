package config

const (
	defaultOutputDir         = "~/hls"
	defaultWorkDir           = "~/.local/share/hlspack/work"
	defaultLogDir            = "~/.local/share/hlspack/logs"
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultSegmentSeconds    = 6
	defaultConcurrency       = 2
	defaultPreset            = "medium"
	defaultThumbnailMode     = "frames"
	defaultThumbnailInterval = 10
	defaultThumbnailWidth    = 160
	defaultThumbnailColumns  = 10
	defaultThumbnailRows     = 10
	defaultCDNPathPrefix     = "/"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetainDays     = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
		},
		Encoder: Encoder{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			SegmentSeconds: defaultSegmentSeconds,
			Concurrency:    defaultConcurrency,
			Preset:         defaultPreset,
		},
		Thumbnails: Thumbnails{
			Enabled:         true,
			Mode:            defaultThumbnailMode,
			IntervalSeconds: defaultThumbnailInterval,
			Width:           defaultThumbnailWidth,
			Columns:         defaultThumbnailColumns,
			Rows:            defaultThumbnailRows,
		},
		CDN: CDN{
			PathPrefix: defaultCDNPathPrefix,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			RetainDays: defaultLogRetainDays,
		},
	}
}
