// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no packager-specific dependencies and could be extracted
// as a standalone library.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video/subtitle stream properties, including
//     frame rates, field order, display-matrix side data, and tags
//   - Format: container-level metadata (duration, size, bitrate)
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
//
// Interpretation of the fields (frame-rate fallbacks, rotation
// normalization, interlace detection) lives in the probe package.
package ffprobe
