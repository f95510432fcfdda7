// Package filters composes the per-rung ffmpeg video filter chain:
// rotation, deinterlace, scale-and-pad to the rung geometry, then sample
// aspect and frame rate normalization.
package filters
