// Package probe interprets raw ffprobe output into the facts the packaging
// pipeline acts on: effective frame rate with fallbacks, display rotation,
// interlacing, and stream presence.
package probe
