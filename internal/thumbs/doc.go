// Package thumbs generates preview timelines for packaged sources: either
// individual thumbnail frames or tiled sprite sheets, each paired with a
// WebVTT cue track. Generation is best-effort and never fails a run.
package thumbs
