// Package encode turns ladder rungs into HLS renditions. Each rung is one
// ffmpeg invocation producing a segmented playlist; a bounded worker group
// runs the invocations with fail-fast cancellation.
package encode
