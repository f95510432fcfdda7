// Package preflight provides readiness checks for external binaries
// and filesystem paths that packaging runs depend on.
//
// These checks run in two contexts:
//   - Packaging commands call RunBlockers before probing a source. If any
//     check fails, the run aborts as a configuration error before ffmpeg is
//     ever invoked.
//   - The CLI "hlspack status" command composes the individual checks into
//     its tool and directory health sections.
//
// Ladder entry syntax is deliberately not checked here; it is validated when
// each encode job is built.
package preflight
