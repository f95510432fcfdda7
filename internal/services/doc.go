// Package services defines shared utilities consumed by the packaging
// pipeline and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and source paths for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent classifications (configuration vs encode vs transient).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across stages.
package services
