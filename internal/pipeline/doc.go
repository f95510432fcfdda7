// Package pipeline orchestrates a packaging run: probe the source, encode
// every ladder rung, synthesize the master manifest, generate thumbnails,
// record the run, and optionally publish to object storage.
package pipeline
