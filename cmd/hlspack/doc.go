// Package main hosts the hlspack CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into packaging
// runs, batch and watch ingest, ladder inspection, catalog queries, and
// configuration scaffolding. It centralizes configuration resolution,
// logging setup, and pipeline assembly so subcommands can focus on flags
// and output formatting.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
