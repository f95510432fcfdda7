// Package config loads, normalizes, and validates packager configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HLSPACK_BUCKET. The Config type centralizes every knob the CLI needs,
// allowing output/work directories, encoder settings, and upload credentials
// to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
