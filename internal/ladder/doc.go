// Package ladder loads and validates the bitrate ladder that defines the
// renditions of a package. Loading keeps entries verbatim; per-entry
// validation is deferred until a rung's encode job is built.
package ladder
