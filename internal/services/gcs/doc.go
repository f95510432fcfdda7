// Package gcs uploads finished packages to Google Cloud Storage with
// HLS-appropriate object metadata.
package gcs
