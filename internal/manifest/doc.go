// Package manifest synthesizes the HLS master playlist from the rungs
// that produced media playlists on disk.
package manifest
