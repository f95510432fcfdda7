package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hlspack/internal/services"
)

// videoExtensions are the container formats accepted as packaging sources.
var videoExtensions = map[string]struct{}{
	".avi":  {},
	".m4v":  {},
	".mkv":  {},
	".mov":  {},
	".mp4":  {},
	".mpeg": {},
	".mpg":  {},
	".mts":  {},
	".ts":   {},
	".webm": {},
}

// IsVideoFile reports whether path carries a recognized container
// extension. Dot-prefixed names are rejected; AppleDouble companions and
// editor temp files carry video extensions but are not sources.
func IsVideoFile(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := videoExtensions[ext]
	return ok
}

// Scan returns the packageable files directly under dir, sorted by name.
// Subdirectories are not descended into.
func Scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "scan", fmt.Sprintf("read directory %s", dir), err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsVideoFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}
