package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteSource fills path with size bytes of filler so stat-based checks see
// a non-empty media file. The contents never reach a real decoder.
func WriteSource(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
