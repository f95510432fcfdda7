package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	logFilePrefix = "hlspack-"
	logDateLayout = "20060102"
)

// PruneOldLogs removes dated log files older than retainDays from dir. Age
// comes from the date stamped in the filename, not mtime, so a file appended
// to after midnight still counts as its own day. retainDays <= 0 disables
// pruning. Failures are logged and skipped; retention never blocks a run.
func PruneOldLogs(logger *slog.Logger, dir string, retainDays int) {
	if retainDays <= 0 || strings.TrimSpace(dir) == "" {
		return
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := time.Now().AddDate(0, 0, -retainDays).Format(logDateLayout)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		day, ok := logFileDate(entry.Name())
		if !ok || day >= cutoff {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		if err := os.Remove(full); err != nil {
			logger.Warn("log retention remove failed; file remains",
				String("path", full),
				Error(err),
			)
			continue
		}
		logger.Debug("log pruned", String("path", full))
	}
}

// logFileDate extracts the YYYYMMDD stamp from a dated log filename. Names
// that do not follow the hlspack-YYYYMMDD.log shape are left alone.
func logFileDate(name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, logFilePrefix)
	if !ok {
		return "", false
	}
	day, ok := strings.CutSuffix(rest, ".log")
	if !ok || len(day) != len(logDateLayout) {
		return "", false
	}
	if _, err := time.Parse(logDateLayout, day); err != nil {
		return "", false
	}
	return day, true
}
