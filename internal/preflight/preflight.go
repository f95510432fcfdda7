package preflight

import (
	"fmt"
	"strings"

	"hlspack/internal/config"
	"hlspack/internal/deps"
	"hlspack/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available,
			Detail: status.Detail,
		})
	}

	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))

	if cfg.Ladder.Path != "" {
		results = append(results, CheckLadderFile(cfg.Ladder.Path))
	}

	return results
}

// RunBlockers runs all checks and converts failures into a configuration
// error naming each blocker. A nil return means packaging can proceed.
func RunBlockers(cfg *config.Config) error {
	var blockers []string
	for _, result := range RunAll(cfg) {
		if result.Passed {
			continue
		}
		blockers = append(blockers, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	if len(blockers) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "", strings.Join(blockers, "; "), nil)
}

// CheckSystemDeps resolves the external binaries every packaging run needs.
// Both the pipeline and the CLI status command use this to avoid duplicating
// the tool list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.Resolve([]deps.Tool{
		{Name: "FFmpeg", Command: cfg.FFmpegBinary()},
		{Name: "FFprobe", Command: cfg.FFprobeBinary()},
	})
}
