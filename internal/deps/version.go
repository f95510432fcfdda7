package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Version reports the version string of an ffmpeg-family binary by running
// "<binary> -version" and reading the third token of the first output line.
// Returns "unknown" when the binary cannot be executed or the output is not
// in the expected shape.
func Version(ctx context.Context, binary string) string {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return "unknown"
	}

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(runCtx, binary, "-version").Output()
	if err != nil {
		return "unknown"
	}
	lines := strings.SplitN(string(output), "\n", 2)
	fields := strings.Fields(lines[0])
	if len(fields) < 3 || fields[1] != "version" {
		return "unknown"
	}
	return fields[2]
}
