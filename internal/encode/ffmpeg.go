package encode

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// runFFmpeg is the default runner. It asks ffmpeg for machine-readable
// progress on stdout; the HLS output goes to the playlist path, so stdout
// carries nothing else. Stderr is buffered for error detail because -v error
// keeps it quiet on success.
func runFFmpeg(ctx context.Context, binary string, args []string, progress func(seconds float64)) error {
	full := append([]string{"-nostats", "-progress", "pipe:1"}, args...)
	cmd := commandContext(ctx, binary, full...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		seconds, ok := parseProgressSeconds(scanner.Text())
		if ok && progress != nil {
			progress(seconds)
		}
	}

	if err := cmd.Wait(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return fmt.Errorf("%w: %s", err, detail)
		}
		return err
	}
	return scanner.Err()
}

// parseProgressSeconds reads one key=value line from ffmpeg's -progress
// stream. Only the out_time keys carry the output timestamp; everything
// else is skipped. Before the first frame ffmpeg reports N/A or negative
// placeholder times, which parse as not-ok.
func parseProgressSeconds(line string) (float64, bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found {
		return 0, false
	}
	value = strings.TrimSpace(value)
	switch key {
	case "out_time_us", "out_time_ms":
		// Both keys are microseconds; out_time_ms is a historical misnomer.
		micros, err := strconv.ParseInt(value, 10, 64)
		if err != nil || micros < 0 {
			return 0, false
		}
		return float64(micros) / 1e6, true
	case "out_time":
		return parseClockTime(value)
	}
	return 0, false
}

// parseClockTime converts ffmpeg's HH:MM:SS.micros clock format.
func parseClockTime(value string) (float64, bool) {
	if strings.HasPrefix(value, "-") {
		return 0, false
	}
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, false
	}
	return float64(hours*3600+minutes*60) + seconds, true
}
