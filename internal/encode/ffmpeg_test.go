package encode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
)

func TestParseProgressSeconds(t *testing.T) {
	tests := []struct {
		line string
		want float64
		ok   bool
	}{
		{"out_time_us=12500000", 12.5, true},
		{"out_time_ms=12500000", 12.5, true},
		{"out_time=00:03:05.500000", 185.5, true},
		{"out_time=01:00:00.000000", 3600, true},
		{"out_time_us=N/A", 0, false},
		{"out_time_ms=-66000", 0, false},
		{"out_time=-00:00:00.066000", 0, false},
		{"out_time=garbage", 0, false},
		{"frame=120", 0, false},
		{"speed=3.1x", 0, false},
		{"progress=end", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseProgressSeconds(tt.line)
		if ok != tt.ok {
			t.Fatalf("parseProgressSeconds(%q) ok = %v, want %v", tt.line, ok, tt.ok)
		}
		if ok && got != tt.want {
			t.Fatalf("parseProgressSeconds(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestRunFFmpegReportsProgress(t *testing.T) {
	var capturedArgs []string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		capturedArgs = append([]string(nil), args...)
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FFMPEG_HELPER_MODE=progress")
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})

	var seen []float64
	err := runFFmpeg(context.Background(), "ffmpeg", []string{"-i", "in.mkv", "out.m3u8"}, func(seconds float64) {
		seen = append(seen, seconds)
	})
	if err != nil {
		t.Fatalf("runFFmpeg returned error: %v", err)
	}

	if len(capturedArgs) < 3 || capturedArgs[0] != "-nostats" || capturedArgs[1] != "-progress" || capturedArgs[2] != "pipe:1" {
		t.Fatalf("expected progress flags to prefix the command, got %v", capturedArgs)
	}
	if got := strings.Join(capturedArgs[3:], " "); got != "-i in.mkv out.m3u8" {
		t.Fatalf("unexpected trailing args: %q", got)
	}
	want := []float64{1, 3.5}
	if len(seen) != len(want) {
		t.Fatalf("progress called %d times, want %d (%v)", len(seen), len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("progress[%d] = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestRunFFmpegFailureIncludesStderr(t *testing.T) {
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FFMPEG_HELPER_MODE=failure")
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})

	err := runFFmpeg(context.Background(), "ffmpeg", []string{"-i", "in.mkv", "out.m3u8"}, nil)
	if err == nil {
		t.Fatal("expected error from failing ffmpeg")
	}
	if !strings.Contains(err.Error(), "no decoder found") {
		t.Fatalf("error %q missing stderr detail", err)
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("FFMPEG_HELPER_MODE") {
	case "progress":
		fmt.Println("frame=30")
		fmt.Println("out_time_us=1000000")
		fmt.Println("progress=continue")
		fmt.Println("frame=105")
		fmt.Println("out_time_us=3500000")
		fmt.Println("progress=end")
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "Error: no decoder found for stream 0")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}
