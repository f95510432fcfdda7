package services_test

import (
	"errors"
	"strings"
	"testing"

	"hlspack/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "encode", "mux", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"encode", "mux", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "upload", "put", "", errors.New("io"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker for nil, got %v", err)
	}
}

func TestExitCodeMapping(t *testing.T) {
	validationErr := services.Wrap(services.ErrValidation, "ladder", "parse", "invalid", nil)
	if code := services.ExitCode(validationErr); code != 2 {
		t.Fatalf("expected exit 2 for validation error, got %d", code)
	}

	configErr := services.Wrap(services.ErrConfiguration, "preflight", "binaries", "ffmpeg missing", nil)
	if code := services.ExitCode(configErr); code != 2 {
		t.Fatalf("expected exit 2 for configuration error, got %d", code)
	}

	missingErr := services.Wrap(services.ErrNotFound, "cli", "resolve input", "no such file", nil)
	if code := services.ExitCode(missingErr); code != 2 {
		t.Fatalf("expected exit 2 for missing input, got %d", code)
	}

	encodeErr := services.Wrap(services.ErrExternalTool, "encode", "run", "exit 1", errors.New("ffmpeg"))
	if code := services.ExitCode(encodeErr); code != 1 {
		t.Fatalf("expected exit 1 for encode error, got %d", code)
	}

	if code := services.ExitCode(nil); code != 0 {
		t.Fatalf("expected exit 0 for nil error, got %d", code)
	}
}
