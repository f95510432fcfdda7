package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

const (
	statusLabelWidth = 22
	statusIndent     = "  "
)

// passFailKind maps a check result onto a render kind.
func passFailKind(passed bool) statusKind {
	if passed {
		return statusOK
	}
	return statusError
}

// renderStatusLine formats one aligned status row. Only the kind token is
// colored so details stay readable when copied out of a terminal.
func renderStatusLine(label string, kind statusKind, detail string, colorize bool) string {
	token := statusKindLabel(kind)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			token = color + token + ansiReset
		}
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label, token)
	if detail != "" {
		line += "  " + detail
	}
	return line
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "ok"
	case statusWarn:
		return "warn"
	case statusError:
		return "error"
	default:
		return "info"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiCyan
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) string {
	line := fmt.Sprintf("%s:", strings.TrimSpace(title))
	if colorize {
		line = ansiCyan + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
