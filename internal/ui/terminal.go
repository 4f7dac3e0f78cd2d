package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// envColor applies NO_COLOR, CLICOLOR_FORCE and CLICOLOR in that order of
// precedence. ok is false when none of them decides.
func envColor() (enabled, ok bool) {
	if os.Getenv("NO_COLOR") != "" {
		return false, true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true, true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false, true
	}
	return false, false
}

// ColorEnabled reports whether ANSI colors should be written to f. The
// environment overrides TTY detection.
func ColorEnabled(f *os.File) bool {
	if enabled, ok := envColor(); ok {
		return enabled
	}
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// ShouldUseColor is ColorEnabled for stdout.
func ShouldUseColor() bool { return ColorEnabled(os.Stdout) }
