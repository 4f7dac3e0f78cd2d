package ui

import "fmt"

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorRule   = 179 // amber
	colorData   = 114 // green
	colorError  = 203 // red
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return paint(colorCmd, s) }

// RenderError returns s in the error (red) color.
func RenderError(s string) string { return paint(colorError, s) }

// RenderKind colors a node kind the way the graph view does: rule nodes
// amber, data nodes green, anything else muted.
func RenderKind(kind string) string {
	switch kind {
	case "rule":
		return paint(colorRule, kind)
	case "data":
		return paint(colorData, kind)
	default:
		return paint(colorMuted, kind)
	}
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
