package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/graphview/internal/ui"
)

// Patterns used to colorize Cobra's default help output.
var (
	// Section headers: unindented line ending with ":" (e.g. "Queries:", "Flags:").
	reGroupHeader = regexp.MustCompile(`(?m)^([A-Z][^\n]*:)[ \t]*$`)

	// Command names: two-space indent, a word, then at least two spaces.
	reCommand = regexp.MustCompile(`(?m)^(  )(\S+)(  )`)

	// Flag type annotations: e.g. "--server string", "--nodes int".
	reFlagType = regexp.MustCompile(`(--?\S+\s+)(string|int|uint|float|duration)\b`)

	reDefault = regexp.MustCompile(`\(default "?[^)"]*"?\)`)
)

// colorizedHelpFunc returns a Cobra help function that post-processes the
// default help text with ANSI colors when the terminal supports it.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}

		orig := cmd.OutOrStdout()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(orig)

		fmt.Fprint(orig, colorizeHelpOutput(buf.String()))
	}
}

func colorizeHelpOutput(s string) string {
	s = reGroupHeader.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "Usage:") {
			return match
		}
		return ui.RenderAccent(strings.TrimSpace(match))
	})
	s = reCommand.ReplaceAllString(s, "${1}"+ui.RenderCommand("${2}")+"${3}")
	s = reFlagType.ReplaceAllString(s, "${1}"+ui.RenderMuted("${2}"))
	s = reDefault.ReplaceAllStringFunc(s, ui.RenderMuted)
	return s
}
