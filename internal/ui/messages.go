// Package ui holds the terminal output helpers: prefixed status messages,
// file-transfer progress rendering and interactive confirmation prompts.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	errorStyle   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true)
)

// colorized reports whether the terminal supports colored output at all.
// NO_COLOR and dumb terminals drop the styling, prefixes stay.
func colorized() bool {
	return termenv.EnvColorProfile() != termenv.Ascii
}

func prefixed(style lipgloss.Style, prefix, msg string) string {
	if colorized() {
		prefix = style.Render(prefix)
	}
	return prefix + " " + msg
}

// Echo prints a plain message to stdout.
func Echo(msg string) {
	fmt.Fprintln(stdout, msg)
}

// Info prints an INFO-prefixed message to stderr.
func Info(msg string) {
	fmt.Fprintln(stderr, prefixed(infoStyle, "INFO:", msg))
}

// Warning prints a WARNING-prefixed message to stderr.
func Warning(msg string) {
	fmt.Fprintln(stderr, prefixed(warningStyle, "WARNING:", msg))
}

// Error prints an ERROR-prefixed message to stderr.
func Error(msg string) {
	fmt.Fprintln(stderr, prefixed(errorStyle, "ERROR:", msg))
}

// SetOutput redirects the message writers, for tests.
func SetOutput(out, errOut io.Writer) {
	stdout = out
	stderr = errOut
}
