// Package textutil holds small text helpers shared by log lines and CLI output.
package textutil

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Preview collapses whitespace runs (including newlines) into single spaces
// and truncates the result to at most width terminal cells, appending "..."
// when something was cut. width <= 0 disables truncation.
func Preview(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}

// PadRight pads s with spaces up to width terminal cells.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}
