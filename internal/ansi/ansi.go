// Package ansi removes terminal escape sequences from text.
package ansi

import "regexp"

// CSI sequences (colors, cursor movement) and OSC sequences terminated by
// BEL or ST.
var escapes = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)

// Strip returns s without any ANSI escape sequences.
func Strip(s string) string {
	return escapes.ReplaceAllString(s, "")
}
