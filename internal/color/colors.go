// Package color holds the escape sequences used to tag multiplexed output.
package color

import (
	"github.com/muesli/termenv"
)

// Palette is the ordered set of tag colors. Stream i is tagged with
// Palette[i%len(Palette)].
var Palette = [...]termenv.ANSIColor{
	termenv.ANSIBlue,
	termenv.ANSIMagenta,
	termenv.ANSIYellow, // orange
	termenv.ANSICyan,
	termenv.ANSIGreen,
	termenv.ANSIBrightBlue,
	termenv.ANSIBrightMagenta,
	termenv.ANSIBrightCyan,
	termenv.ANSIBrightYellow, // light orange
	termenv.ANSIBrightGreen,
}

var (
	// Reset clears all attributes.
	Reset = sgr(termenv.ResetSeq)

	// Error is bold red. It tags every chunk of stderr, whatever its index.
	Error = sgr(termenv.BoldSeq) + sgr(termenv.ANSIRed.Sequence(false))
)

// ForIndex returns the foreground escape sequence for stream i.
// Negative indices wrap around the palette like positive ones.
func ForIndex(i int) string {
	n := len(Palette)
	return sgr(Palette[(i%n+n)%n].Sequence(false))
}

func sgr(seq string) string {
	return termenv.CSI + seq + "m"
}
