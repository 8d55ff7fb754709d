// Package seq makes assertions about the order of lines in interleaved
// output.
package seq

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func AssertStringContainsSequence(t *testing.T, str string, seq ...string) {
	t.Helper()
	assert.NoError(t, StringContainsSequence(str, seq...))
}

func AssertContainsSequence(t *testing.T, lines []string, seq ...string) {
	t.Helper()
	assert.NoError(t, ContainsSequence(lines, seq...))
}

func StringContainsSequence(str string, seq ...string) error {
	return ContainsSequence(strings.Split(str, "\n"), seq...)
}

// AssertStringContainsLines asserts that every one of lines appears in str
// exactly once, in any order.
func AssertStringContainsLines(t *testing.T, str string, lines ...string) {
	t.Helper()
	assert.NoError(t, ContainsLines(strings.Split(str, "\n"), lines...))
}

// ContainsLines checks that every one of want appears in lines exactly
// once. Unlike ContainsSequence, order doesn't matter.
func ContainsLines(lines []string, want ...string) error {
	counts := map[string]int{}
	for _, l := range lines {
		counts[l]++
	}
	for _, w := range want {
		switch counts[w] {
		case 1:
		case 0:
			return fmt.Errorf("Not found: '%s'\n\nActual:\n%s", w, strings.Join(lines, "\n"))
		default:
			return fmt.Errorf("Found %d times, expected once: '%s'\n\nActual:\n%s", counts[w], w, strings.Join(lines, "\n"))
		}
	}
	return nil
}

func ContainsSequence(lines []string, seq ...string) error {
	assertedLines := map[string]struct{}{}
	for _, l := range seq {
		assertedLines[l] = struct{}{}
	}

	lineIndex := 0
seqloop:
	for seqIndex, expect := range seq {
		for ; lineIndex < len(lines); lineIndex++ {
			line := lines[lineIndex]
			if line == expect {
				lineIndex++
				continue seqloop
			} else if _, isAsserted := assertedLines[line]; isAsserted {
				return fmt.Errorf(strings.Join([]string{
					"Found sequenced item outside of the sequence.",
					"Found: '%s'",
					"Looking for sequence item %d: '%s'",
					"",
					"Sequence:",
					"%s",
					"",
					"Actual:",
					"%s",
				}, "\n"),
					line,
					seqIndex+1, expect,
					strings.Join(seq, "\n"),
					strings.Join(lines, "\n"),
				)
			}
		}
		return fmt.Errorf(strings.Join([]string{
			"Not found in sequence.",
			"Item %d: '%s'",
			"",
			"Sequence:",
			"%s",
			"",
			"Actual:",
			"%s",
		}, "\n"),
			seqIndex+1, expect,
			strings.Join(seq, "\n"),
			strings.Join(lines, "\n"),
		)
	}

	// got through the seq; now check the rest of lines to make sure
	// expected lines didn't recur extra times.
	for ; lineIndex < len(lines); lineIndex++ {
		line := lines[lineIndex]
		if _, isAsserted := assertedLines[line]; isAsserted {
			return fmt.Errorf(strings.Join([]string{
				"Found outside of sequence.",
				"Found: '%s'",
				"Entire sequence already consumed.",
				"",
				"Sequence:",
				"%s",
				"",
				"Actual:",
				"%s",
			}, "\n"),
				line,
				strings.Join(seq, "\n"),
				strings.Join(lines, "\n"),
			)
		}
	}
	return nil
}
