package seq_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/amonks/concurrently/internal/seq"
	"github.com/stretchr/testify/assert"
)

func TestContainsSequence(t *testing.T) {
	for _, tc := range []struct {
		in, match []string
		out       bool
	}{
		{
			in:    []string{"a", "b", "c", "d"},
			match: []string{"b", "c"},
			out:   true,
		},
		{
			in:    []string{"a", "b", "c", "d"},
			match: []string{"a", "b"},
			out:   true,
		},
		{
			in:    []string{"a", "b", "c", "d"},
			match: []string{"-", "|"},
			out:   false,
		},
		{
			in:    []string{"a", "-", "a", "-", "a", "a"},
			match: []string{"-", "-"},
			out:   true,
		},
		{
			in:    []string{"a", "-", "a", "-", "a", "a"},
			match: []string{"a", "a"},
			out:   false,
		},
	} {
		modifier := " "
		if !tc.out {
			modifier = " not "
		}
		name := fmt.Sprintf("[%s]%sin [%s]", strings.Join(tc.match, ","), modifier, strings.Join(tc.in, ","))
		t.Run(name, func(t *testing.T) {
			err := seq.ContainsSequence(tc.in, tc.match...)
			if shouldHaveNoError := tc.out; shouldHaveNoError {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestContainsLines(t *testing.T) {
	lines := []string{"[1] b", "[0] a", "[1] c", "[0] a"}

	assert.NoError(t, seq.ContainsLines(lines, "[1] c", "[1] b"))
	assert.ErrorContains(t, seq.ContainsLines(lines, "[2] d"), "Not found")
	assert.ErrorContains(t, seq.ContainsLines(lines, "[0] a"), "Found 2 times")
	assert.NoError(t, seq.ContainsLines(lines))
}
