package main

import (
	"os"
	"testing"

	"github.com/amonks/concurrently/internal/ansi"
	"github.com/amonks/concurrently/internal/safebuffer"
	"github.com/amonks/concurrently/internal/seq"
	"github.com/amonks/concurrently/internal/shell"
	"github.com/stretchr/testify/assert"
)

func invoke(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv(shell.Env, "")
	stdout, stderr := safebuffer.New(), safebuffer.New()
	code := run(args, stdout, stderr)
	return code, stdout.String(), stderr.String()
}

func TestNoCommands(t *testing.T) {
	code, stdout, stderr := invoke(t)

	assert.Equal(t, 1, code)
	assert.Equal(t, "", stdout)
	assert.Contains(t, stderr, noCommandsMessage)
	assert.Contains(t, ansi.Strip(stderr), "concurrently [flags] <command>...")
}

func TestNoCommandsAfterFlags(t *testing.T) {
	code, _, stderr := invoke(t, "-lines", "-color=never")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, noCommandsMessage)
}

func TestSuccess(t *testing.T) {
	code, stdout, stderr := invoke(t, "-color=never", "echo hi", "echo bye")

	assert.Equal(t, 0, code)
	seq.AssertStringContainsLines(t, stdout, "[0] hi", "[1] bye")
	assert.Equal(t, "", stderr)
}

func TestColorAlwaysIsDefault(t *testing.T) {
	code, stdout, _ := invoke(t, "echo hi")

	assert.Equal(t, 0, code)
	assert.Equal(t, "\x1b[34m[0] hi\n\x1b[0m", stdout)
}

func TestColorAutoWithoutTerminal(t *testing.T) {
	code, stdout, _ := invoke(t, "-color=auto", "echo hi")

	assert.Equal(t, 0, code)
	assert.Equal(t, "[0] hi\n", stdout)
}

func TestFailure(t *testing.T) {
	code, _, _ := invoke(t, "exit 1")
	assert.Equal(t, 1, code)

	code, stdout, _ := invoke(t, "-color=never", "echo ok", "exit 7")
	assert.Equal(t, 1, code)
	assert.Equal(t, "[0] ok\n", stdout)
}

func TestStderr(t *testing.T) {
	code, stdout, stderr := invoke(t, "-color=never", ">&2 echo uh oh")

	assert.Equal(t, 0, code)
	assert.Equal(t, "", stdout)
	assert.Equal(t, "[0] uh oh\n", stderr)
}

func TestBadColor(t *testing.T) {
	code, stdout, stderr := invoke(t, "-color=sometimes", "echo hi")

	assert.Equal(t, 2, code)
	assert.Equal(t, "", stdout)
	assert.Contains(t, stderr, "invalid value for flag -color")
}

func TestUnknownFlag(t *testing.T) {
	code, _, stderr := invoke(t, "-nope", "echo hi")

	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "flag provided but not defined: -nope")
}

func TestHelp(t *testing.T) {
	code, stdout, _ := invoke(t, "-help")

	assert.Equal(t, 0, code)
	plain := ansi.Strip(stdout)
	for _, section := range []string{"USAGE", "FLAGS", "VERSION"} {
		assert.Contains(t, plain, section)
	}
	assert.Contains(t, plain, "-drain=duration")
	assert.Contains(t, plain, `(default "always")`)
}

func TestVersion(t *testing.T) {
	code, stdout, _ := invoke(t, "-version")

	assert.Equal(t, 0, code)
	assert.Contains(t, ansi.Strip(stdout), "Version:")
}

func TestPlainOutput(t *testing.T) {
	plain, err := plainOutput("always", os.Stdout)
	assert.NoError(t, err)
	assert.False(t, plain)

	plain, err = plainOutput("never", os.Stdout)
	assert.NoError(t, err)
	assert.True(t, plain)

	t.Setenv("NO_COLOR", "1")
	plain, err = plainOutput("auto", os.Stdout)
	assert.NoError(t, err)
	assert.True(t, plain)

	_, err = plainOutput("", os.Stdout)
	assert.Error(t, err)
}
