// Package shell chooses the interpreter that runs a command string.
package shell

import (
	"os"
	"strings"
)

// Env is the environment variable naming the user's preferred shell.
const Env = "SHELL"

// Prefix returns the interpreter invocation for the given shell path, as
// [executable, flag]. Appending a single command string to the returned
// slice produces a complete argv.
//
//	pwsh.exe, powershell.exe  ->  [shell, "-Command"]
//	cmd.exe                   ->  [shell, "/C"]
//	anything else             ->  [shell, "-c"]
//	""                        ->  ["sh", "-c"]
func Prefix(shellPath string) []string {
	switch {
	case strings.HasSuffix(shellPath, "pwsh.exe"),
		strings.HasSuffix(shellPath, "powershell.exe"):
		return []string{shellPath, "-Command"}
	case strings.HasSuffix(shellPath, "cmd.exe"):
		return []string{shellPath, "/C"}
	case shellPath != "":
		return []string{shellPath, "-c"}
	default:
		return []string{"sh", "-c"}
	}
}

// FromEnv returns the Prefix for the shell named by $SHELL.
func FromEnv() []string {
	return Prefix(os.Getenv(Env))
}
