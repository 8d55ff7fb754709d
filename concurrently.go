// Concurrently runs several shell commands at once, and multiplexes their
// output into a single pair of streams. Every chunk of output is tagged with
// the index of the command that produced it, in a color chosen by that
// index, so that interleaved output from long-running processes (like a
// handful of dev servers) stays legible.
//
// # Conceptual Overview
//
//  1. Each command is passed to the user's shell, as in `$SHELL -c "$CMD"`.
//  2. All of the commands' stdouts are merged into one stream, and all of
//     their stderrs into another.
//  3. Once every command has exited, [Run] reports each command's status.
//     The run failed if any command failed.
//
// Concurrently never exits the process itself. The command-line tool in
// cmd/concurrently turns a [Report] into an exit code.
package concurrently

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/amonks/concurrently/internal/color"
	"github.com/amonks/concurrently/internal/merge"
	"github.com/amonks/concurrently/internal/script"
	"github.com/amonks/concurrently/internal/shell"
	"github.com/amonks/concurrently/internal/styles"
	"github.com/charmbracelet/lipgloss"
)

// ErrNoCommands is returned by [Run] when it is given nothing to run.
var ErrNoCommands = errors.New("please provide at least one shell command")

// Config controls a [Run]. The zero Config runs commands with `sh -c`,
// writes colored chunks to os.Stdout and os.Stderr, and waits for all
// output to be relayed.
type Config struct {
	// Shell is the path of the interpreter to run commands with, usually
	// taken from $SHELL. PowerShell and cmd.exe are recognized by name.
	// If empty, commands are run with `sh -c`.
	Shell string

	// Merged output is written to Stdout and Stderr. Nil means os.Stdout
	// and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer

	// Plain disables escape sequences; chunks are tagged "[i] " only.
	Plain bool

	// Lines tags each line of output rather than each chunk.
	Lines bool

	// Verbose writes a line to Stderr as each command is launched, and a
	// summary of every command's status at the end.
	Verbose bool

	// DrainTimeout bounds how long Run waits, after the last command
	// exits, for output to be closed. Output stays open as long as any
	// background process started by a command holds it; once the timeout
	// passes, such output is no longer relayed. Output read before then is
	// always written in full, however slow Stdout and Stderr are. Zero
	// means wait indefinitely.
	DrainTimeout time.Duration
}

// Status is the outcome of one command.
type Status struct {
	// Index is the command's position in the list given to Run. It is
	// the number in the command's output tags.
	Index int

	Command string

	// Err is nil if the command exited with status 0. Otherwise it is a
	// *script.ExitError, or an error explaining why the command could not
	// be started.
	Err error
}

// Report holds a Status for every command, in input order.
type Report struct {
	Statuses []Status
}

// Failed reports whether any command failed.
func (r *Report) Failed() bool {
	for _, s := range r.Statuses {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// ExitCode is 1 if any command failed, and 0 otherwise.
func (r *Report) ExitCode() int {
	if r.Failed() {
		return 1
	}
	return 0
}

// Err joins every command's error, or returns nil if every command
// succeeded.
func (r *Report) Err() error {
	var errs []error
	for _, s := range r.Statuses {
		if s.Err != nil {
			errs = append(errs, fmt.Errorf("[%d] %s: %w", s.Index, s.Command, s.Err))
		}
	}
	return errors.Join(errs...)
}

// Run runs every command concurrently, relays their tagged output, and
// returns once every command has exited and its output has been written.
//
// The returned error is non-nil only if no commands were given. Failures of
// individual commands are recorded in the Report; one command failing never
// affects the others.
func Run(cfg Config, commands []string) (*Report, error) {
	if len(commands) == 0 {
		return nil, ErrNoCommands
	}

	stdout, stderr := cfg.Stdout, cfg.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	prefix := shell.Prefix(cfg.Shell)

	execs := make([]*script.Execution, len(commands))
	var wg sync.WaitGroup
	for i, command := range commands {
		wg.Add(1)
		go func() {
			defer wg.Done()
			execs[i] = script.Start(prefix, command)
		}()
	}
	wg.Wait()

	if cfg.Verbose {
		for i, x := range execs {
			printf(stderr, styles.Log, "[%d] %s %q", i, strings.Join(prefix, " "), x.Command())
		}
	}

	var opts []merge.Option
	if cfg.Lines {
		opts = append(opts, merge.Lines())
	}
	outs, errs := make([]io.Reader, len(execs)), make([]io.Reader, len(execs))
	for i, x := range execs {
		outs[i], errs[i] = x.Stdout(), x.Stderr()
	}
	stdoutMerge := merge.New(outs, color.Tagger{Plain: cfg.Plain}, opts...)
	stderrMerge := merge.New(errs, color.Tagger{Stderr: true, Plain: cfg.Plain}, opts...)
	stdoutDone := forward(stdout, stdoutMerge)
	stderrDone := forward(stderr, stderrMerge)

	report := &Report{Statuses: make([]Status, len(execs))}
	for i, x := range execs {
		report.Statuses[i] = Status{
			Index:   i,
			Command: x.Command(),
			Err:     <-x.Wait(),
		}
	}

	// The timeout bounds how long the streams stay open after the last
	// exit, not how long relaying takes: a slow writer gets everything that
	// was read before the deadline.
	detached := !awaitAll(cfg.DrainTimeout, stdoutMerge.Done(), stderrMerge.Done())
	if detached {
		// Some descendant still holds a stream open. Stop relaying it;
		// whatever it writes from here on is discarded.
		stdoutMerge.Detach()
		stderrMerge.Detach()
	}
	<-stdoutDone
	<-stderrDone

	if detached && cfg.Verbose {
		printf(stderr, styles.Log, "output still open %s after exit; detached", cfg.DrainTimeout)
	}

	if cfg.Verbose {
		for _, s := range report.Statuses {
			if s.Err != nil {
				printf(stderr, styles.Failed, "[%d] failed: %s", s.Index, s.Err)
			} else {
				printf(stderr, styles.Log, "[%d] done", s.Index)
			}
		}
	}

	return report, nil
}

// forward copies m to w until m ends. If w fails, m is closed so that its
// sources keep draining.
func forward(w io.Writer, m *merge.Merger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := io.Copy(w, m); err != nil {
			m.Close()
		}
	}()
	return done
}

// awaitAll waits for every channel to close, giving up after timeout. A
// zero timeout never gives up. It reports whether every channel closed.
func awaitAll(timeout time.Duration, chans ...<-chan struct{}) bool {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	for _, c := range chans {
		select {
		case <-c:
		case <-deadline:
			return false
		}
	}
	return true
}

func printf(w io.Writer, style lipgloss.Style, f string, args ...interface{}) {
	str := style.Render(fmt.Sprintf(f, args...))
	fmt.Fprintln(w, str)
}
