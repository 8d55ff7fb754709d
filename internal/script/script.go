package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/amonks/concurrently/internal/mutex"
)

// Execution is a handle on one launched command. Its output streams are
// pipes owned by the parent; they are never connected to the parent's own
// stdout or stderr.
type Execution struct {
	text   string
	stdout io.ReadCloser
	stderr io.ReadCloser

	mu            *mutex.Mutex
	exited        bool
	err           error
	subscriptions []chan<- error
}

// Start launches text with the given interpreter prefix, such that the
// child's argv is prefix followed by text. It is equivalent to
//
//	$ sh -c "$TEXT"
//
// for the prefix ["sh", "-c"].
//
// Start does not fail. If the process cannot be started, the returned
// Execution has empty streams, and Wait reports the start error.
func Start(prefix []string, text string) *Execution {
	x := &Execution{
		text: text,
		mu:   mutex.New("script"),
	}
	if err := x.start(prefix); err != nil {
		x.stdout, x.stderr = empty(), empty()
		x.exit(err)
	}
	return x
}

// Command returns the command text, without the interpreter prefix.
func (x *Execution) Command() string { return x.text }

// Stdout returns the child's standard output. It reaches EOF once the child
// and every descendant holding the pipe have exited.
func (x *Execution) Stdout() io.ReadCloser { return x.stdout }

// Stderr returns the child's standard error.
func (x *Execution) Stderr() io.ReadCloser { return x.stderr }

// Wait returns a channel that receives the execution's terminal status and
// is then closed. The status is nil only if the process exited with status
// code 0. Wait may be called any number of times, before or after the
// process exits.
func (x *Execution) Wait() <-chan error {
	defer x.mu.Lock("Wait").Unlock()

	c := make(chan error, 1)
	if x.exited {
		c <- x.err
		close(c)
		return c
	}
	x.subscriptions = append(x.subscriptions, c)
	return c
}

func (x *Execution) start(prefix []string) error {
	if len(prefix) == 0 {
		return errors.New("start: no interpreter")
	}
	argv := make([]string, 0, len(prefix))
	argv = append(argv, prefix[1:]...)
	argv = append(argv, x.text)

	cmd := exec.Command(prefix[0], argv...)
	cmd.Stdin = os.Stdin

	outR, outW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return fmt.Errorf("stderr pipe: %w", err)
	}
	cmd.Stdout, cmd.Stderr = outW, errW

	err = cmd.Start()

	// The child has its own copies of the write ends. Ours must be closed,
	// or the read ends never reach EOF.
	outW.Close()
	errW.Close()

	if err != nil {
		outR.Close()
		errR.Close()
		return fmt.Errorf("start: %w", err)
	}

	x.stdout, x.stderr = outR, errR
	go func() { x.exit(wait(cmd)) }()
	return nil
}

func wait(cmd *exec.Cmd) error {
	err := cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{
			Code:  exitErr.ExitCode(),
			State: exitErr.ProcessState.String(),
		}
	} else if err != nil {
		return fmt.Errorf("wait err: %w", err)
	}
	return nil
}

func (x *Execution) exit(err error) {
	defer x.mu.Lock("exit").Unlock()

	x.exited = true
	x.err = err
	for _, sub := range x.subscriptions {
		sub <- err
		close(sub)
	}
	x.subscriptions = nil
}

func empty() io.ReadCloser {
	return io.NopCloser(bytes.NewReader(nil))
}

// ExitError reports a process that ran but did not exit with status 0.
type ExitError struct {
	// Code is the exit status, or -1 if the process was terminated by a
	// signal.
	Code int

	// State describes how the process ended, eg "signal: killed".
	State string
}

func (e *ExitError) Error() string {
	if e.Code >= 0 {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return e.State
}
