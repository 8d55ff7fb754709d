package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"time"

	"github.com/amonks/concurrently"
	"github.com/amonks/concurrently/internal/shell"
	"github.com/amonks/concurrently/internal/styles"
	"github.com/carlmjohnson/versioninfo"
	"github.com/muesli/reflow/dedent"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

func main() {
	interrupts := make(chan os.Signal, 2)
	signal.Notify(interrupts, os.Interrupt)
	go func() {
		// ctrl+c reaches the whole foreground process group, so the
		// commands see it themselves. We stay up to relay their last
		// words and report their exit statuses. A second ctrl+c means
		// the user is done waiting.
		<-interrupts
		<-interrupts
		os.Exit(1)
	}()

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

const noCommandsMessage = "Please provide at least one shell command."

type options struct {
	color   string
	lines   bool
	verbose bool
	drain   time.Duration
	version bool
	help    bool
}

func newFlagSet(o *options) *flag.FlagSet {
	f := flag.NewFlagSet("concurrently", flag.ContinueOnError)
	f.StringVar(&o.color, "color", "always", "When to color output tags. Legal values are 'always', 'auto', and 'never'. With 'auto', tags are colored only if stdout is a terminal and NO_COLOR is unset.")
	f.BoolVar(&o.lines, "lines", false, "Tag every line of output, rather than every chunk as it is read.")
	f.BoolVar(&o.verbose, "verbose", false, "Print each command as it is launched, and each command's exit status at the end.")
	f.DurationVar(&o.drain, "drain", time.Second, "After the last command exits, how long to wait for background processes that still hold its output open. 0 waits forever.")
	f.BoolVar(&o.version, "version", false, "Display the version and exit.")
	f.BoolVar(&o.help, "help", false, "Display the help text and exit.")
	return f
}

// run is main, minus the process lifecycle. It returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var o options
	f := newFlagSet(&o)
	f.SetOutput(stderr)
	f.Usage = func() {
		fmt.Fprintln(stderr, "")
		fmt.Fprintln(stderr, usageText())
		fmt.Fprintln(stderr, flagText(f))
	}
	if err := f.Parse(args); errors.Is(err, flag.ErrHelp) {
		return 0
	} else if err != nil {
		return 2
	}

	if o.version {
		fmt.Fprintln(stdout, versionText())
		return 0
	} else if o.help {
		fmt.Fprintln(stdout, "\n"+helpText(f))
		return 0
	}

	plain, err := plainOutput(o.color, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 2
	}

	report, err := concurrently.Run(concurrently.Config{
		Shell:        os.Getenv(shell.Env),
		Stdout:       stdout,
		Stderr:       stderr,
		Plain:        plain,
		Lines:        o.lines,
		Verbose:      o.verbose,
		DrainTimeout: o.drain,
	}, f.Args())
	if errors.Is(err, concurrently.ErrNoCommands) {
		fmt.Fprintln(stderr, noCommandsMessage)
		fmt.Fprintln(stderr, "")
		fmt.Fprint(stderr, usageText())
		return 1
	} else if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}

	return report.ExitCode()
}

// plainOutput decides, from the -color flag, whether tags should be
// rendered without escape sequences.
func plainOutput(mode string, stdout io.Writer) (bool, error) {
	switch mode {
	case "always":
		return false, nil
	case "never":
		return true, nil
	case "auto":
		if termenv.EnvNoColor() {
			return true, nil
		}
		f, ok := stdout.(*os.File)
		return !ok || !term.IsTerminal(int(f.Fd())), nil
	default:
		return false, fmt.Errorf("invalid value for flag -color: %q; legal values are 'always', 'auto', and 'never'", mode)
	}
}

func helpText(f *flag.FlagSet) string {
	b := &strings.Builder{}
	b.WriteString(wordwrap.String(dedent.String(description), 72))
	b.WriteString("\n")
	b.WriteString(usageText())
	b.WriteString("\n")
	b.WriteString(flagText(f))
	b.WriteString("\n")
	b.WriteString(versionText())
	return b.String()
}

const description = `
	Concurrently runs each of its arguments as a shell command, all at the same time. Their output is interleaved into this terminal, and every chunk is tagged with the index of the command that wrote it. Output on stderr is tagged in bold red.

	Commands run in $SHELL, or in sh if SHELL is unset. Concurrently exits with status 1 if any command fails, and 0 otherwise.
`

func usageText() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, styles.Header.Render("USAGE"))
	b.WriteString("  concurrently [flags] <command>...\n")
	b.WriteString("\n")
	fmt.Fprintln(b, styles.Header.Render("EXAMPLE"))
	b.WriteString(`  concurrently "npm run dev" "go run ./cmd/server"` + "\n")
	return b.String()
}

func flagText(f *flag.FlagSet) string {
	var b strings.Builder
	fmt.Fprintln(&b, styles.Header.Render("FLAGS"))

	f.VisitAll(func(f *flag.Flag) {
		fmt.Fprintf(&b, "  -%s", f.Name)
		name, usage := flag.UnquoteUsage(f)
		if len(name) > 0 {
			b.WriteString("=")
			b.WriteString(name)
		}
		// Print the default value only if it differs to the zero value
		// for this flag type.
		if isZero := isZeroValue(f, f.DefValue); !isZero {
			fmt.Fprintf(&b, " (default %q)", f.DefValue)
		}
		b.WriteString("\n")

		usage = wordwrap.String(usage, 52)
		b.WriteString(indent.String(styles.Italic.Render(usage), 8))

		b.WriteString("\n")
	})
	return b.String()
}

// isZeroValue determines whether the string represents the zero
// value for a flag.
func isZeroValue(f *flag.Flag, value string) bool {
	// Build a zero value of the flag's Value type, and see if the
	// result of calling its String method equals the value passed in.
	// This works unless the Value type is itself an interface type.
	typ := reflect.TypeOf(f.Value)
	var z reflect.Value
	if typ.Kind() == reflect.Pointer {
		z = reflect.New(typ.Elem())
	} else {
		z = reflect.Zero(typ)
	}
	return value == z.Interface().(flag.Value).String()
}

func versionText() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, styles.Header.Render("VERSION"))
	fmt.Fprintln(b, "  Version:", versioninfo.Version)
	if versioninfo.Revision != "unknown" {
		if versioninfo.DirtyBuild {
			fmt.Fprintln(b, "  Dirty Build")
			fmt.Fprintln(b, "  Last commit:", versioninfo.LastCommit.Format(time.DateOnly))
		} else {
			fmt.Fprintln(b, "  Revision:", versioninfo.Revision)
			fmt.Fprintln(b, "  Committed:", versioninfo.LastCommit.Format(time.DateOnly))
		}
	}
	return b.String()
}
