// Lockfinder reads the mutex debug log written when concurrently is run with
// CONCURRENTLY_DEBUG_MUTEX set, and reports which locks were held, and by
// whom, when the log ends. It's useful for diagnosing a hang.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/amonks/concurrently/internal/mutex"
)

var logfile = flag.String("logfile", os.Getenv(mutex.DebugEnv), "Path to the mutex debug log. Defaults to $"+mutex.DebugEnv+".")

func main() {
	flag.Parse()
	if err := run(*logfile, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path string, w io.Writer) error {
	if path == "" {
		return fmt.Errorf("no log file; pass -logfile or set %s", mutex.DebugEnv)
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	l, err := scan(file)
	if err != nil {
		return err
	}

	fmt.Fprint(w, l.report())
	return nil
}

type lockfinder struct {
	// holders maps each lock name to the function holding it, or to ""
	// if the lock is free.
	holders map[string]string
}

func scan(r io.Reader) (*lockfinder, error) {
	l := &lockfinder{holders: map[string]string{}}
	scn := bufio.NewScanner(r)
	for scn.Scan() {
		l.handleLine(scn.Text())
	}
	if err := scn.Err(); err != nil {
		return nil, err
	}
	return l, nil
}

// Lines look like,
//
//	Jan  2 15:04:05.000000000 [merge] done receives lock
//	Jan  2 15:04:05.000000000 [merge] releases lock
var re = regexp.MustCompile(`^(?P<Date>.{25}) \[(?P<Lock>[^\]]+)\] ?(?P<Fn>.*?) ?(?P<Op>seeks|receives|releases) lock$`)

func (l *lockfinder) handleLine(line string) {
	match := re.FindStringSubmatch(line)
	if len(match) == 0 {
		return
	}
	lock, fn, op := match[re.SubexpIndex("Lock")], match[re.SubexpIndex("Fn")], match[re.SubexpIndex("Op")]
	switch op {
	case "receives":
		l.holders[lock] = fn
	case "releases":
		l.holders[lock] = ""
	}
}

func (l *lockfinder) report() string {
	var locks []string
	for lock := range l.holders {
		locks = append(locks, lock)
	}
	sort.Strings(locks)

	var buf strings.Builder
	fmt.Fprintf(&buf, "report\n")
	for _, lock := range locks {
		if fn := l.holders[lock]; fn != "" {
			fmt.Fprintf(&buf, "- %s is held by %s\n", lock, fn)
		}
	}
	for _, lock := range locks {
		if l.holders[lock] == "" {
			fmt.Fprintf(&buf, "- %s is not held\n", lock)
		}
	}
	return buf.String()
}
