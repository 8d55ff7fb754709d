package mutex

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var instances atomic.Int64

// New creates a named Mutex. The name, suffixed with a number unique to
// this Mutex, prefixes every line the mutex writes to the debug log.
func New(name string) *Mutex {
	mu := &Mutex{name: fmt.Sprintf("%s#%d", name, instances.Add(1))}
	mu.Printf("--- begin ---")
	return mu
}

// Mutex wraps sync.Mutex, providing these additional features:
//   - You can `defer Lock(...).Unlock()` in a single line
//   - If CONCURRENTLY_DEBUG_MUTEX names a file, lock traffic is appended to
//     that file.
//   - You can log additional info to the debug file with [Mutex.Printf].
type Mutex struct {
	name string
	mu   sync.Mutex
}

// DebugEnv names the environment variable that enables the debug log.
const DebugEnv = "CONCURRENTLY_DEBUG_MUTEX"

var (
	openLog sync.Once
	logMu   sync.Mutex
	logfile *os.File
)

func debugLog() *os.File {
	openLog.Do(func() {
		path := os.Getenv(DebugEnv)
		if path == "" {
			return
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mutex: cannot open debug log: %s\n", err)
			return
		}
		logfile = f
	})
	return logfile
}

// Lock acquires the mutex on behalf of the caller named by name, and
// returns the mutex so that it can be unlocked with a deferred call.
func (mu *Mutex) Lock(name string) *Mutex {
	mu.Printf("%s seeks lock", name)
	mu.mu.Lock()
	mu.Printf("%s receives lock", name)

	return mu
}

func (mu *Mutex) Unlock() {
	mu.Printf("releases lock")
	mu.mu.Unlock()
}

// Printf writes a line to the debug log, if there is one. Only s is a
// format string; the mutex's name is written as is.
func (mu *Mutex) Printf(s string, args ...interface{}) {
	f := debugLog()
	if f == nil {
		return
	}
	msg := strings.TrimSpace(fmt.Sprintf(s, args...))
	d := time.Now().Format(time.StampNano)

	logMu.Lock()
	defer logMu.Unlock()
	fmt.Fprintf(f, "%s [%s] %s\n", d, mu.name, msg)
}
