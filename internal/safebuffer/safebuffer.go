// Package safebuffer provides a bytes.Buffer that can be written from many
// goroutines while being read from another.
package safebuffer

import (
	"bytes"
	"strings"
	"sync"
)

func New() *Buffer {
	return &Buffer{}
}

type Buffer struct {
	mu  sync.RWMutex
	buf bytes.Buffer
}

func (sb *Buffer) Write(bs []byte) (int, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.buf.Write(bs)
}

func (sb *Buffer) String() string {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.buf.String()
}

// Lines splits the buffer's contents on newlines, dropping a trailing empty
// line.
func (sb *Buffer) Lines() []string {
	s := sb.String()
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
