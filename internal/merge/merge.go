// Package merge multiplexes many byte streams into one, tagging every chunk
// with the index of the stream it came from.
package merge

import (
	"bufio"
	"errors"
	"io"

	"github.com/amonks/concurrently/internal/color"
	"github.com/amonks/concurrently/internal/mutex"
)

const (
	chunkSize = 32 * 1024

	// Lines longer than this are tagged in pieces.
	maxLine = 64 * 1024
)

// Option configures a Merger.
type Option func(*Merger)

// Lines tags each line of each stream separately instead of each chunk
// read from it. A final line with no newline is tagged when its stream
// ends.
func Lines() Option {
	return func(m *Merger) { m.lines = true }
}

// Merger is a single readable stream fed by many sources. It is closed, with
// EOF, once every source has ended and everything read from them has been
// delivered.
//
// Sources are read concurrently and chunks are forwarded in the order they
// are read, so output from different sources interleaves in no particular
// order. Output from any one source stays in order.
//
// Sources are never held back by the consumer: tagged chunks queue up
// until the consumer reads them, so a source can reach its end long before
// its output is delivered. [Merger.Done] reports the former.
type Merger struct {
	tagger color.Tagger
	lines  bool

	r *io.PipeReader
	w *io.PipeWriter

	// wake has room for one pending signal, so a chunk queued while the
	// forwarder is busy is never missed.
	wake chan struct{}

	// sourcesDone is closed once no more chunks will be queued.
	sourcesDone chan struct{}

	mu        *mutex.Mutex
	queue     [][]byte
	remaining int
	ended     bool
	err       error
}

var _ io.ReadCloser = &Merger{}

// New starts reading every stream in streams. Chunks from streams[i] are
// tagged as stream i using tagger.
func New(streams []io.Reader, tagger color.Tagger, opts ...Option) *Merger {
	r, w := io.Pipe()
	m := &Merger{
		tagger:      tagger,
		r:           r,
		w:           w,
		wake:        make(chan struct{}, 1),
		sourcesDone: make(chan struct{}),
		mu:          mutex.New("merge"),
		remaining:   len(streams),
	}
	for _, opt := range opts {
		opt(m)
	}

	if len(streams) == 0 {
		m.end()
	}
	for i, s := range streams {
		go m.drain(i, s)
	}
	go m.forward()
	return m
}

// Read reads tagged output. It returns io.EOF once every source has ended
// and all of their output has been read.
func (m *Merger) Read(p []byte) (int, error) {
	return m.r.Read(p)
}

// Close stops delivering output. Sources continue to be read until they
// end, and what is read from them is discarded, so that writers on the far
// side of a source never block.
func (m *Merger) Close() error {
	return m.r.Close()
}

// Done returns a channel that is closed once every source has ended, or
// once the merger is detached. Output read before then may still be
// waiting to be delivered.
func (m *Merger) Done() <-chan struct{} {
	return m.sourcesDone
}

// Detach stops taking output from sources that are still open, as though
// they had all ended. Whatever was already read from them is still
// delivered before Read returns io.EOF. Sources continue to be read, and
// anything read from them from now on is discarded.
func (m *Merger) Detach() {
	defer m.mu.Lock("Detach").Unlock()
	if !m.ended {
		m.mu.Printf("detached with %d sources open", m.remaining)
		m.end()
	}
}

// Err returns the first read error encountered on any source. A source that
// fails counts as ended; its error does not stop the merge.
func (m *Merger) Err() error {
	defer m.mu.Lock("Err").Unlock()
	return m.err
}

func (m *Merger) drain(i int, src io.Reader) {
	defer m.done()

	var err error
	if m.lines {
		err = m.drainLines(i, src)
	} else {
		err = m.drainChunks(i, src)
	}
	if err != nil {
		m.fail(err)
	}
}

func (m *Merger) drainChunks(i int, src io.Reader) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			m.emit(i, buf[:n])
		}
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}
	}
}

func (m *Merger) drainLines(i int, src io.Reader) error {
	br := bufio.NewReaderSize(src, maxLine)
	for {
		line, err := br.ReadSlice('\n')
		if len(line) > 0 {
			m.emit(i, line)
		}
		switch {
		case err == nil, errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			return nil
		default:
			return err
		}
	}
}

// emit queues one tagged chunk for delivery. Once the merger is detached,
// the chunk is dropped.
func (m *Merger) emit(i int, chunk []byte) {
	tagged := m.tagger.Tag(i, chunk)

	defer m.mu.Lock("emit").Unlock()
	if m.ended {
		return
	}
	m.queue = append(m.queue, tagged)
	m.signal()
}

// forward delivers queued chunks to the output pipe until the sources are
// done and the queue is empty, then closes the pipe. It is the only writer.
// Once the reader is closed, writes fail immediately and chunks are
// dropped.
func (m *Merger) forward() {
	defer m.w.Close()
	for {
		batch, ended := m.take()
		for _, chunk := range batch {
			m.w.Write(chunk)
		}
		if len(batch) > 0 {
			continue
		}
		if ended {
			return
		}
		<-m.wake
	}
}

func (m *Merger) take() ([][]byte, bool) {
	defer m.mu.Lock("take").Unlock()
	batch := m.queue
	m.queue = nil
	return batch, m.ended
}

func (m *Merger) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Merger) fail(err error) {
	defer m.mu.Lock("fail").Unlock()
	if m.err == nil {
		m.err = err
	}
}

func (m *Merger) done() {
	defer m.mu.Lock("done").Unlock()

	m.remaining--
	if m.remaining == 0 && !m.ended {
		m.mu.Printf("all sources done")
		m.end()
	}
}

// end is called at most once, with mu held or before any goroutine starts.
func (m *Merger) end() {
	m.ended = true
	close(m.sourcesDone)
	m.signal()
}
