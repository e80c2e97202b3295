// Package pipe implements an in-process unidirectional byte channel
// connecting a single writer to a single reader.
//
// A pipe decouples a producer from a consumer so that output of unknown
// length never has to be buffered by the producer itself. Writes suspend
// under backpressure once the chunk buffer is full, and closing the write
// end is the sole end-of-stream signal observed by the reader.
//
// Each end is owned by exactly one goroutine: methods on Writer must not
// be called concurrently with each other, and likewise for Reader. The
// two ends may safely be driven from different goroutines.
package pipe

import (
	"io"
	"sync"
)

// chunkSlots bounds the number of in-flight write chunks before a writer
// suspends. Each Write occupies one slot regardless of its size, so a
// producer's input can always be supplied in full with a single Write
// before any consumer is running.
const chunkSlots = 64

// Reader is the read end of a pipe. It implements io.Reader and io.Closer.
type Reader struct {
	ch   <-chan []byte
	gone chan struct{}
	once sync.Once
	buf  []byte
	eof  bool
}

// Writer is the write end of a pipe. It implements io.Writer and io.Closer.
type Writer struct {
	ch     chan<- []byte
	gone   <-chan struct{}
	closed chan struct{}
	once   sync.Once
}

// New creates a connected pipe and returns its two ends.
func New() (*Reader, *Writer) {
	ch := make(chan []byte, chunkSlots)
	gone := make(chan struct{})
	return &Reader{ch: ch, gone: gone}, &Writer{ch: ch, gone: gone, closed: make(chan struct{})}
}

// Write copies p into the pipe. It blocks while the chunk buffer is full
// and returns io.ErrClosedPipe if either end has been closed: a closed
// read end means no consumer can ever drain the bytes, and a write after
// the writer's own Close is an executor fault that must surface as an
// I/O error rather than a crash.
func (w *Writer) Write(p []byte) (int, error) {
	select {
	case <-w.closed:
		return 0, io.ErrClosedPipe
	case <-w.gone:
		return 0, io.ErrClosedPipe
	default:
	}
	if len(p) == 0 {
		return 0, nil
	}
	chunk := make([]byte, len(p))
	copy(chunk, p)
	select {
	case <-w.gone:
		return 0, io.ErrClosedPipe
	case w.ch <- chunk:
		return len(p), nil
	}
}

// WriteString writes s to the pipe.
func (w *Writer) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Close signals end-of-stream to the reader. Any bytes already written
// remain readable. Close is idempotent and always returns nil.
func (w *Writer) Close() error {
	w.once.Do(func() {
		close(w.closed)
		close(w.ch)
	})
	return nil
}

// Read fills p with buffered bytes, blocking until the writer supplies a
// chunk or closes its end. After end-of-stream it returns io.EOF.
func (r *Reader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.eof {
			return 0, io.EOF
		}
		chunk, ok := <-r.ch
		if !ok {
			r.eof = true
			return 0, io.EOF
		}
		r.buf = chunk
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// ReadToEnd blocks until end-of-stream and returns every byte written,
// in write order.
func (r *Reader) ReadToEnd() ([]byte, error) {
	return io.ReadAll(r)
}

// Close discards the read end. Pending and future writes fail with
// io.ErrClosedPipe instead of blocking forever on a consumer that will
// never arrive. Close is idempotent and always returns nil.
func (r *Reader) Close() error {
	r.once.Do(func() { close(r.gone) })
	return nil
}
