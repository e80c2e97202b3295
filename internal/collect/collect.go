// Package collect drains output streams to end-of-stream in the background.
package collect

import (
	"fmt"
	"io"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Handle is the future result of a collector started with Start.
type Handle struct {
	done chan struct{}
	text string
	err  error
}

// Start launches a goroutine that accumulates everything readable from r
// until end-of-stream and decodes it as UTF-8 text. Ill-formed byte
// sequences are replaced with U+FFFD rather than rejected, so decoding
// itself never fails. Start returns immediately; the caller collects the
// final text through the returned handle.
func Start(r io.Reader) *Handle {
	h := &Handle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		data, err := io.ReadAll(transform.NewReader(r, runes.ReplaceIllFormed()))
		if err != nil {
			h.err = fmt.Errorf("draining output stream: %w", err)
			return
		}
		h.text = string(data)
	}()
	return h
}

// Wait blocks until the stream reached end-of-stream and returns the
// accumulated text. A failure while reading the underlying stream is
// returned as an error; the partial text is discarded.
func (h *Handle) Wait() (string, error) {
	<-h.done
	return h.text, h.err
}
