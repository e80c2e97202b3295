package pipe

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipe_PreservesWriteOrder(t *testing.T) {
	r, w := New()

	_, err := w.WriteString("first ")
	require.NoError(t, err)
	_, err = w.WriteString("second ")
	require.NoError(t, err)
	_, err = w.WriteString("third")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := r.ReadToEnd()
	require.NoError(t, err)
	assert.Equal(t, "first second third", string(data))
}

func TestPipe_CloseSignalsEndOfStream(t *testing.T) {
	r, w := New()
	require.NoError(t, w.Close())

	data, err := r.ReadToEnd()
	require.NoError(t, err)
	assert.Empty(t, data)

	// Reading past end-of-stream keeps returning io.EOF.
	n, err := r.Read(make([]byte, 8))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestPipe_BufferedBytesSurviveWriterClose(t *testing.T) {
	r, w := New()
	_, err := w.WriteString("leftover")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := r.ReadToEnd()
	require.NoError(t, err)
	assert.Equal(t, "leftover", string(data))
}

func TestPipe_WriteAfterReaderClosed(t *testing.T) {
	r, w := New()
	require.NoError(t, r.Close())

	_, err := w.WriteString("nobody is listening")
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestPipe_WriteAfterWriterClosed(t *testing.T) {
	r, w := New()
	require.NoError(t, w.Close())

	// A faulty producer writing past its own end-of-stream gets an I/O
	// error, never a crash.
	_, err := w.WriteString("late")
	assert.ErrorIs(t, err, io.ErrClosedPipe)

	_, err = w.Write(nil)
	assert.ErrorIs(t, err, io.ErrClosedPipe)

	data, err := r.ReadToEnd()
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestPipe_ReaderCloseUnblocksPendingWrite(t *testing.T) {
	r, w := New()

	errs := make(chan error, 1)
	go func() {
		// Fill every chunk slot, then one more write that must block.
		for i := 0; i <= chunkSlots; i++ {
			if _, err := w.WriteString("x"); err != nil {
				errs <- err
				return
			}
		}
		errs <- nil
	}()

	// Give the writer time to fill the buffer and block.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, r.Close())

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, io.ErrClosedPipe)
	case <-time.After(2 * time.Second):
		t.Fatal("writer still blocked after reader was closed")
	}
}

func TestPipe_BackpressureReleasedByReader(t *testing.T) {
	r, w := New()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < chunkSlots*2; i++ {
			if _, err := w.WriteString("y"); err != nil {
				return
			}
		}
		w.Close()
	}()

	data, err := r.ReadToEnd()
	require.NoError(t, err)
	assert.Len(t, data, chunkSlots*2)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writer never finished")
	}
}

func TestPipe_EmptyWriteIsNoop(t *testing.T) {
	r, w := New()
	n, err := w.Write(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, w.Close())
	data, err := r.ReadToEnd()
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestPipe_CloseIsIdempotent(t *testing.T) {
	r, w := New()
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}

func TestPipe_SingleWriteNeverBlocksWithoutConsumer(t *testing.T) {
	// A producer's whole input occupies one chunk slot, so supplying it
	// before any consumer exists must not deadlock.
	_, w := New()
	big := make([]byte, 1<<20)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = w.Write(big)
		_ = w.Close()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("single large write blocked without a consumer")
	}
}
