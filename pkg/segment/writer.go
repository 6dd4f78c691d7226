package segment

import (
	"errors"
)

var errWriterClosed = errors.New("segment writer already closed")

// Writer is the incremental form of Segment: bytes written to it are cut into
// chunks as soon as enough of them have accumulated, with the remainder
// carried over to the next Write. Close emits the final short chunk, if any,
// followed by the completion event.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	*emitter
	size int

	// pending holds the carry-over; len(pending) is the cursor and is always
	// strictly less than size between calls
	pending []byte
	written int64

	err    error // sticky
	closed bool
}

// NewWriter returns a Writer delivering chunks of size bytes to h.
func NewWriter(size int, h Handler) (*Writer, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	if h == nil {
		h = HandlerFuncs{}
	}
	return &Writer{
		emitter: &emitter{h: h},
		size:    size,
	}, nil
}

// Write accepts p in its entirety unless the Handler fails, in which case the
// Handler error is returned and becomes sticky.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errWriterClosed
	}
	if w.err != nil {
		return 0, w.err
	}

	w.written += int64(len(p))

	if len(w.pending)+len(p) < w.size {
		if w.pending == nil {
			w.pending = make([]byte, 0, w.size)
		}
		w.pending = append(w.pending, p...)
		return len(p), nil
	}

	var consumed int

	// carry-over: the previously pending prefix joined with the head of p
	if len(w.pending) > 0 {
		c := make([]byte, w.size)
		n := copy(c, w.pending)
		consumed = copy(c[n:], p)
		w.pending = w.pending[:0]
		if err := w.chunk(c); err != nil {
			w.err = err
			return consumed, err
		}
	}

	for len(p)-consumed >= w.size {
		c := make([]byte, w.size)
		consumed += copy(c, p[consumed:])
		if err := w.chunk(c); err != nil {
			w.err = err
			return consumed, err
		}
	}

	if consumed < len(p) {
		if w.pending == nil {
			w.pending = make([]byte, 0, w.size)
		}
		w.pending = append(w.pending, p[consumed:]...)
	}

	return len(p), nil
}

// flush emits whatever is pending as the final chunk, without completion
func (w *Writer) flush() error {
	if len(w.pending) == 0 {
		return nil
	}
	c := make([]byte, len(w.pending))
	copy(c, w.pending)
	w.pending = w.pending[:0]
	if err := w.chunk(c); err != nil {
		w.err = err
		return err
	}
	return nil
}

// Close flushes the final chunk and emits the completion event. Subsequent
// calls return an error without emitting anything.
func (w *Writer) Close() error {
	if w.closed {
		return errWriterClosed
	}
	w.closed = true

	if w.err != nil {
		return w.err
	}
	if err := w.flush(); err != nil {
		return err
	}
	return w.complete()
}

// Buffered returns the amount of bytes carried over to the next chunk.
func (w *Writer) Buffered() int { return len(w.pending) }

// Pending returns a copy of the bytes carried over to the next chunk.
func (w *Writer) Pending() []byte {
	return append([]byte(nil), w.pending...)
}

// Written returns the total amount of bytes accepted so far.
func (w *Writer) Written() int64 { return w.written }

// Emitted returns the total amount of bytes delivered in chunks so far.
func (w *Writer) Emitted() int64 { return w.total }
