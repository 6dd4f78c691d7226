// Package charcount provides the character-counting chunkers. A stream is
// accumulated in full, then split on rune or grapheme cluster boundaries.
package charcount

import (
	"errors"
	"io"

	"github.com/anjor/chunkbuf/pkg/deferbuf"
	"github.com/anjor/chunkbuf/pkg/segment"
)

type config struct {
	Count int `getopt:"--count=[1:MaxPayload] Amount of characters in each chunk, the last chunk may hold fewer"`
}

type textChunker struct {
	config
	mode segment.TextMode
}

func (c *textChunker) NewWriter(h segment.Handler) (io.WriteCloser, error) {
	if c.Count < 1 {
		return nil, segment.ErrInvalidConfiguration
	}
	return &streamText{chunker: c, h: h, buf: deferbuf.New()}, nil
}

var errClosed = errors.New("text chunk writer already closed")

// streamText collects the stream until Close, since a character may span
// any number of writes
type streamText struct {
	chunker *textChunker
	h       segment.Handler
	buf     *deferbuf.Buffer
	closed  bool
}

func (st *streamText) Write(p []byte) (int, error) {
	if st.closed {
		return 0, errClosed
	}
	return st.buf.Write(p)
}

func (st *streamText) Close() error {
	if st.closed {
		return errClosed
	}
	st.closed = true

	content := st.buf.Bytes()
	st.buf.Reset()

	return segment.Segment(
		segment.FromText(string(content), segment.WithTextMode(st.chunker.mode)),
		st.chunker.Count,
		st.h,
	)
}
