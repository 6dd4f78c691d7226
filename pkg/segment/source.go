package segment

import (
	"errors"
	"io"
)

// Source is a byte source that can be segmented. Use one of the From*
// constructors to obtain one.
type Source interface {
	segment(size int, e *emitter) error
}

// Bounded is a random-access buffer of known length. Slice may alias the
// underlying storage: chunks are always copied out of it.
type Bounded interface {
	Len() int
	Slice(start, end int) []byte
}

// FromBytes returns a Source over an in-memory slice. The slice is not
// modified, and must not be modified while segmentation is in progress.
func FromBytes(b []byte) Source { return bytesSource(b) }

// FromBounded returns a Source over a random-access buffer.
func FromBounded(b Bounded) Source { return boundedSource{b} }

// FromReaderAt returns a Source reading size bytes from ra, starting at
// offset 0. Read errors abort the segmentation with an *IoFailure.
func FromReaderAt(ra io.ReaderAt, size int64) Source {
	return readerAtSource{ra: ra, size: size}
}

// FromReader returns a Source consuming r incrementally, at most one chunk
// worth of bytes per Read call. r is not closed.
func FromReader(r io.Reader) Source { return readerSource{r} }

type bytesSource []byte

func (s bytesSource) segment(size int, e *emitter) error {
	for off := 0; off < len(s); off += size {
		end := min(off+size, len(s))
		c := make([]byte, end-off)
		copy(c, s[off:end])
		if err := e.chunk(c); err != nil {
			return err
		}
	}
	return nil
}

type boundedSource struct{ b Bounded }

func (s boundedSource) segment(size int, e *emitter) error {
	if s.b == nil {
		return errNilSource
	}
	l := s.b.Len()
	for off := 0; off < l; off += size {
		end := min(off+size, l)
		c := make([]byte, end-off)
		copy(c, s.b.Slice(off, end))
		if err := e.chunk(c); err != nil {
			return err
		}
	}
	return nil
}

type readerAtSource struct {
	ra   io.ReaderAt
	size int64
}

func (s readerAtSource) segment(size int, e *emitter) error {
	if s.ra == nil {
		return errNilSource
	}
	for off := int64(0); off < s.size; off += int64(size) {
		c := make([]byte, min(int64(size), s.size-off))

		n, err := s.ra.ReadAt(c, off)
		// ReaderAt may legitimately return io.EOF alongside the very last bytes
		if n == len(c) && (err == nil || errors.Is(err, io.EOF)) {
			err = nil
		} else if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		if err != nil {
			return &IoFailure{
				Read:    off + int64(n),
				Emitted: e.total,
				Pending: c[:n],
				Err:     err,
			}
		}

		if err := e.chunk(c); err != nil {
			return err
		}
	}
	return nil
}

// same limit bufio applies before giving up with io.ErrNoProgress
const maxConsecutiveEmptyReads = 100

type readerSource struct{ r io.Reader }

func (s readerSource) segment(size int, e *emitter) error {
	if s.r == nil {
		return errNilSource
	}

	w := &Writer{size: size, emitter: e}
	scratch := make([]byte, size)

	var emptyReads int
	for {
		n, err := s.r.Read(scratch)
		if n > 0 {
			emptyReads = 0
			if _, werr := w.Write(scratch[:n]); werr != nil {
				return werr
			}
		} else if err == nil {
			if emptyReads++; emptyReads >= maxConsecutiveEmptyReads {
				err = io.ErrNoProgress
			}
		}

		if err == io.EOF {
			return w.flush()
		} else if err != nil {
			return &IoFailure{
				Read:    w.written,
				Emitted: e.total,
				Pending: w.Pending(),
				Err:     err,
			}
		}
	}
}
