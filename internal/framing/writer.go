package framing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

var errWriterClosed = errors.New("frames writer already closed")

// Writer emits a frames stream. It does not close the underlying io.Writer.
type Writer struct {
	body        io.Writer
	compressor  io.Closer
	varint      [binary.MaxVarintLen64]byte
	streamBytes int64
	written     int64
	err         error
}

// NewWriter writes the header to w and returns a Writer for the body.
func NewWriter(w io.Writer, c Compression) (*Writer, error) {
	if _, known := compressionNames[c]; !known {
		return nil, fmt.Errorf("unsupported compression %d", byte(c))
	}

	if _, err := w.Write(header(c)); err != nil {
		return nil, err
	}

	fw := &Writer{body: w}
	switch c {
	case Zstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, err
		}
		fw.body, fw.compressor = enc, enc
	case Xz:
		enc, err := xz.NewWriter(w)
		if err != nil {
			return nil, err
		}
		fw.body, fw.compressor = enc, enc
	}

	return fw, nil
}

func (fw *Writer) put(p []byte) {
	if fw.err != nil {
		return
	}
	var n int
	n, fw.err = fw.body.Write(p)
	fw.written += int64(n)
}

func (fw *Writer) putUvarint(v uint64) {
	fw.put(fw.varint[:binary.PutUvarint(fw.varint[:], v)])
}

// WriteChunk appends a chunk record to the current stream.
func (fw *Writer) WriteChunk(p []byte) error {
	if fw.err != nil {
		return fw.err
	}
	if len(p) == 0 || len(p) > MaxPayload {
		return fmt.Errorf("chunk of %d bytes outside of the frameable range [1:%d]", len(p), MaxPayload)
	}

	fw.putUvarint(uint64(len(p)))
	fw.put(p)
	fw.streamBytes += int64(len(p))
	return fw.err
}

// EndStream writes the completion record of the current stream. total must
// equal the bytes written via WriteChunk since the previous EndStream.
func (fw *Writer) EndStream(total int64) error {
	if fw.err != nil {
		return fw.err
	}
	if total != fw.streamBytes {
		return fmt.Errorf("%w: completion claims %d bytes, %d were framed", ErrTotalMismatch, total, fw.streamBytes)
	}

	fw.putUvarint(0)
	fw.putUvarint(uint64(total))
	fw.streamBytes = 0
	return fw.err
}

// BodyBytes returns the amount of uncompressed body bytes written so far.
func (fw *Writer) BodyBytes() int64 { return fw.written }

// Close flushes the compressor, if any.
func (fw *Writer) Close() error {
	if fw.err == errWriterClosed {
		return fw.err
	}
	err := fw.err
	if fw.compressor != nil {
		if cerr := fw.compressor.Close(); err == nil {
			err = cerr
		}
	}
	fw.err = errWriterClosed
	return err
}
