package framing

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Record is either a chunk payload or, when End is set, the completion of the
// current stream with its Total.
type Record struct {
	Payload []byte
	End     bool
	Total   int64
}

type Reader struct {
	compression Compression
	body        *bufio.Reader
	release     func()
	streamBytes int64
	midStream   bool
}

// NewReader validates the header of r and prepares body decoding.
func NewReader(r io.Reader) (*Reader, error) {
	h := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, h); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: stream shorter than a header", ErrBadHeader)
		}
		return nil, err
	}

	c, err := parseHeader(h)
	if err != nil {
		return nil, err
	}

	fr := &Reader{compression: c, release: func() {}}
	switch c {
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		fr.body, fr.release = bufio.NewReader(dec), dec.Close
	case Xz:
		dec, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		fr.body = bufio.NewReader(dec)
	default:
		fr.body = bufio.NewReader(r)
	}

	return fr, nil
}

func (fr *Reader) Compression() Compression { return fr.compression }

// Next returns the next record. It returns io.EOF only at a clean end: after
// a completion record. A body ending inside a stream is io.ErrUnexpectedEOF.
func (fr *Reader) Next() (Record, error) {
	size, err := binary.ReadUvarint(fr.body)
	if err != nil {
		if err == io.EOF && !fr.midStream {
			return Record{}, io.EOF
		}
		return Record{}, fr.truncated(err)
	}

	if size == 0 {
		total, err := binary.ReadUvarint(fr.body)
		if err != nil {
			return Record{}, fr.truncated(err)
		}
		if int64(total) != fr.streamBytes {
			return Record{}, fmt.Errorf("%w: completion claims %d bytes, %d were read",
				ErrTotalMismatch, total, fr.streamBytes)
		}
		fr.streamBytes = 0
		fr.midStream = false
		return Record{End: true, Total: int64(total)}, nil
	}

	if size > MaxPayload {
		return Record{}, fmt.Errorf("%w: record of %d bytes exceeds maximum %d", ErrCorrupt, size, MaxPayload)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(fr.body, payload); err != nil {
		return Record{}, fr.truncated(err)
	}
	fr.streamBytes += int64(size)
	fr.midStream = true
	return Record{Payload: payload}, nil
}

func (fr *Reader) truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %w", ErrCorrupt, io.ErrUnexpectedEOF)
	}
	return err
}

// Close releases decoder resources. It does not close the underlying reader.
func (fr *Reader) Close() error {
	fr.release()
	return nil
}
