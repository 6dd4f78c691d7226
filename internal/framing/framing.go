// Package framing implements the chunkbuf frames stream: a self-describing
// binary container carrying the chunks of one or more segmented streams, each
// stream terminated by a completion record holding its total size.
//
// Layout:
//
//	header  "CBF1" | version(1) | compression(1) | 2 reserved zero bytes
//	body    ( uvarint(len) payload | uvarint(0) uvarint(total) )*
//
// When compression is requested the entire body is compressed as one unit.
package framing

import (
	"errors"
	"fmt"

	"github.com/anjor/chunkbuf/internal/constants"
)

const (
	Magic      = "CBF1"
	Version    = 1
	HeaderSize = 8
)

// MaxPayload bounds the payload of a single chunk record.
const MaxPayload = constants.MaxChunkSize

type Compression byte

const (
	None Compression = iota
	Zstd
	Xz
)

var (
	ErrBadHeader     = errors.New("invalid frames stream header")
	ErrCorrupt       = errors.New("corrupt frames stream")
	ErrTotalMismatch = errors.New("stream completion total does not match its chunks")
)

var compressionNames = map[Compression]string{
	None: "none",
	Zstd: "zstd",
	Xz:   "xz",
}

// AvailableCompressions maps the CLI names to their codes.
var AvailableCompressions = map[string]Compression{
	"none": None,
	"zstd": Zstd,
	"xz":   Xz,
}

func (c Compression) String() string {
	if n, known := compressionNames[c]; known {
		return n
	}
	return fmt.Sprintf("unknown(%d)", byte(c))
}

func header(c Compression) []byte {
	return []byte{Magic[0], Magic[1], Magic[2], Magic[3], Version, byte(c), 0, 0}
}

func parseHeader(h []byte) (Compression, error) {
	if len(h) != HeaderSize || string(h[:4]) != Magic {
		return 0, fmt.Errorf("%w: bad magic %q", ErrBadHeader, h)
	}
	if h[4] != Version {
		return 0, fmt.Errorf("%w: unsupported version %d", ErrBadHeader, h[4])
	}
	c := Compression(h[5])
	if _, known := compressionNames[c]; !known {
		return 0, fmt.Errorf("%w: unsupported compression %d", ErrBadHeader, h[5])
	}
	if h[6] != 0 || h[7] != 0 {
		return 0, fmt.Errorf("%w: reserved bytes set", ErrBadHeader)
	}
	return c, nil
}
