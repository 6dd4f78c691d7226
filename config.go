package chunkbuf

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/docker/go-units"
	"github.com/pborman/getopt/v2"
)

type config struct {
	optSet *getopt.Set

	// where to output
	emitters emissionTargets
	usageOut io.Writer

	//
	// Bulk of CLI options definition starts here, the rest further down in initArgvParser()
	//

	Help            bool `getopt:"-h --help         Display basic help"`
	HelpAll         bool `getopt:"--help-all        Display full help including options for every currently supported chunker"`
	MultipartStream bool `getopt:"--multipart       Expect multiple SInt64BE-size-prefixed streams on stdIN (with --reassemble: emit them on stdOUT)"`
	SkipNulInputs   bool `getopt:"--skip-nul-inputs Skip zero-length streams outright instead of reporting an empty stream"`
	Reassemble      bool `getopt:"--reassemble      Read a frames stream on stdIN and write the reconstructed stream bytes to stdOUT"`
	Verbose         bool `getopt:"-v --verbose      Log per-stream progress to stdERR"`
	LogHuman        bool `getopt:"--log-human       Log in a human-friendly console format instead of JSON lines"`

	emittersStdErr []string // Emitter spec: option/helptext in initArgvParser()
	emittersStdOut []string // Emitter spec: option/helptext in initArgvParser()

	// no-option-attached, instantiation error accumulator
	erroredChunkers []string

	ringBufferSize     byteSize // option/helptext in initArgvParser()
	ringBufferSectSize byteSize // option/helptext in initArgvParser()
	ringBufferMinRead  byteSize // option/helptext in initArgvParser()

	StatsActive uint `getopt:"--stats-active=uint A bitfield representing activated stat aggregations: bit0:ChunkSizing, bit1:RingbufferTiming. Default:"`

	DigestMultibase string `getopt:"--digest-multibase=string Use this multibase when encoding chunk digests for output. One of 'base36', 'base32', 'base16'. Default:"`
	hashFunc        string // hash function to use: option/helptext in initArgvParser()
	compression     string // frames-stream compression: option/helptext in initArgvParser()

	requestedChunker string // Chunker: option/helptext in initArgvParser()
}

const (
	statsChunkSizing = 1 << iota
	statsRingbuf
)

func defaultConfig() config {
	return config{
		ringBufferSize:     24 * 1024 * 1024,
		ringBufferSectSize: 64 * 1024,
		ringBufferMinRead:  256 * 1024,
		StatsActive:        statsChunkSizing,
		DigestMultibase:    "base36",
		hashFunc:           "sha2-256",
		compression:        "none",
		emittersStdErr:     []string{emStatsText},
		emittersStdOut:     []string{emChunksJsonl},
		emitters: emissionTargets{
			emNone:         nil,
			emStatsText:    nil,
			emStatsJsonl:   nil,
			emChunksJsonl:  nil,
			emStreamsJsonl: nil,
			emFramesStream: nil,
		},
	}
}

// byteSize is a getopt.Value accepting plain byte counts as well as binary
// unit suffixes: 65536, 64k, 64KiB
type byteSize int

func (b *byteSize) Set(value string, _ getopt.Option) error {
	n, err := units.RAMInBytes(value)
	if err != nil {
		return fmt.Errorf("invalid size '%s': %w", value, err)
	}
	if n < 0 || n > math.MaxInt32 {
		return fmt.Errorf("size '%s' out of range [0:%d]", value, math.MaxInt32)
	}
	*b = byteSize(n)
	return nil
}

func (b *byteSize) String() string { return strconv.Itoa(int(*b)) }
