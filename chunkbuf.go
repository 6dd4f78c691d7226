// Package chunkbuf implements the chunkbuf command: it segments streams read
// from stdin into fixed-size or fixed-character-count chunks, reporting and
// optionally framing them, and reassembles framed chunk streams back into
// their original bytes.
package chunkbuf

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/anjor/chunkbuf/internal/chunker"
	"github.com/anjor/chunkbuf/internal/chunker/charcount"
	"github.com/anjor/chunkbuf/internal/chunker/fixedsize"
	"github.com/anjor/chunkbuf/internal/constants"
	"github.com/anjor/chunkbuf/internal/digest"
	"github.com/anjor/chunkbuf/internal/framing"
	"github.com/anjor/chunkbuf/internal/logging"
	"github.com/anjor/chunkbuf/internal/util/argparser"
	"github.com/ipfs/go-qringbuf"
	"github.com/pborman/getopt/v2"
	"go.uber.org/atomic"
)

var availableChunkers = map[string]chunker.Initializer{
	"fixed-size": fixedsize.NewChunker,
	"runes":      charcount.NewRunesChunker,
	"graphemes":  charcount.NewGraphemesChunker,
}

type chunkerUnit struct {
	_         constants.Incomparabe
	instance  chunker.Chunker
	constants chunker.InstanceConstants
}

type Chunkbuf struct {
	// bytes of the current sub-stream handed to the chunker, and emitted by it
	curStreamRead   int64
	curStreamOffset int64

	cfg              config
	statSummary      statSummary
	chunker          chunkerUnit
	digester         *digest.Digester
	externalEventBus chan<- IngestionEvent
	qrb              *qringbuf.QuantizedRingBuffer

	stderr io.Writer
	stdout io.Writer

	framesOut       io.Writer
	frameWriter     *framing.Writer
	frameQueue      chan frameUnit
	frameWriteError chan error
	frameErr        atomic.Error
}

func New() *Chunkbuf {
	return &Chunkbuf{
		cfg:         defaultConfig(),
		statSummary: setStatSummary(),
		stderr:      os.Stderr,
		stdout:      os.Stdout,
	}
}

// NewFromArgv parses a complete argv. On --help or on argument errors it
// prints usage and exits the process.
func NewFromArgv(argv []string) *Chunkbuf {
	cb, argParseErrs := newFromArgv(argv, os.Stderr, os.Stdout)

	if cb.cfg.Help || cb.cfg.HelpAll {
		cb.cfg.printUsage()
		os.Exit(0)
	}

	if len(argParseErrs) != 0 {
		cb.cfg.printArgParseErrors(argParseErrs)
		os.Exit(2)
	}

	return cb
}

// NewWithWriters is NewFromArgv for embedding and tests: nothing is printed
// and the process is never exited, errors are returned instead. args excludes
// the program name.
func NewWithWriters(stderr, stdout io.Writer, args ...string) (*Chunkbuf, []error) {
	return newFromArgv(append([]string{"chunkbuf"}, args...), stderr, stdout)
}

func newFromArgv(argv []string, stderr, stdout io.Writer) (cb *Chunkbuf, argParseErrs []error) {

	cb = New()
	cb.stderr, cb.stdout = stderr, stdout
	cb.cfg.usageOut = stderr
	cb.statSummary.SysStats.ArgvInitial = append([]string{}, argv[1:]...)

	cfg := &cb.cfg
	cfg.initArgvParser()

	// accumulator for multiple errors, to present to the user all at once
	argParseErrs = argparser.Parse(argv, cfg.optSet)

	if cfg.Help || cfg.HelpAll {
		return cb, nil
	}

	logging.Init(stderr, cfg.Verbose, cfg.LogHuman)

	argParseErrs = append(argParseErrs, cb.setupChunker()...)
	argParseErrs = append(argParseErrs, cb.setupDigest()...)
	argParseErrs = append(argParseErrs, cb.setupEmitters()...)

	// Opts check out - set up the frames emitter
	if len(argParseErrs) == 0 && cb.cfg.emitters[emFramesStream] != nil {
		argParseErrs = append(argParseErrs, cb.setupFramesWriting()...)
	}
	if len(argParseErrs) == 0 && cb.cfg.Reassemble {
		argParseErrs = append(argParseErrs, cb.setupReassembly()...)
	}

	if len(argParseErrs) != 0 {
		return
	}

	// Opts *still* check out - take a snapshot of what we ended up with

	// All chunk-determining opts come last in a predefined order
	chunkOpts := []string{
		"chunker",
		"hash",
		"digest-multibase",
		"compress",
	}
	chunkOptsIdx := map[string]struct{}{}
	for _, n := range chunkOpts {
		chunkOptsIdx[n] = struct{}{}
	}

	// first do the generic options
	cfg.optSet.VisitAll(func(o getopt.Option) {
		switch o.LongName() {
		case "help", "help-all":
			// do nothing for these
		default:
			// skip these keys too, they come next
			if _, exists := chunkOptsIdx[o.LongName()]; !exists {
				cb.statSummary.SysStats.ArgvExpanded = append(
					cb.statSummary.SysStats.ArgvExpanded, fmt.Sprintf(`--%s=%s`,
						o.LongName(),
						o.Value().String(),
					),
				)
			}
		}
	})
	sort.Strings(cb.statSummary.SysStats.ArgvExpanded)

	// now do the remaining chunk-determining options
	for _, n := range chunkOpts {
		cb.statSummary.SysStats.ArgvExpanded = append(
			cb.statSummary.SysStats.ArgvExpanded, fmt.Sprintf(`--%s=%s`,
				n,
				cfg.optSet.GetValue(n),
			),
		)
	}

	return
}

// Destroy releases the ring buffer and the chunker. Only OutputSummary may be
// called afterwards.
func (cb *Chunkbuf) Destroy() {
	cb.qrb = nil
	cb.chunker = chunkerUnit{}
	cb.frameWriter = nil
}
