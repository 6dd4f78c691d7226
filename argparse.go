package chunkbuf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/anjor/chunkbuf/internal/constants"
	"github.com/anjor/chunkbuf/internal/digest"
	"github.com/anjor/chunkbuf/internal/framing"
	"github.com/anjor/chunkbuf/internal/logging"
	"github.com/anjor/chunkbuf/internal/util/stream"
	"github.com/anjor/chunkbuf/internal/util/text"
	"github.com/pborman/getopt/v2"
	"github.com/pborman/options"
)

type emissionTargets map[string]io.Writer

const (
	emNone         = "none"
	emStatsText    = "stats-text"
	emStatsJsonl   = "stats-jsonl"
	emChunksJsonl  = "chunks-jsonl"
	emStreamsJsonl = "streams-jsonl"
	emFramesStream = "frames-stream"
)

func (cfg *config) printUsage() {
	cfg.optSet.PrintUsage(cfg.usageOut)
	if cfg.HelpAll || len(cfg.erroredChunkers) > 0 {
		printPluginUsage(
			cfg.usageOut,
			cfg.erroredChunkers,
		)
	} else {
		fmt.Fprint(cfg.usageOut, "\nTry --help-all for more info\n\n")
	}
}

func (cfg *config) printArgParseErrors(argParseErrs []error) {
	fmt.Fprint(cfg.usageOut, "\nFatal error parsing arguments:\n\n")
	cfg.printUsage()

	msgs := make([]string, len(argParseErrs))
	for i, e := range argParseErrs {
		msgs[i] = e.Error()
	}
	sort.Strings(msgs)
	fmt.Fprintf(
		cfg.usageOut,
		"Fatal error parsing arguments:\n\t%s\n",
		strings.Join(msgs, "\n\t"),
	)
}

func printPluginUsage(
	out io.Writer,
	listChunkers []string,
) {

	// if nothing was requested explicitly - list everything
	if len(listChunkers) == 0 {
		for name, initializer := range availableChunkers {
			if initializer != nil {
				listChunkers = append(listChunkers, name)
			}
		}
	}

	if len(listChunkers) != 0 {
		fmt.Fprint(out, "\n")
		sort.Strings(listChunkers)
		for _, name := range listChunkers {
			fmt.Fprintf(
				out,
				"[C]hunker '%s'\n",
				name,
			)
			_, _, h := availableChunkers[name](nil)
			if len(h) == 0 {
				fmt.Fprint(out, "  -- no helptext available --\n\n")
			} else {
				for _, line := range h {
					fmt.Fprintln(out, line.Error())
				}
			}
		}
	}

	fmt.Fprint(out, "\n")
}

func (cfg *config) initArgvParser() {
	// The default documented way of using pborman/options is to muck with globals
	// Operate over objects instead, allowing us to re-parse argv multiple times
	o := getopt.New()
	if err := options.RegisterSet("", cfg, o); err != nil {
		logging.L().Fatal().Err(err).Msg("option set registration failed")
	}
	cfg.optSet = o

	// program does not take freeform args
	// need to override this for sensible help render
	o.SetParameters("")

	// Several options have the help-text assembled programmatically
	o.FlagLong(&cfg.hashFunc, "hash", 0, "Hash function used for chunk digests, one of: "+text.AvailableMapKeys(digest.AvailableHashers)+". Default:",
		"algname",
	)
	o.FlagLong(&cfg.compression, "compress", 0, "Compression applied to the body of an emitted frames-stream, one of: "+text.AvailableMapKeys(framing.AvailableCompressions)+". Default:",
		"algname",
	)
	o.FlagLong(&cfg.requestedChunker, "chunker", 0,
		"Stream chunking algorithm. One of: "+text.AvailableMapKeys(availableChunkers),
		"chname_opt1_opt2_..._optN",
	)
	o.FlagLong(&cfg.ringBufferSize, "ring-buffer-size", 0,
		"The size of the quantized ring buffer used for ingestion, units such as MiB accepted. Default:",
		"bytes",
	)
	// option vaguely named 'sync' to not confuse users
	o.FlagLong(&cfg.ringBufferSectSize, "ring-buffer-sync-size", 0,
		"(EXPERT SETTING) The size of each buffer synchronization sector. Default:",
		"bytes",
	)
	o.FlagLong(&cfg.ringBufferMinRead, "ring-buffer-min-sysread", 0,
		"(EXPERT SETTING) Perform next read(2) only when the specified amount of free space is available in the buffer. Default:",
		"bytes",
	)
	o.FlagLong(&cfg.emittersStdErr, "emit-stderr", 0, fmt.Sprintf(
		"One or more emitters to activate on stdERR. Available emitters are %s. Default: ",
		text.AvailableMapKeys(cfg.emitters),
	), "comma,sep,emitters")
	o.FlagLong(&cfg.emittersStdOut, "emit-stdout", 0,
		"One or more emitters to activate on stdOUT. Available emitters same as above. Default: ",
		"comma,sep,emitters",
	)
}

func (cb *Chunkbuf) setupEmitters() (argErrs []error) {

	// stdout carries the reconstructed bytes when reassembling
	if cb.cfg.Reassemble && !cb.cfg.optSet.IsSet("emit-stdout") {
		cb.cfg.emittersStdOut = []string{emNone}
	}

	activeStderr, errs := cb.activateEmitters("stderr", cb.cfg.emittersStdErr, cb.stderr)
	argErrs = append(argErrs, errs...)
	activeStdout, errs := cb.activateEmitters("stdout", cb.cfg.emittersStdOut, cb.stdout)
	argErrs = append(argErrs, errs...)

	for _, exclusiveEmitter := range []string{
		emNone,
		emStatsText,
		emFramesStream,
	} {
		if activeStderr[exclusiveEmitter] && len(activeStderr) > 1 {
			argErrs = append(argErrs, fmt.Errorf(
				"when specified, emitter '%s' must be the sole argument to --emit-stderr",
				exclusiveEmitter,
			))
		}
		if activeStdout[exclusiveEmitter] && len(activeStdout) > 1 {
			argErrs = append(argErrs, fmt.Errorf(
				"when specified, emitter '%s' must be the sole argument to --emit-stdout",
				exclusiveEmitter,
			))
		}
	}

	return
}

func (cb *Chunkbuf) activateEmitters(where string, names []string, out io.Writer) (active map[string]bool, argErrs []error) {
	active = make(map[string]bool, len(names))
	for _, s := range names {
		active[s] = true
		if val, exists := cb.cfg.emitters[s]; !exists {
			argErrs = append(argErrs, fmt.Errorf("invalid emitter '%s' specified for --emit-%s. Available emitters are: %s",
				s,
				where,
				text.AvailableMapKeys(cb.cfg.emitters),
			))
		} else if s == emNone {
			continue
		} else if val != nil {
			argErrs = append(argErrs, fmt.Errorf("emitter '%s' specified more than once", s))
		} else {
			cb.cfg.emitters[s] = out
		}
	}
	return
}

func (cb *Chunkbuf) setupFramesWriting() (argErrs []error) {

	if cb.cfg.Reassemble {
		argErrs = append(argErrs, errors.New("emitter 'frames-stream' can not be combined with --reassemble"))
	}

	comp, known := framing.AvailableCompressions[cb.cfg.compression]
	if !known {
		argErrs = append(argErrs, fmt.Errorf(
			"compression '%s' requested via '--compress' is not valid. Available compressions are %s",
			cb.cfg.compression,
			text.AvailableMapKeys(framing.AvailableCompressions),
		))
	}

	if stream.IsTTY(cb.cfg.emitters[emFramesStream]) {
		argErrs = append(argErrs, errors.New("output of frames streams to a TTY is not supported"))
	}

	if len(argErrs) > 0 {
		return
	}

	cb.framesOut = cb.cfg.emitters[emFramesStream]
	cb.statSummary.Frames = &frameStats{Compression: comp.String()}
	applyWriteOptimizations(cb.framesOut, "frames stream output")

	return
}

func (cb *Chunkbuf) setupReassembly() (argErrs []error) {

	for _, em := range []string{emChunksJsonl, emFramesStream} {
		if cb.cfg.emitters[em] != nil {
			argErrs = append(argErrs, fmt.Errorf("emitter '%s' can not be combined with --reassemble", em))
		}
	}
	for _, s := range cb.cfg.emittersStdOut {
		if s != emNone {
			argErrs = append(argErrs, fmt.Errorf(
				"--reassemble writes the reconstructed streams to stdOUT, emitter '%s' can not go there",
				s,
			))
		}
	}

	if stream.IsTTY(cb.stdout) {
		argErrs = append(argErrs, errors.New("output of reassembled streams to a TTY is not supported"))
	}

	if len(argErrs) > 0 {
		return
	}

	cb.statSummary.Mode = modeReassemble
	applyWriteOptimizations(cb.stdout, "reassembled output")

	return
}

func applyWriteOptimizations(w io.Writer, what string) {
	f, isFh := w.(*os.File)
	if !isFh {
		return
	}

	s, err := f.Stat()
	if err != nil {
		logging.L().Warn().Err(err).Msgf("failed to stat() the %s", what)
		return
	}
	for _, opt := range stream.WriteOptimizations {
		if err := opt.Action(f, s); err != nil && err != os.ErrInvalid {
			logging.L().Warn().Err(err).Str("hint", opt.Name).Msgf("failed to apply write optimization hint to %s", what)
		}
	}
}

func (cb *Chunkbuf) setupDigest() (argErrs []error) {
	d, err := digest.New(cb.cfg.hashFunc, cb.cfg.DigestMultibase)
	if err != nil {
		return []error{err}
	}
	cb.digester = d
	return
}

func (cb *Chunkbuf) setupChunker() (argErrs []error) {

	if cb.cfg.Reassemble {
		if cb.cfg.requestedChunker != "" {
			return []error{errors.New("a chunker can not be specified together with --reassemble")}
		}
		return
	}

	if cb.cfg.requestedChunker == "" {
		return []error{fmt.Errorf(
			"you must specify a stream chunker via '--chunker=algname1_opt1_opt2...'. Available chunker names are: %s",
			text.AvailableMapKeys(availableChunkers),
		)}
	}

	chunkerArgs := strings.Split(cb.cfg.requestedChunker, "_")
	init, exists := availableChunkers[chunkerArgs[0]]
	if !exists {
		return []error{fmt.Errorf(
			"chunker '%s' not found. Available chunker names are: %s",
			chunkerArgs[0],
			text.AvailableMapKeys(availableChunkers),
		)}
	}

	for n := range chunkerArgs {
		if n > 0 {
			chunkerArgs[n] = "--" + chunkerArgs[n]
		}
	}

	chunkerInstance, chunkerConstants, initErrors := init(chunkerArgs)

	if len(initErrors) == 0 {
		if chunkerConstants.MaxChunkSize < 1 || chunkerConstants.MaxChunkSize > constants.MaxChunkSize {
			initErrors = append(initErrors, fmt.Errorf(
				"returned MaxChunkSize constant '%d' out of range [1:%d]",
				chunkerConstants.MaxChunkSize,
				constants.MaxChunkSize,
			))
		} else if chunkerConstants.MinChunkSize < 0 || chunkerConstants.MinChunkSize > chunkerConstants.MaxChunkSize {
			initErrors = append(initErrors, fmt.Errorf(
				"returned MinChunkSize constant '%d' out of range [0:%d]",
				chunkerConstants.MinChunkSize,
				chunkerConstants.MaxChunkSize,
			))
		}
	}

	if len(initErrors) > 0 {
		cb.cfg.erroredChunkers = append(cb.cfg.erroredChunkers, chunkerArgs[0])
		for _, e := range initErrors {
			argErrs = append(argErrs, fmt.Errorf(
				"initialization of chunker '%s' failed: %s",
				chunkerArgs[0],
				e,
			))
		}
		return
	}

	cb.chunker = chunkerUnit{
		instance:  chunkerInstance,
		constants: chunkerConstants,
	}

	return
}
