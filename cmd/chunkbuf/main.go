package main

import (
	"fmt"
	"os"

	"github.com/anjor/chunkbuf"
	"github.com/anjor/chunkbuf/internal/logging"
	"github.com/anjor/chunkbuf/internal/util/stream"
)

func main() {

	inStat, statErr := os.Stdin.Stat()
	if statErr != nil {
		logging.L().Fatal().Err(statErr).Msg("unexpected error stat()ing stdIN")
	}

	// Parse CLI and initialize everything
	// On error it will print usage and exit on its own
	cb := chunkbuf.NewFromArgv(os.Args)

	if stream.IsTTY(os.Stdin) {
		fmt.Fprint(
			os.Stderr,
			"------\nYou seem to be feeding data straight from a terminal, an odd choice...\nNevertheless will proceed to read until EOF ( Ctrl+D )\n------\n",
		)
	} else if !inStat.Mode().IsRegular() || inStat.Size() > 16*1024*1024 {
		// Try optimizations if:
		// - not a regular file (and not a TTY - exempted above)
		// - regular file larger than a certain size
		// An optimization returns os.ErrInvalid when it can't be applied to the file type
		applyReadOptimizations(os.Stdin, inStat)
	}

	processErr := cb.ProcessReader(
		os.Stdin,
		nil,
	)
	cb.Destroy()
	if processErr != nil {
		logging.L().Fatal().Err(processErr).Msg("unexpected error processing stdIN")
	}

	cb.OutputSummary()
}

func applyReadOptimizations(f *os.File, s os.FileInfo) {
	for _, opt := range stream.ReadOptimizations {
		if err := opt.Action(f, s); err != nil && err != os.ErrInvalid {
			logging.L().Warn().Err(err).Str("hint", opt.Name).Msg("failed to apply read optimization hint to stdIN")
		}
	}
}
