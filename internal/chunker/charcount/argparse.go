package charcount

import (
	"fmt"

	"github.com/anjor/chunkbuf/internal/chunker"
	"github.com/anjor/chunkbuf/internal/constants"
	"github.com/anjor/chunkbuf/internal/util/argparser"
	"github.com/anjor/chunkbuf/internal/util/text"
	"github.com/anjor/chunkbuf/pkg/segment"
	"github.com/pborman/getopt/v2"
	"github.com/pborman/options"
)

// widest encoding of a single character for each mode
var maxCharBytes = map[segment.TextMode]int{
	segment.Runes:     4,
	segment.Graphemes: constants.MaxTextCharBytes,
}

func NewRunesChunker(args []string) (chunker.Chunker, chunker.InstanceConstants, []error) {
	return newChunker(args, segment.Runes,
		"Splits UTF-8 text into chunks holding a fixed amount of unicode code\n"+
			"points. Invalid bytes count as one character each.\n",
	)
}

func NewGraphemesChunker(args []string) (chunker.Chunker, chunker.InstanceConstants, []error) {
	return newChunker(args, segment.Graphemes,
		"Splits UTF-8 text into chunks holding a fixed amount of user-perceived\n"+
			"characters (extended grapheme clusters): a letter and its combining\n"+
			"marks always land in the same chunk.\n",
	)
}

func newChunker(
	args []string,
	mode segment.TextMode,
	description string,
) (
	_ chunker.Chunker,
	_ chunker.InstanceConstants,
	initErrs []error,
) {

	c := &textChunker{mode: mode}

	optSet := getopt.New()
	if err := options.RegisterSet("", &c.config, optSet); err != nil {
		initErrs = []error{fmt.Errorf("option set registration failed: %s", err)}
		return
	}

	// on nil-args the "error" is the help text to be incorporated into
	// the larger help display
	if args == nil {
		initErrs = argparser.SubHelp(description, optSet)
		return
	}

	// bail early if getopt fails
	if initErrs = argparser.Parse(args, optSet); len(initErrs) > 0 {
		return
	}

	maxCount := constants.MaxChunkSize / maxCharBytes[mode]
	if c.Count > maxCount {
		initErrs = append(initErrs, fmt.Errorf(
			"a %s chunk of %s characters may exceed the maximum chunk size of %s bytes, use at most %s",
			mode,
			text.Commify(c.Count),
			text.Commify(constants.MaxChunkSize),
			text.Commify(maxCount),
		))
		return
	}

	return c, chunker.InstanceConstants{
		MinChunkSize: 1,
		MaxChunkSize: c.Count * maxCharBytes[mode],
	}, initErrs
}
