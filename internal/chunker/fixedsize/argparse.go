package fixedsize

import (
	"fmt"

	"github.com/anjor/chunkbuf/internal/chunker"
	"github.com/anjor/chunkbuf/internal/constants"
	"github.com/anjor/chunkbuf/internal/util/argparser"
	"github.com/anjor/chunkbuf/internal/util/text"
	"github.com/docker/go-units"
)

func NewChunker(
	args []string,
) (
	_ chunker.Chunker,
	_ chunker.InstanceConstants,
	initErrs []error,
) {

	// on nil-args the "error" is the help text to be incorporated into
	// the larger help display
	if args == nil {
		initErrs = argparser.SubHelp(
			"Splits the stream into equally sized chunks, the last one possibly\n"+
				"shorter. Requires a single parameter: the size of each chunk, either in\n"+
				"bytes or with a binary unit suffix such as 64KiB or 1MiB\n",
			nil,
		)
		return
	}

	c := fixedSizeChunker{}

	if len(args) != 2 {
		initErrs = append(initErrs, fmt.Errorf("chunker requires a single argument, the size of each chunk"))
		return
	}

	size, err := units.RAMInBytes(args[1][2:]) // stripping off '--'
	if err != nil {
		initErrs = append(initErrs, fmt.Errorf("argument parse failed: %s", err))
		return
	}

	if size < 1 || size > constants.MaxChunkSize {
		initErrs = append(initErrs, fmt.Errorf(
			"provided chunk size '%s' out of range [1:%s]",
			text.Commify64(size),
			text.Commify(constants.MaxChunkSize),
		))
		return
	}
	c.size = int(size)

	return &c, chunker.InstanceConstants{
		MinChunkSize: c.size,
		MaxChunkSize: c.size,
		Streaming:    true,
	}, initErrs
}
