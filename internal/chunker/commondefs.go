package chunker

import (
	"io"

	"github.com/anjor/chunkbuf/internal/constants"
	"github.com/anjor/chunkbuf/pkg/segment"
)

type InstanceConstants struct {
	_            constants.Incomparabe
	MinChunkSize int
	MaxChunkSize int
	// Streaming chunkers emit while bytes arrive, the others hold a complete
	// stream in memory before emitting anything
	Streaming bool
}

// Initializer parses the chunker sub-arguments. On nil args the returned
// errors are the help text of the chunker.
type Initializer func(
	chunkerCLISubArgs []string,
) (
	instance Chunker,
	constants InstanceConstants,
	initErrorStrings []error,
)

type Chunker interface {
	// NewWriter returns a writer segmenting one stream. Close emits the final
	// chunk followed by the completion of the stream.
	NewWriter(h segment.Handler) (io.WriteCloser, error)
}
