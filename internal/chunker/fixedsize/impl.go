package fixedsize

import (
	"io"

	"github.com/anjor/chunkbuf/pkg/segment"
)

type fixedSizeChunker struct {
	size int
}

func (c *fixedSizeChunker) NewWriter(h segment.Handler) (io.WriteCloser, error) {
	return segment.NewWriter(c.size, h)
}
