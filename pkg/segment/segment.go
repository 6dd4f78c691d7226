// Package segment splits byte sources into fixed-size chunks.
//
// Every chunk emitted for a source is exactly the requested size, except the
// last one which may be shorter (but never empty). Chunks are delivered
// strictly in source order, followed by exactly one completion event once the
// source has been consumed cleanly. Concatenating the chunks reconstructs the
// source byte for byte.
//
// Sources can be in-memory slices, bounded random-access buffers, incremental
// readers or UTF-8 text. Chunks are handed out either through a Handler or as
// a lazy sequence of events:
//
//	for ev := range segment.Events(segment.FromReader(conn), 4096) {
//		switch ev.Kind {
//		case segment.EventChunk:
//			send(ev.Chunk.Data)
//		case segment.EventFailure:
//			return ev.Err
//		}
//	}
package segment

// Chunk is a single owned segment of a source.
type Chunk struct {
	Data []byte
	// Cumulative is the amount of bytes delivered so far, including Data.
	Cumulative int64
}

// Handler consumes the events of one segmentation. Returning an error from
// either method aborts the segmentation, and the error is returned to the
// caller verbatim.
type Handler interface {
	ChunkFound(c Chunk) error
	ChunksExhausted(total int64) error
}

// HandlerFuncs adapts plain functions to a Handler. Nil members are no-ops.
type HandlerFuncs struct {
	OnChunk    func(Chunk) error
	OnComplete func(total int64) error
}

var _ Handler = HandlerFuncs{}

func (hf HandlerFuncs) ChunkFound(c Chunk) error {
	if hf.OnChunk == nil {
		return nil
	}
	return hf.OnChunk(c)
}

func (hf HandlerFuncs) ChunksExhausted(total int64) error {
	if hf.OnComplete == nil {
		return nil
	}
	return hf.OnComplete(total)
}

// emitter tracks the cumulative count on behalf of a Handler
type emitter struct {
	h     Handler
	total int64
}

func (e *emitter) chunk(data []byte) error {
	e.total += int64(len(data))
	return e.h.ChunkFound(Chunk{Data: data, Cumulative: e.total})
}

func (e *emitter) complete() error {
	return e.h.ChunksExhausted(e.total)
}

// Segment splits src into chunks of size bytes, delivering them to h in order
// and finishing with a single h.ChunksExhausted call. A non-positive size or a
// nil source fails with ErrInvalidConfiguration before any event is produced.
func Segment(src Source, size int, h Handler) error {
	if err := checkSize(size); err != nil {
		return err
	}
	if src == nil {
		return errNilSource
	}
	if h == nil {
		h = HandlerFuncs{}
	}

	e := &emitter{h: h}
	if err := src.segment(size, e); err != nil {
		return err
	}
	return e.complete()
}

// Collect segments src and returns all chunks along with the completion total.
func Collect(src Source, size int) (chunks []Chunk, total int64, err error) {
	err = Segment(src, size, HandlerFuncs{
		OnChunk: func(c Chunk) error {
			chunks = append(chunks, c)
			return nil
		},
		OnComplete: func(t int64) error {
			total = t
			return nil
		},
	})
	return
}
