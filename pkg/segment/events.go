package segment

import (
	"errors"
	"iter"

	"go.uber.org/atomic"
)

// EventKind tags an Event.
type EventKind int

const (
	EventChunk EventKind = iota + 1
	EventComplete
	EventFailure
)

func (k EventKind) String() string {
	switch k {
	case EventChunk:
		return "chunk"
	case EventComplete:
		return "complete"
	case EventFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Event is one element of the sequence produced by Events. Chunk is set for
// EventChunk, Total for EventComplete and Err for EventFailure.
type Event struct {
	Kind  EventKind
	Chunk Chunk
	Total int64
	Err   error
}

var errStopped = errors.New("iteration stopped by consumer")

// Events returns the segmentation of src as a lazy sequence: zero or more
// EventChunk events followed either by one EventComplete or by one
// EventFailure. Nothing is read from src before iteration starts, and
// breaking out of the loop stops the segmentation.
//
// The sequence can only be ranged over once; any later attempt yields a
// single EventFailure carrying ErrConsumed.
func Events(src Source, size int) iter.Seq[Event] {
	var used atomic.Bool

	return func(yield func(Event) bool) {
		if !used.CompareAndSwap(false, true) {
			yield(Event{Kind: EventFailure, Err: ErrConsumed})
			return
		}

		var stopped bool
		err := Segment(src, size, HandlerFuncs{
			OnChunk: func(c Chunk) error {
				if !yield(Event{Kind: EventChunk, Chunk: c}) {
					stopped = true
					return errStopped
				}
				return nil
			},
			OnComplete: func(total int64) error {
				stopped = !yield(Event{Kind: EventComplete, Total: total})
				return nil
			},
		})

		if err != nil && !stopped {
			yield(Event{Kind: EventFailure, Err: err})
		}
	}
}
