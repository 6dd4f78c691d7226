package segment

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration indicates a non-positive chunk size or a nil source.
	ErrInvalidConfiguration = errors.New("invalid segmentation configuration")
	// ErrConsumed is carried by the failure event of an already ranged Events sequence.
	ErrConsumed = errors.New("event sequence already consumed")

	errNilSource = fmt.Errorf("%w: nil source", ErrInvalidConfiguration)
)

// IoFailure reports a source that failed mid-segmentation. No completion
// event is emitted after it.
type IoFailure struct {
	// Read is the amount of bytes successfully obtained from the source.
	Read int64
	// Emitted is the amount of bytes delivered in chunks before the failure.
	Emitted int64
	// Pending holds the bytes read but not yet emitted, for callers wishing
	// to drain a partial result.
	Pending []byte
	Err     error
}

func (e *IoFailure) Error() string {
	return fmt.Sprintf(
		"source read failed after %d bytes (%d emitted, %d pending): %s",
		e.Read,
		e.Emitted,
		len(e.Pending),
		e.Err,
	)
}

func (e *IoFailure) Unwrap() error { return e.Err }

func checkSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidConfiguration, size)
	}
	return nil
}
