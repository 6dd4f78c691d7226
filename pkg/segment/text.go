package segment

import (
	"unicode/utf8"

	"github.com/clipperhouse/uax29/graphemes"
)

// TextMode selects what counts as a single character when segmenting text.
type TextMode int

const (
	// Runes cuts on Unicode scalar value boundaries. Each byte of an invalid
	// UTF-8 sequence counts as one character.
	Runes TextMode = iota
	// Graphemes cuts on extended grapheme cluster boundaries (UAX #29), so
	// combining sequences and emoji modifiers stay together.
	Graphemes
)

func (m TextMode) String() string {
	switch m {
	case Runes:
		return "runes"
	case Graphemes:
		return "graphemes"
	default:
		return "unknown"
	}
}

// TextOption configures a text Source.
type TextOption func(*textSource)

// WithTextMode sets the character boundary used for slicing. Default: Runes.
func WithTextMode(m TextMode) TextOption {
	return func(ts *textSource) { ts.mode = m }
}

// FromText returns a Source over s. With text sources size counts characters
// rather than bytes; each slice is encoded to its own byte slice, and chunk
// Cumulative values as well as the completion total are byte counts.
func FromText(s string, opts ...TextOption) Source {
	ts := textSource{text: s}
	for _, opt := range opts {
		opt(&ts)
	}
	return ts
}

type textSource struct {
	text string
	mode TextMode
}

func (s textSource) segment(size int, e *emitter) error {
	if s.mode == Graphemes {
		return s.segmentGraphemes(size, e)
	}

	var start, chars int
	for off := 0; off < len(s.text); {
		_, w := utf8.DecodeRuneInString(s.text[off:])
		off += w
		if chars++; chars == size {
			if err := e.chunk([]byte(s.text[start:off])); err != nil {
				return err
			}
			start, chars = off, 0
		}
	}
	if start < len(s.text) {
		return e.chunk([]byte(s.text[start:]))
	}
	return nil
}

func (s textSource) segmentGraphemes(size int, e *emitter) error {
	// in-memory segmentation: no token size limit, a cluster may be any length
	seg := graphemes.NewSegmenter([]byte(s.text))

	var start, off, chars int
	for seg.Next() {
		off += len(seg.Bytes())
		if chars++; chars == size {
			if err := e.chunk([]byte(s.text[start:off])); err != nil {
				return err
			}
			start, chars = off, 0
		}
	}
	if err := seg.Err(); err != nil {
		return err
	}

	if start < len(s.text) {
		return e.chunk([]byte(s.text[start:]))
	}
	return nil
}
