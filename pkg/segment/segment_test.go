package segment

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBytes(seed int64, n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

// recorder captures the event order of a segmentation
type recorder struct {
	chunks    []Chunk
	totals    []int64
	completed int
}

func (r *recorder) ChunkFound(c Chunk) error {
	if r.completed > 0 {
		panic("chunk after completion")
	}
	r.chunks = append(r.chunks, c)
	return nil
}

func (r *recorder) ChunksExhausted(total int64) error {
	r.completed++
	r.totals = append(r.totals, total)
	return nil
}

func (r *recorder) joined() []byte {
	var buf bytes.Buffer
	for _, c := range r.chunks {
		buf.Write(c.Data)
	}
	return buf.Bytes()
}

func assertChunking(t *testing.T, src []byte, size int, rec *recorder) {
	t.Helper()

	require.Equal(t, 1, rec.completed, "completion must be emitted exactly once")
	assert.Equal(t, int64(len(src)), rec.totals[0])
	assert.True(t, bytes.Equal(src, rec.joined()), "chunks do not reconstruct the source")

	wantChunks := (len(src) + size - 1) / size
	require.Len(t, rec.chunks, wantChunks)

	var cumulative int64
	for i, c := range rec.chunks {
		cumulative += int64(len(c.Data))
		assert.Equal(t, cumulative, c.Cumulative, "chunk %d cumulative", i)
		if i < len(rec.chunks)-1 {
			assert.Len(t, c.Data, size, "chunk %d", i)
		} else {
			last := len(src) % size
			if last == 0 {
				last = size
			}
			assert.Len(t, c.Data, last, "final chunk")
		}
	}
}

func TestSegmentSources(t *testing.T) {
	sizes := []int{1, 2, 3, 4, 7, 64, 199, 1000, 4096}
	lengths := []int{0, 1, 3, 4, 5, 198, 199, 200, 1000, 20000}

	sources := map[string]func([]byte) Source{
		"bytes":    FromBytes,
		"bounded":  func(b []byte) Source { return FromBounded(sliceBuffer(b)) },
		"readerAt": func(b []byte) Source { return FromReaderAt(bytes.NewReader(b), int64(len(b))) },
		"reader":   func(b []byte) Source { return FromReader(bytes.NewReader(b)) },
		"irregular": func(b []byte) Source {
			return FromReader(&irregularReader{data: b, steps: []int{3, 7, 1, 5, 0}})
		},
	}

	for name, mk := range sources {
		t.Run(name, func(t *testing.T) {
			for _, l := range lengths {
				src := randomBytes(int64(l), l)
				for _, size := range sizes {
					rec := &recorder{}
					require.NoError(t, Segment(mk(src), size, rec))
					assertChunking(t, src, size, rec)
				}
			}
		})
	}
}

func TestSegment199Over20000(t *testing.T) {
	src := randomBytes(42, 20000)

	chunks, total, err := Collect(FromBytes(src), 199)
	require.NoError(t, err)
	require.Len(t, chunks, 101)
	assert.EqualValues(t, 20000, total)

	for i := 0; i < 100; i++ {
		assert.Len(t, chunks[i].Data, 199)
	}
	assert.Len(t, chunks[100].Data, 100)

	var rebuilt []byte
	for _, c := range chunks {
		rebuilt = append(rebuilt, c.Data...)
	}
	assert.Equal(t, src, rebuilt)
}

func TestSegmentEmptySource(t *testing.T) {
	for name, src := range map[string]Source{
		"bytes":   FromBytes(nil),
		"bounded": FromBounded(sliceBuffer{}),
		"reader":  FromReader(bytes.NewReader(nil)),
		"text":    FromText(""),
	} {
		t.Run(name, func(t *testing.T) {
			rec := &recorder{}
			require.NoError(t, Segment(src, 16, rec))
			assert.Empty(t, rec.chunks)
			assert.Equal(t, 1, rec.completed)
			assert.Equal(t, []int64{0}, rec.totals)
		})
	}
}

func TestSegmentInvalidConfiguration(t *testing.T) {
	for _, size := range []int{0, -1, -4096} {
		rec := &recorder{}
		err := Segment(FromBytes([]byte{1, 2, 3}), size, rec)
		require.ErrorIs(t, err, ErrInvalidConfiguration)
		assert.Empty(t, rec.chunks)
		assert.Zero(t, rec.completed)
	}

	err := Segment(nil, 4, &recorder{})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	for name, src := range map[string]Source{
		"reader":   FromReader(nil),
		"bounded":  FromBounded(nil),
		"readerAt": FromReaderAt(nil, 10),
	} {
		t.Run("nil "+name, func(t *testing.T) {
			rec := &recorder{}
			err := Segment(src, 4, rec)
			require.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.Empty(t, rec.chunks)
			assert.Zero(t, rec.completed)
		})
	}

	_, err = NewWriter(0, nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestIrregularReadsMatchMaterialized(t *testing.T) {
	src := randomBytes(7, 1234)

	want, wantTotal, err := Collect(FromBytes(src), 4)
	require.NoError(t, err)

	got, gotTotal, err := Collect(FromReader(&irregularReader{data: src, steps: []int{3, 7, 1, 5}}), 4)
	require.NoError(t, err)

	assert.Equal(t, wantTotal, gotTotal)
	assert.Equal(t, want, got)
}

func TestZeroByteReadsAreNotEOF(t *testing.T) {
	src := randomBytes(3, 50)
	r := &irregularReader{data: src, steps: []int{0, 0, 0, 2, 0, 9, 0}}

	rec := &recorder{}
	require.NoError(t, Segment(FromReader(r), 8, rec))
	assertChunking(t, src, 8, rec)
}

func TestStalledReaderFails(t *testing.T) {
	rec := &recorder{}
	err := Segment(FromReader(stalledReader{}), 8, rec)

	var iof *IoFailure
	require.ErrorAs(t, err, &iof)
	assert.ErrorIs(t, err, io.ErrNoProgress)
	assert.Zero(t, rec.completed)
}

func TestReaderFailureAbortsWithoutCompletion(t *testing.T) {
	src := randomBytes(11, 30)
	boom := errors.New("connection reset")
	r := io.MultiReader(bytes.NewReader(src), failingReader{boom})

	rec := &recorder{}
	err := Segment(FromReader(r), 8, rec)
	require.ErrorIs(t, err, boom)

	var iof *IoFailure
	require.ErrorAs(t, err, &iof)
	assert.EqualValues(t, 30, iof.Read)
	assert.EqualValues(t, 24, iof.Emitted)
	assert.Equal(t, src[24:], iof.Pending)

	assert.Zero(t, rec.completed)
	require.Len(t, rec.chunks, 3)
	assert.Equal(t, src[:24], rec.joined())
}

func TestReaderAtShortRead(t *testing.T) {
	src := randomBytes(5, 40)

	// claims more bytes than the reader holds
	rec := &recorder{}
	err := Segment(FromReaderAt(bytes.NewReader(src), 50), 16, rec)

	var iof *IoFailure
	require.ErrorAs(t, err, &iof)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.EqualValues(t, 40, iof.Read)
	assert.EqualValues(t, 32, iof.Emitted)
	assert.Equal(t, src[32:], iof.Pending)
	assert.Zero(t, rec.completed)
}

func TestHandlerErrorAborts(t *testing.T) {
	stop := errors.New("stop")
	var seen int

	err := Segment(FromBytes(randomBytes(1, 100)), 10, HandlerFuncs{
		OnChunk: func(Chunk) error {
			if seen++; seen == 3 {
				return stop
			}
			return nil
		},
		OnComplete: func(int64) error {
			t.Fatal("completion after handler failure")
			return nil
		},
	})
	assert.Equal(t, stop, err)
	assert.Equal(t, 3, seen)
}

func TestChunksAreOwned(t *testing.T) {
	src := []byte("abcdefghij")
	chunks, _, err := Collect(FromBytes(src), 4)
	require.NoError(t, err)

	src[0] = 'X'
	chunks[1].Data[0] = 'Y'

	assert.Equal(t, "abcd", string(chunks[0].Data))
	assert.Equal(t, "Yfgh", string(chunks[1].Data))
	assert.Equal(t, "Xbcdefghij", string(src))
}

// sliceBuffer is a Bounded over a plain slice
type sliceBuffer []byte

func (s sliceBuffer) Len() int                    { return len(s) }
func (s sliceBuffer) Slice(start, end int) []byte { return s[start:end] }

// irregularReader hands out data in a repeating pattern of read sizes
type irregularReader struct {
	data  []byte
	steps []int
	call  int
}

func (r *irregularReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	step := r.steps[r.call%len(r.steps)]
	r.call++

	n := min(step, len(p), len(r.data))
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

type stalledReader struct{}

func (stalledReader) Read([]byte) (int, error) { return 0, nil }

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }
