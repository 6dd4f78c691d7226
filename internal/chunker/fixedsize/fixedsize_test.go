package fixedsize

import (
	"testing"

	"github.com/anjor/chunkbuf/pkg/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunkerSizes(t *testing.T) {
	tests := []struct {
		arg     string
		want    int
		wantErr string
	}{
		{arg: "262144", want: 262144},
		{arg: "64KiB", want: 64 * 1024},
		{arg: "1MiB", want: 1024 * 1024},
		{arg: "1", want: 1},
		{arg: "0", wantErr: "out of range"},
		{arg: "2MiB", wantErr: "out of range"},
		{arg: "lots", wantErr: "argument parse failed"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			c, consts, errs := NewChunker([]string{"fixed-size", "--" + tt.arg})
			if tt.wantErr != "" {
				require.Len(t, errs, 1)
				assert.Contains(t, errs[0].Error(), tt.wantErr)
				return
			}
			require.Empty(t, errs)
			require.NotNil(t, c)
			assert.Equal(t, tt.want, consts.MinChunkSize)
			assert.Equal(t, tt.want, consts.MaxChunkSize)
			assert.True(t, consts.Streaming)
		})
	}
}

func TestNewChunkerArity(t *testing.T) {
	_, _, errs := NewChunker([]string{"fixed-size"})
	assert.Len(t, errs, 1)

	_, _, errs = NewChunker([]string{"fixed-size", "--4", "--5"})
	assert.Len(t, errs, 1)

	_, _, help := NewChunker(nil)
	require.NotEmpty(t, help)
	assert.Contains(t, help[0].Error(), "equally sized chunks")
}

func TestWriterSegments(t *testing.T) {
	c, _, errs := NewChunker([]string{"fixed-size", "--3"})
	require.Empty(t, errs)

	var sizes []int
	var total int64
	w, err := c.NewWriter(segment.HandlerFuncs{
		OnChunk:    func(ch segment.Chunk) error { sizes = append(sizes, len(ch.Data)); return nil },
		OnComplete: func(n int64) error { total = n; return nil },
	})
	require.NoError(t, err)

	for _, p := range []string{"ab", "cdefg", "", "h"} {
		_, err := w.Write([]byte(p))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	assert.Equal(t, []int{3, 3, 2}, sizes)
	assert.EqualValues(t, 8, total)
}
