package segment

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextRunes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		size  int
		want  []string
	}{
		{
			name:  "ascii",
			input: "hello world test",
			size:  5,
			want:  []string{"hello", " worl", "d tes", "t"},
		},
		{
			name:  "multi-byte runes stay whole",
			input: "a\u00f1b\u20acc\U0001F600d",
			size:  2,
			want:  []string{"a\u00f1", "b\u20ac", "c\U0001F600", "d"},
		},
		{
			name:  "exact multiple",
			input: "日本語テキスト",
			size:  7,
			want:  []string{"日本語テキスト"},
		},
		{
			name:  "invalid bytes count as one character each",
			input: "a\xffb\xfe",
			size:  3,
			want:  []string{"a\xffb", "\xfe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, total, err := Collect(FromText(tt.input), tt.size)
			require.NoError(t, err)
			assert.EqualValues(t, len(tt.input), total)

			got := make([]string, len(chunks))
			for i, c := range chunks {
				got[i] = string(c.Data)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, strings.Join(got, ""))
		})
	}
}

func TestTextNeverSplitsEncodedCharacters(t *testing.T) {
	input := strings.Repeat("ĀබԱ𝄞x", 97)

	for _, size := range []int{1, 2, 3, 5, 8, 13, 100} {
		chunks, _, err := Collect(FromText(input), size)
		require.NoError(t, err)

		var rebuilt strings.Builder
		for i, c := range chunks {
			require.True(t, utf8.Valid(c.Data), "chunk %d splits a character", i)
			n := utf8.RuneCount(c.Data)
			if i < len(chunks)-1 {
				assert.Equal(t, size, n)
			} else {
				assert.LessOrEqual(t, n, size)
				assert.Positive(t, n)
			}
			rebuilt.Write(c.Data)
		}
		assert.Equal(t, input, rebuilt.String())
	}
}

func TestTextGraphemes(t *testing.T) {
	// e + combining acute, then a flag made of two regional indicators
	input := "ae\u0301b\U0001F1F3\U0001F1ECc"

	runeChunks, _, err := Collect(FromText(input), 2)
	require.NoError(t, err)
	assert.Equal(t, "ae", string(runeChunks[0].Data), "rune mode separates the combining mark")

	chunks, total, err := Collect(FromText(input, WithTextMode(Graphemes)), 2)
	require.NoError(t, err)
	assert.EqualValues(t, len(input), total)

	got := make([]string, len(chunks))
	for i, c := range chunks {
		got[i] = string(c.Data)
	}
	assert.Equal(t, []string{"ae\u0301", "b\U0001F1F3\U0001F1EC", "c"}, got)
}

func TestTextGraphemeLongerThanScannerToken(t *testing.T) {
	// a single cluster of 80,001 bytes: a base letter with 40,000 combining marks
	long := "a" + strings.Repeat("\u0301", 40000)
	input := long + "b"

	chunks, total, err := Collect(FromText(input, WithTextMode(Graphemes)), 1)
	require.NoError(t, err)
	assert.EqualValues(t, len(input), total)
	require.Len(t, chunks, 2)
	assert.Equal(t, long, string(chunks[0].Data))
	assert.Equal(t, "b", string(chunks[1].Data))
}

func TestTextModeString(t *testing.T) {
	assert.Equal(t, "runes", Runes.String())
	assert.Equal(t, "graphemes", Graphemes.String())
}
