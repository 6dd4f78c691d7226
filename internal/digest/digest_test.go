package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSha256MatchesStdlib(t *testing.T) {
	data := []byte("chunk payload")
	want := sha256.Sum256(data)

	d, err := New("sha2-256", "base16")
	require.NoError(t, err)
	assert.True(t, d.Active())
	assert.Equal(t, "f"+hex.EncodeToString(want[:]), d.Sum(data))

	// state is reset between calls
	assert.Equal(t, d.Sum(data), d.Sum(data))
}

func TestDigestLengths(t *testing.T) {
	tests := []struct {
		hasher string
		bytes  int
	}{
		{"sha2-256", 32},
		{"blake2b-256", 32},
		{"murmur3-128", 16},
	}
	for _, tt := range tests {
		t.Run(tt.hasher, func(t *testing.T) {
			d, err := New(tt.hasher, "base16")
			require.NoError(t, err)
			s := d.Sum([]byte("abc"))
			assert.Len(t, s, 1+2*tt.bytes)
			assert.NotEqual(t, s, d.Sum([]byte("abd")))
		})
	}
}

func TestMultibasePrefixes(t *testing.T) {
	for mb, prefix := range map[string]string{"base36": "k", "base32": "b", "base16": "f"} {
		d, err := New("blake2b-256", mb)
		require.NoError(t, err)
		s := d.Sum([]byte{0xff, 0x00})
		assert.Equal(t, prefix, s[:1], mb)
		assert.Regexp(t, `^[a-z0-9]+$`, s, mb)
	}
}

func TestNoneAndUnknown(t *testing.T) {
	d, err := New("none", "base36")
	require.NoError(t, err)
	assert.False(t, d.Active())
	assert.Empty(t, d.Sum([]byte("x")))
	assert.Equal(t, "none", d.HasherName())

	_, err = New("md5", "base36")
	assert.ErrorIs(t, err, ErrUnknownHasher)

	_, err = New("sha2-256", "base58")
	assert.ErrorIs(t, err, ErrUnknownMultibase)
}
