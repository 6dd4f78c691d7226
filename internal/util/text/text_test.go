package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvailableMapKeys(t *testing.T) {
	assert.Equal(t, "'a', 'b', 'c'", AvailableMapKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
	assert.Equal(t, "", AvailableMapKeys(map[string]bool{}))
}

func TestCommify(t *testing.T) {
	assert.Equal(t, "1,048,576", Commify(1<<20))
	assert.Equal(t, "-12,345", Commify64(-12345))
	assert.Equal(t, "999", Commify(999))
}

func TestBytes(t *testing.T) {
	assert.Equal(t, "1.0 MiB", Bytes(1<<20))
	assert.Equal(t, "512 B", Bytes(512))
	assert.Equal(t, "-2.0 KiB", Bytes(-2048))
}
