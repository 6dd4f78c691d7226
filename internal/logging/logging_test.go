package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestInitLevels(t *testing.T) {
	var buf bytes.Buffer

	Init(&buf, false, false)
	L().Debug().Msg("hidden")
	L().Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	buf.Reset()
	Init(&buf, true, true)
	L().Debug().Str("k", "v").Msg("console debug")
	assert.Contains(t, buf.String(), "console debug")
	assert.Contains(t, buf.String(), "k=v")

	Init(os.Stderr, false, false)
}

func TestWithStream(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	log := WithStream(7)
	log.Info().Msg("stream done")
	assert.Contains(t, buf.String(), `"stream":7`)

	Init(os.Stderr, false, false)
}
