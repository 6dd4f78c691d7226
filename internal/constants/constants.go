package constants

import (
	"os"
	"strconv"
)

const (
	// Largest chunk any chunker may produce, and the largest payload a
	// frames-stream record may carry
	MaxChunkSize = 1024 * 1024

	// Text chunkers count characters: a single character is at most this many
	// bytes once it is a grapheme cluster with marks attached, so text chunkers
	// cap their character count to keep chunks within MaxChunkSize
	MaxTextCharBytes = 32
)

type Incomparabe [0]func()

var LongTests bool
var VeryLongTests bool

func init() {
	VeryLongTests = isTruthy("TEST_CHUNKBUF_VERY_LONG")
	LongTests = VeryLongTests || isTruthy("TEST_CHUNKBUF_LONG")
}

func isTruthy(varname string) bool {
	envStr := os.Getenv(varname)
	if envStr != "" {
		if num, err := strconv.ParseUint(envStr, 10, 64); err != nil || num != 0 {
			return true
		}
	}
	return false
}

var PerformSanityChecks = true
