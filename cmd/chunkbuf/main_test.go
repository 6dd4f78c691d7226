package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/anjor/chunkbuf"
)

func TestDeterministicChunkReport(t *testing.T) {

	payload := make([]byte, 3*1024*1024+17)
	rand.New(rand.NewSource(42)).Read(payload)

	inPath := filepath.Join(t.TempDir(), "payload.dat")
	if err := os.WriteFile(inPath, payload, 0o644); err != nil {
		t.Fatalf("unexpected error writing payload: %s", err)
	}

	const TEST_ITERATIONS = 5

	var first [32]byte
	for iter := 0; iter < TEST_ITERATIONS; iter++ {

		mockStderr, mockStdout := new(bytes.Buffer), new(bytes.Buffer)

		cb, errs := chunkbuf.NewWithWriters(mockStderr, mockStdout,
			"--chunker=fixed-size_65536",
			"--emit-stderr=none",
		)
		if len(errs) > 0 {
			for _, err := range errs {
				t.Error(err)
			}
			t.FailNow()
		}

		mockOsStdin, err := os.Open(inPath)
		if err != nil {
			t.Fatalf("unexpected error opening payload: %s", err)
		}
		inStat, err := mockOsStdin.Stat()
		if err != nil {
			t.Fatalf("unexpected error stat-ing payload: %s", err)
		}
		applyReadOptimizations(mockOsStdin, inStat)

		processErr := cb.ProcessReader(
			mockOsStdin,
			nil,
		)
		cb.Destroy()
		mockOsStdin.Close()
		if processErr != nil {
			t.Fatalf("unexpected error processing payload: %s", processErr)
		}

		if iter == 0 {
			first = sha256.Sum256(mockStdout.Bytes())
			if n := bytes.Count(mockStdout.Bytes(), []byte("\n")); n != 49 {
				t.Errorf("expected 49 chunk lines, got %d", n)
			}
		} else {
			current := sha256.Sum256(mockStdout.Bytes())
			if current != first {
				t.Errorf("iteration %d: content sum does not match first content sum on iteration [ %s, %s ]", iter, hex.EncodeToString(first[:]), hex.EncodeToString(current[:]))
			}
		}
	}
}
