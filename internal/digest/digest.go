// Package digest computes the per-chunk content digests reported by the
// chunks-jsonl emitter, rendered in a multibase-prefixed text form.
package digest

import (
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"

	"github.com/anjor/chunkbuf/internal/util/text"
	"github.com/minio/sha256-simd"
	"github.com/multiformats/go-base36"
	"github.com/twmb/murmur3"
	"golang.org/x/crypto/blake2b"
)

var ErrUnknownHasher = errors.New("unknown hash function")
var ErrUnknownMultibase = errors.New("unknown multibase")

// a nil constructor means "do not hash"
var AvailableHashers = map[string]func() hash.Hash{
	"none":     nil,
	"sha2-256": sha256.New,
	"blake2b-256": func() hash.Hash {
		// only fails on oversized keys
		h, _ := blake2b.New256(nil)
		return h
	},
	"murmur3-128": func() hash.Hash { return murmur3.New128() },
}

var b32Encoder = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// multibase encoders, each prepending its multibase prefix character
var AvailableMultibases = map[string]func([]byte) string{
	"base36": func(b []byte) string { return "k" + base36.EncodeToStringLc(b) },
	"base32": func(b []byte) string { return "b" + b32Encoder.EncodeToString(b) },
	"base16": func(b []byte) string { return "f" + hex.EncodeToString(b) },
}

// Digester is not safe for concurrent use: it reuses one hash state.
type Digester struct {
	hasherName string
	h          hash.Hash
	encode     func([]byte) string
	sum        []byte
}

func New(hasherName, multibase string) (*Digester, error) {
	newHash, known := AvailableHashers[hasherName]
	if !known {
		return nil, fmt.Errorf("%w '%s', available hash names are %s",
			ErrUnknownHasher, hasherName, text.AvailableMapKeys(AvailableHashers))
	}
	encode, known := AvailableMultibases[multibase]
	if !known {
		return nil, fmt.Errorf("%w '%s', available multibases are %s",
			ErrUnknownMultibase, multibase, text.AvailableMapKeys(AvailableMultibases))
	}

	d := &Digester{hasherName: hasherName, encode: encode}
	if newHash != nil {
		d.h = newHash()
	}
	return d, nil
}

func (d *Digester) HasherName() string { return d.hasherName }

// Active reports whether Sum produces anything.
func (d *Digester) Active() bool { return d.h != nil }

// Sum returns the encoded digest of data, or "" when hashing is disabled.
func (d *Digester) Sum(data []byte) string {
	if d.h == nil {
		return ""
	}
	d.h.Reset()
	d.h.Write(data) //nolint:errcheck
	d.sum = d.h.Sum(d.sum[:0])
	return d.encode(d.sum)
}
