// Package deferbuf provides a byte container optimized for bursts of appends.
//
// Appended slices are queued as separate fragments and only merged into one
// contiguous store ("reconciled") when an operation needs the contiguous
// form: reads, indexing, structural edits. A burst of N appends followed by a
// read therefore costs a single linear merge instead of N reallocations.
//
// A Buffer is safe for concurrent use. Its zero value is an empty buffer
// ready to use.
package deferbuf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/atomic"
)

// ErrIndexOutOfRange is returned, wrapped with the offending values, by any
// access outside the current bounds of a Buffer. A rejected call never
// modifies the Buffer.
var ErrIndexOutOfRange = errors.New("index out of range")

type Buffer struct {
	mu        sync.Mutex
	store     []byte
	fragments [][]byte

	// byte count of fragments, readable without the lock
	pending atomic.Int64
}

var (
	_ io.Writer   = (*Buffer)(nil)
	_ io.WriterTo = (*Buffer)(nil)
)

// New returns an empty Buffer.
func New() *Buffer { return new(Buffer) }

// reconcile merges all pending fragments into the store. Must be called with
// mu held.
func (b *Buffer) reconcile() {
	if len(b.fragments) == 0 {
		return
	}

	merged := make([]byte, len(b.store)+int(b.pending.Load()))
	off := copy(merged, b.store)
	for _, f := range b.fragments {
		off += copy(merged[off:], f)
	}

	b.store = merged
	// drop the merged fragments, only the list capacity is reused
	clear(b.fragments)
	b.fragments = b.fragments[:0]
	b.pending.Store(0)
}

// Sync reconciles pending fragments. It returns immediately, without taking
// the lock, when nothing is pending.
func (b *Buffer) Sync() {
	if b.pending.Load() == 0 {
		return
	}
	b.mu.Lock()
	b.reconcile()
	b.mu.Unlock()
}

func (b *Buffer) push(owned []byte) {
	if len(owned) == 0 {
		return
	}
	b.fragments = append(b.fragments, owned)
	b.pending.Add(int64(len(owned)))
}

// Append queues a copy of p without touching the contiguous store.
func (b *Buffer) Append(p []byte) {
	b.mu.Lock()
	b.push(clone(p))
	b.mu.Unlock()
}

// AppendLast appends p and reconciles right away, for use as the final call
// of an append burst that is about to be read.
func (b *Buffer) AppendLast(p []byte) {
	b.mu.Lock()
	b.push(clone(p))
	b.reconcile()
	b.mu.Unlock()
}

// AppendRange appends p[from:to].
func (b *Buffer) AppendRange(p []byte, from, to int) error {
	if from < 0 || to > len(p) || from > to {
		return fmt.Errorf("%w: range [%d:%d] of %d bytes", ErrIndexOutOfRange, from, to, len(p))
	}
	b.Append(p[from:to])
	return nil
}

// AppendByte appends a single byte.
func (b *Buffer) AppendByte(c byte) {
	b.mu.Lock()
	b.push([]byte{c})
	b.mu.Unlock()
}

// AppendInt16 appends the 2-byte little-endian form of v.
func (b *Buffer) AppendInt16(v int16) {
	b.appendOwned(binary.LittleEndian.AppendUint16(nil, uint16(v)))
}

// AppendInt32 appends the 4-byte little-endian form of v.
func (b *Buffer) AppendInt32(v int32) {
	b.appendOwned(binary.LittleEndian.AppendUint32(nil, uint32(v)))
}

// AppendInt64 appends the 8-byte little-endian form of v.
func (b *Buffer) AppendInt64(v int64) {
	b.appendOwned(binary.LittleEndian.AppendUint64(nil, uint64(v)))
}

func (b *Buffer) appendOwned(p []byte) {
	b.mu.Lock()
	b.push(p)
	b.mu.Unlock()
}

// Write appends a copy of p. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.Append(p)
	return len(p), nil
}

// Insert splices p into the buffer at index i. Inserting at Len() is the same
// as appending.
func (b *Buffer) Insert(i int, p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reconcile()
	if i < 0 || i > len(b.store) {
		return fmt.Errorf("%w: insert at %d, length %d", ErrIndexOutOfRange, i, len(b.store))
	}
	if len(p) == 0 {
		return nil
	}
	if i == len(b.store) {
		b.push(clone(p))
		return nil
	}

	spliced := make([]byte, len(b.store)+len(p))
	copy(spliced, b.store[:i])
	copy(spliced[i:], p)
	copy(spliced[i+len(p):], b.store[i:])
	b.store = spliced
	return nil
}

// Prepend inserts p in front of the current content.
func (b *Buffer) Prepend(p []byte) {
	// index 0 is always in range
	_ = b.Insert(0, p)
}

// At returns the byte at index i.
func (b *Buffer) At(i int) (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reconcile()
	if err := checkIndex(i, len(b.store)); err != nil {
		return 0, err
	}
	return b.store[i], nil
}

// Get returns a copy of count bytes starting at start.
func (b *Buffer) Get(start, count int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reconcile()
	if err := checkRange(start, count, len(b.store)); err != nil {
		return nil, err
	}
	return clone(b.store[start : start+count]), nil
}

// Set overwrites the byte at index i.
func (b *Buffer) Set(i int, c byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reconcile()
	if err := checkIndex(i, len(b.store)); err != nil {
		return err
	}
	b.store[i] = c
	return nil
}

// SetBytes overwrites len(p) bytes starting at start. It never grows the
// buffer.
func (b *Buffer) SetBytes(start int, p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reconcile()
	if err := checkRange(start, len(p), len(b.store)); err != nil {
		return err
	}
	copy(b.store[start:], p)
	return nil
}

// Remove deletes count bytes starting at start, shifting the tail down.
func (b *Buffer) Remove(start, count int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reconcile()
	if count <= 0 {
		return fmt.Errorf("%w: remove count %d must be positive", ErrIndexOutOfRange, count)
	}
	if err := checkRange(start, count, len(b.store)); err != nil {
		return err
	}

	trimmed := make([]byte, len(b.store)-count)
	copy(trimmed, b.store[:start])
	copy(trimmed[start:], b.store[start+count:])
	b.store = trimmed
	return nil
}

// Len returns the length of the content, pending appends included.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reconcile()
	return len(b.store)
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.store = nil
	b.fragments = nil
	b.pending.Store(0)
	b.mu.Unlock()
}

// Clone returns an independent deep copy.
func (b *Buffer) Clone() *Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reconcile()
	return &Buffer{store: clone(b.store)}
}

// Bytes returns a copy of the full content.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reconcile()
	return clone(b.store)
}

// WriteTo writes the full content to w. The content is snapshotted first, so
// w is never invoked with the buffer locked.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Bytes())
	return int64(n), err
}

// String renders the content as signed byte values, e.g.
// "[1 , -1 , 3]; item-count = 3".
func (b *Buffer) String() string {
	content := b.Bytes()

	var sb strings.Builder
	sb.WriteByte('[')
	for i, c := range content {
		if i > 0 {
			sb.WriteString(" , ")
		}
		sb.WriteString(strconv.Itoa(int(int8(c))))
	}
	sb.WriteString("]; item-count = ")
	sb.WriteString(strconv.Itoa(len(content)))
	return sb.String()
}

func checkIndex(i, length int) error {
	if length == 0 {
		return fmt.Errorf("%w: index %d in empty buffer", ErrIndexOutOfRange, i)
	}
	if i < 0 || i >= length {
		return fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, i, length)
	}
	return nil
}

func checkRange(start, count, length int) error {
	if err := checkIndex(start, length); err != nil {
		return err
	}
	if count < 0 || start+count > length {
		return fmt.Errorf("%w: range %d+%d, length %d", ErrIndexOutOfRange, start, count, length)
	}
	return nil
}

func clone(p []byte) []byte {
	if len(p) == 0 {
		return nil
	}
	c := make([]byte, len(p))
	copy(c, p)
	return c
}
