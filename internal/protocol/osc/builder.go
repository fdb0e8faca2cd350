package osc

import (
	"encoding/binary"
	"errors"

	"github.com/danmuck/touch2tuio/internal/protocol"
)

var (
	ErrBundleFull    = errors.New("osc: bundle capacity exceeded")
	ErrBundleNotOpen = errors.New("osc: bundle not started")
)

// BundleBuilder encodes one bundle at a time into a fixed-capacity buffer.
// The buffer is reused across bundles; Bytes is only valid until the next Begin.
type BundleBuilder struct {
	buf      []byte
	capacity int
	open     bool
}

// NewBundleBuilder allocates a builder whose bundles never exceed capacity bytes.
func NewBundleBuilder(capacity int) *BundleBuilder {
	return &BundleBuilder{
		buf:      make([]byte, 0, capacity),
		capacity: capacity,
	}
}

// Begin discards any previous content and opens an immediate bundle.
func (b *BundleBuilder) Begin() {
	b.buf = appendBundleHeader(b.buf[:0], TimetagImmediate)
	b.open = true
}

// Add appends msg as a bundle element.
func (b *BundleBuilder) Add(msg protocol.Message) error {
	if !b.open {
		return ErrBundleNotOpen
	}
	size, err := MessageSize(msg)
	if err != nil {
		return err
	}
	if len(b.buf)+ElementSizeLen+size > b.capacity {
		return ErrBundleFull
	}
	b.buf = binary.BigEndian.AppendUint32(b.buf, uint32(size))
	b.buf, err = AppendMessage(b.buf, msg)
	return err
}

// End closes the bundle and returns its bytes.
func (b *BundleBuilder) End() []byte {
	b.open = false
	return b.buf
}

// Bytes returns the current encoded content.
func (b *BundleBuilder) Bytes() []byte {
	return b.buf
}

func (b *BundleBuilder) Size() int {
	return len(b.buf)
}

func (b *BundleBuilder) Capacity() int {
	return b.capacity
}

// Remaining returns the free bytes before the capacity is reached.
func (b *BundleBuilder) Remaining() int {
	return b.capacity - len(b.buf)
}
