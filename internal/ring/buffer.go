// SPDX-License-Identifier: MIT
/*
Package ring implements the fixed-capacity circular sample store that sits
between the audio capture callback (producer) and the analysis loop
(consumer).

Thread Safety:
- Exactly one producer and one consumer per Buffer
- The producer only stores tail, the consumer only stores head
- No locks: Write never blocks the real-time callback
- Multiple producers or consumers need their own mutual exclusion

One slot is always left empty, so head == tail means empty and
(tail+1) % capacity == head means full.
*/
package ring

import (
	"errors"
	"sync/atomic"
)

// ErrInvalidCapacity is returned when a buffer would hold no usable slot.
var ErrInvalidCapacity = errors.New("ring: capacity must be greater than 1")

// Buffer is a single-producer/single-consumer ring of complex samples.
type Buffer struct {
	data []complex128
	size int

	head atomic.Int64 // next slot to read, owned by the consumer
	tail atomic.Int64 // next slot to write, owned by the producer

	dropped atomic.Uint64 // samples truncated by Write
}

// New allocates a buffer with room for capacity-1 samples.
func New(capacity int) (*Buffer, error) {
	if capacity <= 1 {
		return nil, ErrInvalidCapacity
	}
	return &Buffer{
		data: make([]complex128, capacity),
		size: capacity,
	}, nil
}

// MustNew is New for capacities that are program constants. It panics on
// an invalid capacity.
func MustNew(capacity int) *Buffer {
	b, err := New(capacity)
	if err != nil {
		panic(err)
	}
	return b
}

// Write copies as many samples as fit into the free space and returns the
// count written. Samples beyond the free space are dropped, never waited for.
func (b *Buffer) Write(samples []complex128) int {
	head := int(b.head.Load())
	tail := int(b.tail.Load())

	toWrite := min(len(samples), b.space(head, tail))
	if dropped := len(samples) - toWrite; dropped > 0 {
		b.dropped.Add(uint64(dropped))
	}
	if toWrite == 0 {
		return 0
	}

	first := min(toWrite, b.size-tail)
	copy(b.data[tail:tail+first], samples[:first])
	if toWrite > first {
		copy(b.data[:toWrite-first], samples[first:toWrite])
	}

	// Publish after the copy so the consumer never sees unwritten slots.
	b.tail.Store(int64((tail + toWrite) % b.size))
	return toWrite
}

// Read copies up to len(dst) samples out of the buffer and returns the
// count read. A short read means fewer samples were available.
func (b *Buffer) Read(dst []complex128) int {
	head := int(b.head.Load())
	tail := int(b.tail.Load())

	toRead := min(len(dst), b.available(head, tail))
	if toRead == 0 {
		return 0
	}

	first := min(toRead, b.size-head)
	copy(dst[:first], b.data[head:head+first])
	if toRead > first {
		copy(dst[first:toRead], b.data[:toRead-first])
	}

	b.head.Store(int64((head + toRead) % b.size))
	return toRead
}

// Available returns the number of samples ready to be read.
func (b *Buffer) Available() int {
	return b.available(int(b.head.Load()), int(b.tail.Load()))
}

// Space returns the number of samples that can be written without loss.
func (b *Buffer) Space() int {
	return b.space(int(b.head.Load()), int(b.tail.Load()))
}

// Cap returns the slot count the buffer was created with. At most Cap()-1
// samples are stored at once.
func (b *Buffer) Cap() int {
	return b.size
}

func (b *Buffer) IsEmpty() bool {
	return b.head.Load() == b.tail.Load()
}

func (b *Buffer) IsFull() bool {
	return (b.tail.Load()+1)%int64(b.size) == b.head.Load()
}

// Dropped returns the total number of samples Write has discarded.
func (b *Buffer) Dropped() uint64 {
	return b.dropped.Load()
}

// Reset discards all buffered samples. It must not race with Write.
func (b *Buffer) Reset() {
	b.head.Store(b.tail.Load())
}

func (b *Buffer) available(head, tail int) int {
	if tail >= head {
		return tail - head
	}
	return b.size - head + tail
}

func (b *Buffer) space(head, tail int) int {
	return b.size - b.available(head, tail) - 1
}
