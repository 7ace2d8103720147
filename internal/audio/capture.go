// SPDX-License-Identifier: MIT
package audio

import "tuner/internal/ring"

// Capture is the producer side of the ring buffer.
type Capture struct {
	buf     *ring.Buffer
	scratch []complex128
}

// NewCapture converts blocks of up to blockSize samples at a time. Larger
// blocks are written in blockSize chunks.
func NewCapture(buf *ring.Buffer, blockSize int) *Capture {
	return &Capture{buf: buf, scratch: make([]complex128, max(blockSize, 1))}
}

// Push is a Callback. It never blocks and never allocates.
func (c *Capture) Push(block []float32) {
	for len(block) > 0 {
		n := min(len(block), len(c.scratch))
		for i, s := range block[:n] {
			c.scratch[i] = complex(float64(s), 0)
		}
		c.buf.Write(c.scratch[:n])
		block = block[n:]
	}
}
