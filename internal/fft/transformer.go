// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"

	"tuner/pkg/bitint"
)

// Transformer performs an in-place forward transform on frames of a fixed
// length.
type Transformer interface {
	Transform(frame []complex128)
	Size() int
}

// Backend names a Transformer implementation.
type Backend int

const (
	Radix2 Backend = iota // in-house iterative radix-2
	Gonum                 // gonum.org/v1/gonum/dsp/fourier
)

func (b Backend) String() string {
	switch b {
	case Radix2:
		return "radix2"
	case Gonum:
		return "gonum"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// ParseBackend converts a config name to a Backend.
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "radix2":
		return Radix2, nil
	case "gonum":
		return Gonum, nil
	default:
		return Radix2, fmt.Errorf("unknown fft backend: '%s'", name)
	}
}

// NewTransformer builds an n-point transformer for the backend.
func NewTransformer(backend Backend, n int) (Transformer, error) {
	if !bitint.IsPowerOfTwo(n) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", n)
	}
	switch backend {
	case Radix2:
		return NewPlan(n), nil
	case Gonum:
		return newGonumTransformer(n), nil
	default:
		return nil, fmt.Errorf("unsupported fft backend %v", backend)
	}
}

// gonumTransformer adapts fourier.CmplxFFT to the in-place contract using
// a pre-allocated scratch slice.
type gonumTransformer struct {
	fft     *fourier.CmplxFFT
	scratch []complex128
}

var _ Transformer = (*gonumTransformer)(nil)
var _ Transformer = (*Plan)(nil)

func newGonumTransformer(n int) *gonumTransformer {
	return &gonumTransformer{
		fft:     fourier.NewCmplxFFT(n),
		scratch: make([]complex128, n),
	}
}

func (g *gonumTransformer) Size() int { return len(g.scratch) }

func (g *gonumTransformer) Transform(frame []complex128) {
	if len(frame) != len(g.scratch) {
		panic(fmt.Sprintf("fft: gonum transformer for %d points applied to frame of %d", len(g.scratch), len(frame)))
	}
	g.fft.Coefficients(g.scratch, frame)
	copy(frame, g.scratch)
}
