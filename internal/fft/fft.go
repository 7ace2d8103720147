// SPDX-License-Identifier: MIT
/*
Package fft is the spectral engine of the pitch pipeline: window functions
and a radix-2 Cooley-Tukey transform over complex frames.

Performance Critical:
- Plans pre-compute twiddles and the bit-reversal table once per size
- Transform works in place and does not allocate
- Frame lengths must be powers of two; anything else panics
*/
package fft

import (
	"fmt"
	"math"
	"sync"

	"tuner/pkg/bitint"
)

// Plan holds the twiddle factors and bit-reversal table for an N-point
// radix-2 transform. A Plan is read-only after creation and may be shared
// between goroutines; Transform itself writes only to the caller's frame.
type Plan struct {
	n        int
	twiddles []complex128 // exp(-2πik/N) for k in [0, N/2)
	swaps    [][2]int     // index pairs exchanged by the bit-reversal permutation
}

// NewPlan pre-computes an N-point plan. It panics if n is not a power of
// two: a frame of any other length is a configuration error.
func NewPlan(n int) *Plan {
	if !bitint.IsPowerOfTwo(n) {
		panic(fmt.Sprintf("fft: length %d is not a power of 2", n))
	}

	half := n / 2
	twiddles := make([]complex128, half)
	for k := range half {
		sin, cos := math.Sincos(-2 * math.Pi * float64(k) / float64(n))
		twiddles[k] = complex(cos, sin)
	}

	width := bitint.Log2(n)
	var swaps [][2]int
	for i := range n {
		if j := bitint.Reverse(i, width); i < j {
			swaps = append(swaps, [2]int{i, j})
		}
	}

	return &Plan{n: n, twiddles: twiddles, swaps: swaps}
}

// Size returns the transform length.
func (p *Plan) Size() int { return p.n }

// Transform replaces frame with its discrete Fourier transform, DC at
// index 0 and the mirrored upper half in [N/2, N). It does not allocate.
func (p *Plan) Transform(frame []complex128) {
	if len(frame) != p.n {
		panic(fmt.Sprintf("fft: plan for %d points applied to frame of %d", p.n, len(frame)))
	}
	if p.n == 1 {
		return
	}

	for _, s := range p.swaps {
		frame[s[0]], frame[s[1]] = frame[s[1]], frame[s[0]]
	}

	// Each pass combines pairs of size/2-point transforms:
	//   X[k]        = E[k] + W^k·O[k]
	//   X[k+size/2] = E[k] - W^k·O[k]    for every k < size/2
	for size := 2; size <= p.n; size <<= 1 {
		half := size / 2
		stride := p.n / size
		for start := 0; start < p.n; start += size {
			for k := range half {
				t := p.twiddles[k*stride] * frame[start+k+half]
				e := frame[start+k]
				frame[start+k] = e + t
				frame[start+k+half] = e - t
			}
		}
	}
}

var plans sync.Map // map[int]*Plan

// PlanFor returns a cached plan for n points.
func PlanFor(n int) *Plan {
	if p, ok := plans.Load(n); ok {
		return p.(*Plan)
	}
	p, _ := plans.LoadOrStore(n, NewPlan(n))
	return p.(*Plan)
}

// FFT transforms frame in place. len(frame) must be a power of two.
func FFT(frame []complex128) {
	PlanFor(len(frame)).Transform(frame)
}

// Magnitudes writes |spectrum[k]| into dst for every k < len(dst).
func Magnitudes(dst []float64, spectrum []complex128) {
	for k := range dst {
		c := spectrum[k]
		dst[k] = math.Hypot(real(c), imag(c))
	}
}
