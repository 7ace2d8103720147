// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"sync/atomic"
)

// Gate suppresses frames whose peak amplitude does not exceed a threshold.
// The threshold is in the range 0.0-1.0 of full scale, 0 disables the gate.
// It may be adjusted from another goroutine while frames are processed.
type Gate struct {
	threshold atomic.Uint64 // math.Float64bits
}

// NewGate returns a gate with the given threshold, clamped to 0.0-1.0.
func NewGate(threshold float64) *Gate {
	g := &Gate{}
	g.SetThreshold(threshold)
	return g
}

// SetThreshold adjusts the gate threshold, clamped to 0.0-1.0.
func (g *Gate) SetThreshold(threshold float64) {
	if threshold < 0.0 || math.IsNaN(threshold) {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	g.threshold.Store(math.Float64bits(threshold))
}

func (g *Gate) Threshold() float64 {
	return math.Float64frombits(g.threshold.Load())
}

func (g *Gate) Enabled() bool {
	return g.Threshold() > 0
}

// Open reports whether a frame with the given peak level passes.
func (g *Gate) Open(level float64) bool {
	t := g.Threshold()
	return t == 0 || level > t
}

// PeakLevel returns the largest absolute real sample in frame.
func PeakLevel(frame []complex128) float64 {
	var peak float64
	for _, s := range frame {
		peak = max(peak, math.Abs(real(s)))
	}
	return peak
}
