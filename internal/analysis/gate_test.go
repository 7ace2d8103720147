// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"strconv"
	"testing"
)

var (
	quietFrame = scaledFrame(1024, 0.001)
	loudFrame  = scaledFrame(1024, 0.9)
)

// scaledFrame alternates sign and peaks at exactly -amplitude.
func scaledFrame(n int, amplitude float64) []complex128 {
	frame := make([]complex128, n)
	for i := range frame {
		v := amplitude * float64(i%100) / 100
		if i%2 == 1 {
			v = -v
		}
		frame[i] = complex(v, 0)
	}
	frame[n/2+1] = complex(-amplitude, 0)
	return frame
}

func TestGateThresholdBoundaries(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-0.1, 0.0}, // Below min
		{0.0, 0.0},  // Minimum
		{0.5, 0.5},  // Middle
		{1.0, 1.0},  // Maximum
		{1.5, 1.0},  // Above max
		{math.NaN(), 0.0},
	}

	gate := NewGate(0)
	for _, tt := range tests {
		t.Run(strconv.FormatFloat(tt.input, 'f', -1, 64), func(t *testing.T) {
			gate.SetThreshold(tt.input)
			if got := gate.Threshold(); got != tt.expected {
				t.Errorf("Gate threshold: got %.3f, want %.3f", got, tt.expected)
			}
		})
	}
}

func TestGateEnabled(t *testing.T) {
	gate := NewGate(0)
	if gate.Enabled() {
		t.Error("Gate with zero threshold should be disabled")
	}
	gate.SetThreshold(0.01)
	if !gate.Enabled() {
		t.Error("Gate should be enabled after setting a threshold")
	}
}

func TestGateDetection(t *testing.T) {
	tests := []struct {
		desc      string
		frame     []complex128
		threshold float64
		open      bool
	}{
		{"Gate disabled/Quiet signal", quietFrame, 0, true},
		{"Gate disabled/Silence", make([]complex128, 8), 0, true},
		{"Quiet signal/Low threshold", quietFrame, 0.0001, true},
		{"Quiet signal/Mid threshold", quietFrame, 0.1, false},
		{"Loud signal/Mid threshold", loudFrame, 0.1, true},
		{"Loud signal/High threshold", loudFrame, 0.999, false},
		{"Level equal to threshold", loudFrame, 0.9, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			gate := NewGate(tt.threshold)
			level := PeakLevel(tt.frame)
			if got := gate.Open(level); got != tt.open {
				t.Errorf("Gate open = %v, want %v (level=%.4f, threshold=%.4f)", got, tt.open, level, gate.Threshold())
			}
		})
	}
}

func TestPeakLevel(t *testing.T) {
	if got := PeakLevel(loudFrame); got != 0.9 {
		t.Errorf("PeakLevel = %v, want 0.9", got)
	}
	if got := PeakLevel(nil); got != 0 {
		t.Errorf("PeakLevel(nil) = %v, want 0", got)
	}
	// Imaginary parts carry no signal.
	if got := PeakLevel([]complex128{complex(0.1, 5)}); got != 0.1 {
		t.Errorf("PeakLevel ignored real part: %v", got)
	}
}

func TestGateHotPath(t *testing.T) {
	gate := NewGate(0.1)
	allocs := testing.AllocsPerRun(100, func() {
		_ = gate.Open(PeakLevel(loudFrame))
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in noise gate hot path, got %.1f", allocs)
	}
}

func BenchmarkGateProcessingHotPath(b *testing.B) {
	benchmarks := []struct {
		name      string
		frame     []complex128
		threshold float64
	}{
		{"Gate disabled", loudFrame, 0},
		{"Quiet signal/Low threshold", quietFrame, 0.0001},
		{"Loud signal/High threshold", loudFrame, 0.999},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			gate := NewGate(bm.threshold)
			b.ReportAllocs()
			for b.Loop() {
				_ = gate.Open(PeakLevel(bm.frame))
			}
		})
	}
}
