// SPDX-License-Identifier: MIT
// Package utils holds signal generators and test doubles shared by the
// package tests.
package utils

import (
	"math"
	"math/cmplx"
	"sync"
)

// MockSink records every value sent to it instead of presenting it. It is
// safe for concurrent use.
type MockSink[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
}

// Send stores the value for later inspection.
func (m *MockSink[T]) Send(v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, v)
	return nil
}

// Close marks the sink closed.
func (m *MockSink[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Items returns a copy of everything sent so far.
func (m *MockSink[T]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]T, len(m.items))
	copy(out, m.items)
	return out
}

// Len returns the number of values sent so far.
func (m *MockSink[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Closed reports whether Close was called.
func (m *MockSink[T]) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GenerateHarmonicWave returns a plucked-string style tone: the
// fundamental plus overtones, weights[i] scaling harmonic i+1. The result
// peaks below 0.9 full scale. With no weights it is a pure tone.
func GenerateHarmonicWave(size int, sampleRate, fundamental float64, weights ...float64) []float32 {
	if len(weights) == 0 {
		weights = []float64{1}
	}
	var total float64
	for _, w := range weights {
		total += math.Abs(w)
	}

	buffer := make([]float32, size)
	if total == 0 {
		return buffer
	}
	for i := range buffer {
		tm := float64(i) / sampleRate
		var v float64
		for h, w := range weights {
			v += w * math.Sin(2*math.Pi*fundamental*float64(h+1)*tm)
		}
		buffer[i] = float32(0.9 * v / total)
	}
	return buffer
}

// GenerateSineWave returns a pure tone at 0.9 full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * 0.9)
	}
	return buffer
}

// ToComplex widens float samples to zero-imaginary complex samples.
func ToComplex(samples []float32) []complex128 {
	out := make([]complex128, len(samples))
	for i, s := range samples {
		out[i] = complex(float64(s), 0)
	}
	return out
}

// PeakBin returns the bin of largest magnitude in spectrum[lo:hi], the
// lowest such bin on ties, or -1 if the range is empty.
func PeakBin(spectrum []complex128, lo, hi int) int {
	lo = max(lo, 0)
	hi = min(hi, len(spectrum))

	peak, peakMag := -1, -1.0
	for k := lo; k < hi; k++ {
		if m := cmplx.Abs(spectrum[k]); m > peakMag {
			peak, peakMag = k, m
		}
	}
	return peak
}
