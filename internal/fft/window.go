// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowKind selects the taper applied to a frame before the transform.
type WindowKind int

const (
	// Hann trades amplitude accuracy for frequency resolution. It is zero
	// at both edges.
	Hann WindowKind = iota
	// FlatTop has a flat passband for amplitude accuracy at the cost of a
	// wider main lobe.
	FlatTop
)

func (k WindowKind) String() string {
	switch k {
	case Hann:
		return "hann"
	case FlatTop:
		return "flattop"
	default:
		return fmt.Sprintf("WindowKind(%d)", int(k))
	}
}

// ParseWindowKind converts a config name (case-insensitive) to a WindowKind.
// It returns Hann and an error if the name is unknown.
func ParseWindowKind(name string) (WindowKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hann", "hanning":
		return Hann, nil
	case "flattop", "flat-top", "flat_top":
		return FlatTop, nil
	default:
		return Hann, fmt.Errorf("unknown window function name: '%s'", name)
	}
}

// Coefficients returns the n symmetric window coefficients w(i) for kind.
// Both kinds use the N-1 denominator:
//
//	Hann:    w(i) = 0.5 * (1 - cos(2πi/(N-1)))
//	FlatTop: w(i) = 0.21557895 - 0.41663158 cos(2πi/(N-1)) + 0.277263158 cos(4πi/(N-1))
//	                - 0.083578947 cos(6πi/(N-1)) + 0.006947368 cos(8πi/(N-1))
func Coefficients(kind WindowKind, n int) []float64 {
	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	// A single-point window has no N-1 span to taper over.
	if n < 2 {
		return coeffs
	}
	switch kind {
	case FlatTop:
		window.FlatTop(coeffs)
	default:
		window.Hann(coeffs)
	}
	return coeffs
}

// Window holds pre-computed coefficients for a fixed frame length so the
// analysis loop does not recompute cosines per frame.
type Window struct {
	kind   WindowKind
	coeffs []float64
}

// NewWindow pre-computes an n-point window of the given kind.
func NewWindow(kind WindowKind, n int) *Window {
	return &Window{kind: kind, coeffs: Coefficients(kind, n)}
}

func (w *Window) Kind() WindowKind { return w.kind }

func (w *Window) Len() int { return len(w.coeffs) }

// Apply multiplies frame in place by the window. The frame must have the
// window's length.
func (w *Window) Apply(frame []complex128) {
	if len(frame) != len(w.coeffs) {
		panic(fmt.Sprintf("fft: window length %d applied to frame of %d", len(w.coeffs), len(frame)))
	}
	for i, c := range w.coeffs {
		frame[i] = complex(real(frame[i])*c, imag(frame[i])*c)
	}
}

// ApplyWindow multiplies frame in place by a freshly computed window of the
// frame's own length. Use Window in loops.
func ApplyWindow(frame []complex128, kind WindowKind) {
	NewWindow(kind, len(frame)).Apply(frame)
}
