// SPDX-License-Identifier: MIT
/*
Package pitch turns a spectrum into a fundamental-frequency estimate and a
frequency into the nearest equal-tempered note.

Two estimator modes exist and are never mixed:
- Refined: peak search inside [MinHz, MaxHz] plus parabolic sub-bin
  interpolation
- Simple: peak search over every bin above DC, integer bin only
*/
package pitch

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Mode selects how FindFundamental searches the spectrum.
type Mode int

const (
	Refined Mode = iota
	Simple
)

func (m Mode) String() string {
	switch m {
	case Refined:
		return "refined"
	case Simple:
		return "simple"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a config name to a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "refined", "":
		return Refined, nil
	case "simple":
		return Simple, nil
	default:
		return Refined, fmt.Errorf("unknown pitch mode: '%s'", name)
	}
}

var (
	ErrSampleRate = errors.New("pitch: sample rate must be positive")
	ErrRange      = errors.New("pitch: search range must satisfy 0 <= min < max")
)

// Estimate is the outcome of one peak search. The zero value means no
// peak was found.
type Estimate struct {
	Frequency float64 // Hz, possibly between bins
	Bin       float64 // refined bin index
	Magnitude float64 // |X[peak]|, a confidence proxy
}

// Valid reports whether a peak was found.
func (e Estimate) Valid() bool {
	return e.Frequency > 0 && !math.IsInf(e.Frequency, 0) && !math.IsNaN(e.Frequency)
}

// Estimator holds the configuration of a peak search.
type Estimator struct {
	mode       Mode
	sampleRate float64
	minHz      float64
	maxHz      float64
}

// NewEstimator validates the configuration. The search range is only used
// by Refined mode.
func NewEstimator(mode Mode, sampleRate, minHz, maxHz float64) (*Estimator, error) {
	if sampleRate <= 0 {
		return nil, ErrSampleRate
	}
	if mode == Refined && (minHz < 0 || maxHz <= minHz) {
		return nil, fmt.Errorf("%w: got [%.1f, %.1f] Hz", ErrRange, minHz, maxHz)
	}
	return &Estimator{mode: mode, sampleRate: sampleRate, minHz: minHz, maxHz: maxHz}, nil
}

func (e *Estimator) Mode() Mode { return e.mode }

// FindFundamental runs the configured search over spectrum.
func (e *Estimator) FindFundamental(spectrum []complex128) Estimate {
	if e.mode == Simple {
		return FindPeak(spectrum, e.sampleRate)
	}
	return FindFundamental(spectrum, e.sampleRate, e.minHz, e.maxHz)
}

// FindFundamental searches bins [floor(minHz·N/sr), min(floor(maxHz·N/sr), N/2))
// for the largest magnitude, keeping the lowest bin on ties, and refines an
// interior peak with parabolic interpolation.
func FindFundamental(spectrum []complex128, sampleRate, minHz, maxHz float64) Estimate {
	n := len(spectrum)
	half := n / 2

	minBin := max(int(math.Floor(minHz*float64(n)/sampleRate)), 0)
	maxBin := min(int(math.Floor(maxHz*float64(n)/sampleRate)), half)

	idx, mag := peak(spectrum, minBin, maxBin)
	if mag == 0 {
		return Estimate{}
	}

	bin := float64(idx)
	if idx > 0 && idx < half-1 {
		alpha := abs(spectrum[idx-1])
		gamma := abs(spectrum[idx+1])
		if p, ok := Interpolate(alpha, mag, gamma); ok {
			bin += p
		}
	}

	return Estimate{
		Frequency: bin * sampleRate / float64(n),
		Bin:       bin,
		Magnitude: mag,
	}
}

// FindPeak searches every bin in [1, N/2) and returns the integer bin
// frequency of the largest magnitude.
func FindPeak(spectrum []complex128, sampleRate float64) Estimate {
	n := len(spectrum)
	idx, mag := peak(spectrum, 1, n/2)
	if mag == 0 {
		return Estimate{}
	}
	return Estimate{
		Frequency: float64(idx) * sampleRate / float64(n),
		Bin:       float64(idx),
		Magnitude: mag,
	}
}

// Interpolate returns the offset p of a parabola's vertex through the
// magnitudes of bins k-1, k, k+1:
//
//	p = 0.5·(α − γ) / (α − 2β + γ)
//
// ok is false when the parabola is degenerate or p is not finite.
func Interpolate(alpha, beta, gamma float64) (p float64, ok bool) {
	denom := alpha - 2*beta + gamma
	if denom == 0 {
		return 0, false
	}
	p = 0.5 * (alpha - gamma) / denom
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, false
	}
	return p, true
}

// peak scans [lo, hi) and returns the first bin holding the maximum
// magnitude. An empty range or an all-zero range yields (lo, 0).
func peak(spectrum []complex128, lo, hi int) (int, float64) {
	idx, best := lo, 0.0
	for i := lo; i < hi; i++ {
		if m := abs(spectrum[i]); m > best {
			idx, best = i, m
		}
	}
	return idx, best
}

func abs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
