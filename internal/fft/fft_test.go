// SPDX-License-Identifier: MIT
package fft

import (
	"math"
	"math/cmplx"
	"testing"

	dspfft "github.com/mjibson/go-dsp/fft"

	"tuner/pkg/utils"
)

var powersOfTwo = []int{2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 2048, 4096}

// naiveDFT is the O(N²) definition the transforms are checked against.
func naiveDFT(x []complex128) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	for k := range n {
		var sum complex128
		for j := range n {
			sum += x[j] * cmplx.Rect(1, -2*math.Pi*float64(j*k)/float64(n))
		}
		out[k] = sum
	}
	return out
}

func testSignal(n int) []complex128 {
	x := make([]complex128, n)
	for i := range x {
		x[i] = complex(math.Sin(0.3*float64(i))+0.5*math.Cos(1.7*float64(i)), 0)
	}
	return x
}

func assertClose(t *testing.T, got, want []complex128, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length %d, want %d", len(got), len(want))
	}
	for i := range got {
		if cmplx.Abs(got[i]-want[i]) > tol {
			t.Fatalf("bin %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFFTDCComponent(t *testing.T) {
	for _, n := range powersOfTwo {
		frame := ones(n)
		FFT(frame)

		if math.Abs(cmplx.Abs(frame[0])-float64(n)) > 1e-9 {
			t.Errorf("n=%d: DC bin = %v, want %d", n, frame[0], n)
		}
		for i := 1; i < n; i++ {
			if cmplx.Abs(frame[i]) > 1e-9 {
				t.Fatalf("n=%d: bin %d = %v, want ~0", n, i, frame[i])
			}
		}
	}
}

func TestFFTSingleFrequency(t *testing.T) {
	for _, n := range []int{8, 32, 256, 1024} {
		for k := 1; k < n/2; k++ {
			frame := make([]complex128, n)
			for i := range frame {
				frame[i] = complex(math.Sin(2*math.Pi*float64(k*i)/float64(n)), 0)
			}
			FFT(frame)

			maxIdx := utils.PeakBin(frame, 0, n/2)
			maxMag := cmplx.Abs(frame[maxIdx])
			if maxIdx != k {
				t.Fatalf("n=%d: peak at bin %d, want %d", n, maxIdx, k)
			}
			if mirror := cmplx.Abs(frame[n-k]); math.Abs(mirror-maxMag) > 1e-9 {
				t.Fatalf("n=%d k=%d: mirror magnitude %g != %g", n, k, mirror, maxMag)
			}
		}
	}
}

func TestFFTParseval(t *testing.T) {
	for _, n := range powersOfTwo {
		frame := make([]complex128, n)
		var timeEnergy float64
		for i := range frame {
			frame[i] = complex(float64(i%3), 0)
			timeEnergy += real(frame[i]) * real(frame[i])
		}
		FFT(frame)

		var freqEnergy float64
		for _, c := range frame {
			m := cmplx.Abs(c)
			freqEnergy += m * m
		}
		freqEnergy /= float64(n)

		if math.Abs(timeEnergy-freqEnergy) > 1e-6*timeEnergy {
			t.Errorf("n=%d: time energy %g, frequency energy %g", n, timeEnergy, freqEnergy)
		}
	}
}

func TestFFTHermitianSymmetry(t *testing.T) {
	const n = 64
	frame := testSignal(n)
	FFT(frame)
	for k := 1; k < n/2; k++ {
		if cmplx.Abs(frame[k]-cmplx.Conj(frame[n-k])) > 1e-9 {
			t.Fatalf("bin %d and %d are not conjugates: %v, %v", k, n-k, frame[k], frame[n-k])
		}
	}
}

// TestFFTWritesEveryBin compares against the DFT definition on inputs where
// a combine loop stopping at k < N/2-1 would leave the last bin of each half
// stale.
func TestFFTWritesEveryBin(t *testing.T) {
	for _, n := range []int{2, 4, 8, 16, 64} {
		x := testSignal(n)
		want := naiveDFT(x)

		got := append([]complex128(nil), x...)
		FFT(got)
		assertClose(t, got, want, 1e-9)
	}
}

func TestFFTComplexInput(t *testing.T) {
	const n = 8
	frame := make([]complex128, n)
	for i := range frame {
		frame[i] = cmplx.Rect(1, 2*math.Pi*float64(i)/n)
	}
	FFT(frame)

	// A single complex exponential at bin 1 puts all of its energy there.
	if math.Abs(cmplx.Abs(frame[1])-n) > 1e-9 {
		t.Errorf("bin 1 = %v, want magnitude %d", frame[1], n)
	}
	for i, c := range frame {
		if i != 1 && cmplx.Abs(c) > 1e-9 {
			t.Errorf("bin %d = %v, want ~0", i, c)
		}
	}
}

func TestFFTLengthOneIsIdentity(t *testing.T) {
	frame := []complex128{complex(3, -2)}
	FFT(frame)
	if frame[0] != complex(3, -2) {
		t.Errorf("FFT of a single sample changed it to %v", frame[0])
	}
}

func TestFFTRejectsNonPowerOfTwo(t *testing.T) {
	for _, n := range []int{0, 3, 6, 100, 4095} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic for length %d", n)
				}
			}()
			FFT(make([]complex128, n))
		}()
	}
}

func TestPlanLengthMismatchPanics(t *testing.T) {
	p := NewPlan(16)
	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched frame length")
		}
	}()
	p.Transform(make([]complex128, 8))
}

func TestBackendsAgree(t *testing.T) {
	for _, n := range []int{16, 512, 4096} {
		x := testSignal(n)

		radix, err := NewTransformer(Radix2, n)
		if err != nil {
			t.Fatal(err)
		}
		gonum, err := NewTransformer(Gonum, n)
		if err != nil {
			t.Fatal(err)
		}

		a := append([]complex128(nil), x...)
		b := append([]complex128(nil), x...)
		radix.Transform(a)
		gonum.Transform(b)
		assertClose(t, a, b, 1e-8)

		// Independent reference implementation.
		assertClose(t, a, dspfft.FFT(x), 1e-8)
	}
}

func TestNewTransformerErrors(t *testing.T) {
	if _, err := NewTransformer(Radix2, 1000); err == nil {
		t.Error("expected error for non power of two size")
	}
	if _, err := NewTransformer(Backend(42), 1024); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		name    string
		want    Backend
		wantErr bool
	}{
		{"", Radix2, false},
		{"radix2", Radix2, false},
		{"Gonum", Gonum, false},
		{"fftw", Radix2, true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.name)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseBackend(%q) = %v, %v", tt.name, got, err)
		}
	}
}

func TestMagnitudes(t *testing.T) {
	spectrum := []complex128{complex(3, 4), complex(0, -2), 1, 9}
	dst := make([]float64, 2)
	Magnitudes(dst, spectrum)
	if dst[0] != 5 || dst[1] != 2 {
		t.Errorf("Magnitudes = %v, want [5 2]", dst)
	}
}

func TestFFTHotPath(t *testing.T) {
	p := NewPlan(4096)
	frame := testSignal(4096)

	allocs := testing.AllocsPerRun(50, func() {
		p.Transform(frame)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in transform hot path, got %.1f", allocs)
	}
}

func BenchmarkTransform(b *testing.B) {
	p := NewPlan(4096)
	frame := testSignal(4096)
	b.ReportAllocs()
	for b.Loop() {
		p.Transform(frame)
	}
}
