// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"time"

	"tuner/internal/config"
	"tuner/internal/fft"
	"tuner/internal/pitch"
	"tuner/pkg/bitint"
)

// Options configures a Pipeline.
type Options struct {
	Size          int     // frame length N, a power of two
	SampleRate    float64 // Hz
	Window        fft.WindowKind
	Backend       fft.Backend
	Mode          pitch.Mode
	MinHz         float64
	MaxHz         float64
	GateThreshold float64
}

// OptionsFromConfig parses the analysis section of cfg. cfg is expected to
// have passed Validate.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	window, err := fft.ParseWindowKind(cfg.Analysis.Window)
	if err != nil {
		return Options{}, err
	}
	backend, err := fft.ParseBackend(cfg.Analysis.FFTBackend)
	if err != nil {
		return Options{}, err
	}
	mode, err := pitch.ParseMode(cfg.Analysis.Mode)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Size:          cfg.Audio.FramesPerBuffer,
		SampleRate:    cfg.Audio.SampleRate,
		Window:        window,
		Backend:       backend,
		Mode:          mode,
		MinHz:         cfg.Analysis.MinHz,
		MaxHz:         cfg.Analysis.MaxHz,
		GateThreshold: cfg.Analysis.GateThreshold,
	}, nil
}

// Pipeline gates, windows, transforms and estimates one frame at a time.
// Every buffer is allocated up front, so Process does not allocate.
type Pipeline struct {
	size        int
	window      *fft.Window
	transformer fft.Transformer
	estimator   *pitch.Estimator
	gate        *Gate
	seq         uint64
}

var _ FrameProcessor = (*Pipeline)(nil)

// NewPipeline validates opts and precomputes the window and FFT plan.
func NewPipeline(opts Options) (*Pipeline, error) {
	if !bitint.IsPowerOfTwo(opts.Size) {
		return nil, fmt.Errorf("frame size must be a power of 2, got %d (try %d)", opts.Size, bitint.NextPowerOfTwo(opts.Size))
	}
	transformer, err := fft.NewTransformer(opts.Backend, opts.Size)
	if err != nil {
		return nil, err
	}
	estimator, err := pitch.NewEstimator(opts.Mode, opts.SampleRate, opts.MinHz, opts.MaxHz)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		size:        opts.Size,
		window:      fft.NewWindow(opts.Window, opts.Size),
		transformer: transformer,
		estimator:   estimator,
		gate:        NewGate(opts.GateThreshold),
	}, nil
}

func (p *Pipeline) Size() int { return p.size }

func (p *Pipeline) Gate() *Gate { return p.gate }

// Process analyses frame in place. It panics if len(frame) != Size().
func (p *Pipeline) Process(frame []complex128) Result {
	p.seq++
	res := Result{Seq: p.seq, Level: PeakLevel(frame)}

	if !p.gate.Open(res.Level) {
		res.Gated = true
		res.Time = time.Now()
		return res
	}

	p.window.Apply(frame)
	p.transformer.Transform(frame)
	res.Estimate = p.estimator.FindFundamental(frame)
	res.Note = pitch.FrequencyToNote(res.Estimate.Frequency)
	res.Time = time.Now()
	return res
}
