// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"tuner/internal/analysis"
	"tuner/internal/config"
	"tuner/internal/log"
	"tuner/internal/metrics"
	"tuner/internal/ring"
	"tuner/internal/transport"
)

var logger = log.New("audio")

// overrunCheckInterval is how often the engine looks for dropped samples.
const overrunCheckInterval = time.Second

// Engine owns the capture source, the ring buffer, the analysis goroutine
// and the result sink.
type Engine struct {
	source   Source
	buf      *ring.Buffer
	capture  *Capture
	pipeline *analysis.Pipeline
	analyzer *analysis.Analyzer
	sink     transport.Sink
}

// NewEngine wires source to sink through a ring of cfg.RingCapacity()
// samples. Analysis runs at the source's sample rate, which for files may
// differ from cfg.Audio.SampleRate. m may be nil.
func NewEngine(cfg *config.Config, source Source, sink transport.Sink, m *metrics.Pipeline) (*Engine, error) {
	buf, err := ring.New(cfg.RingCapacity())
	if err != nil {
		return nil, err
	}

	pipeline, err := newPipeline(cfg, source.SampleRate())
	if err != nil {
		return nil, err
	}

	analyzer := analysis.NewAnalyzer(buf, pipeline, pipeline.Size(), sink, cfg.Analysis.PollInterval)
	if m != nil {
		analyzer.SetMetrics(m)
	}

	return &Engine{
		source:   source,
		buf:      buf,
		capture:  NewCapture(buf, cfg.Audio.FramesPerBuffer),
		pipeline: pipeline,
		analyzer: analyzer,
		sink:     sink,
	}, nil
}

// newPipeline builds the analysis pipeline for a source running at
// sampleRate, clamping the search range to its Nyquist frequency.
func newPipeline(cfg *config.Config, sampleRate float64) (*analysis.Pipeline, error) {
	opts, err := analysis.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	opts.SampleRate = sampleRate
	if opts.MaxHz > sampleRate/2 {
		opts.MaxHz = sampleRate / 2
	}

	pipeline, err := analysis.NewPipeline(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build analysis pipeline: %w", err)
	}
	return pipeline, nil
}

// Run starts the source and the analyzer and blocks until ctx is done or a
// finite source runs out. It then stops the source before the analyzer so
// no samples arrive after analysis ends, and joins every goroutine.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.source.Start(e.capture.Push); err != nil {
		return fmt.Errorf("failed to start audio source: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return e.analyzer.Run(gctx)
	})
	g.Go(func() error {
		e.watchOverruns(gctx)
		return nil
	})

	var finished <-chan struct{}
	if f, ok := e.source.(Finite); ok {
		finished = f.Done()
	}

	endOfInput := false
	select {
	case <-ctx.Done():
	case <-finished:
		endOfInput = true
	}

	stopErr := e.source.Stop()
	e.analyzer.Stop()
	cancel()
	runErr := g.Wait()

	// Frames already captured from a file are still worth a result.
	if endOfInput {
		e.analyzer.Drain()
	}

	return errors.Join(stopErr, runErr)
}

// watchOverruns warns when the capture side has dropped samples since the
// last check.
func (e *Engine) watchOverruns(ctx context.Context) {
	ticker := time.NewTicker(overrunCheckInterval)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := e.buf.Dropped(); dropped > last {
				logger.Warnf("ring overrun: %d samples dropped (%d total)", dropped-last, dropped)
				last = dropped
			}
		}
	}
}

// Close releases the source and the sink and empties the ring. Run must
// have returned.
func (e *Engine) Close() error {
	srcErr := e.source.Close()
	sinkErr := e.sink.Close()
	e.buf.Reset()
	return errors.Join(srcErr, sinkErr)
}

// Frames returns how many frames have been analysed.
func (e *Engine) Frames() uint64 { return e.analyzer.Frames() }

// Dropped returns how many samples the capture side has dropped.
func (e *Engine) Dropped() uint64 { return e.buf.Dropped() }

// Pipeline exposes the analysis pipeline, e.g. to adjust the gate.
func (e *Engine) Pipeline() *analysis.Pipeline { return e.pipeline }

// NewSource builds the capture source selected by cfg.Audio.Backend.
func NewSource(cfg *config.Config) (Source, error) {
	a := cfg.Audio
	switch a.Backend {
	case config.BackendPortAudio:
		return NewPortAudioSource(a.InputDevice, a.SampleRate, a.FramesPerBuffer, a.LowLatency)
	case config.BackendMalgo:
		return NewMalgoSource(a.InputDevice, a.SampleRate, a.FramesPerBuffer)
	case config.BackendWAV:
		return NewWAVSource(a.InputFile, a.FramesPerBuffer, a.Realtime)
	default:
		return nil, fmt.Errorf("unknown audio backend '%s'", a.Backend)
	}
}
