// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"

	"tuner/internal/analysis"
	"tuner/internal/config"
	"tuner/internal/metrics"
	"tuner/internal/ring"
)

// AnalyzeWAV runs the analysis pipeline over src as fast as it can be
// decoded and sends every frame's Result to out. The ring is drained after
// each block, so nothing is dropped. It returns the number of frames
// analysed; a trailing partial frame is discarded. src must not have been
// started and is left open. m may be nil.
func AnalyzeWAV(cfg *config.Config, src *WAVSource, out analysis.Emitter, m *metrics.Pipeline) (int, error) {
	pipeline, err := newPipeline(cfg, src.SampleRate())
	if err != nil {
		return 0, err
	}

	// One frame plus one block always fits between drains.
	capacity := max(cfg.RingCapacity(), pipeline.Size()+cfg.Audio.FramesPerBuffer+1)
	buf, err := ring.New(capacity)
	if err != nil {
		return 0, err
	}

	analyzer := analysis.NewAnalyzer(buf, pipeline, pipeline.Size(), out, cfg.Analysis.PollInterval)
	if m != nil {
		analyzer.SetMetrics(m)
	}
	capture := NewCapture(buf, cfg.Audio.FramesPerBuffer)

	frames := 0
	err = src.Stream(func(block []float32) {
		capture.Push(block)
		frames += analyzer.Drain()
	})
	if err != nil {
		return frames, err
	}
	if dropped := buf.Dropped(); dropped > 0 {
		return frames, fmt.Errorf("offline analysis dropped %d samples", dropped)
	}
	return frames, nil
}
