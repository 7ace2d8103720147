// SPDX-License-Identifier: MIT
/*
Package analysis drains frames from the ring buffer and turns each into a
Result.

The Analyzer runs on its own goroutine. When the ring holds less than a
frame it sleeps for the poll interval without holding any lock; starvation
is not an error. It stops when Stop is called or its context is cancelled,
checked once per cycle. An FFT in progress is never interrupted.
*/
package analysis

import (
	"context"
	"sync/atomic"
	"time"

	"tuner/internal/log"
	"tuner/internal/metrics"
	"tuner/internal/ring"
)

// Analyzer is the consumer side of the ring buffer.
type Analyzer struct {
	buf     *ring.Buffer
	proc    FrameProcessor
	out     Emitter
	frame   []complex128
	poll    time.Duration
	metrics *metrics.Pipeline
	logger  *log.Logger

	stopped atomic.Bool
	frames  atomic.Uint64
}

// NewAnalyzer reads size-sample frames from buf, processes them with proc
// and sends every Result to out.
func NewAnalyzer(buf *ring.Buffer, proc FrameProcessor, size int, out Emitter, poll time.Duration) *Analyzer {
	if poll <= 0 {
		poll = time.Millisecond
	}
	return &Analyzer{
		buf:    buf,
		proc:   proc,
		out:    out,
		frame:  make([]complex128, size),
		poll:   poll,
		logger: log.New("analyzer"),
	}
}

// SetMetrics attaches pipeline metrics. Call before Run.
func (a *Analyzer) SetMetrics(m *metrics.Pipeline) {
	a.metrics = m
}

// Run drains the ring until Stop is called or ctx is done. Both are
// normal exits and return nil.
func (a *Analyzer) Run(ctx context.Context) error {
	a.logger.Debugf("started (frame %d samples, poll %s)", len(a.frame), a.poll)
	defer a.logger.Debugf("stopped after %d frames", a.frames.Load())

	for {
		if a.stopped.Load() {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if a.buf.Available() < len(a.frame) {
			if a.metrics != nil {
				a.metrics.RecordStarved()
			}
			time.Sleep(a.poll)
			continue
		}

		a.step()
	}
}

func (a *Analyzer) step() {
	a.buf.Read(a.frame)
	start := time.Now()
	res := a.proc.Process(a.frame)
	a.frames.Add(1)

	if a.metrics != nil {
		outcome := metrics.OutcomeNote
		switch {
		case res.Gated:
			outcome = metrics.OutcomeGated
		case !res.HasPitch():
			outcome = metrics.OutcomeNoPitch
		}
		a.metrics.RecordFrame(outcome, res.Estimate.Frequency, time.Since(start))
		a.metrics.RecordRing(a.buf.Available(), a.buf.Cap(), a.buf.Dropped())
	}

	if err := a.out.Send(res); err != nil {
		if a.metrics != nil {
			a.metrics.RecordSinkError()
		}
		a.logger.Warnf("failed to deliver frame %d: %v", res.Seq, err)
	}
}

// Drain processes every complete frame currently in the ring and returns
// how many it processed. It is used for offline analysis where no
// producer runs concurrently.
func (a *Analyzer) Drain() int {
	n := 0
	for a.buf.Available() >= len(a.frame) {
		a.step()
		n++
	}
	return n
}

// Stop asks Run to return at the start of its next cycle.
func (a *Analyzer) Stop() {
	a.stopped.Store(true)
}

// Frames returns the number of frames processed so far.
func (a *Analyzer) Frames() uint64 {
	return a.frames.Load()
}
