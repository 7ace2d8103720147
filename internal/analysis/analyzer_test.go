// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tuner/internal/fft"
	"tuner/internal/metrics"
	"tuner/internal/pitch"
	"tuner/internal/ring"
	"tuner/pkg/utils"
)

const (
	testSize       = 4096
	testSampleRate = 48000.0
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testOptions() Options {
	return Options{
		Size:       testSize,
		SampleRate: testSampleRate,
		Window:     fft.Hann,
		Backend:    fft.Radix2,
		Mode:       pitch.Refined,
		MinHz:      80,
		MaxHz:      1200,
	}
}

func newTestPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	p, err := NewPipeline(opts)
	require.NoError(t, err)
	return p
}

func writeSine(t *testing.T, buf *ring.Buffer, freq float64, frames int) {
	t.Helper()
	wave := utils.ToComplex(utils.GenerateSineWave(testSize, testSampleRate, freq))
	for range frames {
		require.Equal(t, testSize, buf.Write(wave))
	}
}

// runAsync starts a.Run and returns a channel closed with its error.
func runAsync(ctx context.Context, a *Analyzer) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx)
		close(done)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("analyzer did not return")
	}
}

func TestAnalyzerDetectsA2(t *testing.T) {
	buf := ring.MustNew(10 * testSize)
	sink := &utils.MockSink[Result]{}
	a := NewAnalyzer(buf, newTestPipeline(t, testOptions()), testSize, sink, time.Millisecond)

	writeSine(t, buf, 110, 2)
	done := runAsync(context.Background(), a)

	require.Eventually(t, func() bool { return sink.Len() == 2 }, 2*time.Second, time.Millisecond)
	a.Stop()
	waitDone(t, done)

	for i, r := range sink.Items() {
		assert.Equal(t, uint64(i+1), r.Seq)
		assert.Equal(t, "A2", r.Note.String())
		assert.InDelta(t, 110, r.Estimate.Frequency, 2)
		assert.False(t, r.Gated)
		assert.InDelta(t, 0.9, r.Level, 1e-3)
	}
	assert.Equal(t, uint64(2), a.Frames())
	assert.True(t, buf.IsEmpty())
}

func TestAnalyzerStopsOnContextCancel(t *testing.T) {
	buf := ring.MustNew(2 * testSize)
	a := NewAnalyzer(buf, newTestPipeline(t, testOptions()), testSize, &utils.MockSink[Result]{}, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, a)
	time.Sleep(5 * time.Millisecond)
	cancel()
	waitDone(t, done)
	assert.Zero(t, a.Frames())
}

func TestAnalyzerStopBeforeRun(t *testing.T) {
	buf := ring.MustNew(2 * testSize)
	a := NewAnalyzer(buf, newTestPipeline(t, testOptions()), testSize, &utils.MockSink[Result]{}, time.Millisecond)

	writeSine(t, buf, 110, 1)
	a.Stop()
	require.NoError(t, a.Run(context.Background()))
	assert.Zero(t, a.Frames(), "a stopped analyzer must not start another frame")
}

func TestAnalyzerStarvationIsNotAnError(t *testing.T) {
	m, err := metrics.NewPipeline(prometheus.NewRegistry())
	require.NoError(t, err)

	buf := ring.MustNew(2 * testSize)
	sink := &utils.MockSink[Result]{}
	a := NewAnalyzer(buf, newTestPipeline(t, testOptions()), testSize, sink, time.Millisecond)
	a.SetMetrics(m)

	// Less than a frame never gets analysed.
	buf.Write(make([]complex128, testSize-1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, a.Run(ctx))

	assert.Zero(t, sink.Len())
	assert.Equal(t, testSize-1, buf.Available())

	out, err := m.Summary()
	require.NoError(t, err)
	assert.Contains(t, out, "tuner_analyzer_starved_polls_total")
	assert.NotContains(t, out, "tuner_analyzer_starved_polls_total 0")
}

func TestAnalyzerDrain(t *testing.T) {
	buf := ring.MustNew(4 * testSize)
	sink := &utils.MockSink[Result]{}
	a := NewAnalyzer(buf, newTestPipeline(t, testOptions()), testSize, sink, time.Millisecond)

	writeSine(t, buf, 220, 3)
	buf.Write(make([]complex128, 10))

	assert.Equal(t, 3, a.Drain())
	assert.Equal(t, 3, sink.Len())
	assert.Equal(t, 10, buf.Available())
	assert.Equal(t, "A3", sink.Items()[0].Note.String())
}

func TestAnalyzerLogsSinkErrors(t *testing.T) {
	m, err := metrics.NewPipeline(prometheus.NewRegistry())
	require.NoError(t, err)

	buf := ring.MustNew(2 * testSize)
	failing := EmitterFunc(func(Result) error { return errors.New("sink closed") })
	a := NewAnalyzer(buf, newTestPipeline(t, testOptions()), testSize, failing, time.Millisecond)
	a.SetMetrics(m)

	writeSine(t, buf, 110, 1)
	assert.Equal(t, 1, a.Drain())

	out, err := m.Summary()
	require.NoError(t, err)
	assert.Contains(t, out, "tuner_sink_errors_total 1")
	assert.Contains(t, out, `tuner_frames_total{outcome="note"} 1`)
	assert.Equal(t, 1, testutil.CollectAndCount(m, "tuner_sink_errors_total"))
}

func TestPipelineGatesSilence(t *testing.T) {
	opts := testOptions()
	opts.GateThreshold = 0.05
	p := newTestPipeline(t, opts)

	frame := utils.ToComplex(utils.GenerateSineWave(testSize, testSampleRate, 110))
	for i := range frame {
		frame[i] *= 0.01
	}
	res := p.Process(frame)
	assert.True(t, res.Gated)
	assert.False(t, res.HasPitch())
	assert.Equal(t, "---", res.String())
	assert.Equal(t, pitch.Estimate{}, res.Estimate)

	p.Gate().SetThreshold(0)
	res = p.Process(utils.ToComplex(utils.GenerateSineWave(testSize, testSampleRate, 110)))
	assert.False(t, res.Gated)
	assert.Equal(t, "A2 (", res.String()[:4])
	assert.Equal(t, uint64(2), res.Seq)
}

func TestPipelineSilenceHasNoPitch(t *testing.T) {
	p := newTestPipeline(t, testOptions())
	res := p.Process(make([]complex128, testSize))
	assert.False(t, res.Gated)
	assert.False(t, res.HasPitch())
	assert.Equal(t, "---", res.String())
}

func TestPipelineModes(t *testing.T) {
	wave := utils.GenerateSineWave(testSize, testSampleRate, 110)

	opts := testOptions()
	opts.Mode = pitch.Simple
	simple := newTestPipeline(t, opts).Process(utils.ToComplex(wave))
	assert.Equal(t, 9*testSampleRate/testSize, simple.Estimate.Frequency)

	opts.Backend = fft.Gonum
	opts.Mode = pitch.Refined
	refined := newTestPipeline(t, opts).Process(utils.ToComplex(wave))
	assert.Equal(t, "A2", refined.Note.String())
}

func TestNewPipelineErrors(t *testing.T) {
	opts := testOptions()
	opts.Size = 3000
	_, err := NewPipeline(opts)
	assert.ErrorContains(t, err, "try 4096")

	opts = testOptions()
	opts.SampleRate = 0
	_, err = NewPipeline(opts)
	assert.ErrorIs(t, err, pitch.ErrSampleRate)
}

func TestPipelineProcessZeroAllocs(t *testing.T) {
	p := newTestPipeline(t, testOptions())
	wave := utils.ToComplex(utils.GenerateSineWave(testSize, testSampleRate, 110))
	frame := make([]complex128, testSize)

	allocs := testing.AllocsPerRun(50, func() {
		copy(frame, wave)
		_ = p.Process(frame)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations per frame, got %.1f", allocs)
	}
}

func BenchmarkPipelineProcess(b *testing.B) {
	p, err := NewPipeline(testOptions())
	if err != nil {
		b.Fatal(err)
	}
	wave := utils.ToComplex(utils.GenerateSineWave(testSize, testSampleRate, 110))
	frame := make([]complex128, testSize)

	b.ReportAllocs()
	for b.Loop() {
		copy(frame, wave)
		_ = p.Process(frame)
	}
}
