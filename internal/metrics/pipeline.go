// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for the capture and analysis
// pipeline. Metrics live on a private registry and are logged at shutdown.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Frame outcomes.
const (
	OutcomeNote    = "note"
	OutcomeNoPitch = "no_pitch"
	OutcomeGated   = "gated"
)

// Pipeline holds the tuner pipeline metrics. All methods are safe for
// concurrent use; none are called from the capture callback.
type Pipeline struct {
	registry *prometheus.Registry

	framesTotal      *prometheus.CounterVec
	frameDuration    prometheus.Histogram
	droppedSamples   prometheus.Counter
	ringFill         prometheus.Gauge
	starvedPolls     prometheus.Counter
	sinkErrorsTotal  prometheus.Counter
	detectedHz       prometheus.Gauge
	lastDroppedTotal uint64
}

// NewPipeline creates the pipeline metrics and registers them on registry.
func NewPipeline(registry *prometheus.Registry) (*Pipeline, error) {
	m := &Pipeline{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *Pipeline) initMetrics() {
	m.framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tuner_frames_total",
			Help: "Total number of analysed frames",
		},
		[]string{"outcome"}, // note, no_pitch, gated
	)

	m.frameDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tuner_frame_duration_seconds",
			Help:    "Time taken to window, transform and estimate one frame",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10µs to ~80ms
		},
	)

	m.droppedSamples = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tuner_ring_dropped_samples_total",
			Help: "Samples dropped by the capture side because the ring was full",
		},
	)

	m.ringFill = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tuner_ring_fill_ratio",
			Help: "Fraction of the ring holding unread samples",
		},
	)

	m.starvedPolls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tuner_analyzer_starved_polls_total",
			Help: "Analyzer polls that found less than a full frame",
		},
	)

	m.sinkErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tuner_sink_errors_total",
			Help: "Results a sink failed to deliver",
		},
	)

	m.detectedHz = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tuner_detected_frequency_hz",
			Help: "Most recent fundamental estimate, 0 for no pitch",
		},
	)
}

// Describe implements prometheus.Collector.
func (m *Pipeline) Describe(ch chan<- *prometheus.Desc) {
	m.framesTotal.Describe(ch)
	m.frameDuration.Describe(ch)
	m.droppedSamples.Describe(ch)
	m.ringFill.Describe(ch)
	m.starvedPolls.Describe(ch)
	m.sinkErrorsTotal.Describe(ch)
	m.detectedHz.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Pipeline) Collect(ch chan<- prometheus.Metric) {
	m.framesTotal.Collect(ch)
	m.frameDuration.Collect(ch)
	m.droppedSamples.Collect(ch)
	m.ringFill.Collect(ch)
	m.starvedPolls.Collect(ch)
	m.sinkErrorsTotal.Collect(ch)
	m.detectedHz.Collect(ch)
}

// RecordFrame records one analysed frame.
func (m *Pipeline) RecordFrame(outcome string, frequency float64, d time.Duration) {
	m.framesTotal.WithLabelValues(outcome).Inc()
	m.frameDuration.Observe(d.Seconds())
	m.detectedHz.Set(frequency)
}

// RecordStarved counts a poll that found the ring short of a frame.
func (m *Pipeline) RecordStarved() {
	m.starvedPolls.Inc()
}

// RecordSinkError counts a failed delivery.
func (m *Pipeline) RecordSinkError() {
	m.sinkErrorsTotal.Inc()
}

// RecordRing updates the fill gauge and advances the dropped counter to
// the ring's cumulative total. Only the analyzer goroutine calls it.
func (m *Pipeline) RecordRing(available, capacity int, droppedTotal uint64) {
	if capacity > 1 {
		m.ringFill.Set(float64(available) / float64(capacity-1))
	}
	if droppedTotal > m.lastDroppedTotal {
		m.droppedSamples.Add(float64(droppedTotal - m.lastDroppedTotal))
		m.lastDroppedTotal = droppedTotal
	}
}

// Summary renders every metric as "name{labels} value" lines, sorted by
// name, for the shutdown log.
func (m *Pipeline) Summary() (string, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return "", fmt.Errorf("failed to gather metrics: %w", err)
	}

	var lines []string
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			lines = append(lines, fmt.Sprintf("%s%s %s", mf.GetName(), labels(metric), value(mf.GetType(), metric)))
		}
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n"), nil
}

func labels(metric *dto.Metric) string {
	if len(metric.GetLabel()) == 0 {
		return ""
	}
	parts := make([]string, 0, len(metric.GetLabel()))
	for _, lp := range metric.GetLabel() {
		parts = append(parts, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func value(kind dto.MetricType, metric *dto.Metric) string {
	switch kind {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%g", metric.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", metric.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := metric.GetHistogram()
		if h.GetSampleCount() == 0 {
			return "count=0"
		}
		mean := h.GetSampleSum() / float64(h.GetSampleCount())
		return fmt.Sprintf("count=%d mean=%s", h.GetSampleCount(), time.Duration(mean*float64(time.Second)))
	default:
		return "?"
	}
}
