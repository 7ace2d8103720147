// SPDX-License-Identifier: MIT
package transport

import (
	"tuner/internal/analysis"
	"tuner/internal/log"
)

// LogSink logs every result at debug level and each change of note at
// info level.
type LogSink struct {
	logger *log.Logger
	last   string
}

var _ Sink = (*LogSink)(nil)

func NewLogSink() *LogSink {
	return &LogSink{logger: log.New("result"), last: analysis.Result{}.String()}
}

func (l *LogSink) Send(r analysis.Result) error {
	l.logger.Debugf("frame %d: %s level=%.4f gated=%t", r.Seq, r, r.Level, r.Gated)

	if name := r.Note.String(); name != l.last {
		l.last = name
		if r.HasPitch() {
			l.logger.Infof("note %s (%.2f Hz, %+.0f cents)", name, r.Estimate.Frequency, r.Note.Cents)
		} else {
			l.logger.Infof("no pitch")
		}
	}
	return nil
}

func (l *LogSink) Close() error {
	return nil
}
