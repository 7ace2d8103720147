// SPDX-License-Identifier: MIT

// Package transport delivers analysis results to their consumers: the
// console line, the log and the terminal UI.
package transport

import (
	"errors"

	"tuner/internal/analysis"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport: sink closed")

// Sink consumes analysis results. Send is called from the analysis
// goroutine only; Close is called once at shutdown.
type Sink interface {
	Send(r analysis.Result) error
	Close() error
}

// MultiSink fans every result out to each of its sinks in order.
type MultiSink []Sink

var _ Sink = MultiSink(nil)

// Send delivers r to every sink, even when an earlier one fails, and
// joins the errors.
func (m MultiSink) Send(r analysis.Result) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins the errors.
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
