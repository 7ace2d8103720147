// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"io"
	"sync"

	"tuner/internal/analysis"
)

// Trailing blanks clear what is left of a longer previous line.
const linePadding = "           "

// ConsoleSink rewrites a single terminal line per result:
//
//	Note: A2 (110.00 Hz)
type ConsoleSink struct {
	mu     sync.Mutex
	w      io.Writer
	cents  bool
	closed bool
}

var _ Sink = (*ConsoleSink)(nil)

// NewConsoleSink writes to w. With cents set the deviation from the
// tempered note is appended.
func NewConsoleSink(w io.Writer, cents bool) *ConsoleSink {
	return &ConsoleSink{w: w, cents: cents}
}

func (c *ConsoleSink) Send(r analysis.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	var err error
	if c.cents && r.HasPitch() {
		_, err = fmt.Fprintf(c.w, "\rNote: %s (%.2f Hz) %+.0f cents%s", r.Note, r.Estimate.Frequency, r.Note.Cents, linePadding)
	} else {
		_, err = fmt.Fprintf(c.w, "\rNote: %s (%.2f Hz)%s", r.Note, r.Estimate.Frequency, linePadding)
	}
	return err
}

// Close ends the rewritten line so later output starts on a fresh one.
func (c *ConsoleSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	_, err := fmt.Fprintln(c.w)
	return err
}
