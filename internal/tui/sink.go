// SPDX-License-Identifier: MIT
package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"tuner/internal/analysis"
	"tuner/internal/transport"
)

// Sender is the part of *tea.Program the sink needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Sink forwards results to a running bubbletea program.
type Sink struct {
	program Sender
	closed  atomic.Bool
}

var _ transport.Sink = (*Sink)(nil)

// NewSink forwards to program. Send blocks until the program has started,
// so start the program before the engine.
func NewSink(program Sender) *Sink {
	return &Sink{program: program}
}

func (s *Sink) Send(r analysis.Result) error {
	if s.closed.Load() {
		return transport.ErrClosed
	}
	s.program.Send(ResultMsg(r))
	return nil
}

// Close stops forwarding. The program itself is quit by its owner.
func (s *Sink) Close() error {
	s.closed.Store(true)
	return nil
}
