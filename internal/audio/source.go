// SPDX-License-Identifier: MIT
/*
Package audio captures mono audio and feeds it to the analysis pipeline.

Sources deliver float32 blocks on the backend's audio thread. The Capture
adapter converts each block into pre-allocated complex samples and writes
them to the ring buffer without blocking or allocating; when the ring is
full the newest samples are dropped. The Engine ties a Source, the ring and
the analysis goroutine together and owns their lifecycle.
*/
package audio

import "errors"

// Callback receives one block of mono samples in [-1, 1]. It runs on the
// backend's audio thread: it must not block, allocate or log. The block is
// only valid for the duration of the call.
type Callback func(block []float32)

// Source is a mono audio input.
type Source interface {
	// Start begins delivering blocks to cb.
	Start(cb Callback) error
	// Stop halts delivery. No callback runs after Stop returns.
	Stop() error
	// Close releases the backend. The Source cannot be restarted.
	Close() error
	SampleRate() float64
}

// Finite is implemented by sources that end on their own, such as files.
// Done is closed after the last block has been delivered.
type Finite interface {
	Done() <-chan struct{}
}

var (
	ErrAlreadyStarted = errors.New("audio: source already started")
	ErrMultiChannel   = errors.New("audio: only mono input is supported")
	ErrClosed         = errors.New("audio: source closed")
)
