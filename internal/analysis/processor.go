// SPDX-License-Identifier: MIT
package analysis

// FrameProcessor turns one frame of time-domain samples into a Result. The
// frame is clobbered. Implementations are called from a single goroutine.
type FrameProcessor interface {
	Process(frame []complex128) Result
}

// Emitter receives every Result the analyzer produces. Send is called
// from the analysis goroutine, so slow emitters delay the next frame.
type Emitter interface {
	Send(r Result) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Result) error

func (f EmitterFunc) Send(r Result) error { return f(r) }
