// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"time"

	"tuner/internal/pitch"
)

// Result is the outcome of analysing one frame.
type Result struct {
	Seq      uint64         // frame sequence number, starting at 1
	Time     time.Time      // when the frame finished analysis
	Level    float64        // peak absolute amplitude of the frame
	Gated    bool           // the noise gate suppressed the frame
	Estimate pitch.Estimate // zero when gated or no peak was found
	Note     pitch.Note     // sentinel when the estimate maps to no note
}

// HasPitch reports whether the frame produced a note.
func (r Result) HasPitch() bool {
	return r.Note.Valid()
}

// String renders "A2 (110.00 Hz)", or "---" without a pitch.
func (r Result) String() string {
	if !r.HasPitch() {
		return pitch.NoPitch
	}
	return fmt.Sprintf("%s (%.2f Hz)", r.Note, r.Estimate.Frequency)
}
