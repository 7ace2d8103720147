// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ToneBitDepth is the sample format written by WriteTone.
const ToneBitDepth = 16

// WriteTone writes a mono 16-bit WAV file holding a sine at frequency Hz.
// amplitude is relative to full scale and is clamped to [0, 1].
func WriteTone(path string, frequency, sampleRate float64, duration time.Duration, amplitude float64) error {
	if frequency <= 0 || frequency >= sampleRate/2 {
		return fmt.Errorf("tone frequency %.2f Hz outside (0, %.0f) Hz", frequency, sampleRate/2)
	}
	amplitude = math.Max(0, math.Min(1, amplitude))

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	enc := wav.NewEncoder(file, int(sampleRate), ToneBitDepth, 1, 1)

	const chunk = 4096
	total := int(duration.Seconds() * sampleRate)
	scale := amplitude * float64(int(1)<<(ToneBitDepth-1)-1)
	buf := &goaudio.IntBuffer{
		Data:           make([]int, chunk),
		Format:         &goaudio.Format{SampleRate: int(sampleRate), NumChannels: 1},
		SourceBitDepth: ToneBitDepth,
	}

	for start := 0; start < total; start += chunk {
		n := min(chunk, total-start)
		for i := range n {
			phase := 2 * math.Pi * frequency * float64(start+i) / sampleRate
			buf.Data[i] = int(math.Round(scale * math.Sin(phase)))
		}
		buf.Data = buf.Data[:n]
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		buf.Data = buf.Data[:chunk]
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return file.Close()
}
