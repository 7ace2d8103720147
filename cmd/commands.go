// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"tuner/internal/analysis"
	"tuner/internal/audio"
	"tuner/internal/pitch"
	"tuner/internal/tui"
)

// Hooks replaced in tests.
var (
	listDevices = audio.GetDevices
	pickDevice  = tui.PickDevice
)

// Execute runs a one-off command that does not need the live engine.
func Execute(opts *Options, w io.Writer) error {
	switch opts.Command {
	case CommandList:
		return listCommand(opts, w)
	case CommandTone:
		return toneCommand(opts, w)
	case CommandAnalyze:
		return analyzeCommand(opts, w)
	default:
		return fmt.Errorf("unknown command '%s'", opts.Command)
	}
}

func listCommand(opts *Options, w io.Writer) error {
	if !opts.Interactive {
		devices, err := listDevices()
		if err != nil {
			return err
		}
		audio.WriteDevices(w, devices)
		return nil
	}

	id, err := pickDevice(listDevices)
	if err != nil {
		return err
	}
	if id < 0 {
		fmt.Fprintln(w, "No device selected.")
		return nil
	}
	fmt.Fprintf(w, "Selected device %d. Start the tuner with --device %d\n", id, id)
	return nil
}

// toneTarget resolves a note name or a plain frequency.
func toneTarget(s string) (freq float64, label string, err error) {
	if f, perr := strconv.ParseFloat(strings.TrimSpace(s), 64); perr == nil {
		if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, "", fmt.Errorf("frequency must be positive, got %s", s)
		}
		return f, strconv.FormatFloat(f, 'f', -1, 64) + "Hz", nil
	}

	note, err := pitch.ParseNote(s)
	if err != nil {
		return 0, "", err
	}
	return note.Frequency, note.String(), nil
}

func toneCommand(opts *Options, w io.Writer) error {
	freq, label, err := toneTarget(opts.ToneTarget)
	if err != nil {
		return err
	}

	sampleRate := opts.Config.Audio.SampleRate
	if freq >= sampleRate/2 {
		return fmt.Errorf("%.2f Hz is above the Nyquist frequency of %.0f Hz", freq, sampleRate/2)
	}

	out := opts.ToneOutput
	if out == "" {
		out = "tone-" + strings.ReplaceAll(label, "#", "s") + ".wav"
	}

	if err := audio.WriteTone(out, freq, sampleRate, opts.ToneDuration, opts.ToneAmplitude); err != nil {
		return err
	}

	fmt.Fprintf(w, "Wrote %s: %.2f Hz (%s), %s at %.0f Hz\n",
		out, freq, pitch.FrequencyToNote(freq), opts.ToneDuration, sampleRate)
	return nil
}

func analyzeCommand(opts *Options, w io.Writer) error {
	cfg := opts.Config

	src, err := audio.NewWAVSource(opts.AnalyzeFile, cfg.Audio.FramesPerBuffer, false)
	if err != nil {
		return err
	}
	defer src.Close()

	rate := src.SampleRate()
	step := float64(cfg.Audio.FramesPerBuffer) / rate
	fmt.Fprintf(w, "%s: %.0f Hz, frame %d samples (%.1f ms)\n",
		opts.AnalyzeFile, rate, cfg.Audio.FramesPerBuffer, 1000*step)

	counts := make(map[string]int)
	out := analysis.EmitterFunc(func(r analysis.Result) error {
		counts[r.Note.String()]++
		offset := float64(r.Seq-1) * step
		if cfg.Output.Cents && r.HasPitch() {
			_, err := fmt.Fprintf(w, "%6d %9.3fs  %-4s %8.2f Hz %+4.0f cents\n", r.Seq, offset, r.Note, r.Estimate.Frequency, r.Note.Cents)
			return err
		}
		_, err := fmt.Fprintf(w, "%6d %9.3fs  %-4s %8.2f Hz\n", r.Seq, offset, r.Note, r.Estimate.Frequency)
		return err
	})

	frames, err := audio.AnalyzeWAV(cfg, src, out, nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%d frames", frames)
	if note, n := mostFrequent(counts); n > 0 {
		fmt.Fprintf(w, ", most frequent %s (%d)", note, n)
	}
	fmt.Fprintln(w)
	return nil
}

// mostFrequent returns the detected note seen most often, ties going to
// the lexically smaller name.
func mostFrequent(counts map[string]int) (string, int) {
	best, bestN := "", 0
	for note, n := range counts {
		if note == pitch.NoPitch {
			continue
		}
		if n > bestN || (n == bestN && note < best) {
			best, bestN = note, n
		}
	}
	return best, bestN
}
