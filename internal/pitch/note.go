// SPDX-License-Identifier: MIT
package pitch

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// ReferenceHz is the tuning reference, A4.
	ReferenceHz = 440.0

	// MinFrequency is the lowest frequency mapped to a note. Anything below
	// is reported as no pitch.
	MinFrequency = 20.0

	// A4 is 9 semitones above C4, which is 48 semitones above C0.
	semitonesC0ToA4 = 48 + 9

	// NoPitch is the display form of the sentinel Note.
	NoPitch = "---"
)

// noteNames is the chromatic scale rooted at C. Index 0 of octave k is Ck.
var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var flatNames = map[string]string{
	"DB": "C#", "EB": "D#", "GB": "F#", "AB": "G#", "BB": "A#",
}

// StandardTuning lists the open strings of a guitar in standard tuning.
var StandardTuning = []string{"E2", "A2", "D3", "G3", "B3", "E4"}

// Note is a pitch class and octave. The zero value is the "no pitch"
// sentinel.
type Note struct {
	Name      string  // letter with accidental, e.g. "C#"
	Octave    int     // scientific pitch notation, A4 = 440 Hz
	Frequency float64 // the frequency that was mapped
	Cents     float64 // deviation from the tempered note, -50..+50
}

// Valid reports whether n names a note rather than the sentinel.
func (n Note) Valid() bool {
	return n.Name != ""
}

func (n Note) String() string {
	if !n.Valid() {
		return NoPitch
	}
	return n.Name + strconv.Itoa(n.Octave)
}

// FrequencyToNote maps freq to the nearest equal-tempered note. Frequencies
// below MinFrequency, and non-finite input, map to the sentinel.
func FrequencyToNote(freq float64) Note {
	if math.IsNaN(freq) || math.IsInf(freq, 0) || freq < MinFrequency {
		return Note{}
	}

	semitones := 12 * math.Log2(freq/ReferenceHz)
	nearest := nearestSemitone(semitones)
	fromC0 := nearest + semitonesC0ToA4

	return Note{
		Name:      noteNames[floorMod(fromC0, 12)],
		Octave:    floorDiv(fromC0, 12),
		Frequency: freq,
		Cents:     100 * (semitones - float64(nearest)),
	}
}

// NoteFrequency returns the tempered frequency of a note name (sharps or
// flats) in the given octave.
func NoteFrequency(name string, octave int) (float64, error) {
	idx := noteIndex(name)
	if idx < 0 {
		return 0, fmt.Errorf("unknown note name %q", name)
	}
	fromA4 := octave*12 + idx - semitonesC0ToA4
	return ReferenceHz * math.Exp2(float64(fromA4)/12), nil
}

// ParseNote parses scientific pitch notation such as "A4", "C#3" or "Bb-1"
// and returns the tempered note.
func ParseNote(s string) (Note, error) {
	s = strings.TrimSpace(s)
	split := strings.IndexFunc(s, func(r rune) bool {
		return r == '-' || (r >= '0' && r <= '9')
	})
	if split <= 0 {
		return Note{}, fmt.Errorf("invalid note %q", s)
	}
	octave, err := strconv.Atoi(s[split:])
	if err != nil {
		return Note{}, fmt.Errorf("invalid octave in note %q: %w", s, err)
	}
	idx := noteIndex(s[:split])
	if idx < 0 {
		return Note{}, fmt.Errorf("unknown note name %q", s[:split])
	}
	freq, _ := NoteFrequency(noteNames[idx], octave)
	return Note{Name: noteNames[idx], Octave: octave, Frequency: freq}, nil
}

// TuningReference renders the standard tuning as a one-line reference:
//
//	E 82.41 Hz | A 110.00 Hz | D 146.83 Hz | G 196.00 Hz | B 246.94 Hz | E 329.63 Hz
func TuningReference() string {
	parts := make([]string, 0, len(StandardTuning))
	for _, s := range StandardTuning {
		n, err := ParseNote(s)
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %.2f Hz", n.Name, n.Frequency))
	}
	return strings.Join(parts, " | ")
}

// nearestSemitone rounds half away from zero.
func nearestSemitone(semitones float64) int {
	return int(math.Round(semitones))
}

func noteIndex(name string) int {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if sharp, ok := flatNames[upper]; ok {
		upper = sharp
	}
	for i, n := range noteNames {
		if n == upper {
			return i
		}
	}
	return -1
}

// floorDiv and floorMod round towards negative infinity so notes below C0
// land in octave -1 rather than 0.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
