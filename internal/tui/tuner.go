// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tuner/internal/analysis"
	"tuner/internal/pitch"
)

// meterHalfWidth is the number of cells either side of the centre of the
// cents meter. The full meter spans -50 to +50 cents.
const meterHalfWidth = 20

// inTuneCents is the deviation shown as in tune.
const inTuneCents = 5

// ResultMsg carries one analysis result into the program.
type ResultMsg analysis.Result

var quitKeys = key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"))

// TunerModel shows the latest note, its frequency and a cents meter.
type TunerModel struct {
	source    string
	reference string
	last      analysis.Result
	held      analysis.Result // last result that had a pitch
	frames    uint64
	width     int
}

// NewTunerModel describes the capture source in the header, e.g.
// "portaudio @ 48000 Hz".
func NewTunerModel(source string) TunerModel {
	return TunerModel{
		source:    source,
		reference: pitch.TuningReference(),
	}
}

func (m TunerModel) Init() tea.Cmd {
	return nil
}

func (m TunerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case ResultMsg:
		r := analysis.Result(msg)
		m.last = r
		m.frames++
		if r.HasPitch() {
			m.held = r
		}

	case tea.KeyMsg:
		if key.Matches(msg, quitKeys) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m TunerModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Tuner"))
	sb.WriteString(" ")
	sb.WriteString(dimStyle.Render(m.source))
	sb.WriteString("\n\n")

	note, freq := pitch.NoPitch, "-"
	shown := m.last
	if !shown.HasPitch() && m.held.HasPitch() {
		// Keep the last note on screen, dimmed, while the signal is gone.
		shown = m.held
	}
	if shown.HasPitch() {
		note = shown.Note.String()
		freq = fmt.Sprintf("%.2f Hz", shown.Estimate.Frequency)
	}

	box := noteStyle.Render(note)
	if !m.last.HasPitch() {
		box = dimStyle.Render(box)
	}
	sb.WriteString(box)
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render(freq))
	sb.WriteString("\n\n")

	if shown.HasPitch() {
		sb.WriteString(CentsMeter(shown.Note.Cents))
		sb.WriteString(fmt.Sprintf("  %+.0f cents\n", shown.Note.Cents))
	} else {
		sb.WriteString(CentsMeter(math.NaN()))
		sb.WriteString("\n")
	}

	status := fmt.Sprintf("level %.3f  frames %d", m.last.Level, m.frames)
	if m.last.Gated {
		status += "  gated"
	}
	sb.WriteString(dimStyle.Render(status))
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render(m.reference))
	sb.WriteString("\n\n")
	sb.WriteString(infoStyle.Render("q: Quit"))

	if m.width > 0 {
		return lipgloss.NewStyle().MaxWidth(m.width).Render(sb.String())
	}
	return sb.String()
}

// CentsMeter draws a needle on a -50..+50 cent scale. A NaN deviation
// draws the empty scale.
func CentsMeter(cents float64) string {
	cells := []rune(strings.Repeat("─", 2*meterHalfWidth+1))
	cells[meterHalfWidth] = '┼'

	if math.IsNaN(cents) {
		return "[" + string(cells) + "]"
	}

	pos := meterHalfWidth + int(math.Round(math.Max(-50, math.Min(50, cents))/50*meterHalfWidth))
	cells[pos] = '●'
	meter := "[" + string(cells) + "]"

	switch {
	case math.Abs(cents) <= inTuneCents:
		return highlightStyle.Render(meter)
	case cents > 0:
		return sharpStyle.Render(meter)
	default:
		return flatStyle.Render(meter)
	}
}
