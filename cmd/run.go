// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"tuner/internal/audio"
	"tuner/internal/config"
	"tuner/internal/log"
	"tuner/internal/metrics"
	"tuner/internal/transport"
	"tuner/internal/tui"
)

// Tuner is the live pitch detector: a capture source, the engine and its
// sinks, plus the metrics they record.
type Tuner struct {
	cfg     *config.Config
	engine  *audio.Engine
	metrics *metrics.Pipeline
	program *tea.Program
}

// NewTuner builds the source and sinks selected by cfg. Console output goes
// to w unless the full screen tuner is enabled.
func NewTuner(cfg *config.Config, w io.Writer) (*Tuner, error) {
	m, err := metrics.NewPipeline(prometheus.NewRegistry())
	if err != nil {
		return nil, err
	}

	source, err := audio.NewSource(cfg)
	if err != nil {
		return nil, err
	}

	t := &Tuner{cfg: cfg, metrics: m}

	var sinks transport.MultiSink
	if cfg.Output.TUI {
		t.program = tea.NewProgram(tui.NewTunerModel(describeSource(cfg)), tea.WithAltScreen())
		sinks = append(sinks, tui.NewSink(t.program))
	} else {
		sinks = append(sinks, transport.NewConsoleSink(w, cfg.Output.Cents))
	}
	if cfg.Output.LogResults {
		sinks = append(sinks, transport.NewLogSink())
	}

	engine, err := audio.NewEngine(cfg, source, sinks, m)
	if err != nil {
		return nil, errors.Join(err, source.Close())
	}
	t.engine = engine
	return t, nil
}

func describeSource(cfg *config.Config) string {
	a := cfg.Audio
	switch a.Backend {
	case config.BackendWAV:
		return a.InputFile
	default:
		if a.InputDevice < 0 {
			return fmt.Sprintf("%s default input", a.Backend)
		}
		return fmt.Sprintf("%s device %d", a.Backend, a.InputDevice)
	}
}

// Run blocks until ctx is done, the input runs out or the user quits the
// full screen tuner.
func (t *Tuner) Run(ctx context.Context) error {
	if t.program == nil {
		return t.engine.Run(ctx)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		err := t.engine.Run(gctx)
		t.program.Quit()
		return err
	})
	g.Go(func() error {
		_, err := t.program.Run()
		cancel()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

// Close releases the engine, its source and its sinks.
func (t *Tuner) Close() error {
	return t.engine.Close()
}

// Frames returns how many frames were analysed.
func (t *Tuner) Frames() uint64 { return t.engine.Frames() }

// LogSummary writes the collected metrics at info level.
func (t *Tuner) LogSummary() {
	summary, err := t.metrics.Summary()
	if err != nil {
		log.Errorf("failed to gather metrics: %v", err)
		return
	}
	log.Infof("analysed %d frames, %d samples dropped", t.engine.Frames(), t.engine.Dropped())
	log.Debugf("metrics:\n%s", summary)
}
