// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"tuner/cmd"
	"tuner/internal/log"
	"tuner/internal/pitch"
	"tuner/pkg/build"
)

// main is the entry point for the tuner.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Open the capture source
//   - Run the analyzer until interrupted or the input ends
//
// 3. Shutdown Phase (Cold Path):
//   - Stop capture before analysis, join goroutines
//   - Clean up resources and report metrics
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if opts.Exit() {
		return
	}

	cfg := opts.Config
	log.SetLevel(cfg.Level())
	log.Debugf("%s", build.GetBuildFlags())

	if opts.Command != cmd.CommandTune {
		if err := cmd.Execute(opts, os.Stdout); err != nil {
			log.Fatalf("%s: %v", opts.Command, err)
		}
		return
	}

	// The full screen tuner owns the terminal, so logs go to a file.
	if cfg.Output.TUI {
		logPath := filepath.Join(os.TempDir(), build.GetBuildFlags().Name+".log")
		f, err := tea.LogToFile(logPath, "")
		if err != nil {
			log.Fatalf("%v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		fmt.Printf("Standard tuning: %s\n", pitch.TuningReference())
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tuner, err := cmd.NewTuner(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}

	// Blocks until a termination signal, end of input or the user quits.
	runErr := tuner.Run(ctx)

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if err := tuner.Close(); err != nil {
		log.Errorf("Error closing audio engine: %v", err)
	}
	tuner.LogSummary()

	if runErr != nil {
		log.Fatalf("%v", runErr)
	}
}
