// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tuner/internal/config"
	"tuner/pkg/build"
)

// Commands selected on the command line. The empty command runs the tuner.
const (
	CommandTune    = ""
	CommandList    = "list"
	CommandTone    = "tone"
	CommandAnalyze = "analyze"
)

// Tone defaults.
const (
	DefaultToneDuration  = 2 * time.Second
	DefaultToneAmplitude = 0.8
)

// Options is the parsed command line: the effective configuration plus the
// arguments of the selected command.
type Options struct {
	Config  *config.Config
	Command string

	// list
	Interactive bool

	// tone
	ToneTarget    string // note name or frequency in Hz
	ToneDuration  time.Duration
	ToneAmplitude float64
	ToneOutput    string

	// analyze
	AnalyzeFile string
}

// Exit reports whether parsing only printed help or the version.
func (o *Options) Exit() bool {
	return o.Config == nil
}

// flagValues receives the persistent flags. A flag overrides the loaded
// configuration only when it was given explicitly.
type flagValues struct {
	configPath      string
	backend         string
	device          int
	input           string
	sampleRate      float64
	framesPerBuffer int
	ringFrames      int
	lowLatency      bool
	window          string
	mode            string
	minHz           float64
	maxHz           float64
	fftBackend      string
	gate            float64
	pollInterval    time.Duration
	tui             bool
	cents           bool
	logResults      bool
	verbose         bool
	logLevel        string
}

// ParseArgs parses args (without the program name) and loads the
// configuration they point at.
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{}
	flags := &flagValues{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return options.load(cmd, flags, CommandTune)
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return options.load(cmd, flags, CommandList)
		},
	}
	listCmd.Flags().BoolVarP(&options.Interactive, "interactive", "i", false,
		"Pick an input device from a full screen list")
	rootCmd.AddCommand(listCmd)

	// Tone command
	toneCmd := &cobra.Command{
		Use:   "tone NOTE|HZ",
		Short: "Write a sine tone for a note (e.g. A2, C#4) or frequency to a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options.ToneTarget = args[0]
			return options.load(cmd, flags, CommandTone)
		},
	}
	toneCmd.Flags().DurationVar(&options.ToneDuration, "duration", DefaultToneDuration,
		"Length of the tone")
	toneCmd.Flags().Float64Var(&options.ToneAmplitude, "amplitude", DefaultToneAmplitude,
		"Peak amplitude in (0, 1]")
	toneCmd.Flags().StringVarP(&options.ToneOutput, "output", "o", "",
		"Output file name. Default is tone-<note>.wav")
	rootCmd.AddCommand(toneCmd)

	// Analyze command
	analyzeCmd := &cobra.Command{
		Use:   "analyze FILE.wav",
		Short: "Detect the pitch of every frame of a mono WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options.AnalyzeFile = args[0]
			return options.load(cmd, flags, CommandAnalyze)
		},
	}
	rootCmd.AddCommand(analyzeCmd)

	pf := rootCmd.PersistentFlags()

	// Configuration
	pf.StringVarP(&flags.configPath, "config", "C", "",
		"Path to a YAML configuration file (default ./config.yaml, then the user config dir)")

	// Audio Device Configuration
	pf.StringVar(&flags.backend, "backend", config.DefaultBackend,
		"Capture backend: portaudio, malgo or wav")
	pf.IntVarP(&flags.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.StringVarP(&flags.input, "input", "I", "",
		"Read from a WAV file in real time instead of a device (implies --backend wav)")
	pf.Float64VarP(&flags.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&flags.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Analysis frame length, a power of two (affects latency and resolution)")
	pf.IntVar(&flags.ringFrames, "ring-frames", config.DefaultRingFrames,
		"Ring buffer capacity, in frames")
	pf.BoolVarP(&flags.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")

	// Analysis Configuration
	pf.StringVarP(&flags.window, "window", "w", config.DefaultWindow,
		"Window function: hann or flattop")
	pf.StringVarP(&flags.mode, "mode", "m", config.DefaultMode,
		"Estimator: refined (interpolated, range limited) or simple (strongest bin)")
	pf.Float64Var(&flags.minHz, "min-hz", config.DefaultMinHz,
		"Lowest frequency searched in refined mode")
	pf.Float64Var(&flags.maxHz, "max-hz", config.DefaultMaxHz,
		"Highest frequency searched in refined mode")
	pf.StringVar(&flags.fftBackend, "fft", config.DefaultFFTBackend,
		"FFT implementation: radix2 or gonum")
	pf.Float64VarP(&flags.gate, "gate", "g", config.DefaultGateThreshold,
		"Noise gate threshold as peak amplitude in [0, 1], 0 disables")
	pf.DurationVar(&flags.pollInterval, "poll-interval", config.DefaultPollInterval,
		"Analyzer sleep while waiting for a full frame")

	// Output Configuration
	pf.BoolVarP(&flags.tui, "tui", "t", false,
		"Show the full screen tuner instead of the console line")
	pf.BoolVar(&flags.cents, "cents", false,
		"Show the deviation from the nearest note in cents")
	pf.BoolVar(&flags.logResults, "log-results", false,
		"Log every result (debug) and note change (info)")

	// Debug Configuration
	pf.BoolVarP(&flags.verbose, "verbose", "v", false,
		"Show verbose output")
	pf.StringVar(&flags.logLevel, "log-level", config.DefaultLogLevel,
		"Log level: debug, info, warn or error")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return options, nil
}

// load reads the configuration file, applies the flags that were set and
// validates the result.
func (o *Options) load(cmd *cobra.Command, flags *flagValues, command string) error {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return err
	}

	flags.apply(cmd, cfg)

	switch command {
	case CommandAnalyze:
		cfg.Audio.Backend = config.BackendWAV
		cfg.Audio.InputFile = o.AnalyzeFile
		cfg.Audio.Realtime = false
	case CommandTone:
		if o.ToneAmplitude <= 0 || o.ToneAmplitude > 1 {
			return fmt.Errorf("amplitude %.3f outside (0, 1]", o.ToneAmplitude)
		}
		if o.ToneDuration <= 0 {
			return fmt.Errorf("duration must be positive, got %s", o.ToneDuration)
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	o.Config = cfg
	o.Command = command
	return nil
}

func (f *flagValues) apply(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, fn func()) {
		if cmd.Flags().Changed(name) {
			fn()
		}
	}

	set("backend", func() { cfg.Audio.Backend = f.backend })
	set("device", func() { cfg.Audio.InputDevice = f.device })
	set("input", func() {
		cfg.Audio.Backend = config.BackendWAV
		cfg.Audio.InputFile = f.input
		cfg.Audio.Realtime = true
	})
	set("sample-rate", func() { cfg.Audio.SampleRate = f.sampleRate })
	set("frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = f.framesPerBuffer })
	set("ring-frames", func() { cfg.Audio.RingFrames = f.ringFrames })
	set("low-latency", func() { cfg.Audio.LowLatency = f.lowLatency })

	set("window", func() { cfg.Analysis.Window = f.window })
	set("mode", func() { cfg.Analysis.Mode = f.mode })
	set("min-hz", func() { cfg.Analysis.MinHz = f.minHz })
	set("max-hz", func() { cfg.Analysis.MaxHz = f.maxHz })
	set("fft", func() { cfg.Analysis.FFTBackend = f.fftBackend })
	set("gate", func() { cfg.Analysis.GateThreshold = f.gate })
	set("poll-interval", func() { cfg.Analysis.PollInterval = f.pollInterval })

	set("tui", func() { cfg.Output.TUI = f.tui })
	set("cents", func() { cfg.Output.Cents = f.cents })
	set("log-results", func() { cfg.Output.LogResults = f.logResults })

	set("verbose", func() { cfg.Debug = f.verbose })
	set("log-level", func() { cfg.LogLevel = f.logLevel })
}
