// SPDX-License-Identifier: MIT
package config

import "time"

// Defaults and hard limits for the tuner.
const (
	DefaultBackend         = "portaudio"
	DefaultDeviceID        = MinDeviceID
	DefaultSampleRate      = 48000
	DefaultFramesPerBuffer = 4096
	DefaultRingFrames      = 10
	DefaultWindow          = "hann"
	DefaultMode            = "refined"
	DefaultMinHz           = 80.0
	DefaultMaxHz           = 1200.0
	DefaultFFTBackend      = "radix2"
	DefaultPollInterval    = time.Millisecond
	DefaultGateThreshold   = 0.0 // off
	DefaultLogLevel        = "info"

	MinDeviceID     = -1 // -1 represents the system default device
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MinBufferFrames = 64
	MaxBufferFrames = 65536
	MinRingFrames   = 2
)

// Capture backends.
const (
	BackendPortAudio = "portaudio"
	BackendMalgo     = "malgo"
	BackendWAV       = "wav"
)

// Config is the application configuration, loaded from YAML and then
// overridden by environment variables and command line flags.
type Config struct {
	Debug    bool           `yaml:"debug"`     // Forces the log level to debug.
	LogLevel string         `yaml:"log_level"` // debug, info, warn, error.
	Audio    AudioConfig    `yaml:"audio"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Output   OutputConfig   `yaml:"output"`
}

// AudioConfig holds the capture side settings.
type AudioConfig struct {
	Backend         string  `yaml:"backend"`           // portaudio, malgo or wav.
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	InputFile       string  `yaml:"input_file"`        // WAV file read by the wav backend.
	Realtime        bool    `yaml:"realtime"`          // Pace the wav backend at the file's sample rate.
	SampleRate      float64 `yaml:"sample_rate"`       // Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Analysis frame length N, a power of two.
	RingFrames      int     `yaml:"ring_frames"`       // Ring capacity in frames.
	LowLatency      bool    `yaml:"low_latency"`       // Request the device's low input latency.
}

// AnalysisConfig holds the pitch estimation settings.
type AnalysisConfig struct {
	Window        string        `yaml:"window"`         // hann or flattop.
	Mode          string        `yaml:"mode"`           // refined or simple.
	MinHz         float64       `yaml:"min_hz"`         // Lower edge of the refined search.
	MaxHz         float64       `yaml:"max_hz"`         // Upper edge of the refined search.
	FFTBackend    string        `yaml:"fft_backend"`    // radix2 or gonum.
	PollInterval  time.Duration `yaml:"poll_interval"`  // Analyzer sleep while the ring is short of a frame.
	GateThreshold float64       `yaml:"gate_threshold"` // Peak amplitude below which a frame is silent.
}

// OutputConfig selects the result sinks.
type OutputConfig struct {
	TUI        bool `yaml:"tui"`         // Show the bubbletea tuner instead of the console line.
	LogResults bool `yaml:"log_results"` // Also log every result at debug level.
	Cents      bool `yaml:"cents"`       // Append the cents deviation to the console line.
}

// Default returns a Config holding the built-in defaults.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			Backend:         DefaultBackend,
			InputDevice:     DefaultDeviceID,
			Realtime:        true,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			RingFrames:      DefaultRingFrames,
		},
		Analysis: AnalysisConfig{
			Window:        DefaultWindow,
			Mode:          DefaultMode,
			MinHz:         DefaultMinHz,
			MaxHz:         DefaultMaxHz,
			FFTBackend:    DefaultFFTBackend,
			PollInterval:  DefaultPollInterval,
			GateThreshold: DefaultGateThreshold,
		},
	}
}

// RingCapacity is the ring size in samples. One slot is reserved, so the
// ring holds RingFrames frames less one sample.
func (c *Config) RingCapacity() int {
	return c.Audio.RingFrames * c.Audio.FramesPerBuffer
}
