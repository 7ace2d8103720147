// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tuner/internal/fft"
	"tuner/internal/log"
	"tuner/internal/pitch"
	"tuner/pkg/bitint"
)

// EnvPrefix prefixes every environment override, e.g. PITCH_SAMPLE_RATE.
const EnvPrefix = "PITCH_"

var ErrInvalid = errors.New("invalid configuration")

// LoadConfig loads configuration from the YAML file at path. If path is
// empty it looks for config.yaml in the working directory and then in the
// user config directory; if neither exists the built-in defaults are used.
// Environment overrides are applied last, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfig()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfig() string {
	candidates := []string{"config.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "tuner", "config.yaml"))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Validate checks every field and reports the first problem found.
func (c *Config) Validate() error {
	a := c.Audio
	switch a.Backend {
	case BackendPortAudio, BackendMalgo:
	case BackendWAV:
		if a.InputFile == "" {
			return fmt.Errorf("%w: audio.input_file must be set for the wav backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown audio.backend '%s'", ErrInvalid, a.Backend)
	}
	if a.InputDevice < MinDeviceID {
		return fmt.Errorf("%w: audio.input_device %d below %d", ErrInvalid, a.InputDevice, MinDeviceID)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: audio.sample_rate %.0f outside [%d, %d]", ErrInvalid, a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if !bitint.IsPowerOfTwo(a.FramesPerBuffer) {
		return fmt.Errorf("%w: audio.frames_per_buffer %d is not a power of two (try %d)",
			ErrInvalid, a.FramesPerBuffer, bitint.NextPowerOfTwo(a.FramesPerBuffer))
	}
	if a.FramesPerBuffer < MinBufferFrames || a.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("%w: audio.frames_per_buffer %d outside [%d, %d]", ErrInvalid, a.FramesPerBuffer, MinBufferFrames, MaxBufferFrames)
	}
	if a.RingFrames < MinRingFrames {
		return fmt.Errorf("%w: audio.ring_frames must be at least %d", ErrInvalid, MinRingFrames)
	}

	an := c.Analysis
	if _, err := fft.ParseWindowKind(an.Window); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := fft.ParseBackend(an.FFTBackend); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	mode, err := pitch.ParseMode(an.Mode)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if mode == pitch.Refined {
		if an.MinHz < 0 || an.MaxHz <= an.MinHz {
			return fmt.Errorf("%w: analysis range [%.1f, %.1f] Hz must satisfy 0 <= min_hz < max_hz", ErrInvalid, an.MinHz, an.MaxHz)
		}
		if an.MaxHz > a.SampleRate/2 {
			return fmt.Errorf("%w: analysis.max_hz %.1f above Nyquist %.1f", ErrInvalid, an.MaxHz, a.SampleRate/2)
		}
	}
	if an.PollInterval <= 0 {
		return fmt.Errorf("%w: analysis.poll_interval must be positive", ErrInvalid)
	}
	if an.GateThreshold < 0 || an.GateThreshold > 1 {
		return fmt.Errorf("%w: analysis.gate_threshold %.3f outside [0, 1]", ErrInvalid, an.GateThreshold)
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level '%s'", ErrInvalid, c.LogLevel)
	}
	return nil
}

// Level returns the effective log level. Debug wins over LogLevel.
func (c *Config) Level() log.LogLevel {
	if c.Debug {
		return log.LevelDebug
	}
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// applyEnvOverrides reads PITCH_* variables. Values that fail to parse are
// logged and ignored.
func (c *Config) applyEnvOverrides() {
	envBool("DEBUG", &c.Debug)
	envString("LOG_LEVEL", &c.LogLevel)

	envString("BACKEND", &c.Audio.Backend)
	envInt("DEVICE", &c.Audio.InputDevice)
	envString("INPUT_FILE", &c.Audio.InputFile)
	envFloat("SAMPLE_RATE", &c.Audio.SampleRate)
	envInt("FRAMES_PER_BUFFER", &c.Audio.FramesPerBuffer)
	envInt("RING_FRAMES", &c.Audio.RingFrames)

	envString("WINDOW", &c.Analysis.Window)
	envString("MODE", &c.Analysis.Mode)
	envFloat("MIN_HZ", &c.Analysis.MinHz)
	envFloat("MAX_HZ", &c.Analysis.MaxHz)
	envString("FFT_BACKEND", &c.Analysis.FFTBackend)
	envDuration("POLL_INTERVAL", &c.Analysis.PollInterval)
	envFloat("GATE_THRESHOLD", &c.Analysis.GateThreshold)

	envBool("TUI", &c.Output.TUI)
	envBool("LOG_RESULTS", &c.Output.LogResults)
	envBool("CENTS", &c.Output.Cents)
}

func envString(name string, dst *string) {
	if val, ok := os.LookupEnv(EnvPrefix + name); ok {
		*dst = strings.TrimSpace(val)
		log.Debugf("configuration: overriding %s from env: %s", strings.ToLower(name), *dst)
	}
}

func envBool(name string, dst *bool) {
	envParse(name, dst, strconv.ParseBool)
}

func envInt(name string, dst *int) {
	envParse(name, dst, strconv.Atoi)
}

func envFloat(name string, dst *float64) {
	envParse(name, dst, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func envDuration(name string, dst *time.Duration) {
	envParse(name, dst, time.ParseDuration)
}

func envParse[T any](name string, dst *T, parse func(string) (T, error)) {
	val, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return
	}
	v, err := parse(strings.TrimSpace(val))
	if err != nil {
		log.Warnf("configuration: ignoring %s%s=%q: %v", EnvPrefix, name, val, err)
		return
	}
	*dst = v
	log.Debugf("configuration: overriding %s from env: %v", strings.ToLower(name), v)
}
