// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuner/internal/log"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

// isolate points the config search at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("AppData", dir)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	isolate(t)
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "portaudio", cfg.Audio.Backend)
	assert.Equal(t, 48000.0, cfg.Audio.SampleRate)
	assert.Equal(t, 4096, cfg.Audio.FramesPerBuffer)
	assert.Equal(t, 10, cfg.Audio.RingFrames)
	assert.Equal(t, "hann", cfg.Analysis.Window)
	assert.Equal(t, "refined", cfg.Analysis.Mode)
	assert.Equal(t, 80.0, cfg.Analysis.MinHz)
	assert.Equal(t, 1200.0, cfg.Analysis.MaxHz)
	assert.Equal(t, "radix2", cfg.Analysis.FFTBackend)
	assert.Equal(t, time.Millisecond, cfg.Analysis.PollInterval)
	assert.Zero(t, cfg.Analysis.GateThreshold)
	assert.Equal(t, 40960, cfg.RingCapacity())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := writeTempConfig(t, `
log_level: warn
audio:
  backend: malgo
  sample_rate: 44100
  frames_per_buffer: 8192
analysis:
  window: flattop
  mode: simple
  poll_interval: 5ms
  gate_threshold: 0.02
output:
  tui: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "malgo", cfg.Audio.Backend)
	assert.Equal(t, 44100.0, cfg.Audio.SampleRate)
	assert.Equal(t, 8192, cfg.Audio.FramesPerBuffer)
	assert.Equal(t, "flattop", cfg.Analysis.Window)
	assert.Equal(t, "simple", cfg.Analysis.Mode)
	assert.Equal(t, 5*time.Millisecond, cfg.Analysis.PollInterval)
	assert.Equal(t, 0.02, cfg.Analysis.GateThreshold)
	assert.True(t, cfg.Output.TUI)
	assert.Equal(t, log.LevelWarn, cfg.Level())

	// Keys not in the file keep their defaults.
	assert.Equal(t, 10, cfg.Audio.RingFrames)
	assert.Equal(t, 1200.0, cfg.Analysis.MaxHz)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeTempConfig(t, "audio:\n  sample_rate: 44100\n")
	t.Setenv("PITCH_SAMPLE_RATE", "96000")
	t.Setenv("PITCH_MODE", "simple")
	t.Setenv("PITCH_POLL_INTERVAL", "2ms")
	t.Setenv("PITCH_DEBUG", "true")
	t.Setenv("PITCH_RING_FRAMES", "not-a-number")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 96000.0, cfg.Audio.SampleRate)
	assert.Equal(t, "simple", cfg.Analysis.Mode)
	assert.Equal(t, 2*time.Millisecond, cfg.Analysis.PollInterval)
	assert.Equal(t, log.LevelDebug, cfg.Level())
	assert.Equal(t, DefaultRingFrames, cfg.Audio.RingFrames, "unparsable override must be ignored")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"non power of two", func(c *Config) { c.Audio.FramesPerBuffer = 3000 }, "try 4096"},
		{"too small", func(c *Config) { c.Audio.FramesPerBuffer = 32 }, "frames_per_buffer 32 outside"},
		{"ring", func(c *Config) { c.Audio.RingFrames = 1 }, "ring_frames"},
		{"sample rate", func(c *Config) { c.Audio.SampleRate = 1000 }, "sample_rate"},
		{"backend", func(c *Config) { c.Audio.Backend = "alsa" }, "unknown audio.backend"},
		{"wav without file", func(c *Config) { c.Audio.Backend = BackendWAV }, "input_file"},
		{"wav with file", func(c *Config) { c.Audio.Backend = BackendWAV; c.Audio.InputFile = "a.wav" }, ""},
		{"device", func(c *Config) { c.Audio.InputDevice = -2 }, "input_device"},
		{"window", func(c *Config) { c.Analysis.Window = "blackman" }, "window"},
		{"mode", func(c *Config) { c.Analysis.Mode = "yin" }, "pitch mode"},
		{"fft backend", func(c *Config) { c.Analysis.FFTBackend = "fftw" }, "backend"},
		{"inverted range", func(c *Config) { c.Analysis.MinHz = 500; c.Analysis.MaxHz = 100 }, "min_hz < max_hz"},
		{"range ignored in simple mode", func(c *Config) { c.Analysis.Mode = "simple"; c.Analysis.MaxHz = 0 }, ""},
		{"above nyquist", func(c *Config) { c.Analysis.MaxHz = 30000 }, "Nyquist"},
		{"poll interval", func(c *Config) { c.Analysis.PollInterval = 0 }, "poll_interval"},
		{"gate", func(c *Config) { c.Analysis.GateThreshold = 2 }, "gate_threshold"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
