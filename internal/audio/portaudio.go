// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSource captures one channel from a PortAudio input device.
type PortAudioSource struct {
	mu              sync.Mutex
	deviceID        int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	stream          *portaudio.Stream
	closed          bool
}

var _ Source = (*PortAudioSource)(nil)

// NewPortAudioSource initializes PortAudio; Close terminates it.
func NewPortAudioSource(deviceID int, sampleRate float64, framesPerBuffer int, lowLatency bool) (*PortAudioSource, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	return &PortAudioSource{
		deviceID:        deviceID,
		sampleRate:      sampleRate,
		framesPerBuffer: framesPerBuffer,
		lowLatency:      lowLatency,
	}, nil
}

func (s *PortAudioSource) SampleRate() float64 { return s.sampleRate }

func (s *PortAudioSource) Start(cb Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.stream != nil {
		return ErrAlreadyStarted
	}

	device, err := InputDevice(s.deviceID)
	if err != nil {
		return err
	}

	latency := device.DefaultHighInputLatency
	if s.lowLatency {
		latency = device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   device,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: s.framesPerBuffer,
		SampleRate:      s.sampleRate,
	}

	stream, err := portaudio.OpenStream(params, func(in []float32) { cb(in) })
	if err != nil {
		return fmt.Errorf("failed to open input stream on %s: %w", device.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start input stream on %s: %w", device.Name, err)
	}
	s.stream = stream

	info := stream.Info()
	if info != nil {
		logger.Infof("capturing from %s at %.0f Hz (input latency %s)", device.Name, info.SampleRate, info.InputLatency.Round(time.Microsecond))
	}
	return nil
}

func (s *PortAudioSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("failed to close input stream: %w", err)
	}
	s.stream = nil
	return nil
}

func (s *PortAudioSource) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return Terminate()
}
