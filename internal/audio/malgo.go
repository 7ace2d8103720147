// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoSource captures mono float32 audio through miniaudio.
type MalgoSource struct {
	mu              sync.Mutex
	ctx             *malgo.AllocatedContext
	device          *malgo.Device
	deviceID        int
	sampleRate      float64
	framesPerBuffer int
	scratch         []float32
}

var _ Source = (*MalgoSource)(nil)

// NewMalgoSource initializes a miniaudio context with the platform's
// default backends.
func NewMalgoSource(deviceID int, sampleRate float64, framesPerBuffer int) (*MalgoSource, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debugf("malgo: %s", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize miniaudio context: %w", err)
	}
	return &MalgoSource{
		ctx:             ctx,
		deviceID:        deviceID,
		sampleRate:      sampleRate,
		framesPerBuffer: framesPerBuffer,
		scratch:         make([]float32, framesPerBuffer),
	}, nil
}

func (s *MalgoSource) SampleRate() float64 { return s.sampleRate }

func (s *MalgoSource) Start(cb Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return ErrClosed
	}
	if s.device != nil {
		return ErrAlreadyStarted
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(s.sampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(s.framesPerBuffer)
	deviceConfig.Alsa.NoMMap = 1

	name := "default capture device"
	if s.deviceID >= 0 {
		infos, err := s.ctx.Devices(malgo.Capture)
		if err != nil {
			return fmt.Errorf("failed to list capture devices: %w", err)
		}
		if s.deviceID >= len(infos) {
			return fmt.Errorf("invalid device ID: %d", s.deviceID)
		}
		deviceConfig.Capture.DeviceID = infos[s.deviceID].ID.Pointer()
		name = infos[s.deviceID].Name()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			s.deliver(input, cb)
		},
	}

	device, err := malgo.InitDevice(s.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize %s: %w", name, err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	s.device = device

	logger.Infof("capturing from %s at %.0f Hz", name, s.sampleRate)
	return nil
}

// deliver decodes little-endian float32 frames into scratch, one chunk at
// a time, and hands each chunk to cb.
func (s *MalgoSource) deliver(input []byte, cb Callback) {
	for len(input) >= 4 {
		n := min(len(input)/4, len(s.scratch))
		for i := range n {
			s.scratch[i] = math.Float32frombits(binary.LittleEndian.Uint32(input[i*4:]))
		}
		cb(s.scratch[:n])
		input = input[n*4:]
	}
}

func (s *MalgoSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return nil
	}
	err := s.device.Stop()
	s.device.Uninit()
	s.device = nil
	if err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

func (s *MalgoSource) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return nil
	}
	err := s.ctx.Uninit()
	s.ctx.Free()
	s.ctx = nil
	if err != nil {
		return fmt.Errorf("failed to release miniaudio context: %w", err)
	}
	return nil
}
