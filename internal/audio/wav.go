// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSource streams a mono WAV file in fixed-size blocks.
type WAVSource struct {
	path      string
	file      *os.File
	decoder   *wav.Decoder
	rate      float64
	divisor   float32
	realtime  bool
	pcm       *goaudio.IntBuffer
	block     []float32
	mu        sync.Mutex
	stop      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	err       error
	started   bool
	streaming bool
}

var (
	_ Source = (*WAVSource)(nil)
	_ Finite = (*WAVSource)(nil)
)

// NewWAVSource opens path and checks its format. Multi-channel files are
// rejected rather than downmixed. With realtime set, Start paces blocks at
// the file's sample rate; otherwise it delivers them as fast as possible.
func NewWAVSource(path string, blockSize int, realtime bool) (*WAVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		file.Close()
		return nil, fmt.Errorf("%s is not a valid WAV audio file", path)
	}
	if decoder.NumChans != 1 {
		file.Close()
		return nil, fmt.Errorf("%w: %s has %d channels", ErrMultiChannel, path, decoder.NumChans)
	}
	divisor, err := pcmDivisor(int(decoder.BitDepth))
	if err != nil {
		file.Close()
		return nil, err
	}

	return &WAVSource{
		path:     path,
		file:     file,
		decoder:  decoder,
		rate:     float64(decoder.SampleRate),
		divisor:  divisor,
		realtime: realtime,
		pcm: &goaudio.IntBuffer{
			Data:   make([]int, blockSize),
			Format: &goaudio.Format{SampleRate: int(decoder.SampleRate), NumChannels: 1},
		},
		block: make([]float32, blockSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}, nil
}

func pcmDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16, 24, 32:
		return float32(int64(1) << (bitDepth - 1)), nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}

func (s *WAVSource) SampleRate() float64 { return s.rate }

// Done is closed when streaming ends, at end of file or after Stop.
func (s *WAVSource) Done() <-chan struct{} { return s.done }

// Err returns the decode error that ended streaming early, if any.
func (s *WAVSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Start streams the file to cb on its own goroutine.
func (s *WAVSource) Start(cb Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrClosed
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Stream(cb); err != nil {
			logger.Errorf("streaming %s: %v", s.path, err)
		}
	}()
	return nil
}

// Stream delivers every block of the file to cb on the calling goroutine
// and returns at end of file or after Stop. It closes Done when it returns.
func (s *WAVSource) Stream(cb Callback) error {
	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.streaming = true
	s.mu.Unlock()

	defer close(s.done)

	var ticker *time.Ticker
	if s.realtime {
		period := time.Duration(float64(len(s.block)) / s.rate * float64(time.Second))
		ticker = time.NewTicker(period)
		defer ticker.Stop()
	}

	for {
		select {
		case <-s.stop:
			return nil
		default:
		}

		n, err := s.decoder.PCMBuffer(s.pcm)
		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return fmt.Errorf("failed to decode %s: %w", s.path, err)
		}
		if n == 0 {
			return nil
		}

		for i, v := range s.pcm.Data[:n] {
			s.block[i] = float32(v) / s.divisor
		}
		cb(s.block[:n])

		if ticker != nil {
			select {
			case <-ticker.C:
			case <-s.stop:
				return nil
			}
		}
	}
}

// Stop ends streaming and waits for the streaming goroutine to return.
func (s *WAVSource) Stop() error {
	s.mu.Lock()
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *WAVSource) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("failed to close wav file: %w", err)
	}
	return nil
}
