package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	FramesPerBuffer = 1024
	// MinSamples keeps very short captures above the 100ms recognition minimum.
	MinSamples = SampleRate / 5
)

// Microphone records one fixed window from the default input device.
type Microphone struct {
	Window time.Duration
}

func NewMicrophone(window time.Duration) *Microphone {
	if window <= 0 {
		window = 5 * time.Second
	}
	return &Microphone{Window: window}
}

// Open initialises PortAudio, records until the window elapses or ctx is done,
// and returns the utterance as WAV. Closing the reader terminates PortAudio.
func (m *Microphone) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize audio device: %w", err)
	}

	samples, err := m.record(ctx)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	return &deviceReader{Reader: bytes.NewReader(EncodeWAV(samples, SampleRate))}, nil
}

func (m *Microphone) record(ctx context.Context) ([]float32, error) {
	buffer := make([]float32, FramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(Channels, 0, SampleRate, FramesPerBuffer, buffer)
	if err != nil {
		return nil, fmt.Errorf("open default input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	total := int(m.Window.Seconds() * SampleRate)
	samples := make([]float32, 0, total)

	for len(samples) < total {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) && len(samples) > 0 {
				break
			}
			return nil, err
		}

		if err := stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			return nil, fmt.Errorf("read input stream: %w", err)
		}
		samples = append(samples, buffer...)
	}

	if len(samples) < MinSamples {
		samples = append(samples, make([]float32, MinSamples-len(samples))...)
	}

	return samples, nil
}

type deviceReader struct {
	*bytes.Reader
	closed bool
}

func (d *deviceReader) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return portaudio.Terminate()
}
