// Package audio supplies the single-utterance audio inputs of a pipeline run.
package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
)

const (
	// SampleRate expected by the speech services.
	SampleRate = 16000
	Channels   = 1
)

var (
	ErrEmptyClip  = errors.New("audio clip is empty")
	ErrInvalidWAV = errors.New("audio clip is not a RIFF/WAVE file")
)

// Input is acquired once per run and must be closed by the caller.
type Input interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Clip is an in-memory WAV utterance, typically an HTTP upload.
type Clip struct {
	data []byte
}

func NewClip(data []byte) (*Clip, error) {
	if len(data) == 0 {
		return nil, ErrEmptyClip
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, ErrInvalidWAV
	}
	return &Clip{data: data}, nil
}

func (c *Clip) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(c.data)), nil
}

func (c *Clip) Bytes() []byte {
	return c.data
}

func (c *Clip) Size() int {
	return len(c.data)
}
