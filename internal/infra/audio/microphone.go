//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"
)

// MicrophoneSource reads fixed-size PCM frames from the default input
// device. Driven by the single audio thread only.
type MicrophoneSource struct {
	sampleRate int
	frameSize  int
	logger     *slog.Logger

	stream *portaudio.Stream
	buf    []int16
}

func NewMicrophoneSource(sampleRate, frameSize int, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		logger:     logger,
		buf:        make([]int16, frameSize),
	}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), m.frameSize, m.buf)
	if err != nil {
		return fmt.Errorf("opening stream: %w", err)
	}
	m.stream = stream

	if err := m.stream.Start(); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}

	m.logger.Info("microphone started", "sampleRate", m.sampleRate, "frameSize", m.frameSize)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	if m.stream != nil {
		m.stream.Stop()
		m.stream.Close()
	}
	portaudio.Terminate()
	return nil
}

func (m *MicrophoneSource) ReadFrame(ctx context.Context) ([]int16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.stream.Read(); err != nil {
		return nil, fmt.Errorf("reading from stream: %w", err)
	}
	frame := make([]int16, len(m.buf))
	copy(frame, m.buf)
	return frame, nil
}
