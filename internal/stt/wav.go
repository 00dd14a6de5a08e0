package stt

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncodeWAV renders a mono PCM16 clip as a WAV file suitable for the STT
// upload. The encoder needs a seekable writer to patch the RIFF header, so
// the clip goes through a scratch file.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	f, err := os.CreateTemp("", "clip-*.wav")
	if err != nil {
		return nil, fmt.Errorf("creating scratch file: %w", err)
	}
	defer os.Remove(f.Name())

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return nil, fmt.Errorf("finalizing wav: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing scratch file: %w", err)
	}

	return os.ReadFile(f.Name())
}
