package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// CuePlayer plays capture cues on the local sound device, for setups
// without a backend media player. Files ready.wav, ended.wav and
// failed.wav (or .mp3) live in the configured directory.
type CuePlayer struct {
	dir    string
	logger *slog.Logger
}

func NewCuePlayer(dir string, logger *slog.Logger) *CuePlayer {
	return &CuePlayer{dir: dir, logger: logger}
}

func (p *CuePlayer) CaptureReady(ctx context.Context) error {
	return p.play(ctx, "ready")
}

func (p *CuePlayer) CaptureEnded(ctx context.Context) error {
	return p.play(ctx, "ended")
}

func (p *CuePlayer) Failed(ctx context.Context) error {
	return p.play(ctx, "failed")
}

// Say has no local TTS; the reply is logged so failures are still visible.
func (p *CuePlayer) Say(_ context.Context, message string) error {
	p.logger.Info("spoken reply (no local tts)", "message", message)
	return nil
}

func (p *CuePlayer) play(ctx context.Context, name string) error {
	path, err := p.findCue(name)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening cue: %w", err)
	}
	defer f.Close()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch filepath.Ext(path) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		streamer, format, err = wav.Decode(f)
	}
	if err != nil {
		return fmt.Errorf("decoding cue: %w", err)
	}
	defer streamer.Close()

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("initializing speaker: %w", err)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *CuePlayer) findCue(name string) (string, error) {
	for _, ext := range []string{".wav", ".mp3"} {
		path := filepath.Join(p.dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no %s cue in %s", name, p.dir)
}
