package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/wav"
)

// ReplaySource feeds frames from WAV files dropped into a directory,
// emitting silence in between. Useful for development machines without a
// microphone and for exercising the whole pipeline from canned clips.
type ReplaySource struct {
	dir       string
	frameSize int
	logger    *slog.Logger

	pending   []int16
	processed map[string]bool
}

func NewReplaySource(dir string, frameSize int, logger *slog.Logger) *ReplaySource {
	return &ReplaySource{
		dir:       dir,
		frameSize: frameSize,
		logger:    logger,
		processed: make(map[string]bool),
	}
}

func (r *ReplaySource) Name() string {
	return "replay"
}

func (r *ReplaySource) Start(_ context.Context) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("creating replay dir: %w", err)
	}
	return nil
}

func (r *ReplaySource) Stop() error {
	return nil
}

func (r *ReplaySource) ReadFrame(ctx context.Context) ([]int16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(r.pending) < r.frameSize {
		if err := r.loadNextFile(); err != nil {
			r.logger.Warn("replay file skipped", "error", err)
		}
	}

	frame := make([]int16, r.frameSize)
	if len(r.pending) >= r.frameSize {
		copy(frame, r.pending[:r.frameSize])
		r.pending = r.pending[r.frameSize:]
		return frame, nil
	}

	// Nothing queued: pace the loop at roughly real time and hand back
	// silence so the machine keeps stepping.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(20 * time.Millisecond):
	}
	return frame, nil
}

func (r *ReplaySource) loadNextFile() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading replay dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".wav" {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		if r.processed[path] {
			continue
		}
		r.processed[path] = true

		samples, err := decodeWAV(path)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		r.logger.Info("replaying clip", "file", entry.Name(), "samples", len(samples))
		r.pending = append(r.pending, samples...)
		return nil
	}
	return nil
}

func decodeWAV(path string) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}

	samples := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = int16(s)
	}
	return samples, nil
}
