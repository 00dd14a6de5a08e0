package homeassistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Cue files served from the backend's /local directory.
const (
	cueReady  = "ready_for_capture.wav"
	cueEnded  = "capture_ended.wav"
	cueFailed = "capture_failed.wav"
)

// Speaker plays capture cues and spoken replies on a media player. Every
// method is best-effort feedback: errors are returned for logging but the
// pipeline never fails because a cue did.
type Speaker struct {
	client         *Client
	player         string
	duckVolume     float64
	ttsDomain      string
	ttsService     string
	ttsTargetField string
	logger         *slog.Logger
}

func NewSpeaker(client *Client, player string, duckVolume float64, ttsDomain, ttsService, ttsTargetField string, logger *slog.Logger) *Speaker {
	return &Speaker{
		client:         client,
		player:         player,
		duckVolume:     duckVolume,
		ttsDomain:      ttsDomain,
		ttsService:     ttsService,
		ttsTargetField: ttsTargetField,
		logger:         logger,
	}
}

func (s *Speaker) CaptureReady(ctx context.Context) error {
	s.duck(ctx)
	return s.playCue(ctx, cueReady)
}

func (s *Speaker) CaptureEnded(ctx context.Context) error {
	return s.playCue(ctx, cueEnded)
}

func (s *Speaker) Failed(ctx context.Context) error {
	s.duck(ctx)
	return s.playCue(ctx, cueFailed)
}

// Say speaks a reply through the backend's TTS service.
func (s *Speaker) Say(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}
	s.duck(ctx)
	data := map[string]any{
		s.ttsTargetField: s.player,
		"message":        message,
	}
	return s.client.CallService(ctx, s.ttsDomain, s.ttsService, data)
}

func (s *Speaker) duck(ctx context.Context) {
	if err := s.client.SetVolume(ctx, s.player, s.duckVolume); err != nil {
		s.logger.Warn("volume duck failed", "player", s.player, "error", err)
	}
}

func (s *Speaker) playCue(ctx context.Context, file string) error {
	url := fmt.Sprintf("%s/local/%s", s.client.BaseURL(), file)
	return s.client.PlayMedia(ctx, s.player, url)
}
