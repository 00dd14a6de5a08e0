// Package application wires the audio loop, the arming machine and the
// router worker into one assistant.
package application

import (
	"context"

	"hey-george/internal/domain"
	"hey-george/internal/registry"
	"hey-george/internal/stt"
)

// FrameSource delivers fixed-size PCM frames to the audio loop.
type FrameSource interface {
	Start(ctx context.Context) error
	Stop() error
	ReadFrame(ctx context.Context) ([]int16, error)
	Name() string
}

// Transcriber converts one captured clip to text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip []int16, sampleRate int) (stt.Result, error)
}

// IntentResolver turns transcribed text into a validated command.
type IntentResolver interface {
	Resolve(ctx context.Context, text string, snap *registry.Snapshot) (*domain.Command, error)
}

// CommandExecutor performs a validated command against the backend.
type CommandExecutor interface {
	Execute(ctx context.Context, cmd *domain.Command) error
}

// SnapshotProvider hands out the registry snapshot in effect. Each
// utterance resolves against exactly one snapshot.
type SnapshotProvider interface {
	Current() (*registry.Snapshot, error)
}

// Annunciator is the user-audible feedback channel: capture cues, a
// failure cue, and best-effort spoken replies. The user always hears
// something when a command did not execute.
type Annunciator interface {
	CaptureReady(ctx context.Context) error
	CaptureEnded(ctx context.Context) error
	Failed(ctx context.Context) error
	Say(ctx context.Context, message string) error
}

// NoopAnnunciator is silent; useful for tests and headless runs.
type NoopAnnunciator struct{}

func (NoopAnnunciator) CaptureReady(context.Context) error { return nil }
func (NoopAnnunciator) CaptureEnded(context.Context) error { return nil }
func (NoopAnnunciator) Failed(context.Context) error       { return nil }
func (NoopAnnunciator) Say(context.Context, string) error  { return nil }
