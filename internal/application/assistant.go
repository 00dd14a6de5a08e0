package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"hey-george/internal/domain"
	"hey-george/internal/wakeword"
)

const fallbackApology = "Sorry, I could not figure out that request."

// Config holds the orchestrator knobs that are not owned by an adapter.
type Config struct {
	WakeWord       wakeword.Config
	QueueSize      int
	STTTimeout     time.Duration
	ResolveTimeout time.Duration
	ExecuteTimeout time.Duration
}

// Assistant owns the whole pipeline: it pumps microphone frames through
// the arming machine, queues captured clips on the router, and the
// router worker carries each clip through transcription, intent
// resolution and execution. All blocking network calls happen on the
// worker; the audio loop never waits on the network.
type Assistant struct {
	cfg       Config
	frames    FrameSource
	machine   *wakeword.Machine
	router    *Router
	stt       Transcriber
	resolver  IntentResolver
	executor  CommandExecutor
	snapshots SnapshotProvider
	voice     Annunciator
	logger    *slog.Logger
}

func NewAssistant(
	cfg Config,
	frames FrameSource,
	detector wakeword.Detector,
	transcriber Transcriber,
	resolver IntentResolver,
	executor CommandExecutor,
	snapshots SnapshotProvider,
	voice Annunciator,
	logger *slog.Logger,
) *Assistant {
	a := &Assistant{
		cfg:       cfg,
		frames:    frames,
		stt:       transcriber,
		resolver:  resolver,
		executor:  executor,
		snapshots: snapshots,
		voice:     voice,
		logger:    logger,
	}
	a.router = NewRouter(a.processUtterance, cfg.QueueSize, logger)
	a.machine = wakeword.NewMachine(cfg.WakeWord, detector, voice, a.enqueueClip, logger)
	return a
}

// Run blocks on the audio loop until the context is cancelled or the
// frame source fails.
func (a *Assistant) Run(ctx context.Context) error {
	if _, err := a.snapshots.Current(); err != nil {
		return fmt.Errorf("loading registry snapshot: %w", err)
	}
	if err := a.frames.Start(ctx); err != nil {
		return fmt.Errorf("starting audio source: %w", err)
	}
	defer a.frames.Stop()

	a.router.Start(ctx)
	a.logger.Info("assistant listening",
		"audio_source", a.frames.Name(),
		"wake_word", a.cfg.WakeWord.Word,
		"sample_rate", a.cfg.WakeWord.SampleRate)

	for {
		frame, err := a.frames.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading audio frame: %w", err)
		}
		a.machine.Step(ctx, frame)
	}
}

func (a *Assistant) enqueueClip(clip []int16, release func()) {
	a.router.Enqueue(NewUtterance(uuid.NewString(), clip, release))
}

// processUtterance is the router handler. Failures are surfaced to the
// user audibly and reported to the worker; they never stop the worker.
func (a *Assistant) processUtterance(ctx context.Context, utt Utterance) error {
	log := a.logger.With("utterance", utt.ID)

	snap, err := a.snapshots.Current()
	if err != nil {
		a.announceFailure(ctx, log)
		return fmt.Errorf("registry snapshot: %w", err)
	}

	sttCtx, cancel := context.WithTimeout(ctx, a.cfg.STTTimeout)
	res, err := a.stt.Transcribe(sttCtx, utt.Clip, a.cfg.WakeWord.SampleRate)
	cancel()
	if err != nil {
		a.announceFailure(ctx, log)
		return fmt.Errorf("transcribing: %w", err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		log.Info("empty transcription, ignoring clip", "model", res.Model)
		return nil
	}
	log.Info("transcribed",
		"text", text,
		"model", res.Model,
		"language", res.Language,
		"language_probability", res.LanguageProbability)

	resolveCtx, cancel := context.WithTimeout(ctx, a.cfg.ResolveTimeout)
	cmd, err := a.resolver.Resolve(resolveCtx, text, snap)
	cancel()
	var notApplicable *domain.NotApplicableError
	switch {
	case errors.As(err, &notApplicable):
		reply := notApplicable.Reply
		if reply == "" {
			reply = fallbackApology
		}
		log.Info("request not applicable", "reply", reply)
		a.say(ctx, log, reply)
		return nil
	case err != nil:
		a.announceFailure(ctx, log)
		a.say(ctx, log, fallbackApology)
		return fmt.Errorf("resolving %q: %w", text, err)
	}

	execCtx, cancel := context.WithTimeout(ctx, a.cfg.ExecuteTimeout)
	err = a.executor.Execute(execCtx, cmd)
	cancel()
	if err != nil {
		a.announceFailure(ctx, log)
		return fmt.Errorf("executing %s.%s: %w", cmd.Domain, cmd.Action, err)
	}

	log.Info("command executed",
		"domain", cmd.Domain,
		"action", cmd.Action,
		"target", cmd.Target.Payload(),
		"data", cmd.Data)
	return nil
}

func (a *Assistant) announceFailure(ctx context.Context, log *slog.Logger) {
	if err := a.voice.Failed(ctx); err != nil {
		log.Warn("failure cue did not play", "error", err)
	}
}

func (a *Assistant) say(ctx context.Context, log *slog.Logger, message string) {
	if err := a.voice.Say(ctx, message); err != nil {
		log.Warn("spoken reply failed", "error", err)
	}
}
