// Command assistant runs the always-on voice pipeline: wake word
// detection, clip capture, transcription, intent resolution and
// dispatch to Home Assistant.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"

	"hey-george/config"
	"hey-george/internal/application"
	infraaudio "hey-george/internal/infra/audio"
	"hey-george/internal/infra/homeassistant"
	infrallm "hey-george/internal/infra/llm"
	infrastt "hey-george/internal/infra/stt"
	"hey-george/internal/intent"
	"hey-george/internal/registry"
	"hey-george/internal/stt"
	"hey-george/internal/wakeword"
)

func main() {
	configPath := pflag.StringP("config", "c", "config.yaml", "path to the YAML configuration file")
	envPath := pflag.StringP("env", "e", ".env", "path to an optional dotenv file")
	pflag.Parse()

	cfg, err := config.Load(*configPath, *envPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	if err := run(cfg, logger); err != nil && err != context.Canceled {
		logger.Error("assistant exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := registry.NewStore(cfg.Registry.Path, logger)
	if cfg.Registry.ReloadInterval > 0 {
		store.StartPeriodicReload(ctx, cfg.Registry.ReloadInterval)
	}

	haClient := homeassistant.NewClient(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token, cfg.HomeAssistant.Timeout)

	fast := infrastt.NewClient(cfg.STT.Fast.URL, cfg.STT.Fast.Model, cfg.STT.Timeout, cfg.STT.Fast.SupportsBias)
	robust := infrastt.NewClient(cfg.STT.Robust.URL, cfg.STT.Robust.Model, cfg.STT.Timeout, cfg.STT.Robust.SupportsBias)
	engine := stt.NewEngine(fast, robust, cfg.STT.BiasWords, cfg.STT.Prompt, logger)

	llmClient := infrallm.NewClient(cfg.LLM.URL, cfg.LLM.Model, cfg.LLM.APIKey, cfg.LLM.MaxTokens, cfg.LLM.Timeout)
	resolver := intent.NewResolver(llmClient, logger)

	windowSamples := int(cfg.WakeWord.WindowSeconds * float64(cfg.WakeWord.SampleRate))
	detector, err := wakeword.NewONNXDetector(cfg.WakeWord.ModelPath, cfg.WakeWord.OnnxLibrary, cfg.WakeWord.Word, windowSamples)
	if err != nil {
		return fmt.Errorf("loading wake word model: %w", err)
	}
	defer detector.Close()

	var frames application.FrameSource
	switch cfg.Audio.Source {
	case "replay":
		frames = infraaudio.NewReplaySource(cfg.Audio.ReplayDir, cfg.WakeWord.FrameSize, logger)
	default:
		frames = infraaudio.NewMicrophoneSource(cfg.WakeWord.SampleRate, cfg.WakeWord.FrameSize, logger)
	}

	var voice application.Annunciator
	switch cfg.Audio.Cues {
	case "speaker":
		voice = homeassistant.NewSpeaker(haClient, cfg.HomeAssistant.MediaPlayer, cfg.HomeAssistant.DuckVolume,
			cfg.TTS.Domain, cfg.TTS.Service, cfg.TTS.TargetField, logger)
	case "local":
		voice = infraaudio.NewCuePlayer(cfg.Audio.LocalCueDir, logger)
	default:
		voice = application.NoopAnnunciator{}
	}

	assistant := application.NewAssistant(
		application.Config{
			WakeWord: wakeword.Config{
				Word:             cfg.WakeWord.Word,
				TriggerThreshold: cfg.WakeWord.TriggerThreshold,
				RearmThreshold:   cfg.WakeWord.RearmThreshold,
				RearmFrames:      cfg.WakeWord.RearmFrames,
				SampleRate:       cfg.WakeWord.SampleRate,
				FrameSize:        cfg.WakeWord.FrameSize,
				RecordSeconds:    cfg.WakeWord.RecordSeconds,
				CooldownSeconds:  cfg.WakeWord.CooldownSeconds,
				PreRollPause:     cfg.WakeWord.PreRollPause,
			},
			QueueSize:      cfg.WakeWord.QueueSize,
			STTTimeout:     cfg.STT.Timeout,
			ResolveTimeout: cfg.LLM.Timeout,
			ExecuteTimeout: cfg.HomeAssistant.Timeout,
		},
		frames, detector, engine, resolver, haClient, store, voice, logger,
	)

	return assistant.Run(ctx)
}

func newLogger(cfg config.Log) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	case "console":
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: level})
	default:
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
