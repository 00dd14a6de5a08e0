// Package stt converts captured audio clips to text, escalating from a
// fast model to a robust one when the fast result looks unreliable.
package stt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Escalation thresholds. A fast-tier result shorter than MinCharsFallback
// or with a language probability strictly below LangProbFallback is retried
// once on the robust tier; exactly 0.60 passes.
const (
	MinCharsFallback = 3
	LangProbFallback = 0.60
)

// Result is one transcription outcome, tagged with the model that
// produced it.
type Result struct {
	Text                string
	Language            string
	LanguageProbability float64
	Duration            float64
	Model               string
}

// Transcriber is one model tier behind the STT endpoint.
type Transcriber interface {
	Transcribe(ctx context.Context, wavData []byte, bias []string, prompt string) (Result, error)
}

// Engine runs the two-tier escalation policy. Bias words and the prompt
// are passed to both tiers identically; tiers that do not support lexical
// biasing drop them silently.
type Engine struct {
	fast   Transcriber
	robust Transcriber
	bias   []string
	prompt string
	logger *slog.Logger
}

func NewEngine(fast, robust Transcriber, bias []string, prompt string, logger *slog.Logger) *Engine {
	return &Engine{
		fast:   fast,
		robust: robust,
		bias:   bias,
		prompt: prompt,
		logger: logger,
	}
}

// Transcribe converts one clip to text. Any transport or decoding error is
// final for the utterance; there are no retries beyond the single
// escalation to the robust tier.
func (e *Engine) Transcribe(ctx context.Context, clip []int16, sampleRate int) (Result, error) {
	wavData, err := EncodeWAV(clip, sampleRate)
	if err != nil {
		return Result{}, fmt.Errorf("encoding clip: %w", err)
	}
	clipSeconds := float64(len(clip)) / float64(sampleRate)

	start := time.Now()
	res, err := e.fast.Transcribe(ctx, wavData, e.bias, e.prompt)
	if err != nil {
		return Result{}, fmt.Errorf("fast tier: %w", err)
	}
	if res.Model == "" {
		res.Model = "fast"
	}

	// Real-time factor is observability only, never a correctness input.
	if clipSeconds > 0 {
		e.logger.Debug("fast tier done",
			"text", res.Text,
			"language", res.Language,
			"language_probability", res.LanguageProbability,
			"rtf", time.Since(start).Seconds()/clipSeconds,
		)
	}

	if !needsEscalation(res) {
		return res, nil
	}

	e.logger.Info("escalating to robust tier",
		"chars", len(strings.TrimSpace(res.Text)),
		"language_probability", res.LanguageProbability,
	)

	robust, err := e.robust.Transcribe(ctx, wavData, e.bias, e.prompt)
	if err != nil {
		return Result{}, fmt.Errorf("robust tier: %w", err)
	}
	if robust.Model == "" {
		robust.Model = "robust"
	}
	// The robust result is final even if it would itself qualify for
	// escalation; one escalation per utterance, never chained.
	return robust, nil
}

func needsEscalation(r Result) bool {
	return len(strings.TrimSpace(r.Text)) < MinCharsFallback ||
		r.LanguageProbability < LangProbFallback
}
