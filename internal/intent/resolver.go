package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"hey-george/internal/domain"
	"hey-george/internal/registry"
)

// Completer is the LLM transport.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Resolver builds the constrained prompt, calls the model once, and
// validates its output before anything can act on it.
type Resolver struct {
	llm    Completer
	logger *slog.Logger
}

func NewResolver(llm Completer, logger *slog.Logger) *Resolver {
	return &Resolver{llm: llm, logger: logger}
}

func (r *Resolver) Resolve(ctx context.Context, text string, snap *registry.Snapshot) (*domain.Command, error) {
	prompt, err := BuildPrompt(text, snap)
	if err != nil {
		return nil, err
	}

	content, err := r.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	dec, err := parseDecision(content)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("llm decision",
		"service", dec.Service,
		"entity", dec.EntityFriendlyName,
		"room", dec.RoomName,
	)

	return Validate(dec, snap)
}

// parseDecision unmarshals the model output, tolerating markdown fences
// some models wrap JSON in.
func parseDecision(content string) (*Decision, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var dec Decision
	if err := json.Unmarshal([]byte(content), &dec); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling decision (%s): %v", domain.ErrLLMProtocol, content, err)
	}
	return &dec, nil
}
