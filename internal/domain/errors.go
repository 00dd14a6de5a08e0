package domain

import (
	"errors"
	"fmt"
)

// Errors are grouped by where they stop the program. Configuration and
// registry errors are fatal at startup; everything else fails exactly one
// utterance and is handled at the router worker boundary.
var (
	// ErrConfiguration covers missing credentials or paths at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrRegistryUnavailable means the snapshot file is missing, unparsable,
	// or structurally invalid.
	ErrRegistryUnavailable = errors.New("registry unavailable")

	// ErrLLMProtocol means the model response was malformed or empty. It is
	// never treated as "no action".
	ErrLLMProtocol = errors.New("llm protocol error")

	ErrInvalidAction    = errors.New("invalid action")
	ErrRoomNotFound     = errors.New("room not found")
	ErrEntityNotFound   = errors.New("entity not found")
	ErrInvalidAttribute = errors.New("invalid attribute")

	// ErrAmbiguousMatch means several entities share a normalized friendly
	// name. It fails the utterance like not-found; never pick-first.
	ErrAmbiguousMatch = errors.New("ambiguous match")
)

// NotApplicableError is returned when the model declines to act, either
// explicitly or by answering with a spoken reply instead of a service call.
// The reply, if any, is surfaced to the user.
type NotApplicableError struct {
	Reply string
}

func (e *NotApplicableError) Error() string {
	if e.Reply == "" {
		return "decision is not applicable"
	}
	return fmt.Sprintf("decision is not applicable: %q", e.Reply)
}
