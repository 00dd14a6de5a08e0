package domain

// Action is a backend service that the pipeline is allowed to call.
type Action string

const (
	ActionTurnOn  Action = "turn_on"
	ActionTurnOff Action = "turn_off"

	// ActionNotApplicable is part of the prompt vocabulary so the model can
	// decline instead of guessing. It is never executable.
	ActionNotApplicable Action = "not_applicable"
)

// AllowedActions is the closed set of executable actions.
var AllowedActions = map[Action]bool{
	ActionTurnOn:  true,
	ActionTurnOff: true,
}

// Target selects what a command acts on. Exactly one field is set:
// a single entity, a room's entity list, or a backend-native area id.
type Target struct {
	EntityID  string
	EntityIDs []string
	AreaID    string
}

// Payload returns the target selector as service-call data.
func (t Target) Payload() map[string]any {
	switch {
	case t.AreaID != "":
		return map[string]any{"area_id": t.AreaID}
	case len(t.EntityIDs) > 0:
		return map[string]any{"entity_id": t.EntityIDs}
	default:
		return map[string]any{"entity_id": t.EntityID}
	}
}

// Command is a fully validated action. Every field is closed-set or
// range-clamped; only this shape may reach the backend call.
type Command struct {
	Domain string
	Action Action
	Target Target
	Data   map[string]any
}
