package intent

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"hey-george/internal/domain"
	"hey-george/internal/registry"
)

// Decision is the untrusted structured record the model returns. Nothing
// in it may be acted on before Validate.
type Decision struct {
	Service            string         `json:"service"`
	EntityFriendlyName string         `json:"entity_friendly_name"`
	RoomName           string         `json:"room_name"`
	Data               map[string]any `json:"data"`
	Intent             string         `json:"intent"`
	ResponseText       string         `json:"response_text"`
}

// Attribute clamp ranges.
const (
	brightnessMin = 1
	brightnessMax = 100
	kelvinMin     = 2300
	kelvinMax     = 4000
)

// Validate turns a decision into an executable command or rejects it.
// A populated room name wins over an entity match; ambiguity is a failure,
// never a first pick.
func Validate(dec *Decision, snap *registry.Snapshot) (*domain.Command, error) {
	action := domain.Action(dec.Service)

	if action == domain.ActionNotApplicable || dec.Intent == "reply" ||
		(dec.Service == "" && dec.ResponseText != "") {
		return nil, &domain.NotApplicableError{Reply: dec.ResponseText}
	}
	if !domain.AllowedActions[action] {
		return nil, fmt.Errorf("%w: service %q", domain.ErrInvalidAction, dec.Service)
	}

	data, err := cleanAttributes(dec.Data)
	if err != nil {
		return nil, err
	}

	if dec.RoomName != "" {
		area, err := snap.LookupRoom(dec.RoomName)
		if err != nil {
			return nil, err
		}
		target := domain.Target{AreaID: area.AreaID}
		if area.AreaID == "" {
			if len(area.LightEntities) == 0 {
				return nil, fmt.Errorf("%w: room %q has no lights", domain.ErrRoomNotFound, dec.RoomName)
			}
			target = domain.Target{EntityIDs: area.LightEntities}
		}
		return &domain.Command{
			Domain: "light",
			Action: action,
			Target: target,
			Data:   data,
		}, nil
	}

	if dec.EntityFriendlyName == "" {
		return nil, fmt.Errorf("%w: decision has no target", domain.ErrEntityNotFound)
	}
	entityID, err := snap.LookupFriendly(dec.EntityFriendlyName)
	if err != nil {
		return nil, err
	}

	return &domain.Command{
		Domain: entityDomain(entityID),
		Action: action,
		Target: domain.Target{EntityID: entityID},
		Data:   data,
	}, nil
}

// cleanAttributes keeps only the two allowed keys, coerced to integers and
// clamped to safe ranges. Everything else is dropped, never forwarded.
func cleanAttributes(data map[string]any) (map[string]any, error) {
	cleaned := map[string]any{}

	if raw, ok := data["brightness_pct"]; ok {
		n, err := toInt(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: brightness_pct %v", domain.ErrInvalidAttribute, raw)
		}
		cleaned["brightness_pct"] = clamp(n, brightnessMin, brightnessMax)
	}
	if raw, ok := data["color_temp_kelvin"]; ok {
		n, err := toInt(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: color_temp_kelvin %v", domain.ErrInvalidAttribute, raw)
		}
		cleaned["color_temp_kelvin"] = clamp(n, kelvinMin, kelvinMax)
	}

	return cleaned, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return int(f), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, err
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func entityDomain(entityID string) string {
	if i := strings.IndexByte(entityID, '.'); i > 0 {
		return entityID[:i]
	}
	return entityID
}
