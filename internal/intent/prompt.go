// Package intent turns transcribed text plus a registry snapshot into a
// validated command, treating the model as an unreliable oracle.
package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"hey-george/internal/registry"
)

// excludedPhrases marks sub-controls that must never be independently
// targeted; any entity whose friendly name contains one of these is left
// out of the prompt entirely.
var excludedPhrases = []string{
	"Child lock",
	"Disable LED",
	"Loudness",
	"Crossfade",
	"Surround",
	"Night sound",
	"Subwoofer",
	"Speech enhancement",
}

type entityOption struct {
	FriendlyName    string   `json:"friendly_name"`
	ExtraParameters []string `json:"extra_parameters,omitempty"`
}

type promptPayload struct {
	Task          string            `json:"task"`
	UserText      string            `json:"user_text"`
	ActionOptions []string          `json:"action_options"`
	EntityOptions []entityOption    `json:"entity_options"`
	RoomOptions   []string          `json:"room_options"`
	OutputSchema  map[string]string `json:"output_schema"`
}

const promptTask = "Select the best Home Assistant action and target from the options " +
	"and return JSON only. This is the transcription of a verbal command and the STT " +
	"algorithm may misunderstand words, so be mindful of words that sound similar. " +
	"Still, if there's no obvious match, answer not_applicable instead of guessing. " +
	"ANSWER IN ENGLISH"

// BuildPrompt enumerates the closed action vocabulary, the addressable
// entities with the attribute keys each legally accepts, and the room
// names, as a single JSON instruction.
func BuildPrompt(userText string, snap *registry.Snapshot) (string, error) {
	payload := promptPayload{
		Task:          promptTask,
		UserText:      userText,
		ActionOptions: []string{"turn_on", "turn_off", "not_applicable"},
		EntityOptions: entityOptions(snap),
		RoomOptions:   snap.RoomNames(),
		OutputSchema: map[string]string{
			"service":              "string, one of action_options",
			"entity_friendly_name": "string, one of entity_options.friendly_name; omit when room_name is set",
			"room_name":            "string, one of room_options; only for whole-room commands",
			"data":                 "object; optional. Only include extra_parameters supported by the selected entity. THERE MAY BE MULTIPLE.",
			"response_text":        "string; only when service is not_applicable, a short spoken reply",
		},
	}

	out, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling prompt: %w", err)
	}
	return string(out), nil
}

func entityOptions(snap *registry.Snapshot) []entityOption {
	options := make([]entityOption, 0, len(snap.Entities))
	for _, e := range snap.Entities {
		if isExcluded(e.FriendlyName) {
			continue
		}
		options = append(options, entityOption{
			FriendlyName:    e.FriendlyName,
			ExtraParameters: extraParameters(e.SupportedColorModes),
		})
	}
	return options
}

func isExcluded(friendlyName string) bool {
	for _, phrase := range excludedPhrases {
		if strings.Contains(friendlyName, phrase) {
			return true
		}
	}
	return false
}

// extraParameters maps an entity's supported modes to the attribute keys
// the validator will later accept for it.
func extraParameters(modes []string) []string {
	var params []string
	for _, m := range modes {
		switch m {
		case "brightness":
			params = append(params, "brightness_pct")
		case "color_temp_kelvin":
			params = append(params, "color_temp_kelvin")
		}
	}
	return params
}
