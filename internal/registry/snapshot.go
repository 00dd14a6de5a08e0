package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"hey-george/internal/domain"
)

// Entity is one controllable device from the snapshot.
type Entity struct {
	EntityID            string   `json:"entity_id"`
	Domain              string   `json:"domain"`
	FriendlyName        string   `json:"friendly_name"`
	FriendlyNorm        string   `json:"friendly_norm"`
	EntityNorm          string   `json:"entity_norm"`
	DeviceClass         string   `json:"device_class,omitempty"`
	SupportedColorModes []string `json:"supported_color_modes"`
}

// Area is a room. When AreaID is set the backend can address the whole room
// natively; otherwise LightEntities is the fallback target list.
type Area struct {
	Name          string   `json:"name"`
	AreaID        string   `json:"area_id,omitempty"`
	LightEntities []string `json:"light_entities,omitempty"`
}

type Counts struct {
	Lights   int `json:"lights"`
	Switches int `json:"switches"`
	Total    int `json:"total"`
}

// Index holds the derived lookup tables. Friendly-name collisions are
// preserved as lists, never collapsed.
type Index struct {
	ByFriendlyNorm map[string][]string `json:"by_friendly_norm"`
	ByEntityNorm   map[string]string   `json:"by_entity_norm"`
}

// Snapshot is a point-in-time view of the controllable world. It is
// produced wholesale by the sync job and never mutated; the pipeline
// resolves each utterance against exactly one snapshot.
type Snapshot struct {
	GeneratedAt float64  `json:"generated_at"`
	HAURL       string   `json:"ha_url"`
	Counts      Counts   `json:"counts"`
	Entities    []Entity `json:"entities"`
	Areas       []Area   `json:"areas"`
	Index       Index    `json:"index"`
}

// Load reads and validates a snapshot file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrRegistryUnavailable, path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrRegistryUnavailable, path, err)
	}

	// Only the structures lookups depend on are required. generated_at,
	// ha_url and counts are informational metadata and may be absent.
	if snap.Entities == nil {
		return nil, fmt.Errorf("%w: %s has no entities key", domain.ErrRegistryUnavailable, path)
	}
	if snap.Index.ByFriendlyNorm == nil || snap.Index.ByEntityNorm == nil {
		return nil, fmt.Errorf("%w: %s has no index", domain.ErrRegistryUnavailable, path)
	}

	return &snap, nil
}

// LookupFriendly resolves a friendly name to a single entity id. Several
// entities behind the same normalized name is a distinct ambiguous outcome,
// not a silent first match.
func (s *Snapshot) LookupFriendly(name string) (string, error) {
	key := Norm(name)
	ids := s.Index.ByFriendlyNorm[key]
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: friendly name %q", domain.ErrEntityNotFound, name)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: friendly name %q matches %v", domain.ErrAmbiguousMatch, name, ids)
	}
}

// LookupEntityID resolves a (possibly sloppy) entity id to its canonical form.
func (s *Snapshot) LookupEntityID(id string) (string, error) {
	if canonical, ok := s.Index.ByEntityNorm[Norm(id)]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("%w: entity id %q", domain.ErrEntityNotFound, id)
}

// LookupRoom resolves a room by normalized name.
func (s *Snapshot) LookupRoom(name string) (*Area, error) {
	key := Norm(name)
	for i := range s.Areas {
		if Norm(s.Areas[i].Name) == key {
			return &s.Areas[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrRoomNotFound, name)
}

// RoomNames lists the room names in snapshot order.
func (s *Snapshot) RoomNames() []string {
	names := make([]string, 0, len(s.Areas))
	for _, a := range s.Areas {
		names = append(names, a.Name)
	}
	return names
}
