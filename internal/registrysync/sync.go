// Package registrysync builds registry snapshots from the live backend and
// writes them atomically for the pipeline to pick up.
package registrysync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hey-george/internal/infra"
	"hey-george/internal/infra/homeassistant"
	"hey-george/internal/registry"
)

// controllableDomains are the entity domains worth voice control.
var controllableDomains = map[string]bool{
	"light":  true,
	"switch": true,
}

// Backend is the slice of the Home Assistant client the sync job needs.
type Backend interface {
	BaseURL() string
	GetStates(ctx context.Context) ([]homeassistant.State, error)
	GetAreas(ctx context.Context) ([]homeassistant.AreaEntry, error)
	GetEntityRegistry(ctx context.Context) ([]homeassistant.RegistryEntry, error)
}

// Syncer pulls backend state and produces normalized snapshots.
type Syncer struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
}

func NewSyncer(backend Backend, logger *slog.Logger) *Syncer {
	return &Syncer{backend: backend, logger: logger, now: time.Now}
}

// Build assembles a snapshot from the live backend. Each pull is retried
// with backoff; this runs outside the utterance pipeline.
func (s *Syncer) Build(ctx context.Context) (*registry.Snapshot, error) {
	var (
		states  []homeassistant.State
		areas   []homeassistant.AreaEntry
		entries []homeassistant.RegistryEntry
	)

	retryCfg := infra.DefaultRetryConfig()
	if err := infra.WithRetry(ctx, retryCfg, func() error {
		var err error
		states, err = s.backend.GetStates(ctx)
		return err
	}); err != nil {
		return nil, fmt.Errorf("fetching states: %w", err)
	}
	if err := infra.WithRetry(ctx, retryCfg, func() error {
		var err error
		areas, err = s.backend.GetAreas(ctx)
		return err
	}); err != nil {
		s.logger.Warn("area registry unavailable, rooms will be empty", "error", err)
		areas = nil
	}
	if err := infra.WithRetry(ctx, retryCfg, func() error {
		var err error
		entries, err = s.backend.GetEntityRegistry(ctx)
		return err
	}); err != nil {
		s.logger.Warn("entity registry unavailable, rooms will be empty", "error", err)
		entries = nil
	}

	entities := buildEntities(states)
	snap := &registry.Snapshot{
		GeneratedAt: float64(s.now().Unix()),
		HAURL:       s.backend.BaseURL(),
		Entities:    entities,
		Areas:       buildAreas(areas, entries, entities),
		Index:       buildIndex(entities),
		Counts:      buildCounts(entities),
	}

	s.logger.Info("snapshot built",
		"entities", snap.Counts.Total,
		"areas", len(snap.Areas),
	)
	return snap, nil
}

func buildEntities(states []homeassistant.State) []registry.Entity {
	var entities []registry.Entity
	for _, st := range states {
		dom := entityDomain(st.EntityID)
		if !controllableDomains[dom] {
			continue
		}

		friendly := st.EntityID
		if fn, ok := st.Attributes["friendly_name"].(string); ok && fn != "" {
			friendly = fn
		}
		deviceClass, _ := st.Attributes["device_class"].(string)

		entities = append(entities, registry.Entity{
			EntityID:            st.EntityID,
			Domain:              dom,
			FriendlyName:        friendly,
			FriendlyNorm:        registry.Norm(friendly),
			EntityNorm:          registry.Norm(st.EntityID),
			DeviceClass:         deviceClass,
			SupportedColorModes: colorModes(st.Attributes),
		})
	}
	return entities
}

// colorModes normalizes an entity's capability list: a brightness
// attribute implies the brightness mode, and the backend's color_temp mode
// is renamed to the kelvin-based attribute key the validator accepts.
func colorModes(attrs map[string]any) []string {
	var modes []string
	if raw, ok := attrs["supported_color_modes"].([]any); ok {
		for _, m := range raw {
			mode, ok := m.(string)
			if !ok {
				continue
			}
			if mode == "color_temp" {
				mode = "color_temp_kelvin"
			}
			modes = append(modes, mode)
		}
	}
	if _, ok := attrs["brightness"]; ok && !contains(modes, "brightness") {
		modes = append(modes, "brightness")
	}
	return modes
}

func buildAreas(areas []homeassistant.AreaEntry, entries []homeassistant.RegistryEntry, entities []registry.Entity) []registry.Area {
	if len(areas) == 0 {
		return nil
	}

	known := make(map[string]registry.Entity, len(entities))
	for _, e := range entities {
		known[e.EntityID] = e
	}

	lightsByArea := make(map[string][]string)
	for _, entry := range entries {
		if entry.DisabledBy != "" || entry.AreaID == "" {
			continue
		}
		e, ok := known[entry.EntityID]
		if !ok || e.Domain != "light" {
			continue
		}
		lightsByArea[entry.AreaID] = append(lightsByArea[entry.AreaID], entry.EntityID)
	}

	out := make([]registry.Area, 0, len(areas))
	for _, a := range areas {
		out = append(out, registry.Area{
			Name:          a.Name,
			AreaID:        a.AreaID,
			LightEntities: lightsByArea[a.AreaID],
		})
	}
	return out
}

func buildIndex(entities []registry.Entity) registry.Index {
	idx := registry.Index{
		ByFriendlyNorm: make(map[string][]string),
		ByEntityNorm:   make(map[string]string),
	}
	for _, e := range entities {
		// Collisions are preserved as lists so lookups can surface
		// ambiguity instead of picking a winner here.
		idx.ByFriendlyNorm[e.FriendlyNorm] = append(idx.ByFriendlyNorm[e.FriendlyNorm], e.EntityID)
		idx.ByEntityNorm[e.EntityNorm] = e.EntityID
	}
	return idx
}

func buildCounts(entities []registry.Entity) registry.Counts {
	counts := registry.Counts{Total: len(entities)}
	for _, e := range entities {
		switch e.Domain {
		case "light":
			counts.Lights++
		case "switch":
			counts.Switches++
		}
	}
	return counts
}

// Write publishes a snapshot atomically: temp file in the target directory,
// then rename, so readers never see a partial file.
func Write(path string, snap *registry.Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".registry-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publishing snapshot: %w", err)
	}
	return nil
}

func entityDomain(entityID string) string {
	if i := strings.IndexByte(entityID, '.'); i > 0 {
		return entityID[:i]
	}
	return ""
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
