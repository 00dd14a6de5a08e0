package registry_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"hey-george/internal/domain"
	"hey-george/internal/registry"
)

func writeSnapshotFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing snapshot file: %v", err)
	}
	return path
}

const validSnapshot = `{
  "generated_at": 1756500000.0,
  "ha_url": "http://ha.local:8123",
  "counts": {"lights": 2, "switches": 1, "total": 3},
  "entities": [
    {"entity_id": "light.bedside_lamp", "domain": "light", "friendly_name": "Bedside Lamp",
     "friendly_norm": "bedside lamp", "entity_norm": "light bedside lamp",
     "supported_color_modes": ["brightness", "color_temp_kelvin"]},
    {"entity_id": "light.desk_lamp", "domain": "light", "friendly_name": "Desk Lamp",
     "friendly_norm": "desk lamp", "entity_norm": "light desk lamp",
     "supported_color_modes": ["brightness"]},
    {"entity_id": "switch.fan", "domain": "switch", "friendly_name": "Fan",
     "friendly_norm": "fan", "entity_norm": "switch fan", "supported_color_modes": null}
  ],
  "areas": [
    {"name": "Bedroom", "area_id": "bedroom"},
    {"name": "Living Room", "light_entities": ["light.desk_lamp"]},
    {"name": "Garage"}
  ],
  "index": {
    "by_friendly_norm": {
      "bedside lamp": ["light.bedside_lamp"],
      "desk lamp": ["light.desk_lamp"],
      "fan": ["switch.fan"],
      "lamp": ["light.bedside_lamp", "light.desk_lamp"]
    },
    "by_entity_norm": {
      "light bedside lamp": "light.bedside_lamp",
      "light desk lamp": "light.desk_lamp",
      "switch fan": "switch.fan"
    }
  }
}`

func TestLoad(t *testing.T) {
	snap, err := registry.Load(writeSnapshotFile(t, validSnapshot))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(snap.Entities) != 3 {
		t.Errorf("entities: got %d, want 3", len(snap.Entities))
	}
	if snap.Counts.Lights != 2 || snap.Counts.Switches != 1 {
		t.Errorf("counts: got %+v", snap.Counts)
	}
}

func TestLoadToleratesMissingMetadata(t *testing.T) {
	bare := `{"entities": [], "index": {"by_friendly_norm": {}, "by_entity_norm": {}}}`
	snap, err := registry.Load(writeSnapshotFile(t, bare))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if snap.GeneratedAt != 0 || snap.Counts.Lights != 0 {
		t.Errorf("metadata should zero-value: generated_at=%v counts=%+v", snap.GeneratedAt, snap.Counts)
	}
}

func TestLoadFailures(t *testing.T) {
	cases := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "nope.json")
		}},
		{"invalid json", func(t *testing.T) string {
			return writeSnapshotFile(t, `{"entities": [`)
		}},
		{"no entities key", func(t *testing.T) string {
			return writeSnapshotFile(t, `{"index": {"by_friendly_norm": {}, "by_entity_norm": {}}}`)
		}},
		{"no index", func(t *testing.T) string {
			return writeSnapshotFile(t, `{"entities": []}`)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := registry.Load(tc.path(t))
			if !errors.Is(err, domain.ErrRegistryUnavailable) {
				t.Errorf("got %v, want ErrRegistryUnavailable", err)
			}
		})
	}
}

func TestLookupFriendly(t *testing.T) {
	snap, err := registry.Load(writeSnapshotFile(t, validSnapshot))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	id, err := snap.LookupFriendly("Bedside-Lamp!")
	if err != nil {
		t.Fatalf("LookupFriendly error: %v", err)
	}
	if id != "light.bedside_lamp" {
		t.Errorf("got %q, want light.bedside_lamp", id)
	}

	if _, err := snap.LookupFriendly("Toaster"); !errors.Is(err, domain.ErrEntityNotFound) {
		t.Errorf("unknown name: got %v, want ErrEntityNotFound", err)
	}

	// Two entities share the "lamp" key; the lookup must refuse to pick.
	if _, err := snap.LookupFriendly("Lamp"); !errors.Is(err, domain.ErrAmbiguousMatch) {
		t.Errorf("ambiguous name: got %v, want ErrAmbiguousMatch", err)
	}
}

func TestLookupEntityID(t *testing.T) {
	snap, err := registry.Load(writeSnapshotFile(t, validSnapshot))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	id, err := snap.LookupEntityID("Light.Bedside_Lamp")
	if err != nil {
		t.Fatalf("LookupEntityID error: %v", err)
	}
	if id != "light.bedside_lamp" {
		t.Errorf("got %q, want light.bedside_lamp", id)
	}

	if _, err := snap.LookupEntityID("light.unknown"); !errors.Is(err, domain.ErrEntityNotFound) {
		t.Errorf("got %v, want ErrEntityNotFound", err)
	}
}

func TestLookupRoom(t *testing.T) {
	snap, err := registry.Load(writeSnapshotFile(t, validSnapshot))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	area, err := snap.LookupRoom("living room")
	if err != nil {
		t.Fatalf("LookupRoom error: %v", err)
	}
	if area.AreaID != "" || len(area.LightEntities) != 1 {
		t.Errorf("got %+v", area)
	}

	if _, err := snap.LookupRoom("Attic"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("got %v, want ErrRoomNotFound", err)
	}
}

func TestStoreReloadSwapsSnapshot(t *testing.T) {
	path := writeSnapshotFile(t, validSnapshot)
	store := registry.NewStore(path, testLogger())

	first, err := store.Current()
	if err != nil {
		t.Fatalf("Current error: %v", err)
	}
	if len(first.Entities) != 3 {
		t.Fatalf("entities: got %d, want 3", len(first.Entities))
	}

	smaller := `{
  "entities": [],
  "areas": [],
  "index": {"by_friendly_norm": {}, "by_entity_norm": {}}
}`
	if err := os.WriteFile(path, []byte(smaller), 0o644); err != nil {
		t.Fatalf("rewriting snapshot: %v", err)
	}
	if _, err := store.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	second, err := store.Current()
	if err != nil {
		t.Fatalf("Current error: %v", err)
	}
	if len(second.Entities) != 0 {
		t.Errorf("reload did not swap: got %d entities", len(second.Entities))
	}
	// The old pointer stays valid for utterances already in flight.
	if len(first.Entities) != 3 {
		t.Errorf("previous snapshot mutated: got %d entities", len(first.Entities))
	}
}

func TestStoreReloadKeepsLastGoodSnapshot(t *testing.T) {
	path := writeSnapshotFile(t, validSnapshot)
	store := registry.NewStore(path, testLogger())

	if _, err := store.Current(); err != nil {
		t.Fatalf("Current error: %v", err)
	}

	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("corrupting snapshot: %v", err)
	}
	if _, err := store.Reload(); !errors.Is(err, domain.ErrRegistryUnavailable) {
		t.Fatalf("Reload: got %v, want ErrRegistryUnavailable", err)
	}

	snap, err := store.Current()
	if err != nil {
		t.Fatalf("Current after failed reload: %v", err)
	}
	if len(snap.Entities) != 3 {
		t.Errorf("last good snapshot lost: got %d entities", len(snap.Entities))
	}
}
