package registrysync_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hey-george/internal/infra/homeassistant"
	"hey-george/internal/registry"
	"hey-george/internal/registrysync"
)

type fakeBackend struct {
	states     []homeassistant.State
	areas      []homeassistant.AreaEntry
	entries    []homeassistant.RegistryEntry
	statesErr  error
	areasErr   error
	entriesErr error
}

func (f *fakeBackend) BaseURL() string { return "http://ha.local:8123" }

func (f *fakeBackend) GetStates(context.Context) ([]homeassistant.State, error) {
	return f.states, f.statesErr
}

func (f *fakeBackend) GetAreas(context.Context) ([]homeassistant.AreaEntry, error) {
	return f.areas, f.areasErr
}

func (f *fakeBackend) GetEntityRegistry(context.Context) ([]homeassistant.RegistryEntry, error) {
	return f.entries, f.entriesErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fullBackend() *fakeBackend {
	return &fakeBackend{
		states: []homeassistant.State{
			{EntityID: "light.bedside_lamp", State: "on", Attributes: map[string]any{
				"friendly_name":         "Bedside Lamp",
				"supported_color_modes": []any{"color_temp", "brightness"},
			}},
			{EntityID: "light.desk_lamp", State: "off", Attributes: map[string]any{
				"friendly_name": "Desk Lamp",
				"brightness":    nil,
			}},
			{EntityID: "switch.fan", State: "off", Attributes: map[string]any{
				"friendly_name": "Fan",
				"device_class":  "switch",
			}},
			{EntityID: "switch.no_name", State: "off", Attributes: map[string]any{}},
			{EntityID: "sensor.temperature", State: "21.5", Attributes: map[string]any{
				"friendly_name": "Temperature",
			}},
			{EntityID: "media_player.kitchen", State: "idle", Attributes: map[string]any{
				"friendly_name": "Kitchen Speaker",
			}},
		},
		areas: []homeassistant.AreaEntry{
			{AreaID: "bedroom", Name: "Bedroom"},
			{AreaID: "office", Name: "Office"},
		},
		entries: []homeassistant.RegistryEntry{
			{EntityID: "light.bedside_lamp", AreaID: "bedroom"},
			{EntityID: "light.desk_lamp", AreaID: "office", DisabledBy: "user"},
			{EntityID: "switch.fan", AreaID: "bedroom"},
			{EntityID: "sensor.temperature", AreaID: "bedroom"},
		},
	}
}

func TestBuildFiltersControllableDomains(t *testing.T) {
	snap, err := registrysync.NewSyncer(fullBackend(), testLogger()).Build(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, e := range snap.Entities {
		ids = append(ids, e.EntityID)
	}
	assert.Equal(t, []string{"light.bedside_lamp", "light.desk_lamp", "switch.fan", "switch.no_name"}, ids)
	assert.Equal(t, registry.Counts{Lights: 2, Switches: 2, Total: 4}, snap.Counts)
	assert.Equal(t, "http://ha.local:8123", snap.HAURL)
	assert.Greater(t, snap.GeneratedAt, float64(0))
}

func TestBuildNormalizesNames(t *testing.T) {
	snap, err := registrysync.NewSyncer(fullBackend(), testLogger()).Build(context.Background())
	require.NoError(t, err)

	bedside := snap.Entities[0]
	assert.Equal(t, "Bedside Lamp", bedside.FriendlyName)
	assert.Equal(t, "bedside lamp", bedside.FriendlyNorm)
	assert.Equal(t, "light bedside lamp", bedside.EntityNorm)

	// No friendly_name attribute falls back to the entity id.
	noName := snap.Entities[3]
	assert.Equal(t, "switch.no_name", noName.FriendlyName)
	assert.Equal(t, "switch no name", noName.FriendlyNorm)
}

func TestBuildColorModes(t *testing.T) {
	snap, err := registrysync.NewSyncer(fullBackend(), testLogger()).Build(context.Background())
	require.NoError(t, err)

	// color_temp is renamed to the kelvin attribute key.
	assert.Equal(t, []string{"color_temp_kelvin", "brightness"}, snap.Entities[0].SupportedColorModes)

	// A brightness attribute implies the brightness mode.
	assert.Equal(t, []string{"brightness"}, snap.Entities[1].SupportedColorModes)
}

func TestBuildAreas(t *testing.T) {
	snap, err := registrysync.NewSyncer(fullBackend(), testLogger()).Build(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Areas, 2)

	bedroom := snap.Areas[0]
	assert.Equal(t, "Bedroom", bedroom.Name)
	assert.Equal(t, "bedroom", bedroom.AreaID)
	// The fan is a switch and the sensor is not controllable; only the
	// lamp counts as a room light.
	assert.Equal(t, []string{"light.bedside_lamp"}, bedroom.LightEntities)

	// The office lamp is disabled in the entity registry.
	assert.Empty(t, snap.Areas[1].LightEntities)
}

func TestBuildIndexPreservesCollisions(t *testing.T) {
	backend := &fakeBackend{
		states: []homeassistant.State{
			{EntityID: "light.lamp_one", Attributes: map[string]any{"friendly_name": "Lamp"}},
			{EntityID: "light.lamp_two", Attributes: map[string]any{"friendly_name": "Lamp"}},
		},
	}
	snap, err := registrysync.NewSyncer(backend, testLogger()).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"light.lamp_one", "light.lamp_two"}, snap.Index.ByFriendlyNorm["lamp"])
	assert.Equal(t, "light.lamp_one", snap.Index.ByEntityNorm["light lamp one"])
}

func TestBuildStatesErrorIsFatal(t *testing.T) {
	backend := fullBackend()
	backend.statesErr = errors.New("connection refused")

	_, err := registrysync.NewSyncer(backend, testLogger()).Build(context.Background())
	assert.Error(t, err)
}

func TestBuildRegistryErrorsDegradeToNoRooms(t *testing.T) {
	backend := fullBackend()
	backend.areasErr = errors.New("registry endpoint disabled")

	snap, err := registrysync.NewSyncer(backend, testLogger()).Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Areas)
	assert.Equal(t, 4, snap.Counts.Total, "entities survive without rooms")
}

func TestWriteRoundTripsThroughLoad(t *testing.T) {
	snap, err := registrysync.NewSyncer(fullBackend(), testLogger()).Build(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	require.NoError(t, registrysync.Write(path, snap))

	loaded, err := registry.Load(path)
	require.NoError(t, err)
	assert.Equal(t, snap.Counts, loaded.Counts)
	assert.Len(t, loaded.Entities, len(snap.Entities))

	id, err := loaded.LookupFriendly("Bedside Lamp")
	require.NoError(t, err)
	assert.Equal(t, "light.bedside_lamp", id)

	// No stray temp files left next to the snapshot.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
