// Package homeassistant is the REST client for the smart-home backend.
package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hey-george/internal/domain"
)

// Client talks to the Home Assistant API with bearer-token auth. All calls
// carry the configured timeout and are not retried; the utterance pipeline
// must fail fast.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured backend URL (the sync job records it in
// the snapshot).
func (c *Client) BaseURL() string { return c.baseURL }

// State is one entity state from /api/states.
type State struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// AreaEntry is one area from the area registry.
type AreaEntry struct {
	AreaID string `json:"area_id"`
	Name   string `json:"name"`
}

// RegistryEntry is one entity from the entity registry, carrying area
// membership.
type RegistryEntry struct {
	EntityID   string `json:"entity_id"`
	AreaID     string `json:"area_id"`
	DisabledBy string `json:"disabled_by"`
}

// Execute performs a validated command as a service call. Only
// domain.Command may reach this.
func (c *Client) Execute(ctx context.Context, cmd *domain.Command) error {
	data := cmd.Target.Payload()
	for k, v := range cmd.Data {
		data[k] = v
	}
	return c.CallService(ctx, cmd.Domain, string(cmd.Action), data)
}

// CallService posts to a service endpoint keyed by domain and action.
func (c *Client) CallService(ctx context.Context, dom, service string, data map[string]any) error {
	path := fmt.Sprintf("/api/services/%s/%s", dom, service)
	return c.post(ctx, path, data)
}

// PlayMedia plays a URL on a media player (used for capture cues).
func (c *Client) PlayMedia(ctx context.Context, entityID, url string) error {
	return c.CallService(ctx, "media_player", "play_media", map[string]any{
		"entity_id":          entityID,
		"media_content_id":   url,
		"media_content_type": "music",
	})
}

// SetVolume ducks or restores a media player's volume.
func (c *Client) SetVolume(ctx context.Context, entityID string, level float64) error {
	return c.CallService(ctx, "media_player", "volume_set", map[string]any{
		"entity_id":    entityID,
		"volume_level": level,
	})
}

// GetStates retrieves all entity states.
func (c *Client) GetStates(ctx context.Context) ([]State, error) {
	var states []State
	if err := c.get(ctx, "/api/states", &states); err != nil {
		return nil, err
	}
	return states, nil
}

// GetAreas retrieves the area registry.
func (c *Client) GetAreas(ctx context.Context) ([]AreaEntry, error) {
	var areas []AreaEntry
	if err := c.get(ctx, "/api/config/area_registry/list", &areas); err != nil {
		return nil, err
	}
	return areas, nil
}

// GetEntityRegistry retrieves the entity registry.
func (c *Client) GetEntityRegistry(ctx context.Context) ([]RegistryEntry, error) {
	var entries []RegistryEntry
	if err := c.get(ctx, "/api/config/entity_registry/list", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, path string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, result any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("unauthorized: check the Home Assistant token")
	}
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("home assistant API error %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
