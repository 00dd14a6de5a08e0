// Package llm is the chat-completions transport for the intent resolver.
package llm

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

// Client calls an OpenAI-compatible chat-completions endpoint with
// deterministic decoding and a bounded token budget. No retries: a
// transport failure fails the utterance.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	maxTokens  int
	httpClient *http.Client
}

func NewClient(endpoint, model, apiKey string, maxTokens int, timeout time.Duration) *Client {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &Client{
		endpoint:   endpoint,
		model:      model,
		apiKey:     apiKey,
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []message `json:"messages"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one prompt and returns the raw model output. A response
// with no choices or empty content is a protocol error, never a silent
// "no action".
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := request{
		Model:       c.model,
		Temperature: 0,
		MaxTokens:   c.maxTokens,
		Messages:    []message{{Role: "user", Content: prompt}},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("llm API error %d: %s", resp.StatusCode, string(respBody))
	}

	var result response
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", domain.ErrLLMProtocol)
	}
	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: first choice has empty content", domain.ErrLLMProtocol)
	}
	return content, nil
}
