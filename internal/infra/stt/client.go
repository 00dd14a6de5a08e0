// Package stt is the HTTP transport for one STT model tier.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"hey-george/internal/stt"
)

// Client posts WAV clips to an STT endpoint. One client per tier; the
// engine owns the escalation policy. Transport failures are not retried;
// they fail the utterance outright.
type Client struct {
	endpoint     string
	model        string
	supportsBias bool
	httpClient   *http.Client
}

// NewClient builds a tier client. supportsBias is resolved once from
// configuration; a tier without lexical biasing simply never sees the
// bias/prompt parameters.
func NewClient(endpoint, model string, timeout time.Duration, supportsBias bool) *Client {
	return &Client{
		endpoint:     endpoint,
		model:        model,
		supportsBias: supportsBias,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type transcriptionResponse struct {
	Text                string  `json:"text"`
	Language            string  `json:"language"`
	LanguageProbability float64 `json:"language_probability"`
	Duration            float64 `json:"duration"`
	Model               string  `json:"model"`
}

func (c *Client) Transcribe(ctx context.Context, wavData []byte, bias []string, prompt string) (stt.Result, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return stt.Result{}, fmt.Errorf("creating form file: %w", err)
	}
	if _, err = part.Write(wavData); err != nil {
		return stt.Result{}, fmt.Errorf("writing audio: %w", err)
	}
	if err = writer.Close(); err != nil {
		return stt.Result{}, fmt.Errorf("closing writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(bias, prompt), body)
	if err != nil {
		return stt.Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return stt.Result{}, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return stt.Result{}, fmt.Errorf("stt API error %d: %s", resp.StatusCode, string(respBody))
	}

	var result transcriptionResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return stt.Result{}, fmt.Errorf("decoding response: %w", err)
	}

	return stt.Result{
		Text:                result.Text,
		Language:            result.Language,
		LanguageProbability: result.LanguageProbability,
		Duration:            result.Duration,
		Model:               result.Model,
	}, nil
}

func (c *Client) requestURL(bias []string, prompt string) string {
	params := url.Values{}
	if c.model != "" {
		params.Set("model", c.model)
	}
	if c.supportsBias {
		for _, w := range bias {
			params.Add("bias", w)
		}
		if prompt != "" {
			params.Set("prompt", prompt)
		}
	}
	if len(params) == 0 {
		return c.endpoint
	}
	return c.endpoint + "?" + params.Encode()
}
