// Package ttsapi is a JSON-over-HTTP client for the text-to-speech service.
package ttsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/phrazzld/reelgen-api/internal/config"
	"github.com/phrazzld/reelgen-api/internal/provider"
	"github.com/phrazzld/reelgen-api/internal/retry"
)

const (
	synthesizePath = "/v1/synthesize"

	// maxErrorBody caps how much of an error response is kept in messages.
	maxErrorBody = 512
)

type synthesizeRequest struct {
	Text          string `json:"text"`
	Voice         string `json:"voice"`
	AudioEncoding string `json:"audio_encoding"`
	SampleRate    int    `json:"sample_rate,omitempty"`
}

type synthesizeResponse struct {
	AudioContent    string  `json:"audio_content"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Client implements provider.SpeechSynthesizer.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client. A nil httpClient uses http.DefaultClient;
// per-attempt timeouts come from the retry policy.
func NewClient(cfg config.TTSProviderConfig, httpClient *http.Client) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("tts base url cannot be empty")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// Synthesize sends one synthesis request.
func (c *Client) Synthesize(ctx context.Context, req provider.SpeechRequest) (provider.SpeechResponse, error) {
	body, err := json.Marshal(synthesizeRequest{
		Text:          req.Text,
		Voice:         req.Voice,
		AudioEncoding: req.AudioEncoding,
		SampleRate:    req.SampleRate,
	})
	if err != nil {
		return provider.SpeechResponse{}, fmt.Errorf("encode tts request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+synthesizePath, bytes.NewReader(body))
	if err != nil {
		return provider.SpeechResponse{}, fmt.Errorf("build tts request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return provider.SpeechResponse{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.SpeechResponse{}, fmt.Errorf("read tts response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return provider.SpeechResponse{}, retry.NewStatusError(resp.StatusCode, truncate(string(data), maxErrorBody), nil)
	}

	var out synthesizeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return provider.SpeechResponse{}, fmt.Errorf("%w: decode tts response: %v", retry.ErrResponseParse, err)
	}
	return provider.SpeechResponse{
		AudioBase64:     out.AudioContent,
		DurationSeconds: out.DurationSeconds,
	}, nil
}

// truncate trims msg to at most limit bytes without splitting a rune.
func truncate(msg string, limit int) string {
	msg = strings.TrimSpace(msg)
	if len(msg) <= limit {
		return msg
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
