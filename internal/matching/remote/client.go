// Package remote implements the matching provider contract against an
// external search/LLM service speaking a small JSON-over-HTTP protocol.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"complai-backend/internal/matching"
)

// Client calls a remote matching service.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// New constructs a remote matching client. The endpoint is required; the API
// key is read from MATCH_API_KEY.
func New(endpoint, model string) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("MATCH_ENDPOINT is required: %w", matching.ErrNotConfigured)
	}

	timeout := 60 * time.Second
	if raw := strings.TrimSpace(os.Getenv("MATCH_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}

	return &Client{
		endpoint: endpoint,
		apiKey:   strings.TrimSpace(os.Getenv("MATCH_API_KEY")),
		model:    strings.TrimSpace(model),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type searchRequest struct {
	Query   string            `json:"query"`
	K       int               `json:"k"`
	Filters map[string]string `json:"filters,omitempty"`
}

type chatRequest struct {
	Model    string             `json:"model,omitempty"`
	Messages []matching.Message `json:"messages"`
}

type chatResponse struct {
	Text string `json:"text"`
}

type embedRequest struct {
	Model string   `json:"model,omitempty"`
	Texts []string `json:"texts"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Search queries the remote index.
func (c *Client) Search(ctx context.Context, query string, k int, filters map[string]string) (matching.SearchResponse, error) {
	var resp matching.SearchResponse
	err := c.post(ctx, "/search", searchRequest{Query: query, K: k, Filters: filters}, &resp)
	if err != nil {
		return matching.SearchResponse{}, err
	}
	for i := range resp.Results {
		resp.Results[i].Score = clamp01(resp.Results[i].Score)
	}
	return resp, nil
}

// Chat sends a message transcript and returns the generated text.
func (c *Client) Chat(ctx context.Context, messages []matching.Message) (string, error) {
	var resp chatResponse
	if err := c.post(ctx, "/chat", chatRequest{Model: c.model, Messages: messages}, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Embed returns embeddings for the given texts.
func (c *Client) Embed(ctx context.Context, texts []string) (matching.Embeddings, error) {
	var resp matching.Embeddings
	if err := c.post(ctx, "/embed", embedRequest{Model: c.model, Texts: texts}, &resp); err != nil {
		return matching.Embeddings{}, err
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("match provider %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("match provider %s: read body: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error.Message != "" {
			return fmt.Errorf("match provider %s: status %d: %s", path, resp.StatusCode, eb.Error.Message)
		}
		return fmt.Errorf("match provider %s: status %d", path, resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("match provider %s: decode response: %w", path, err)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var _ matching.Provider = (*Client)(nil)
