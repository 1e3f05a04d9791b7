package matching

import (
	"context"
	"errors"
)

// Message is a single chat turn sent to an LLM-backed provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result is one ranked candidate returned by Search. Score is normalized to
// [0,1] and feeds match/review confidence directly.
type Result struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchResponse wraps ranked results plus the total corpus hit count.
type SearchResponse struct {
	Results    []Result `json:"results"`
	TotalCount int      `json:"totalCount"`
}

// Embeddings carries dense vectors for a batch of texts.
type Embeddings struct {
	Vectors    [][]float64 `json:"embeddings"`
	Dimensions int         `json:"dimensions"`
}

// Provider scores evidence against compliance obligations and generates
// review narratives. Implementations: local (deterministic lexical scoring)
// and remote (external search/LLM service).
type Provider interface {
	Search(ctx context.Context, query string, k int, filters map[string]string) (SearchResponse, error)
	Chat(ctx context.Context, messages []Message) (string, error)
	Embed(ctx context.Context, texts []string) (Embeddings, error)
}

// ErrNotConfigured is returned by provider constructors when required settings
// are missing.
var ErrNotConfigured = errors.New("matching provider not configured")
