// Package local implements a deterministic matching provider backed by a
// TF-IDF index over a small embedded obligations corpus. It stands in for a
// real classifier during development and tests; scores are cosine similarities
// normalized to [0,1].
package local

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"

	"complai-backend/internal/matching"
)

//go:embed corpus.json
var corpusJSON []byte

const embedDimensions = 64

type corpusEntry struct {
	ID       string            `json:"id"`
	Kind     string            `json:"kind"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata"`
}

type sparseVec = map[int]float64

// Provider is the local TF-IDF matching provider.
type Provider struct {
	entries []corpusEntry
	vocab   map[string]int
	idf     []float64
	docs    []sparseVec
}

// New builds the provider from the embedded corpus.
func New() (*Provider, error) {
	var entries []corpusEntry
	if err := json.Unmarshal(corpusJSON, &entries); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	return newFromEntries(entries), nil
}

func newFromEntries(entries []corpusEntry) *Provider {
	p := &Provider{
		entries: entries,
		vocab:   make(map[string]int),
	}
	if len(entries) == 0 {
		return p
	}

	for _, e := range entries {
		for _, tok := range tokenize(e.Title + " " + e.Body) {
			if _, ok := p.vocab[tok]; !ok {
				p.vocab[tok] = len(p.vocab)
			}
		}
	}

	df := make([]int, len(p.vocab))
	p.docs = make([]sparseVec, len(entries))
	n := float64(len(entries))

	for i, e := range entries {
		tf := make(map[int]int)
		for _, tok := range tokenize(e.Title + " " + e.Body) {
			if idx, ok := p.vocab[tok]; ok {
				tf[idx]++
			}
		}
		vec := make(sparseVec, len(tf))
		for idx, count := range tf {
			vec[idx] = float64(count)
			df[idx]++
		}
		p.docs[i] = vec
	}

	p.idf = make([]float64, len(p.vocab))
	for i, d := range df {
		if d > 0 {
			p.idf[i] = math.Log(n/float64(d)) + 1.0
		}
	}

	for _, vec := range p.docs {
		for idx := range vec {
			vec[idx] *= p.idf[idx]
		}
	}

	return p
}

// Search ranks corpus entries against the query. Filters match on entry kind
// ("kind") or any metadata key; all provided filters must match.
func (p *Provider) Search(ctx context.Context, query string, k int, filters map[string]string) (matching.SearchResponse, error) {
	if err := ctx.Err(); err != nil {
		return matching.SearchResponse{}, err
	}
	if k <= 0 || len(p.entries) == 0 {
		return matching.SearchResponse{Results: []matching.Result{}}, nil
	}

	qvec := p.queryVec(query)
	if len(qvec) == 0 {
		return matching.SearchResponse{Results: []matching.Result{}}, nil
	}

	type scored struct {
		index int
		score float64
	}
	var results []scored
	for i := range p.entries {
		if !matchesFilters(p.entries[i], filters) {
			continue
		}
		sim := cosineSim(qvec, p.docs[i])
		if sim > 0 {
			results = append(results, scored{i, sim})
		}
	}
	sort.Slice(results, func(a, b int) bool {
		return results[a].score > results[b].score
	})

	total := len(results)
	if len(results) > k {
		results = results[:k]
	}

	out := make([]matching.Result, 0, len(results))
	for _, r := range results {
		e := p.entries[r.index]
		meta := make(map[string]string, len(e.Metadata)+1)
		for mk, mv := range e.Metadata {
			meta[mk] = mv
		}
		meta["kind"] = e.Kind
		out = append(out, matching.Result{
			ID:       e.ID,
			Content:  snippet(e),
			Score:    clamp01(r.score),
			Metadata: meta,
		})
	}
	return matching.SearchResponse{Results: out, TotalCount: total}, nil
}

// Chat produces a canned narrative from the last user message. Deterministic,
// good enough for dev and tests.
func (p *Provider) Chat(ctx context.Context, messages []matching.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	subject := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			subject = strings.TrimSpace(messages[i].Content)
			break
		}
	}
	if subject == "" {
		return "No candidate obligations identified.", nil
	}
	resp, err := p.Search(ctx, subject, 1, nil)
	if err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "No candidate obligations identified.", nil
	}
	top := resp.Results[0]
	return fmt.Sprintf("Closest obligation is %s (score %.2f): %s", top.ID, top.Score, top.Content), nil
}

// Embed returns deterministic hashed bag-of-words vectors. Not a semantic
// embedding; stable across runs so tests can assert on it.
func (p *Provider) Embed(ctx context.Context, texts []string) (matching.Embeddings, error) {
	if err := ctx.Err(); err != nil {
		return matching.Embeddings{}, err
	}
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, embedDimensions)
		for _, tok := range tokenize(text) {
			h := fnv.New32a()
			h.Write([]byte(tok))
			vec[int(h.Sum32())%embedDimensions]++
		}
		var norm float64
		for _, v := range vec {
			norm += v * v
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range vec {
				vec[j] /= norm
			}
		}
		vectors[i] = vec
	}
	return matching.Embeddings{Vectors: vectors, Dimensions: embedDimensions}, nil
}

func (p *Provider) queryVec(query string) sparseVec {
	tf := make(map[int]int)
	for _, tok := range tokenize(query) {
		if i, ok := p.vocab[tok]; ok {
			tf[i]++
		}
	}
	vec := make(sparseVec, len(tf))
	for i, count := range tf {
		vec[i] = float64(count) * p.idf[i]
	}
	return vec
}

func matchesFilters(e corpusEntry, filters map[string]string) bool {
	for k, v := range filters {
		if v == "" {
			continue
		}
		if k == "kind" {
			if e.Kind != v {
				return false
			}
			continue
		}
		if e.Metadata[k] != v {
			return false
		}
	}
	return true
}

func snippet(e corpusEntry) string {
	body := e.Body
	if len(body) > 160 {
		body = body[:160]
	}
	return e.Title + ": " + body
}

func tokenize(s string) []string {
	s = strings.ToLower(s)
	var tokens []string
	var cur strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

func cosineSim(a, b sparseVec) float64 {
	var dot, normA, normB float64
	for i, va := range a {
		if vb, ok := b[i]; ok {
			dot += va * vb
		}
		normA += va * va
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
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

var _ matching.Provider = (*Provider)(nil)
