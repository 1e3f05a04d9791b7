package local

import (
	"context"
	"testing"

	"complai-backend/internal/matching"
)

func TestSearchRanksSuperQueryFirst(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := p.Search(context.Background(), "superannuation guarantee quarterly contributions", 3, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Fatalf("expected results for superannuation query")
	}
	if resp.Results[0].ID != "obl-sg-quarterly" {
		t.Fatalf("expected obl-sg-quarterly first, got %s", resp.Results[0].ID)
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].Score > resp.Results[i-1].Score {
			t.Fatalf("results not sorted by score at %d", i)
		}
	}
	for _, r := range resp.Results {
		if r.Score < 0 || r.Score > 1 {
			t.Fatalf("score out of range: %f", r.Score)
		}
	}
}

func TestSearchKindFilter(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := p.Search(context.Background(), "superannuation contributions", 10, map[string]string{"kind": "control"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Fatalf("expected control results")
	}
	for _, r := range resp.Results {
		if r.Metadata["kind"] != "control" {
			t.Fatalf("expected only controls, got %s for %s", r.Metadata["kind"], r.ID)
		}
	}
}

func TestSearchNoVocabularyOverlap(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := p.Search(context.Background(), "zzzz qqqq", 5, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Fatalf("expected no results, got %d", len(resp.Results))
	}
}

func TestSearchZeroK(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := p.Search(context.Background(), "payslip", 0, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Fatalf("expected no results for k=0")
	}
}

func TestChatNamesTopObligation(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out, err := p.Chat(context.Background(), []matching.Message{
		{Role: "system", Content: "You describe obligations."},
		{Role: "user", Content: "payslip issued within one working day"},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out == "" {
		t.Fatalf("expected narrative text")
	}
}

func TestEmbedDeterministic(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a, err := p.Embed(context.Background(), []string{"superannuation payment"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := p.Embed(context.Background(), []string{"superannuation payment"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if a.Dimensions != embedDimensions || len(a.Vectors) != 1 {
		t.Fatalf("unexpected shape: dims=%d vectors=%d", a.Dimensions, len(a.Vectors))
	}
	for i := range a.Vectors[0] {
		if a.Vectors[0][i] != b.Vectors[0][i] {
			t.Fatalf("embedding not deterministic at %d", i)
		}
	}
}
