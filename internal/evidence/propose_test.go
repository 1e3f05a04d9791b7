package evidence

import (
	"context"
	"errors"
	"testing"

	"complai-backend/internal/matching"
)

type stubProvider struct {
	lastQuery string
	results   []matching.Result
	err       error
}

func (s *stubProvider) Search(ctx context.Context, query string, k int, filters map[string]string) (matching.SearchResponse, error) {
	s.lastQuery = query
	if s.err != nil {
		return matching.SearchResponse{}, s.err
	}
	return matching.SearchResponse{Results: s.results, TotalCount: len(s.results)}, nil
}

func (s *stubProvider) Chat(ctx context.Context, messages []matching.Message) (string, error) {
	return "", nil
}

func (s *stubProvider) Embed(ctx context.Context, texts []string) (matching.Embeddings, error) {
	return matching.Embeddings{}, nil
}

func TestProposeMatchesAppendsProviderResults(t *testing.T) {
	provider := &stubProvider{results: []matching.Result{
		{ID: "obl-sg-quarterly", Content: "Pay SG contributions quarterly", Score: 0.88, Metadata: map[string]string{"kind": "obligation"}},
		{ID: "ctl-payroll-recon", Content: "Monthly payroll reconciliation", Score: 0.61, Metadata: map[string]string{"kind": "control"}},
	}}
	svc := newTestService()
	svc.Provider = provider

	a := mustAdd(t, svc, "org-1")
	proposed, err := svc.ProposeMatches(context.Background(), "org-1", a.ID)
	if err != nil {
		t.Fatalf("ProposeMatches: %v", err)
	}
	if len(proposed) != 2 {
		t.Fatalf("expected 2 proposals, got %d", len(proposed))
	}
	if proposed[0].Kind != KindObligation || proposed[0].TargetID != "obl-sg-quarterly" {
		t.Fatalf("unexpected first proposal %+v", proposed[0])
	}
	if proposed[1].Kind != KindControl {
		t.Fatalf("unexpected kind %s", proposed[1].Kind)
	}
	if provider.lastQuery == "" {
		t.Fatalf("expected a non-empty query")
	}

	stored, err := svc.Get(context.Background(), "org-1", a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(stored.Matches) != 2 {
		t.Fatalf("expected proposals persisted, got %d matches", len(stored.Matches))
	}
	if stored.Status != StatusPending {
		t.Fatalf("proposals must not change status, got %s", stored.Status)
	}
}

func TestProposeMatchesFallsBackToFileNameQuery(t *testing.T) {
	provider := &stubProvider{}
	svc := newTestService()
	svc.Provider = provider

	a, err := svc.Add(context.Background(), "org-1", CreateInput{FileName: "super-remittance.pdf", Category: "superannuation"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, err := svc.ProposeMatches(context.Background(), "org-1", a.ID); err != nil {
		t.Fatalf("ProposeMatches: %v", err)
	}
	if provider.lastQuery != "super-remittance.pdf superannuation" {
		t.Fatalf("unexpected query %q", provider.lastQuery)
	}
}

func TestProposeMatchesWrapsProviderError(t *testing.T) {
	upstream := errors.New("status 502")
	svc := newTestService()
	svc.Provider = &stubProvider{err: upstream}

	a := mustAdd(t, svc, "org-1")
	if _, err := svc.ProposeMatches(context.Background(), "org-1", a.ID); !errors.Is(err, upstream) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestProposeMatchesWithoutProvider(t *testing.T) {
	svc := newTestService()
	a := mustAdd(t, svc, "org-1")

	if _, err := svc.ProposeMatches(context.Background(), "org-1", a.ID); !errors.Is(err, matching.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
