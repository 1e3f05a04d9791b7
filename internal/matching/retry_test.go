package matching

import (
	"context"
	"errors"
	"testing"
)

type flakyProvider struct {
	failures int
	calls    int
	err      error
}

func (f *flakyProvider) Search(ctx context.Context, query string, k int, filters map[string]string) (SearchResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return SearchResponse{}, f.err
	}
	return SearchResponse{Results: []Result{{ID: "obl-1", Score: 0.9}}, TotalCount: 1}, nil
}

func (f *flakyProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", f.err
	}
	return "ok", nil
}

func (f *flakyProvider) Embed(ctx context.Context, texts []string) (Embeddings, error) {
	f.calls++
	if f.calls <= f.failures {
		return Embeddings{}, f.err
	}
	return Embeddings{Dimensions: 1, Vectors: [][]float64{{1}}}, nil
}

func TestWithRetryRecoversFromTimeout(t *testing.T) {
	base := &flakyProvider{failures: 1, err: context.DeadlineExceeded}
	p := WithRetry(base)

	resp, err := p.Search(context.Background(), "super", 3, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected recovered result")
	}
	if base.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", base.calls)
	}
}

func TestWithRetryDoesNotRetryPermanentErrors(t *testing.T) {
	permanent := errors.New("status 400")
	base := &flakyProvider{failures: 10, err: permanent}
	p := WithRetry(base)

	if _, err := p.Chat(context.Background(), nil); !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if base.calls != 1 {
		t.Fatalf("expected single call, got %d", base.calls)
	}
}
