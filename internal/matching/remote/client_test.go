package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"complai-backend/internal/matching"
)

func TestSearchDecodesAndClampsScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req struct {
			Query string `json:"query"`
			K     int    `json:"k"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Query != "superannuation" || req.K != 5 {
			t.Errorf("unexpected request %+v", req)
		}
		json.NewEncoder(w).Encode(matching.SearchResponse{
			Results: []matching.Result{
				{ID: "obl-1", Content: "SG contributions", Score: 1.4},
				{ID: "obl-2", Content: "STP reporting", Score: 0.6},
			},
			TotalCount: 2,
		})
	}))
	defer srv.Close()

	t.Setenv("MATCH_API_KEY", "test-key")
	client, err := New(srv.URL, "matcher-v1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := client.Search(context.Background(), "superannuation", 5, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 2 || resp.TotalCount != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Results[0].Score != 1.0 {
		t.Fatalf("expected clamped score 1.0, got %f", resp.Results[0].Score)
	}
}

func TestChatSurfacesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":{"message":"model unavailable","type":"upstream"}}`))
	}))
	defer srv.Close()

	t.Setenv("MATCH_API_KEY", "")
	client, err := New(srv.URL, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Chat(context.Background(), []matching.Message{{Role: "user", Content: "hello"}})
	if err == nil {
		t.Fatalf("expected error from 502 response")
	}
	if got := err.Error(); !strings.Contains(got, "model unavailable") {
		t.Fatalf("expected error body message, got %q", got)
	}
}

func TestEmbedRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(matching.Embeddings{
			Vectors:    [][]float64{{0.1, 0.2}},
			Dimensions: 2,
		})
	}))
	defer srv.Close()

	t.Setenv("MATCH_API_KEY", "")
	client, err := New(srv.URL, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	emb, err := client.Embed(context.Background(), []string{"payslip"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if emb.Dimensions != 2 || len(emb.Vectors) != 1 {
		t.Fatalf("unexpected embeddings %+v", emb)
	}
}

func TestNewRequiresEndpoint(t *testing.T) {
	if _, err := New("", ""); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
}
