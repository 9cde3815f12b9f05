package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"securerag/internal/audit"
	"securerag/internal/domain"
	"securerag/internal/service"
)

type fakePipeline struct {
	ready bool
	err   error
	asked []string
}

func (f *fakePipeline) Answer(_ context.Context, q string) (*domain.QueryResult, error) {
	f.asked = append(f.asked, q)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.QueryResult{
		Answer: "Rotate every 90 days.",
		Sources: []domain.SearchResult{
			{Chunk: domain.Chunk{ID: "p0-c0", Text: "Passwords rotate every 90 days.", Page: 0, Start: 0, End: 31}, Score: 0.9},
			{Chunk: domain.Chunk{ID: "p2-c1", Text: "Contact admin@example.com.", Page: 2, Start: 800, End: 826}, Score: 0.4},
		},
		SecurityFindings: []string{"Email Address pattern detected in source chunk"},
	}, nil
}

func (f *fakePipeline) Stats() service.Stats {
	return service.Stats{Source: "policy.pdf", Chunks: 12, TopK: 4}
}

func (f *fakePipeline) Ready() bool { return f.ready }

type fakeHistory struct {
	limit int
}

func (h *fakeHistory) List(_ context.Context, limit int) ([]audit.Entry, error) {
	h.limit = limit
	return []audit.Entry{{ID: "a", Question: "q", Status: audit.StatusOK, Findings: []string{}}}, nil
}

func do(t *testing.T, h *Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)
	return rec
}

func TestAsk_Success(t *testing.T) {
	p := &fakePipeline{ready: true}
	rec := do(t, NewHandler(p, nil, nil), http.MethodPost, "/ask", `{"question":"  password rotation?  "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp AskResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "Rotate every 90 days." {
		t.Errorf("unexpected answer %q", resp.Answer)
	}
	if len(resp.Sources) != 2 || resp.Sources[0].ChunkID != "p0-c0" || resp.Sources[1].Page != 2 {
		t.Errorf("sources not in rank order: %+v", resp.Sources)
	}
	if len(resp.SecurityFindings) != 1 {
		t.Errorf("expected one finding, got %v", resp.SecurityFindings)
	}
	if len(p.asked) != 1 || p.asked[0] != "password rotation?" {
		t.Errorf("question not trimmed: %q", p.asked)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("missing CORS header, got %q", got)
	}
}

func TestAsk_BadRequests(t *testing.T) {
	p := &fakePipeline{ready: true}
	h := NewHandler(p, nil, nil)
	for name, body := range map[string]string{
		"invalid json":   `{"question":`,
		"empty question": `{"question":"   "}`,
	} {
		t.Run(name, func(t *testing.T) {
			if rec := do(t, h, http.MethodPost, "/ask", body); rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
	if len(p.asked) != 0 {
		t.Error("pipeline must not be called for bad requests")
	}
}

func TestAsk_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		op     string
	}{
		{"not initialized", domain.ErrPipelineNotInitialized, http.StatusServiceUnavailable, ""},
		{"embedding", domain.NewPipelineError("embed question", fmt.Errorf("%w: timeout", domain.ErrEmbeddingService)), http.StatusBadGateway, "embed question"},
		{"generation", domain.NewPipelineError("generate answer", fmt.Errorf("%w: 429", domain.ErrGenerationService)), http.StatusBadGateway, "generate answer"},
		{"dimension", domain.NewPipelineError("query index", domain.ErrDimensionMismatch), http.StatusInternalServerError, "query index"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, NewHandler(&fakePipeline{ready: true, err: tc.err}, nil, nil), http.MethodPost, "/ask", `{"question":"q"}`)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Op != tc.op || resp.Error == "" {
				t.Errorf("unexpected error body %+v", resp)
			}
		})
	}
}

func TestHealthAndStats(t *testing.T) {
	h := NewHandler(&fakePipeline{ready: true}, nil, nil)
	rec := do(t, h, http.MethodGet, "/health", "")
	var health HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || health.Status != "ok" || health.Chunks != 12 {
		t.Errorf("unexpected health %d %+v", rec.Code, health)
	}

	rec = do(t, h, http.MethodGet, "/stats", "")
	var stats service.Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Source != "policy.pdf" || stats.TopK != 4 {
		t.Errorf("unexpected stats %+v", stats)
	}

	notReady := NewHandler(&fakePipeline{}, nil, nil)
	if rec := do(t, notReady, http.MethodGet, "/health", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before initialization, got %d", rec.Code)
	}
}

func TestHistory(t *testing.T) {
	if rec := do(t, NewHandler(&fakePipeline{ready: true}, nil, nil), http.MethodGet, "/history", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 with auditing disabled, got %d", rec.Code)
	}

	hist := &fakeHistory{}
	h := NewHandler(&fakePipeline{ready: true}, hist, nil)
	rec := do(t, h, http.MethodGet, "/history?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if hist.limit != 5 {
		t.Errorf("expected limit 5, got %d", hist.limit)
	}
	var entries []audit.Entry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != "a" {
		t.Errorf("unexpected entries %+v", entries)
	}

	if rec := do(t, h, http.MethodGet, "/history?limit=x", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad limit, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewHandler(&fakePipeline{ready: true}, nil, nil)
	if rec := do(t, h, http.MethodGet, "/ask", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestAsk_BodyTooLarge(t *testing.T) {
	p := &fakePipeline{ready: true}
	body := `{"question":"` + strings.Repeat("a", maxAskBody) + `"}`
	rec := do(t, NewHandler(p, nil, nil), http.MethodPost, "/ask", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
	if len(p.asked) != 0 {
		t.Error("pipeline must not be called for an oversized body")
	}
}
