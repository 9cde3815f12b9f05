package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"securerag/internal/domain"
)

// axisEmbedder maps each text to a fixed vector from a lookup table.
type axisEmbedder struct {
	mu      sync.Mutex
	table   map[string][]float32
	failOn  string
	batches int
}

func (e *axisEmbedder) Name() string { return "axis" }

func (e *axisEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *axisEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches++
	e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if t == e.failOn {
			return nil, errors.New("upstream unavailable")
		}
		v, ok := e.table[t]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", t)
		}
		out[i] = v
	}
	return out, nil
}

func testChunks(texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{ID: fmt.Sprintf("p0-c%d", i), Text: t, Page: 0, Start: i * 10, End: i*10 + len(t)}
	}
	return chunks
}

func newAxisEmbedder() *axisEmbedder {
	return &axisEmbedder{table: map[string][]float32{
		"north":     {0, 1, 0},
		"east":      {1, 0, 0},
		"northeast": {1, 1, 0},
		"up":        {0, 0, 1},
		"east-dup":  {2, 0, 0},
	}}
}

func TestBuildAndQuery_RanksByCosine(t *testing.T) {
	ctx := context.Background()
	emb := newAxisEmbedder()
	ix, err := Build(ctx, emb, testChunks("north", "east", "northeast", "up"), BuildOptions{BatchSize: 1, Concurrency: 3})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ix.Len() != 4 || ix.Dimension() != 3 {
		t.Fatalf("unexpected index shape len=%d dim=%d", ix.Len(), ix.Dimension())
	}
	if emb.batches != 4 {
		t.Errorf("expected 4 batches, got %d", emb.batches)
	}

	res, err := ix.Query([]float32{1, 0.2, 0}, 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := []string{"east", "northeast", "north"}
	if len(res) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(res))
	}
	for i, w := range want {
		if res[i].Chunk.Text != w {
			t.Errorf("rank %d: expected %q, got %q", i, w, res[i].Chunk.Text)
		}
		if i > 0 && res[i].Score > res[i-1].Score {
			t.Errorf("results not sorted descending at %d", i)
		}
	}
}

func TestQuery_TiesKeepInsertionOrder(t *testing.T) {
	ix, err := Build(context.Background(), newAxisEmbedder(), testChunks("east-dup", "up", "east"), BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	res, err := ix.Query([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res[0].Chunk.ID != "p0-c0" || res[1].Chunk.ID != "p0-c2" {
		t.Errorf("expected tie broken by insertion order, got %s then %s", res[0].Chunk.ID, res[1].Chunk.ID)
	}
}

func TestQuery_ClampsK(t *testing.T) {
	ix, err := Build(context.Background(), newAxisEmbedder(), testChunks("north", "east"), BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	res, err := ix.Query([]float32{0, 1, 0}, 4)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res) != 2 {
		t.Errorf("expected 2 results, got %d", len(res))
	}
	res, _ = ix.Query([]float32{0, 1, 0}, 0)
	if len(res) != 0 {
		t.Errorf("expected no results for k=0, got %d", len(res))
	}
}

func TestQuery_EmptyIndex(t *testing.T) {
	ix, err := Build(context.Background(), newAxisEmbedder(), nil, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	res, err := ix.Query([]float32{1, 2, 3}, 4)
	if err != nil {
		t.Fatalf("Query on empty index: %v", err)
	}
	if res == nil || len(res) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", res)
	}
}

func TestQuery_DimensionMismatch(t *testing.T) {
	ix, _ := Build(context.Background(), newAxisEmbedder(), testChunks("north"), BuildOptions{})
	if _, err := ix.Query([]float32{1, 0}, 1); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestBuild_FailureReturnsNoIndex(t *testing.T) {
	emb := newAxisEmbedder()
	emb.failOn = "up"
	ix, err := Build(context.Background(), emb, testChunks("north", "east", "up", "northeast"), BuildOptions{BatchSize: 2})
	if !errors.Is(err, domain.ErrEmbeddingService) {
		t.Fatalf("expected ErrEmbeddingService, got %v", err)
	}
	if ix != nil {
		t.Errorf("expected nil index on failure")
	}
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{1, 0}, 1},
		{[]float32{1, 0}, []float32{0, 1}, 0},
		{[]float32{1, 0}, []float32{-1, 0}, -1},
		{[]float32{0, 0}, []float32{1, 0}, 0},
		{[]float32{1}, []float32{1, 0}, 0},
	}
	for _, tc := range cases {
		if got := CosineSimilarity(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("CosineSimilarity(%v, %v) = %f, want %f", tc.a, tc.b, got, tc.want)
		}
	}
}
