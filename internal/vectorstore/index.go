package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"securerag/internal/domain"
)

// Index is an in-memory exact nearest-neighbour index over chunk embeddings
// using brute-force cosine similarity. It is read-only once built or loaded,
// so Query is safe for concurrent use.
type Index struct {
	model     string
	dimension int
	chunks    []domain.Chunk
	vectors   [][]float32
}

// BuildOptions controls how chunks are sent to the embedding service.
type BuildOptions struct {
	BatchSize   int
	Concurrency int
}

const (
	defaultBatchSize   = 64
	defaultConcurrency = 4
)

// Build embeds every chunk and returns the finished index. Either every chunk
// gets a vector or Build returns an error and no index.
func Build(ctx context.Context, emb domain.Embedder, chunks []domain.Chunk, opts BuildOptions) (*Index, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}

	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for start := 0; start < len(chunks); start += opts.BatchSize {
		start := start
		end := start + opts.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, ch := range chunks[start:end] {
				texts = append(texts, ch.Text)
			}
			vecs, err := emb.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("%w: chunks %d-%d: %w", domain.ErrEmbeddingService, start, end-1, err)
			}
			if len(vecs) != len(texts) {
				return fmt.Errorf("%w: chunks %d-%d: expected %d vectors, got %d", domain.ErrEmbeddingService, start, end-1, len(texts), len(vecs))
			}
			// each batch owns a disjoint range of the slice
			copy(vectors[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dimension := 0
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty vector for chunk %s", domain.ErrEmbeddingService, chunks[i].ID)
		}
		if dimension == 0 {
			dimension = len(v)
		}
		if len(v) != dimension {
			return nil, fmt.Errorf("%w: chunk %s has %d dimensions, expected %d", domain.ErrEmbeddingService, chunks[i].ID, len(v), dimension)
		}
	}

	owned := make([]domain.Chunk, len(chunks))
	copy(owned, chunks)
	return &Index{
		model:     emb.Name(),
		dimension: dimension,
		chunks:    owned,
		vectors:   vectors,
	}, nil
}

// Query returns up to k chunks ordered by descending cosine similarity to
// vector. Equal scores keep insertion order. An empty index yields no results.
func (ix *Index) Query(vector []float32, k int) ([]domain.SearchResult, error) {
	if k <= 0 || len(ix.vectors) == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != ix.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrDimensionMismatch, len(vector), ix.dimension)
	}
	scores := make([]float64, len(ix.vectors))
	for i := range ix.vectors {
		scores[i] = CosineSimilarity(vector, ix.vectors[i])
	}
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if k > len(idxs) {
		k = len(idxs)
	}
	results := make([]domain.SearchResult, 0, k)
	for _, j := range idxs[:k] {
		results = append(results, domain.SearchResult{Chunk: ix.chunks[j], Score: scores[j]})
	}
	return results, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

// Dimension returns the embedding dimension, or 0 for an empty index.
func (ix *Index) Dimension() int { return ix.dimension }

// Model returns the name of the embedder the index was built with.
func (ix *Index) Model() string { return ix.model }

// Vectors returns one IndexedVector per chunk in insertion order.
func (ix *Index) Vectors() []domain.IndexedVector {
	out := make([]domain.IndexedVector, len(ix.chunks))
	for i := range ix.chunks {
		out[i] = domain.IndexedVector{ChunkID: ix.chunks[i].ID, Embedding: ix.vectors[i]}
	}
	return out
}
