package domain

import "context"

// Page is one page of a loaded document.
type Page struct {
	Index int
	Text  string
}

// Document is the ordered list of pages read from a single source file.
type Document struct {
	Path  string
	Pages []Page
}

// Chunk is a bounded slice of a page used as the unit of retrieval.
// Start and End are character offsets into the page text.
type Chunk struct {
	ID    string
	Text  string
	Page  int
	Start int
	End   int
}

// IndexedVector ties an embedding to the chunk it was computed from.
type IndexedVector struct {
	ChunkID   string
	Embedding []float32
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// QueryResult is the answer to one question together with the chunks it was
// generated from, most relevant first.
type QueryResult struct {
	Answer           string
	Sources          []SearchResult
	SecurityFindings []string
}

// PageLoader reads a document file into ordered page text.
type PageLoader interface {
	LoadPages(path string) ([]Page, error)
}

// Embedder converts free text into a fixed-length vector.
// EmbedBatch returns vectors in the same order as texts.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator completes a prompt with text.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
