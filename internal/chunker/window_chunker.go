package chunker

import (
	"fmt"

	"securerag/internal/domain"
)

// WindowChunker splits each page into fixed-size character windows that
// overlap by a fixed number of characters. Windows never cross pages.
type WindowChunker struct {
	size    int
	overlap int
}

func NewWindowChunker(size, overlap int) (*WindowChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", domain.ErrInvalidConfig, size, overlap)
	}
	return &WindowChunker{size: size, overlap: overlap}, nil
}

// Split is a shorthand for NewWindowChunker followed by Chunk.
func Split(document domain.Document, size, overlap int) ([]domain.Chunk, error) {
	c, err := NewWindowChunker(size, overlap)
	if err != nil {
		return nil, err
	}
	return c.Chunk(document), nil
}

func (c *WindowChunker) Chunk(document domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	for _, page := range document.Pages {
		chunks = append(chunks, c.chunkPage(page)...)
	}
	return chunks
}

func (c *WindowChunker) chunkPage(page domain.Page) []domain.Chunk {
	runes := []rune(page.Text)
	if len(runes) == 0 {
		return nil
	}
	step := c.size - c.overlap
	var chunks []domain.Chunk
	for start, idx := 0, 0; ; start, idx = start+step, idx+1 {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			ID:    fmt.Sprintf("p%d-c%d", page.Index, idx),
			Text:  string(runes[start:end]),
			Page:  page.Index,
			Start: start,
			End:   end,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
