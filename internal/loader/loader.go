package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"securerag/internal/domain"
)

// FileLoader reads PDF files page by page and plain text files split into
// pages on form feed characters.
type FileLoader struct{}

func NewFileLoader() *FileLoader { return &FileLoader{} }

// LoadPages returns the pages of the document at path in order. A missing or
// unreadable file yields domain.ErrDocumentNotFound.
func (l *FileLoader) LoadPages(path string) ([]domain.Page, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDocumentNotFound, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrDocumentNotFound, path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(path)
	default:
		return loadText(path)
	}
}

func loadText(path string) ([]domain.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDocumentNotFound, path, err)
	}
	return SplitPages(string(data)), nil
}

// SplitPages splits text on form feeds; text without one is a single page.
func SplitPages(text string) []domain.Page {
	parts := strings.Split(text, "\f")
	pages := make([]domain.Page, len(parts))
	for i, p := range parts {
		pages[i] = domain.Page{Index: i, Text: p}
	}
	return pages
}

func loadPDF(path string) (pages []domain.Page, err error) {
	// the pdf reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("%w: %s: unreadable pdf: %v", domain.ErrDocumentNotFound, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if f != nil {
		defer f.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDocumentNotFound, path, err)
	}

	n := r.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("%w: %s: no pages", domain.ErrDocumentNotFound, path)
	}
	pages = make([]domain.Page, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, domain.Page{Index: i - 1})
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: page %d: %v", domain.ErrDocumentNotFound, path, i, err)
		}
		pages = append(pages, domain.Page{Index: i - 1, Text: text})
	}
	return pages, nil
}

// IsNotFound reports whether err means the document could not be read.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrDocumentNotFound)
}
