package vectorstore

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"securerag/internal/domain"
)

const (
	// IndexFile is the file name of a persisted index inside its directory.
	IndexFile = "index.gob"

	schemaVersion = 1
	metricCosine  = "cosine"
)

type persistedIndex struct {
	SchemaVersion int
	Metric        string
	Model         string
	Dimension     int
	Chunks        []domain.Chunk
	Vectors       []domain.IndexedVector
}

// Exists reports whether dir holds a persisted index file.
func Exists(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, IndexFile))
	return err == nil && info.Mode().IsRegular()
}

// Persist writes the index to dir, replacing any previous index atomically:
// the data goes to a temp file in the same directory which is then renamed
// over the target, so readers see either the old or the new file.
func (ix *Index) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, IndexFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	data := persistedIndex{
		SchemaVersion: schemaVersion,
		Metric:        metricCosine,
		Model:         ix.model,
		Dimension:     ix.dimension,
		Chunks:        ix.chunks,
		Vectors:       ix.Vectors(),
	}
	if err := gob.NewEncoder(tmp).Encode(&data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("encode index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, IndexFile)); err != nil {
		cleanup()
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// Load reads an index previously written by Persist. It returns
// ErrIndexNotFound when there is no index in dir and ErrCorruptIndex when the
// file fails any integrity check.
func Load(dir string) (*Index, error) {
	path := filepath.Join(dir, IndexFile)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, path)
		}
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer file.Close()

	var data persistedIndex
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrCorruptIndex, path, err)
	}
	if err := validate(&data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptIndex, path, err)
	}

	vectors := make([][]float32, len(data.Vectors))
	for i := range data.Vectors {
		vectors[i] = data.Vectors[i].Embedding
	}
	return &Index{
		model:     data.Model,
		dimension: data.Dimension,
		chunks:    data.Chunks,
		vectors:   vectors,
	}, nil
}

func validate(data *persistedIndex) error {
	if data.SchemaVersion != schemaVersion {
		return fmt.Errorf("unsupported schema version %d", data.SchemaVersion)
	}
	if data.Metric != metricCosine {
		return fmt.Errorf("unsupported metric %q", data.Metric)
	}
	if len(data.Vectors) != len(data.Chunks) {
		return fmt.Errorf("%d vectors for %d chunks", len(data.Vectors), len(data.Chunks))
	}
	if len(data.Chunks) > 0 && data.Dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", data.Dimension)
	}
	for i, v := range data.Vectors {
		if v.ChunkID != data.Chunks[i].ID {
			return fmt.Errorf("vector %d belongs to chunk %q, expected %q", i, v.ChunkID, data.Chunks[i].ID)
		}
		if len(v.Embedding) != data.Dimension {
			return fmt.Errorf("vector %d has %d dimensions, expected %d", i, len(v.Embedding), data.Dimension)
		}
	}
	return nil
}
