package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"securerag/internal/audit"
	"securerag/internal/chunker"
	"securerag/internal/domain"
	"securerag/internal/prompt"
	"securerag/internal/scanner"
	"securerag/internal/vectorstore"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultTopK         = 4
)

// Options tunes chunking, retrieval and index reuse.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	ScanEnabled  bool
	ForceRebuild bool
	IndexPath    string
	BatchSize    int
	Concurrency  int
}

// DefaultOptions returns chunk size 1000, overlap 200, top-k 4 and scanning off.
func DefaultOptions() Options {
	return Options{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		TopK:         DefaultTopK,
		IndexPath:    "vectorstore",
	}
}

// Recorder receives one audit entry per question. audit.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Deps are the external services the pipeline talks to. Audit and Logger are
// optional.
type Deps struct {
	Loader    domain.PageLoader
	Embedder  domain.Embedder
	Generator domain.Generator
	Audit     Recorder
	Logger    *zap.Logger
}

// Stats describes a ready pipeline.
type Stats struct {
	Source      string `json:"source"`
	Pages       int    `json:"pages"`
	Chunks      int    `json:"chunks"`
	Dimension   int    `json:"dimension"`
	Model       string `json:"embedding_model"`
	TopK        int    `json:"top_k"`
	ScanEnabled bool   `json:"scan_enabled"`
	Reused      bool   `json:"index_reused"`
}

// Pipeline answers questions about a single document. It is immutable after
// Initialize and safe for concurrent Answer calls.
type Pipeline struct {
	index     *vectorstore.Index
	embedder  domain.Embedder
	generator domain.Generator
	recorder  Recorder
	log       *zap.Logger
	topK      int
	scan      bool
	stats     Stats
}

// Initialize loads the document at source, chunks it and builds or reuses the
// vector index. It returns either a ready pipeline or an error, never both.
func Initialize(ctx context.Context, source string, deps Deps, opts Options) (*Pipeline, error) {
	if deps.Loader == nil || deps.Embedder == nil || deps.Generator == nil {
		return nil, fmt.Errorf("%w: loader, embedder and generator are required", domain.ErrInvalidConfig)
	}
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("%w: top-k must be positive, got %d", domain.ErrInvalidConfig, opts.TopK)
	}
	if opts.IndexPath == "" {
		return nil, fmt.Errorf("%w: index path is required", domain.ErrInvalidConfig)
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	pages, err := deps.Loader.LoadPages(source)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrDocumentNotFound, source, err)
	}
	chunks, err := chunker.Split(domain.Document{Path: source, Pages: pages}, opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	log.Info("document chunked",
		zap.String("source", source),
		zap.Int("pages", len(pages)),
		zap.Int("chunks", len(chunks)))

	index, reused, err := buildOrLoad(ctx, deps.Embedder, chunks, opts, log)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		index:     index,
		embedder:  deps.Embedder,
		generator: deps.Generator,
		recorder:  deps.Audit,
		log:       log,
		topK:      opts.TopK,
		scan:      opts.ScanEnabled,
		stats: Stats{
			Source:      source,
			Pages:       len(pages),
			Chunks:      index.Len(),
			Dimension:   index.Dimension(),
			Model:       index.Model(),
			TopK:        opts.TopK,
			ScanEnabled: opts.ScanEnabled,
			Reused:      reused,
		},
	}, nil
}

func buildOrLoad(ctx context.Context, emb domain.Embedder, chunks []domain.Chunk, opts Options, log *zap.Logger) (*vectorstore.Index, bool, error) {
	if !opts.ForceRebuild && vectorstore.Exists(opts.IndexPath) {
		index, err := vectorstore.Load(opts.IndexPath)
		if err != nil {
			return nil, false, err
		}
		if index.Model() != emb.Name() {
			return nil, false, fmt.Errorf("%w: index at %s was built with %q, current embedder is %q; rebuild it",
				domain.ErrCorruptIndex, opts.IndexPath, index.Model(), emb.Name())
		}
		if index.Len() != len(chunks) {
			log.Warn("persisted index may be stale",
				zap.String("path", opts.IndexPath),
				zap.Int("indexed_chunks", index.Len()),
				zap.Int("document_chunks", len(chunks)))
		}
		log.Info("reusing vector index", zap.String("path", opts.IndexPath), zap.Int("chunks", index.Len()))
		return index, true, nil
	}

	start := time.Now()
	index, err := vectorstore.Build(ctx, emb, chunks, vectorstore.BuildOptions{
		BatchSize:   opts.BatchSize,
		Concurrency: opts.Concurrency,
	})
	if err != nil {
		return nil, false, err
	}
	if err := index.Persist(opts.IndexPath); err != nil {
		return nil, false, fmt.Errorf("persist index: %w", err)
	}
	log.Info("vector index built",
		zap.String("path", opts.IndexPath),
		zap.String("model", index.Model()),
		zap.Int("chunks", index.Len()),
		zap.Duration("took", time.Since(start)))
	return index, false, nil
}

// Answer runs one question through retrieval and generation. Failures are
// returned as *domain.PipelineError and leave the pipeline usable.
func (p *Pipeline) Answer(ctx context.Context, question string) (*domain.QueryResult, error) {
	if p == nil || p.index == nil {
		return nil, domain.ErrPipelineNotInitialized
	}

	start := time.Now()
	entry := audit.NewEntry(question)
	result, err := p.answer(ctx, question)
	entry.ElapsedMs = time.Since(start).Milliseconds()
	if err != nil {
		entry.Status = audit.StatusFailed
		entry.Error = err.Error()
		p.log.Error("query failed", zap.String("question", question), zap.Error(err))
	} else {
		entry.Status = audit.StatusOK
		entry.Sources = len(result.Sources)
		entry.Findings = result.SecurityFindings
		p.log.Info("query answered",
			zap.Int("sources", len(result.Sources)),
			zap.Int("findings", len(result.SecurityFindings)),
			zap.Int64("elapsed_ms", entry.ElapsedMs))
	}
	p.record(ctx, entry)
	return result, err
}

func (p *Pipeline) answer(ctx context.Context, question string) (*domain.QueryResult, error) {
	vec, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return nil, domain.NewPipelineError("embed question", fmt.Errorf("%w: %w", domain.ErrEmbeddingService, err))
	}
	sources, err := p.index.Query(vec, p.topK)
	if err != nil {
		return nil, domain.NewPipelineError("query index", err)
	}

	answer, err := p.generator.Complete(ctx, prompt.Build(question, sources))
	if err != nil {
		return nil, domain.NewPipelineError("generate answer", fmt.Errorf("%w: %w", domain.ErrGenerationService, err))
	}

	return &domain.QueryResult{
		Answer:           answer,
		Sources:          sources,
		SecurityFindings: scanner.ScanResults(sources, p.scan),
	}, nil
}

func (p *Pipeline) record(ctx context.Context, e audit.Entry) {
	if p.recorder == nil {
		return
	}
	// audit even when the request was cancelled
	if err := p.recorder.Record(context.WithoutCancel(ctx), e); err != nil {
		p.log.Warn("audit record failed", zap.String("id", e.ID), zap.Error(err))
	}
}

// Stats reports what the pipeline was built from.
func (p *Pipeline) Stats() Stats {
	if p == nil {
		return Stats{}
	}
	return p.stats
}

// Ready reports whether Answer can be called.
func (p *Pipeline) Ready() bool {
	return p != nil && p.index != nil
}
