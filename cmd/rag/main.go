package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"securerag/internal/api"
	"securerag/internal/audit"
	"securerag/internal/config"
	"securerag/internal/loader"
	"securerag/internal/logger"
	"securerag/internal/scanner"
	"securerag/internal/service"
	"securerag/internal/tui"
)

// questionList collects repeated -q flags.
type questionList []string

func (q *questionList) String() string { return strings.Join(*q, "; ") }

func (q *questionList) Set(v string) error {
	*q = append(*q, v)
	return nil
}

func main() {
	_ = godotenv.Load()

	var (
		cfgPath   string
		docPath   string
		rebuild   bool
		scan      bool
		topK      int
		serveAddr string
		history   int
		questions questionList
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/securerag/config.yaml if not provided)")
	flag.StringVar(&docPath, "doc", "", "Document to answer questions about (overrides document.path)")
	flag.BoolVar(&rebuild, "rebuild", false, "Rebuild the vector index even if one is persisted")
	flag.BoolVar(&scan, "scan", false, "Scan retrieved chunks for sensitive data patterns")
	flag.IntVar(&topK, "top-k", 0, "Number of chunks to retrieve (overrides retrieval.top_k)")
	flag.Var(&questions, "q", "Question to answer non-interactively (repeatable)")
	flag.StringVar(&serveAddr, "serve", "", "Serve the HTTP API on this address instead of starting the TUI (overrides server.addr)")
	flag.IntVar(&history, "history", 0, "Print the N most recent audit log entries and exit")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "doc":
			cfg.Document.Path = docPath
		case "rebuild":
			cfg.Index.ForceRebuild = rebuild
		case "scan":
			cfg.Scanner.Enabled = scan
		case "top-k":
			cfg.Retrieval.TopK = topK
		case "serve":
			cfg.Server.Enabled = true
			cfg.Server.Addr = serveAddr
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	interactive := len(questions) == 0 && !cfg.Server.Enabled && history == 0
	logFile := ""
	if interactive {
		logFile = "data/securerag.log"
	}
	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format, logFile)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if history > 0 {
		if err := printHistory(ctx, cfg.Audit.DSN, history); err != nil {
			zlog.Fatal("read audit log", zap.Error(err))
		}
		return
	}

	var store audit.Store
	if cfg.Audit.Enabled {
		store, err = audit.NewStore(cfg.Audit.DSN)
		if err != nil {
			zlog.Fatal("open audit log", zap.Error(err))
		}
		defer store.Close()
	}

	emb, err := newEmbedder(cfg.Embedder, zlog)
	if err != nil {
		zlog.Fatal("embedder", zap.Error(err))
	}
	gen, err := newGenerator(cfg.Generator, zlog)
	if err != nil {
		zlog.Fatal("generator", zap.Error(err))
	}

	deps := service.Deps{
		Loader:    loader.NewFileLoader(),
		Embedder:  emb,
		Generator: gen,
		Audit:     store,
		Logger:    zlog,
	}
	opts := service.Options{
		ChunkSize:    cfg.Chunker.Size,
		ChunkOverlap: cfg.Chunker.Overlap,
		TopK:         cfg.Retrieval.TopK,
		ScanEnabled:  cfg.Scanner.Enabled,
		ForceRebuild: cfg.Index.ForceRebuild,
		IndexPath:    cfg.Index.Path,
		BatchSize:    cfg.Index.BatchSize,
		Concurrency:  cfg.Index.Concurrency,
	}

	if cfg.Scanner.Enabled {
		zlog.Info("sensitive data scanning enabled", zap.Strings("patterns", scanner.Patterns()))
	}
	if interactive {
		fmt.Printf("Preparing %s...\n", cfg.Document.Path)
	}
	pipeline, err := service.Initialize(ctx, cfg.Document.Path, deps, opts)
	if loader.IsNotFound(err) {
		fmt.Fprintf(os.Stderr, "Document %s could not be read; set document.path or pass -doc.\n", cfg.Document.Path)
	}
	if err != nil {
		zlog.Fatal("initialize pipeline", zap.String("document", cfg.Document.Path), zap.Error(err))
	}

	switch {
	case len(questions) > 0:
		failed := answerAll(ctx, pipeline, questions)
		if failed > 0 {
			zlog.Sync()
			os.Exit(1)
		}
	case cfg.Server.Enabled:
		if err := api.Serve(ctx, cfg.Server.Addr, api.NewHandler(pipeline, store, zlog)); err != nil {
			zlog.Fatal("http api", zap.Error(err))
		}
	default:
		s := pipeline.Stats()
		subtitle := fmt.Sprintf("%s  |  %d pages, %d chunks  |  %s  |  top-k %d  |  scanning %s",
			s.Source, s.Pages, s.Chunks, s.Model, s.TopK, onOff(s.ScanEnabled))
		if _, err := tea.NewProgram(tui.New(ctx, pipeline, subtitle), tea.WithAltScreen()).Run(); err != nil {
			zlog.Fatal("tui", zap.Error(err))
		}
	}
}

// answerAll prints an answer block per question and returns how many failed.
func answerAll(ctx context.Context, p *service.Pipeline, questions []string) int {
	failed := 0
	for i, q := range questions {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("Q: %s\n", q)
		res, err := p.Answer(ctx, q)
		if err != nil {
			failed++
			fmt.Printf("Error: %v\n", err)
			continue
		}
		fmt.Printf("A: %s\n", res.Answer)
		fmt.Printf("Sources: %d\n", len(res.Sources))
		for j, s := range res.Sources {
			fmt.Printf("  [%d] page %d, chars %d-%d, score %.3f\n", j+1, s.Chunk.Page+1, s.Chunk.Start, s.Chunk.End, s.Score)
		}
		fmt.Printf("Security alerts: %d\n", len(res.SecurityFindings))
		for _, f := range res.SecurityFindings {
			fmt.Printf("  ! %s\n", f)
		}
	}
	return failed
}

func printHistory(ctx context.Context, dsn string, n int) error {
	store, err := audit.NewStore(dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(ctx, n)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No queries recorded.")
		return nil
	}
	for _, e := range entries {
		ts := time.UnixMilli(e.Timestamp).Format(time.RFC3339)
		fmt.Printf("%s  %-6s  %5dms  sources=%d  %q\n", ts, e.Status, e.ElapsedMs, e.Sources, e.Question)
		for _, f := range e.Findings {
			fmt.Printf("    ! %s\n", f)
		}
		if e.Error != "" {
			fmt.Printf("    error: %s\n", e.Error)
		}
	}
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
