// Package api exposes the retrieval pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"securerag/internal/audit"
	"securerag/internal/domain"
	"securerag/internal/service"
)

// Pipeline is the part of service.Pipeline the handlers use.
type Pipeline interface {
	Answer(ctx context.Context, question string) (*domain.QueryResult, error)
	Stats() service.Stats
	Ready() bool
}

// History lists recent audit entries.
type History interface {
	List(ctx context.Context, limit int) ([]audit.Entry, error)
}

// Handler holds the dependencies for HTTP handlers.
type Handler struct {
	pipeline Pipeline
	history  History
	log      *zap.Logger
}

// NewHandler creates a Handler. history may be nil when auditing is off.
func NewHandler(p Pipeline, history History, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{pipeline: p, history: history, log: log}
}

// maxAskBody caps the size of a POST /ask request body.
const maxAskBody = 1 << 20

// HandleAsk handles POST /ask requests.
func (h *Handler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxAskBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return
		}
		sendJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON: " + err.Error()})
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		sendJSON(w, http.StatusBadRequest, ErrorResponse{Error: "question is required"})
		return
	}

	start := time.Now()
	res, err := h.pipeline.Answer(r.Context(), req.Question)
	if err != nil {
		h.sendError(w, err)
		return
	}

	sources := make([]SourceResponse, 0, len(res.Sources))
	for _, s := range res.Sources {
		sources = append(sources, SourceResponse{
			ChunkID: s.Chunk.ID,
			Page:    s.Chunk.Page,
			Start:   s.Chunk.Start,
			End:     s.Chunk.End,
			Score:   s.Score,
			Text:    s.Chunk.Text,
		})
	}
	sendJSON(w, http.StatusOK, AskResponse{
		Answer:           res.Answer,
		Sources:          sources,
		SecurityFindings: res.SecurityFindings,
		Latency:          float64(time.Since(start).Microseconds()) / 1000.0,
	})
}

// HandleHealth handles GET /health requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !h.pipeline.Ready() {
		sendJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "initializing"})
		return
	}
	sendJSON(w, http.StatusOK, HealthResponse{Status: "ok", Chunks: h.pipeline.Stats().Chunks})
}

// HandleStats handles GET /stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, h.pipeline.Stats())
}

// HandleHistory handles GET /history?limit=N requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		sendJSON(w, http.StatusNotFound, ErrorResponse{Error: "audit log is disabled"})
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			sendJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	entries, err := h.history.List(r.Context(), limit)
	if err != nil {
		h.log.Error("list audit log", zap.Error(err))
		sendJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	sendJSON(w, http.StatusOK, entries)
}

func (h *Handler) sendError(w http.ResponseWriter, err error) {
	var perr *domain.PipelineError
	switch {
	case errors.Is(err, domain.ErrPipelineNotInitialized):
		sendJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	case errors.As(err, &perr):
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrEmbeddingService) || errors.Is(err, domain.ErrGenerationService) {
			status = http.StatusBadGateway
		}
		sendJSON(w, status, ErrorResponse{Error: err.Error(), Op: perr.Op})
	default:
		sendJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

// sendJSON sends a JSON response with the given status code.
func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
