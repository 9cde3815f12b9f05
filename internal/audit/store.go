package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Entry is one answered or failed question. Findings holds scanner labels
// only, never the matched text.
type Entry struct {
	ID        string   `json:"id"`
	Timestamp int64    `json:"timestamp"`
	Question  string   `json:"question"`
	Sources   int      `json:"source_count"`
	Findings  []string `json:"findings"`
	ElapsedMs int64    `json:"elapsed_ms"`
	Status    string   `json:"status"`
	Error     string   `json:"error,omitempty"`
}

// NewEntry stamps a fresh id and the current time onto an entry.
func NewEntry(question string) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Question:  question,
		Findings:  []string{},
	}
}

// Store persists audit entries.
type Store interface {
	Record(ctx context.Context, e Entry) error
	// List returns the newest entries first; limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}
