package audit

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "nested", "audit.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := NewEntry("What is the password policy?")
	first.Timestamp = 1000
	first.Sources = 4
	first.Status = StatusOK
	first.ElapsedMs = 12

	second := NewEntry("Who approves access?")
	second.Timestamp = 2000
	second.Findings = []string{"Email Address pattern detected in source chunk"}
	second.Status = StatusFailed
	second.Error = "generation service failed"

	for _, e := range []Entry{first, second} {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].ID != second.ID || got[1].ID != first.ID {
		t.Errorf("expected newest first, got %s then %s", got[0].Question, got[1].Question)
	}
	if len(got[0].Findings) != 1 || got[0].Findings[0] != second.Findings[0] {
		t.Errorf("findings not preserved: %v", got[0].Findings)
	}
	if got[0].Error != "generation service failed" || got[0].Status != StatusFailed {
		t.Errorf("status not preserved: %+v", got[0])
	}
	if got[1].Sources != 4 || got[1].ElapsedMs != 12 || len(got[1].Findings) != 0 {
		t.Errorf("fields not preserved: %+v", got[1])
	}
}

func TestListLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		e := NewEntry("q")
		e.Timestamp = int64(i)
		e.Status = StatusOK
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	got, err := s.List(ctx, 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Timestamp != 4 {
		t.Errorf("expected newest entry first, got timestamp %d", got[0].Timestamp)
	}
}

func TestNewEntry_UniqueIDs(t *testing.T) {
	a, b := NewEntry("x"), NewEntry("x")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct ids, got %q and %q", a.ID, b.ID)
	}
}
