package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"securerag/internal/domain"
)

type fakeAsker struct {
	questions []string
	err       error
}

func (f *fakeAsker) Answer(_ context.Context, q string) (*domain.QueryResult, error) {
	f.questions = append(f.questions, q)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.QueryResult{
		Answer: "Badges are required.",
		Sources: []domain.SearchResult{
			{Chunk: domain.Chunk{ID: "p0-c0", Text: "Badges are required. Doors stay locked.", Page: 0}, Score: 0.8},
			{Chunk: domain.Chunk{ID: "p1-c0", Text: "Visitors sign in.", Page: 1}, Score: 0.5},
		},
		SecurityFindings: []string{"SSN pattern detected in source chunk"},
	}, nil
}

func typeQuestion(t *testing.T, m Model, q string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(q)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func TestEnter_AsksAsynchronously(t *testing.T) {
	asker := &fakeAsker{}
	m := sized(New(context.Background(), asker, "policy.pdf"))

	m, cmd := typeQuestion(t, m, "  Are badges required?  ")
	if cmd == nil {
		t.Fatal("expected a command for the question")
	}
	if !m.busy {
		t.Error("model should be busy while answering")
	}
	if len(asker.questions) != 0 {
		t.Error("Answer must run inside the command, not in Update")
	}

	next, _ := m.Update(cmd())
	m = next.(Model)
	if len(asker.questions) != 1 || asker.questions[0] != "Are badges required?" {
		t.Fatalf("unexpected questions %q", asker.questions)
	}
	if m.busy || m.result == nil {
		t.Fatal("answer not applied")
	}
	view := m.renderResult()
	for _, want := range []string{"Badges are required.", "Source 1/2", "SSN pattern detected in source chunk"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestUpDownCyclesSources(t *testing.T) {
	m := sized(New(context.Background(), &fakeAsker{}, ""))
	m, cmd := typeQuestion(t, m, "badges")
	next, _ := m.Update(cmd())
	m = next.(Model)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	if m.cursor != 1 {
		t.Errorf("expected cursor 1, got %d", m.cursor)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	if m.cursor != 0 {
		t.Errorf("expected cursor to wrap to 0, got %d", m.cursor)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	if m.cursor != 1 {
		t.Errorf("expected cursor to wrap to 1, got %d", m.cursor)
	}
}

func TestAnswerErrorShownInStatus(t *testing.T) {
	m := sized(New(context.Background(), &fakeAsker{err: errors.New("generation service failed")}, ""))
	m, cmd := typeQuestion(t, m, "anything")
	next, _ := m.Update(cmd())
	m = next.(Model)
	if !strings.Contains(m.status, "generation service failed") {
		t.Errorf("error not surfaced, status %q", m.status)
	}
	if m.result != nil {
		t.Error("failed answer should clear the result")
	}
}

func TestQuitWords(t *testing.T) {
	for _, word := range []string{"quit", "EXIT", "q"} {
		asker := &fakeAsker{}
		m := sized(New(context.Background(), asker, ""))
		_, cmd := typeQuestion(t, m, word)
		if cmd == nil {
			t.Fatalf("%s: expected quit command", word)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: expected tea.QuitMsg", word)
		}
		if len(asker.questions) != 0 {
			t.Errorf("%s: must not be sent to the pipeline", word)
		}
	}
}

func TestEmptyInputIgnored(t *testing.T) {
	m := sized(New(context.Background(), &fakeAsker{}, ""))
	m, cmd := typeQuestion(t, m, "   ")
	if cmd != nil || m.busy {
		t.Error("blank input should do nothing")
	}
}
