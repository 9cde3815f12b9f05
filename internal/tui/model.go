package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"securerag/internal/domain"
)

// Asker is the TUI-facing subset of the retrieval pipeline.
type Asker interface {
	Answer(ctx context.Context, question string) (*domain.QueryResult, error)
}

// answerMsg carries the outcome of an asynchronous Answer call.
type answerMsg struct {
	question string
	result   *domain.QueryResult
	err      error
}

// Model is the Bubble Tea model for the interactive question session.
type Model struct {
	ctx       context.Context
	pipeline  Asker
	input     textinput.Model
	viewport  viewport.Model
	result    *domain.QueryResult
	subtitle  string
	status    string
	cursor    int
	ready     bool
	busy      bool
	lastQuery string
}

// New creates a new TUI model. subtitle is shown under the title, typically
// the document and index summary.
func New(ctx context.Context, pipeline Asker, subtitle string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question (quit, exit or q to leave)"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		pipeline: pipeline,
		input:    ti,
		viewport: vp,
		subtitle: subtitle,
		status:   "Ready. Ask a question about the document.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.pipeline.Answer(m.ctx, q)
		return answerMsg{question: q, result: res, err: err}
	}
}

// Update handles key, window and answer events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2 // title + subtitle
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderResult())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.result = nil
		} else {
			m.result = msg.result
			m.cursor = 0
			m.lastQuery = msg.question
			m.status = fmt.Sprintf("%d sources, %d security alerts for %q",
				len(msg.result.Sources), len(msg.result.SecurityFindings), msg.question)
		}
		m.viewport.SetContent(m.renderResult())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			switch strings.ToLower(q) {
			case "":
				return m, nil
			case "quit", "exit", "q":
				return m, tea.Quit
			}
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.input.SetValue("")
			m.status = fmt.Sprintf("Thinking about %q...", q)
			return m, m.ask(q)
		case "down":
			if n := m.sourceCount(); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderResult())
				return m, nil
			}
		case "up":
			if n := m.sourceCount(); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderResult())
				return m, nil
			}
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) sourceCount() int {
	if m.result == nil {
		return 0
	}
	return len(m.result.Sources)
}

// View renders the TUI layout and current answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Secure RAG Researcher")
	subtitle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.subtitle)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + subtitle + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderResult() string {
	if m.result == nil {
		return "No answer yet."
	}
	var sb strings.Builder
	sb.WriteString(answerStyle.Render("Answer"))
	sb.WriteString("\n")
	sb.WriteString(m.result.Answer)
	sb.WriteString("\n\n")

	if len(m.result.SecurityFindings) > 0 {
		sb.WriteString(alertStyle.Render("Security alerts"))
		sb.WriteString("\n")
		for _, f := range m.result.SecurityFindings {
			sb.WriteString("  ! " + f + "\n")
		}
		sb.WriteString("\n")
	}

	if len(m.result.Sources) == 0 {
		sb.WriteString("No sources retrieved.")
		return sb.String()
	}
	r := m.result.Sources[m.cursor]
	sb.WriteString(fmt.Sprintf("Source %d/%d  page=%d  chars=%d-%d  score=%.3f  (up/down)",
		m.cursor+1, len(m.result.Sources), r.Chunk.Page+1, r.Chunk.Start, r.Chunk.End, r.Score))
	sb.WriteString("\n\n")
	sb.WriteString(highlightBestSentence(r.Chunk.Text, m.lastQuery))
	return sb.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	answerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	alertStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence marks the sentence of text sharing the most words
// with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
