package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docrag/internal/domain"
	"docrag/internal/summarizer"
	"docrag/internal/vectorstore"
)

// Answerer is the TUI-facing subset of the query pipeline.
type Answerer interface {
	Answer(ctx context.Context, query string) domain.QueryResult
}

// answerMsg carries a finished pipeline result back into Update.
type answerMsg struct {
	result domain.QueryResult
}

// Model is the Bubble Tea model for the chat UI.
type Model struct {
	ctx      context.Context
	pipeline Answerer
	title    string
	input    textinput.Model
	viewport viewport.Model
	result   *domain.QueryResult
	status   string
	cursor   int
	ready    bool
	pending  bool
}

// New creates a new chat model. title is shown in the header, e.g. the collection name.
func New(ctx context.Context, pipeline Answerer, title string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{ctx: ctx, pipeline: pipeline, title: title, input: ti, viewport: vp, status: "Ready. Esc or Ctrl+C to quit."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		return answerMsg{result: m.pipeline.Answer(m.ctx, q)}
	}
}

// Update handles key, window and answer events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around answer and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 1                                    // header
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case answerMsg:
		m.pending = false
		res := msg.result
		m.result = &res
		m.cursor = 0
		if res.Err != nil {
			m.status = "Error: " + res.Err.Error()
		} else {
			m.status = fmt.Sprintf("%d supporting chunks. Up/Down to browse.", len(res.Chunks))
		}
		m.viewport.SetContent(m.renderCurrentResult())
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.pending = true
			m.status = fmt.Sprintf("Thinking about %q...", q)
			m.input.SetValue("")
			return m, m.ask(q)
		case "down":
			if n := m.chunkCount(); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if n := m.chunkCount(); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderCurrentResult())
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

func (m Model) chunkCount() int {
	if m.result == nil {
		return 0
	}
	return len(m.result.Chunks)
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("docrag: " + m.title)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if m.result == nil {
		return "No answer yet."
	}
	var b strings.Builder
	b.WriteString(answerStyle.Render("Q: " + m.result.Query))
	b.WriteString("\n\n")
	if m.result.Err != nil {
		b.WriteString("Error: " + m.result.Err.Error())
	} else {
		b.WriteString("Assistant: " + m.result.Answer)
	}
	if len(m.result.Chunks) == 0 {
		return b.String()
	}
	r := m.result.Chunks[m.cursor]
	title := fmt.Sprintf("Source %d/%d  score=%.3f  %s", m.cursor+1, len(m.result.Chunks), r.Score, vectorstore.SourceLabel(r.Record.Metadata))
	b.WriteString("\n\n")
	b.WriteString(sourceStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(highlightBestSentence(r.Record.Text, m.result.Query))
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	answerStyle    = lipgloss.NewStyle().Bold(true)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	excerpts       = summarizer.NewFrequencySummarizer()
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences, best := excerpts.Best(text, query)
	if best >= 0 {
		sentences[best] = highlightStyle.Render(sentences[best])
	}
	return strings.Join(sentences, " ")
}
