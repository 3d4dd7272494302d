package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
)

type fakePipeline struct {
	queries []string
	result  domain.QueryResult
}

func (f *fakePipeline) Answer(_ context.Context, q string) domain.QueryResult {
	f.queries = append(f.queries, q)
	r := f.result
	r.Query = q
	return r
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(Model)
}

func TestModel_AskAndBrowse(t *testing.T) {
	fp := &fakePipeline{result: domain.QueryResult{
		Answer: "Paris",
		Chunks: []domain.SearchResult{
			{Record: domain.ChunkRecord{Text: "Paris is the capital of France.", Metadata: map[string]any{domain.MetaSource: "france.md", domain.MetaPage: 0}}, Score: 0.9},
			{Record: domain.ChunkRecord{Text: "Lyon is a city.", Metadata: map[string]any{domain.MetaSource: "atlas.pdf", domain.MetaPage: 2}}, Score: 0.4},
		},
	}}
	m := sized(New(context.Background(), fp, "documents"))
	m.input.SetValue("What is the capital of France?")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.pending)
	assert.Empty(t, m.input.Value())

	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.pending)
	require.Equal(t, []string{"What is the capital of France?"}, fp.queries)
	assert.Contains(t, m.status, "2 supporting chunks")

	view := m.renderCurrentResult()
	assert.Contains(t, view, "Assistant: Paris")
	assert.Contains(t, view, "Source 1/2")
	assert.Contains(t, view, "france.md")
	assert.NotContains(t, view, "p.1")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)
	assert.Contains(t, m.renderCurrentResult(), "atlas.pdf p.3")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 0, m.cursor)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)
}

func TestModel_ErrorResult(t *testing.T) {
	fp := &fakePipeline{result: domain.QueryResult{Err: errors.New("generation failed: timeout")}}
	m := sized(New(context.Background(), fp, "documents"))

	next, _ := m.Update(answerMsg{result: fp.Answer(context.Background(), "q")})
	m = next.(Model)

	assert.Equal(t, "Error: generation failed: timeout", m.status)
	assert.Contains(t, m.renderCurrentResult(), "Error: generation failed: timeout")
}

func TestModel_BlankInputIsIgnored(t *testing.T) {
	fp := &fakePipeline{}
	m := sized(New(context.Background(), fp, "documents"))
	m.input.SetValue("   ")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, fp.queries)
}

func TestModel_Quit(t *testing.T) {
	m := sized(New(context.Background(), &fakePipeline{}, "documents"))
	for _, k := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		_, cmd := m.Update(tea.KeyMsg{Type: k})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	}
}

func TestModel_View(t *testing.T) {
	m := New(context.Background(), &fakePipeline{}, "documents")
	assert.Equal(t, "Loading...", m.View())
	m = sized(m)
	assert.Contains(t, m.View(), "docrag: documents")
	assert.Contains(t, m.View(), "No answer yet.")
}

func TestHighlightBestSentence(t *testing.T) {
	text := "Berlin is in Germany. Paris is the capital of France. Rome is old."
	out := highlightBestSentence(text, "capital of France")
	assert.Contains(t, out, "Paris is the capital of France.")
	assert.True(t, strings.HasPrefix(out, "Berlin is in Germany."))

	assert.Equal(t, "", highlightBestSentence("", "q"))
	assert.Equal(t, "One. Two.", highlightBestSentence("One. Two.", ""))
}
