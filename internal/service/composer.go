package service

import (
	"context"
	"fmt"
	"strings"

	"docrag/internal/domain"
)

const (
	SystemPrompt = "You are a helpful assistant. Answer the question based only the data provided."
	userTemplate = "Use the user question %s to answer the question. Use only the %s to answer the question."
)

// Composer turns a question and its supporting chunks into one model answer.
type Composer struct {
	llm domain.LLM
}

func NewComposer(llm domain.LLM) *Composer {
	return &Composer{llm: llm}
}

// BuildPrompt joins chunk texts in rank order with a blank line and fills the template.
func BuildPrompt(query string, chunks []domain.SearchResult) domain.Prompt {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Record.Text
	}
	return domain.Prompt{
		System: SystemPrompt,
		User:   fmt.Sprintf(userTemplate, query, strings.Join(texts, "\n\n")),
	}
}

// Compose makes a single model call and returns its raw output.
func (c *Composer) Compose(ctx context.Context, query string, chunks []domain.SearchResult) (string, error) {
	answer, err := c.llm.Generate(ctx, BuildPrompt(query, chunks))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	return answer, nil
}
