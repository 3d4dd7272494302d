package service

import (
	"context"
	"fmt"
	"strings"

	"docrag/internal/domain"
	"docrag/internal/logger"
)

// Pipeline answers questions by retrieving chunks and composing a reply.
type Pipeline struct {
	retriever *Retriever
	composer  *Composer
	topK      int
}

// NewPipeline passes topK to every retrieval; topK <= 0 falls back to DefaultK.
func NewPipeline(retriever *Retriever, composer *Composer, topK int) *Pipeline {
	return &Pipeline{retriever: retriever, composer: composer, topK: topK}
}

// Answer never returns an error; failures are logged and carried in QueryResult.Err.
func (p *Pipeline) Answer(ctx context.Context, query string) (res domain.QueryResult) {
	res.Query = query
	defer func() {
		if r := recover(); r != nil {
			res.Answer = ""
			res.Err = fmt.Errorf("query panicked: %v", r)
			logger.Error("%v", res.Err)
		}
	}()

	if strings.TrimSpace(query) == "" {
		res.Err = domain.ErrEmptyQuery
		logger.Warn("rejected empty query")
		return res
	}

	chunks, err := p.retriever.Retrieve(ctx, query, p.topK)
	if err != nil {
		res.Err = err
		logger.Error("retrieval failed: %v", err)
		return res
	}
	res.Chunks = chunks
	logger.Debug("retrieved %d chunks for %q", len(chunks), query)

	answer, err := p.composer.Compose(ctx, query, chunks)
	if err != nil {
		res.Err = err
		logger.Error("generation failed: %v", err)
		return res
	}
	res.Answer = answer
	return res
}
