package service

import (
	"context"
	"log"

	"geoquery/internal/model"
)

// Pipeline runs the full question-answering flow:
// text -> Formalizer -> QueryBuilder -> Executor -> ResponseReducer.
// Each request is independent and synchronous; the only shared state is the
// two external clients, which must be safe for concurrent use.
type Pipeline struct {
	formalizer *Formalizer
	builder    *QueryBuilder
	executor   Executor
	reducer    *ResponseReducer
}

// NewPipeline creates a new query pipeline
func NewPipeline(formalizer *Formalizer, builder *QueryBuilder, executor Executor, reducer *ResponseReducer) *Pipeline {
	return &Pipeline{
		formalizer: formalizer,
		builder:    builder,
		executor:   executor,
		reducer:    reducer,
	}
}

// Answer processes one user question end to end. Formalization failures are
// invisible here (the formalizer degrades to an empty query on its own);
// execution failures propagate so the caller can distinguish them from a
// legitimate empty answer.
func (p *Pipeline) Answer(ctx context.Context, question string) (model.Response, error) {
	formalized := p.formalizer.Formalize(ctx, question)
	log.Printf("Formalized query: attributes=%v location=%q action=%q filters=%v",
		formalized.Attributes, formalized.Location, formalized.Action, formalized.Filters)

	executable := p.builder.Build(formalized)

	result, err := p.executor.Execute(ctx, executable)
	if err != nil {
		return model.Response{}, err
	}

	log.Printf("Query executed: %d documents, %d total, %d aggregations",
		len(result.Documents), result.Total, len(result.Aggregations))

	return p.reducer.Reduce(result, question), nil
}
