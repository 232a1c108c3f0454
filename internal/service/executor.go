package service

import (
	"context"
	"fmt"

	"geoquery/internal/model"
)

// Executor sends a built query to the search backend and returns the raw
// result. Unlike formalization, execution failures are real: they surface as
// *ExecutionError instead of degrading silently, because at this point the
// query is a concrete, well-typed request.
type Executor interface {
	Execute(ctx context.Context, query model.ExecutableQuery) (model.QueryResult, error)
}

// ExecutionError stages, in the order a round trip can fail.
const (
	// StageRequest covers an unreachable backend or transport failure.
	StageRequest = "request"
	// StageRejected covers a query the backend refused, e.g. an unknown field.
	StageRejected = "rejected"
	// StageResponse covers a malformed or undecodable backend reply.
	StageResponse = "response"
)

// ExecutionError reports a failed backend round trip, distinguishable from
// a legitimate empty result.
type ExecutionError struct {
	Stage string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed (%s): %v", e.Stage, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError wraps err with the failure stage
func NewExecutionError(stage string, err error) *ExecutionError {
	return &ExecutionError{Stage: stage, Err: err}
}
