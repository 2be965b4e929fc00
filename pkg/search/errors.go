package search

import (
	"errors"
	"fmt"
	"strings"
)

// Common search errors
var (
	// ErrDivisionByZero indicates a normalization over an empty or all-zero score vector
	ErrDivisionByZero = errors.New("division by zero")

	// ErrWeightCountMismatch indicates the weights do not line up with the result sets
	ErrWeightCountMismatch = errors.New("number of weights must match number of result sets")

	// ErrNoRetrievers indicates a multi-strategy search was configured without strategies
	ErrNoRetrievers = errors.New("no retrievers configured")
)

// DivisionByZeroError reports which normalization hit a zero denominator.
type DivisionByZeroError struct {
	Operation string
}

func (e *DivisionByZeroError) Error() string {
	if e.Operation == "" {
		return ErrDivisionByZero.Error()
	}
	return fmt.Sprintf("%s: %s", e.Operation, ErrDivisionByZero.Error())
}

// Is implements errors.Is support for DivisionByZeroError.
func (e *DivisionByZeroError) Is(target error) bool {
	if target == ErrDivisionByZero {
		return true
	}
	_, ok := target.(*DivisionByZeroError)
	return ok
}

// EmbeddingServiceError wraps a failure of the embedding capability.
type EmbeddingServiceError struct {
	Strategy string
	Err      error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding failed for strategy %q: %v", e.Strategy, e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// Is implements errors.Is support for EmbeddingServiceError.
func (e *EmbeddingServiceError) Is(target error) bool {
	_, ok := target.(*EmbeddingServiceError)
	return ok
}

// NewEmbeddingServiceError creates a new embedding service error
func NewEmbeddingServiceError(strategy string, err error) *EmbeddingServiceError {
	return &EmbeddingServiceError{Strategy: strategy, Err: err}
}

// RetrievalExecutionError wraps a failed store query or an unreadable result row.
type RetrievalExecutionError struct {
	Strategy string
	Query    string
	Err      error
}

func (e *RetrievalExecutionError) Error() string {
	return fmt.Sprintf("retrieval failed for strategy %q: %v", e.Strategy, e.Err)
}

func (e *RetrievalExecutionError) Unwrap() error { return e.Err }

// Is implements errors.Is support for RetrievalExecutionError.
func (e *RetrievalExecutionError) Is(target error) bool {
	_, ok := target.(*RetrievalExecutionError)
	return ok
}

// NewRetrievalExecutionError creates a new retrieval execution error
func NewRetrievalExecutionError(strategy, query string, err error) *RetrievalExecutionError {
	return &RetrievalExecutionError{Strategy: strategy, Query: query, Err: err}
}

// StrategyFailure records one strategy that failed during a multi-strategy search.
type StrategyFailure struct {
	Strategy string `json:"strategy"`
	Err      error  `json:"-"`
}

// Message returns the failure as a display string.
func (f StrategyFailure) Message() string {
	return fmt.Sprintf("%s: %v", f.Strategy, f.Err)
}

// PartialFailureError lists the strategies that failed in a multi-strategy search.
type PartialFailureError struct {
	Failures []StrategyFailure
}

func (e *PartialFailureError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Message()
	}
	return fmt.Sprintf("%d strategies failed: %s", len(e.Failures), strings.Join(msgs, "; "))
}

// Unwrap exposes every underlying strategy error to errors.Is and errors.As.
func (e *PartialFailureError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
