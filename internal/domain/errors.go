package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrLoad signals a missing, unreadable or malformed knowledge file.
	ErrLoad = errors.New("corpus load failed")
	// ErrEmbeddingRateLimited signals a rate-limit response from the embedding provider.
	ErrEmbeddingRateLimited = errors.New("embedding rate limited")
	// ErrEmbeddingExhausted signals that all retry attempts hit the rate limit.
	ErrEmbeddingExhausted = errors.New("embedding retries exhausted")
	// ErrEmbeddingProvider signals a non-recoverable embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrDimensionMismatch signals a corrupted embedding batch.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrConfiguration signals an invalid prompt template or pipeline setting.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrGeneration signals a failed completion call.
	ErrGeneration = errors.New("generation failed")
	// ErrEmptyQuestion signals a question with no meaningful content.
	ErrEmptyQuestion = errors.New("empty question")
	// ErrInvalidK signals a non-positive result count.
	ErrInvalidK = errors.New("k must be at least 1")
	// ErrBudgetExceeded signals an exhausted token budget.
	ErrBudgetExceeded = errors.New("token budget exceeded")
	// ErrBusy signals that the pipeline could not accept the question in time.
	ErrBusy = errors.New("pipeline busy")
)

// Stage names the pipeline step that produced an error.
type Stage string

const (
	// StageRetrieval covers query embedding and index search.
	StageRetrieval Stage = "retrieval"
	// StageGeneration covers prompt assembly and the completion call.
	StageGeneration Stage = "generation"
)

// StageError tags a per-question failure with the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %s", e.Stage, e.Err.Error())
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with the stage it came from.
func NewStageError(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage of the first StageError in err's chain.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
