package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound       = errors.New("document not found")
	ErrEmbeddingService       = errors.New("embedding service failed")
	ErrGenerationService      = errors.New("generation service failed")
	ErrCorruptIndex           = errors.New("corrupt index")
	ErrIndexNotFound          = errors.New("index not found")
	ErrPipelineNotInitialized = errors.New("pipeline not initialized")
	ErrInvalidConfig          = errors.New("invalid configuration")
	ErrDimensionMismatch      = errors.New("vector dimension mismatch")
)

// PipelineError is returned by a failed query. It records the step that
// failed and wraps the underlying cause.
type PipelineError struct {
	Op  string
	Err error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("retrieval pipeline: %s: %v", e.Op, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func NewPipelineError(op string, err error) *PipelineError {
	return &PipelineError{Op: op, Err: err}
}
