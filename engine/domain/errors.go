package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for request validation and pipeline failures.
var (
	ErrQuestionEmpty    = errors.New("question is empty")
	ErrQuestionTooShort = errors.New("question too short")

	// ErrSearchUnavailable is surfaced when the embedding collaborator is
	// down and no filters exist to fall back to a filtered scan.
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrStoreUnavailable marks vector store failures; retryable by the caller.
	ErrStoreUnavailable = errors.New("vector store unavailable")
)

// Pipeline stage names carried by StageError.
const (
	StageClassify = "classify"
	StageExtract  = "extract"
	StageEmbed    = "embed"
	StageRetrieve = "retrieve"
	StageCompose  = "compose"
)

// StageError wraps a failure with the pipeline stage it occurred in, so the
// boundary layer can decide between retry and a user-facing error.
type StageError struct {
	Stage   string
	Wrapped error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Wrapped)
}

func (e *StageError) Unwrap() error { return e.Wrapped }

// NewStageError creates a StageError.
func NewStageError(stage string, wrapped error) *StageError {
	return &StageError{Stage: stage, Wrapped: wrapped}
}

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
