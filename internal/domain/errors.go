package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode represents a specific type of error in the pipeline
type ErrorCode string

const (
	// Common errors
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Pipeline specific errors
	ErrLLMServiceError ErrorCode = "LLM_SERVICE_ERROR"
	ErrNoJSONObject    ErrorCode = "NO_JSON_OBJECT"
	ErrSinkError       ErrorCode = "SINK_ERROR"
	ErrInvalidPlan     ErrorCode = "INVALID_PLAN"
)

// PipelineError represents a pipeline-specific error
type PipelineError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements the json.Marshaler interface
func (e *PipelineError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// NewError creates a new PipelineError
func NewError(code ErrorCode, message string, err error) *PipelineError {
	return &PipelineError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Helper functions for common errors
func NewInvalidInputError(message string) *PipelineError {
	return NewError(ErrInvalidInput, message, nil)
}

func NewInternalError(message string, err error) *PipelineError {
	return NewError(ErrInternal, message, err)
}

func NewLLMServiceError(err error) *PipelineError {
	return NewError(ErrLLMServiceError, "Failed to process with LLM service", err)
}

// NewNoJSONObjectError marks a completion that was expected to carry a JSON
// object but did not. Callers one level up catch it and apply defaults.
func NewNoJSONObjectError(err error) *PipelineError {
	return NewError(ErrNoJSONObject, "No valid JSON object found in completion", err)
}

func NewSinkError(table string, err error) *PipelineError {
	return NewError(ErrSinkError, fmt.Sprintf("Failed to write metadata to table %s", table), err)
}

func NewInvalidPlanError(message string) *PipelineError {
	return NewError(ErrInvalidPlan, message, nil)
}

// IsNoJSONObject reports whether err is a NO_JSON_OBJECT pipeline error.
func IsNoJSONObject(err error) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Code == ErrNoJSONObject
}
