package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors used to classify every failure in the system. Callers
// attach one with Mark and check with errors.Is (or the helpers below).
var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrHTTPClient       = errors.New("http client error")
	ErrIntegration      = errors.New("integration error")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrInternal         = errors.New("internal error")
)

// InternalError carries a developer message, a user-facing hint and optional
// reportable details alongside the wrapped cause.
type InternalError struct {
	cause   error
	hint    string
	details map[string]interface{}
	mark    error
}

// NewError starts building an error from a fresh message.
func NewError(message string) *InternalError {
	return &InternalError{
		cause: errors.NewWithDepth(1, message),
	}
}

// NewErrorf starts building an error from a formatted message.
func NewErrorf(format string, args ...interface{}) *InternalError {
	return &InternalError{
		cause: errors.NewWithDepthf(1, format, args...),
	}
}

// WithError starts building an error that wraps an existing cause.
func WithError(err error) *InternalError {
	if err == nil {
		err = errors.NewWithDepth(1, "unknown error")
	}
	return &InternalError{cause: err}
}

// WithHint attaches a human-readable hint shown to the operator.
func (e *InternalError) WithHint(hint string) *InternalError {
	e.hint = hint
	return e
}

// WithHintf attaches a formatted hint.
func (e *InternalError) WithHintf(format string, args ...interface{}) *InternalError {
	e.hint = fmt.Sprintf(format, args...)
	return e
}

// WithReportableDetails attaches structured details for logs and error
// responses.
func (e *InternalError) WithReportableDetails(details map[string]interface{}) *InternalError {
	e.details = details
	return e
}

// Mark finalizes the builder, tagging the error with a sentinel so callers
// can classify it with errors.Is.
func (e *InternalError) Mark(mark error) error {
	e.mark = mark
	return e
}

func (e *InternalError) Error() string {
	return e.cause.Error()
}

func (e *InternalError) Unwrap() error {
	return e.cause
}

// Is reports whether the error was marked with target.
func (e *InternalError) Is(target error) bool {
	return e.mark != nil && errors.Is(e.mark, target)
}

// Hint returns the hint attached to err, walking the wrap chain.
func Hint(err error) string {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.hint
	}
	return ""
}

// Details returns the reportable details attached to err, if any.
func Details(err error) map[string]interface{} {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.details
	}
	return nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsHTTPClient(err error) bool {
	return errors.Is(err, ErrHTTPClient)
}

func IsIntegration(err error) bool {
	return errors.Is(err, ErrIntegration)
}

// ErrorDetail is the serializable view of a single error.
type ErrorDetail struct {
	Message string                 `json:"message"`
	Hint    string                 `json:"hint,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse is the serializable view of a failed operation.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// NewErrorResponse converts any error into its serializable view.
func NewErrorResponse(err error) *ErrorResponse {
	if err == nil {
		return nil
	}
	return &ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Message: err.Error(),
			Hint:    Hint(err),
			Details: Details(err),
		},
	}
}
