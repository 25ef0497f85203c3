package laudo

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrTemplateMissing is returned when the configured template file does not exist.
var ErrTemplateMissing = errors.New("template file not found")

// ErrInvalidOutputName is returned when an output name is empty or carries a path.
var ErrInvalidOutputName = errors.New("invalid output file name")

// DocumentError represents a failure reading, editing or writing a document
type DocumentError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *DocumentError) Error() string {
	switch {
	case e.Path != "" && e.Cause != nil:
		return fmt.Sprintf("document error during %s of '%s': %v", e.Operation, e.Path, e.Cause)
	case e.Path != "":
		return fmt.Sprintf("document error during %s of '%s'", e.Operation, e.Path)
	case e.Cause != nil:
		return fmt.Sprintf("document error during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("document error during %s", e.Operation)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// NewDocumentError creates a new document error
func NewDocumentError(operation, path string, cause error) error {
	return &DocumentError{
		Operation: operation,
		Path:      path,
		Cause:     cause,
	}
}

// ImageError records one image that could not be placed in the document.
type ImageError struct {
	Category Category
	Path     string
	Cause    error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image %s (%s): %v", e.Path, e.Category, e.Cause)
}

func (e *ImageError) Unwrap() error {
	return e.Cause
}

// ValidationIssue represents a single validation problem
type ValidationIssue struct {
	Field   string
	Message string
}

// ValidationError represents multiple validation issues
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation error"
	}
	if len(e.Issues) == 1 {
		return fmt.Sprintf("validation error: %s - %s", e.Issues[0].Field, e.Issues[0].Message)
	}

	parts := []string{fmt.Sprintf("%d validation issues:", len(e.Issues))}
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("  %s: %s", issue.Field, issue.Message))
	}
	return strings.Join(parts, "\n")
}

// Fields returns the names of the fields that failed validation.
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		out = append(out, issue.Field)
	}
	return out
}

// MultiError collects multiple errors
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector
func NewMultiError() *MultiError {
	return &MultiError{}
}

// Add adds an error to the collection (ignores nil errors)
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of errors
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Errors returns the collected errors.
func (m *MultiError) Errors() []error {
	return m.errors
}

// Err returns the multi-error or nil if empty
func (m *MultiError) Err() error {
	switch len(m.errors) {
	case 0:
		return nil
	case 1:
		return m.errors[0]
	}
	return m
}

func (m *MultiError) Error() string {
	switch len(m.errors) {
	case 0:
		return "no errors"
	case 1:
		return m.errors[0].Error()
	}

	parts := []string{fmt.Sprintf("%d errors occurred:", len(m.errors))}
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.errors
}

// ContextError adds context to an existing error
type ContextError struct {
	Operation string
	Context   map[string]any
	Cause     error
}

func (e *ContextError) Error() string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	contextParts := make([]string, 0, len(keys))
	for _, k := range keys {
		contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
	}
	if len(contextParts) > 0 {
		return fmt.Sprintf("%s [%s]: %v", e.Operation, strings.Join(contextParts, ", "), e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *ContextError) Unwrap() error {
	return e.Cause
}

// WithContext wraps an error with additional context
func WithContext(err error, operation string, context map[string]any) error {
	if err == nil {
		return nil
	}
	return &ContextError{
		Operation: operation,
		Context:   context,
		Cause:     err,
	}
}

// IsDocumentError checks if an error is, or wraps, a document error
func IsDocumentError(err error) bool {
	var de *DocumentError
	return errors.As(err, &de)
}

// IsValidationError checks if an error is, or wraps, a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
