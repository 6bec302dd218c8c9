package utils

import (
	"fmt"
	"strings"
)

// UserError is a failure the person running agtrace can act on. Message
// says what went wrong with their input, Hint what to change, and Err the
// underlying cause.
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, "\n  cause: %v", e.Err)
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, "\n  hint:  %s", e.Hint)
	}
	return b.String()
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError wraps err with a message and a hint for fixing the input.
func NewUserError(message, hint string, err error) *UserError {
	return &UserError{
		Message: message,
		Hint:    hint,
		Err:     err,
	}
}

// ValidationError reports a config key or flag holding an unusable value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ExitError asks the CLI to exit with Code without printing anything
// beyond Message, which may be empty.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Message
}

// NewExitError creates a new ExitError
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}
