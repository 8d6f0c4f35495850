package tools

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArguments is matched by every *ArgumentError.
	ErrInvalidArguments = errors.New("invalid tool arguments")

	// ErrExecution is matched by every *ExecutionError.
	ErrExecution = errors.New("tool execution failed")
)

// ArgumentError reports a tool call whose arguments could not be decoded or
// failed validation. The tool is not executed.
type ArgumentError struct {
	Tool   Name
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("tool %s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("tool %s: argument %q: %s", e.Tool, e.Field, e.Reason)
}

// Is reports whether the target is ErrInvalidArguments.
func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArguments
}

// ExecutionError wraps a failure of the underlying job source.
type ExecutionError struct {
	Tool Name
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

// Is reports whether the target is ErrExecution.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}
