// Package errors provides the structured error types shared by the whole
// framework. Every failure surfaced to the user carries a code, a message and
// an optional suggestion with actionable steps.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig    = "CONFIG"
	ErrTransport = "TRANSPORT"
	ErrExec      = "EXEC"
	ErrTask      = "TASK"
)

// Error represents a structured error with code, message, suggestion, and
// optional cause.
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrExec code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrExec,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(e.Message)

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var kerr *Error
	if errors.As(err, &kerr) {
		return kerr.Code == code
	}
	return false
}

// CommandFailedError is returned when a command ran to completion but exited
// with a nonzero status while check mode was requested. It's deliberately
// distinct from transport-level errors: callers must be able to tell "command
// ran and failed" from "could not run the command".
type CommandFailedError struct {
	Cmd      string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("command %q exited with code %d", e.Cmd, e.ExitCode)
}

// TaskError aborts the whole CLI invocation with a user-visible message and
// a process exit code.
type TaskError struct {
	Message  string
	ExitCode int
	Cause    error
}

// NewTaskError creates a TaskError. A zero exit code is coerced to 1 so a
// failing task can never report success.
func NewTaskError(message string, exitCode int) *TaskError {
	if exitCode == 0 {
		exitCode = 1
	}
	return &TaskError{Message: message, ExitCode: exitCode}
}

func (e *TaskError) Error() string {
	return e.Message
}

func (e *TaskError) Unwrap() error {
	return e.Cause
}

// TaskFilteredError is returned when a task or group is invoked while its
// filters evaluate false or it is hidden. It's kept distinct from
// TaskNotFoundError to aid debugging: the task exists, the current context
// disables it.
type TaskFilteredError struct {
	Name string
}

func (e *TaskFilteredError) Error() string {
	return fmt.Sprintf("task %q is filtered out", e.Name)
}

// TaskNotFoundError is returned when no task or group with the given name
// exists in the resolved namespace.
type TaskNotFoundError struct {
	Name  string
	Group string
}

func (e *TaskNotFoundError) Error() string {
	if e.Group != "" {
		return fmt.Sprintf("no such task %q in group %q", e.Name, e.Group)
	}
	return fmt.Sprintf("no such task %q", e.Name)
}

// TaskInvocationError is returned by Context.Invoke when the target node has
// no callback attached.
type TaskInvocationError struct {
	Name string
}

func (e *TaskInvocationError) Error() string {
	return fmt.Sprintf("task %q has no callback attached", e.Name)
}

// StructureFrozenError is returned on any attempt to mutate a task group
// after its command list has been resolved. Resolution is computed against
// the live configuration and memoized, so later structural changes would let
// sibling lookups observe different trees.
type StructureFrozenError struct {
	Group string
}

func (e *StructureFrozenError) Error() string {
	return fmt.Sprintf("group %q has already been resolved, tasks and commands can't be added anymore", e.Group)
}

// CommandCollisionError is returned at resolution time when two sources
// contribute a same-named command to one namespace. Both origins are named to
// aid debugging.
type CommandCollisionError struct {
	Name   string
	First  string
	Second string
}

func (e *CommandCollisionError) Error() string {
	return fmt.Sprintf("command %q is provided by both %s and %s", e.Name, e.First, e.Second)
}
