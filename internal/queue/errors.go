package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskNotFound is returned when no task has the given id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrNotCancellable is returned when cancelling a task that is no longer pending.
	ErrNotCancellable = errors.New("task is not pending")
	// ErrBackendUnavailable is returned when the queue backend cannot be reached.
	ErrBackendUnavailable = errors.New("queue backend unavailable")
)

// InvalidInputError reports a payload or task type rejected at enqueue time.
// Nothing is stored when it is returned.
type InvalidInputError struct {
	Type   string
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input for %s: %s: %v", e.Type, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid input for %s: %s", e.Type, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

// UndeclaredEdgeError is returned when a handler emits a continuation along
// an edge the graph does not declare.
type UndeclaredEdgeError struct {
	From string
	To   string
}

func (e *UndeclaredEdgeError) Error() string {
	return fmt.Sprintf("undeclared continuation edge: %s -> %s", e.From, e.To)
}

// GraphError reports an invalid task-type graph.
type GraphError struct {
	Type    string
	Message string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("invalid task graph at %s: %s", e.Type, e.Message)
}

// HandlerPanicError wraps a value recovered from a panicking handler.
type HandlerPanicError struct {
	Value any
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}

// IsInvalidInput reports whether err is an InvalidInputError.
func IsInvalidInput(err error) bool {
	var inv *InvalidInputError
	return errors.As(err, &inv)
}
