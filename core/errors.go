package core

import (
	"errors"
	"fmt"
)

var (
	// ErrSchedulerClosed is reported for tasks admitted after shutdown began
	// (from outside a fiber) or discarded by a forced shutdown.
	ErrSchedulerClosed = errors.New("fibersched: scheduler closed")

	// ErrNoFiber is returned by Block when ctx carries no fiber.
	ErrNoFiber = errors.New("fibersched: context carries no fiber")

	// ErrForeignFiber is returned by Block when ctx carries a fiber of another scheduler.
	ErrForeignFiber = errors.New("fibersched: fiber belongs to a different scheduler")

	// ErrAlreadyStarted is returned by Start on a running or stopped scheduler.
	ErrAlreadyStarted = errors.New("fibersched: scheduler already started")
)

// TaskPanicError describes a task whose closure panicked.
type TaskPanicError struct {
	TaskID TaskID
	Name   string
	Value  any
	Stack  []byte
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("task %s (%s) panicked: %v", e.TaskID, e.Name, e.Value)
}

func (e *TaskPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// FatalError is raised by Fatalf from inside a task body.
type FatalError struct {
	Msg string
	Err error
}

func (e *FatalError) Error() string { return e.Msg }

func (e *FatalError) Unwrap() error { return e.Err }

// Fatalf aborts the running task with an unrecoverable error. The scheduler
// hands it to the PanicHandler, which by default terminates the process.
// A %w verb in format is preserved for errors.Is / errors.As.
func Fatalf(format string, args ...any) {
	err := fmt.Errorf(format, args...)
	panic(&FatalError{Msg: err.Error(), Err: errors.Unwrap(err)})
}
