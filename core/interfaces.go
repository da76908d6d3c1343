package core

import (
	"context"
	"os"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution.
// Task-body failures are unrecoverable for the engine, so the default handler
// terminates the process. Custom handlers that return let the scheduler
// complete the task with a *TaskPanicError and carry on.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - ctx: The context of the panicked task (carries its fiber)
	// - className: The thread class the task ran on ("any" or "context")
	// - workerID: The ID of the hosting worker (-1 when hosted outside the worker pool)
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, className string, workerID int, panicInfo any, stackTrace []byte)
}

// FatalPanicHandler logs the panic at error level and exits the process.
type FatalPanicHandler struct {
	Logger Logger

	// Exit terminates the process. Defaults to os.Exit.
	Exit func(code int)
}

// HandlePanic logs panic information and terminates the process with exit code 1.
func (h *FatalPanicHandler) HandlePanic(ctx context.Context, className string, workerID int, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	fields := []Field{
		F("class", className),
		F("worker", workerID),
		F("panic", panicInfo),
		F("stack", string(stackTrace)),
	}
	if f := FiberFromContext(ctx); f != nil {
		fields = append(fields, F("fiber", f.ID()), F("task", f.currentTaskName()))
	}
	logger.Error("fatal task failure", fields...)

	exit := h.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(1)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting scheduler metrics.
// Methods should be non-blocking and fast; they run on worker threads.
type Metrics interface {
	// RecordTaskDuration records how long a task body took, excluding time spent suspended.
	RecordTaskDuration(className string, priority TaskPriority, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(className string, panicInfo any)

	// RecordQueueDepth records the number of queued tasks of a thread class.
	RecordQueueDepth(className string, depth int)

	// RecordTaskRejected records that a task was rejected (e.g., during shutdown).
	RecordTaskRejected(className string, reason string)

	// RecordBlockDuration records how long a fiber stayed in Block.
	RecordBlockDuration(className string, duration time.Duration)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskDuration(className string, priority TaskPriority, duration time.Duration) {
}
func (m *NilMetrics) RecordTaskPanic(className string, panicInfo any)              {}
func (m *NilMetrics) RecordQueueDepth(className string, depth int)                 {}
func (m *NilMetrics) RecordTaskRejected(className string, reason string)           {}
func (m *NilMetrics) RecordBlockDuration(className string, duration time.Duration) {}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected tasks
// =============================================================================

// RejectedTaskHandler is called when a task is refused at admission.
// This happens once Shutdown has started: external callers are refused while
// the scheduler drains, everybody is refused once it is closed.
type RejectedTaskHandler interface {
	HandleRejectedTask(className string, taskName string, reason string)
}

// LoggingRejectedTaskHandler logs rejected tasks at warn level.
type LoggingRejectedTaskHandler struct {
	Logger Logger
}

func (h *LoggingRejectedTaskHandler) HandleRejectedTask(className string, taskName string, reason string) {
	if h.Logger == nil {
		return
	}
	h.Logger.Warn("task rejected", F("class", className), F("task", taskName), F("reason", reason))
}

// =============================================================================
// Hooks: pluggable collaborators of a Scheduler
// =============================================================================

// Hooks holds the scheduler's collaborators.
// All fields are optional; if not provided, default implementations will be used.
type Hooks struct {
	// Logger defaults to a slog text logger built from Config.LogLevel / LogFormat.
	Logger Logger

	// PanicHandler defaults to FatalPanicHandler.
	PanicHandler PanicHandler

	// Metrics defaults to NilMetrics.
	Metrics Metrics

	// RejectedTaskHandler defaults to LoggingRejectedTaskHandler.
	RejectedTaskHandler RejectedTaskHandler
}

func (h *Hooks) withDefaults(cfg Config) Hooks {
	var out Hooks
	if h != nil {
		out = *h
	}
	if out.Logger == nil {
		out.Logger = NewSlogLogger(NewLogger(ParseLevel(cfg.LogLevel), cfg.LogFormat, os.Stderr))
	}
	if out.PanicHandler == nil {
		out.PanicHandler = &FatalPanicHandler{Logger: out.Logger}
	}
	if out.Metrics == nil {
		out.Metrics = &NilMetrics{}
	}
	if out.RejectedTaskHandler == nil {
		out.RejectedTaskHandler = &LoggingRejectedTaskHandler{Logger: out.Logger}
	}
	return out
}
