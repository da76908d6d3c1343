package core

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Task is the unit of work (Closure).
// The ctx carries the fiber executing the task; pass it to AddTask and Block
// when the task itself needs to wait on further work.
type Task func(ctx context.Context)

// =============================================================================
// TaskID
// =============================================================================

// TaskID identifies one admitted task. IDs are process-unique and increase
// monotonically in admission order.
type TaskID uint64

var lastTaskID atomic.Uint64

// GenerateTaskID returns the next task id. It never returns zero.
func GenerateTaskID() TaskID {
	return TaskID(lastTaskID.Add(1))
}

func (id TaskID) IsZero() bool { return id == 0 }

func (id TaskID) String() string {
	return fmt.Sprintf("task-%d", uint64(id))
}

// =============================================================================
// TaskTraits: priority, affinity, launch mode, blocking intent
// =============================================================================

type TaskPriority int

const (
	// TaskPriorityIdle: Lowest priority, runs only when nothing else is ready
	TaskPriorityIdle TaskPriority = iota

	// TaskPriorityLow: Background work
	TaskPriorityLow

	// TaskPriorityNormal: Default priority
	TaskPriorityNormal

	// TaskPriorityHigh: Highest priority.
	// Used for work a caller is about to Block on (context creation, linking, uploads).
	TaskPriorityHigh
)

// NumPriorities is the number of priority classes.
const NumPriorities = int(TaskPriorityHigh) + 1

func (p TaskPriority) String() string {
	switch p {
	case TaskPriorityIdle:
		return "idle"
	case TaskPriorityLow:
		return "low"
	case TaskPriorityNormal:
		return "normal"
	case TaskPriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

func clampPriority(p TaskPriority) TaskPriority {
	if p < TaskPriorityIdle {
		return TaskPriorityIdle
	}
	if p > TaskPriorityHigh {
		return TaskPriorityHigh
	}
	return p
}

// Affinity selects the class of worker thread that must execute a task.
type Affinity int

const (
	// AffinityAny: any general worker may run the task.
	AffinityAny Affinity = iota

	// AffinityContext: only a worker bound to the graphics-context thread may run the task.
	AffinityContext
)

// NumAffinities is the number of thread classes.
const NumAffinities = int(AffinityContext) + 1

func (a Affinity) String() string {
	switch a {
	case AffinityAny:
		return "any"
	case AffinityContext:
		return "context"
	default:
		return fmt.Sprintf("affinity(%d)", int(a))
	}
}

func (a Affinity) valid() bool {
	return a >= AffinityAny && a <= AffinityContext
}

// LaunchMode controls how quickly an admitted task is noticed by idle workers.
type LaunchMode int

const (
	// LaunchDeferred: join the back of the priority lane; idle workers pick it up on their next poll.
	LaunchDeferred LaunchMode = iota

	// LaunchImmediate: wake an idle worker of the target class right away.
	LaunchImmediate
)

func (m LaunchMode) String() string {
	if m == LaunchImmediate {
		return "immediate"
	}
	return "deferred"
}

type TaskTraits struct {
	Priority TaskPriority
	Affinity Affinity
	Launch   LaunchMode

	// Blocking marks the task as part of the submitting fiber's next Block batch.
	// Tasks admitted with Blocking unset run fully asynchronously.
	Blocking bool

	// Name is used for history, logs and metrics. Defaults to the function name.
	Name string
}

func DefaultTaskTraits() TaskTraits {
	return TaskTraits{
		Priority: TaskPriorityNormal,
		Affinity: AffinityAny,
		Launch:   LaunchDeferred,
		Blocking: true,
	}
}

// TraitsContext is the traits set used for graphics-context work a caller waits on:
// high priority, context affinity, immediate launch, blocking.
func TraitsContext() TaskTraits {
	return TaskTraits{
		Priority: TaskPriorityHigh,
		Affinity: AffinityContext,
		Launch:   LaunchImmediate,
		Blocking: true,
	}
}

func TraitsHigh() TaskTraits {
	return DefaultTaskTraits().WithPriority(TaskPriorityHigh)
}

func TraitsLow() TaskTraits {
	return DefaultTaskTraits().WithPriority(TaskPriorityLow)
}

func TraitsIdle() TaskTraits {
	return DefaultTaskTraits().WithPriority(TaskPriorityIdle)
}

func (t TaskTraits) WithPriority(p TaskPriority) TaskTraits {
	t.Priority = p
	return t
}

func (t TaskTraits) WithAffinity(a Affinity) TaskTraits {
	t.Affinity = a
	return t
}

func (t TaskTraits) WithLaunch(m LaunchMode) TaskTraits {
	t.Launch = m
	return t
}

func (t TaskTraits) WithBlocking(blocking bool) TaskTraits {
	t.Blocking = blocking
	return t
}

func (t TaskTraits) WithName(name string) TaskTraits {
	t.Name = name
	return t
}

// TaskItem is an admitted task descriptor. It is never mutated after admission;
// completion is tracked by Handle.
type TaskItem struct {
	ID     TaskID
	Task   Task
	Traits TaskTraits
	Handle *TaskHandle
}

// =============================================================================
// Context Helper
// =============================================================================
type fiberKeyType struct{}

var fiberKey fiberKeyType

// FiberFromContext returns the fiber carried by ctx, or nil.
func FiberFromContext(ctx context.Context) *Fiber {
	if ctx == nil {
		return nil
	}
	if v := ctx.Value(fiberKey); v != nil {
		return v.(*Fiber)
	}
	return nil
}

// WorkerFromContext reports the worker currently hosting the fiber carried by ctx.
// It must be called from the fiber's own task body.
func WorkerFromContext(ctx context.Context) (WorkerInfo, bool) {
	f := FiberFromContext(ctx)
	if f == nil || f.host == nil {
		return WorkerInfo{}, false
	}
	return f.host.info(), true
}
