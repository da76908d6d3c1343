package fibersched

import "github.com/Swind/go-fiber-scheduler/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the fibersched package for most use cases.

// Task is the unit of work (Closure)
type Task = core.Task

// TaskTraits defines task attributes (priority, affinity, launch, blocking)
type TaskTraits = core.TaskTraits

// TaskPriority defines the priority levels for tasks
type TaskPriority = core.TaskPriority

// Affinity selects the thread class that runs a task
type Affinity = core.Affinity

// LaunchMode selects whether an idle worker is woken at admission
type LaunchMode = core.LaunchMode

// TaskHandle tracks completion of an admitted task
type TaskHandle = core.TaskHandle

// Scheduler is the fiber scheduler
type Scheduler = core.Scheduler

// Config is the scheduler startup configuration
type Config = core.Config

// Hooks holds the scheduler's pluggable collaborators
type Hooks = core.Hooks

// Fiber is the execution context of a running task
type Fiber = core.Fiber

type (
	SchedulerStats      = core.SchedulerStats
	ClassStats          = core.ClassStats
	FiberInfo           = core.FiberInfo
	WorkerInfo          = core.WorkerInfo
	TaskExecutionRecord = core.TaskExecutionRecord
	TaskPanicError      = core.TaskPanicError
	FatalError          = core.FatalError
)

// Priority constants
const (
	TaskPriorityIdle   TaskPriority = core.TaskPriorityIdle
	TaskPriorityLow    TaskPriority = core.TaskPriorityLow
	TaskPriorityNormal TaskPriority = core.TaskPriorityNormal
	TaskPriorityHigh   TaskPriority = core.TaskPriorityHigh
)

// Affinity constants
const (
	AffinityAny     Affinity = core.AffinityAny
	AffinityContext Affinity = core.AffinityContext
)

// Launch constants
const (
	LaunchDeferred  LaunchMode = core.LaunchDeferred
	LaunchImmediate LaunchMode = core.LaunchImmediate
)

// Convenience functions for creating TaskTraits
var (
	DefaultTaskTraits = core.DefaultTaskTraits
	TraitsContext     = core.TraitsContext
	TraitsHigh        = core.TraitsHigh
	TraitsLow         = core.TraitsLow
	TraitsIdle        = core.TraitsIdle
)

// Errors
var (
	ErrSchedulerClosed = core.ErrSchedulerClosed
	ErrNoFiber         = core.ErrNoFiber
	ErrForeignFiber    = core.ErrForeignFiber
	ErrAlreadyStarted  = core.ErrAlreadyStarted
)

var (
	DefaultConfig = core.DefaultConfig
	LoadConfig    = core.LoadConfig
	ParseConfig   = core.ParseConfig
	NewScheduler  = core.NewScheduler

	FiberFromContext  = core.FiberFromContext
	WorkerFromContext = core.WorkerFromContext
	Fatalf            = core.Fatalf
)
