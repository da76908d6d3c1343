package core

import "time"

// TaskExecutionRecord captures a completed task execution event.
type TaskExecutionRecord struct {
	TaskID   TaskID
	Name     string
	Class    string
	FiberID  FiberID
	WorkerID int
	ThreadID int64
	Priority TaskPriority

	StartedAt  time.Time
	FinishedAt time.Time

	// RunTime excludes time the fiber spent suspended in Block.
	RunTime  time.Duration
	Panicked bool
}

// ClassStats is the observable state of one thread class.
type ClassStats struct {
	Name             string
	Affinity         Affinity
	Workers          int
	Queued           int
	QueuedByPriority [NumPriorities]int
	Resumed          int
	Running          int
	ThreadIDs        []int64
}

// FiberInfo describes a fiber parked in Block.
type FiberInfo struct {
	ID          FiberID
	TaskID      TaskID
	TaskName    string
	Class       string
	Priority    TaskPriority
	State       FiberState
	SuspendedAt time.Time
}

// SchedulerStats represents runtime observability state for a scheduler.
type SchedulerStats struct {
	State   string
	Classes [NumAffinities]ClassStats

	Parked       int
	ParkedFibers []FiberInfo

	FibersCreated int64
	FibersReused  int64
	IdleFibers    int

	Completed int64
	Rejected  int64
}

// Queued sums queued tasks across classes.
func (s SchedulerStats) Queued() int {
	n := 0
	for _, c := range s.Classes {
		n += c.Queued
	}
	return n
}

// Running sums dispatched work across classes.
func (s SchedulerStats) Running() int {
	n := 0
	for _, c := range s.Classes {
		n += c.Running
	}
	return n
}
