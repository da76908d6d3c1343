package core

import (
	"context"
	"sync"
	"sync/atomic"
)

// TaskHandle tracks the completion of one admitted task.
type TaskHandle struct {
	id     TaskID
	traits TaskTraits
	done   chan struct{}

	mu        sync.Mutex
	completed bool
	err       error
	watchers  []*blockWatch
}

func newTaskHandle(id TaskID, traits TaskTraits) *TaskHandle {
	return &TaskHandle{
		id:     id,
		traits: traits,
		done:   make(chan struct{}),
	}
}

func (h *TaskHandle) ID() TaskID { return h.id }

func (h *TaskHandle) Traits() TaskTraits { return h.traits }

// Done is closed once the task has finished running (or was discarded).
func (h *TaskHandle) Done() <-chan struct{} { return h.done }

func (h *TaskHandle) IsCompleted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.completed
}

// Err returns the task's failure, if any: a *TaskPanicError when the task
// panicked, or ErrSchedulerClosed when it was rejected or discarded.
// It returns nil before completion.
func (h *TaskHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Wait blocks the calling goroutine until the task completes or ctx is done.
// Fibers should use Scheduler.Block instead, which releases their worker.
func (h *TaskHandle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *TaskHandle) complete(err error) {
	h.mu.Lock()
	if h.completed {
		h.mu.Unlock()
		return
	}
	h.completed = true
	h.err = err
	watchers := h.watchers
	h.watchers = nil
	close(h.done)
	h.mu.Unlock()

	for _, w := range watchers {
		w.notify()
	}
}

// watch registers w for completion. It returns false if the task has already completed,
// in which case w is not notified.
func (h *TaskHandle) watch(w *blockWatch) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.completed {
		return false
	}
	h.watchers = append(h.watchers, w)
	return true
}

// =============================================================================
// blockWatch: completion counter for one Block call
// =============================================================================

// blockWatch counts the outstanding handles of one Block call plus one guard
// reference held by the blocking fiber while it registers. The count reaching
// zero closes done; onReady runs only when a handle completion (not the guard)
// is the last reference.
type blockWatch struct {
	remaining atomic.Int32
	done      chan struct{}
	onReady   func()
}

func newBlockWatch(handles int, onReady func()) *blockWatch {
	w := &blockWatch{
		done:    make(chan struct{}),
		onReady: onReady,
	}
	w.remaining.Store(int32(handles) + 1)
	return w
}

// release drops one reference and reports whether it was the last.
func (w *blockWatch) release() bool {
	if w.remaining.Add(-1) == 0 {
		close(w.done)
		return true
	}
	return false
}

func (w *blockWatch) notify() {
	if w.release() && w.onReady != nil {
		w.onReady()
	}
}
