package core

import (
	"sync"
	"sync/atomic"
)

// threadClass is the set of workers serving one affinity together with the
// queues only those workers pull from. Context work is never visible to
// general workers and vice versa.
type threadClass struct {
	affinity Affinity
	name     string

	// bound workers lock their goroutine to one OS thread and run tasks inline.
	bound bool

	mu      sync.Mutex
	tasks   *PriorityQueues[TaskItem]
	resumed *PriorityQueues[*Fiber]

	signal  chan struct{}
	workers []*worker

	queued  atomic.Int32 // admitted, not yet dequeued
	running atomic.Int32 // dequeued, still occupying a worker
}

func newThreadClass(affinity Affinity, workerCount int, bound bool) *threadClass {
	return &threadClass{
		affinity: affinity,
		name:     affinity.String(),
		bound:    bound,
		tasks:    NewPriorityQueues[TaskItem](),
		resumed:  NewPriorityQueues[*Fiber](),
		signal:   make(chan struct{}, workerCount*2),
	}
}

// push enqueues an admitted task and returns the class's queue depth.
func (c *threadClass) push(item TaskItem) int {
	c.mu.Lock()
	c.tasks.Push(item.Traits.Priority, item)
	depth := c.queued.Add(1)
	c.mu.Unlock()

	if item.Traits.Launch == LaunchImmediate {
		c.wake()
	}
	return int(depth)
}

// pushResumed makes a suspended fiber runnable again. Resumed fibers always
// wake a worker; they already hold stack state and should not wait for a poll.
func (c *threadClass) pushResumed(f *Fiber, priority TaskPriority) {
	f.state.Store(int32(FiberReady))

	c.mu.Lock()
	c.resumed.Push(priority, f)
	c.mu.Unlock()

	c.wake()
}

// dispatch is one unit of work handed to a worker: either a resumed fiber or
// a fresh task.
type dispatch struct {
	fiber *Fiber
	item  TaskItem
}

// next pops the highest-priority work. Within a priority level, resumed
// fibers go before fresh tasks; each lane is FIFO. The returned work is
// counted as running until the worker calls done.
func (c *threadClass) next() (dispatch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for p := TaskPriorityHigh; p >= TaskPriorityIdle; p-- {
		if f, ok := c.resumed.PopAt(p); ok {
			c.running.Add(1)
			return dispatch{fiber: f}, true
		}
		if item, ok := c.tasks.PopAt(p); ok {
			c.queued.Add(-1)
			c.running.Add(1)
			return dispatch{item: item}, true
		}
	}
	return dispatch{}, false
}

func (c *threadClass) done() {
	c.running.Add(-1)
}

func (c *threadClass) wake() {
	select {
	case c.signal <- struct{}{}:
	default:
		// Signal channel full; an idle worker will still find the work.
	}
}

// drainTasks removes every queued (not yet dequeued) task, highest priority first.
func (c *threadClass) drainTasks() []TaskItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	var items []TaskItem
	for {
		item, _, ok := c.tasks.PopHighest()
		if !ok {
			break
		}
		items = append(items, item)
	}
	c.queued.Add(-int32(len(items)))
	return items
}

func (c *threadClass) idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tasks.IsEmpty() && c.resumed.IsEmpty() && c.running.Load() == 0
}

// stats snapshots the class. withWorkers may only be set once the worker
// slice is final.
func (c *threadClass) stats(withWorkers bool) ClassStats {
	c.mu.Lock()
	var byPriority [NumPriorities]int
	for p := TaskPriorityIdle; p <= TaskPriorityHigh; p++ {
		byPriority[p] = c.tasks.LenAt(p)
	}
	resumed := c.resumed.Len()
	c.mu.Unlock()

	var threads []int64
	if withWorkers {
		for _, w := range c.workers {
			threads = append(threads, w.threadID.Load())
		}
	}

	return ClassStats{
		Name:             c.name,
		Affinity:         c.affinity,
		Workers:          len(threads),
		Queued:           int(c.queued.Load()),
		QueuedByPriority: byPriority,
		Resumed:          resumed,
		Running:          int(c.running.Load()),
		ThreadIDs:        threads,
	}
}
