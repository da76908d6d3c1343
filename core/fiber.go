package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// FiberState is the lifecycle state of one fiber incarnation.
type FiberState int32

const (
	FiberReady FiberState = iota
	FiberRunning
	FiberSuspended
	FiberCompleted
)

func (s FiberState) String() string {
	switch s {
	case FiberReady:
		return "ready"
	case FiberRunning:
		return "running"
	case FiberSuspended:
		return "suspended"
	case FiberCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// FiberID identifies one fiber incarnation. A pooled fiber gets a fresh id each
// time it is handed a new task.
type FiberID uint64

var lastFiberID atomic.Uint64

func nextFiberID() FiberID {
	return FiberID(lastFiberID.Add(1))
}

type fiberKind int

const (
	// fiberPooled runs on its own goroutine and borrows a worker slot while running.
	fiberPooled fiberKind = iota

	// fiberInline runs directly on a context worker's locked goroutine.
	fiberInline

	// fiberExternal represents a goroutine outside the worker pool (see Scheduler.Enter).
	fiberExternal
)

// fiberYield is what a pooled fiber reports when it hands its worker back.
type fiberYield int

const (
	yieldSuspended fiberYield = iota
	yieldCompleted
)

// Fiber is a cooperatively scheduled execution context. Task bodies reach their
// fiber through the ctx they are given; the fiber records every blocking task
// they admit so that Block knows what to wait for.
type Fiber struct {
	id    FiberID
	kind  fiberKind
	sched *Scheduler
	class *threadClass

	state atomic.Int32

	// Owned by the fiber's goroutine while it holds a worker.
	item     TaskItem
	host     *worker
	runStart time.Time
	runTime  time.Duration

	// resume hands a worker to a pooled fiber; closed when the pool retires it.
	resume chan *worker

	mu          sync.Mutex
	outstanding []*TaskHandle
}

func newInlineFiber(s *Scheduler, c *threadClass, w *worker, item TaskItem) *Fiber {
	f := &Fiber{
		id:    nextFiberID(),
		kind:  fiberInline,
		sched: s,
		class: c,
		item:  item,
		host:  w,
	}
	f.state.Store(int32(FiberReady))
	return f
}

func newExternalFiber(s *Scheduler) *Fiber {
	f := &Fiber{
		id:    nextFiberID(),
		kind:  fiberExternal,
		sched: s,
	}
	f.state.Store(int32(FiberRunning))
	return f
}

func (f *Fiber) ID() FiberID { return f.id }

func (f *Fiber) State() FiberState { return FiberState(f.state.Load()) }

// Scheduler returns the scheduler the fiber belongs to.
func (f *Fiber) Scheduler() *Scheduler { return f.sched }

// IsExternal reports whether the fiber was created by Scheduler.Enter.
func (f *Fiber) IsExternal() bool { return f.kind == fiberExternal }

// TaskID returns the id of the task the fiber is executing (zero for external fibers).
func (f *Fiber) TaskID() TaskID { return f.item.ID }

func (f *Fiber) currentTaskName() string {
	if f.kind == fiberExternal {
		return "external"
	}
	return f.item.Traits.Name
}

func (f *Fiber) className() string {
	if f.class == nil {
		return "external"
	}
	return f.class.name
}

func (f *Fiber) workerID() int {
	if f.host == nil {
		return -1
	}
	return f.host.id
}

func (f *Fiber) addOutstanding(h *TaskHandle) {
	f.mu.Lock()
	f.outstanding = append(f.outstanding, h)
	f.mu.Unlock()
}

func (f *Fiber) takeOutstanding() []*TaskHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := f.outstanding
	f.outstanding = nil
	return batch
}

// loop is the body of a pooled fiber's goroutine.
func (f *Fiber) loop() {
	for w := range f.resume {
		f.host = w
		f.execute()

		host := f.host
		keep := f.sched.fibers.release(f)
		host.yield <- yieldCompleted
		if !keep {
			return
		}
	}
}

// execute runs the assigned task exactly once and completes its handle.
func (f *Fiber) execute() {
	s := f.sched
	item := f.item

	f.state.Store(int32(FiberRunning))
	ctx := context.WithValue(s.baseContext(), fiberKey, f)

	startedAt := time.Now()
	f.runStart = startedAt
	f.runTime = 0

	err := s.invoke(ctx, f, item)

	finishedAt := time.Now()
	f.runTime += finishedAt.Sub(f.runStart)
	f.state.Store(int32(FiberCompleted))

	// Blocking tasks the body admitted but never waited on stay asynchronous.
	f.takeOutstanding()

	s.recordExecution(f, item, startedAt, finishedAt, err)
	item.Handle.complete(err)
}

// suspend parks a pooled fiber until watch fires, handing its worker back
// in the meantime. On return the fiber runs on whichever worker resumed it.
func (f *Fiber) suspend(watch *blockWatch) {
	s := f.sched

	f.runTime += time.Since(f.runStart)
	f.state.Store(int32(FiberSuspended))
	s.parkFiber(f)

	if watch.release() {
		// Every watched task finished while the watch was being armed.
		s.unparkFiber(f)
		f.state.Store(int32(FiberRunning))
		f.runStart = time.Now()
		return
	}

	s.logger.Debug("fiber suspended",
		F("fiber", f.id), F("task", f.item.Traits.Name), F("worker", f.host.id))

	host := f.host
	f.host = nil
	host.yield <- yieldSuspended

	w := <-f.resume
	f.host = w
	s.unparkFiber(f)
	f.state.Store(int32(FiberRunning))
	f.runStart = time.Now()
}

// =============================================================================
// fiberPool: reusable pooled fibers
// =============================================================================

type fiberPool struct {
	mu      sync.Mutex
	idle    []*Fiber
	maxIdle int
	closed  bool

	created atomic.Int64
	reused  atomic.Int64
}

func newFiberPool(maxIdle int) *fiberPool {
	return &fiberPool{maxIdle: maxIdle}
}

// acquire returns a fiber bound to item, reusing an idle one when available.
func (p *fiberPool) acquire(s *Scheduler, c *threadClass, item TaskItem) *Fiber {
	var f *Fiber
	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		f = p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
	}
	p.mu.Unlock()

	if f != nil {
		p.reused.Add(1)
	} else {
		f = &Fiber{
			kind:   fiberPooled,
			sched:  s,
			resume: make(chan *worker),
		}
		p.created.Add(1)
		go f.loop()
	}

	f.id = nextFiberID()
	f.class = c
	f.item = item
	f.state.Store(int32(FiberReady))
	return f
}

// release resets f and parks it for reuse. It reports false when the pool is
// full or closed, in which case the fiber's goroutine must exit.
func (p *fiberPool) release(f *Fiber) bool {
	f.item = TaskItem{}
	f.host = nil
	f.runTime = 0

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || len(p.idle) >= p.maxIdle {
		return false
	}
	p.idle = append(p.idle, f)
	return true
}

func (p *fiberPool) idleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// close retires every idle fiber; fibers released afterwards exit.
func (p *fiberPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for i, f := range p.idle {
		close(f.resume)
		p.idle[i] = nil
	}
	p.idle = nil
}
