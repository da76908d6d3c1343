package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"golang.org/x/sync/errgroup"
)

type schedulerState int32

const (
	stateCreated schedulerState = iota
	stateRunning
	stateDraining
	stateClosed
)

func (s schedulerState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateRunning:
		return "running"
	case stateDraining:
		return "draining"
	case stateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Scheduler runs prioritized tasks on fibers spread over two thread classes:
// general workers (AffinityAny) and workers bound to the graphics-context
// thread (AffinityContext). A task running on a fiber may admit more tasks and
// Block until they finish without tying up its worker.
type Scheduler struct {
	cfg     Config
	classes [NumAffinities]*threadClass
	fibers  *fiberPool
	parked  *parkedTable
	history *executionHistory

	logger              Logger
	panicHandler        PanicHandler
	metrics             Metrics
	rejectedTaskHandler RejectedTaskHandler

	// admitMu orders admissions against the transition to closed: no task
	// is queued after Shutdown has discarded the queues.
	admitMu sync.RWMutex
	state   atomic.Int32

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	stop        chan struct{}
	group       *errgroup.Group

	// started is set once the worker slices are final.
	started atomic.Bool

	completed atomic.Int64
	rejected  atomic.Int64
}

// NewScheduler creates a scheduler. Workers are not started until Start.
// Tasks admitted before Start stay queued.
func NewScheduler(cfg Config, hooks *Hooks) *Scheduler {
	cfg = cfg.normalized()
	h := hooks.withDefaults(cfg)

	s := &Scheduler{
		cfg:                 cfg,
		fibers:              newFiberPool(cfg.MaxIdleFibers),
		parked:              newParkedTable(),
		history:             newExecutionHistory(cfg.HistoryCapacity),
		logger:              h.Logger,
		panicHandler:        h.PanicHandler,
		metrics:             h.Metrics,
		rejectedTaskHandler: h.RejectedTaskHandler,
		ctx:                 context.Background(),
		cancel:              func() {},
		stop:                make(chan struct{}),
	}
	s.classes[AffinityAny] = newThreadClass(AffinityAny, cfg.Workers, false)
	s.classes[AffinityContext] = newThreadClass(AffinityContext, cfg.ContextWorkers, true)
	return s
}

// Start launches the worker threads. ctx becomes the parent of every task
// context; it is canceled when Shutdown completes.
func (s *Scheduler) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if schedulerState(s.state.Load()) != stateCreated {
		return ErrAlreadyStarted
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.group = new(errgroup.Group)

	nextID := 0
	for _, c := range s.classes {
		workerCount := s.cfg.Workers
		if c.bound {
			workerCount = s.cfg.ContextWorkers
		}
		for range workerCount {
			w := newWorker(nextID, c, s)
			nextID++
			c.workers = append(c.workers, w)
			s.group.Go(func() error { return w.loop(s.stop) })
		}
	}

	s.started.Store(true)
	s.state.Store(int32(stateRunning))
	s.logger.Info("scheduler started",
		F("workers", s.cfg.Workers), F("context_workers", s.cfg.ContextWorkers))
	return nil
}

func (s *Scheduler) baseContext() context.Context {
	return s.ctx
}

// AddTask admits task under traits and returns its handle immediately.
//
// When ctx carries a fiber of this scheduler and traits.Blocking is set, the
// task joins that fiber's outstanding batch and the next Block waits for it.
// A nil task or an unknown affinity is a programming error and panics.
func (s *Scheduler) AddTask(ctx context.Context, traits TaskTraits, task Task) *TaskHandle {
	if task == nil {
		panic("fibersched: AddTask called with a nil task")
	}
	if !traits.Affinity.valid() {
		panic(fmt.Sprintf("fibersched: AddTask called with unknown affinity %d", int(traits.Affinity)))
	}
	traits.Priority = clampPriority(traits.Priority)
	traits.Name = resolveTaskName(task, traits.Name)

	f := FiberFromContext(ctx)
	if f != nil && f.sched != s {
		f = nil
	}

	id := GenerateTaskID()
	h := newTaskHandle(id, traits)
	if traits.Blocking && f != nil {
		f.addOutstanding(h)
	}

	c := s.classes[traits.Affinity]

	s.admitMu.RLock()
	defer s.admitMu.RUnlock()

	if reason, ok := s.admissible(f); !ok {
		s.rejected.Add(1)
		s.rejectedTaskHandler.HandleRejectedTask(c.name, traits.Name, reason)
		s.metrics.RecordTaskRejected(c.name, reason)
		h.complete(ErrSchedulerClosed)
		return h
	}

	depth := c.push(TaskItem{ID: id, Task: task, Traits: traits, Handle: h})
	s.metrics.RecordQueueDepth(c.name, depth)
	return h
}

// admissible decides whether a caller running on f may admit work.
// Fibers hosted by workers may keep admitting while the scheduler drains so
// in-flight work can finish; everybody else is turned away.
func (s *Scheduler) admissible(f *Fiber) (string, bool) {
	switch schedulerState(s.state.Load()) {
	case stateClosed:
		return "scheduler closed", false
	case stateDraining:
		if f == nil || f.kind == fiberExternal {
			return "scheduler draining", false
		}
	}
	return "", true
}

// Block suspends the calling fiber until every blocking task it admitted
// since its previous Block has completed. With nothing outstanding it
// returns immediately.
//
// A pooled fiber hands its worker back while it waits. A fiber on a context
// worker cannot leave its locked thread, so it runs other context work on
// top of its own stack in the meantime. Those nested tasks finish last in,
// first out: the blocked fiber only resumes once every task nested above it
// has returned, and a nested task waiting on something the blocked fiber
// produces after it resumes deadlocks the thread.
// An external fiber (see Enter) simply waits, and gives up when ctx is done.
func (s *Scheduler) Block(ctx context.Context) error {
	f := FiberFromContext(ctx)
	if f == nil {
		return ErrNoFiber
	}
	if f.sched != s {
		return ErrForeignFiber
	}

	batch := f.takeOutstanding()
	if len(batch) == 0 {
		return nil
	}
	startedAt := time.Now()

	var onReady func()
	if f.kind == fiberPooled {
		c, priority := f.class, f.item.Traits.Priority
		onReady = func() { c.pushResumed(f, priority) }
	}

	watch := newBlockWatch(len(batch), onReady)
	for _, h := range batch {
		if !h.watch(watch) {
			watch.release()
		}
	}

	var err error
	switch f.kind {
	case fiberPooled:
		f.suspend(watch)
	case fiberInline:
		if !watch.release() {
			f.state.Store(int32(FiberSuspended))
			f.host.pump(watch)
			f.state.Store(int32(FiberRunning))
		}
	case fiberExternal:
		if !watch.release() {
			select {
			case <-watch.done:
			case <-ctx.Done():
				err = ctx.Err()
			}
		}
	}

	s.metrics.RecordBlockDuration(f.className(), time.Since(startedAt))
	return err
}

// Enter returns a context carrying a new external fiber, for goroutines that
// are not scheduler workers but want to admit tasks and Block on them.
func (s *Scheduler) Enter(ctx context.Context) context.Context {
	return context.WithValue(ctx, fiberKey, newExternalFiber(s))
}

// invoke runs the task body, converting a panic into a *TaskPanicError after
// the PanicHandler has seen it.
func (s *Scheduler) invoke(ctx context.Context, f *Fiber, item TaskItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			className := f.className()
			s.metrics.RecordTaskPanic(className, r)
			s.panicHandler.HandlePanic(ctx, className, f.workerID(), r, stack)
			err = &TaskPanicError{TaskID: item.ID, Name: item.Traits.Name, Value: r, Stack: stack}
		}
	}()

	item.Task(ctx)
	return nil
}

func (s *Scheduler) recordExecution(f *Fiber, item TaskItem, startedAt, finishedAt time.Time, err error) {
	var threadID int64
	workerID := -1
	if f.host != nil {
		workerID = f.host.id
		threadID = f.host.threadID.Load()
	}
	_, panicked := err.(*TaskPanicError)

	s.history.Add(TaskExecutionRecord{
		TaskID:     item.ID,
		Name:       item.Traits.Name,
		Class:      f.className(),
		FiberID:    f.id,
		WorkerID:   workerID,
		ThreadID:   threadID,
		Priority:   item.Traits.Priority,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		RunTime:    f.runTime,
		Panicked:   panicked,
	})
	s.completed.Add(1)
	s.metrics.RecordTaskDuration(f.className(), item.Traits.Priority, f.runTime)
}

// =============================================================================
// Shutdown
// =============================================================================

// Shutdown stops admissions from outside the scheduler, waits until every
// admitted task has run (tasks may still admit and Block while draining), then
// stops the workers.
//
// If ctx is done before the scheduler drains, queued tasks are discarded with
// ErrSchedulerClosed; running and suspended tasks are still allowed to finish.
// Shutdown must not be called from a task.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	switch schedulerState(s.state.Load()) {
	case stateClosed:
		return nil
	case stateCreated:
		s.closeAdmission()
		if n := s.discardQueued(); n > 0 {
			s.logger.Warn("scheduler closed before start, queued tasks discarded", F("discarded", n))
		}
		s.fibers.close()
		return nil
	}

	s.state.Store(int32(stateDraining))
	s.logger.Info("scheduler draining")

	drainErr := s.awaitDrained(ctx)

	s.closeAdmission()
	close(s.stop)
	if n := s.discardQueued(); n > 0 {
		s.logger.Warn("shutdown deadline reached, queued tasks discarded", F("discarded", n))
	}

	joined := make(chan error, 1)
	go func() { joined <- s.group.Wait() }()
	joinErr := s.hostStragglers(joined)

	s.fibers.close()
	s.cancel()

	s.logger.Info("scheduler stopped",
		F("completed", s.completed.Load()), F("rejected", s.rejected.Load()))

	if drainErr != nil {
		return fmt.Errorf("fibersched: shutdown before drain: %w", drainErr)
	}
	return joinErr
}

func (s *Scheduler) closeAdmission() {
	s.admitMu.Lock()
	s.state.Store(int32(stateClosed))
	s.admitMu.Unlock()
}

func (s *Scheduler) drained() bool {
	for _, c := range s.classes {
		if !c.idle() {
			return false
		}
	}
	return s.parked.size() == 0
}

func (s *Scheduler) awaitDrained(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.pollInterval())
	defer ticker.Stop()

	for {
		if s.drained() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// discardQueued completes every queued task with ErrSchedulerClosed.
func (s *Scheduler) discardQueued() int {
	n := 0
	for _, c := range s.classes {
		for _, item := range c.drainTasks() {
			s.rejected.Add(1)
			s.metrics.RecordTaskRejected(c.name, "discarded")
			item.Handle.complete(ErrSchedulerClosed)
			n++
		}
	}
	return n
}

// hostStragglers runs fibers that resume after the general workers have
// stopped, until the workers are joined and no fiber is parked. Without it a
// context worker pumping for such a fiber could never be joined.
func (s *Scheduler) hostStragglers(joined <-chan error) error {
	ticker := time.NewTicker(s.cfg.pollInterval())
	defer ticker.Stop()

	var joinErr error
	stragglers := make(map[Affinity]*worker)
	for {
		if joined == nil && s.parked.size() == 0 {
			return joinErr
		}

		progressed := false
		for _, c := range s.classes {
			if c.bound {
				continue
			}
			d, ok := c.next()
			if !ok {
				continue
			}
			w := stragglers[c.affinity]
			if w == nil {
				w = newWorker(-1, c, s)
				stragglers[c.affinity] = w
			}
			w.run(d)
			progressed = true
		}
		if progressed {
			continue
		}

		select {
		case err := <-joined:
			joinErr = err
			joined = nil
		case <-ticker.C:
		}
	}
}

// =============================================================================
// Observability
// =============================================================================

// Stats returns a point-in-time view of the scheduler.
func (s *Scheduler) Stats() SchedulerStats {
	stats := SchedulerStats{
		State:         schedulerState(s.state.Load()).String(),
		ParkedFibers:  s.parked.snapshot(),
		FibersCreated: s.fibers.created.Load(),
		FibersReused:  s.fibers.reused.Load(),
		IdleFibers:    s.fibers.idleCount(),
		Completed:     s.completed.Load(),
		Rejected:      s.rejected.Load(),
	}
	stats.Parked = len(stats.ParkedFibers)
	started := s.started.Load()
	for i, c := range s.classes {
		stats.Classes[i] = c.stats(started)
	}
	return stats
}

// RecentTasks returns up to limit of the most recent executions, newest first.
// limit <= 0 returns everything retained.
func (s *Scheduler) RecentTasks(limit int) []TaskExecutionRecord {
	return s.history.Recent(limit)
}

// LastTask returns the most recent execution.
func (s *Scheduler) LastTask() (TaskExecutionRecord, bool) {
	return s.history.Last()
}

func (s *Scheduler) Config() Config { return s.cfg }

func (s *Scheduler) Logger() Logger { return s.logger }

func (s *Scheduler) IsRunning() bool {
	return schedulerState(s.state.Load()) == stateRunning
}

func (s *Scheduler) IsClosed() bool {
	return schedulerState(s.state.Load()) == stateClosed
}

func (s *Scheduler) parkFiber(f *Fiber) {
	s.parked.add(f, FiberInfo{
		ID:          f.id,
		TaskID:      f.item.ID,
		TaskName:    f.item.Traits.Name,
		Class:       f.className(),
		Priority:    f.item.Traits.Priority,
		SuspendedAt: time.Now(),
	})
}

func (s *Scheduler) unparkFiber(f *Fiber) {
	s.parked.remove(f.id)
}

// =============================================================================
// parkedTable: fibers suspended in Block, ordered by fiber id
// =============================================================================

type parkedEntry struct {
	fiber *Fiber
	info  FiberInfo
}

type parkedTable struct {
	mu sync.Mutex
	m  *treemap.Map
}

func newParkedTable() *parkedTable {
	return &parkedTable{m: treemap.NewWith(utils.UInt64Comparator)}
}

func (t *parkedTable) add(f *Fiber, info FiberInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m.Put(uint64(info.ID), parkedEntry{fiber: f, info: info})
}

func (t *parkedTable) remove(id FiberID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m.Remove(uint64(id))
}

func (t *parkedTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.m.Size()
}

func (t *parkedTable) snapshot() []FiberInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]FiberInfo, 0, t.m.Size())
	it := t.m.Iterator()
	for it.Next() {
		e := it.Value().(parkedEntry)
		info := e.info
		info.State = e.fiber.State()
		out = append(out, info)
	}
	return out
}
