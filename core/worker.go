package core

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Swind/go-fiber-scheduler/internal/osthread"
)

// WorkerInfo identifies the worker hosting a fiber.
type WorkerInfo struct {
	ID       int
	Affinity Affinity
	ThreadID int64
}

// worker is one execution slot of a thread class. A general worker lends its
// slot to pooled fibers; a bound worker runs tasks inline on its own
// OS-thread-locked goroutine.
type worker struct {
	id    int
	class *threadClass
	sched *Scheduler

	// yield receives the slot back from the fiber it was lent to.
	yield chan fiberYield

	threadID atomic.Int64
}

func newWorker(id int, c *threadClass, s *Scheduler) *worker {
	return &worker{
		id:    id,
		class: c,
		sched: s,
		yield: make(chan fiberYield),
	}
}

func (w *worker) info() WorkerInfo {
	return WorkerInfo{
		ID:       w.id,
		Affinity: w.class.affinity,
		ThreadID: w.threadID.Load(),
	}
}

// loop pulls work until stop is closed.
func (w *worker) loop(stop <-chan struct{}) error {
	if w.class.bound {
		// Never unlocked: the thread exits with the worker, taking any
		// context state made current on it.
		runtime.LockOSThread()
	}
	w.threadID.Store(osthread.ID())

	logger := w.sched.logger
	logger.Debug("worker started",
		F("worker", w.id), F("class", w.class.name), F("thread", w.threadID.Load()))
	defer logger.Debug("worker stopped", F("worker", w.id), F("class", w.class.name))

	ticker := time.NewTicker(w.sched.cfg.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		if d, ok := w.class.next(); ok {
			w.run(d)
			continue
		}

		select {
		case <-w.class.signal:
		case <-ticker.C:
		case <-stop:
			return nil
		}
	}
}

// run executes one dispatch on this worker and returns once the slot is free.
func (w *worker) run(d dispatch) {
	c := w.class
	defer c.done()

	if d.fiber != nil {
		w.host(d.fiber)
		return
	}

	w.sched.metrics.RecordQueueDepth(c.name, int(c.queued.Load()))
	if c.bound {
		newInlineFiber(w.sched, c, w, d.item).execute()
		return
	}
	w.host(w.sched.fibers.acquire(w.sched, c, d.item))
}

// host lends the slot to a pooled fiber until it suspends or completes.
func (w *worker) host(f *Fiber) fiberYield {
	f.resume <- w
	return <-w.yield
}

// pump keeps a bound worker busy with its own class's work while the inline
// fiber on top of its stack waits for watch.
func (w *worker) pump(watch *blockWatch) {
	ticker := time.NewTicker(w.sched.cfg.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-watch.done:
			return
		default:
		}

		if d, ok := w.class.next(); ok {
			w.run(d)
			continue
		}

		select {
		case <-watch.done:
			return
		case <-w.class.signal:
		case <-ticker.C:
		}
	}
}
