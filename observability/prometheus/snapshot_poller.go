package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-fiber-scheduler/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

const snapshotNamespace = "fibersched"

// SchedulerSnapshotProvider provides current scheduler stats snapshots.
type SchedulerSnapshotProvider interface {
	Stats() core.SchedulerStats
}

// SnapshotPoller periodically exports scheduler Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	schedulersMu sync.RWMutex
	schedulers   map[string]SchedulerSnapshotProvider

	classQueued  *prom.GaugeVec
	classResumed *prom.GaugeVec
	classRunning *prom.GaugeVec
	classWorkers *prom.GaugeVec

	fibersParked  *prom.GaugeVec
	fibersIdle    *prom.GaugeVec
	fibersCreated *prom.GaugeVec
	fibersReused  *prom.GaugeVec

	tasksCompleted *prom.GaugeVec
	tasksRejected  *prom.GaugeVec
	closed         *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func newSnapshotGauge(name, help string, labels ...string) *prom.GaugeVec {
	return prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: snapshotNamespace,
		Name:      name,
		Help:      help,
	}, labels)
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	p := &SnapshotPoller{
		interval:   interval,
		schedulers: make(map[string]SchedulerSnapshotProvider),

		classQueued:  newSnapshotGauge("class_queued", "Queued tasks per thread class.", "scheduler", "class"),
		classResumed: newSnapshotGauge("class_resumed", "Resumed fibers waiting for a worker per thread class.", "scheduler", "class"),
		classRunning: newSnapshotGauge("class_running", "Work occupying a worker per thread class.", "scheduler", "class"),
		classWorkers: newSnapshotGauge("class_workers", "Worker count per thread class.", "scheduler", "class"),

		fibersParked:  newSnapshotGauge("fibers_parked", "Fibers suspended in Block.", "scheduler"),
		fibersIdle:    newSnapshotGauge("fibers_idle", "Finished fibers kept for reuse.", "scheduler"),
		fibersCreated: newSnapshotGauge("fibers_created_total", "Fiber creation count snapshot.", "scheduler"),
		fibersReused:  newSnapshotGauge("fibers_reused_total", "Fiber reuse count snapshot.", "scheduler"),

		tasksCompleted: newSnapshotGauge("tasks_completed_total", "Completed task count snapshot.", "scheduler"),
		tasksRejected:  newSnapshotGauge("tasks_rejected_total", "Rejected or discarded task count snapshot.", "scheduler"),
		closed:         newSnapshotGauge("scheduler_closed", "Scheduler closed state (1=closed, 0=open).", "scheduler"),
	}

	for _, g := range []**prom.GaugeVec{
		&p.classQueued, &p.classResumed, &p.classRunning, &p.classWorkers,
		&p.fibersParked, &p.fibersIdle, &p.fibersCreated, &p.fibersReused,
		&p.tasksCompleted, &p.tasksRejected, &p.closed,
	} {
		registered, err := registerCollector(reg, *g)
		if err != nil {
			return nil, err
		}
		*g = registered
	}
	return p, nil
}

// AddScheduler adds or replaces a scheduler snapshot provider by name.
func (p *SnapshotPoller) AddScheduler(name string, provider SchedulerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.schedulersMu.Lock()
	p.schedulers[name] = provider
	p.schedulersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.schedulersMu.RLock()
	defer p.schedulersMu.RUnlock()

	for name, provider := range p.schedulers {
		stats := provider.Stats()
		for _, c := range stats.Classes {
			class := normalizeLabel(c.Name, "unknown")
			p.classQueued.WithLabelValues(name, class).Set(float64(c.Queued))
			p.classResumed.WithLabelValues(name, class).Set(float64(c.Resumed))
			p.classRunning.WithLabelValues(name, class).Set(float64(c.Running))
			p.classWorkers.WithLabelValues(name, class).Set(float64(c.Workers))
		}
		p.fibersParked.WithLabelValues(name).Set(float64(stats.Parked))
		p.fibersIdle.WithLabelValues(name).Set(float64(stats.IdleFibers))
		p.fibersCreated.WithLabelValues(name).Set(float64(stats.FibersCreated))
		p.fibersReused.WithLabelValues(name).Set(float64(stats.FibersReused))
		p.tasksCompleted.WithLabelValues(name).Set(float64(stats.Completed))
		p.tasksRejected.WithLabelValues(name).Set(float64(stats.Rejected))
		if stats.State == "closed" {
			p.closed.WithLabelValues(name).Set(1)
		} else {
			p.closed.WithLabelValues(name).Set(0)
		}
	}
}
