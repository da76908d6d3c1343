package fibersched

import (
	"context"
	"sync"

	"github.com/Swind/go-fiber-scheduler/core"
)

// =============================================================================
// Global Scheduler Helper (Singleton)
// =============================================================================

var (
	globalScheduler *core.Scheduler
	globalMu        sync.Mutex
)

// InitGlobalScheduler creates and starts the process-wide scheduler.
// Calling it again while a scheduler is installed is a no-op.
func InitGlobalScheduler(cfg Config) error {
	return InitGlobalSchedulerWithHooks(cfg, nil)
}

// InitGlobalSchedulerWithHooks is InitGlobalScheduler with custom collaborators.
func InitGlobalSchedulerWithHooks(cfg Config, hooks *Hooks) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalScheduler != nil {
		return nil // Already initialized
	}

	s := core.NewScheduler(cfg, hooks)
	if err := s.Start(context.Background()); err != nil {
		return err
	}
	globalScheduler = s
	return nil
}

// GetGlobalScheduler returns the global scheduler instance.
// It panics if InitGlobalScheduler has not been called.
func GetGlobalScheduler() *core.Scheduler {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalScheduler == nil {
		panic("GlobalScheduler not initialized. Call InitGlobalScheduler() first.")
	}
	return globalScheduler
}

// ShutdownGlobalScheduler uninstalls the global scheduler, then drains and
// stops it. Tasks still running keep the instance they were started on, so
// package-level helpers called from them resolve to the draining scheduler.
func ShutdownGlobalScheduler(ctx context.Context) error {
	globalMu.Lock()
	s := globalScheduler
	globalScheduler = nil
	globalMu.Unlock()

	if s == nil {
		return nil
	}
	return s.Shutdown(ctx)
}

// schedulerFor returns the scheduler owning the fiber in ctx, falling back
// to the global instance.
func schedulerFor(ctx context.Context) *core.Scheduler {
	if f := core.FiberFromContext(ctx); f != nil {
		return f.Scheduler()
	}
	return GetGlobalScheduler()
}

// AddTask admits task on the global scheduler.
func AddTask(ctx context.Context, traits TaskTraits, task Task) *TaskHandle {
	return schedulerFor(ctx).AddTask(ctx, traits, task)
}

// Block suspends the calling fiber of the global scheduler until its
// outstanding blocking tasks complete.
func Block(ctx context.Context) error {
	return schedulerFor(ctx).Block(ctx)
}

// Enter binds an external fiber of the global scheduler to ctx.
func Enter(ctx context.Context) context.Context {
	return schedulerFor(ctx).Enter(ctx)
}

// Call runs fn on the global scheduler and returns its result.
func Call[T any](ctx context.Context, traits TaskTraits, fn func(ctx context.Context) (T, error)) (T, error) {
	return core.Call(ctx, schedulerFor(ctx), traits, fn)
}
