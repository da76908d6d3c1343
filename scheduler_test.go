package fibersched

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Swind/go-fiber-scheduler/core"
)

func initTestGlobal(t *testing.T) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 2
	if err := InitGlobalSchedulerWithHooks(cfg, &Hooks{Logger: core.NewNoOpLogger()}); err != nil {
		t.Fatalf("InitGlobalScheduler: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ShutdownGlobalScheduler(ctx); err != nil {
			t.Errorf("ShutdownGlobalScheduler: %v", err)
		}
	})
}

// TestGlobalScheduler_Lifecycle verifies the process-wide scheduler helpers
// Main test items:
// 1. GetGlobalScheduler panics before initialization
// 2. A second InitGlobalScheduler keeps the first instance
// 3. Shutdown uninstalls the scheduler
func TestGlobalScheduler_Lifecycle(t *testing.T) {
	func() {
		defer func() {
			if recover() == nil {
				t.Error("GetGlobalScheduler should panic before initialization")
			}
		}()
		GetGlobalScheduler()
	}()

	initTestGlobal(t)
	first := GetGlobalScheduler()
	if err := InitGlobalScheduler(DefaultConfig()); err != nil {
		t.Fatalf("second InitGlobalScheduler: %v", err)
	}
	if GetGlobalScheduler() != first {
		t.Fatal("second InitGlobalScheduler replaced the scheduler")
	}
	if !first.IsRunning() {
		t.Error("global scheduler should be running")
	}
}

// TestGlobalScheduler_PackageHelpers verifies the package-level wrappers
func TestGlobalScheduler_PackageHelpers(t *testing.T) {
	initTestGlobal(t)

	ctx := Enter(context.Background())
	var ran atomic.Int32
	AddTask(ctx, TraitsContext(), func(ctx context.Context) { ran.Add(1) })
	AddTask(ctx, DefaultTaskTraits(), func(ctx context.Context) { ran.Add(1) })
	if err := Block(ctx); err != nil {
		t.Fatalf("Block: %v", err)
	}
	if ran.Load() != 2 {
		t.Fatalf("ran = %d, want 2", ran.Load())
	}

	v, err := Call(ctx, DefaultTaskTraits(), func(ctx context.Context) (string, error) {
		if FiberFromContext(ctx) == nil {
			return "", errors.New("task has no fiber")
		}
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("Call = %q, %v", v, err)
	}

	if err := Block(context.Background()); !errors.Is(err, ErrNoFiber) {
		t.Errorf("Block without fiber = %v, want ErrNoFiber", err)
	}
}

// TestGlobalScheduler_ShutdownWhileTasksUseHelpers verifies shutdown drains
// tasks that keep admitting work through the package-level helpers
// Main test items:
// 1. A task that calls AddTask, Block and Call after shutdown started still completes
// 2. ShutdownGlobalScheduler returns without hitting its deadline
// 3. The global scheduler is uninstalled afterwards
func TestGlobalScheduler_ShutdownWhileTasksUseHelpers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1
	if err := InitGlobalSchedulerWithHooks(cfg, &Hooks{Logger: core.NewNoOpLogger()}); err != nil {
		t.Fatalf("InitGlobalScheduler: %v", err)
	}
	t.Cleanup(func() { _ = ShutdownGlobalScheduler(context.Background()) })

	started := make(chan struct{})
	release := make(chan struct{})
	var children atomic.Int32
	var called string
	h := AddTask(context.Background(), DefaultTaskTraits(), func(ctx context.Context) {
		close(started)
		<-release
		AddTask(ctx, TraitsContext(), func(ctx context.Context) { children.Add(1) })
		AddTask(ctx, DefaultTaskTraits(), func(ctx context.Context) { children.Add(1) })
		if err := Block(ctx); err != nil {
			t.Errorf("Block: %v", err)
		}
		v, err := Call(ctx, TraitsContext(), func(ctx context.Context) (string, error) { return "linked", nil })
		if err != nil {
			t.Errorf("Call: %v", err)
		}
		called = v
	})
	<-started

	shutdownErr := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownErr <- ShutdownGlobalScheduler(ctx)
	}()

	// Give Shutdown time to start draining before the task touches the helpers.
	time.Sleep(20 * time.Millisecond)
	close(release)

	select {
	case err := <-shutdownErr:
		if err != nil {
			t.Fatalf("ShutdownGlobalScheduler: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("ShutdownGlobalScheduler did not return")
	}

	if err := h.Err(); err != nil {
		t.Fatalf("task error: %v", err)
	}
	if children.Load() != 2 || called != "linked" {
		t.Fatalf("children = %d, called = %q, want 2, linked", children.Load(), called)
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Error("GetGlobalScheduler should panic after shutdown")
			}
		}()
		GetGlobalScheduler()
	}()
}
