package core

import (
	"context"
	"errors"
	"testing"
)

// TestCall_FromGoroutine verifies Call works without a fiber
func TestCall_FromGoroutine(t *testing.T) {
	s := newTestScheduler(t, 1, 1, nil)

	got, err := Call(context.Background(), s, TraitsContext(), func(ctx context.Context) (string, error) {
		return "window-ready", nil
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "window-ready" {
		t.Errorf("Call = %q, want window-ready", got)
	}
}

// TestCall_FromFiber verifies Call suspends a fiber and returns the task's result
// Main test items:
// 1. The value computed on the context thread is returned to the general task
// 2. The function's error is returned unchanged
func TestCall_FromFiber(t *testing.T) {
	s := newTestScheduler(t, 1, 1, nil)
	errCompile := errors.New("compile failed")

	h := s.AddTask(context.Background(), DefaultTaskTraits(), func(ctx context.Context) {
		id, err := Call(ctx, s, TraitsContext(), func(ctx context.Context) (uint32, error) {
			return 7, nil
		})
		if err != nil || id != 7 {
			t.Errorf("Call = %d, %v; want 7, nil", id, err)
		}

		_, err = Call(ctx, s, DefaultTaskTraits(), func(ctx context.Context) (uint32, error) {
			return 0, errCompile
		})
		if !errors.Is(err, errCompile) {
			t.Errorf("Call error = %v, want errCompile", err)
		}
	})
	waitHandles(t, h)
}

// TestCall_Panic verifies a panicking function surfaces as *TaskPanicError
func TestCall_Panic(t *testing.T) {
	s := newTestScheduler(t, 1, 1, nil)

	_, err := Call(context.Background(), s, DefaultTaskTraits(), func(ctx context.Context) (int, error) {
		panic("bad shader")
	})
	var panicErr *TaskPanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Call error = %v, want *TaskPanicError", err)
	}
}

// TestCall_AfterShutdown verifies Call reports ErrSchedulerClosed once closed
func TestCall_AfterShutdown(t *testing.T) {
	s := newTestScheduler(t, 1, 1, nil)
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	_, err := Call(context.Background(), s, DefaultTaskTraits(), func(ctx context.Context) (int, error) {
		return 1, nil
	})
	if !errors.Is(err, ErrSchedulerClosed) {
		t.Fatalf("Call error = %v, want ErrSchedulerClosed", err)
	}
}
