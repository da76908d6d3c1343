package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// TestTaskHandle_CompleteOnce verifies a handle completes exactly once
// Main test items:
// 1. Done is closed and IsCompleted reports true
// 2. A second complete does not overwrite the first error
// 3. Wait returns the recorded error
func TestTaskHandle_CompleteOnce(t *testing.T) {
	h := newTaskHandle(GenerateTaskID(), DefaultTaskTraits())
	if h.IsCompleted() {
		t.Fatal("new handle should not be completed")
	}

	h.complete(ErrSchedulerClosed)
	h.complete(nil)

	select {
	case <-h.Done():
	default:
		t.Fatal("Done should be closed after complete")
	}
	if !errors.Is(h.Err(), ErrSchedulerClosed) {
		t.Errorf("Err = %v, want ErrSchedulerClosed", h.Err())
	}
	if err := h.Wait(context.Background()); !errors.Is(err, ErrSchedulerClosed) {
		t.Errorf("Wait = %v, want ErrSchedulerClosed", err)
	}
}

// TestTaskHandle_WaitHonorsContext verifies Wait gives up when ctx is done
func TestTaskHandle_WaitHonorsContext(t *testing.T) {
	h := newTaskHandle(GenerateTaskID(), DefaultTaskTraits())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := h.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait = %v, want context.DeadlineExceeded", err)
	}
}

// TestBlockWatch_GuardReference verifies the watch counts handles plus a guard
// Given: A watch over two handles, one already completed before registration
// When: The guard and the remaining handle are released
// Then: onReady fires only when a handle completion is the last reference
func TestBlockWatch_GuardReference(t *testing.T) {
	// Arrange
	var ready atomic.Int32
	done := newTaskHandle(GenerateTaskID(), DefaultTaskTraits())
	pending := newTaskHandle(GenerateTaskID(), DefaultTaskTraits())
	done.complete(nil)

	w := newBlockWatch(2, func() { ready.Add(1) })

	// Act
	if done.watch(w) {
		t.Fatal("watch on a completed handle should report false")
	}
	w.release()
	if !pending.watch(w) {
		t.Fatal("watch on a pending handle should report true")
	}
	if w.release() {
		t.Fatal("guard release must not be last while a handle is pending")
	}
	pending.complete(nil)

	// Assert
	if ready.Load() != 1 {
		t.Fatalf("onReady calls = %d, want 1", ready.Load())
	}
	select {
	case <-w.done:
	default:
		t.Fatal("watch done channel should be closed")
	}
}

// TestBlockWatch_GuardLast verifies onReady is skipped when the guard is last
func TestBlockWatch_GuardLast(t *testing.T) {
	var ready atomic.Int32
	h := newTaskHandle(GenerateTaskID(), DefaultTaskTraits())
	w := newBlockWatch(1, func() { ready.Add(1) })

	if !h.watch(w) {
		t.Fatal("watch on a pending handle should report true")
	}
	h.complete(nil)

	if !w.release() {
		t.Fatal("guard release should be the last reference")
	}
	if ready.Load() != 0 {
		t.Fatalf("onReady calls = %d, want 0", ready.Load())
	}
}
