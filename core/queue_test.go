package core

import (
	"testing"
)

// TestFIFOQueue_Order verifies FIFO ordering
// Given: A queue with three pushed values
// When: Values are popped
// Then: They come out in insertion order and the queue ends empty
func TestFIFOQueue_Order(t *testing.T) {
	// Arrange
	q := NewFIFOQueue[string]()
	if _, ok := q.Pop(); ok {
		t.Fatal("Pop on an empty queue should report false")
	}

	// Act
	q.Push("T1")
	q.Push("T2")
	q.Push("T3")

	// Assert
	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3", q.Len())
	}
	for i, want := range []string{"T1", "T2", "T3"} {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Errorf("Step %d: Pop = %q, %v, want %q", i, got, ok, want)
		}
	}
	if !q.IsEmpty() {
		t.Error("queue should be empty")
	}
}

// TestPriorityQueues_PopHighest verifies priority-based ordering
// Given: Lanes holding mixed-priority values
// When: PopHighest is called repeatedly
// Then: Values come out High > Normal > Low > Idle with FIFO inside a lane
func TestPriorityQueues_PopHighest(t *testing.T) {
	// Arrange
	pq := NewPriorityQueues[string]()
	pq.Push(TaskPriorityLow, "Low-1")
	pq.Push(TaskPriorityHigh, "High-1")
	pq.Push(TaskPriorityIdle, "Idle-1")
	pq.Push(TaskPriorityNormal, "Normal-1")
	pq.Push(TaskPriorityHigh, "High-2")
	pq.Push(TaskPriorityLow, "Low-2")

	expected := []string{"High-1", "High-2", "Normal-1", "Low-1", "Low-2", "Idle-1"}

	// Act and Assert
	for i, want := range expected {
		got, _, ok := pq.PopHighest()
		if !ok {
			t.Fatalf("Step %d: queues empty, want %s", i, want)
		}
		if got != want {
			t.Errorf("Step %d: got %s, want %s", i, got, want)
		}
	}
	if _, _, ok := pq.PopHighest(); ok {
		t.Error("PopHighest on empty queues should report false")
	}
}

// TestPriorityQueues_Clamp verifies out-of-range priorities land in the edge lanes
func TestPriorityQueues_Clamp(t *testing.T) {
	pq := NewPriorityQueues[int]()
	pq.Push(TaskPriority(99), 1)
	pq.Push(TaskPriority(-5), 2)
	pq.Push(TaskPriorityNormal, 3)

	if pq.LenAt(TaskPriorityHigh) != 1 {
		t.Errorf("LenAt(High) = %d, want 1", pq.LenAt(TaskPriorityHigh))
	}
	if pq.LenAt(TaskPriorityIdle) != 1 {
		t.Errorf("LenAt(Idle) = %d, want 1", pq.LenAt(TaskPriorityIdle))
	}
	if v, ok := pq.PopAt(TaskPriority(99)); !ok || v != 1 {
		t.Errorf("PopAt(99) = %d, %v, want 1, true", v, ok)
	}
	if pq.Len() != 2 {
		t.Errorf("Len = %d, want 2", pq.Len())
	}
}
