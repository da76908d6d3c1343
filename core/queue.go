package core

import (
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// =============================================================================
// FIFOQueue: mutex-protected FIFO over a gods linked-list queue
// =============================================================================

type FIFOQueue[T any] struct {
	mu sync.Mutex
	q  *linkedlistqueue.Queue
}

func NewFIFOQueue[T any]() *FIFOQueue[T] {
	return &FIFOQueue[T]{q: linkedlistqueue.New()}
}

func (q *FIFOQueue[T]) Push(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.q.Enqueue(v)
}

func (q *FIFOQueue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	v, ok := q.q.Dequeue()
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

func (q *FIFOQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.q.Size()
}

func (q *FIFOQueue[T]) IsEmpty() bool {
	return q.Len() == 0
}

// =============================================================================
// PriorityQueues: one FIFO lane per priority class
// =============================================================================

// PriorityQueues keeps one FIFO lane per TaskPriority.
// PopHighest always serves the highest non-empty lane, oldest element first.
type PriorityQueues[T any] struct {
	lanes [NumPriorities]*FIFOQueue[T]
}

func NewPriorityQueues[T any]() *PriorityQueues[T] {
	pq := &PriorityQueues[T]{}
	for i := range pq.lanes {
		pq.lanes[i] = NewFIFOQueue[T]()
	}
	return pq
}

func (pq *PriorityQueues[T]) Push(p TaskPriority, v T) {
	pq.lanes[clampPriority(p)].Push(v)
}

// PopHighest pops the oldest element of the highest non-empty lane.
func (pq *PriorityQueues[T]) PopHighest() (T, TaskPriority, bool) {
	for p := TaskPriorityHigh; p >= TaskPriorityIdle; p-- {
		if v, ok := pq.lanes[p].Pop(); ok {
			return v, p, true
		}
	}
	var zero T
	return zero, 0, false
}

// PopAt pops the oldest element of lane p.
func (pq *PriorityQueues[T]) PopAt(p TaskPriority) (T, bool) {
	return pq.lanes[clampPriority(p)].Pop()
}

func (pq *PriorityQueues[T]) LenAt(p TaskPriority) int {
	return pq.lanes[clampPriority(p)].Len()
}

func (pq *PriorityQueues[T]) Len() int {
	n := 0
	for _, lane := range pq.lanes {
		n += lane.Len()
	}
	return n
}

func (pq *PriorityQueues[T]) IsEmpty() bool {
	return pq.Len() == 0
}
