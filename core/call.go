package core

import (
	"context"
	"errors"
)

// Call runs fn as a blocking task under traits and returns its result.
//
// From a fiber the caller is suspended with Block; any other blocking tasks
// it admitted earlier are waited for as well. From a plain goroutine Call
// waits on the task's handle.
func Call[T any](ctx context.Context, s *Scheduler, traits TaskTraits, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	traits.Blocking = true
	h := s.AddTask(ctx, traits, func(taskCtx context.Context) {
		result, err = fn(taskCtx)
	})

	var zero T
	if blockErr := s.Block(ctx); blockErr != nil {
		if !errors.Is(blockErr, ErrNoFiber) && !errors.Is(blockErr, ErrForeignFiber) {
			return zero, blockErr
		}
		if waitErr := h.Wait(ctx); waitErr != nil {
			return zero, waitErr
		}
	}
	if herr := h.Err(); herr != nil {
		return zero, herr
	}
	return result, err
}
