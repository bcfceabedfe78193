package remote

import (
	"context"
	"fmt"
	"time"
)

// Attempt records the outcome of one step of AttemptInOrder.
type Attempt[T, R any] struct {
	Item     T
	Value    R
	Err      error
	Duration time.Duration
	// Skipped is true when the step never ran (cancelled or rejected by skip).
	Skipped bool
}

// AttemptInOrder runs fn for each item sequentially and collects every
// outcome; an error or panic in one step never stops the next. skip, when non-nil,
// may reject an item without calling fn. ctx is checked between steps only:
// once it is done the remaining items are recorded as skipped with
// ErrCancelled, while a call already in progress runs to completion.
func AttemptInOrder[T, R any](ctx context.Context, items []T, skip func(T) error, fn func(context.Context, T) (R, error)) []Attempt[T, R] {
	out := make([]Attempt[T, R], 0, len(items))
	for _, item := range items {
		a := Attempt[T, R]{Item: item}
		if ctx.Err() != nil {
			a.Err, a.Skipped = ErrCancelled, true
			out = append(out, a)
			continue
		}
		if skip != nil {
			if err := skip(item); err != nil {
				a.Err, a.Skipped = err, true
				out = append(out, a)
				continue
			}
		}
		start := time.Now()
		a.Value, a.Err = attempt(ctx, item, fn)
		a.Duration = time.Since(start)
		out = append(out, a)
	}
	return out
}

// attempt runs one step, turning a panic into its error.
func attempt[T, R any](ctx context.Context, item T, fn func(context.Context, T) (R, error)) (v R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(context.WithoutCancel(ctx), item)
}
