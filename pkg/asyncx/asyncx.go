package asyncx

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// ─── Results ─────────────────────────────────────────────────────────────────

// Result holds the outcome of a single settled async operation.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the result carries no error.
func (r Result[T]) OK() bool { return r.Err == nil }

// PanicError is returned in place of a value when a function panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// safeCall runs fn and converts a panic into a *PanicError.
func safeCall[T any](ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx)
}

// ─── Fan-out ─────────────────────────────────────────────────────────────────

// AllSettled runs all fns concurrently and waits for every one to finish.
// It never short-circuits and always returns one Result per fn, in order.
// A panicking fn settles with a *PanicError.
func AllSettled[T any](ctx context.Context, fns ...func(context.Context) (T, error)) []Result[T] {
	results := make([]Result[T], len(fns))
	var wg sync.WaitGroup
	wg.Add(len(fns))

	for i, fn := range fns {
		i, fn := i, fn
		go func() {
			defer wg.Done()
			v, err := safeCall(ctx, fn)
			results[i] = Result[T]{Value: v, Err: err}
		}()
	}
	wg.Wait()
	return results
}

// PoolSettled processes items using at most workers goroutines and returns
// one Result per item in the original order. Unlike a fail-fast pool every
// item is attempted; errors and panics are captured per item.
func PoolSettled[T any, R any](
	ctx context.Context,
	workers int,
	items []T,
	fn func(context.Context, T) (R, error),
) []Result[R] {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	work := make(chan int, len(items))
	for i := range items {
		work <- i
	}
	close(work)

	results := make([]Result[R], len(items))

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range work {
				v, err := safeCall(ctx, func(ctx context.Context) (R, error) {
					return fn(ctx, items[i])
				})
				results[i] = Result[R]{Value: v, Err: err}
			}
		}()
	}
	wg.Wait()
	return results
}

// Chunk splits items into consecutive slices of at most size elements.
// The returned slices share the backing array of items.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// ─── Timing ──────────────────────────────────────────────────────────────────

// Sleep pauses for d or until ctx is done, whichever comes first.
// It returns ctx.Err() when interrupted.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ─── Retry ───────────────────────────────────────────────────────────────────

// RetryWithBackoff calls fn up to attempts times with exponential backoff
// starting at initialDelay. The delay doubles after each failed attempt.
// Respects context cancellation between retries.
func RetryWithBackoff[T any](
	ctx context.Context,
	attempts int,
	initialDelay time.Duration,
	fn func(context.Context) (T, error),
) (T, error) {
	var (
		zero  T
		err   error
		val   T
		delay = initialDelay
	)
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		val, err = safeCall(ctx, fn)
		if err == nil {
			return val, nil
		}

		if i < attempts-1 {
			if sleepErr := Sleep(ctx, delay); sleepErr != nil {
				return zero, sleepErr
			}
			delay *= 2
		}
	}
	return zero, err
}

// ─── Timeout ─────────────────────────────────────────────────────────────────

// WithTimeout runs fn with a deadline of d.
// Returns context.DeadlineExceeded if fn does not finish in time.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	ch := make(chan Result[T], 1)
	go func() {
		v, err := safeCall(ctx, fn)
		ch <- Result[T]{Value: v, Err: err}
	}()

	select {
	case r := <-ch:
		return r.Value, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
