// Package asyncx provides the small set of concurrency primitives the send
// pipeline is built from, all with context support.
//
// # Bounded fan-out
//
// [PoolSettled] runs a function over a slice with at most N goroutines and
// returns one [Result] per item in input order. Errors and panics are
// captured per item, so one failure never prevents its siblings from running.
//
//	results := asyncx.PoolSettled(ctx, 5, recipients, send)
//	for i, r := range results {
//	    if !r.OK() { ... }
//	}
//
// [Chunk] splits a slice into consecutive groups, used for batches and for
// the sub-groups inside a batch.
//
// # Timing
//
// [Sleep] waits for a duration unless the context is done first, which makes
// every pause a cancellation checkpoint.
//
// # Retry and timeout
//
// [RetryWithBackoff] retries with exponentially growing delays.
// [WithTimeout] bounds a call with a deadline.
//
//	_, err := asyncx.WithTimeout(ctx, 4*time.Second, func(ctx context.Context) (struct{}, error) {
//	    return struct{}{}, reporter.ReportStatus(ctx, id, status, meta)
//	})
package asyncx
