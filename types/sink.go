package types

import "context"

// WorkerPoolSink receives the worker count computed by the balancer once per
// evaluation tick and applies it to the owning worker pool.
//
// Semantics:
//   - Invoked exactly once per completed evaluation (successful or fallback)
//   - Never invoked after the balancer has been stopped
//   - MUST NOT block indefinitely; respect ctx cancellation
//   - Errors are logged by the balancer and never fail the evaluation loop
//
// The pool package provides a ready-made implementation; applications with
// their own worker pools implement this interface directly.
type WorkerPoolSink interface {
	// SetWorkerCount resizes the consumer's worker pool to the given count.
	//
	// Parameters:
	//   - ctx: Balancer lifecycle context (cancelled on Stop)
	//   - consumerName: Logical consumer owning the pool
	//   - workers: Target number of parallel workers
	//
	// Returns:
	//   - error: Resize failure (logged by the balancer, non-fatal)
	SetWorkerCount(ctx context.Context, consumerName string, workers int) error
}
