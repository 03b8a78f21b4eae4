package types

import "context"

// Hooks defines callbacks for balancer and flow-controller events.
//
// All hooks are optional and called asynchronously in background goroutines
// to avoid blocking the evaluation loop. Hooks receive the owning component's
// lifecycle context, which is cancelled during shutdown.
//
// Best practices for hook implementation:
//   - Complete quickly (< 1 second recommended)
//   - Respect context cancellation
//   - Make hooks idempotent (may be called multiple times)
//   - Handle errors gracefully (return error for logging)
type Hooks struct {
	// OnWorkersCountChanged is called after an evaluation produced a worker
	// count different from the previous one and the sink accepted it.
	OnWorkersCountChanged func(ctx context.Context, consumerName string, workers int) error

	// OnPartitionsPaused is called with the partitions that actually
	// transitioned to paused during a Pause call.
	OnPartitionsPaused func(ctx context.Context, partitions []TopicPartition) error

	// OnPartitionsResumed is called with the partitions that actually
	// transitioned to flowing during a Resume call.
	OnPartitionsResumed func(ctx context.Context, partitions []TopicPartition) error
}
