package types

import "context"

// PartitionSuspender is the partition-consumption mechanism the FlowController
// signals when partitions transition between flowing and paused.
//
// Semantics:
//   - SuspendPartitions stops delivery of future messages on the given
//     partitions without leaving the consumer group. Messages already handed to
//     a worker are not cancelled.
//   - ResumePartitions restores delivery on the given partitions.
//   - The FlowController only signals partitions that actually transition, so
//     implementations never receive a partition twice for the same direction
//     without the opposite signal in between.
//
// Implementations must be safe for concurrent use.
type PartitionSuspender interface {
	// SuspendPartitions stops future message delivery on the given partitions.
	SuspendPartitions(ctx context.Context, partitions []TopicPartition) error

	// ResumePartitions restores message delivery on the given partitions.
	ResumePartitions(ctx context.Context, partitions []TopicPartition) error
}
