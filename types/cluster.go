package types

import "context"

// ClusterClient supplies cluster metadata, consumer-group committed offsets,
// and partition high watermarks on demand.
//
// The balancer only ever reads through this interface; connection and session
// machinery belong to the implementation (see the cluster package for a
// kafka-go backed one).
//
// Implementations must be safe for concurrent use.
type ClusterClient interface {
	// TopicPartitions returns the IDs of every partition of the topic, not just
	// the ones assigned to this instance.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - topic: Topic name to resolve
	//
	// Returns:
	//   - []int: All partition IDs of the topic
	//   - error: Metadata fetch failure
	TopicPartitions(ctx context.Context, topic string) ([]int, error)

	// ConsumerGroupOffsets fetches the group's committed offsets across all
	// given topics in one batched call.
	//
	// Partitions without a committed offset are absent from the result; callers
	// treat them as offset zero.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - groupID: Consumer group ID
	//   - topics: Topic names to fetch offsets for
	//
	// Returns:
	//   - map[TopicPartition]int64: Committed offset per partition
	//   - error: Offset fetch failure
	ConsumerGroupOffsets(ctx context.Context, groupID string, topics []string) (map[TopicPartition]int64, error)

	// HighWatermark returns the current high watermark (latest available
	// offset) of the partition. The caller bounds each call with a deadline on
	// ctx; a slow or failed read surfaces as an error.
	//
	// Parameters:
	//   - ctx: Context carrying the per-call deadline
	//   - tp: Partition to query
	//
	// Returns:
	//   - int64: High watermark offset
	//   - error: Watermark query failure or deadline expiry
	HighWatermark(ctx context.Context, tp TopicPartition) (int64, error)
}
