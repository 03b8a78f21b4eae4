package types

import "strconv"

// TopicPartition identifies a single partition of a Kafka topic.
//
// It is an immutable value type with identity by value equality, which makes it
// directly usable as a map key and comparable with ==.
type TopicPartition struct {
	// Topic is the topic name.
	Topic string `json:"topic"`

	// Partition is the numeric partition ID within the topic.
	Partition int `json:"partition"`
}

// String returns the canonical "topic/partition" form, suitable for log fields
// and error messages.
//
// Returns:
//   - string: "topic/partition" (e.g., "orders/3")
func (tp TopicPartition) String() string {
	return tp.Topic + "/" + strconv.Itoa(tp.Partition)
}

// Compare performs an ordering comparison, first by topic name and then by
// partition ID. Useful for producing deterministic, sorted partition lists.
//
// Returns:
//   - int: -1 if tp < other, 0 if equal, +1 if tp > other
func (tp TopicPartition) Compare(other TopicPartition) int {
	if tp.Topic != other.Topic {
		if tp.Topic < other.Topic {
			return -1
		}

		return 1
	}
	if tp.Partition == other.Partition {
		return 0
	}
	if tp.Partition < other.Partition {
		return -1
	}

	return 1
}

// PartitionLag is the unprocessed backlog for one partition: the partition's
// high watermark minus the consumer group's committed offset, floored at zero.
//
// Lag is never negative. A partition whose committed offset momentarily exceeds
// its watermark (stale metadata window) contributes zero.
type PartitionLag struct {
	// TopicPartition identifies the partition the lag belongs to.
	TopicPartition

	// Lag is the number of messages produced but not yet committed.
	Lag int64 `json:"lag"`
}

// WorkersCountContext is the input snapshot for one worker-count evaluation.
//
// The caller constructs a fresh context for each invocation; the balancer never
// mutates it. AssignedPartitions reflects the instance's partition assignment at
// the moment the evaluation starts.
type WorkersCountContext struct {
	// ConsumerName identifies the logical consumer owning the worker pool.
	ConsumerName string

	// GroupID is the Kafka consumer group the instance participates in.
	GroupID string

	// AssignedPartitions is the set of partitions currently owned by this
	// instance. Order is irrelevant; matching is by value equality.
	AssignedPartitions []TopicPartition
}
