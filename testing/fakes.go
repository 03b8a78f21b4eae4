package testing

import (
	"context"
	"sync"

	"github.com/weiyilai/kafkaflow/types"
)

// FakeClusterClient is a programmable in-memory types.ClusterClient.
//
// Populate Partitions, Watermarks, and Committed to describe the cluster;
// set the error fields to inject failures. All methods are safe for
// concurrent use; call counters allow asserting on fetch behavior.
type FakeClusterClient struct {
	mu sync.Mutex

	// Partitions maps topic name to its full partition ID list.
	Partitions map[string][]int

	// Watermarks maps partition to its high watermark.
	Watermarks map[types.TopicPartition]int64

	// Committed maps partition to the group's committed offset. Absent
	// partitions behave like partitions the group never committed for.
	Committed map[types.TopicPartition]int64

	// MetadataErr, OffsetsErr fail the corresponding call when non-nil.
	MetadataErr error
	OffsetsErr  error

	// WatermarkErrs fails HighWatermark for specific partitions.
	WatermarkErrs map[types.TopicPartition]error

	// Call counters.
	MetadataCalls  int
	OffsetsCalls   int
	WatermarkCalls int
}

var _ types.ClusterClient = (*FakeClusterClient)(nil)

// TopicPartitions returns the programmed partition list for the topic.
func (f *FakeClusterClient) TopicPartitions(_ context.Context, topic string) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.MetadataCalls++
	if f.MetadataErr != nil {
		return nil, f.MetadataErr
	}

	ids := make([]int, len(f.Partitions[topic]))
	copy(ids, f.Partitions[topic])

	return ids, nil
}

// ConsumerGroupOffsets returns the programmed committed offsets for the topics.
func (f *FakeClusterClient) ConsumerGroupOffsets(_ context.Context, _ string, topics []string) (map[types.TopicPartition]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.OffsetsCalls++
	if f.OffsetsErr != nil {
		return nil, f.OffsetsErr
	}

	requested := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		requested[t] = struct{}{}
	}

	out := make(map[types.TopicPartition]int64)
	for tp, offset := range f.Committed {
		if _, ok := requested[tp.Topic]; ok {
			out[tp] = offset
		}
	}

	return out, nil
}

// HighWatermark returns the programmed watermark for the partition.
func (f *FakeClusterClient) HighWatermark(_ context.Context, tp types.TopicPartition) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.WatermarkCalls++
	if err := f.WatermarkErrs[tp]; err != nil {
		return 0, err
	}

	return f.Watermarks[tp], nil
}

// FakeSuspender records suspend/resume signals for assertions.
type FakeSuspender struct {
	mu sync.Mutex

	// Suspended and Resumed accumulate every partition signalled, in call order.
	Suspended []types.TopicPartition
	Resumed   []types.TopicPartition

	// SuspendCalls and ResumeCalls count signal batches, not partitions.
	SuspendCalls int
	ResumeCalls  int

	// SuspendErr and ResumeErr are returned by the corresponding signal when non-nil.
	SuspendErr error
	ResumeErr  error
}

var _ types.PartitionSuspender = (*FakeSuspender)(nil)

// SuspendPartitions records the batch and returns the programmed error.
func (f *FakeSuspender) SuspendPartitions(_ context.Context, partitions []types.TopicPartition) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.SuspendCalls++
	f.Suspended = append(f.Suspended, partitions...)

	return f.SuspendErr
}

// ResumePartitions records the batch and returns the programmed error.
func (f *FakeSuspender) ResumePartitions(_ context.Context, partitions []types.TopicPartition) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ResumeCalls++
	f.Resumed = append(f.Resumed, partitions...)

	return f.ResumeErr
}

// SuspendedPartitions returns a copy of every partition signalled to suspend.
func (f *FakeSuspender) SuspendedPartitions() []types.TopicPartition {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]types.TopicPartition, len(f.Suspended))
	copy(out, f.Suspended)

	return out
}

// FakeSink records worker counts applied by the balancer.
type FakeSink struct {
	mu sync.Mutex

	// Applied accumulates every count in application order.
	Applied []int

	// Err is returned by SetWorkerCount when non-nil.
	Err error
}

var _ types.WorkerPoolSink = (*FakeSink)(nil)

// SetWorkerCount records the applied count and returns the programmed error.
func (f *FakeSink) SetWorkerCount(_ context.Context, _ string, workers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return f.Err
	}
	f.Applied = append(f.Applied, workers)

	return nil
}

// AppliedCounts returns a copy of every applied worker count in order.
func (f *FakeSink) AppliedCounts() []int {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]int, len(f.Applied))
	copy(out, f.Applied)

	return out
}

// LastApplied returns the most recently applied count and whether any count
// has been applied yet.
func (f *FakeSink) LastApplied() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.Applied) == 0 {
		return 0, false
	}

	return f.Applied[len(f.Applied)-1], true
}
