package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/weiyilai/kafkaflow/types"
)

// Client implements types.ClusterClient on top of segmentio/kafka-go.
type Client struct {
	client *kafka.Client
}

// Compile-time assertion that Client implements ClusterClient.
var _ types.ClusterClient = (*Client)(nil)

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	timeout   time.Duration
	transport kafka.RoundTripper
}

// WithTimeout sets the default request timeout applied by the underlying
// kafka-go client when the caller's context carries no deadline.
//
// Parameters:
//   - timeout: Default per-request timeout (default: 10s)
//
// Returns:
//   - Option: Functional option for New
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithTransport sets a custom kafka-go transport (TLS, SASL, dial settings).
//
// Parameters:
//   - transport: kafka.RoundTripper used for all broker requests
//
// Returns:
//   - Option: Functional option for New
func WithTransport(transport kafka.RoundTripper) Option {
	return func(o *clientOptions) {
		o.transport = transport
	}
}

// New creates a cluster client bootstrapping from the given brokers.
//
// Parameters:
//   - brokers: Bootstrap broker addresses in host:port form (at least one)
//   - opts: Optional configuration (timeout, transport)
//
// Returns:
//   - *Client: Initialized client
//
// Example:
//
//	cc := cluster.New([]string{"kafka-1:9092", "kafka-2:9092"})
//	partitions, err := cc.TopicPartitions(ctx, "orders")
func New(brokers []string, opts ...Option) *Client {
	options := &clientOptions{timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(options)
	}

	return &Client{
		client: &kafka.Client{
			Addr:      kafka.TCP(brokers...),
			Timeout:   options.timeout,
			Transport: options.transport,
		},
	}
}

// NewWithClient wraps an existing kafka.Client, sharing its transport and
// connection pool with the rest of the application.
//
// Parameters:
//   - client: Pre-configured kafka-go client (must be non-nil)
//
// Returns:
//   - *Client: Initialized wrapper
func NewWithClient(client *kafka.Client) *Client {
	return &Client{client: client}
}

// TopicPartitions returns the IDs of every partition of the topic.
//
// The full topic is returned, not just partitions assigned to any one
// instance: the balancer needs group-wide coverage to compute total lag.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - topic: Topic name to resolve
//
// Returns:
//   - []int: All partition IDs of the topic
//   - error: Metadata request or topic-level error
func (c *Client) TopicPartitions(ctx context.Context, topic string) ([]int, error) {
	resp, err := c.client.Metadata(ctx, &kafka.MetadataRequest{
		Topics: []string{topic},
	})
	if err != nil {
		return nil, fmt.Errorf("metadata request for topic %q: %w", topic, err)
	}

	for _, t := range resp.Topics {
		if t.Name != topic {
			continue
		}

		return partitionIDs(t)
	}

	return nil, fmt.Errorf("topic %q not found in metadata response", topic)
}

// ConsumerGroupOffsets fetches the group's committed offsets for all
// partitions of the given topics in one batched OffsetFetch call.
//
// Partitions the group has never committed for are absent from the result.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - groupID: Consumer group ID
//   - topics: Topic names to fetch offsets for
//
// Returns:
//   - map[types.TopicPartition]int64: Committed offset per partition
//   - error: Offset fetch request or response-level error
func (c *Client) ConsumerGroupOffsets(ctx context.Context, groupID string, topics []string) (map[types.TopicPartition]int64, error) {
	if len(topics) == 0 {
		return map[types.TopicPartition]int64{}, nil
	}

	// OffsetFetch wants explicit partition lists per topic.
	requested := make(map[string][]int, len(topics))
	for _, topic := range topics {
		ids, err := c.TopicPartitions(ctx, topic)
		if err != nil {
			return nil, err
		}
		requested[topic] = ids
	}

	resp, err := c.client.OffsetFetch(ctx, &kafka.OffsetFetchRequest{
		GroupID: groupID,
		Topics:  requested,
	})
	if err != nil {
		return nil, fmt.Errorf("offset fetch for group %q: %w", groupID, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("offset fetch for group %q: %w", groupID, resp.Error)
	}

	return flattenOffsets(resp.Topics)
}

// HighWatermark returns the latest available offset of the partition.
//
// The caller bounds the call with a deadline on ctx; no additional timeout is
// applied here.
//
// Parameters:
//   - ctx: Context carrying the per-call deadline
//   - tp: Partition to query
//
// Returns:
//   - int64: High watermark offset
//   - error: ListOffsets request, partition-level error, or deadline expiry
func (c *Client) HighWatermark(ctx context.Context, tp types.TopicPartition) (int64, error) {
	resp, err := c.client.ListOffsets(ctx, &kafka.ListOffsetsRequest{
		Topics: map[string][]kafka.OffsetRequest{
			tp.Topic: {kafka.LastOffsetOf(tp.Partition)},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("list offsets for %s: %w", tp, err)
	}

	for _, po := range resp.Topics[tp.Topic] {
		if po.Partition != tp.Partition {
			continue
		}
		if po.Error != nil {
			return 0, fmt.Errorf("list offsets for %s: %w", tp, po.Error)
		}

		return po.LastOffset, nil
	}

	return 0, fmt.Errorf("partition %s not found in list offsets response", tp)
}

// partitionIDs extracts the partition IDs of one topic's metadata, surfacing
// topic- and partition-level errors the broker embeds in the response.
func partitionIDs(topic kafka.Topic) ([]int, error) {
	if topic.Error != nil {
		return nil, fmt.Errorf("topic %q metadata: %w", topic.Name, topic.Error)
	}

	ids := make([]int, 0, len(topic.Partitions))
	for _, p := range topic.Partitions {
		if p.Error != nil {
			return nil, fmt.Errorf("partition %s/%d metadata: %w", topic.Name, p.ID, p.Error)
		}
		ids = append(ids, p.ID)
	}

	return ids, nil
}

// flattenOffsets converts an OffsetFetch response into the flat committed
// offset map the balancer consumes. Partitions without a commit (offset -1)
// are skipped; partition-level errors fail the whole fetch.
func flattenOffsets(byTopic map[string][]kafka.OffsetFetchPartition) (map[types.TopicPartition]int64, error) {
	out := make(map[types.TopicPartition]int64)
	for topic, partitions := range byTopic {
		for _, p := range partitions {
			if p.Error != nil {
				return nil, fmt.Errorf("committed offset for %s/%d: %w", topic, p.Partition, p.Error)
			}
			if p.CommittedOffset < 0 {
				// No commit yet for this partition.
				continue
			}
			out[types.TopicPartition{Topic: topic, Partition: p.Partition}] = p.CommittedOffset
		}
	}

	return out, nil
}
