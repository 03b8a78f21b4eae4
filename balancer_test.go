package kafkaflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	kftesting "github.com/weiyilai/kafkaflow/testing"
	"github.com/weiyilai/kafkaflow/types"
)

// recordingLogger counts log calls per level for assertions on logging contracts.
type recordingLogger struct {
	mu       sync.Mutex
	errors   []string
	warnings []string
	infos    []string
}

func (l *recordingLogger) Debug(_ string, _ ...any) {}

func (l *recordingLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, msg)
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Fatal(msg string, _ ...any) {
	l.Error(msg)
}

func (l *recordingLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.errors)
}

// singleTopicCluster programs a fake cluster with one topic, one watermark and
// one committed offset per partition, index-aligned.
func singleTopicCluster(topic string, watermarks, committed []int64) *kftesting.FakeClusterClient {
	fc := &kftesting.FakeClusterClient{
		Partitions: map[string][]int{topic: {}},
		Watermarks: map[types.TopicPartition]int64{},
		Committed:  map[types.TopicPartition]int64{},
	}
	for i, wm := range watermarks {
		tp := types.TopicPartition{Topic: topic, Partition: i}
		fc.Partitions[topic] = append(fc.Partitions[topic], i)
		fc.Watermarks[tp] = wm
		if i < len(committed) {
			fc.Committed[tp] = committed[i]
		}
	}

	return fc
}

func refs(topic string, partitions ...int) []TopicPartition {
	out := make([]TopicPartition, 0, len(partitions))
	for _, p := range partitions {
		out = append(out, TopicPartition{Topic: topic, Partition: p})
	}

	return out
}

// gatedClusterClient stalls watermark reads until released or cancelled, to
// hold an evaluation in flight at a controlled point.
type gatedClusterClient struct {
	*kftesting.FakeClusterClient

	entered chan struct{}
	release chan struct{}
	reads   atomic.Int32
	once    sync.Once
}

func newGatedClusterClient(fc *kftesting.FakeClusterClient) *gatedClusterClient {
	return &gatedClusterClient{
		FakeClusterClient: fc,
		entered:           make(chan struct{}),
		release:           make(chan struct{}),
	}
}

func (g *gatedClusterClient) HighWatermark(ctx context.Context, tp types.TopicPartition) (int64, error) {
	g.reads.Add(1)
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
	}

	return g.FakeClusterClient.HighWatermark(ctx, tp)
}

func newTestBalancer(t *testing.T, cfg Config, cc ClusterClient, opts ...Option) (*Balancer, *kftesting.FakeSink) {
	t.Helper()
	sink := &kftesting.FakeSink{}
	b, err := NewBalancer(&cfg, cc, sink, opts...)
	require.NoError(t, err)

	return b, sink
}

func wcx(assigned []TopicPartition) WorkersCountContext {
	return WorkersCountContext{ConsumerName: "test-consumer", GroupID: "test-group", AssignedPartitions: assigned}
}

func TestNewBalancer(t *testing.T) {
	cc := singleTopicCluster("orders", nil, nil)
	sink := &kftesting.FakeSink{}

	t.Run("rejects nil config", func(t *testing.T) {
		_, err := NewBalancer(nil, cc, sink)
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects nil cluster client", func(t *testing.T) {
		cfg := TestConfig()
		_, err := NewBalancer(&cfg, nil, sink)
		require.ErrorIs(t, err, ErrClusterClientRequired)
	})

	t.Run("rejects nil sink", func(t *testing.T) {
		cfg := TestConfig()
		_, err := NewBalancer(&cfg, cc, nil)
		require.ErrorIs(t, err, ErrWorkerPoolSinkRequired)
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		cfg := TestConfig()
		cfg.MinInstanceWorkers = 10
		cfg.MaxInstanceWorkers = 5
		_, err := NewBalancer(&cfg, cc, sink)
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("applies defaults before validating", func(t *testing.T) {
		cfg := Config{ConsumerName: "orders", GroupID: "orders-group"}
		b, err := NewBalancer(&cfg, cc, sink)
		require.NoError(t, err)
		require.NotNil(t, b)
	})
}

func TestBalancer_WorkersCount(t *testing.T) {
	ctx := context.Background()

	t.Run("empty assignment returns fallback bypassing min clamp", func(t *testing.T) {
		cfg := TestConfig()
		cfg.MinInstanceWorkers = 5
		cfg.MaxInstanceWorkers = 10
		cc := singleTopicCluster("orders", []int64{100}, []int64{0})
		b, _ := newTestBalancer(t, cfg, cc)

		workers := b.WorkersCount(ctx, wcx(nil))

		require.Equal(t, 1, workers)
		require.Zero(t, cc.MetadataCalls, "empty assignment must not touch the cluster")
	})

	t.Run("zero total lag clamps zero to min", func(t *testing.T) {
		cfg := TestConfig()
		cfg.TotalWorkers = 100
		cfg.MinInstanceWorkers = 2
		cfg.MaxInstanceWorkers = 50
		// Fully caught up: committed == watermark everywhere.
		cc := singleTopicCluster("orders", []int64{10, 20}, []int64{10, 20})
		b, _ := newTestBalancer(t, cfg, cc)

		workers := b.WorkersCount(ctx, wcx(refs("orders", 0, 1)))

		require.Equal(t, 2, workers)
	})

	t.Run("instance owning all backlog receives full target", func(t *testing.T) {
		cfg := TestConfig()
		cfg.TotalWorkers = 40
		cfg.MinInstanceWorkers = 1
		cfg.MaxInstanceWorkers = 100
		cc := singleTopicCluster("orders", []int64{50, 70}, []int64{0, 0})
		b, _ := newTestBalancer(t, cfg, cc)

		workers := b.WorkersCount(ctx, wcx(refs("orders", 0, 1)))

		require.Equal(t, 40, workers)
	})

	t.Run("proportional split between two instances", func(t *testing.T) {
		// target=100, min=1, max=50; instance A carries lag 30, B carries 70.
		cfg := TestConfig()
		cfg.TotalWorkers = 100
		cfg.MinInstanceWorkers = 1
		cfg.MaxInstanceWorkers = 50
		cc := singleTopicCluster("orders", []int64{30, 70}, []int64{0, 0})

		a, _ := newTestBalancer(t, cfg, cc)
		require.Equal(t, 30, a.WorkersCount(ctx, wcx(refs("orders", 0))))

		b, _ := newTestBalancer(t, cfg, cc)
		require.Equal(t, 50, b.WorkersCount(ctx, wcx(refs("orders", 1))),
			"raw 70 must clamp to max 50")
	})

	t.Run("zero instance lag clamps to min", func(t *testing.T) {
		// target=10, min=2, max=8, instanceLag=0, totalLag=500.
		cfg := TestConfig()
		cfg.TotalWorkers = 10
		cfg.MinInstanceWorkers = 2
		cfg.MaxInstanceWorkers = 8
		cc := singleTopicCluster("orders", []int64{0, 500}, []int64{0, 0})
		b, _ := newTestBalancer(t, cfg, cc)

		require.Equal(t, 2, b.WorkersCount(ctx, wcx(refs("orders", 0))))
	})

	t.Run("midpoint rounds up", func(t *testing.T) {
		// ratio 1/4 of target 10 = 2.5, rounds half away from zero to 3.
		cfg := TestConfig()
		cfg.TotalWorkers = 10
		cfg.MinInstanceWorkers = 0
		cfg.MaxInstanceWorkers = 10
		cc := singleTopicCluster("orders", []int64{25, 75}, []int64{0, 0})
		b, _ := newTestBalancer(t, cfg, cc)

		require.Equal(t, 3, b.WorkersCount(ctx, wcx(refs("orders", 0))))
	})

	t.Run("committed beyond watermark contributes zero lag", func(t *testing.T) {
		cfg := TestConfig()
		cfg.TotalWorkers = 10
		cfg.MinInstanceWorkers = 0
		cfg.MaxInstanceWorkers = 10
		// Partition 0 observed through a stale metadata window.
		cc := singleTopicCluster("orders", []int64{100, 50}, []int64{150, 0})
		b, _ := newTestBalancer(t, cfg, cc)

		// Instance owns partition 0 only: its lag is floored at zero.
		require.Equal(t, 0, b.WorkersCount(ctx, wcx(refs("orders", 0))))
	})

	t.Run("missing committed offset counts as full lag", func(t *testing.T) {
		cfg := TestConfig()
		cfg.TotalWorkers = 10
		cfg.MinInstanceWorkers = 0
		cfg.MaxInstanceWorkers = 10
		cc := &kftesting.FakeClusterClient{
			Partitions: map[string][]int{"orders": {0, 1}},
			Watermarks: map[types.TopicPartition]int64{
				{Topic: "orders", Partition: 0}: 60,
				{Topic: "orders", Partition: 1}: 40,
			},
			// No commits at all: both partitions carry their full watermark.
			Committed: map[types.TopicPartition]int64{},
		}
		b, _ := newTestBalancer(t, cfg, cc)

		require.Equal(t, 6, b.WorkersCount(ctx, wcx(refs("orders", 0))))
	})

	t.Run("total lag spans the full topic beyond the assignment", func(t *testing.T) {
		cfg := TestConfig()
		cfg.TotalWorkers = 100
		cfg.MinInstanceWorkers = 0
		cfg.MaxInstanceWorkers = 100
		// Four partitions with equal lag; instance owns one.
		cc := singleTopicCluster("orders", []int64{10, 10, 10, 10}, []int64{0, 0, 0, 0})
		b, _ := newTestBalancer(t, cfg, cc)

		require.Equal(t, 25, b.WorkersCount(ctx, wcx(refs("orders", 2))))
	})

	t.Run("aggregates lag across multiple topics", func(t *testing.T) {
		cfg := TestConfig()
		cfg.TotalWorkers = 100
		cfg.MinInstanceWorkers = 0
		cfg.MaxInstanceWorkers = 100
		cc := &kftesting.FakeClusterClient{
			Partitions: map[string][]int{"orders": {0}, "payments": {0}},
			Watermarks: map[types.TopicPartition]int64{
				{Topic: "orders", Partition: 0}:   30,
				{Topic: "payments", Partition: 0}: 70,
			},
			Committed: map[types.TopicPartition]int64{},
		}
		b, _ := newTestBalancer(t, cfg, cc)

		assigned := []TopicPartition{
			{Topic: "orders", Partition: 0},
			{Topic: "payments", Partition: 0},
		}
		require.Equal(t, 100, b.WorkersCount(ctx, wcx(assigned)))
	})
}

func TestBalancer_WorkersCount_Failures(t *testing.T) {
	ctx := context.Background()

	cfg := TestConfig()
	cfg.TotalWorkers = 100
	cfg.MinInstanceWorkers = 2
	cfg.MaxInstanceWorkers = 50

	t.Run("metadata failure falls back to one worker", func(t *testing.T) {
		cc := singleTopicCluster("orders", []int64{100}, []int64{0})
		cc.MetadataErr = errors.New("broker unreachable")
		log := &recordingLogger{}
		b, _ := newTestBalancer(t, cfg, cc, WithLogger(log))

		workers := b.WorkersCount(ctx, wcx(refs("orders", 0)))

		require.Equal(t, 1, workers, "fallback bypasses min clamp")
		require.Equal(t, 1, log.errorCount(), "exactly one error log per failed evaluation")
	})

	t.Run("offset fetch failure falls back to one worker", func(t *testing.T) {
		cc := singleTopicCluster("orders", []int64{100}, []int64{0})
		cc.OffsetsErr = errors.New("coordinator not available")
		log := &recordingLogger{}
		b, _ := newTestBalancer(t, cfg, cc, WithLogger(log))

		require.Equal(t, 1, b.WorkersCount(ctx, wcx(refs("orders", 0))))
		require.Equal(t, 1, log.errorCount())
	})

	t.Run("single watermark failure out of five fails the whole evaluation", func(t *testing.T) {
		cc := singleTopicCluster("orders", []int64{10, 10, 10, 10, 10}, []int64{0, 0, 0, 0, 0})
		cc.WatermarkErrs = map[types.TopicPartition]error{
			{Topic: "orders", Partition: 3}: errors.New("request timed out"),
		}
		log := &recordingLogger{}
		b, _ := newTestBalancer(t, cfg, cc, WithLogger(log))

		require.Equal(t, 1, b.WorkersCount(ctx, wcx(refs("orders", 0, 1, 2, 3, 4))))
		require.Equal(t, 1, log.errorCount())
	})
}

func TestBalancer_Assignment(t *testing.T) {
	cfg := TestConfig()
	cc := singleTopicCluster("orders", nil, nil)
	b, _ := newTestBalancer(t, cfg, cc)

	t.Run("starts empty", func(t *testing.T) {
		require.Empty(t, b.Assignment())
	})

	t.Run("replaced wholesale", func(t *testing.T) {
		b.SetAssignment(refs("orders", 0, 1))
		require.Len(t, b.Assignment(), 2)

		b.SetAssignment(refs("orders", 2))
		require.Equal(t, refs("orders", 2), b.Assignment())

		b.SetAssignment(nil)
		require.Empty(t, b.Assignment())
	})

	t.Run("returns a defensive copy", func(t *testing.T) {
		b.SetAssignment(refs("orders", 0))
		snapshot := b.Assignment()
		snapshot[0] = TopicPartition{Topic: "mutated", Partition: 99}

		require.Equal(t, refs("orders", 0), b.Assignment())
	})
}

func TestBalancer_Lifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()

	t.Run("applies counts periodically until stopped", func(t *testing.T) {
		cfg := TestConfig()
		cfg.TotalWorkers = 10
		cfg.MinInstanceWorkers = 0
		cfg.MaxInstanceWorkers = 10
		cc := singleTopicCluster("orders", []int64{100}, []int64{0})

		sink := &kftesting.FakeSink{}
		b, err := NewBalancer(&cfg, cc, sink, WithLogger(kftesting.NewTestLogger(t)))
		require.NoError(t, err)

		b.SetAssignment(refs("orders", 0))
		require.NoError(t, b.Start(ctx))

		require.Eventually(t, func() bool {
			last, ok := sink.LastApplied()

			return ok && last == 10
		}, 2*time.Second, 10*time.Millisecond)

		require.NoError(t, b.Stop(ctx))

		// No further applications after Stop.
		applied := len(sink.AppliedCounts())
		time.Sleep(4 * cfg.EvaluationInterval)
		require.Len(t, sink.AppliedCounts(), applied)
	})

	t.Run("discards an evaluation in flight at stop", func(t *testing.T) {
		cfg := TestConfig()
		cfg.TotalWorkers = 10
		cfg.MinInstanceWorkers = 0
		cfg.MaxInstanceWorkers = 10
		cc := newGatedClusterClient(singleTopicCluster("orders", []int64{100}, []int64{0}))

		sink := &kftesting.FakeSink{}
		b, err := NewBalancer(&cfg, cc, sink, WithLogger(kftesting.NewTestLogger(t)))
		require.NoError(t, err)

		b.SetAssignment(refs("orders", 0))
		require.NoError(t, b.Start(ctx))

		// The initial evaluation is now stalled inside the watermark read.
		<-cc.entered

		// Stop cancels the lifecycle context, which releases the read; the
		// fetch then completes normally and the evaluation produces a real
		// count, but that count must never reach the sink.
		require.NoError(t, b.Stop(ctx))
		require.Empty(t, sink.AppliedCounts())
	})

	t.Run("slow evaluation defers the next tick", func(t *testing.T) {
		cfg := TestConfig()
		cfg.TotalWorkers = 10
		cfg.MinInstanceWorkers = 0
		cfg.MaxInstanceWorkers = 10
		cc := newGatedClusterClient(singleTopicCluster("orders", []int64{100}, []int64{0}))

		sink := &kftesting.FakeSink{}
		b, err := NewBalancer(&cfg, cc, sink, WithLogger(kftesting.NewTestLogger(t)))
		require.NoError(t, err)

		b.SetAssignment(refs("orders", 0))
		require.NoError(t, b.Start(ctx))

		<-cc.entered

		// Hold the first evaluation across several intervals: no second
		// evaluation may start while one is still in flight.
		require.Never(t, func() bool {
			return cc.reads.Load() > 1
		}, 5*cfg.EvaluationInterval, 10*time.Millisecond)

		close(cc.release)

		require.Eventually(t, func() bool {
			last, ok := sink.LastApplied()

			return ok && last == 10
		}, 2*time.Second, 10*time.Millisecond)

		require.NoError(t, b.Stop(ctx))
	})

	t.Run("double start returns ErrAlreadyStarted", func(t *testing.T) {
		cfg := TestConfig()
		cc := singleTopicCluster("orders", nil, nil)
		b, _ := newTestBalancer(t, cfg, cc)

		require.NoError(t, b.Start(ctx))
		require.ErrorIs(t, b.Start(ctx), ErrAlreadyStarted)
		require.NoError(t, b.Stop(ctx))
	})

	t.Run("stop before start returns ErrNotStarted", func(t *testing.T) {
		cfg := TestConfig()
		cc := singleTopicCluster("orders", nil, nil)
		b, _ := newTestBalancer(t, cfg, cc)

		require.ErrorIs(t, b.Stop(ctx), ErrNotStarted)
	})

	t.Run("double stop returns ErrNotStarted", func(t *testing.T) {
		cfg := TestConfig()
		cc := singleTopicCluster("orders", nil, nil)
		b, _ := newTestBalancer(t, cfg, cc)

		require.NoError(t, b.Start(ctx))
		require.NoError(t, b.Stop(ctx))
		require.ErrorIs(t, b.Stop(ctx), ErrNotStarted)
	})

	t.Run("fires hook when count changes", func(t *testing.T) {
		cfg := TestConfig()
		cfg.TotalWorkers = 10
		cfg.MinInstanceWorkers = 0
		cfg.MaxInstanceWorkers = 10
		cc := singleTopicCluster("orders", []int64{100}, []int64{0})

		var hookMu sync.Mutex
		var observed []int
		hooks := &Hooks{
			OnWorkersCountChanged: func(_ context.Context, _ string, workers int) error {
				hookMu.Lock()
				defer hookMu.Unlock()
				observed = append(observed, workers)

				return nil
			},
		}

		sink := &kftesting.FakeSink{}
		b, err := NewBalancer(&cfg, cc, sink, WithHooks(hooks))
		require.NoError(t, err)

		b.SetAssignment(refs("orders", 0))
		require.NoError(t, b.Start(ctx))

		require.Eventually(t, func() bool {
			hookMu.Lock()
			defer hookMu.Unlock()

			return len(observed) > 0 && observed[0] == 10
		}, 2*time.Second, 10*time.Millisecond)

		require.NoError(t, b.Stop(ctx))
	})
}

func TestDistinctTopics(t *testing.T) {
	t.Run("deduplicates and sorts", func(t *testing.T) {
		partitions := []TopicPartition{
			{Topic: "payments", Partition: 0},
			{Topic: "orders", Partition: 0},
			{Topic: "payments", Partition: 1},
			{Topic: "orders", Partition: 3},
		}

		require.Equal(t, []string{"orders", "payments"}, distinctTopics(partitions))
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		require.Empty(t, distinctTopics(nil))
	})
}

func TestClamp(t *testing.T) {
	require.Equal(t, 5, clamp(3, 5, 10))
	require.Equal(t, 10, clamp(12, 5, 10))
	require.Equal(t, 7, clamp(7, 5, 10))
	require.Equal(t, 5, clamp(5, 5, 10))
	require.Equal(t, 10, clamp(10, 5, 10))
}
