package kafkaflow

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/weiyilai/kafkaflow/internal/logger"
	"github.com/weiyilai/kafkaflow/internal/metrics"
	"github.com/weiyilai/kafkaflow/types"
)

// fallbackWorkersCount is the fixed worker count used when the instance has no
// assigned partitions and when an evaluation fails. It deliberately bypasses
// the configured min/max clamp: a just-started or degraded instance keeps
// exactly one idle worker.
const fallbackWorkersCount = 1

// Balancer computes how many parallel processing workers this consumer
// instance should run and feeds the result to a worker pool on a fixed
// interval.
//
// The estimate is proportional: with L_i the lag of this instance's assigned
// partitions and L the lag across the whole topic set of the consumer group,
// the instance receives round(TotalWorkers * L_i / L) workers, clamped to
// [MinInstanceWorkers, MaxInstanceWorkers]. Every instance of the group runs
// the same computation independently, so the aggregate tracks TotalWorkers
// without any cross-instance coordination.
//
// Lifecycle:
//   - Create with NewBalancer()
//   - Feed assignment changes via SetAssignment() from the rebalance callback
//   - Call Start() to begin periodic evaluation
//   - Call Stop() for graceful shutdown
//
// WorkersCount may also be called directly for one-shot evaluation.
type Balancer struct {
	cfg     Config
	cluster ClusterClient
	sink    WorkerPoolSink

	// Optional dependencies
	hooks   *Hooks
	metrics MetricsCollector
	logger  Logger

	// Assignment snapshot. Replaced wholesale by the rebalance callback,
	// read concurrently by the evaluation loop.
	assignMu sync.RWMutex
	assigned []TopicPartition

	// lastApplied is only touched by the evaluation loop goroutine.
	lastApplied int

	// Lifecycle management
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
}

// NewBalancer creates a new Balancer instance with the provided configuration.
//
// Missing configuration values are filled with defaults and the result is
// validated eagerly; an invalid configuration is a construction-time error so
// the owning subscription never starts with a broken balancer.
//
// Returns a concrete *Balancer struct following the "accept interfaces,
// return structs" principle.
//
// Parameters:
//   - cfg: Runtime configuration (defaults applied in place)
//   - cluster: Broker metadata/offset/watermark collaborator
//   - sink: Worker pool resize sink invoked once per evaluation
//   - opts: Optional configuration (logger, metrics, hooks)
//
// Returns:
//   - *Balancer: Initialized balancer instance
//   - error: Validation error if configuration or dependencies are invalid
//
// Example:
//
//	cfg := kafkaflow.Config{ConsumerName: "orders", GroupID: "orders-group", TotalWorkers: 100}
//	cc := cluster.New([]string{"localhost:9092"})
//	balancer, err := kafkaflow.NewBalancer(&cfg, cc, myPool)
func NewBalancer(cfg *Config, cluster ClusterClient, sink WorkerPoolSink, opts ...Option) (*Balancer, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if cluster == nil {
		return nil, ErrClusterClientRequired
	}
	if sink == nil {
		return nil, ErrWorkerPoolSinkRequired
	}

	// Fill in missing configuration values with defaults
	SetDefaults(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Apply options
	options := &componentOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// Provide safe defaults for optional dependencies to avoid nil checks everywhere
	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logger.NewNop()
	}

	// Validate with warnings after logger is available
	cfg.ValidateWithWarnings(loggerInstance)

	hooksInstance := options.hooks
	if hooksInstance == nil {
		hooksInstance = &Hooks{}
	}

	return &Balancer{
		cfg:     *cfg,
		cluster: cluster,
		sink:    sink,
		hooks:   hooksInstance,
		metrics: metricsCollector,
		logger:  loggerInstance,
	}, nil
}

// Start begins the periodic evaluation loop.
//
// The first evaluation runs immediately so the pool is sized promptly after
// the subscription starts; subsequent evaluations fire every
// EvaluationInterval. Ticks never overlap: a slow evaluation defers the next
// one instead of racing it.
//
// Parameters:
//   - ctx: Context for startup cancellation (the loop itself runs on an
//     internal lifecycle context detached from ctx)
//
// Returns:
//   - error: ErrAlreadyStarted if the balancer is already running
func (b *Balancer) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.ctx != nil {
		b.mu.Unlock()

		return ErrAlreadyStarted
	}
	if err := ctx.Err(); err != nil {
		b.mu.Unlock()

		return err
	}

	// Create balancer context detached from the caller's startup context
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.mu.Unlock()

	b.logger.Info("starting lag balancer",
		"consumer", b.cfg.ConsumerName,
		"group", b.cfg.GroupID,
		"totalWorkers", b.cfg.TotalWorkers,
		"interval", b.cfg.EvaluationInterval,
	)

	b.wg.Add(1)
	go b.evaluationLoop()

	return nil
}

// Stop gracefully shuts down the balancer.
//
// The evaluation loop stops firing immediately; an evaluation already in
// flight is allowed to finish but its result is discarded, never applied to
// the sink. Safe to call multiple times - subsequent calls return ErrNotStarted.
//
// Parameters:
//   - ctx: Context for shutdown timeout
//
// Returns:
//   - error: ErrNotStarted, or ctx.Err() if the in-flight evaluation outlives ctx
func (b *Balancer) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.ctx == nil || b.stopped {
		b.mu.Unlock()

		return ErrNotStarted
	}
	b.stopped = true

	// Cancel the lifecycle context to stop the loop and abort in-flight
	// remote reads. Keep b.ctx (even though cancelled) so background
	// goroutines can still select on it.
	b.cancel()
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("balancer stopped", "consumer", b.cfg.ConsumerName)

		return nil
	case <-ctx.Done():
		b.logger.Error("balancer shutdown timeout exceeded, evaluation may still be in flight",
			"consumer", b.cfg.ConsumerName)

		return ctx.Err()
	}
}

// SetAssignment replaces the instance's assigned partition set wholesale.
//
// Call this from the consumer group rebalance callback with the complete new
// assignment; the set is never patched incrementally. Safe to call
// concurrently with a running evaluation: the evaluation that is in flight
// keeps the snapshot it started with, the next one sees the new set.
//
// Parameters:
//   - partitions: Complete assignment (may be empty after a full revoke)
func (b *Balancer) SetAssignment(partitions []TopicPartition) {
	assigned := make([]TopicPartition, len(partitions))
	copy(assigned, partitions)

	b.assignMu.Lock()
	b.assigned = assigned
	b.assignMu.Unlock()

	b.logger.Debug("assignment replaced", "consumer", b.cfg.ConsumerName, "partitions", len(assigned))
}

// Assignment returns a copy of the instance's current assigned partition set.
//
// Returns:
//   - []TopicPartition: Copy of the assignment snapshot (nil-safe, may be empty)
func (b *Balancer) Assignment() []TopicPartition {
	b.assignMu.RLock()
	defer b.assignMu.RUnlock()

	out := make([]TopicPartition, len(b.assigned))
	copy(out, b.assigned)

	return out
}

// WorkersCount computes the worker count for one evaluation context.
//
// This is a total function: it never returns an error and never panics across
// remote failures. Behavior:
//   - Empty assignment: returns 1 immediately without touching the cluster
//   - Otherwise: ratio = instanceLag / max(1, totalLag); the result is
//     round(TotalWorkers * ratio) clamped to [MinInstanceWorkers, MaxInstanceWorkers]
//   - Any remote read failure collapses, at this single boundary, to the fixed
//     fallback count 1 plus exactly one error log event
//
// Rounding uses math.Round (half away from zero), which for the non-negative
// ratios produced here is round-half-up: a ratio landing exactly between two
// integers rounds to the larger one.
//
// Parameters:
//   - ctx: Context for cancellation of the underlying remote reads
//   - wcx: Fresh per-evaluation snapshot (consumer name, group, assignment)
//
// Returns:
//   - int: Worker count, always usable, never negative
func (b *Balancer) WorkersCount(ctx context.Context, wcx WorkersCountContext) int {
	start := time.Now()

	if len(wcx.AssignedPartitions) == 0 {
		b.logger.Debug("no partitions assigned, using fallback workers count",
			"consumer", wcx.ConsumerName, "workers", fallbackWorkersCount)
		b.metrics.RecordEvaluation(types.EvaluationEmpty, time.Since(start).Seconds())

		return fallbackWorkersCount
	}

	instanceLag, totalLag, err := b.computePartitionsLag(ctx, wcx)
	if err != nil {
		// Single fail-safe boundary: no failure from lag aggregation is ever
		// surfaced to the caller.
		b.logger.Error("error calculating workers count, using fallback",
			"consumer", wcx.ConsumerName, "error", err, "workers", fallbackWorkersCount)
		b.metrics.RecordEvaluation(types.EvaluationFallback, time.Since(start).Seconds())

		return fallbackWorkersCount
	}

	ratio := 0.0
	if totalLag > 0 {
		ratio = float64(instanceLag) / float64(totalLag)
	}

	raw := int(math.Round(float64(b.cfg.TotalWorkers) * ratio))
	workers := clamp(raw, b.cfg.MinInstanceWorkers, b.cfg.MaxInstanceWorkers)

	b.logger.Info("workers count calculated",
		"consumer", wcx.ConsumerName,
		"workers", workers,
		"instanceLag", instanceLag,
		"totalLag", totalLag,
	)
	b.metrics.RecordLag(instanceLag, totalLag)
	b.metrics.RecordWorkersCount(wcx.ConsumerName, workers)
	b.metrics.RecordEvaluation(types.EvaluationSuccess, time.Since(start).Seconds())

	return workers
}

// evaluationLoop drives periodic evaluations until the balancer is stopped.
func (b *Balancer) evaluationLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.EvaluationInterval)
	defer ticker.Stop()

	// Initial evaluation so the pool is sized without waiting a full interval.
	b.runEvaluation()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			b.runEvaluation()
		}
	}
}

// runEvaluation performs one tick: snapshot assignment, compute, apply.
//
// Ticks run inline in the loop goroutine, so evaluations for the same consumer
// never overlap. A result computed while Stop is in progress is discarded.
func (b *Balancer) runEvaluation() {
	wcx := WorkersCountContext{
		ConsumerName:       b.cfg.ConsumerName,
		GroupID:            b.cfg.GroupID,
		AssignedPartitions: b.Assignment(),
	}

	workers := b.WorkersCount(b.ctx, wcx)

	// Discard-on-cancel: never apply a result after teardown began.
	if b.ctx.Err() != nil {
		b.logger.Debug("balancer stopping, discarding evaluation result",
			"consumer", wcx.ConsumerName, "workers", workers)

		return
	}

	if err := b.sink.SetWorkerCount(b.ctx, wcx.ConsumerName, workers); err != nil {
		b.logger.Error("failed to apply worker count to pool",
			"consumer", wcx.ConsumerName, "workers", workers, "error", err)

		return
	}

	if workers != b.lastApplied {
		b.lastApplied = workers
		b.fireWorkersCountChanged(wcx.ConsumerName, workers)
	}
}

// computePartitionsLag fuses topic metadata, high watermarks, and committed
// offsets into the instance's lag and the group-wide total lag.
//
// Metadata is fetched for every topic referenced by the assignment and covers
// the FULL topic, not just the assigned partitions: totalLag must reflect
// group-wide backlog. Watermark queries are bounded by WatermarkTimeout each;
// a failure on any partition propagates to the caller (the fallback boundary
// in WorkersCount).
func (b *Balancer) computePartitionsLag(ctx context.Context, wcx WorkersCountContext) (instanceLag, totalLag int64, err error) {
	topics := distinctTopics(wcx.AssignedPartitions)

	watermarks := make(map[TopicPartition]int64)
	for _, topic := range topics {
		partitions, err := b.cluster.TopicPartitions(ctx, topic)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to fetch metadata for topic %q: %w", topic, err)
		}

		for _, id := range partitions {
			tp := TopicPartition{Topic: topic, Partition: id}

			wmCtx, cancel := context.WithTimeout(ctx, b.cfg.WatermarkTimeout)
			high, err := b.cluster.HighWatermark(wmCtx, tp)
			cancel()
			if err != nil {
				return 0, 0, fmt.Errorf("failed to query watermark for %s: %w", tp, err)
			}

			watermarks[tp] = high
		}
	}

	// One batched offsets call across all referenced topics.
	committed, err := b.cluster.ConsumerGroupOffsets(ctx, wcx.GroupID, topics)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch offsets for group %q: %w", wcx.GroupID, err)
	}

	assigned := make(map[TopicPartition]struct{}, len(wcx.AssignedPartitions))
	for _, tp := range wcx.AssignedPartitions {
		assigned[tp] = struct{}{}
	}

	lags := make([]PartitionLag, 0, len(watermarks))
	for tp, high := range watermarks {
		// A partition without a committed offset contributes its full
		// watermark; a committed offset beyond the watermark (stale metadata
		// window) contributes zero, never a negative number.
		lag := max(high, 0) - max(committed[tp], 0)
		if lag < 0 {
			lag = 0
		}
		lags = append(lags, PartitionLag{TopicPartition: tp, Lag: lag})
	}

	for _, pl := range lags {
		totalLag += pl.Lag
		if _, ok := assigned[pl.TopicPartition]; ok {
			instanceLag += pl.Lag
		}
	}

	return instanceLag, totalLag, nil
}

// fireWorkersCountChanged dispatches the hook asynchronously; hook failures
// are logged and never fail the evaluation.
func (b *Balancer) fireWorkersCountChanged(consumerName string, workers int) {
	hook := b.hooks.OnWorkersCountChanged
	if hook == nil {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := hook(b.ctx, consumerName, workers); err != nil {
			b.logger.Warn("OnWorkersCountChanged hook failed",
				"consumer", consumerName, "workers", workers, "error", err)
		}
	}()
}

// distinctTopics returns the sorted set of topic names referenced by the
// assignment, for deterministic fetch order.
func distinctTopics(partitions []TopicPartition) []string {
	seen := make(map[string]struct{}, len(partitions))
	topics := make([]string, 0, len(partitions))
	for _, tp := range partitions {
		if _, ok := seen[tp.Topic]; ok {
			continue
		}
		seen[tp.Topic] = struct{}{}
		topics = append(topics, tp.Topic)
	}
	slices.Sort(topics)

	return topics
}

// clamp bounds v to the inclusive range [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}
