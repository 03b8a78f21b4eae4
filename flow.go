package kafkaflow

import (
	"context"
	"slices"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/weiyilai/kafkaflow/internal/logger"
	"github.com/weiyilai/kafkaflow/internal/metrics"
	"github.com/weiyilai/kafkaflow/types"
)

// FlowController tracks which partitions are currently paused for this
// instance and exposes idempotent pause/resume operations for
// backpressure-aware callers (e.g., a worker pool with a full downstream
// queue).
//
// The controller is consumer-side bookkeeping, not a validator: it does not
// enforce that paused partitions are still assigned to this instance. Callers
// keep the books straight by resuming partitions when they are revoked.
//
// Pausing stops future message delivery only; messages already handed to a
// worker before the call are not cancelled.
//
// All methods are safe for concurrent use.
type FlowController struct {
	suspender PartitionSuspender
	hooks     *Hooks
	metrics   MetricsCollector
	logger    Logger

	paused *xsync.Map[TopicPartition, struct{}]
}

// NewFlowController creates a new FlowController signalling the given
// partition-consumption mechanism.
//
// Parameters:
//   - suspender: Underlying consumption mechanism to signal on transitions
//   - opts: Optional configuration (logger, metrics, hooks)
//
// Returns:
//   - *FlowController: Initialized controller with an empty paused set
//   - error: ErrSuspenderRequired if suspender is nil
//
// Example:
//
//	flow, err := kafkaflow.NewFlowController(myReaderPool, kafkaflow.WithLogger(logger))
func NewFlowController(suspender PartitionSuspender, opts ...Option) (*FlowController, error) {
	if suspender == nil {
		return nil, ErrSuspenderRequired
	}

	options := &componentOptions{}
	for _, opt := range opts {
		opt(options)
	}

	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logger.NewNop()
	}

	hooksInstance := options.hooks
	if hooksInstance == nil {
		hooksInstance = &Hooks{}
	}

	return &FlowController{
		suspender: suspender,
		hooks:     hooksInstance,
		metrics:   metricsCollector,
		logger:    loggerInstance,
		paused:    xsync.NewMap[TopicPartition, struct{}](),
	}, nil
}

// Pause adds the given partitions to the paused set and signals the underlying
// consumption mechanism to stop delivering messages for the ones that were not
// already paused.
//
// Idempotent: partitions already paused are skipped and receive no duplicate
// signal. The paused set is updated regardless of signal outcome so the
// caller's resume-on-revoke bookkeeping stays exact; signal errors are logged.
//
// Parameters:
//   - ctx: Context for the suspend signal
//   - partitions: Partitions to pause (order irrelevant, duplicates tolerated)
func (fc *FlowController) Pause(ctx context.Context, partitions []TopicPartition) {
	transitioned := make([]TopicPartition, 0, len(partitions))
	for _, tp := range partitions {
		if _, loaded := fc.paused.LoadOrStore(tp, struct{}{}); !loaded {
			transitioned = append(transitioned, tp)
		}
	}

	if len(transitioned) == 0 {
		return
	}

	if err := fc.suspender.SuspendPartitions(ctx, transitioned); err != nil {
		fc.logger.Error("failed to signal partition suspension",
			"partitions", len(transitioned), "error", err)
	}

	fc.logger.Info("partitions paused", "count", len(transitioned), "totalPaused", fc.paused.Size())
	fc.metrics.RecordFlowSignal(types.FlowPause, len(transitioned))
	fc.metrics.RecordPausedPartitions(fc.paused.Size())
	fc.firePartitionHook(ctx, fc.hooks.OnPartitionsPaused, "OnPartitionsPaused", transitioned)
}

// Resume removes the given partitions from the paused set and signals
// resumption for the ones that were actually paused.
//
// Idempotent: partitions that are not paused are skipped and receive no
// signal. Resuming a never-paused partition is a no-op.
//
// Parameters:
//   - ctx: Context for the resume signal
//   - partitions: Partitions to resume (order irrelevant, duplicates tolerated)
func (fc *FlowController) Resume(ctx context.Context, partitions []TopicPartition) {
	transitioned := make([]TopicPartition, 0, len(partitions))
	for _, tp := range partitions {
		if _, loaded := fc.paused.LoadAndDelete(tp); loaded {
			transitioned = append(transitioned, tp)
		}
	}

	if len(transitioned) == 0 {
		return
	}

	if err := fc.suspender.ResumePartitions(ctx, transitioned); err != nil {
		fc.logger.Error("failed to signal partition resumption",
			"partitions", len(transitioned), "error", err)
	}

	fc.logger.Info("partitions resumed", "count", len(transitioned), "totalPaused", fc.paused.Size())
	fc.metrics.RecordFlowSignal(types.FlowResume, len(transitioned))
	fc.metrics.RecordPausedPartitions(fc.paused.Size())
	fc.firePartitionHook(ctx, fc.hooks.OnPartitionsResumed, "OnPartitionsResumed", transitioned)
}

// PausedPartitions returns a sorted snapshot of the currently paused set.
//
// Safe to call concurrently with Pause/Resume; the snapshot reflects some
// consistent recent state.
//
// Returns:
//   - []TopicPartition: Sorted copy of the paused set (empty, never nil)
func (fc *FlowController) PausedPartitions() []TopicPartition {
	out := make([]TopicPartition, 0, fc.paused.Size())
	fc.paused.Range(func(tp TopicPartition, _ struct{}) bool {
		out = append(out, tp)

		return true
	})
	slices.SortFunc(out, TopicPartition.Compare)

	return out
}

// IsPaused reports whether the given partition is currently paused.
//
// Returns:
//   - bool: true if the partition is in the paused set
func (fc *FlowController) IsPaused(tp TopicPartition) bool {
	_, ok := fc.paused.Load(tp)

	return ok
}

// firePartitionHook dispatches a flow hook asynchronously; hook failures are
// logged and never fail the operation.
func (fc *FlowController) firePartitionHook(ctx context.Context, hook func(context.Context, []TopicPartition) error, name string, partitions []TopicPartition) {
	if hook == nil {
		return
	}

	go func() {
		if err := hook(ctx, partitions); err != nil {
			fc.logger.Warn("flow hook failed", "hook", name, "partitions", len(partitions), "error", err)
		}
	}()
}
