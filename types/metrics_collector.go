package types

// EvaluationResult classifies the outcome of one worker-count evaluation.
type EvaluationResult string

const (
	// EvaluationSuccess means lag was fetched and a proportional count computed.
	EvaluationSuccess EvaluationResult = "success"

	// EvaluationFallback means a remote read failed and the fixed fallback
	// count was returned instead.
	EvaluationFallback EvaluationResult = "fallback"

	// EvaluationEmpty means the instance had no assigned partitions and the
	// cluster was not queried at all.
	EvaluationEmpty EvaluationResult = "empty"
)

// FlowOperation classifies a flow-control signal direction.
type FlowOperation string

const (
	// FlowPause is a suspend signal to the partition-consumption mechanism.
	FlowPause FlowOperation = "pause"

	// FlowResume is a resume signal to the partition-consumption mechanism.
	FlowResume FlowOperation = "resume"
)

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods are called from internal goroutines and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	BalancerMetrics
	FlowMetrics
}

// BalancerMetrics defines metrics for worker-count evaluations.
type BalancerMetrics interface {
	// RecordEvaluation records one evaluation tick by outcome.
	//
	// Parameters:
	//   - result: Evaluation outcome classification
	//   - duration: Time taken in seconds
	RecordEvaluation(result EvaluationResult, duration float64)

	// RecordLag sets the most recently observed lag values (gauge metrics).
	//
	// Parameters:
	//   - instanceLag: Lag attributable to this instance's assigned partitions
	//   - totalLag: Lag across the full topic set of the consumer group
	RecordLag(instanceLag, totalLag int64)

	// RecordWorkersCount sets the most recently computed worker count (gauge metric).
	//
	// Parameters:
	//   - consumerName: Logical consumer the count was computed for
	//   - workers: Computed worker count after clamping
	RecordWorkersCount(consumerName string, workers int)
}

// FlowMetrics defines metrics for partition flow control.
type FlowMetrics interface {
	// RecordPausedPartitions sets the current number of paused partitions (gauge metric).
	RecordPausedPartitions(count int)

	// RecordFlowSignal records a suspend/resume signal batch.
	//
	// Parameters:
	//   - op: Signal direction (pause or resume)
	//   - partitions: Number of partitions that actually transitioned
	RecordFlowSignal(op FlowOperation, partitions int)
}
