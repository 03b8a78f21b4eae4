package metrics

import "github.com/weiyilai/kafkaflow/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A new no-op metrics collector instance
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// BalancerMetrics implementation

// RecordEvaluation discards the evaluation metric.
func (n *NopMetrics) RecordEvaluation(_ /* result */ types.EvaluationResult, _ /* duration */ float64) {
	// No-op
}

// RecordLag discards the lag gauges.
func (n *NopMetrics) RecordLag(_ /* instanceLag */, _ /* totalLag */ int64) {
	// No-op
}

// RecordWorkersCount discards the worker count gauge.
func (n *NopMetrics) RecordWorkersCount(_ /* consumerName */ string, _ /* workers */ int) {
	// No-op
}

// FlowMetrics implementation

// RecordPausedPartitions discards the paused partitions gauge.
func (n *NopMetrics) RecordPausedPartitions(_ /* count */ int) {
	// No-op
}

// RecordFlowSignal discards the flow signal metric.
func (n *NopMetrics) RecordFlowSignal(_ /* op */ types.FlowOperation, _ /* partitions */ int) {
	// No-op
}
