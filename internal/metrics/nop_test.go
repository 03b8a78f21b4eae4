package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/weiyilai/kafkaflow/types"
)

func TestNopMetrics_ImplementsInterface(t *testing.T) {
	t.Helper()
	var _ types.MetricsCollector = (*NopMetrics)(nil)
}

func TestNopMetrics_AllMethodsAreSafe(t *testing.T) {
	n := NewNop()

	require.NotPanics(t, func() {
		n.RecordEvaluation(types.EvaluationSuccess, 0.5)
		n.RecordLag(10, 100)
		n.RecordWorkersCount("orders", 4)
		n.RecordPausedPartitions(2)
		n.RecordFlowSignal(types.FlowPause, 3)
	})
}

func TestPrometheusCollector_RegistersAndRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.RecordEvaluation(types.EvaluationFallback, 0.2)
	p.RecordLag(30, 100)
	p.RecordWorkersCount("orders", 7)
	p.RecordPausedPartitions(1)
	p.RecordFlowSignal(types.FlowResume, 2)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["test_balancer_evaluations_total"])
	require.True(t, names["test_balancer_instance_lag"])
	require.True(t, names["test_balancer_workers"])
	require.True(t, names["test_flow_paused_partitions"])
	require.True(t, names["test_flow_signals_total"])
}

func TestPrometheusCollector_SharedRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewPrometheus(reg, "shared")
	b := NewPrometheus(reg, "shared")

	require.NotPanics(t, func() {
		a.RecordPausedPartitions(1)
		b.RecordPausedPartitions(2)
	})
}
