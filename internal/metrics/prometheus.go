package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/weiyilai/kafkaflow/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	// Balancer metrics
	evaluations        *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	instanceLagGauge   prometheus.Gauge
	totalLagGauge      prometheus.Gauge
	workersGauge       *prometheus.GaugeVec

	// Flow metrics
	pausedGauge prometheus.Gauge
	flowSignals *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "kafkaflow" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "kafkaflow"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.evaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "balancer",
			Name:      "evaluations_total",
			Help:      "Total worker-count evaluations by result (success, fallback, empty).",
		}, []string{"result"})

		p.evaluationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "balancer",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of worker-count evaluations in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms .. ~20s
		})

		p.instanceLagGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "balancer",
			Name:      "instance_lag",
			Help:      "Lag attributable to this instance's assigned partitions.",
		})

		p.totalLagGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "balancer",
			Name:      "total_lag",
			Help:      "Lag across the full topic set of the consumer group.",
		})

		p.workersGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "balancer",
			Name:      "workers",
			Help:      "Most recently computed worker count per consumer.",
		}, []string{"consumer"})

		p.pausedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "flow",
			Name:      "paused_partitions",
			Help:      "Current number of paused partitions.",
		})

		p.flowSignals = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "flow",
			Name:      "signals_total",
			Help:      "Total partitions signalled by direction (pause, resume).",
		}, []string{"op"})

		collectors := []prometheus.Collector{
			p.evaluations,
			p.evaluationDuration,
			p.instanceLagGauge,
			p.totalLagGauge,
			p.workersGauge,
			p.pausedGauge,
			p.flowSignals,
		}
		for _, c := range collectors {
			// AlreadyRegisteredError is tolerated so multiple balancers can
			// share one registerer.
			if err := p.reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	})
}

// RecordEvaluation increments the evaluation counter and observes the duration.
func (p *PrometheusCollector) RecordEvaluation(result types.EvaluationResult, duration float64) {
	p.ensureRegistered()
	p.evaluations.WithLabelValues(string(result)).Inc()
	p.evaluationDuration.Observe(duration)
}

// RecordLag sets the instance and total lag gauges.
func (p *PrometheusCollector) RecordLag(instanceLag, totalLag int64) {
	p.ensureRegistered()
	p.instanceLagGauge.Set(float64(instanceLag))
	p.totalLagGauge.Set(float64(totalLag))
}

// RecordWorkersCount sets the per-consumer workers gauge.
func (p *PrometheusCollector) RecordWorkersCount(consumerName string, workers int) {
	p.ensureRegistered()
	p.workersGauge.WithLabelValues(consumerName).Set(float64(workers))
}

// RecordPausedPartitions sets the paused partitions gauge.
func (p *PrometheusCollector) RecordPausedPartitions(count int) {
	p.ensureRegistered()
	p.pausedGauge.Set(float64(count))
}

// RecordFlowSignal adds the transitioned partition count to the signal counter.
func (p *PrometheusCollector) RecordFlowSignal(op types.FlowOperation, partitions int) {
	p.ensureRegistered()
	p.flowSignals.WithLabelValues(string(op)).Add(float64(partitions))
}
