package kafkaflow

// Option configures a Balancer or FlowController with optional dependencies.
type Option func(*componentOptions)

// componentOptions holds optional configuration shared by the balancer and
// the flow controller.
type componentOptions struct {
	logger  Logger
	metrics MetricsCollector
	hooks   *Hooks
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewBalancer / NewFlowController
//
// Example:
//
//	logger := zap.NewExample().Sugar()
//	balancer, err := kafkaflow.NewBalancer(&cfg, cc, sink, kafkaflow.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *componentOptions) {
		o.logger = logger
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewBalancer / NewFlowController
//
// Example:
//
//	collector := myPrometheusCollector
//	balancer, err := kafkaflow.NewBalancer(&cfg, cc, sink, kafkaflow.WithMetrics(collector))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *componentOptions) {
		o.metrics = metrics
	}
}

// WithHooks sets lifecycle event hooks.
//
// Hooks run asynchronously in background goroutines; hook errors are logged
// and never fail the operation that triggered them.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewBalancer / NewFlowController
//
// Example:
//
//	hooks := &kafkaflow.Hooks{
//	    OnWorkersCountChanged: func(ctx context.Context, consumer string, workers int) error {
//	        return notifyDashboard(consumer, workers)
//	    },
//	}
//	balancer, err := kafkaflow.NewBalancer(&cfg, cc, sink, kafkaflow.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *componentOptions) {
		o.hooks = hooks
	}
}
