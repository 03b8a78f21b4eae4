package kafkaflow

import "errors"

// Sentinel errors returned by the Balancer and FlowController.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrClusterClientRequired is returned when the cluster client is nil.
	ErrClusterClientRequired = errors.New("cluster client is required")

	// ErrWorkerPoolSinkRequired is returned when the worker pool sink is nil.
	ErrWorkerPoolSinkRequired = errors.New("worker pool sink is required")

	// ErrSuspenderRequired is returned when the partition suspender is nil.
	ErrSuspenderRequired = errors.New("partition suspender is required")

	// ErrAlreadyStarted is returned when Start is called on an already running balancer.
	ErrAlreadyStarted = errors.New("balancer already started")

	// ErrNotStarted is returned when Stop is called on a balancer that hasn't been started.
	ErrNotStarted = errors.New("balancer not started")
)
