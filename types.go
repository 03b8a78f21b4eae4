package kafkaflow

import "github.com/weiyilai/kafkaflow/types"

// Re-export types from the internal types package.
//
// This file provides a stable, backward-compatible public API for the library's
// core types and interfaces. It uses type aliases to re-export definitions
// from the `types` subpackage, which contains the actual implementations.
//
// This pattern solves the "import cycle" problem by allowing internal packages
// to depend on `types` without depending on the root `kafkaflow` package, while
// still providing a convenient `kafkaflow.TopicPartition`, `kafkaflow.Logger`,
// etc. for users.
type (
	TopicPartition      = types.TopicPartition
	PartitionLag        = types.PartitionLag
	WorkersCountContext = types.WorkersCountContext
)

// Re-export interfaces from the internal types package for convenience.
type (
	ClusterClient      = types.ClusterClient
	PartitionSuspender = types.PartitionSuspender
	WorkerPoolSink     = types.WorkerPoolSink
	MetricsCollector   = types.MetricsCollector
	Logger             = types.Logger
	Hooks              = types.Hooks
)
