// Package types provides core type definitions and interfaces for the kafkaflow library.
//
// This package contains shared types that are used across multiple packages in the
// kafkaflow library. By keeping these types in a separate package, we avoid import
// cycles between the main kafkaflow package and its internal implementations.
//
// Key types:
//   - TopicPartition: Identity of a single Kafka topic partition
//   - PartitionLag: Unprocessed backlog for one partition
//   - WorkersCountContext: Per-evaluation input snapshot
//   - ClusterClient: Broker metadata/offset/watermark collaborator
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
