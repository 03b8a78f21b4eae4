// Package testing provides test helpers for the kafkaflow library.
//
// It contains a testing.T-backed logger and programmable fakes for the
// collaborator interfaces (cluster client, partition suspender, worker pool
// sink), so balancer and flow-controller behavior can be exercised without a
// Kafka cluster.
//
// Import it with an alias to avoid clashing with the standard library:
//
//	kftesting "github.com/weiyilai/kafkaflow/testing"
package testing
