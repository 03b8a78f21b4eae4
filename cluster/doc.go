// Package cluster provides a kafka-go backed implementation of the
// types.ClusterClient collaborator interface.
//
// The client wraps segmentio/kafka-go's broker client and exposes the three
// read paths the balancer needs: topic partition metadata, consumer-group
// committed offsets (batched across topics), and per-partition high
// watermarks. It owns no state beyond the underlying connection pool and is
// safe for concurrent use.
package cluster
