// Package pool provides a dynamically resizable worker pool for processing
// Kafka messages.
//
// The pool implements types.WorkerPoolSink, so it can be handed directly to a
// kafkaflow.Balancer: each evaluation tick resizes the pool to the computed
// worker count. Messages enter through Submit/TrySubmit and are fanned out to
// however many workers are currently running; resizing never drops queued
// messages, and a worker being retired finishes the message it holds before
// exiting.
//
// TrySubmit gives callers a non-blocking backpressure probe: a false return
// (queue full) is the natural moment to pause partitions through a
// kafkaflow.FlowController.
package pool
