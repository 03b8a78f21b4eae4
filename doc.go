// Package kafkaflow provides lag-based worker balancing and partition flow
// control for distributed Kafka consumer applications.
//
// Each instance of a consumer application runs its own Balancer. On a fixed
// interval the balancer fetches the consumer group's committed offsets and the
// high watermarks of every partition of the subscribed topics, computes how
// much of the group-wide backlog this instance is responsible for, and resizes
// the instance's worker pool so that the aggregate worker count across all
// instances tracks a configured target. No cross-instance coordination is
// involved: every instance estimates its share independently from
// cluster-observable data.
//
// # Quick Start
//
//	cfg := kafkaflow.Config{
//	    ConsumerName: "orders-processor",
//	    GroupID:      "orders-group",
//	    TotalWorkers: 100,
//	    MinInstanceWorkers: 1,
//	    MaxInstanceWorkers: 50,
//	}
//
//	cc := cluster.New([]string{"localhost:9092"})
//	p, err := pool.New("orders-processor", handler)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	balancer, err := kafkaflow.NewBalancer(&cfg, cc, p)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := balancer.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer balancer.Stop(context.Background())
//
// The consumer group rebalance callback feeds the balancer the instance's
// current assignment:
//
//	balancer.SetAssignment(assigned)
//
// # Flow Control
//
// FlowController tracks which partitions are paused for this instance and
// signals the underlying consumption mechanism only on actual transitions:
//
//	flow, err := kafkaflow.NewFlowController(suspender)
//	flow.Pause(ctx, []kafkaflow.TopicPartition{{Topic: "orders", Partition: 3}})
//	// ... downstream pressure relieved ...
//	flow.Resume(ctx, []kafkaflow.TopicPartition{{Topic: "orders", Partition: 3}})
//
// Pausing stops future delivery; it never cancels messages already handed to a
// worker, and it does not leave the consumer group.
//
// # Failure Behavior
//
// Worker-count evaluation never fails: any remote read error collapses to the
// fixed fallback count of one worker plus an error log, so a degraded cluster
// can never stall or crash the owning worker pool's resize path.
//
// See the examples/ directory for complete working examples.
package kafkaflow
