package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/weiyilai/kafkaflow/internal/logger"
	"github.com/weiyilai/kafkaflow/types"
)

// Sentinel errors returned by the Pool.
var (
	// ErrPoolClosed is returned when submitting to or resizing a closed pool.
	ErrPoolClosed = errors.New("worker pool closed")

	// ErrHandlerRequired is returned when the message handler is nil.
	ErrHandlerRequired = errors.New("message handler is required")

	// ErrConsumerNameRequired is returned when the consumer name is empty.
	ErrConsumerNameRequired = errors.New("consumer name is required")
)

// defaultQueueCapacity is the buffered queue size used when no capacity
// option is given.
const defaultQueueCapacity = 100

// Handler processes a single message.
//
// Handle is invoked from worker goroutines and must be safe for concurrent
// use. A returned error is logged; the pool does not retry.
type Handler interface {
	Handle(ctx context.Context, msg kafka.Message) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg kafka.Message) error

// Handle calls f(ctx, msg).
func (f HandlerFunc) Handle(ctx context.Context, msg kafka.Message) error {
	return f(ctx, msg)
}

// Option configures a Pool.
type Option func(*poolOptions)

type poolOptions struct {
	logger        types.Logger
	queueCapacity int
}

// WithLogger sets a logger.
func WithLogger(l types.Logger) Option {
	return func(o *poolOptions) {
		o.logger = l
	}
}

// WithQueueCapacity sets the buffered message queue size (default: 100).
//
// A smaller queue tightens the backpressure loop: TrySubmit reports a full
// queue sooner, letting the caller pause partitions earlier.
func WithQueueCapacity(capacity int) Option {
	return func(o *poolOptions) {
		o.queueCapacity = capacity
	}
}

// Pool is a resizable set of worker goroutines draining a shared message
// queue.
//
// The zero value is not usable; create instances with New. All methods are
// safe for concurrent use.
type Pool struct {
	consumerName string
	handler      Handler
	logger       types.Logger

	queue chan kafka.Message

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	quits   []chan struct{}
	wg      sync.WaitGroup
}

// Compile-time assertion that Pool implements WorkerPoolSink.
var _ types.WorkerPoolSink = (*Pool)(nil)

// New creates a worker pool for one logical consumer.
//
// The pool starts with zero workers; the first SetWorkerCount call (typically
// from the balancer's initial evaluation) brings it to size.
//
// Parameters:
//   - consumerName: Logical consumer this pool serves (must be non-empty)
//   - handler: Message handler invoked from worker goroutines
//   - opts: Optional configuration (logger, queue capacity)
//
// Returns:
//   - *Pool: Initialized pool with zero workers
//   - error: Missing handler or consumer name
//
// Example:
//
//	p, err := pool.New("orders-processor", pool.HandlerFunc(func(ctx context.Context, msg kafka.Message) error {
//	    return process(msg)
//	}))
func New(consumerName string, handler Handler, opts ...Option) (*Pool, error) {
	if consumerName == "" {
		return nil, ErrConsumerNameRequired
	}
	if handler == nil {
		return nil, ErrHandlerRequired
	}

	options := &poolOptions{queueCapacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = logger.NewNop()
	}
	if options.queueCapacity <= 0 {
		options.queueCapacity = defaultQueueCapacity
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		consumerName: consumerName,
		handler:      handler,
		logger:       options.logger,
		queue:        make(chan kafka.Message, options.queueCapacity),
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// SetWorkerCount resizes the pool to the given worker count.
//
// Scaling up spawns new workers on the shared queue; scaling down retires the
// surplus workers, each finishing the message it currently holds before
// exiting. Queued messages are never dropped by a resize.
//
// Implements types.WorkerPoolSink.
//
// Parameters:
//   - ctx: Caller context (unused beyond early cancellation check)
//   - consumerName: Must match the pool's consumer
//   - workers: Target worker count (negative values are rejected)
//
// Returns:
//   - error: Closed pool, consumer mismatch, negative count, or cancelled ctx
func (p *Pool) SetWorkerCount(ctx context.Context, consumerName string, workers int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if consumerName != p.consumerName {
		return fmt.Errorf("pool serves consumer %q, got resize for %q", p.consumerName, consumerName)
	}
	if workers < 0 {
		return fmt.Errorf("worker count must be >= 0, got %d", workers)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	current := len(p.quits)
	if workers == current {
		return nil
	}

	if workers > current {
		for range workers - current {
			quit := make(chan struct{})
			p.quits = append(p.quits, quit)
			p.wg.Add(1)
			go p.runWorker(quit)
		}
	} else {
		for _, quit := range p.quits[workers:] {
			close(quit)
		}
		p.quits = p.quits[:workers]
	}

	p.logger.Info("worker pool resized",
		"consumer", p.consumerName, "from", current, "to", workers)

	return nil
}

// WorkerCount returns the current number of workers.
func (p *Pool) WorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.quits)
}

// Submit enqueues a message, blocking while the queue is full.
//
// Parameters:
//   - ctx: Context bounding the wait
//   - msg: Message to process
//
// Returns:
//   - error: ctx.Err() if cancelled while waiting, ErrPoolClosed after Close
func (p *Pool) Submit(ctx context.Context, msg kafka.Message) error {
	select {
	case p.queue <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// TrySubmit enqueues a message without blocking.
//
// A false return means the queue is full (or the pool is closed); callers
// using partition flow control treat it as the signal to pause.
//
// Returns:
//   - bool: true if the message was enqueued
func (p *Pool) TrySubmit(msg kafka.Message) bool {
	select {
	case <-p.ctx.Done():
		return false
	default:
	}

	select {
	case p.queue <- msg:
		return true
	default:
		return false
	}
}

// QueueDepth returns the number of messages waiting in the queue.
func (p *Pool) QueueDepth() int {
	return len(p.queue)
}

// QueueCapacity returns the queue's buffered capacity.
func (p *Pool) QueueCapacity() int {
	return cap(p.queue)
}

// Close shuts the pool down: all workers exit after finishing the message
// they hold. Messages still queued at close time are discarded.
//
// Safe to call multiple times.
//
// Parameters:
//   - ctx: Context for shutdown timeout
//
// Returns:
//   - error: ctx.Err() if workers do not exit before ctx expires
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()

		return nil
	}
	p.closed = true
	p.quits = nil
	p.cancel()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool closed", "consumer", p.consumerName)

		return nil
	case <-ctx.Done():
		p.logger.Warn("worker pool close timeout exceeded", "consumer", p.consumerName)

		return ctx.Err()
	}
}

// runWorker drains the shared queue until retired or the pool closes.
func (p *Pool) runWorker(quit chan struct{}) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-quit:
			return
		case msg := <-p.queue:
			p.handle(msg)
		}
	}
}

// handle invokes the handler with panic containment so one bad message never
// kills a worker.
func (p *Pool) handle(msg kafka.Message) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("message handler panicked",
				"consumer", p.consumerName, "topic", msg.Topic, "partition", msg.Partition,
				"offset", msg.Offset, "panic", r)
		}
	}()

	if err := p.handler.Handle(p.ctx, msg); err != nil {
		p.logger.Error("message handler failed",
			"consumer", p.consumerName, "topic", msg.Topic, "partition", msg.Partition,
			"offset", msg.Offset, "error", err)
	}
}
