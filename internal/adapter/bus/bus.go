// Package bus provides an in-process event bus with partitioned delivery.
// Events published with the same key are handled by the same worker, so
// per-key ordering holds end to end. It stands in for an external broker
// behind the domain.EventPublisher interface.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
)

// Handler consumes one serialized event payload
type Handler func(ctx context.Context, payload []byte) error

// ErrClosed is returned by Publish after Close
var ErrClosed = errors.New("event bus is closed")

const defaultPartitions = 8

type envelope struct {
	topic   string
	payload []byte
}

// queue is an unbounded per-partition event queue. Publish must never
// block: handlers publish follow-up events keyed by the same symbol they
// are being invoked under, and a bounded channel would deadlock the
// partition worker on its own full buffer.
type queue struct {
	mu     sync.Mutex
	events []envelope
	wake   chan struct{}
	closed bool
}

func newQueue(capacity int) *queue {
	return &queue{
		events: make([]envelope, 0, capacity),
		wake:   make(chan struct{}, 1),
	}
}

func (q *queue) push(env envelope) {
	q.mu.Lock()
	q.events = append(q.events, env)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// pop returns the next event, blocking while the queue is empty. The
// second return is false once the queue is closed and drained.
func (q *queue) pop() (envelope, bool) {
	for {
		q.mu.Lock()
		if len(q.events) > 0 {
			env := q.events[0]
			q.events = q.events[1:]
			q.mu.Unlock()
			return env, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return envelope{}, false
		}
		<-q.wake
	}
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Bus routes published events to topic handlers across a fixed set of
// partition workers. Partition is chosen by hashing the event key.
type Bus struct {
	mu         sync.RWMutex
	handlers   map[string][]Handler
	partitions []*queue
	wg         sync.WaitGroup
	closed     bool
	log        *slog.Logger
}

// New creates a bus with the given partition count. Zero or negative
// partitions falls back to the default. bufferSize is only the initial
// queue capacity; partitions grow as needed so publishes never block.
func New(partitions, bufferSize int, log *slog.Logger) *Bus {
	if partitions <= 0 {
		partitions = defaultPartitions
	}
	if bufferSize < 0 {
		bufferSize = 0
	}

	b := &Bus{
		handlers:   make(map[string][]Handler),
		partitions: make([]*queue, partitions),
		log:        log,
	}
	for i := range b.partitions {
		b.partitions[i] = newQueue(bufferSize)
	}
	return b
}

// Subscribe registers a handler for a topic. Must be called before Start.
func (b *Bus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Start launches the partition workers. Workers run until Close drains
// their queues; ctx is passed through to handlers.
func (b *Bus) Start(ctx context.Context) {
	for i := range b.partitions {
		b.wg.Add(1)
		go b.worker(ctx, i)
	}
}

func (b *Bus) worker(ctx context.Context, partition int) {
	defer b.wg.Done()
	q := b.partitions[partition]
	for {
		env, ok := q.pop()
		if !ok {
			return
		}
		b.dispatch(ctx, env)
	}
}

func (b *Bus) dispatch(ctx context.Context, env envelope) {
	b.mu.RLock()
	handlers := b.handlers[env.topic]
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, env.payload); err != nil {
			// A failing handler must not stall the partition; log and move on.
			b.log.Error("event handler failed",
				slog.String("topic", env.topic),
				slog.String("error", err.Error()))
		}
	}
}

// Publish serializes the payload and enqueues it on the partition owned
// by key. Events sharing a key are delivered in publish order. Publish
// never blocks, so handlers may publish from within a delivery.
func (b *Bus) Publish(ctx context.Context, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize event for topic %s: %w", topic, err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	b.partitions[b.partition(key)].push(envelope{topic: topic, payload: data})
	return nil
}

func (b *Bus) partition(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(b.partitions)))
}

// Close stops accepting publishes and waits for in-flight events to drain
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for i := range b.partitions {
		b.partitions[i].close()
	}
	b.mu.Unlock()

	b.wg.Wait()
}
