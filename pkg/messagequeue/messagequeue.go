package messagequeue

import (
	"context"
	"errors"
	"sync"
)

// Handler processes one delivered message. A returned error rejects the message.
type Handler func(ctx context.Context, body []byte) error

// MessageQueue defines the interface for message queue services.
type MessageQueue interface {
	Publish(ctx context.Context, queueName string, body []byte) error
	// Consume blocks, feeding messages to handler until ctx is canceled.
	Consume(ctx context.Context, queueName string, handler Handler) error
	Close() error
}

// ErrClosed is returned when publishing on a closed queue.
var ErrClosed = errors.New("message queue closed")

const memoryQueueBuffer = 256

// MemoryQueue is an in-process MessageQueue used when no broker is configured.
type MemoryQueue struct {
	mu     sync.Mutex
	queues map[string]chan []byte
	closed bool
}

// NewMemoryQueue creates an empty MemoryQueue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{queues: make(map[string]chan []byte)}
}

func (q *MemoryQueue) queue(name string) (chan []byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}
	ch, ok := q.queues[name]
	if !ok {
		ch = make(chan []byte, memoryQueueBuffer)
		q.queues[name] = ch
	}
	return ch, nil
}

// Publish enqueues a copy of body. It blocks while the queue is full.
func (q *MemoryQueue) Publish(ctx context.Context, queueName string, body []byte) error {
	ch, err := q.queue(queueName)
	if err != nil {
		return err
	}
	msg := append([]byte(nil), body...)
	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume delivers messages to handler until ctx is canceled or the queue is closed.
// Rejected messages are dropped.
func (q *MemoryQueue) Consume(ctx context.Context, queueName string, handler Handler) error {
	ch, err := q.queue(queueName)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			_ = handler(ctx, msg)
		}
	}
}

// Close stops all consumers. Further publishes fail with ErrClosed.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	for _, ch := range q.queues {
		close(ch)
	}
	return nil
}
