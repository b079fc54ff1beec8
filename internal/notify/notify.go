package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Publisher delivers one event id to the realtime channel. Implementations
// may fail; the queue logs and moves on.
type Publisher interface {
	Publish(ctx context.Context, eventID string) error
}

// Queue decouples the access-decision path from notification I/O. Enqueue is
// non-blocking; a single goroutine drains the buffer into the Publisher so a
// slow or failing channel can never delay an access response.
type Queue struct {
	pub Publisher
	log *slog.Logger

	ch   chan string
	stop chan struct{}
	done sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewQueue(pub Publisher, buffer int, log *slog.Logger) *Queue {
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = slog.Default()
	}
	return &Queue{
		pub:  pub,
		log:  log,
		ch:   make(chan string, buffer),
		stop: make(chan struct{}),
	}
}

// Start launches the drain goroutine. Idempotent.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		q.done.Add(1)
		go q.drain()
	})
}

// Enqueue offers an event id to the queue. Returns false when the buffer is
// full; the notification is dropped, never the event.
func (q *Queue) Enqueue(eventID string) bool {
	select {
	case q.ch <- eventID:
		return true
	default:
		return false
	}
}

// Close stops accepting work and waits for the drain goroutine to flush the
// buffer, up to timeout. Safe to call more than once.
func (q *Queue) Close(timeout time.Duration) {
	q.stopOnce.Do(func() { close(q.stop) })

	flushed := make(chan struct{})
	go func() {
		q.done.Wait()
		close(flushed)
	}()
	select {
	case <-flushed:
	case <-time.After(timeout):
		q.log.Warn("notify queue close timed out, notifications dropped", "pending", len(q.ch))
	}
}

func (q *Queue) drain() {
	defer q.done.Done()
	for {
		select {
		case id := <-q.ch:
			q.publish(id)
		case <-q.stop:
			// Flush whatever is already buffered, then exit.
			for {
				select {
				case id := <-q.ch:
					q.publish(id)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) publish(eventID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.pub.Publish(ctx, eventID); err != nil {
		q.log.Warn("event notification publish failed", "event_id", eventID, "error", err)
	}
}
