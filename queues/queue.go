package queues

import (
	"context"
	"slices"
	"sync"

	"github.com/reusee/scriptd/events"
	"github.com/reusee/scriptd/logs"
	"github.com/reusee/scriptd/requests"
)

// Queue hands requests from client goroutines to the execution goroutine.
type Queue struct {
	bus    *events.Bus
	logger logs.Logger

	mu      sync.Mutex
	ready   bool
	items   []requests.Queued
	blocked map[int64]bool
	last    int64
	// has a buffered token while items may be non-empty
	signal chan struct{}
}

func New(bus *events.Bus, logger logs.Logger) *Queue {
	return &Queue{
		bus:     bus,
		logger:  logger,
		blocked: make(map[int64]bool),
		signal:  make(chan struct{}, 1),
	}
}

// SetReady allows Enqueue. Called once startup finished.
func (q *Queue) SetReady() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ready = true
}

func (q *Queue) Ready() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ready
}

// Enqueue numbers r and appends it. The request event is emitted before r
// can be dequeued.
func (q *Queue) Enqueue(r requests.Queued) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.ready {
		return 0, requests.ErrNotReady
	}
	q.last++
	r.Base().Number = q.last
	q.bus.Emit(events.Request, r.Info())
	q.items = append(q.items, r)
	q.notify()
	return q.last, nil
}

func (q *Queue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Dequeue blocks until a request not blocked is available or ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (requests.Queued, error) {
	for {
		q.mu.Lock()
		for len(q.items) > 0 {
			r := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			number := r.Base().Number
			if q.blocked[number] {
				delete(q.blocked, number)
				q.logger.InfoContext(ctx, "skip blocked request",
					"number", number,
				)
				continue
			}
			if len(q.items) > 0 {
				q.notify()
			}
			q.mu.Unlock()
			return r, nil
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Block marks numbers so that they are discarded when dequeued.
func (q *Queue) Block(numbers ...int64) {
	if len(numbers) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, n := range numbers {
		q.blocked[n] = true
	}
	q.bus.Emit(events.Blocked, slices.Clone(numbers))
}

// IsBlocked reports whether number is marked blocked and not yet discarded.
func (q *Queue) IsBlocked(number int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.blocked[number]
}

// Pending returns the queued requests, blocked ones excluded.
func (q *Queue) Pending() []requests.Info {
	q.mu.Lock()
	defer q.mu.Unlock()
	ret := make([]requests.Info, 0, len(q.items))
	for _, r := range q.items {
		if q.blocked[r.Base().Number] {
			continue
		}
		ret = append(ret, r.Info())
	}
	return ret
}

func (q *Queue) LastNumber() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.last
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Update calls fn with the queued request numbered number. It reports
// whether such a request was found.
func (q *Queue) Update(number int64, fn func(requests.Queued) error) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, r := range q.items {
		if r.Base().Number == number {
			return true, fn(r)
		}
	}
	return false, nil
}
