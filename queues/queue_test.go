package queues

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reusee/dscope"
	"github.com/reusee/scriptd/events"
	"github.com/reusee/scriptd/modes"
	"github.com/reusee/scriptd/requests"
)

var testUser = &requests.User{
	Name:  "tester",
	Level: requests.UserLevel,
}

func newTestQueue(t *testing.T) (q *Queue, bus *events.Bus) {
	dscope.New(
		modes.ForTest(t),
		new(Module),
	).Call(func(
		queue *Queue,
		b *events.Bus,
	) {
		q = queue
		bus = b
	})
	return
}

func newScript(t *testing.T, text string) *requests.ScriptRequest {
	req, err := requests.NewScriptRequest(testUser, "", text)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestNotReady(t *testing.T) {
	q, _ := newTestQueue(t)
	_, err := q.Enqueue(newScript(t, "x"))
	if !errors.Is(err, requests.ErrNotReady) {
		t.Fatalf("got %v", err)
	}
	if !errors.Is(err, requests.ErrRequest) {
		t.Fatal()
	}
}

func TestFIFO(t *testing.T) {
	q, bus := newTestQueue(t)
	var mu sync.Mutex
	var requested []int64
	bus.Subscribe(func(ev events.Event) {
		if ev.Name == events.Request {
			mu.Lock()
			requested = append(requested, ev.Payload.(requests.Info).Number)
			mu.Unlock()
		}
	})
	q.SetReady()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := q.Enqueue(newScript(t, "x")); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	var last int64
	for range 10 {
		r, err := q.Dequeue(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if n := r.Base().Number; n <= last {
			t.Fatalf("got %d after %d", n, last)
		} else {
			last = n
		}
	}
	if last != 10 || q.LastNumber() != 10 {
		t.Fatalf("got %d", last)
	}
	mu.Lock()
	defer mu.Unlock()
	for i, n := range requested {
		if n != int64(i+1) {
			t.Fatalf("got %v", requested)
		}
	}
}

func TestDequeueBlocks(t *testing.T) {
	q, _ := newTestQueue(t)
	q.SetReady()
	got := make(chan int64, 1)
	go func() {
		r, err := q.Dequeue(context.Background())
		if err != nil {
			t.Error(err)
			return
		}
		got <- r.Base().Number
	}()
	time.Sleep(10 * time.Millisecond)
	q.Enqueue(newScript(t, "x"))
	select {
	case n := <-got:
		if n != 1 {
			t.Fatalf("got %d", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := q.Dequeue(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v", err)
	}
}

func TestBlock(t *testing.T) {
	q, bus := newTestQueue(t)
	var blocked []int64
	bus.Subscribe(func(ev events.Event) {
		if ev.Name == events.Blocked {
			blocked = append(blocked, ev.Payload.([]int64)...)
		}
	})
	q.SetReady()
	for range 3 {
		q.Enqueue(newScript(t, "x"))
	}
	q.Block(2)
	if len(blocked) != 1 || blocked[0] != 2 {
		t.Fatalf("got %v", blocked)
	}
	if n := len(q.Pending()); n != 2 {
		t.Fatalf("got %d", n)
	}
	r, _ := q.Dequeue(context.Background())
	if r.Base().Number != 1 {
		t.Fatal()
	}
	r, _ = q.Dequeue(context.Background())
	if r.Base().Number != 3 {
		t.Fatalf("got %d", r.Base().Number)
	}
	if q.IsBlocked(2) {
		t.Fatal("should be discarded")
	}
	if q.Len() != 0 {
		t.Fatal()
	}
}

func TestUpdateQueued(t *testing.T) {
	q, _ := newTestQueue(t)
	q.SetReady()
	n, _ := q.Enqueue(newScript(t, "a = 1\n"))
	found, err := q.Update(n, func(r requests.Queued) error {
		return r.(*requests.ScriptRequest).SetText("b = 2\n")
	})
	if err != nil || !found {
		t.Fatal()
	}
	if q.Pending()[0].Script != "b = 2\n" {
		t.Fatal()
	}
	found, _ = q.Update(42, nil)
	if found {
		t.Fatal()
	}
}
