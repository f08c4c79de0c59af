package executions

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/reusee/scriptd/breaks"
	"github.com/reusee/scriptd/notifies"
	"github.com/reusee/scriptd/scriptdconfigs"
	"github.com/reusee/scriptd/scripts"
	"go.starlark.net/starlark"
)

type calls struct {
	mu    sync.Mutex
	names []string
}

func (c *calls) builtin() *starlark.Builtin {
	return starlark.NewBuiltin("record", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var name string
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.names = append(c.names, name)
		c.mu.Unlock()
		return starlark.None, nil
	})
}

func (c *calls) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.names)
}

func TestEmergencyStop(t *testing.T) {
	g := newGate()
	called := new(calls)
	c, rec := newTestController(t, func() scripts.Builtins {
		return scripts.Builtins{
			"wait_release": g.builtin(),
			"record":       called.builtin(),
		}
	})

	n1 := queue(t, c, `
def f1():
    record("f1")

def f2():
    fail("boom")

add_emergency_stop(f1)
add_emergency_stop(f2)
add_emergency_stop(record, ("f3",))
`)
	if payload := rec.waitDone(t, n1); !payload.Success {
		t.Fatalf("got %+v", payload)
	}

	n2 := queue(t, c, "wait_release()\nx = 1")
	<-g.entered
	n3 := queue(t, c, "y = 1")
	if err := c.EmergencyStop(testUser); err != nil {
		t.Fatal(err)
	}
	close(g.release)

	payload := rec.waitDone(t, n2)
	if !payload.Stopped || payload.Reason != breaks.ReasonEmergency {
		t.Fatalf("got %+v", payload)
	}
	if got := called.get(); !slices.Equal(got, []string{"f1", "f3"}) {
		t.Fatalf("got %v", got)
	}

	n4 := queue(t, c, "z = 1")
	rec.waitDone(t, n4)
	if _, ok := rec.done(n3); ok {
		t.Fatal("request queued before emergency stop executed")
	}
	if _, err := c.ExecuteScript(context.Background(), "x", testUser); err == nil {
		t.Fatal("stopped script went on")
	}
}

func TestEmergencyStopIdle(t *testing.T) {
	called := new(calls)
	c, _ := newTestController(t, func() scripts.Builtins {
		return scripts.Builtins{
			"record": called.builtin(),
		}
	})
	eval(t, c, `add_emergency_stop(record, ("idle",))`)
	if err := c.EmergencyStop(testUser); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		return slices.Equal(called.get(), []string{"idle"})
	})
}

// heldNotifier holds the execution goroutine after a script finished.
type heldNotifier struct {
	entered chan struct{}
	release chan struct{}
}

func (h heldNotifier) Notify(ctx context.Context, n notifies.Notification) error {
	h.entered <- struct{}{}
	<-h.release
	return nil
}

func TestEmergencyStopBetweenScripts(t *testing.T) {
	called := new(calls)
	notifier := heldNotifier{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
	c, rec := newTestController(t,
		func() scripts.Builtins {
			return scripts.Builtins{
				"record": called.builtin(),
			}
		},
		func() notifies.Notifier {
			return notifier
		},
		func() scriptdconfigs.NotifyAfter {
			return scriptdconfigs.NotifyAfter(time.Nanosecond)
		},
	)
	eval(t, c, `add_emergency_stop(record, ("between",))`)

	n1 := queue(t, c, "a = 1")
	<-notifier.entered
	n2 := queue(t, c, "b = 1")
	n3 := queue(t, c, "record('n3')")
	if err := c.EmergencyStop(testUser); err != nil {
		t.Fatal(err)
	}
	close(notifier.release)

	if payload := rec.waitDone(t, n1); !payload.Success {
		t.Fatalf("got %+v", payload)
	}
	// the emergency request was numbered right after n3
	if payload := rec.waitDone(t, n3+1); !payload.Success {
		t.Fatalf("got %+v", payload)
	}
	n4 := queue(t, c, "d = 1")
	if payload := rec.waitDone(t, n4); !payload.Success {
		t.Fatalf("got %+v", payload)
	}
	for _, n := range []int64{n2, n3} {
		if _, ok := rec.done(n); ok {
			t.Fatalf("%d ran after emergency stop", n)
		}
	}
	if got := called.get(); !slices.Equal(got, []string{"between"}) {
		t.Fatalf("got %v", got)
	}
	if _, err := c.ExecuteScript(context.Background(), "b", testUser); err == nil {
		t.Fatal("queued script ran")
	}
}

func TestAddEmergencyStopBadArgs(t *testing.T) {
	c, _ := newTestController(t)
	_, err := c.ExecuteScript(context.Background(), "add_emergency_stop(1)", testUser)
	if err == nil || !strings.Contains(err.Error(), ErrNotCallable.Error()) {
		t.Fatalf("got %v", err)
	}
	_, err = c.ExecuteScript(context.Background(), "add_emergency_stop(print, [1])", testUser)
	if err == nil || !strings.Contains(err.Error(), ErrBadArgs.Error()) {
		t.Fatalf("got %v", err)
	}
	if _, err := c.AddEmergencyStopFunction(nil); !errors.Is(err, ErrNotCallable) {
		t.Fatalf("got %v", err)
	}
	if res := eval(t, c, "add_emergency_stop(print)"); res != "0" {
		t.Fatalf("got %q", res)
	}
}
