package executions

import (
	"context"
	"strings"
	"testing"

	"github.com/reusee/scriptd/events"
	"github.com/reusee/scriptd/scripts"
)

func TestWatches(t *testing.T) {
	c, _ := newTestController(t)
	if err := c.AddWatch("1+1", ""); err != nil {
		t.Fatal(err)
	}
	if err := c.AddWatch("undefined_name", "g"); err != nil {
		t.Fatal(err)
	}
	if err := c.AddWatch("1+", ""); err == nil {
		t.Fatal("should fail")
	}

	values := c.EvalWatches(context.Background())
	if values["1+1"] != "2" {
		t.Fatalf("got %v", values)
	}
	if !strings.HasPrefix(values["undefined_name"], "error: ") {
		t.Fatalf("got %v", values)
	}

	if n := c.RemoveWatchGroup("g"); n != 1 {
		t.Fatalf("got %d", n)
	}
	if !c.RemoveWatch("1+1") {
		t.Fatal()
	}
	if c.RemoveWatch("1+1") {
		t.Fatal()
	}
	if len(c.Watches()) != 0 {
		t.Fatal()
	}
}

func TestWatchEvents(t *testing.T) {
	g := newGate()
	c, rec := newTestController(t, func() scripts.Builtins {
		return scripts.Builtins{
			"wait_release": g.builtin(),
		}
	})
	if err := c.AddWatch("a", ""); err != nil {
		t.Fatal(err)
	}
	n := queue(t, c, "a = 41\nwait_release()\na = a + 1\n")
	<-g.entered
	close(g.release)
	rec.waitDone(t, n)

	var seen bool
	for _, ev := range rec.snapshot() {
		if ev.Name != events.Watch {
			continue
		}
		if ev.Payload.(map[string]string)["a"] == "41" {
			seen = true
		}
	}
	if !seen {
		t.Fatal("no watch event during execution")
	}
	if values := c.EvalWatches(context.Background()); values["a"] != "42" {
		t.Fatalf("got %v", values)
	}
}

func TestClosest(t *testing.T) {
	candidates := []string{"print", "emergency_stop_count", "x"}
	for target, expected := range map[string]string{
		"prnt":    "print",
		"pritn":   "print",
		"emergcy": "emergency_stop_count",
		"qqqqqq":  "",
	} {
		if got := closest(target, candidates); got != expected {
			t.Fatalf("%s: got %q, expected %q", target, got, expected)
		}
	}
}
