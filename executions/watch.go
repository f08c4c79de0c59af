package executions

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/reusee/scriptd/events"
	"github.com/reusee/scriptd/scripts"
	"go.starlark.net/starlark"
)

type Watch struct {
	Expr  string `json:"expr" yaml:"expr"`
	Group string `json:"group,omitempty" yaml:"group,omitempty"`
}

// AddWatch adds expr to the watch list. Adding an existing expression
// moves it to group.
func (c *Controller) AddWatch(expr, group string) error {
	if _, err := scripts.FileOptions.ParseExpr("<watch>", expr, 0); err != nil {
		return err
	}
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	for i, w := range c.watches {
		if w.Expr == expr {
			c.watches[i].Group = group
			return nil
		}
	}
	c.watches = append(c.watches, Watch{
		Expr:  expr,
		Group: group,
	})
	return nil
}

func (c *Controller) RemoveWatch(expr string) bool {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	n := len(c.watches)
	c.watches = slices.DeleteFunc(c.watches, func(w Watch) bool {
		return w.Expr == expr
	})
	return len(c.watches) != n
}

// RemoveWatchGroup removes all watches of group and returns how many.
func (c *Controller) RemoveWatchGroup(group string) int {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	n := len(c.watches)
	c.watches = slices.DeleteFunc(c.watches, func(w Watch) bool {
		return w.Group == group
	})
	return n - len(c.watches)
}

func (c *Controller) Watches() []Watch {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	return slices.Clone(c.watches)
}

// EvalWatches evaluates the watches against the committed namespace.
func (c *Controller) EvalWatches(ctx context.Context) map[string]string {
	return c.evalWatches(ctx, c.Interp.Snapshot())
}

func (c *Controller) evalWatches(ctx context.Context, env starlark.StringDict) map[string]string {
	watches := c.Watches()
	ret := make(map[string]string, len(watches))
	if len(watches) == 0 {
		return ret
	}
	// a thread without hooks, so watch expressions never pause or recurse
	thread := c.Interp.NewThread(ctx, "watch", nil)
	for _, w := range watches {
		v, err := c.Interp.Eval(thread, w.Expr, env)
		if err != nil {
			ret[w.Expr] = fmt.Sprintf("error: %v", err)
			continue
		}
		ret[w.Expr] = scripts.Display(v)
	}
	return ret
}

func (c *Controller) emitWatches(ctx context.Context, env starlark.StringDict) {
	c.watchMu.Lock()
	empty := len(c.watches) == 0
	c.lastWatch = time.Now()
	c.watchMu.Unlock()
	if empty {
		return
	}
	c.Emit(events.Watch, c.evalWatches(ctx, env))
}

// traceWatches re-evaluates the watches at a line boundary, at most once
// per watch interval.
func (c *Controller) traceWatches(thread *starlark.Thread) {
	c.watchMu.Lock()
	skip := len(c.watches) == 0 ||
		(c.WatchInterval > 0 && time.Since(c.lastWatch) < c.WatchInterval)
	c.watchMu.Unlock()
	if skip {
		return
	}
	c.emitWatches(scripts.ThreadContext(thread), c.Interp.LiveGlobals(thread))
}
