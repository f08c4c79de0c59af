package executions

import (
	"context"
	"fmt"

	"github.com/reusee/scriptd/breaks"
	"github.com/reusee/scriptd/requests"
	"go.starlark.net/starlark"
)

// EmergencyFunc is run by an emergency stop on a fresh thread.
type EmergencyFunc func(ctx context.Context, thread *starlark.Thread) error

// AddEmergencyStopFunction registers fn and returns its index.
func (c *Controller) AddEmergencyStopFunction(fn EmergencyFunc) (int, error) {
	if fn == nil {
		return 0, fmt.Errorf("%w: nil function", ErrNotCallable)
	}
	c.emergencyMu.Lock()
	defer c.emergencyMu.Unlock()
	c.emergencyFuncs = append(c.emergencyFuncs, fn)
	return len(c.emergencyFuncs) - 1, nil
}

func (c *Controller) builtinAddEmergencyStop(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fn starlark.Value
	var fnArgs starlark.Value = starlark.Tuple(nil)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "fn", &fn, "args?", &fnArgs); err != nil {
		return nil, err
	}
	callable, ok := fn.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotCallable, fn.Type())
	}
	tuple, ok := fnArgs.(starlark.Tuple)
	if !ok {
		return nil, fmt.Errorf("%w: args must be a tuple, not %s", ErrBadArgs, fnArgs.Type())
	}
	index, err := c.AddEmergencyStopFunction(func(ctx context.Context, thread *starlark.Thread) error {
		_, err := starlark.Call(thread, callable, tuple, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return starlark.MakeInt(index), nil
}

// EmergencyStop stops the running script and runs the emergency functions,
// or queues an emergency stop request when nothing is running.
func (c *Controller) EmergencyStop(user *requests.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		if err := c.breaker.Stop(breaks.ReasonEmergency); err != nil {
			return err
		}
		c.thread.Cancel(breaks.ReasonEmergency)
		return nil
	}
	req, err := requests.NewEmergencyStopRequest(user)
	if err != nil {
		return err
	}
	// scripts queued now must not run before the emergency request
	c.blockUnstarted()
	if _, err := c.NewRequest(req); err != nil {
		return err
	}
	c.emergencyPending = true
	return nil
}

// blockUnstarted blocks every request queued after the last started one.
// c.mu must be held.
func (c *Controller) blockUnstarted() {
	var numbers []int64
	for n := c.lastStarted + 1; n <= c.Queue.LastNumber(); n++ {
		numbers = append(numbers, n)
	}
	c.Queue.Block(numbers...)
}

// ExecuteEmergencyStop blocks every request queued after the last started
// one and runs the emergency functions in registration order.
func (c *Controller) ExecuteEmergencyStop(ctx context.Context, user *requests.User) {
	c.Config.Logger.WarnContext(ctx, "emergency stop",
		"user", user.Name,
	)
	c.Metrics.EmergencyStops.Inc()

	c.mu.Lock()
	c.blockUnstarted()
	c.mu.Unlock()

	c.emergencyMu.Lock()
	funcs := append([]EmergencyFunc(nil), c.emergencyFuncs...)
	c.emergencyMu.Unlock()

	thread := c.Interp.NewThread(ctx, "emergency", nil)
	sources := c.Interp.Sources()
	for i, fn := range funcs {
		func() {
			defer func() {
				if p := recover(); p != nil {
					c.Config.Logger.ErrorContext(ctx, "emergency function panic",
						"index", i,
						"panic", fmt.Sprint(p),
					)
				}
			}()
			if err := fn(ctx, thread); err != nil {
				c.Config.Logger.ErrorContext(ctx, "emergency function failed",
					"index", i,
					"traceback", sources.Traceback(err),
				)
			}
		}()
	}
}
