package executions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reusee/scriptd/breaks"
	"github.com/reusee/scriptd/events"
	"github.com/reusee/scriptd/logs"
	"github.com/reusee/scriptd/notifies"
	"github.com/reusee/scriptd/requests"
	"github.com/reusee/scriptd/scripts"
	"go.starlark.net/starlark"
)

// Run initializes the namespace, marks the queue ready and executes
// requests until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.startup(ctx); err != nil {
		c.Config.Logger.ErrorContext(ctx, "startup", "error", err)
		return err
	}
	c.Queue.SetReady()
	c.Config.Logger.InfoContext(ctx, "ready")

	for {
		r, err := c.Queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		c.Metrics.QueueLength.Set(float64(c.Queue.Len()))
		c.dispatch(ctx, r)
	}
}

// seed returns the values every fresh namespace starts with.
func (c *Controller) seed() (starlark.StringDict, error) {
	ret := starlark.StringDict{
		"add_emergency_stop": starlark.NewBuiltin("add_emergency_stop", c.builtinAddEmergencyStop),
	}
	for name, value := range c.Builtins {
		ret[name] = value
	}
	presets, err := scripts.ToStringDict(c.Namespace)
	if err != nil {
		return nil, err
	}
	for name, value := range presets {
		ret[name] = value
	}
	return ret, nil
}

func (c *Controller) startup(ctx context.Context) error {
	seed, err := c.seed()
	if err != nil {
		return fmt.Errorf("%w: namespace: %w", ErrStartup, err)
	}

	c.Interp.Reset(seed)
	err = c.runSetup(ctx, "<setup>", c.Setup)
	if err == nil {
		return nil
	}
	c.Config.Logger.ErrorContext(ctx, "setup failed, trying fallback", "error", err)

	c.Interp.Reset(seed)
	if err := c.runSetup(ctx, "<fallback setup>", c.FallbackSetup); err != nil {
		return fmt.Errorf("%w: %w", ErrStartup, err)
	}
	return nil
}

func (c *Controller) runSetup(ctx context.Context, source string, code []string) error {
	if len(code) == 0 {
		return nil
	}
	text := strings.Join(code, "\n")
	parsed, err := scripts.Parse(source, text, false)
	if err != nil {
		return err
	}
	sources := c.Interp.Sources()
	sources.Register(source, text)
	defer sources.Remove(source)
	thread := c.Interp.NewThread(ctx, source, nil)
	for _, block := range parsed.Blocks {
		if _, err := c.Interp.Exec(thread, block); err != nil {
			return fmt.Errorf("%s", sources.Traceback(err))
		}
	}
	return nil
}

func (c *Controller) dispatch(ctx context.Context, r requests.Queued) {
	base := r.Base()
	c.mu.Lock()
	c.lastStarted = base.Number
	c.mu.Unlock()

	defer func() {
		p := recover()
		if p == nil {
			return
		}
		err := fmt.Errorf("%w: %v", ErrPanic, p)
		c.Config.Logger.ErrorContext(ctx, "request panic",
			"number", base.Number,
			"error", err,
		)
		c.mu.Lock()
		if c.current != nil {
			c.breaker.Finish()
			c.current = nil
			c.thread = nil
		}
		c.mu.Unlock()
		c.Metrics.Scripts.WithLabelValues(scripts.Failed.String()).Inc()
		c.Emit(events.Done, events.DonePayload{
			Number: base.Number,
			Error:  err.Error(),
		})
	}()

	switch r := r.(type) {

	case *requests.EmergencyStopRequest:
		c.mu.Lock()
		c.emergencyPending = false
		c.mu.Unlock()
		started := time.Now()
		c.Emit(events.Processing, r.Info())
		c.ExecuteEmergencyStop(ctx, &r.User)
		c.Emit(events.Done, events.DonePayload{
			Number:   r.Number,
			Success:  true,
			Duration: time.Since(started),
		})

	case *requests.ScriptRequest:
		c.runScript(ctx, r)

	default:
		c.Config.Logger.ErrorContext(ctx, "unknown request",
			"number", base.Number,
			"type", fmt.Sprintf("%T", r),
		)
	}
}

func (c *Controller) execHooks(ctx context.Context) *scripts.Hooks {
	return &scripts.Hooks{
		Trace: func(thread *starlark.Thread, source string, line int) error {
			if err := c.breaker.Trace(breaks.Frame{
				Source: source,
				Line:   line,
			}); err != nil {
				return err
			}
			c.traceWatches(thread)
			return nil
		},
		Breakpoint: func(thread *starlark.Thread, source string, line int) error {
			return c.breaker.Breakpoint(breaks.Frame{
				Source: source,
				Line:   line,
			}, breaks.AfterStep)
		},
		Sleep: func(thread *starlark.Thread, source string, line int, d time.Duration) error {
			return c.breaker.Sleep(breaks.Frame{
				Source: source,
				Line:   line,
			}, d)
		},
		Print: func(thread *starlark.Thread, msg string) {
			c.Config.Logger.InfoContext(ctx, msg,
				"thread", thread.Name,
			)
		},
	}
}

func (c *Controller) runScript(ctx context.Context, req *requests.ScriptRequest) {
	ctx, _ = c.NewSpan(ctx, "", fmt.Sprintf("script %d", req.Number))
	started := time.Now()

	if err := req.Parse(true); err != nil {
		c.Config.Logger.ErrorContext(ctx, "script not parsed",
			"number", req.Number,
			"error", err,
		)
		c.Metrics.Scripts.WithLabelValues(scripts.Failed.String()).Inc()
		c.Emit(events.Done, events.DonePayload{
			Number:   req.Number,
			Name:     req.Name,
			Error:    logs.WrapSpan(ctx, err).Error(),
			Duration: time.Since(started),
		})
		return
	}

	thread := c.Interp.NewThread(ctx, req.Source(), c.execHooks(ctx))
	c.mu.Lock()
	if c.emergencyPending {
		// dequeued before a pending emergency stop blocked it
		c.mu.Unlock()
		c.Config.Logger.WarnContext(ctx, "script skipped by emergency stop",
			"number", req.Number,
		)
		c.Metrics.Scripts.WithLabelValues(scripts.Stopped.String()).Inc()
		c.Emit(events.Done, events.DonePayload{
			Number:   req.Number,
			Name:     req.Name,
			Stopped:  true,
			Reason:   breaks.ReasonEmergency,
			Duration: time.Since(started),
		})
		return
	}
	if err := c.breaker.Begin(req.Source()); err != nil {
		c.mu.Unlock()
		// not reachable with a single execution goroutine
		panic(err)
	}
	c.current = req
	c.thread = thread
	c.mu.Unlock()

	outcome := req.Execute(ctx, c)

	c.mu.Lock()
	reason, stopped := c.breaker.Finish()
	c.current = nil
	c.thread = nil
	c.mu.Unlock()
	if stopped && reason == breaks.ReasonEmergency && outcome.Kind != scripts.Stopped {
		// emergency stop arriving after the last block
		outcome = scripts.Stop(reason)
	}

	payload := events.DonePayload{
		Number: req.Number,
		Name:   req.Name,
	}
	sources := c.Interp.Sources()
	switch outcome.Kind {

	case scripts.Continued:
		payload.Success = true

	case scripts.Stopped:
		payload.Stopped = true
		payload.Reason = outcome.Reason
		if outcome.Reason == breaks.ReasonEmergency {
			c.ExecuteEmergencyStop(ctx, &req.User)
		} else {
			c.Config.Logger.WarnContext(ctx, "script stopped by user",
				"number", req.Number,
				"reason", outcome.Reason,
			)
		}

	case scripts.Failed:
		payload.Error = logs.WrapSpan(ctx, outcome.Err).Error()
		args := []any{
			"number", req.Number,
			"traceback", sources.Traceback(outcome.Err),
		}
		if suggestion := c.suggest(outcome.Err); suggestion != "" {
			args = append(args, "suggestion", suggestion)
		}
		c.Config.Logger.ErrorContext(ctx, "script failed", args...)
	}
	sources.Remove(req.Source())

	payload.Duration = time.Since(started)
	if c.NotifyAfter > 0 && payload.Duration >= c.NotifyAfter {
		notification := notifies.Notification{
			Info:     req.Info(),
			Started:  started,
			Duration: payload.Duration,
			Outcome:  outcome.Kind.String(),
			Error:    payload.Error,
		}
		if err := c.Notifier.Notify(ctx, notification); err != nil {
			c.Config.Logger.ErrorContext(ctx, "notify", "error", err)
		}
	}

	c.Metrics.Scripts.WithLabelValues(outcome.Kind.String()).Inc()
	c.Emit(events.Done, payload)
}
