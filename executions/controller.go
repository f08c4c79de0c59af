package executions

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reusee/scriptd/breaks"
	"github.com/reusee/scriptd/elogs"
	"github.com/reusee/scriptd/events"
	"github.com/reusee/scriptd/logs"
	"github.com/reusee/scriptd/metrics"
	"github.com/reusee/scriptd/notifies"
	"github.com/reusee/scriptd/queues"
	"github.com/reusee/scriptd/requests"
	"github.com/reusee/scriptd/scripts"
	"go.starlark.net/starlark"
)

type Config struct {
	Logger        logs.Logger
	NewSpan       logs.NewSpan
	Bus           *events.Bus
	Queue         *queues.Queue
	Interp        *scripts.Interp
	Logbook       elogs.Logbook
	Notifier      notifies.Notifier
	Metrics       *metrics.Metrics
	Setup         []string
	FallbackSetup []string
	Namespace     map[string]any
	NotifyAfter   time.Duration
	WatchInterval time.Duration
	RecordScripts bool
	Builtins      scripts.Builtins
}

// Controller runs queued scripts one at a time on the goroutine calling Run.
type Controller struct {
	Config
	breaker *breaks.Breaker

	// guards current, thread, lastStarted and emergencyPending, and orders
	// emergency stops against script start and finish
	mu          sync.Mutex
	current     *requests.ScriptRequest
	thread      *starlark.Thread
	lastStarted int64
	// an emergency stop request is queued and not yet dispatched
	emergencyPending bool

	emergencyMu    sync.Mutex
	emergencyFuncs []EmergencyFunc

	watchMu   sync.Mutex
	watches   []Watch
	lastWatch time.Time

	evalSerial atomic.Int64
}

var _ requests.Runner = new(Controller)

func New(config Config) *Controller {
	c := &Controller{
		Config: config,
	}
	c.breaker = breaks.New(config.Logger, breaks.Hooks{
		Observe:    c.onStatus,
		OnBreak:    c.onBreak,
		OnContinue: nil,
	})
	return c
}

func (c *Controller) onStatus(status breaks.Status) {
	c.Bus.Emit(events.Status, events.StatusPayload{
		State:  status.State.String(),
		Source: status.Source,
		Line:   status.Line,
	})
}

// onBreak runs on the execution goroutine when the script pauses.
func (c *Controller) onBreak(status breaks.Status) error {
	c.mu.Lock()
	thread := c.thread
	c.mu.Unlock()
	if thread == nil {
		return nil
	}
	c.emitWatches(scripts.ThreadContext(thread), c.Interp.LiveGlobals(thread))
	return nil
}

// NewRequest admits r into the queue.
func (c *Controller) NewRequest(r requests.Queued) (int64, error) {
	if !r.Base().User.Valid() {
		return 0, fmt.Errorf("%w: bad user", requests.ErrInvalidRequest)
	}
	n, err := c.Queue.Enqueue(r)
	if err != nil {
		return 0, err
	}
	c.Metrics.Requests.Inc()
	c.Metrics.QueueLength.Set(float64(c.Queue.Len()))
	return n, nil
}

func (c *Controller) QueueScript(user *requests.User, name, text string) (int64, error) {
	req, err := requests.NewScriptRequest(user, name, text)
	if err != nil {
		return 0, err
	}
	return c.NewRequest(req)
}

// ExecuteScript evaluates code at once on the calling goroutine, bypassing
// the queue.
func (c *Controller) ExecuteScript(ctx context.Context, code string, user *requests.User) (_ string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	if !user.Valid() {
		return "", fmt.Errorf("%w: bad user", requests.ErrInvalidRequest)
	}
	logs.Input(ctx, c.Config.Logger, logs.MarkerEval, code)
	source := fmt.Sprintf("<eval %d>", c.evalSerial.Add(1))
	parsed, err := scripts.Parse(source, code, false)
	if err != nil {
		return "", err
	}
	sources := c.Interp.Sources()
	sources.Register(source, code)
	defer sources.Remove(source)
	thread := c.Interp.NewThread(ctx, source, nil)
	var result string
	for _, block := range parsed.Blocks {
		result, err = c.Interp.Exec(thread, block)
		if err != nil {
			return "", fmt.Errorf("%s", sources.Traceback(err))
		}
	}
	return result, nil
}

func (c *Controller) Break(level breaks.Level) error {
	return c.breaker.Break(level)
}

func (c *Controller) Continue() error {
	return c.breaker.Continue()
}

func (c *Controller) Stop(reason string) error {
	if strings.TrimSpace(reason) == "" {
		reason = "user request"
	}
	return c.breaker.Stop(reason)
}

// Block prevents queued requests from running. Running ones are unaffected.
func (c *Controller) Block(numbers ...int64) {
	c.Queue.Block(numbers...)
}

// Update replaces the text of the running or a queued script.
func (c *Controller) Update(ctx context.Context, number int64, text string) error {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()
	if current != nil && current.Number == number {
		return current.Update(ctx, text, c)
	}
	if c.Queue.IsBlocked(number) {
		return fmt.Errorf("%w: script %d is blocked", requests.ErrScript, number)
	}
	found, err := c.Queue.Update(number, func(r requests.Queued) error {
		req, ok := r.(*requests.ScriptRequest)
		if !ok {
			return fmt.Errorf("%w: request %d is not a script", requests.ErrScript, number)
		}
		return req.SetText(text)
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: no script %d", requests.ErrScript, number)
	}
	logs.Input(ctx, c.Config.Logger, logs.MarkerUpdate, text)
	return nil
}

// Runner

func (c *Controller) Emit(name events.Name, payload any) {
	c.Bus.Emit(name, payload)
}

func (c *Controller) Logger() logs.Logger {
	return c.Config.Logger
}

func (c *Controller) Sources() *scripts.Sources {
	return c.Interp.Sources()
}

func (c *Controller) RecordScripts() bool {
	return c.Config.RecordScripts
}

func (c *Controller) ScriptBegin(ctx context.Context, info requests.Info) {
	if err := c.Logbook.ScriptBegin(ctx, info); err != nil {
		c.Config.Logger.ErrorContext(ctx, "logbook", "error", err)
	}
}

func (c *Controller) ScriptEnd(ctx context.Context, info requests.Info, outcome scripts.Outcome) {
	var errText string
	if outcome.Err != nil {
		errText = outcome.Err.Error()
	}
	if err := c.Logbook.ScriptEnd(ctx, info, outcome.Kind.String(), errText); err != nil {
		c.Config.Logger.ErrorContext(ctx, "logbook", "error", err)
	}
}

func (c *Controller) ExecBlock(ctx context.Context, req *requests.ScriptRequest, block *scripts.Block) (outcome scripts.Outcome) {
	c.mu.Lock()
	thread := c.thread
	c.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			outcome = scripts.Fail(fmt.Errorf("%w: %v", ErrPanic, p))
		}
		// cancellation and stops at the end of a block
		if outcome.Kind != scripts.Stopped {
			if status := c.breaker.Status(); status.State == breaks.Stopping {
				outcome = scripts.Stop(status.Reason)
			}
		}
	}()

	outcome = c.Interp.Run(thread, block)
	if outcome.Kind == scripts.Continued && outcome.Result != "" {
		c.Config.Logger.InfoContext(ctx, "result",
			"number", req.Number,
			"value", outcome.Result,
		)
	}
	return outcome
}
