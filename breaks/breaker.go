package breaks

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Breaker suspends the script running on the execution goroutine at line
// boundaries and step checkpoints.
type Breaker struct {
	logger *slog.Logger
	hooks  Hooks

	// serializes observer calls, always taken before mu
	notifyMu sync.Mutex

	mu      sync.Mutex
	state   State
	source  string
	level   Level
	reason  string
	frame   Frame
	resume  chan struct{}
	changed chan struct{}
}

type Hooks struct {
	// Observe is called on every transition and every line change
	Observe func(Status)
	// OnBreak and OnContinue run on the execution goroutine around a pause
	OnBreak    func(Status) error
	OnContinue func(Status) error
}

func New(logger *slog.Logger, hooks Hooks) *Breaker {
	return &Breaker{
		logger:  logger,
		hooks:   hooks,
		changed: make(chan struct{}),
	}
}

func (b *Breaker) statusLocked() Status {
	return Status{
		State:  b.state,
		Source: b.source,
		Line:   b.frame.Line,
		Level:  b.level,
		Reason: b.reason,
	}
}

// broadcastLocked wakes sleepers.
func (b *Breaker) broadcastLocked() {
	close(b.changed)
	b.changed = make(chan struct{})
}

// transition runs fn under the state lock and notifies the observer when fn
// reports a change.
func (b *Breaker) transition(fn func() bool) Status {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()
	b.mu.Lock()
	changed := fn()
	status := b.statusLocked()
	b.mu.Unlock()
	if changed && b.hooks.Observe != nil {
		b.hooks.Observe(status)
	}
	return status
}

func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusLocked()
}

// Begin starts tracking a script whose frames carry source.
func (b *Breaker) Begin(source string) (err error) {
	b.transition(func() bool {
		if b.state != Idle {
			err = ErrBusy
			return false
		}
		b.state = Running
		b.source = source
		b.level = 0
		b.reason = ""
		b.frame = Frame{}
		b.resume = nil
		return true
	})
	return
}

// Finish returns to Idle, reporting the stop reason if a stop was requested.
func (b *Breaker) Finish() (reason string, stopped bool) {
	b.transition(func() bool {
		if b.state == Idle {
			return false
		}
		if b.state == Stopping {
			reason = b.reason
			stopped = true
		}
		if b.resume != nil {
			close(b.resume)
			b.resume = nil
		}
		b.state = Idle
		b.source = ""
		b.level = 0
		b.reason = ""
		b.frame = Frame{}
		b.broadcastLocked()
		return true
	})
	return
}

// Break requests a pause at the next checkpoint reaching level.
func (b *Breaker) Break(level Level) (err error) {
	b.transition(func() bool {
		switch b.state {
		case Idle:
			err = ErrNotRunning
			return false
		case Running:
			b.state = BreakRequested
			b.level = level
			b.broadcastLocked()
			return true
		case BreakRequested:
			if level > b.level {
				b.level = level
				b.broadcastLocked()
				return true
			}
		}
		return false
	})
	return
}

// Continue resumes a paused script, or cancels a pending break request.
func (b *Breaker) Continue() (err error) {
	b.transition(func() bool {
		switch b.state {
		case Paused:
			// the woken goroutine reports Running
			b.state = Running
			close(b.resume)
			b.resume = nil
			return false
		case BreakRequested:
			b.state = Running
			b.level = 0
			return true
		}
		err = ErrNotPaused
		return false
	})
	return
}

// Stop makes the next checkpoint return a *StopSignal with reason. Stopping
// twice keeps the first reason unless the second one is an emergency.
func (b *Breaker) Stop(reason string) (err error) {
	b.transition(func() bool {
		switch b.state {
		case Idle:
			err = ErrNotRunning
			return false
		case Stopping:
			if reason == ReasonEmergency && b.reason != ReasonEmergency {
				b.reason = reason
				return true
			}
			return false
		}
		b.state = Stopping
		b.reason = reason
		b.level = 0
		if b.resume != nil {
			close(b.resume)
			b.resume = nil
		}
		b.broadcastLocked()
		return true
	})
	return
}

// Trace is the line hook. Frames of other sources are ignored.
func (b *Breaker) Trace(frame Frame) error {
	var stop *StopSignal
	var pause bool
	b.transition(func() bool {
		if b.state == Idle || frame.Source != b.source {
			return false
		}
		lineChanged := frame.Line != b.frame.Line
		b.frame = frame
		switch b.state {
		case Stopping:
			stop = &StopSignal{Reason: b.reason}
			return false
		case BreakRequested:
			pause = true
			b.enterPauseLocked()
			return true
		}
		return lineChanged
	})
	if stop != nil {
		return stop
	}
	if pause {
		return b.wait()
	}
	return nil
}

// Breakpoint is a step checkpoint. It pauses when the pending request is at
// least level.
func (b *Breaker) Breakpoint(frame Frame, level Level) error {
	var stop *StopSignal
	var pause bool
	b.transition(func() bool {
		switch b.state {
		case Stopping:
			stop = &StopSignal{Reason: b.reason}
		case BreakRequested:
			if b.level >= level {
				pause = true
				b.frame = frame
				b.enterPauseLocked()
				return true
			}
		}
		return false
	})
	if stop != nil {
		return stop
	}
	if pause {
		return b.wait()
	}
	return nil
}

// Sleep waits for d while honouring break-now and stop requests.
func (b *Breaker) Sleep(frame Frame, d time.Duration) error {
	deadline := time.Now().Add(d)
	for {
		b.mu.Lock()
		changed := b.changed
		b.mu.Unlock()
		if err := b.Breakpoint(frame, Now); err != nil {
			return err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		timer := time.NewTimer(remaining)
		select {
		case <-timer.C:
			return nil
		case <-changed:
			timer.Stop()
		}
	}
}

func (b *Breaker) enterPauseLocked() {
	b.state = Paused
	b.level = 0
	b.resume = make(chan struct{})
	b.broadcastLocked()
}

// wait blocks the execution goroutine until Continue or Stop.
func (b *Breaker) wait() error {
	b.mu.Lock()
	resume := b.resume
	status := b.statusLocked()
	b.mu.Unlock()

	b.callHook("break", b.hooks.OnBreak, status)

	if resume != nil {
		<-resume
	}

	var stop *StopSignal
	status = b.transition(func() bool {
		if b.state == Stopping {
			stop = &StopSignal{Reason: b.reason}
			return false
		}
		return b.state == Running
	})
	if stop != nil {
		return stop
	}

	b.callHook("continue", b.hooks.OnContinue, status)
	return nil
}

func (b *Breaker) callHook(what string, fn func(Status) error, status Status) {
	if fn == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("break hook panic",
				"hook", what,
				"panic", fmt.Sprint(p),
			)
		}
	}()
	if err := fn(status); err != nil {
		b.logger.Error("break hook error",
			"hook", what,
			"error", err,
		)
	}
}
