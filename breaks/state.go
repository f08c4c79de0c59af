package breaks

import (
	"errors"
	"fmt"
)

type State int

const (
	Idle State = iota
	Running
	BreakRequested
	Paused
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case BreakRequested:
		return "break requested"
	case Paused:
		return "paused"
	case Stopping:
		return "stopping"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Level is how eager a break request is. A request pauses at the first
// checkpoint whose level it reaches.
type Level int

const (
	AfterLine Level = 2
	AfterStep Level = 3
	Now       Level = 5
)

func (l Level) String() string {
	switch l {
	case AfterLine:
		return "after line"
	case AfterStep:
		return "after step"
	case Now:
		return "now"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

func ParseLevel(s string) (Level, error) {
	switch s {
	case "", "now":
		return Now, nil
	case "step", "after step":
		return AfterStep, nil
	case "line", "after line":
		return AfterLine, nil
	}
	return 0, fmt.Errorf("%w: unknown break level %q", ErrBadLevel, s)
}

const ReasonEmergency = "emergency stop"

// StopSignal terminates the running script. It is returned from hooks
// instead of an ordinary error so that the dispatcher can tell it apart.
type StopSignal struct {
	Reason string
}

func (s *StopSignal) Error() string {
	if s.Reason == "" {
		return "stopped"
	}
	return "stopped: " + s.Reason
}

func (s *StopSignal) StopReason() string {
	return s.Reason
}

func (s *StopSignal) Emergency() bool {
	return s.Reason == ReasonEmergency
}

var (
	ErrNotRunning = errors.New("no script running")
	ErrNotPaused  = errors.New("script not paused")
	ErrBusy       = errors.New("script already running")
	ErrBadLevel   = errors.New("bad break level")
)

// Frame is a position in the running script.
type Frame struct {
	Source   string
	Line     int
	Function string
}

type Status struct {
	State  State
	Source string
	Line   int
	Level  Level
	Reason string
}
