package executions

import (
	"github.com/reusee/scriptd/requests"
)

type Status struct {
	Ready   bool            `json:"ready" yaml:"ready"`
	State   string          `json:"state" yaml:"state"`
	Current *CurrentScript  `json:"current,omitempty" yaml:"current,omitempty"`
	Pending []requests.Info `json:"pending,omitempty" yaml:"pending,omitempty"`
	Watches []Watch         `json:"watches,omitempty" yaml:"watches,omitempty"`
}

type CurrentScript struct {
	requests.Info `yaml:",inline"`
	Source        string `json:"source" yaml:"source"`
	Line          int    `json:"line,omitempty" yaml:"line,omitempty"`
	Block         int    `json:"block" yaml:"block"`
	Blocks        int    `json:"blocks" yaml:"blocks"`
	Reason        string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()
	breakStatus := c.breaker.Status()
	status := Status{
		Ready:   c.Queue.Ready(),
		State:   breakStatus.State.String(),
		Pending: c.Queue.Pending(),
		Watches: c.Watches(),
	}
	if current != nil {
		status.Current = &CurrentScript{
			Info:   current.Info(),
			Source: current.Source(),
			Line:   breakStatus.Line,
			Block:  current.CurBlock(),
			Blocks: len(current.Blocks()),
			Reason: breakStatus.Reason,
		}
	}
	return status
}
