package queues

import (
	"github.com/reusee/dscope"
	"github.com/reusee/scriptd/events"
	"github.com/reusee/scriptd/logs"
)

type Module struct {
	dscope.Module
	Events events.Module
	Logs   logs.Module
}

func (Module) Queue(
	bus *events.Bus,
	logger logs.Logger,
) *Queue {
	return New(bus, logger)
}
