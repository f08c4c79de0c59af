package daemons

import (
	"github.com/reusee/dscope"
	"github.com/reusee/scriptd/events"
	"github.com/reusee/scriptd/executions"
	"github.com/reusee/scriptd/logs"
	"github.com/reusee/scriptd/metrics"
	"github.com/reusee/scriptd/nets"
	"github.com/reusee/scriptd/scriptdconfigs"
)

type Module struct {
	dscope.Module
	Executions executions.Module
	Nets       nets.Module
}

func (Module) Server(
	logger logs.Logger,
	newSpan logs.NewSpan,
	controller *executions.Controller,
	bus *events.Bus,
	m *metrics.Metrics,
	isLocalAddr nets.IsLocalAddr,
	listenAddr scriptdconfigs.ListenAddr,
	maxClients scriptdconfigs.MaxClients,
) *Server {
	return &Server{
		logger:      logger,
		newSpan:     newSpan,
		controller:  controller,
		bus:         bus,
		metrics:     m,
		isLocalAddr: isLocalAddr,
		addr:        string(listenAddr),
		maxClients:  int(maxClients),
		eventBuffer: DefaultEventBuffer,
	}
}
