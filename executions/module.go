package executions

import (
	"time"

	"github.com/reusee/dscope"
	"github.com/reusee/scriptd/elogs"
	"github.com/reusee/scriptd/events"
	"github.com/reusee/scriptd/logs"
	"github.com/reusee/scriptd/metrics"
	"github.com/reusee/scriptd/notifies"
	"github.com/reusee/scriptd/queues"
	"github.com/reusee/scriptd/scriptdconfigs"
	"github.com/reusee/scriptd/scripts"
)

type Module struct {
	dscope.Module
	Logs     logs.Module
	Events   events.Module
	Queues   queues.Module
	Scripts  scripts.Module
	Elogs    elogs.Module
	Notifies notifies.Module
	Metrics  metrics.Module
	Configs  scriptdconfigs.Module
}

func (Module) Controller(
	logger logs.Logger,
	newSpan logs.NewSpan,
	bus *events.Bus,
	queue *queues.Queue,
	interp *scripts.Interp,
	logbook elogs.Logbook,
	notifier notifies.Notifier,
	m *metrics.Metrics,
	setup scriptdconfigs.SetupCode,
	fallback scriptdconfigs.FallbackSetupCode,
	namespace scriptdconfigs.Namespace,
	notifyAfter scriptdconfigs.NotifyAfter,
	watchInterval scriptdconfigs.WatchInterval,
	recordScripts scriptdconfigs.RecordScripts,
	builtins scripts.Builtins,
) *Controller {
	return New(Config{
		Logger:        logger,
		NewSpan:       newSpan,
		Bus:           bus,
		Queue:         queue,
		Interp:        interp,
		Logbook:       logbook,
		Notifier:      notifier,
		Metrics:       m,
		Setup:         setup,
		FallbackSetup: fallback,
		Namespace:     namespace,
		NotifyAfter:   time.Duration(notifyAfter),
		WatchInterval: time.Duration(watchInterval),
		RecordScripts: bool(recordScripts),
		Builtins:      builtins,
	})
}
