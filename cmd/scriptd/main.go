package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/reusee/dscope"
	"github.com/reusee/scriptd/cmds"
	"github.com/reusee/scriptd/daemons"
	"github.com/reusee/scriptd/elogs"
	"github.com/reusee/scriptd/events"
	"github.com/reusee/scriptd/executions"
	"github.com/reusee/scriptd/logs"
	"github.com/reusee/scriptd/metrics"
	"github.com/reusee/scriptd/modes"
	"github.com/reusee/scriptd/scriptdconfigs"
)

func main() {
	cmds.Execute(os.Args[1:])

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	scope := dscope.New(
		new(daemons.Module),
		modes.ForProduction(),
	).Fork(
		// log records are also pushed to clients
		func(bus *events.Bus) logs.Handlers {
			return logs.Handlers{
				events.NewLogHandler(bus, slog.LevelInfo),
			}
		},
	)

	scope.Call(func(
		server *daemons.Server,
		controller *executions.Controller,
		logbook elogs.Logbook,
		m *metrics.Metrics,
		metricsAddr scriptdconfigs.MetricsAddr,
		logger logs.Logger,
	) {
		defer logbook.Close()

		if metricsAddr != "" {
			metricsServer := &http.Server{
				Addr:    string(metricsAddr),
				Handler: m.Handler(),
			}
			go func() {
				<-ctx.Done()
				metricsServer.Close()
			}()
			go func() {
				if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server", "error", err)
				}
			}()
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- controller.Run(ctx)
		}()

		go func() {
			if err := server.ListenAndServe(ctx); err != nil {
				logger.Error("server", "error", err)
				cancel()
			}
		}()

		if err := <-errCh; err != nil {
			logger.Error("controller", "error", err)
			os.Exit(1)
		}
	})
}
