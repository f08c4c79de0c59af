package daemons

import (
	"context"
	"errors"
	"net"

	"github.com/reusee/scriptd/events"
	"github.com/reusee/scriptd/executions"
	"github.com/reusee/scriptd/logs"
	"github.com/reusee/scriptd/metrics"
	"github.com/reusee/scriptd/nets"
	"golang.org/x/net/netutil"
)

// DefaultEventBuffer is how many events a connection may lag behind before
// it is dropped.
const DefaultEventBuffer = 1024

type Server struct {
	logger      logs.Logger
	newSpan     logs.NewSpan
	controller  *executions.Controller
	bus         *events.Bus
	metrics     *metrics.Metrics
	isLocalAddr nets.IsLocalAddr
	addr        string
	maxClients  int
	eventBuffer int
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "listening", "addr", ln.Addr().String())
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.maxClients > 0 {
		ln = netutil.LimitListener(ln, s.maxClients)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.serveConn(ctx, conn)
	}
}
