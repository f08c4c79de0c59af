package clients

import (
	"context"

	"github.com/reusee/dscope"
	"github.com/reusee/scriptd/logs"
	"github.com/reusee/scriptd/nets"
	"github.com/reusee/scriptd/scriptdconfigs"
)

type Module struct {
	dscope.Module
	Nets    nets.Module
	Logs    logs.Module
	Configs scriptdconfigs.Module
}

// DialDaemon connects to the configured daemon address.
type DialDaemon func(ctx context.Context) (*Client, error)

func (Module) DialDaemon(
	dialer nets.Dialer,
	addr scriptdconfigs.DaemonAddr,
	logger logs.Logger,
) DialDaemon {
	return func(ctx context.Context) (*Client, error) {
		return Dial(ctx, dialer, string(addr), logger)
	}
}
