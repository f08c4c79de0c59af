package clients

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reusee/scriptd/daemons"
	"github.com/reusee/scriptd/elogs"
	"github.com/reusee/scriptd/executions"
	"github.com/reusee/scriptd/logs"
	"github.com/reusee/scriptd/nets"
	"github.com/reusee/scriptd/requests"
	"github.com/sourcegraph/jsonrpc2"
)

// EventBuffer is the capacity of the events channel. Events arriving when it
// is full are dropped.
const EventBuffer = 1024

type Client struct {
	conn   *jsonrpc2.Conn
	logger logs.Logger
	events chan daemons.EventMessage
}

func Dial(ctx context.Context, dialer nets.Dialer, addr string, logger logs.Logger) (*Client, error) {
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c := &Client{
		logger: logger,
		events: make(chan daemons.EventMessage, EventBuffer),
	}
	c.conn = jsonrpc2.NewConn(
		context.Background(),
		jsonrpc2.NewBufferedStream(netConn, jsonrpc2.VSCodeObjectCodec{}),
		c,
	)
	return c, nil
}

// Handle receives notifications from the daemon.
func (c *Client) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Method != daemons.MethodEvent || req.Params == nil {
		return
	}
	var ev daemons.EventMessage
	if err := json.Unmarshal(*req.Params, &ev); err != nil {
		c.logger.WarnContext(ctx, "bad event", "error", err)
		return
	}
	select {
	case c.events <- ev:
	default:
		c.logger.WarnContext(ctx, "event dropped", "name", ev.Name)
	}
}

// Events returns the events pushed by the daemon.
func (c *Client) Events() <-chan daemons.EventMessage {
	return c.events
}

// Done is closed when the connection is lost.
func (c *Client) Done() <-chan struct{} {
	return c.conn.DisconnectNotify()
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Login(ctx context.Context, name string, level requests.Level) (string, error) {
	var ret daemons.LoginResult
	if err := c.conn.Call(ctx, daemons.MethodLogin, daemons.LoginParams{
		Name:  name,
		Level: level,
	}, &ret); err != nil {
		return "", err
	}
	return ret.Session, nil
}

func (c *Client) Queue(ctx context.Context, name string, script string) (int64, error) {
	var ret daemons.QueueResult
	if err := c.conn.Call(ctx, daemons.MethodQueue, daemons.QueueParams{
		Name:   name,
		Script: script,
	}, &ret); err != nil {
		return 0, err
	}
	return ret.Number, nil
}

func (c *Client) Update(ctx context.Context, number int64, script string) error {
	return c.conn.Call(ctx, daemons.MethodUpdate, daemons.UpdateParams{
		Number: number,
		Script: script,
	}, nil)
}

func (c *Client) Block(ctx context.Context, numbers ...int64) error {
	return c.conn.Call(ctx, daemons.MethodBlock, daemons.BlockParams{
		Numbers: numbers,
	}, nil)
}

func (c *Client) Break(ctx context.Context, level string) error {
	return c.conn.Call(ctx, daemons.MethodBreak, daemons.BreakParams{
		Level: level,
	}, nil)
}

func (c *Client) Continue(ctx context.Context) error {
	return c.conn.Call(ctx, daemons.MethodContinue, nil, nil)
}

func (c *Client) Stop(ctx context.Context, reason string) error {
	return c.conn.Call(ctx, daemons.MethodStop, daemons.StopParams{
		Reason: reason,
	}, nil)
}

func (c *Client) Emergency(ctx context.Context) error {
	return c.conn.Call(ctx, daemons.MethodEmergency, nil, nil)
}

func (c *Client) Eval(ctx context.Context, code string) (string, error) {
	var ret daemons.EvalResult
	if err := c.conn.Call(ctx, daemons.MethodEval, daemons.EvalParams{
		Code: code,
	}, &ret); err != nil {
		return "", err
	}
	return ret.Result, nil
}

func (c *Client) AddWatch(ctx context.Context, expr string, group string) error {
	return c.conn.Call(ctx, daemons.MethodWatchAdd, daemons.WatchParams{
		Expr:  expr,
		Group: group,
	}, nil)
}

func (c *Client) RemoveWatch(ctx context.Context, expr string) (bool, error) {
	var ret daemons.WatchRemoveResult
	if err := c.conn.Call(ctx, daemons.MethodWatchRemove, daemons.WatchParams{
		Expr: expr,
	}, &ret); err != nil {
		return false, err
	}
	return ret.Removed > 0, nil
}

func (c *Client) RemoveWatchGroup(ctx context.Context, group string) (int, error) {
	var ret daemons.WatchRemoveResult
	if err := c.conn.Call(ctx, daemons.MethodWatchRemoveGroup, daemons.WatchParams{
		Group: group,
	}, &ret); err != nil {
		return 0, err
	}
	return ret.Removed, nil
}

func (c *Client) EvalWatches(ctx context.Context) (map[string]string, error) {
	var ret map[string]string
	if err := c.conn.Call(ctx, daemons.MethodWatchEval, nil, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *Client) Status(ctx context.Context) (ret executions.Status, err error) {
	err = c.conn.Call(ctx, daemons.MethodStatus, nil, &ret)
	return
}

// Logbook returns up to limit logbook entries starting at sequence from.
func (c *Client) Logbook(ctx context.Context, from uint64, limit int) (ret []elogs.Entry, err error) {
	err = c.conn.Call(ctx, daemons.MethodLogbook, daemons.LogbookParams{
		From:  from,
		Limit: limit,
	}, &ret)
	return
}
