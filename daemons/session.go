package daemons

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/reusee/scriptd/breaks"
	"github.com/reusee/scriptd/elogs"
	"github.com/reusee/scriptd/events"
	"github.com/reusee/scriptd/requests"
	"github.com/sourcegraph/jsonrpc2"
)

var (
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errNotLoggedIn = &jsonrpc2.Error{
		Code: CodeNotLoggedIn, Message: "not logged in"}
	errDenied = &jsonrpc2.Error{
		Code: CodeDenied, Message: "permission denied"}
)

type session struct {
	server *Server
	id     string
	remote string

	mu   sync.Mutex
	user *requests.User
}

type method func(ctx context.Context, params *json.RawMessage) (any, error)

func (s *Server) serveConn(ctx context.Context, netConn net.Conn) {
	sess := &session{
		server: s,
		id:     uuid.NewString(),
		remote: netConn.RemoteAddr().String(),
	}
	ctx, _ = s.newSpan(ctx, "", "session "+sess.id)
	s.logger.InfoContext(ctx, "client connected",
		"session", sess.id,
		"remote", sess.remote,
	)
	s.metrics.Clients.Inc()
	defer s.metrics.Clients.Dec()

	conn := jsonrpc2.NewConn(
		ctx,
		jsonrpc2.NewBufferedStream(netConn, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.AsyncHandler(sess.handler()),
	)
	closeConn := sync.OnceFunc(func() {
		conn.Close()
	})

	eventsCh := make(chan events.Event, s.eventBuffer)
	var dropped atomic.Bool
	unsubscribe := s.bus.Subscribe(func(ev events.Event) {
		if dropped.Load() {
			return
		}
		select {
		case eventsCh <- ev:
		default:
			// the warning below is itself delivered here
			if dropped.CompareAndSwap(false, true) {
				s.logger.WarnContext(ctx, "event buffer overflow, dropping client",
					"session", sess.id,
				)
				closeConn()
			}
		}
	})
	defer unsubscribe()

	done := ctx.Done()
	for {
		select {
		case ev := <-eventsCh:
			if err := conn.Notify(ctx, MethodEvent, ev); err != nil {
				closeConn()
			}
		case <-conn.DisconnectNotify():
			s.logger.InfoContext(ctx, "client disconnected",
				"session", sess.id,
			)
			return
		case <-done:
			done = nil
			closeConn()
		}
	}
}

func (sess *session) handler() jsonrpc2.Handler {
	methods := map[string]method{
		MethodLogin:            sess.login,
		MethodQueue:            sess.queue,
		MethodUpdate:           sess.update,
		MethodBlock:            sess.block,
		MethodBreak:            sess.breakScript,
		MethodContinue:         sess.continueScript,
		MethodStop:             sess.stop,
		MethodEmergency:        sess.emergency,
		MethodEval:             sess.eval,
		MethodWatchAdd:         sess.watchAdd,
		MethodWatchRemove:      sess.watchRemove,
		MethodWatchRemoveGroup: sess.watchRemoveGroup,
		MethodWatchEval:        sess.watchEval,
		MethodStatus:           sess.status,
		MethodLogbook:          sess.logbook,
	}
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			return nil, errMethodNotFound
		}
		ret, err := fn(ctx, req.Params)
		if err != nil {
			if rpcErr, ok := err.(*jsonrpc2.Error); ok {
				return nil, rpcErr
			}
			sess.server.logger.InfoContext(ctx, "request failed",
				"session", sess.id,
				"method", req.Method,
				"error", err,
			)
			return nil, &jsonrpc2.Error{
				Code:    CodeRequestFailed,
				Message: err.Error(),
			}
		}
		return ret, nil
	})
}

func decode[T any](params *json.RawMessage) (ret T, err error) {
	if params == nil {
		return
	}
	if json.Unmarshal(*params, &ret) != nil {
		err = errInvalidParams
	}
	return
}

// require returns the logged in user if it has at least level.
func (sess *session) require(level requests.Level) (*requests.User, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.user == nil {
		return nil, errNotLoggedIn
	}
	if sess.user.Level < level {
		return nil, errDenied
	}
	user := *sess.user
	return &user, nil
}

func (sess *session) login(ctx context.Context, params *json.RawMessage) (any, error) {
	p, err := decode[LoginParams](params)
	if err != nil {
		return nil, err
	}
	user := &requests.User{
		Name:  p.Name,
		Level: p.Level,
	}
	if !user.Valid() {
		return nil, fmt.Errorf("%w: bad user", requests.ErrInvalidRequest)
	}
	if user.Level >= requests.Admin && !sess.server.isLocalAddr(sess.remote) {
		return nil, errDenied
	}
	sess.mu.Lock()
	sess.user = user
	sess.mu.Unlock()
	sess.server.logger.InfoContext(ctx, "login",
		"session", sess.id,
		"user", user.Name,
		"level", user.Level.String(),
	)
	return LoginResult{
		Session: sess.id,
	}, nil
}

func (sess *session) queue(ctx context.Context, params *json.RawMessage) (any, error) {
	user, err := sess.require(requests.UserLevel)
	if err != nil {
		return nil, err
	}
	p, err := decode[QueueParams](params)
	if err != nil {
		return nil, err
	}
	n, err := sess.server.controller.QueueScript(user, p.Name, p.Script)
	if err != nil {
		return nil, err
	}
	return QueueResult{
		Number: n,
	}, nil
}

func (sess *session) update(ctx context.Context, params *json.RawMessage) (any, error) {
	if _, err := sess.require(requests.UserLevel); err != nil {
		return nil, err
	}
	p, err := decode[UpdateParams](params)
	if err != nil {
		return nil, err
	}
	return nil, sess.server.controller.Update(ctx, p.Number, p.Script)
}

func (sess *session) block(ctx context.Context, params *json.RawMessage) (any, error) {
	if _, err := sess.require(requests.UserLevel); err != nil {
		return nil, err
	}
	p, err := decode[BlockParams](params)
	if err != nil {
		return nil, err
	}
	sess.server.controller.Block(p.Numbers...)
	return nil, nil
}

func (sess *session) breakScript(ctx context.Context, params *json.RawMessage) (any, error) {
	if _, err := sess.require(requests.UserLevel); err != nil {
		return nil, err
	}
	p, err := decode[BreakParams](params)
	if err != nil {
		return nil, err
	}
	level, err := breaks.ParseLevel(p.Level)
	if err != nil {
		return nil, err
	}
	return nil, sess.server.controller.Break(level)
}

func (sess *session) continueScript(ctx context.Context, params *json.RawMessage) (any, error) {
	if _, err := sess.require(requests.UserLevel); err != nil {
		return nil, err
	}
	return nil, sess.server.controller.Continue()
}

func (sess *session) stop(ctx context.Context, params *json.RawMessage) (any, error) {
	if _, err := sess.require(requests.UserLevel); err != nil {
		return nil, err
	}
	p, err := decode[StopParams](params)
	if err != nil {
		return nil, err
	}
	return nil, sess.server.controller.Stop(p.Reason)
}

// emergency is open to every logged in user, guests included.
func (sess *session) emergency(ctx context.Context, params *json.RawMessage) (any, error) {
	user, err := sess.require(requests.Guest)
	if err != nil {
		return nil, err
	}
	return nil, sess.server.controller.EmergencyStop(user)
}

func (sess *session) eval(ctx context.Context, params *json.RawMessage) (any, error) {
	user, err := sess.require(requests.UserLevel)
	if err != nil {
		return nil, err
	}
	p, err := decode[EvalParams](params)
	if err != nil {
		return nil, err
	}
	result, err := sess.server.controller.ExecuteScript(ctx, p.Code, user)
	if err != nil {
		return nil, err
	}
	return EvalResult{
		Result: result,
	}, nil
}

func (sess *session) watchAdd(ctx context.Context, params *json.RawMessage) (any, error) {
	if _, err := sess.require(requests.UserLevel); err != nil {
		return nil, err
	}
	p, err := decode[WatchParams](params)
	if err != nil {
		return nil, err
	}
	return nil, sess.server.controller.AddWatch(p.Expr, p.Group)
}

func (sess *session) watchRemove(ctx context.Context, params *json.RawMessage) (any, error) {
	if _, err := sess.require(requests.UserLevel); err != nil {
		return nil, err
	}
	p, err := decode[WatchParams](params)
	if err != nil {
		return nil, err
	}
	var removed int
	if sess.server.controller.RemoveWatch(p.Expr) {
		removed = 1
	}
	return WatchRemoveResult{
		Removed: removed,
	}, nil
}

func (sess *session) watchRemoveGroup(ctx context.Context, params *json.RawMessage) (any, error) {
	if _, err := sess.require(requests.UserLevel); err != nil {
		return nil, err
	}
	p, err := decode[WatchParams](params)
	if err != nil {
		return nil, err
	}
	return WatchRemoveResult{
		Removed: sess.server.controller.RemoveWatchGroup(p.Group),
	}, nil
}

func (sess *session) watchEval(ctx context.Context, params *json.RawMessage) (any, error) {
	if _, err := sess.require(requests.Guest); err != nil {
		return nil, err
	}
	return sess.server.controller.EvalWatches(ctx), nil
}

func (sess *session) status(ctx context.Context, params *json.RawMessage) (any, error) {
	return sess.server.controller.Status(), nil
}

const defaultLogbookLimit = 100

func (sess *session) logbook(ctx context.Context, params *json.RawMessage) (any, error) {
	if _, err := sess.require(requests.Guest); err != nil {
		return nil, err
	}
	p, err := decode[LogbookParams](params)
	if err != nil {
		return nil, err
	}
	if p.Limit <= 0 {
		p.Limit = defaultLogbookLimit
	}
	entries, err := sess.server.controller.Logbook.Entries(p.From, p.Limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []elogs.Entry{}
	}
	return entries, nil
}
