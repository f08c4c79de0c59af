package daemons

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/reusee/dscope"
	"github.com/reusee/scriptd/configs"
	"github.com/reusee/scriptd/elogs"
	"github.com/reusee/scriptd/events"
	"github.com/reusee/scriptd/executions"
	"github.com/reusee/scriptd/modes"
	"github.com/reusee/scriptd/nets"
	"github.com/reusee/scriptd/requests"
	"github.com/reusee/scriptd/scriptdconfigs"
	"github.com/sourcegraph/jsonrpc2"
)

type notifications struct {
	mu     sync.Mutex
	events []EventMessage
}

func (n *notifications) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Method != MethodEvent || req.Params == nil {
		return
	}
	var ev EventMessage
	if err := json.Unmarshal(*req.Params, &ev); err != nil {
		return
	}
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
}

func (n *notifications) done(number int64) *events.DonePayload {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ev := range n.events {
		if ev.Name != events.Done {
			continue
		}
		var payload events.DonePayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			continue
		}
		if payload.Number == number {
			return &payload
		}
	}
	return nil
}

func startServer(t *testing.T, defs ...any) string {
	var server *Server
	var controller *executions.Controller
	dscope.New(
		modes.ForTest(t),
		new(Module),
	).Fork(
		append([]any{
			dscope.Provide(configs.NewLoader(nil, "")),
		}, defs...)...,
	).Call(func(
		s *Server,
		c *executions.Controller,
	) {
		server = s
		controller = c
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go controller.Run(ctx)
	go server.Serve(ctx, ln)
	return ln.Addr().String()
}

func dial(t *testing.T, addr string) (*jsonrpc2.Conn, *notifications) {
	netConn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	n := new(notifications)
	conn := jsonrpc2.NewConn(
		context.Background(),
		jsonrpc2.NewBufferedStream(netConn, jsonrpc2.VSCodeObjectCodec{}),
		n,
	)
	t.Cleanup(func() {
		conn.Close()
	})
	return conn, n
}

func errCode(err error) int64 {
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Code
	}
	return 0
}

func TestServer(t *testing.T) {
	addr := startServer(t)
	conn, n := dial(t, addr)
	ctx := context.Background()

	var status executions.Status
	if err := conn.Call(ctx, MethodStatus, nil, &status); err != nil {
		t.Fatal(err)
	}

	var queued QueueResult
	err := conn.Call(ctx, MethodQueue, QueueParams{Script: "x = 1"}, &queued)
	if errCode(err) != CodeNotLoggedIn {
		t.Fatalf("got %v", err)
	}

	var login LoginResult
	if err := conn.Call(ctx, MethodLogin, LoginParams{
		Name:  "tester",
		Level: requests.UserLevel,
	}, &login); err != nil {
		t.Fatal(err)
	}
	if login.Session == "" {
		t.Fatal()
	}

	// queue is ready after the controller started
	deadline := time.Now().Add(10 * time.Second)
	for {
		err := conn.Call(ctx, MethodQueue, QueueParams{Script: "x = 40 + 2"}, &queued)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal(err)
		}
		time.Sleep(time.Millisecond * 10)
	}
	for n.done(queued.Number) == nil {
		if time.Now().After(deadline) {
			t.Fatal("timeout")
		}
		time.Sleep(time.Millisecond * 5)
	}
	if payload := n.done(queued.Number); !payload.Success {
		t.Fatalf("got %+v", payload)
	}

	var result EvalResult
	if err := conn.Call(ctx, MethodEval, EvalParams{Code: "x"}, &result); err != nil {
		t.Fatal(err)
	}
	if result.Result != "42" {
		t.Fatalf("got %q", result.Result)
	}

	err = conn.Call(ctx, MethodBreak, BreakParams{Level: "bad"}, nil)
	if errCode(err) != CodeRequestFailed {
		t.Fatalf("got %v", err)
	}
	err = conn.Call(ctx, MethodContinue, nil, nil)
	if errCode(err) != CodeRequestFailed {
		t.Fatalf("got %v", err)
	}
	err = conn.Call(ctx, "foo", nil, nil)
	if errCode(err) != jsonrpc2.CodeMethodNotFound {
		t.Fatalf("got %v", err)
	}

	if err := conn.Call(ctx, MethodWatchAdd, WatchParams{Expr: "x + 1"}, nil); err != nil {
		t.Fatal(err)
	}
	var values map[string]string
	if err := conn.Call(ctx, MethodWatchEval, nil, &values); err != nil {
		t.Fatal(err)
	}
	if values["x + 1"] != "43" {
		t.Fatalf("got %v", values)
	}
	var removed WatchRemoveResult
	if err := conn.Call(ctx, MethodWatchRemove, WatchParams{Expr: "x + 1"}, &removed); err != nil {
		t.Fatal(err)
	}
	if removed.Removed != 1 {
		t.Fatal()
	}
}

func TestGuestDenied(t *testing.T) {
	addr := startServer(t)
	conn, _ := dial(t, addr)
	ctx := context.Background()
	if err := conn.Call(ctx, MethodLogin, LoginParams{
		Name:  "guest",
		Level: requests.Guest,
	}, nil); err != nil {
		t.Fatal(err)
	}
	err := conn.Call(ctx, MethodEval, EvalParams{Code: "1"}, nil)
	if errCode(err) != CodeDenied {
		t.Fatalf("got %v", err)
	}
}

func TestRemoteAdminDenied(t *testing.T) {
	addr := startServer(t, func() nets.IsLocalAddr {
		return func(string) bool {
			return false
		}
	})
	conn, _ := dial(t, addr)
	err := conn.Call(context.Background(), MethodLogin, LoginParams{
		Name:  "root",
		Level: requests.Admin,
	}, nil)
	if errCode(err) != CodeDenied {
		t.Fatalf("got %v", err)
	}
}

func TestLogbook(t *testing.T) {
	addr := startServer(t, func() scriptdconfigs.DBPath {
		return scriptdconfigs.DBPath(filepath.Join(t.TempDir(), "logbook.db"))
	})
	conn, n := dial(t, addr)
	ctx := context.Background()

	var entries []elogs.Entry
	err := conn.Call(ctx, MethodLogbook, LogbookParams{}, &entries)
	if errCode(err) != CodeNotLoggedIn {
		t.Fatalf("got %v", err)
	}
	if err := conn.Call(ctx, MethodLogin, LoginParams{
		Name:  "tester",
		Level: requests.UserLevel,
	}, nil); err != nil {
		t.Fatal(err)
	}

	var queued QueueResult
	deadline := time.Now().Add(10 * time.Second)
	for {
		err := conn.Call(ctx, MethodQueue, QueueParams{Name: "named", Script: "x = 1"}, &queued)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal(err)
		}
		time.Sleep(time.Millisecond * 10)
	}
	for n.done(queued.Number) == nil {
		if time.Now().After(deadline) {
			t.Fatal("timeout")
		}
		time.Sleep(time.Millisecond * 5)
	}

	if err := conn.Call(ctx, MethodLogbook, LogbookParams{}, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %+v", entries)
	}
	if entries[0].Kind != elogs.ScriptBegin || entries[1].Kind != elogs.ScriptEnd {
		t.Fatalf("got %+v", entries)
	}
	if entries[1].Number != queued.Number || entries[1].Name != "named" {
		t.Fatalf("got %+v", entries[1])
	}

	if err := conn.Call(ctx, MethodLogbook, LogbookParams{From: entries[1].Seq, Limit: 1}, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Kind != elogs.ScriptEnd {
		t.Fatalf("got %+v", entries)
	}
}
