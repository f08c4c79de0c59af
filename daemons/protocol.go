package daemons

import (
	"encoding/json"
	"time"

	"github.com/reusee/scriptd/events"
	"github.com/reusee/scriptd/requests"
)

const (
	MethodLogin            = "login"
	MethodQueue            = "queue"
	MethodUpdate           = "update"
	MethodBlock            = "block"
	MethodBreak            = "break"
	MethodContinue         = "continue"
	MethodStop             = "stop"
	MethodEmergency        = "emergency"
	MethodEval             = "eval"
	MethodWatchAdd         = "watch.add"
	MethodWatchRemove      = "watch.remove"
	MethodWatchRemoveGroup = "watch.remove_group"
	MethodWatchEval        = "watch.eval"
	MethodStatus           = "status"
	MethodLogbook          = "logbook"

	// server to client notification
	MethodEvent = "event"
)

// error codes in the implementation defined range
const (
	CodeRequestFailed int64 = -32000
	CodeNotLoggedIn   int64 = -32001
	CodeDenied        int64 = -32002
)

type LoginParams struct {
	Name  string         `json:"name"`
	Level requests.Level `json:"level"`
}

type LoginResult struct {
	Session string `json:"session"`
}

type QueueParams struct {
	Name   string `json:"name,omitempty"`
	Script string `json:"script"`
}

type QueueResult struct {
	Number int64 `json:"number"`
}

type UpdateParams struct {
	Number int64  `json:"number"`
	Script string `json:"script"`
}

type BlockParams struct {
	Numbers []int64 `json:"numbers"`
}

type BreakParams struct {
	// "now", "step" or "line"
	Level string `json:"level,omitempty"`
}

type StopParams struct {
	Reason string `json:"reason,omitempty"`
}

type EvalParams struct {
	Code string `json:"code"`
}

type EvalResult struct {
	Result string `json:"result"`
}

type WatchParams struct {
	Expr  string `json:"expr,omitempty"`
	Group string `json:"group,omitempty"`
}

type WatchRemoveResult struct {
	Removed int `json:"removed"`
}

type LogbookParams struct {
	// first sequence number, entries are numbered from 1
	From  uint64 `json:"from,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// EventMessage is an events.Event as received by clients.
type EventMessage struct {
	Name    events.Name     `json:"name"`
	Time    time.Time       `json:"time"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
