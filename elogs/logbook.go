package elogs

import (
	"context"
	"time"

	"github.com/reusee/scriptd/requests"
)

type Kind string

const (
	ScriptBegin Kind = "scriptbegin"
	ScriptEnd   Kind = "scriptend"
)

// Entry is one record of the electronic logbook.
type Entry struct {
	Seq     uint64    `json:"seq"`
	Kind    Kind      `json:"kind"`
	Time    time.Time `json:"time"`
	Number  int64     `json:"number"`
	Name    string    `json:"name"`
	User    string    `json:"user"`
	Script  string    `json:"script,omitempty"`
	Outcome string    `json:"outcome,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Logbook records the beginning and end of named scripts.
type Logbook interface {
	ScriptBegin(ctx context.Context, info requests.Info) error
	ScriptEnd(ctx context.Context, info requests.Info, outcome string, errText string) error
	// Entries returns up to n entries with sequence numbers from from.
	Entries(from uint64, n int) ([]Entry, error)
	Close() error
}

type Nop struct{}

var _ Logbook = Nop{}

func (Nop) ScriptBegin(context.Context, requests.Info) error {
	return nil
}

func (Nop) ScriptEnd(context.Context, requests.Info, string, string) error {
	return nil
}

func (Nop) Entries(uint64, int) ([]Entry, error) {
	return nil, nil
}

func (Nop) Close() error {
	return nil
}
