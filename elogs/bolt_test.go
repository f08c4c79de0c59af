package elogs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/scriptd/configs"
	"github.com/reusee/scriptd/modes"
	"github.com/reusee/scriptd/requests"
	"github.com/reusee/scriptd/scriptdconfigs"
)

func TestBoltLogbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elog.db")
	dscope.New(
		modes.ForTest(t),
		new(Module),
	).Fork(
		dscope.Provide(configs.NewLoader(nil, "")),
		func() scriptdconfigs.DBPath {
			return scriptdconfigs.DBPath(path)
		},
	).Call(func(
		logbook Logbook,
	) {
		defer logbook.Close()
		if _, ok := logbook.(*BoltLogbook); !ok {
			t.Fatalf("got %T", logbook)
		}
		ctx := context.Background()
		info := requests.Info{
			Number: 3,
			Name:   "scan",
			Script: "x = 1",
			User:   "tester",
		}
		if err := logbook.ScriptBegin(ctx, info); err != nil {
			t.Fatal(err)
		}
		if err := logbook.ScriptEnd(ctx, info, "failed", "boom"); err != nil {
			t.Fatal(err)
		}
		entries, err := logbook.Entries(0, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 2 {
			t.Fatalf("got %v", entries)
		}
		if entries[0].Kind != ScriptBegin || entries[0].Script != "x = 1" || entries[0].Seq != 1 {
			t.Fatalf("got %+v", entries[0])
		}
		if entries[1].Kind != ScriptEnd || entries[1].Error != "boom" || entries[1].Name != "scan" {
			t.Fatalf("got %+v", entries[1])
		}
		entries, err = logbook.Entries(2, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Fatalf("got %v", entries)
		}
	})
}

func TestNopInTestMode(t *testing.T) {
	dscope.New(
		modes.ForTest(t),
		new(Module),
	).Fork(
		dscope.Provide(configs.NewLoader(nil, "")),
	).Call(func(
		logbook Logbook,
	) {
		if _, ok := logbook.(Nop); !ok {
			t.Fatalf("got %T", logbook)
		}
	})
}
