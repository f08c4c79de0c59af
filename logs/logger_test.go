package logs

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/reusee/dscope"
)

func TestHandler(t *testing.T) {
	dscope.New(new(Module)).Call(func(
		logger Logger,
	) {
		logger.Info("test", "hello", "world!")
	})
}

type recordingHandler struct {
	records *[]slog.Record
}

func (r recordingHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (r recordingHandler) Handle(_ context.Context, record slog.Record) error {
	*r.records = append(*r.records, record)
	return nil
}

func (r recordingHandler) WithAttrs([]slog.Attr) slog.Handler {
	return r
}

func (r recordingHandler) WithGroup(string) slog.Handler {
	return r
}

func TestExtraHandlers(t *testing.T) {
	var records []slog.Record
	buf := new(bytes.Buffer)
	dscope.New(new(Module)).Fork(
		func() Writer {
			return buf
		},
		func() Handlers {
			return Handlers{
				recordingHandler{records: &records},
			}
		},
	).Call(func(
		logger Logger,
	) {
		Input(context.Background(), logger, MarkerScript, "a = 1\n")
	})
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].Message != "input" {
		t.Fatalf("got %q", records[0].Message)
	}
	if !strings.Contains(buf.String(), `text="a = 1"`) {
		t.Fatalf("got %q", buf.String())
	}
}

func TestWrapSpan(t *testing.T) {
	err := WrapSpan(context.Background(), nil)
	if err != nil {
		t.Fatal()
	}
	ctx := context.WithValue(context.Background(), SpanKey, Span("foo"))
	err = WrapSpan(ctx, context.Canceled)
	if !strings.Contains(err.Error(), "span: foo") {
		t.Fatalf("got %v", err)
	}
}
