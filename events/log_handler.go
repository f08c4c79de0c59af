package events

import (
	"context"
	"log/slog"
)

// LogHandler forwards log records to the bus as Message events.
type LogHandler struct {
	bus    *Bus
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

var _ slog.Handler = new(LogHandler)

func NewLogHandler(bus *Bus, level slog.Leveler) *LogHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &LogHandler{
		bus:   bus,
		level: level,
	}
}

func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LogHandler) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]string)
	for _, attr := range h.attrs {
		addAttr(attrs, "", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		addAttr(attrs, h.prefix, attr)
		return true
	})
	if len(attrs) == 0 {
		attrs = nil
	}
	h.bus.Emit(Message, MessagePayload{
		Level:   record.Level.String(),
		Message: record.Message,
		Attrs:   attrs,
	})
	return nil
}

func addAttr(m map[string]string, prefix string, attr slog.Attr) {
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		for _, a := range value.Group() {
			addAttr(m, prefix+attr.Key+".", a)
		}
		return
	}
	m[prefix+attr.Key] = value.String()
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	ret := *h
	ret.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	ret.attrs = append(ret.attrs, h.attrs...)
	for _, attr := range attrs {
		attr.Key = h.prefix + attr.Key
		ret.attrs = append(ret.attrs, attr)
	}
	return &ret
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	ret := *h
	ret.prefix = h.prefix + name + "."
	return &ret
}
