package log

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// levelFatal sits above slog.LevelError so Fatal entries keep their own label.
const levelFatal = slog.LevelError + 4

var slogLevels = [...]slog.Level{
	DebugLevel: slog.LevelDebug,
	InfoLevel:  slog.LevelInfo,
	WarnLevel:  slog.LevelWarn,
	ErrorLevel: slog.LevelError,
	FatalLevel: levelFatal,
}

// bridgeHandler is a slog.Handler that routes records through the shared
// formatter/outputs pipeline.
type bridgeHandler struct {
	sink  *sink
	attrs []slog.Attr
	group string
}

func newBridgeHandler(s *sink) *bridgeHandler {
	return &bridgeHandler{sink: s}
}

func (h *bridgeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return Level(h.sink.level.Load()) <= fromSlogLevel(level)
}

// Handle converts the record to an Entry. A valid span in ctx contributes
// trace_id and span_id, which never take a group prefix.
func (h *bridgeHandler) Handle(ctx context.Context, r slog.Record) error {
	fields := make(Fields, len(h.attrs)+r.NumAttrs()+2)
	for _, a := range h.attrs {
		fields[h.key(a.Key)] = attrValue(a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[h.key(a.Key)] = attrValue(a.Value)
		return true
	})
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields[TraceIDKey] = sc.TraceID().String()
		fields[SpanIDKey] = sc.SpanID().String()
	}

	return h.sink.write(&Entry{
		Level:     fromSlogLevel(r.Level),
		Message:   r.Message,
		Fields:    fields,
		Timestamp: r.Time,
	})
}

func (h *bridgeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

func (h *bridgeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.group = h.key(name)
	return &nh
}

func (h *bridgeHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	if err, ok := v.Any().(error); ok && v.Kind() == slog.KindAny {
		return err.Error()
	}
	return v.Any()
}

func toSlogLevel(level Level) slog.Level {
	if level < 0 || int(level) >= len(slogLevels) {
		return slog.LevelInfo
	}
	return slogLevels[level]
}

func fromSlogLevel(level slog.Level) Level {
	for l := FatalLevel; l > DebugLevel; l-- {
		if level >= slogLevels[l] {
			return l
		}
	}
	return DebugLevel
}

// attrsFromFieldSlice converts fields into slog.Any attributes, ready for
// slog.Logger.With or LogAttrs.
func attrsFromFieldSlice(fields []Field) []slog.Attr {
	if len(fields) == 0 {
		return nil
	}
	attrs := make([]slog.Attr, len(fields))
	for i, f := range fields {
		attrs[i] = slog.Any(f.Key, f.Value)
	}
	return attrs
}

func attrsToAny(attrs []slog.Attr) []any {
	out := make([]any, len(attrs))
	for i := range attrs {
		out[i] = attrs[i]
	}
	return out
}
