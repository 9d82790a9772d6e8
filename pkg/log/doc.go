// Package log is the structured logging facade every toyo component logs
// through.
//
// A Logger has leveled methods taking Field values (Str, Int, Dur, Err, Any)
// and is backed by a log/slog bridge handler that feeds a Formatter (text or
// JSON) and one or more Outputs (console, writer, null). Children made with
// With share the parent's level and outputs, so SetLevel on the root applies
// everywhere.
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	)
//	l = l.With(log.Component("broker"))
//	l.Info("broker listening", log.Str("addr", "tcp://127.0.0.1:5151"))
//
// WithContext binds a context; when it holds an OpenTelemetry span the entry
// gets trace_id and span_id, which ties a request log line to its span.
//
// ApplyConfig builds a Logger from a declarative Config and RedirectStdLog
// routes the standard library's global logger through one.
package log
