package log

import (
	"bytes"
	"encoding/json"
	"errors"
	stdlog "log"
	"strings"
	"testing"
)

func newBufferLogger(level Level, f Formatter) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLogger(WithLevel(level), WithFormatter(f), WithOutput(NewWriterOutput(&buf))), &buf
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(WarnLevel, &TextFormatter{})
	l.Info("hidden")
	l.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info entry leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "shown") {
		t.Fatalf("warn entry missing: %q", out)
	}
}

func TestJSONFormatterFields(t *testing.T) {
	l, buf := newBufferLogger(DebugLevel, &JSONFormatter{})
	l.With(Component("broker")).Info("put", Str("command", "put"), Int("depth", 3), Err(errors.New("boom")))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v (%q)", err, buf.String())
	}
	if got["msg"] != "put" || got["level"] != "info" {
		t.Fatalf("reserved keys: %v", got)
	}
	if got[ComponentKey] != "broker" || got["command"] != "put" || got[ErrorKey] != "boom" {
		t.Fatalf("fields: %v", got)
	}
	if got["depth"] != float64(3) {
		t.Fatalf("depth: %v", got["depth"])
	}
}

func TestTextFormatterSortsAndQuotes(t *testing.T) {
	l, buf := newBufferLogger(DebugLevel, &TextFormatter{})
	l.Info("hello", Str("z", "last"), Str("a", "two words"))
	line := buf.String()
	ai := strings.Index(line, `a="two words"`)
	zi := strings.Index(line, "z=last")
	if ai < 0 || zi < 0 || ai > zi {
		t.Fatalf("unexpected layout: %q", line)
	}
}

func TestSetLevelSharedWithChildren(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel, &TextFormatter{})
	child := l.WithComponent("worker")
	l.SetLevel(ErrorLevel)
	child.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("child ignored parent level: %q", buf.String())
	}
	if child.GetLevel() != ErrorLevel {
		t.Fatalf("child level = %v", child.GetLevel())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"debug": DebugLevel, "INFO": InfoLevel, "": InfoLevel, "warning": WarnLevel, "error": ErrorLevel}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestApplyConfigRejectsUnknownFormat(t *testing.T) {
	if _, err := ApplyConfig(&Config{Format: "xml"}); err == nil {
		t.Fatalf("expected error")
	}
	l, err := ApplyConfig(&Config{Level: "error", Format: "json", Output: "null"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if l.GetLevel() != ErrorLevel {
		t.Fatalf("level = %v", l.GetLevel())
	}
}

func TestRedirectStdLog(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel, &TextFormatter{})
	prev := stdlog.Writer()
	t.Cleanup(func() { stdlog.SetOutput(prev) })
	RedirectStdLog(l)
	stdlog.Print("from stdlib")
	if !strings.Contains(buf.String(), "from stdlib") || !strings.Contains(buf.String(), "component=stdlog") {
		t.Fatalf("redirect output: %q", buf.String())
	}
}
