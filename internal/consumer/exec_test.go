package consumer

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecExecutorPassesJob(t *testing.T) {
	requireSh(t)
	out := filepath.Join(t.TempDir(), "out.txt")
	script := `printf '%s|%s|%s|' "$1" "$TOYO_JOB_MODEL_PATH" "$TOYO_JOB_WIDTH" > "$2"; cat >> "$2"`
	e, err := NewExecExecutor([]string{"sh", "-c", script, "sh", "{{.name}}", out})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	job := toyov1.Job{"name": "relu-64", "model_path": "jobs/relu-64.h5", "width": int64(64)}
	o := e.Execute(context.Background(), job)
	if o.Kind() != Succeeded {
		t.Fatalf("outcome = %s (%v)", o.Kind(), o.Err())
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	parts := strings.SplitN(string(b), "|", 4)
	if len(parts) != 4 || parts[0] != "relu-64" || parts[1] != "jobs/relu-64.h5" || parts[2] != "64" {
		t.Fatalf("output = %q", b)
	}
	if !strings.Contains(parts[3], `"model_path":"jobs/relu-64.h5"`) {
		t.Fatalf("stdin payload = %q", parts[3])
	}
}

func TestExecExecutorNonZeroExitFails(t *testing.T) {
	requireSh(t)
	e, err := NewExecExecutor([]string{"sh", "-c", "exit 4"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	o := e.Execute(context.Background(), toyov1.Job{"name": "x"})
	if o.Kind() != Failed || o.Err() == nil {
		t.Fatalf("outcome = %s", o.Kind())
	}
}

func TestExecExecutorMissingTemplateKeyFails(t *testing.T) {
	e, err := NewExecExecutor([]string{"true", "{{.absent}}"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if o := e.Execute(context.Background(), toyov1.Job{"name": "x"}); o.Kind() != Failed {
		t.Fatalf("outcome = %s", o.Kind())
	}
}

func TestExecExecutorCancellation(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	e, err := NewExecExecutor([]string{"sleep", "30"}, WithKillGrace(time.Second))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	begin := time.Now()
	o := e.Execute(ctx, toyov1.Job{"name": "x"})
	if o.Kind() != Cancelled {
		t.Fatalf("outcome = %s (%v)", o.Kind(), o.Err())
	}
	if time.Since(begin) > 5*time.Second {
		t.Fatalf("cancellation took %v", time.Since(begin))
	}
}

func TestNewExecExecutorValidates(t *testing.T) {
	if _, err := NewExecExecutor(nil); err == nil {
		t.Fatalf("expected error for empty argv")
	}
	if _, err := NewExecExecutor([]string{"echo", "{{.a"}); err == nil {
		t.Fatalf("expected template parse error")
	}
}

func TestJobEnv(t *testing.T) {
	job := toyov1.Job{"model-path": "m", "lr": 0.5, "ok": true, "init": json.Number("1.0"), "nested": map[string]any{"a": int64(1)}}
	env := jobEnv(job, []byte(`{}`))
	want := map[string]bool{"TOYO_JOB={}": true, "TOYO_JOB_LR=0.5": true, "TOYO_JOB_MODEL_PATH=m": true, "TOYO_JOB_OK=true": true, "TOYO_JOB_INIT=1.0": true}
	if len(env) != len(want) {
		t.Fatalf("env = %v", env)
	}
	for _, kv := range env {
		if !want[kv] {
			t.Fatalf("unexpected %q in %v", kv, env)
		}
	}
}
