package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
)

// DefaultKillGrace is how long a cancelled command gets between SIGINT and
// SIGKILL.
const DefaultKillGrace = 5 * time.Second

// ExecOption configures an ExecExecutor.
type ExecOption func(*ExecExecutor)

// WithKillGrace sets the delay between interrupt and kill on cancellation.
func WithKillGrace(d time.Duration) ExecOption {
	return func(e *ExecExecutor) { e.grace = d }
}

// WithDir runs commands in dir.
func WithDir(dir string) ExecOption {
	return func(e *ExecExecutor) { e.dir = dir }
}

// WithOutput sends the command's stdout and stderr to the given writers.
func WithOutput(stdout, stderr io.Writer) ExecOption {
	return func(e *ExecExecutor) { e.stdout, e.stderr = stdout, stderr }
}

// WithEnv adds variables to the command environment.
func WithEnv(env ...string) ExecOption {
	return func(e *ExecExecutor) { e.env = append(e.env, env...) }
}

// ExecExecutor runs an external command per job.
//
// The job reaches the command three ways: as JSON on stdin, as JSON in
// TOYO_JOB, and field by field as TOYO_JOB_<KEY> for scalar values. Arguments
// are text/templates over the job, so "--model={{.model_path}}" works.
type ExecExecutor struct {
	path   string
	args   []*template.Template
	dir    string
	env    []string
	grace  time.Duration
	stdout io.Writer
	stderr io.Writer
}

// NewExecExecutor parses argv. argv[0] is the program; the rest are argument
// templates.
func NewExecExecutor(argv []string, opts ...ExecOption) (*ExecExecutor, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, errors.New("consumer: empty command")
	}
	e := &ExecExecutor{path: argv[0], grace: DefaultKillGrace, stdout: os.Stdout, stderr: os.Stderr}
	for i, a := range argv[1:] {
		t, err := template.New("arg" + strconv.Itoa(i)).Option("missingkey=error").Parse(a)
		if err != nil {
			return nil, fmt.Errorf("consumer: argument %d: %w", i+1, err)
		}
		e.args = append(e.args, t)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Execute runs the command for job. A cancelled ctx interrupts the process
// and yields Cancelled; a non-zero exit yields Failed.
func (e *ExecExecutor) Execute(ctx context.Context, job toyov1.Job) Outcome {
	args := make([]string, 0, len(e.args))
	for _, t := range e.args {
		var buf bytes.Buffer
		if err := t.Execute(&buf, map[string]any(job)); err != nil {
			return Failure(fmt.Errorf("render %s: %w", t.Name(), err))
		}
		args = append(args, buf.String())
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return Failure(err)
	}

	cmd := exec.CommandContext(ctx, e.path, args...)
	cmd.Dir = e.dir
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	cmd.Env = append(append(os.Environ(), e.env...), jobEnv(job, payload)...)
	detach(cmd)
	cmd.Cancel = func() error { return interrupt(cmd) }
	cmd.WaitDelay = e.grace

	start := time.Now()
	err = cmd.Run()
	if ctx.Err() != nil {
		return Cancel()
	}
	if err != nil {
		return Failure(fmt.Errorf("%s: %w", e.path, err))
	}
	return Success(map[string]any{
		"exit_code":  cmd.ProcessState.ExitCode(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
}

// jobEnv renders TOYO_JOB and one TOYO_JOB_<KEY> per scalar field.
func jobEnv(job toyov1.Job, payload []byte) []string {
	env := []string{"TOYO_JOB=" + string(payload)}
	keys := make([]string, 0, len(job))
	for k := range job {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var v string
		switch t := job[k].(type) {
		case string:
			v = t
		case bool:
			v = strconv.FormatBool(t)
		case json.Number:
			v = t.String()
		case int64:
			v = strconv.FormatInt(t, 10)
		case float64:
			v = strconv.FormatFloat(t, 'g', -1, 64)
		default:
			continue
		}
		env = append(env, "TOYO_JOB_"+envKey(k)+"="+v)
	}
	return env
}

func envKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, k)
}
