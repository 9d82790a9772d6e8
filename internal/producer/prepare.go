package producer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
)

// CommandPrepare runs name with args once per job, passing the job as JSON on
// stdin. If the command prints a JSON object, its keys are merged into the
// job; empty output leaves the job unchanged. A non-zero exit fails the feed.
func CommandPrepare(name string, args ...string) PrepareFunc {
	return func(ctx context.Context, job toyov1.Job) (toyov1.Job, error) {
		in, err := json.Marshal(job)
		if err != nil {
			return nil, err
		}
		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Stdin = bytes.NewReader(in)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		cmd.Env = append(os.Environ(), "TOYO_JOB="+string(in))
		if err := cmd.Run(); err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
			}
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out := bytes.TrimSpace(stdout.Bytes())
		if len(out) == 0 {
			return job, nil
		}
		var extra toyov1.Job
		if err := json.Unmarshal(out, &extra); err != nil || extra == nil {
			return nil, fmt.Errorf("%s: output is not a JSON object: %q", name, out)
		}
		merged := job.Clone()
		if merged == nil {
			merged = toyov1.Job{}
		}
		for k, v := range extra {
			merged[k] = v
		}
		return merged, nil
	}
}
