package broker

import (
	"fmt"
	"strings"
	"time"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
	"github.com/cocuh/toyosatomimi/internal/workqueue"
	"github.com/google/cel-go/cel"
)

// celFilter wraps a compiled CEL program shared by the queue, completion and
// in-flight views. When disabled, Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		// The job record itself, as a dynamic map.
		cel.Variable("job", cel.DynType),
		// Position of the entry in the view, head or oldest first.
		cel.Variable("index", cel.IntType),
		// In-flight views only; empty and zero elsewhere.
		cel.Variable("delivery", cel.StringType),
		cel.Variable("delivered_ms", cel.IntType),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, fmt.Errorf("%w: %v", ErrInvalidFilter, iss.Err())
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, fmt.Errorf("%w: %v", ErrInvalidFilter, iss2.Err())
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the compiled expression against one entry. Evaluation errors
// (a missing key, a type mismatch) count as no match.
func (f celFilter) Eval(index int, job toyov1.Job, d *workqueue.Delivery) bool {
	if !f.enabled {
		return true
	}
	// CEL has no type for a JSON number literal.
	native, err := job.Native()
	if err != nil {
		return false
	}
	vars := map[string]any{
		"job":          map[string]any(native),
		"index":        int64(index),
		"delivery":     "",
		"delivered_ms": int64(0),
		"now_ms":       time.Now().UnixMilli(),
	}
	if d != nil {
		vars["delivery"] = d.ID
		vars["delivered_ms"] = d.DeliveredAt.UnixMilli()
	}
	out, _, err := f.prog.Eval(vars)
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
