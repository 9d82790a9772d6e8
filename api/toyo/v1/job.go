package toyov1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Job is an opaque unit of work. The broker never inspects it beyond copying
// it between the queue, the completion log and the wire.
type Job map[string]any

// UnmarshalJSON decodes a JSON object (or null) into j. Numbers stay
// json.Number so that re-encoding reproduces the literal.
func (j *Job) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*j = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	*j = NormalizeJob(m)
	return nil
}

// Equal reports whether j and o are structurally equal. Two nil jobs are
// equal; nil and an empty object are not.
func (j Job) Equal(o Job) bool {
	if j == nil || o == nil {
		return j == nil && o == nil
	}
	a, errA := json.Marshal(j)
	b, errB := json.Marshal(o)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// Clone returns a deep copy of j.
func (j Job) Clone() Job {
	if j == nil {
		return nil
	}
	return cloneValue(map[string]any(j)).(map[string]any)
}

// String renders j as compact JSON for logs.
func (j Job) String() string {
	if j == nil {
		return "null"
	}
	b, err := json.Marshal(j)
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(j))
	}
	return string(b)
}

// NormalizeJob converts every value in m to the canonical value tree: nil,
// bool, string, json.Number, int64, float64, []any and map[string]any.
// Native integers widen to int64; floats are never folded into integers.
func NormalizeJob(m map[string]any) Job {
	if m == nil {
		return nil
	}
	return Job(normalizeValue(m).(map[string]any))
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string, int64, float64, json.Number:
		return val
	case float32:
		return float64(val)
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint:
		return normalizeUint(uint64(val))
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return normalizeUint(val)
	case []byte:
		return string(val)
	case Job:
		return normalizeValue(map[string]any(val))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, x := range val {
			out[k] = normalizeValue(x)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, x := range val {
			out[fmt.Sprint(k)] = normalizeValue(x)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, x := range val {
			out[i] = normalizeValue(x)
		}
		return out
	default:
		return val
	}
}

func normalizeUint(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return json.Number(strconv.FormatUint(u, 10))
}

// Native returns a copy of j with every json.Number replaced by an int64,
// uint64 or float64, for encoders and evaluators that cannot carry a numeric
// literal. It fails on a literal outside float64 range.
func (j Job) Native() (Job, error) {
	if j == nil {
		return nil, nil
	}
	v, err := nativeValue(map[string]any(j))
	if err != nil {
		return nil, err
	}
	return Job(v.(map[string]any)), nil
}

func nativeValue(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		return nativeNumber(val)
	case Job:
		return nativeValue(map[string]any(val))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, x := range val {
			n, err := nativeValue(x)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, x := range val {
			n, err := nativeValue(x)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return val, nil
	}
}

func nativeNumber(n json.Number) (any, error) {
	s := n.String()
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return u, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("number %s: %w", s, err)
	}
	return f, nil
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, x := range val {
			out[k] = cloneValue(x)
		}
		return out
	case Job:
		return cloneValue(map[string]any(val))
	case []any:
		out := make([]any, len(val))
		for i, x := range val {
			out[i] = cloneValue(x)
		}
		return out
	default:
		return val
	}
}
