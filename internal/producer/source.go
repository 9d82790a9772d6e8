package producer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"iter"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
)

// maxLineSize bounds one JSON line.
const maxLineSize = 4 << 20

// FromJSONLines yields one job per non-blank line of r. A line that is not a
// JSON object ends the sequence with an error.
func FromJSONLines(r io.Reader) iter.Seq2[toyov1.Job, error] {
	return func(yield func(toyov1.Job, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		line := 0
		for sc.Scan() {
			line++
			b := bytes.TrimSpace(sc.Bytes())
			if len(b) == 0 {
				continue
			}
			if b[0] != '{' {
				yield(nil, fmt.Errorf("line %d: expected a JSON object", line))
				return
			}
			var job toyov1.Job
			if err := json.Unmarshal(b, &job); err != nil {
				yield(nil, fmt.Errorf("line %d: %w", line, err))
				return
			}
			if !yield(job, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// FromSlice yields jobs in order.
func FromSlice(jobs []toyov1.Job) iter.Seq2[toyov1.Job, error] {
	return func(yield func(toyov1.Job, error) bool) {
		for _, j := range jobs {
			if !yield(j, nil) {
				return
			}
		}
	}
}
