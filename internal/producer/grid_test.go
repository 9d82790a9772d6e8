package producer

import (
	"errors"
	"testing"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
)

const sweep = `
axes:
  - name: act
    values: [relu, tanh]
  - name: width
    values: [64, 128]
  - name: init
    values: [glorot_uniform, 0.05]
tries: 2
name: "act_{{.act}}-width_{{.width}}-init_{{.init}}-try_{{.try}}"
fields:
  model_path: "jobs/{{.name}}.h5"
  epochs: 50
`

func TestGridOrderAndNames(t *testing.T) {
	g, err := ParseGrid([]byte(sweep))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if g.Size() != 16 {
		t.Fatalf("size = %d", g.Size())
	}
	var jobs []toyov1.Job
	for j, err := range g.Jobs() {
		if err != nil {
			t.Fatalf("row: %v", err)
		}
		jobs = append(jobs, j)
	}
	if len(jobs) != 16 {
		t.Fatalf("got %d jobs", len(jobs))
	}
	first := toyov1.Job{
		"act": "relu", "width": int64(64), "init": "glorot_uniform",
		"name":       "act_relu-width_64-init_glorot_uniform-try_0",
		"model_path": "jobs/act_relu-width_64-init_glorot_uniform-try_0.h5",
		"epochs":     int64(50),
	}
	if !jobs[0].Equal(first) {
		t.Fatalf("first = %s", jobs[0])
	}
	if jobs[1]["name"] != "act_relu-width_64-init_0.05-try_0" {
		t.Fatalf("last axis must vary fastest: %s", jobs[1]["name"])
	}
	if jobs[2]["width"] != int64(128) || jobs[4]["act"] != "tanh" {
		t.Fatalf("row-major order broken: %s %s", jobs[2], jobs[4])
	}
	if jobs[8]["name"] != "act_relu-width_64-init_glorot_uniform-try_1" {
		t.Fatalf("second try = %s", jobs[8]["name"])
	}
}

func TestGridStopsEarly(t *testing.T) {
	g, err := ParseGrid([]byte(sweep))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	n := 0
	for range g.Jobs() {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Fatalf("n = %d", n)
	}
}

func TestGridValidation(t *testing.T) {
	bad := []string{
		"tries: 1\n",
		"axes:\n  - name: a\n    values: []\n",
		"axes:\n  - values: [1]\n",
		"axes:\n  - name: a\n    values: [1]\n  - name: a\n    values: [2]\n",
		"axes:\n  - name: a\n    values: [1]\nname: \"{{.a\"\n",
		"axes: [",
	}
	for _, in := range bad {
		if _, err := ParseGrid([]byte(in)); !errors.Is(err, ErrInvalidGrid) {
			t.Errorf("%q: expected ErrInvalidGrid, got %v", in, err)
		}
	}
}

func TestGridMissingTemplateKey(t *testing.T) {
	g, err := ParseGrid([]byte("axes:\n  - name: a\n    values: [1]\nname: \"{{.b}}\"\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, err := range g.Jobs() {
		if !errors.Is(err, ErrInvalidGrid) {
			t.Fatalf("expected ErrInvalidGrid, got %v", err)
		}
	}
}
