package producer

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"os"
	"sort"
	"text/template"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
	"gopkg.in/yaml.v3"
)

// ErrInvalidGrid is returned for grid files that cannot be expanded.
var ErrInvalidGrid = errors.New("producer: invalid grid")

// Axis is one swept parameter.
type Axis struct {
	Name   string `yaml:"name" json:"name"`
	Values []any  `yaml:"values" json:"values"`
}

// Grid describes a parameter sweep. For each try, every combination of axis
// values becomes one job, the last axis varying fastest.
//
//	axes:
//	  - name: act
//	    values: [relu, tanh]
//	  - name: width
//	    values: [64, 128]
//	tries: 10
//	name: "act_{{.act}}-width_{{.width}}-try_{{.try}}"
//	fields:
//	  model_path: "jobs/{{.name}}.h5"
//
// Templates see the axis values of the row, "try" and, for fields, "name".
// String field values are rendered as templates; other values are copied.
type Grid struct {
	Axes  []Axis `yaml:"axes" json:"axes"`
	Tries int    `yaml:"tries" json:"tries"`
	// Name is a text/template for the job name; empty leaves jobs unnamed.
	Name string `yaml:"name" json:"name"`
	// NameField is the key the rendered name is stored under (default "name").
	NameField string         `yaml:"name_field" json:"name_field"`
	Fields    map[string]any `yaml:"fields" json:"fields"`

	nameTmpl   *template.Template
	fieldTmpls map[string]*template.Template
}

// LoadGrid reads and validates a YAML grid file.
func LoadGrid(path string) (*Grid, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseGrid(b)
}

// ParseGrid decodes and validates a YAML grid.
func ParseGrid(data []byte) (*Grid, error) {
	var g Grid
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}
	if err := g.Compile(); err != nil {
		return nil, err
	}
	return &g, nil
}

// Compile validates the grid and parses its templates. It is called by
// ParseGrid; grids built in code must call it before Jobs.
func (g *Grid) Compile() error {
	if len(g.Axes) == 0 {
		return fmt.Errorf("%w: no axes", ErrInvalidGrid)
	}
	seen := make(map[string]bool, len(g.Axes))
	for i, a := range g.Axes {
		if a.Name == "" {
			return fmt.Errorf("%w: axis %d has no name", ErrInvalidGrid, i)
		}
		if seen[a.Name] {
			return fmt.Errorf("%w: duplicate axis %q", ErrInvalidGrid, a.Name)
		}
		seen[a.Name] = true
		if len(a.Values) == 0 {
			return fmt.Errorf("%w: axis %q has no values", ErrInvalidGrid, a.Name)
		}
	}
	if g.Tries <= 0 {
		g.Tries = 1
	}
	if g.NameField == "" {
		g.NameField = "name"
	}
	g.nameTmpl = nil
	if g.Name != "" {
		t, err := template.New("name").Option("missingkey=error").Parse(g.Name)
		if err != nil {
			return fmt.Errorf("%w: name: %v", ErrInvalidGrid, err)
		}
		g.nameTmpl = t
	}
	g.fieldTmpls = make(map[string]*template.Template)
	for k, v := range g.Fields {
		s, ok := v.(string)
		if !ok {
			continue
		}
		t, err := template.New(k).Option("missingkey=error").Parse(s)
		if err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrInvalidGrid, k, err)
		}
		g.fieldTmpls[k] = t
	}
	return nil
}

// Size is the number of jobs the grid yields.
func (g *Grid) Size() int {
	n := g.Tries
	if n <= 0 {
		n = 1
	}
	for _, a := range g.Axes {
		n *= len(a.Values)
	}
	return n
}

// Jobs yields the grid row by row, try by try.
func (g *Grid) Jobs() iter.Seq2[toyov1.Job, error] {
	return func(yield func(toyov1.Job, error) bool) {
		if g.fieldTmpls == nil {
			if err := g.Compile(); err != nil {
				yield(nil, err)
				return
			}
		}
		idx := make([]int, len(g.Axes))
		for try := 0; try < g.Tries; try++ {
			clear(idx)
			for {
				job, err := g.row(idx, try)
				if !yield(job, err) || err != nil {
					return
				}
				if !g.advance(idx) {
					break
				}
			}
		}
	}
}

// advance steps idx like an odometer and reports false after the last row.
func (g *Grid) advance(idx []int) bool {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < len(g.Axes[i].Values) {
			return true
		}
		idx[i] = 0
	}
	return false
}

func (g *Grid) row(idx []int, try int) (toyov1.Job, error) {
	job := make(toyov1.Job, len(g.Axes)+len(g.Fields)+1)
	data := make(map[string]any, len(g.Axes)+2)
	for i, a := range g.Axes {
		job[a.Name] = a.Values[idx[i]]
		data[a.Name] = a.Values[idx[i]]
	}
	data["try"] = try

	if g.nameTmpl != nil {
		name, err := render(g.nameTmpl, data)
		if err != nil {
			return nil, fmt.Errorf("%w: name: %v", ErrInvalidGrid, err)
		}
		job[g.NameField] = name
		data[g.NameField] = name
	}

	keys := make([]string, 0, len(g.Fields))
	for k := range g.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if t, ok := g.fieldTmpls[k]; ok {
			s, err := render(t, data)
			if err != nil {
				return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidGrid, k, err)
			}
			job[k] = s
			continue
		}
		job[k] = g.Fields[k]
	}
	return toyov1.NormalizeJob(job), nil
}

func render(t *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
