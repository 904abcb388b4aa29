package inspect

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/graph"
)

// PipelineMismatchError reports a record made for another pipeline.
type PipelineMismatchError struct {
	Recorded string
	Pipeline string
}

func (e *PipelineMismatchError) Error() string {
	return fmt.Sprintf("record holds activations of pipeline %q, not %q", e.Recorded, e.Pipeline)
}

// Inspector replays a record. Step i is the state after applying the first
// i+1 transitions.
type Inspector struct {
	rec    *graph.Record
	states []map[string]bool
}

// New prepares the cumulative states of rec.
func New(rec *graph.Record) *Inspector {
	in := &Inspector{rec: rec, states: make([]map[string]bool, 0, len(rec.Steps))}
	current := make(map[string]bool)
	for _, s := range rec.Steps {
		k := Key(s.Node, s.Plug)
		if s.Activated {
			current[k] = true
		} else {
			delete(current, k)
		}
		snapshot := make(map[string]bool, len(current))
		for k := range current {
			snapshot[k] = true
		}
		in.states = append(in.states, snapshot)
	}
	return in
}

// Open parses a record from r and checks it belongs to g. A nil g skips the
// check.
func Open(r io.Reader, g *graph.Graph) (*Inspector, error) {
	rec, err := graph.ParseRecord(r)
	if err != nil {
		return nil, err
	}
	in := New(rec)
	if g != nil {
		if err := in.Check(g); err != nil {
			return nil, err
		}
	}
	return in, nil
}

// OpenFile is Open on the file at path.
func OpenFile(path string, g *graph.Graph) (*Inspector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Open(f, g)
}

// Key names a node ("A"), a plug ("A:x") or an exported plug (":x").
func Key(node, plug string) string {
	if plug == "" {
		return node
	}
	return node + ":" + plug
}

// Check verifies the record header against the pipeline id.
func (in *Inspector) Check(g *graph.Graph) error {
	if in.rec.Pipeline != g.ID() {
		return &PipelineMismatchError{Recorded: in.rec.Pipeline, Pipeline: g.ID()}
	}
	return nil
}

// Pipeline returns the pipeline id from the record header.
func (in *Inspector) Pipeline() string { return in.rec.Pipeline }

// Len returns the number of steps.
func (in *Inspector) Len() int { return len(in.rec.Steps) }

// Step returns the transition of step i.
func (in *Inspector) Step(i int) domain.Transition { return in.rec.Steps[i] }

// Label renders step i as "+ node:plug".
func (in *Inspector) Label(i int) string {
	s := in.rec.Steps[i]
	sign := "-"
	if s.Activated {
		sign = "+"
	}
	return sign + " " + Key(s.Node, s.Plug)
}

// State returns the set of active elements after step i. Elements absent
// from the map are inactive.
func (in *Inspector) State(i int) map[string]bool {
	return in.states[i]
}

// Final returns the state after the last step.
func (in *Inspector) Final() map[string]bool {
	if len(in.states) == 0 {
		return map[string]bool{}
	}
	return in.states[len(in.states)-1]
}

// FindNext returns the first step after from whose label matches pattern.
// Pass -1 to search from the beginning.
func (in *Inspector) FindNext(pattern *regexp.Regexp, from int) (int, bool) {
	for i := from + 1; i < in.Len(); i++ {
		if pattern.MatchString(in.Label(i)) {
			return i, true
		}
	}
	return -1, false
}

// FindPrevious returns the last step before from whose label matches
// pattern. Pass Len() to search from the end.
func (in *Inspector) FindPrevious(pattern *regexp.Regexp, from int) (int, bool) {
	if from > in.Len() {
		from = in.Len()
	}
	for i := from - 1; i >= 0; i-- {
		if pattern.MatchString(in.Label(i)) {
			return i, true
		}
	}
	return -1, false
}

// Filter returns the indexes of every step matching pattern.
func (in *Inspector) Filter(pattern *regexp.Regexp) []int {
	var out []int
	for i := 0; i < in.Len(); i++ {
		if pattern.MatchString(in.Label(i)) {
			out = append(out, i)
		}
	}
	return out
}
