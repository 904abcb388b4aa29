package graph

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/pipegraph/pkg/domain"
)

type element struct {
	node      string
	plug      string
	activated bool
	stamp     int
}

func (e element) key() string {
	if e.plug == "" {
		return e.node
	}
	return e.node + ":" + e.plug
}

// elements flattens the activation state in display order: exported plugs,
// then nodes with their plugs, nested pipelines after their node.
func (g *Graph) elements(prefix string, out []element) []element {
	if prefix == "" {
		for _, name := range g.boundary.order {
			p := g.boundary.plugs[name]
			out = append(out, element{plug: name, activated: p.activated, stamp: p.stamp})
		}
	}
	for _, name := range g.order {
		n := g.nodes[name]
		c := n.core()
		full := prefix + name
		out = append(out, element{node: full, activated: c.activated, stamp: c.stamp})
		for _, pn := range c.order {
			p := c.plugs[pn]
			out = append(out, element{node: full, plug: pn, activated: p.activated, stamp: p.stamp})
		}
		if pn, ok := n.(*PipelineNode); ok {
			out = pn.inner.elements(full+".", out)
		}
	}
	return out
}

// publish diffs the current state against the last published one. Elements
// never published count as deactivated.
func (g *Graph) publish() []domain.Transition {
	elems := g.elements("", nil)
	next := make(map[string]bool, len(elems))
	var out []domain.Transition
	for _, e := range elems {
		k := e.key()
		next[k] = e.activated
		if g.published[k] == e.activated {
			continue
		}
		pass := 0
		if !e.activated {
			pass = e.stamp
		}
		out = append(out, domain.Transition{Pass: pass, Node: e.node, Plug: e.plug, Activated: e.activated})
	}
	g.published = next
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pass < out[j].Pass })
	return out
}

// Record is a replayable log of activation transitions for one pipeline.
type Record struct {
	Pipeline string
	Steps    []domain.Transition
}

// Recorder accumulates transitions of every recompute of a graph. Passes of
// successive recomputes are numbered after one another.
type Recorder struct {
	record Record
	base   int
	last   int
}

// NewRecorder starts recording the activation transitions of g.
func NewRecorder(g *Graph) *Recorder {
	r := &Recorder{record: Record{Pipeline: g.ID()}}
	g.Observe(domain.ActivationHooks{
		OnTransition: func(t domain.Transition) {
			t.Pass += r.base
			if t.Pass > r.last {
				r.last = t.Pass
			}
			r.record.Steps = append(r.record.Steps, t)
		},
		OnRecompute: func(e domain.RecomputeEvent) {
			if e.Err == nil && e.Transitions > 0 {
				r.base = r.last + 1
			}
		},
	})
	return r
}

// Record returns a copy of what was recorded so far.
func (r *Recorder) Record() *Record {
	steps := append([]domain.Transition(nil), r.record.Steps...)
	return &Record{Pipeline: r.record.Pipeline, Steps: steps}
}

// WriteTo writes the record: a header line with the pipeline id, then one
// transition per line.
func (r *Record) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var total int64
	n, err := fmt.Fprintln(bw, r.Pipeline)
	total += int64(n)
	if err != nil {
		return total, err
	}
	for _, s := range r.Steps {
		n, err := fmt.Fprintln(bw, s.String())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, bw.Flush()
}

var stepLine = regexp.MustCompile(`^(\d+)([+-=])([^:]*)(:([^:]+))?$`)

// ParseRecord reads a record written by WriteTo. Lines using "=" (no change)
// are accepted and skipped.
func ParseRecord(r io.Reader) (*Record, error) {
	sc := bufio.NewScanner(r)
	rec := &Record{}
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if line == 1 {
			rec.Pipeline = strings.TrimSpace(text)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		m := stepLine.FindStringSubmatch(text)
		if m == nil {
			return nil, fmt.Errorf("activation record line %d: malformed step %q", line, text)
		}
		if m[2] == "=" {
			continue
		}
		pass, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("activation record line %d: %w", line, err)
		}
		rec.Steps = append(rec.Steps, domain.Transition{
			Pass:      pass,
			Node:      m[3],
			Plug:      m[5],
			Activated: m[2] == "+",
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if line == 0 {
		return nil, fmt.Errorf("activation record is empty")
	}
	return rec, nil
}
