package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/graph"
)

// Finding kinds.
const (
	// DeadEnd marks an enabled node whose outputs never reach an exported
	// output of the pipeline.
	DeadEnd = "dead-end"
	// UnfedInput marks a mandatory input with neither a link nor a value.
	UnfedInput = "unfed-input"
)

// Finding is a structural problem that does not prevent the pipeline from
// building.
type Finding struct {
	Kind string `json:"kind"`
	Node string `json:"node"`
	Plug string `json:"plug,omitempty"`
}

func (f Finding) String() string {
	switch f.Kind {
	case DeadEnd:
		return fmt.Sprintf("node '%s' does not contribute to any pipeline output", f.Node)
	case UnfedInput:
		return fmt.Sprintf("mandatory input '%s.%s' is neither linked nor set", f.Node, f.Plug)
	}
	return f.Kind + ": " + f.Node
}

// Lint checks the top level of g. Findings are sorted by node, then kind.
func Lint(g *graph.Graph) ([]Finding, error) {
	nodes, err := g.ListNodes()
	if err != nil {
		return nil, err
	}
	links, err := g.ListLinks()
	if err != nil {
		return nil, err
	}

	fed := make(map[string]bool)
	upstream := make(map[string][]string) // node -> source nodes, "" for the boundary
	var queue []string
	for _, l := range links {
		fed[l.Dest] = true
		src, dst := domain.ParseEndpoint(l.Source), domain.ParseEndpoint(l.Dest)
		if dst.IsBoundary() {
			if !src.IsBoundary() {
				queue = append(queue, src.Node)
			}
			continue
		}
		upstream[dst.Node] = append(upstream[dst.Node], src.Node)
	}

	var findings []Finding
	for _, n := range nodes {
		if !n.Enabled || n.Kind == domain.KindSwitch || n.Kind == domain.KindOptionalSwitch {
			continue
		}
		for _, p := range n.Plugs {
			if p.Direction == domain.Input.String() && !p.Optional && !p.HasValue && !fed[n.Name+"."+p.Name] {
				findings = append(findings, Finding{Kind: UnfedInput, Node: n.Name, Plug: p.Name})
			}
		}
	}

	// Without exported outputs a pipeline only writes files, so every node
	// may matter.
	if len(queue) > 0 {
		reached := make(map[string]bool)
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			if current == "" || reached[current] {
				continue
			}
			reached[current] = true
			queue = append(queue, upstream[current]...)
		}
		for _, n := range nodes {
			if n.Enabled && !reached[n.Name] {
				findings = append(findings, Finding{Kind: DeadEnd, Node: n.Name})
			}
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Node != findings[j].Node {
			return findings[i].Node < findings[j].Node
		}
		return findings[i].Kind < findings[j].Kind
	})
	return findings, nil
}

// Error joins findings into one error, or returns nil when there are none.
func Error(findings []Finding) error {
	if len(findings) == 0 {
		return nil
	}
	lines := make([]string, len(findings))
	for i, f := range findings {
		lines[i] = f.String()
	}
	return fmt.Errorf("found %d problems:\n- %s", len(findings), strings.Join(lines, "\n- "))
}
