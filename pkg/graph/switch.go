package graph

import (
	"fmt"

	"github.com/aretw0/pipegraph/pkg/domain"
)

// SetSwitchSelection selects an alternative of a switch and recomputes
// activation. NoSelection is only accepted by optional switches.
func (g *Graph) SetSwitchSelection(name, alternative string) error {
	n, ok := g.nodes[name]
	if !ok {
		return &domain.DanglingReferenceError{Kind: "switch", Name: name}
	}
	s, ok := n.(*Switch)
	if !ok {
		return fmt.Errorf("%w: node %q is a %s, not a switch", domain.ErrDanglingReference, name, n.Kind())
	}
	switch {
	case alternative == NoSelection && !s.optional:
		return s.unknown(alternative)
	case alternative != NoSelection && !s.has(alternative):
		return s.unknown(alternative)
	}
	if s.selected != alternative {
		s.selected = alternative
		g.touch()
	}
	return g.ensure()
}

// routed reports whether a link reaches its destination through the current
// switch routing. Links into a non-selected alternative are not routed.
func (g *Graph) routed(l *Link) bool {
	if l.dst.IsBoundary() {
		return true
	}
	s, ok := g.nodes[l.dst.Node].(*Switch)
	if !ok {
		return true
	}
	alt := s.alternativeOf(l.dst.Plug)
	return alt == "" || alt == s.selected
}

// DeclareSelectionGroup declares a selection parameter choosing between
// mutually exclusive groups of nodes. The first group is selected.
func (g *Graph) DeclareSelectionGroup(param string, groups []Group) error {
	if err := checkName(param); err != nil {
		return err
	}
	if len(groups) == 0 {
		return fmt.Errorf("%w: selection %q has no groups", domain.ErrInvalidName, param)
	}
	for _, sel := range g.selections {
		if sel.param == param {
			return fmt.Errorf("%w: selection %q", domain.ErrDuplicateName, param)
		}
	}
	seen := make(map[string]bool, len(groups))
	copied := make([]Group, 0, len(groups))
	for _, grp := range groups {
		if err := checkName(grp.Name); err != nil {
			return err
		}
		if seen[grp.Name] {
			return fmt.Errorf("%w: group %q in selection %q", domain.ErrDuplicateName, grp.Name, param)
		}
		seen[grp.Name] = true
		for _, node := range grp.Nodes {
			if _, ok := g.nodes[node]; !ok {
				return &domain.DanglingReferenceError{Kind: "node", Name: node}
			}
		}
		copied = append(copied, Group{Name: grp.Name, Nodes: append([]string(nil), grp.Nodes...)})
	}
	g.selections = append(g.selections, &selection{param: param, groups: copied})
	g.touch()
	return nil
}

// SelectGroup selects a group of a selection parameter.
func (g *Graph) SelectGroup(param, group string) error {
	for _, sel := range g.selections {
		if sel.param != param {
			continue
		}
		names := make([]string, 0, len(sel.groups))
		for i, grp := range sel.groups {
			if grp.Name == group {
				if sel.selected != i {
					sel.selected = i
					g.touch()
				}
				return nil
			}
			names = append(names, grp.Name)
		}
		return &domain.UnknownAlternativeError{Switch: param, Alternative: group, Declared: names}
	}
	return &domain.DanglingReferenceError{Kind: "selection", Name: param}
}

// SelectionGroups returns the declared selections in declaration order.
func (g *Graph) SelectionGroups() []SelectionInfo {
	out := make([]SelectionInfo, 0, len(g.selections))
	for _, sel := range g.selections {
		groups := make([]Group, len(sel.groups))
		for i, grp := range sel.groups {
			groups[i] = Group{Name: grp.Name, Nodes: append([]string(nil), grp.Nodes...)}
		}
		out = append(out, SelectionInfo{Param: sel.param, Groups: groups, Selected: sel.groups[sel.selected].Name})
	}
	return out
}

// deselected reports whether a node belongs only to non-selected groups of
// some selection.
func (g *Graph) deselected(node string) bool {
	for _, sel := range g.selections {
		listed, chosen := false, false
		for i, grp := range sel.groups {
			for _, n := range grp.Nodes {
				if n == node {
					listed = true
					chosen = chosen || i == sel.selected
				}
			}
		}
		if listed && !chosen {
			return true
		}
	}
	return false
}
