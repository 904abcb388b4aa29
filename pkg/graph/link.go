package graph

import (
	"fmt"

	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/schema"
)

// AddLink connects two plugs given as "node.plug" or bare exported names.
func (g *Graph) AddLink(source, dest string, weak bool) (LinkID, error) {
	return g.Connect(domain.ParseEndpoint(source), domain.ParseEndpoint(dest), weak)
}

// Connect adds a link between two endpoints.
//
// The source must be a node output or an exported input; the destination a
// node input or an exported output. An identical link (same endpoints and
// weakness) is rejected, as is a second non-weak link into a scalar input.
func (g *Graph) Connect(src, dst domain.Endpoint, weak bool) (LinkID, error) {
	// plugs of nested pipelines must reflect edits made through Inner
	g.syncPipelines()
	invalid := func(reason string, dangling bool) error {
		return &domain.InvalidLinkError{Source: src, Dest: dst, Reason: reason, Dangling: dangling}
	}

	sp, ok := g.plugAt(src)
	if !ok {
		return 0, invalid("unknown source "+src.String(), true)
	}
	dp, ok := g.plugAt(dst)
	if !ok {
		return 0, invalid("unknown destination "+dst.String(), true)
	}
	if sp == dp {
		return 0, invalid("plug linked to itself", false)
	}
	if src.IsBoundary() && dst.IsBoundary() {
		return 0, invalid("links between exported plugs are not supported", false)
	}
	if src.IsBoundary() != (sp.dir == domain.Input) {
		return 0, invalid("source must be an output or an exported input", false)
	}
	if dst.IsBoundary() != (dp.dir == domain.Output) {
		return 0, invalid("destination must be an input or an exported output", false)
	}

	for _, id := range dp.links {
		l := g.links[id]
		if l.dst != dst {
			continue
		}
		if l.src == src && l.weak == weak {
			return 0, invalid("duplicate link", false)
		}
		if !weak && !l.weak && !dp.iterative {
			return 0, &domain.MultipleSourcesError{Dest: dst, Existing: l.src, Incoming: src}
		}
	}

	id := g.nextLink
	g.nextLink++
	g.links[id] = &Link{id: id, src: src, dst: dst, weak: weak}
	g.linkSeq = append(g.linkSeq, id)
	sp.links = append(sp.links, id)
	dp.links = append(dp.links, id)
	g.touch()
	return id, nil
}

// RemoveLink deletes a link. Removing the link that binds an exported name
// rebinds the name to its next link, or drops the export when none is left.
func (g *Graph) RemoveLink(id LinkID) error {
	if _, ok := g.links[id]; !ok {
		return &domain.DanglingReferenceError{Kind: "link", Name: fmt.Sprint(id)}
	}
	g.removeLink(id)
	return nil
}

// Disconnect removes the link between two endpoints with the given weakness.
func (g *Graph) Disconnect(source, dest string, weak bool) error {
	src, dst := domain.ParseEndpoint(source), domain.ParseEndpoint(dest)
	for _, id := range g.linkSeq {
		l := g.links[id]
		if l.src == src && l.dst == dst && l.weak == weak {
			g.removeLink(id)
			return nil
		}
	}
	return &domain.DanglingReferenceError{Kind: "link", Name: source + "->" + dest}
}

func (g *Graph) removeLink(id LinkID) {
	l, ok := g.links[id]
	if !ok {
		return
	}
	if p, ok := g.plugAt(l.src); ok {
		p.detach(id)
	}
	if p, ok := g.plugAt(l.dst); ok {
		p.detach(id)
	}
	delete(g.links, id)
	for i, v := range g.linkSeq {
		if v == id {
			g.linkSeq = append(g.linkSeq[:i], g.linkSeq[i+1:]...)
			break
		}
	}
	for name, alias := range g.boundary.alias {
		if alias != id {
			continue
		}
		bp := g.boundary.plugs[name]
		if len(bp.links) > 0 {
			g.boundary.alias[name] = bp.links[0]
		} else {
			g.dropExport(name)
		}
	}
	g.touch()
}

// Export aliases node.plug as a boundary plug named exported. Re-exporting the
// same mapping is a no-op; binding the name to another plug fails with
// ConflictingExportError.
func (g *Graph) Export(node, plug, exported string) error {
	inner := domain.Endpoint{Node: node, Plug: plug}
	if node == "" {
		return &domain.DanglingReferenceError{Kind: "node", Name: node}
	}
	if _, ok := g.nodes[node]; !ok {
		return &domain.DanglingReferenceError{Kind: "node", Name: node}
	}
	ip, ok := g.plugAt(inner)
	if !ok {
		return &domain.DanglingReferenceError{Kind: "plug", Name: inner.String()}
	}
	if exported == "" {
		exported = plug
	}
	if err := checkName(exported); err != nil {
		return err
	}
	if _, taken := g.boundary.plugs[exported]; taken {
		current := g.exportTarget(exported)
		if current == inner {
			return nil
		}
		return &domain.ConflictingExportError{Name: exported, Existing: current, Requested: inner}
	}

	bp := &Plug{
		name:      exported,
		dir:       ip.dir,
		optional:  ip.optional,
		typeTag:   ip.typeTag,
		iterative: ip.iterative,
	}
	g.boundary.plugs[exported] = bp
	g.boundary.order = append(g.boundary.order, exported)

	outer := domain.Endpoint{Plug: exported}
	var (
		id  LinkID
		err error
	)
	if ip.dir == domain.Input {
		id, err = g.Connect(outer, inner, false)
	} else {
		id, err = g.Connect(inner, outer, false)
	}
	if err != nil {
		g.dropExport(exported)
		return err
	}
	g.boundary.alias[exported] = id
	return nil
}

// Unexport removes an exported plug and every link attached to it.
func (g *Graph) Unexport(exported string) error {
	bp, ok := g.boundary.plugs[exported]
	if !ok {
		return &domain.DanglingReferenceError{Kind: "plug", Name: exported}
	}
	for _, id := range bp.Links() {
		g.removeLink(id)
	}
	g.dropExport(exported)
	return nil
}

func (g *Graph) dropExport(name string) {
	if _, ok := g.boundary.plugs[name]; !ok {
		return
	}
	delete(g.boundary.plugs, name)
	delete(g.boundary.alias, name)
	g.boundary.order = remove(g.boundary.order, name)
	g.touch()
}

// refreshExports derives the optionality of exported plugs from the plugs
// they alias, so it does not depend on the order of exports and values. An
// exported input is optional when it has a value of its own or every input
// it feeds is optional.
func (g *Graph) refreshExports() {
	for _, name := range g.boundary.order {
		bp := g.boundary.plugs[name]
		switch {
		case bp.hasValue:
			bp.optional = true
		case bp.dir == domain.Output:
			if ip, ok := g.plugAt(g.exportTarget(name)); ok {
				bp.optional = ip.optional
			}
		default:
			fed, optional := false, true
			for _, id := range bp.links {
				if dp, ok := g.plugAt(g.links[id].dst); ok {
					fed = true
					optional = optional && dp.optional
				}
			}
			if fed {
				bp.optional = optional
			}
		}
	}
}

// syncPipelines brings nested pipeline nodes in line with their nested
// graphs, innermost first, so that a dropped export reaches every enclosing
// graph.
func (g *Graph) syncPipelines() {
	for _, name := range g.order {
		if pn, ok := g.nodes[name].(*PipelineNode); ok {
			pn.inner.syncPipelines()
			pn.sync(g)
		}
	}
	g.refreshExports()
}

// exportTarget returns the inner endpoint an exported name aliases.
func (g *Graph) exportTarget(name string) domain.Endpoint {
	l, ok := g.links[g.boundary.alias[name]]
	if !ok {
		return domain.Endpoint{}
	}
	if l.src.IsBoundary() {
		return l.dst
	}
	return l.src
}

// IsExportAlias reports whether a link is the one binding an exported name.
func (g *Graph) IsExportAlias(id LinkID) bool {
	for _, alias := range g.boundary.alias {
		if alias == id {
			return true
		}
	}
	return false
}

// Exported returns the boundary plug with the given name.
func (g *Graph) Exported(name string) (*Plug, bool) {
	p, ok := g.boundary.plugs[name]
	return p, ok
}

// SetValue assigns a value to an input plug. The plug becomes optional, as a
// declared value satisfies it. A nil value clears the value.
func (g *Graph) SetValue(ref string, value any) error {
	raw, err := schema.FormatValue(value)
	if err != nil {
		return err
	}
	return g.assign(domain.ParseEndpoint(ref), value, raw)
}

// Override applies a textual override to node's parameter.
func (g *Graph) Override(node string, o domain.Override) error {
	v, err := schema.ParseValue(o.Raw)
	if err != nil {
		return &schema.ValidationError{Key: node + "." + o.Name, Reason: err.Error(), Value: o.Raw}
	}
	return g.assign(domain.Endpoint{Node: node, Plug: o.Name}, v, o.Raw)
}

func (g *Graph) assign(ep domain.Endpoint, value any, raw string) error {
	p, ok := g.plugAt(ep)
	if !ok {
		return &domain.DanglingReferenceError{Kind: "plug", Name: ep.String()}
	}
	if value != nil {
		t, err := schema.ParseType(p.typeTag)
		if err != nil {
			return err
		}
		if err := t.Validate(value); err != nil {
			return &schema.ValidationError{Key: ep.String(), Reason: err.Error(), Value: value}
		}
	}
	p.value, p.hasValue, p.raw = value, true, raw
	p.optional = true
	g.touch()
	return nil
}

// SetAdapter attaches an adapter directive to a plug of a process node.
func (g *Graph) SetAdapter(node string, a domain.PlugAdapter) error {
	n, ok := g.nodes[node]
	if !ok {
		return &domain.DanglingReferenceError{Kind: "node", Name: node}
	}
	var pn *ProcessNode
	switch v := n.(type) {
	case *ProcessNode:
		pn = v
	case *IterationNode:
		pn = &v.ProcessNode
	default:
		return fmt.Errorf("%w: adapter on %s node %q", domain.ErrUnsupportedDeclaration, n.Kind(), node)
	}
	if _, ok := pn.plugs[a.Plug]; !ok {
		return &domain.DanglingReferenceError{Kind: "plug", Name: node + "." + a.Plug}
	}
	for i, existing := range pn.adapters {
		if existing.Plug == a.Plug {
			pn.adapters[i] = a
			return nil
		}
	}
	pn.adapters = append(pn.adapters, a)
	return nil
}
