package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/graph"
)

func spec(module string, inputs, outputs []string) domain.ProcessSpec {
	s := domain.ProcessSpec{Module: module}
	for _, in := range inputs {
		s.Params = append(s.Params, domain.ParamSpec{Name: in})
	}
	for _, out := range outputs {
		s.Params = append(s.Params, domain.ParamSpec{Name: out, Output: true})
	}
	return s
}

func state(t *testing.T, g *graph.Graph) map[string]graph.NodeState {
	t.Helper()
	st, err := g.ActivationState()
	require.NoError(t, err)
	return st
}

func TestRemovingLinkDeactivatesConsumer(t *testing.T) {
	g := graph.New("p")
	_, err := g.AddProcess("A", spec("mod.A", nil, []string{"x"}))
	require.NoError(t, err)
	_, err = g.AddProcess("B", spec("mod.B", []string{"y"}, nil))
	require.NoError(t, err)
	id, err := g.AddLink("A.x", "B.y", false)
	require.NoError(t, err)

	st := state(t, g)
	assert.True(t, st["A"].Activated)
	assert.True(t, st["B"].Activated)

	require.NoError(t, g.RemoveLink(id))
	st = state(t, g)
	assert.False(t, st["B"].Plugs["y"])
	assert.False(t, st["B"].Activated)
	assert.True(t, st["A"].Activated)
	assert.True(t, st["A"].Plugs["x"], "outputs do not need consumers")
}

func TestDuplicateLinkIsRejected(t *testing.T) {
	g := graph.New("p")
	_, _ = g.AddProcess("A", spec("m", nil, []string{"x"}))
	_, _ = g.AddProcess("B", spec("m", []string{"y"}, nil))

	_, err := g.AddLink("A.x", "B.y", false)
	require.NoError(t, err)
	_, err = g.AddLink("A.x", "B.y", false)
	assert.ErrorIs(t, err, domain.ErrInvalidLink)

	_, err = g.AddLink("A.x", "B.y", true)
	assert.NoError(t, err, "a parallel link differing in weakness is allowed")
}

func TestLinkValidation(t *testing.T) {
	g := graph.New("p")
	_, _ = g.AddProcess("A", spec("m", []string{"in"}, []string{"x"}))
	_, _ = g.AddProcess("B", spec("m", []string{"y"}, []string{"z"}))
	_, _ = g.AddProcess("C", spec("m", nil, []string{"w"}))

	tests := []struct {
		name     string
		src, dst string
		target   error
	}{
		{"unknown node", "Z.x", "B.y", domain.ErrDanglingReference},
		{"unknown plug", "A.nope", "B.y", domain.ErrDanglingReference},
		{"input as source", "A.in", "B.y", domain.ErrInvalidLink},
		{"output as destination", "A.x", "B.z", domain.ErrInvalidLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.AddLink(tt.src, tt.dst, false)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	_, err := g.AddLink("A.x", "B.y", false)
	require.NoError(t, err)
	_, err = g.AddLink("C.w", "B.y", false)
	var multi *domain.MultipleSourcesError
	require.ErrorAs(t, err, &multi)
	assert.Equal(t, "A.x", multi.Existing.String())

	_, err = g.AddLink("C.w", "B.y", true)
	assert.NoError(t, err, "weak links may join a fed input")
}

func TestSwitchRoutesSelectedAlternative(t *testing.T) {
	g := graph.New("p")
	_, _ = g.AddProcess("C", spec("m", nil, []string{"out"}))
	_, _ = g.AddProcess("D", spec("m", nil, []string{"out"}))
	_, err := g.AddSwitch("S", domain.SwitchSpec{Alternatives: []string{"alt1", "alt2"}, Outputs: []string{"o"}})
	require.NoError(t, err)
	fromC, err := g.AddLink("C.out", "S.alt1_switch_o", false)
	require.NoError(t, err)
	fromD, err := g.AddLink("D.out", "S.alt2_switch_o", false)
	require.NoError(t, err)

	require.NoError(t, g.SetSwitchSelection("S", "alt1"))
	st := state(t, g)
	assert.True(t, st["S"].Activated)
	assert.True(t, st["S"].Plugs["o"])
	assert.True(t, st["S"].Plugs["alt1_switch_o"])
	assert.False(t, st["S"].Plugs["alt2_switch_o"])

	lc, _ := g.Link(fromC)
	ld, _ := g.Link(fromD)
	assert.True(t, lc.Activated())
	assert.False(t, ld.Live())
	assert.False(t, ld.Activated())

	require.NoError(t, g.SetSwitchSelection("S", "alt2"))
	assert.False(t, lc.Live())
	assert.True(t, ld.Activated())

	err = g.SetSwitchSelection("S", "alt3")
	var unknown *domain.UnknownAlternativeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []string{"alt1", "alt2"}, unknown.Declared)

	assert.ErrorIs(t, g.SetSwitchSelection("S", graph.NoSelection), domain.ErrUnknownAlternative)
}

func TestSwitchOutputFollowsSelectedSource(t *testing.T) {
	g := graph.New("p")
	_, _ = g.AddProcess("C", spec("m", nil, []string{"out"}))
	_, _ = g.AddProcess("D", spec("m", []string{"missing"}, []string{"out"}))
	_, _ = g.AddSwitch("S", domain.SwitchSpec{Alternatives: []string{"c", "d"}, Outputs: []string{"o"}})
	_, _ = g.AddProcess("E", spec("m", []string{"in"}, nil))
	_, _ = g.AddLink("C.out", "S.c_switch_o", false)
	_, _ = g.AddLink("D.out", "S.d_switch_o", false)
	_, _ = g.AddLink("S.o", "E.in", false)

	st := state(t, g)
	assert.True(t, st["E"].Activated)

	require.NoError(t, g.SetSwitchSelection("S", "d"))
	st = state(t, g)
	assert.False(t, st["D"].Activated)
	assert.False(t, st["S"].Activated)
	assert.False(t, st["E"].Activated)
}

func TestOptionalSwitchWithoutSelection(t *testing.T) {
	g := graph.New("p")
	_, _ = g.AddProcess("C", spec("m", nil, []string{"out"}))
	s, err := g.AddSwitch("S", domain.SwitchSpec{Alternatives: []string{"a"}, Outputs: []string{"o", "p"}, Optional: true})
	require.NoError(t, err)
	assert.Equal(t, domain.KindOptionalSwitch, s.Kind())
	assert.Equal(t, graph.NoSelection, s.Selected())
	_, _ = g.AddLink("C.out", "S.a_switch_o", false)
	_, _ = g.AddLink("C.out", "S.a_switch_p", false)

	st := state(t, g)
	assert.False(t, st["S"].Activated)

	require.NoError(t, g.SetSwitchSelection("S", "a"))
	assert.True(t, state(t, g)["S"].Plugs["p"])

	require.NoError(t, g.SetSwitchSelection("S", graph.NoSelection))
	st = state(t, g)
	assert.False(t, st["S"].Activated)
	assert.False(t, st["S"].Plugs["o"])
	assert.False(t, st["S"].Plugs["p"])
	assert.True(t, st["C"].Activated)
}

func TestIterationOverSequence(t *testing.T) {
	g := graph.New("p")
	ps := domain.ProcessSpec{Module: "m", Params: []domain.ParamSpec{
		{Name: "n", Type: "int"},
		{Name: "out", Output: true},
	}}
	it, err := g.AddIteration("P", ps, []string{"n"})
	require.NoError(t, err)
	p, _ := it.Plug("n")
	assert.Equal(t, "[int]", p.Type())

	require.NoError(t, g.SetValue("P.n", []any{1, 2, 3}))
	assert.Equal(t, 3, it.Size())
	assert.True(t, state(t, g)["P"].Activated)

	require.NoError(t, g.SetValue("P.n", []any{}))
	assert.Equal(t, 0, it.Size())
	assert.False(t, state(t, g)["P"].Activated)

	err = g.SetValue("P.n", []any{"a"})
	assert.Error(t, err)

	_, err = g.AddIteration("Q", ps, []string{"nope"})
	assert.ErrorIs(t, err, domain.ErrDanglingReference)
}

func TestIterativeInputsAcceptFanIn(t *testing.T) {
	g := graph.New("p")
	_, _ = g.AddProcess("A", spec("m", nil, []string{"x"}))
	_, _ = g.AddProcess("B", spec("m", nil, []string{"x"}))
	it, _ := g.AddIteration("I", spec("m", []string{"n"}, nil), []string{"n"})
	_, err := g.AddLink("A.x", "I.n", false)
	require.NoError(t, err)
	_, err = g.AddLink("B.x", "I.n", false)
	require.NoError(t, err)
	assert.Equal(t, -1, it.Size())
	assert.True(t, state(t, g)["I"].Activated)
}

func TestExport(t *testing.T) {
	g := graph.New("p")
	_, _ = g.AddProcess("A", spec("m", []string{"x"}, []string{"y"}))
	_, _ = g.AddProcess("B", spec("m", []string{"x"}, nil))

	require.NoError(t, g.Export("A", "x", "inp"))
	require.NoError(t, g.Export("A", "x", "inp"), "same mapping is a no-op")
	require.NoError(t, g.Export("A", "y", ""))

	err := g.Export("B", "x", "inp")
	var conflict *domain.ConflictingExportError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "A.x", conflict.Existing.String())

	exports, err := g.ExportedPlugs()
	require.NoError(t, err)
	require.Len(t, exports, 2)
	assert.Equal(t, "inp", exports[0].Name)
	assert.Equal(t, "input", exports[0].Direction)
	assert.Equal(t, "A.x", exports[0].Target)
	assert.Equal(t, "y", exports[1].Name)
	assert.True(t, exports[1].Activated)

	// a second consumer of an exported input is a plain link
	_, err = g.AddLink("inp", "B.x", false)
	require.NoError(t, err)
	links, _ := g.ListLinks()
	assert.Len(t, links, 3)

	require.NoError(t, g.RemoveNode("A"))
	exports, _ = g.ExportedPlugs()
	require.Len(t, exports, 1)
	assert.Equal(t, "B.x", exports[0].Target, "the export rebinds to its remaining link")
}

func TestWeakLinkNeverActivates(t *testing.T) {
	g := graph.New("p")
	_, _ = g.AddProcess("A", spec("m", nil, []string{"x"}))
	_, _ = g.AddProcess("B", spec("m", []string{"y"}, nil))
	_, _ = g.AddProcess("C", spec("m", nil, []string{"z"}))
	weak, err := g.AddLink("A.x", "B.y", true)
	require.NoError(t, err)

	st := state(t, g)
	assert.False(t, st["B"].Activated, "a weak link alone does not satisfy a required input")
	l, _ := g.Link(weak)
	assert.False(t, l.Activated())

	_, err = g.AddLink("C.z", "B.y", false)
	require.NoError(t, err)
	st = state(t, g)
	assert.True(t, st["B"].Activated)
	assert.True(t, l.Live(), "weak link passes value once both sides are active")
	assert.True(t, l.Activated())
}

func TestTransitiveDeactivation(t *testing.T) {
	g := graph.New("p")
	// inserted out of dependency order on purpose
	_, _ = g.AddProcess("D", spec("m", []string{"in"}, nil))
	_, _ = g.AddProcess("C", spec("m", []string{"in"}, []string{"out"}))
	_, _ = g.AddProcess("B", spec("m", []string{"in"}, []string{"out"}))
	_, _ = g.AddProcess("A", spec("m", nil, []string{"out"}))
	_, _ = g.AddProcess("Other", spec("m", nil, []string{"out"}))
	_, _ = g.AddLink("C.out", "D.in", false)
	_, _ = g.AddLink("B.out", "C.in", false)
	in, _ := g.AddLink("A.out", "B.in", false)

	st := state(t, g)
	for _, n := range []string{"A", "B", "C", "D"} {
		assert.True(t, st[n].Activated, n)
	}

	require.NoError(t, g.RemoveLink(in))
	st = state(t, g)
	for _, n := range []string{"B", "C", "D"} {
		assert.False(t, st[n].Activated, n)
	}
	assert.True(t, st["A"].Activated)
	assert.True(t, st["Other"].Activated)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	var transitions []domain.Transition
	g := graph.New("p", graph.WithHooks(domain.ActivationHooks{
		OnTransition: func(tr domain.Transition) { transitions = append(transitions, tr) },
	}))
	_, _ = g.AddProcess("A", spec("m", nil, []string{"x"}))
	_, _ = g.AddProcess("B", spec("m", []string{"y"}, nil))
	_, _ = g.AddLink("A.x", "B.y", true)

	require.NoError(t, g.Recompute())
	first := state(t, g)
	assert.NotEmpty(t, transitions)

	transitions = nil
	require.NoError(t, g.Recompute())
	assert.Equal(t, first, state(t, g))
	assert.Empty(t, transitions)
}

func TestLinkActivationImpliesEndpoints(t *testing.T) {
	g := graph.New("p")
	_, _ = g.AddProcess("A", spec("m", nil, []string{"x"}))
	_, _ = g.AddProcess("B", spec("m", []string{"y", "missing"}, []string{"z"}))
	_, _ = g.AddProcess("C", spec("m", []string{"w"}, nil))
	_, _ = g.AddSwitch("S", domain.SwitchSpec{Alternatives: []string{"a", "b"}, Outputs: []string{"o"}})
	_, _ = g.AddLink("A.x", "B.y", false)
	_, _ = g.AddLink("B.z", "C.w", false)
	_, _ = g.AddLink("A.x", "C.w", true)
	_, _ = g.AddLink("A.x", "S.a_switch_o", false)
	_, _ = g.AddLink("B.z", "S.b_switch_o", false)

	links, err := g.ListLinks()
	require.NoError(t, err)
	st := state(t, g)
	plug := func(ref string) bool {
		ep := domain.ParseEndpoint(ref)
		return st[ep.Node].Plugs[ep.Plug]
	}
	for _, l := range links {
		if l.Activated {
			assert.True(t, plug(l.Source), l.Source)
			assert.True(t, plug(l.Dest), l.Dest)
		}
	}
}

func TestPipelineNode(t *testing.T) {
	inner := graph.New("inner")
	_, _ = inner.AddProcess("A", spec("m", []string{"x"}, []string{"y"}))
	require.NoError(t, inner.Export("A", "x", "in"))
	require.NoError(t, inner.Export("A", "y", "out"))

	g := graph.New("outer")
	_, _ = g.AddProcess("Src", spec("m", nil, []string{"o"}))
	_, err := g.AddPipeline("P", "", inner)
	require.NoError(t, err)
	_, _ = g.AddProcess("Sink", spec("m", []string{"i"}, nil))
	feed, err := g.AddLink("Src.o", "P.in", false)
	require.NoError(t, err)
	_, err = g.AddLink("P.out", "Sink.i", false)
	require.NoError(t, err)

	st := state(t, g)
	assert.True(t, st["P"].Activated)
	assert.True(t, st["P"].Children["A"].Activated)
	assert.True(t, st["Sink"].Activated)

	require.NoError(t, g.RemoveLink(feed))
	st = state(t, g)
	assert.False(t, st["P"].Activated)
	assert.False(t, st["P"].Children["A"].Activated)
	assert.False(t, st["Sink"].Activated)
}

func TestNestedEditsAreSeenByParent(t *testing.T) {
	inner := graph.New("inner")
	_, _ = inner.AddProcess("A", spec("m", nil, []string{"y"}))
	require.NoError(t, inner.Export("A", "y", "out"))
	g := graph.New("outer")
	pn, _ := g.AddPipeline("P", "", inner)

	assert.True(t, state(t, g)["P"].Activated)
	require.NoError(t, pn.Inner().SetNodeEnabled("A", false))
	assert.False(t, state(t, g)["P"].Activated)
}

func nestedWithExport(t *testing.T) (*graph.Graph, *graph.PipelineNode) {
	t.Helper()
	inner := graph.New("inner")
	_, _ = inner.AddProcess("A", spec("m", nil, []string{"y"}))
	require.NoError(t, inner.Export("A", "y", "out"))
	g := graph.New("outer")
	pn, err := g.AddPipeline("P", "", inner)
	require.NoError(t, err)
	_, _ = g.AddProcess("Sink", spec("m", []string{"i"}, nil))
	_, err = g.AddLink("P.out", "Sink.i", false)
	require.NoError(t, err)
	require.NoError(t, g.Export("P", "out", "res"))
	st := state(t, g)
	require.True(t, st["Sink"].Activated)
	return g, pn
}

func TestNestedExportRemoval(t *testing.T) {
	edits := map[string]func(*graph.Graph) error{
		"remove node": func(inner *graph.Graph) error { return inner.RemoveNode("A") },
		"unexport":    func(inner *graph.Graph) error { return inner.Unexport("out") },
	}
	for name, edit := range edits {
		t.Run(name, func(t *testing.T) {
			g, pn := nestedWithExport(t)
			require.NoError(t, edit(pn.Inner()))

			st := state(t, g)
			_, ok := pn.Plug("out")
			assert.False(t, ok)
			assert.NotContains(t, st["P"].Plugs, "out")
			assert.Empty(t, g.Links())
			_, ok = g.Exported("res")
			assert.False(t, ok)
			assert.False(t, st["Sink"].Activated)
		})
	}
}

func TestNestedExportRemovalTwoLevelsDeep(t *testing.T) {
	leaf := graph.New("leaf")
	_, _ = leaf.AddProcess("A", spec("m", nil, []string{"y"}))
	require.NoError(t, leaf.Export("A", "y", "out"))
	mid := graph.New("mid")
	_, err := mid.AddPipeline("L", "", leaf)
	require.NoError(t, err)
	require.NoError(t, mid.Export("L", "out", "out"))
	g := graph.New("outer")
	pm, err := g.AddPipeline("M", "", mid)
	require.NoError(t, err)
	_, _ = g.AddProcess("Sink", spec("m", []string{"i"}, nil))
	_, err = g.AddLink("M.out", "Sink.i", false)
	require.NoError(t, err)
	require.True(t, state(t, g)["Sink"].Activated)

	require.NoError(t, leaf.RemoveNode("A"))
	st := state(t, g)
	_, ok := pm.Plug("out")
	assert.False(t, ok)
	assert.Empty(t, g.Links())
	assert.False(t, st["Sink"].Activated)
}

func TestNestedExportAddedLater(t *testing.T) {
	g, pn := nestedWithExport(t)
	_, _ = pn.Inner().AddProcess("B", spec("m", nil, []string{"z"}))
	require.NoError(t, pn.Inner().Export("B", "z", "extra"))

	st := state(t, g)
	p, ok := pn.Plug("extra")
	require.True(t, ok)
	assert.Equal(t, domain.Output, p.Direction())
	assert.True(t, st["P"].Plugs["extra"])

	_, _ = g.AddProcess("Sink2", spec("m", []string{"i"}, nil))
	_, err := g.AddLink("P.extra", "Sink2.i", false)
	require.NoError(t, err)
	assert.True(t, state(t, g)["Sink2"].Activated)
}

func TestExportOptionalityIgnoresOrderOfValueAndExport(t *testing.T) {
	build := func(setFirst bool) *graph.Graph {
		inner := graph.New("inner")
		_, _ = inner.AddProcess("A", spec("m", []string{"x"}, []string{"y"}))
		if setFirst {
			require.NoError(t, inner.SetValue("A.x", "v"))
		}
		require.NoError(t, inner.Export("A", "x", "in"))
		if !setFirst {
			require.NoError(t, inner.SetValue("A.x", "v"))
		}
		require.NoError(t, inner.Export("A", "y", "out"))
		g := graph.New("outer")
		_, err := g.AddPipeline("P", "", inner)
		require.NoError(t, err)
		return g
	}
	before, after := build(true), build(false)
	assert.True(t, state(t, before)["P"].Activated)
	assert.True(t, state(t, after)["P"].Activated)
	assert.Equal(t, state(t, before), state(t, after))

	a, _ := before.Node("P")
	b, _ := after.Node("P")
	pa, _ := a.Plug("in")
	pb, _ := b.Plug("in")
	assert.True(t, pa.Optional())
	assert.Equal(t, pa.Optional(), pb.Optional())
}

func TestOptionalOutputNeedsLiveLink(t *testing.T) {
	g := graph.New("p")
	_, _ = g.AddProcess("A", domain.ProcessSpec{Module: "m", Params: []domain.ParamSpec{
		{Name: "o", Output: true, Optional: true},
	}})
	_, _ = g.AddProcess("B", spec("m", []string{"i"}, nil))

	st := state(t, g)
	assert.True(t, st["A"].Activated)
	assert.False(t, st["A"].Plugs["o"])

	id, err := g.AddLink("A.o", "B.i", false)
	require.NoError(t, err)
	st = state(t, g)
	assert.True(t, st["A"].Plugs["o"])
	assert.True(t, st["B"].Activated)

	require.NoError(t, g.RemoveLink(id))
	st = state(t, g)
	assert.True(t, st["A"].Activated)
	assert.False(t, st["A"].Plugs["o"])
	assert.False(t, st["B"].Activated)
}

func TestOnlyOptionalInputUnlinked(t *testing.T) {
	g := graph.New("p")
	_, _ = g.AddProcess("A", domain.ProcessSpec{Module: "m", Params: []domain.ParamSpec{
		{Name: "i", Optional: true},
		{Name: "o", Output: true},
	}})
	st := state(t, g)
	assert.True(t, st["A"].Activated)
	assert.True(t, st["A"].Plugs["i"])
	assert.True(t, st["A"].Plugs["o"])
}

func TestSelectionGroups(t *testing.T) {
	g := graph.New("p")
	_, _ = g.AddProcess("A", spec("m", nil, nil))
	_, _ = g.AddProcess("B", spec("m", nil, nil))
	_, _ = g.AddProcess("C", spec("m", nil, nil))

	require.NoError(t, g.DeclareSelectionGroup("method", []graph.Group{
		{Name: "fast", Nodes: []string{"A"}},
		{Name: "slow", Nodes: []string{"B"}},
	}))
	st := state(t, g)
	assert.True(t, st["A"].Activated)
	assert.False(t, st["B"].Activated)
	assert.True(t, st["C"].Activated)

	require.NoError(t, g.SelectGroup("method", "slow"))
	st = state(t, g)
	assert.False(t, st["A"].Activated)
	assert.True(t, st["B"].Activated)

	assert.ErrorIs(t, g.SelectGroup("method", "medium"), domain.ErrUnknownAlternative)
	assert.ErrorIs(t, g.SelectGroup("other", "fast"), domain.ErrDanglingReference)
	assert.ErrorIs(t, g.DeclareSelectionGroup("method", []graph.Group{{Name: "x"}}), domain.ErrDuplicateName)
	assert.ErrorIs(t, g.DeclareSelectionGroup("m2", []graph.Group{{Name: "x", Nodes: []string{"Z"}}}), domain.ErrDanglingReference)

	sels := g.SelectionGroups()
	require.Len(t, sels, 1)
	assert.Equal(t, "slow", sels[0].Selected)
}

func TestRemoveNodeCascades(t *testing.T) {
	g := graph.New("p")
	_, _ = g.AddProcess("A", spec("m", nil, []string{"x"}))
	_, _ = g.AddProcess("B", spec("m", []string{"y"}, nil))
	_, _ = g.AddLink("A.x", "B.y", false)
	require.NoError(t, g.SetNodePosition("A", 1, 2))
	require.NoError(t, g.DeclareSelectionGroup("sel", []graph.Group{{Name: "g", Nodes: []string{"A", "B"}}}))

	require.NoError(t, g.RemoveNode("A"))
	links, _ := g.ListLinks()
	assert.Empty(t, links)
	assert.Empty(t, g.Positions())
	assert.Equal(t, []string{"B"}, g.SelectionGroups()[0].Groups[0].Nodes)
	assert.ErrorIs(t, g.RemoveNode("A"), domain.ErrDanglingReference)
}

func TestNamesAndLayout(t *testing.T) {
	g := graph.New("p")
	_, err := g.AddProcess("a.b", spec("m", nil, nil))
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	_, err = g.AddProcess(graph.InputsBox, spec("m", nil, nil))
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	_, err = g.AddProcess("A", spec("m", nil, nil))
	require.NoError(t, err)
	_, err = g.AddProcess("A", spec("m", nil, nil))
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	require.NoError(t, g.SetNodePosition(graph.InputsBox, 0, 0))
	require.NoError(t, g.SetNodePosition("A", 10.5, -3))
	assert.ErrorIs(t, g.SetNodePosition("nope", 0, 0), domain.ErrDanglingReference)
	g.SetZoom(1.25)
	zoom, ok := g.Zoom()
	assert.True(t, ok)
	assert.Equal(t, 1.25, zoom)
	assert.Equal(t, []graph.NamedPosition{
		{Name: graph.InputsBox},
		{Name: "A", Position: graph.Position{X: 10.5, Y: -3}},
	}, g.Positions())
}

func TestDisabledNode(t *testing.T) {
	g := graph.New("p")
	_, _ = g.AddProcess("A", spec("m", nil, []string{"x"}))
	_, _ = g.AddProcess("B", spec("m", []string{"y"}, nil))
	_, _ = g.AddLink("A.x", "B.y", false)
	require.NoError(t, g.SetNodeEnabled("A", false))
	st := state(t, g)
	assert.False(t, st["A"].Activated)
	assert.False(t, st["B"].Activated)
}

func TestDiffStates(t *testing.T) {
	before := map[string]graph.NodeState{
		"":  {Activated: true, Plugs: map[string]bool{"in": true}},
		"a": {Activated: true, Plugs: map[string]bool{"x": true}},
		"p": {Activated: true, Plugs: map[string]bool{}, Children: map[string]graph.NodeState{
			"b": {Activated: true, Plugs: map[string]bool{}},
		}},
	}
	after := map[string]graph.NodeState{
		"":  {Activated: true, Plugs: map[string]bool{"in": true}},
		"a": {Activated: false, Plugs: map[string]bool{"x": false}},
		"p": {Activated: true, Plugs: map[string]bool{}, Children: map[string]graph.NodeState{
			"b": {Activated: false, Plugs: map[string]bool{}},
		}},
		"c": {Activated: true, Plugs: map[string]bool{}},
	}
	assert.Equal(t, []domain.Transition{
		{Node: "a", Activated: false},
		{Node: "a", Plug: "x", Activated: false},
		{Node: "c", Activated: true},
		{Node: "p.b", Activated: false},
	}, graph.DiffStates(before, after))
	assert.Empty(t, graph.DiffStates(after, after))
}
