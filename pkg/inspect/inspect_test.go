package inspect_test

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/graph"
	"github.com/aretw0/pipegraph/pkg/inspect"
)

func record() *graph.Record {
	return &graph.Record{Pipeline: "pid", Steps: []domain.Transition{
		{Pass: 0, Node: "A", Activated: true},
		{Pass: 0, Node: "A", Plug: "y", Activated: true},
		{Pass: 1, Plug: "out", Activated: true},
		{Pass: 2, Node: "A", Plug: "y"},
	}}
}

func TestInspector_Steps(t *testing.T) {
	in := inspect.New(record())

	require.Equal(t, 4, in.Len())
	assert.Equal(t, "+ A", in.Label(0))
	assert.Equal(t, "+ :out", in.Label(2))
	assert.Equal(t, "- A:y", in.Label(3))

	assert.Equal(t, map[string]bool{"A": true}, in.State(0))
	assert.Equal(t, map[string]bool{"A": true, "A:y": true, ":out": true}, in.State(2))
	assert.Equal(t, map[string]bool{"A": true, ":out": true}, in.Final())
	assert.Equal(t, "pid", in.Pipeline())
}

func TestInspector_Search(t *testing.T) {
	in := inspect.New(record())
	plug := regexp.MustCompile(`A:y`)

	i, ok := in.FindNext(plug, -1)
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	i, ok = in.FindNext(plug, i)
	assert.True(t, ok)
	assert.Equal(t, 3, i)
	_, ok = in.FindNext(plug, i)
	assert.False(t, ok)

	i, ok = in.FindPrevious(regexp.MustCompile(`^\+`), in.Len())
	assert.True(t, ok)
	assert.Equal(t, 2, i)
	i, ok = in.FindPrevious(regexp.MustCompile(`^\+ A$`), 1)
	assert.True(t, ok, "the first step is searchable")
	assert.Equal(t, 0, i)
	_, ok = in.FindPrevious(plug, 1)
	assert.False(t, ok)

	assert.Equal(t, []int{3}, in.Filter(regexp.MustCompile(`^-`)))
}

func TestOpen_ChecksPipeline(t *testing.T) {
	var buf bytes.Buffer
	_, err := record().WriteTo(&buf)
	require.NoError(t, err)
	data := buf.Bytes()

	in, err := inspect.Open(bytes.NewReader(data), graph.New("p", graph.WithID("pid")))
	require.NoError(t, err)
	assert.Equal(t, 4, in.Len())

	_, err = inspect.Open(bytes.NewReader(data), graph.New("p", graph.WithID("other")))
	var mismatch *inspect.PipelineMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "pid", mismatch.Recorded)
	assert.Equal(t, "other", mismatch.Pipeline)
}

func TestInspector_ReplaysRecorder(t *testing.T) {
	g := graph.New("p")
	rec := graph.NewRecorder(g)
	_, err := g.AddProcess("A", domain.ProcessSpec{Module: "m", Params: []domain.ParamSpec{{Name: "y", Output: true}}})
	require.NoError(t, err)
	_, err = g.AddProcess("B", domain.ProcessSpec{Module: "m", Params: []domain.ParamSpec{{Name: "x"}, {Name: "z", Output: true}}})
	require.NoError(t, err)
	_, err = g.AddLink("A.y", "B.x", false)
	require.NoError(t, err)
	require.NoError(t, g.Recompute())

	final := inspect.New(rec.Record()).Final()
	st, err := g.ActivationState()
	require.NoError(t, err)
	for name, ns := range st {
		if name == "" {
			continue
		}
		assert.Equal(t, ns.Activated, final[name], name)
		for plug, active := range ns.Plugs {
			assert.Equal(t, active, final[inspect.Key(name, plug)], name+":"+plug)
		}
	}
	assert.True(t, final["B:z"])
}

func TestCheckFiles(t *testing.T) {
	g := graph.New("p")
	_, err := g.AddProcess("bet", domain.ProcessSpec{Module: "fsl.BET", Params: []domain.ParamSpec{
		{Name: "in_file", Type: "file"},
		{Name: "frac", Type: "float", Optional: true},
		{Name: "out_file", Type: "file", Output: true},
	}})
	require.NoError(t, err)
	_, err = g.AddProcess("merge", domain.ProcessSpec{Module: "afni.Merge", Params: []domain.ParamSpec{
		{Name: "in_files", Type: "[file]"},
	}})
	require.NoError(t, err)
	_, err = g.AddProcess("off", domain.ProcessSpec{Module: "fsl.BET", Params: []domain.ParamSpec{
		{Name: "in_file", Type: "file"},
	}})
	require.NoError(t, err)

	require.NoError(t, g.SetValue("bet.in_file", "/data/t1.nii"))
	require.NoError(t, g.SetValue("bet.out_file", "/data/brain.nii"))
	require.NoError(t, g.SetValue("bet.frac", 0.5))
	require.NoError(t, g.SetValue("merge.in_files", []any{"/data/a.nii", "/data/b.nii"}))
	require.NoError(t, g.SetValue("off.in_file", "/data/gone.nii"))
	require.NoError(t, g.SetNodeEnabled("off", false))

	present := map[string]bool{"/data/brain.nii": true, "/data/a.nii": true}
	report, err := inspect.CheckFiles(g, func(p string) bool { return present[p] })
	require.NoError(t, err)

	assert.False(t, report.OK())
	assert.Equal(t, []inspect.FileIssue{
		{Node: "bet", Param: "in_file", Path: "/data/t1.nii"},
		{Node: "merge", Param: "in_files", Path: "/data/b.nii"},
	}, report.Missing)
	assert.Equal(t, []inspect.FileIssue{
		{Node: "bet", Param: "out_file", Path: "/data/brain.nii"},
	}, report.Overwritten)
}
