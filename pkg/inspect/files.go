package inspect

import (
	"errors"
	"io/fs"
	"os"

	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/graph"
	"github.com/aretw0/pipegraph/pkg/schema"
)

// FileIssue is one file parameter that would block or damage a run.
type FileIssue struct {
	Node  string `json:"node"`
	Param string `json:"param"`
	Path  string `json:"path"`
}

// FileReport lists inputs whose files are missing and outputs whose files
// already exist.
type FileReport struct {
	Missing     []FileIssue `json:"missing"`
	Overwritten []FileIssue `json:"overwritten"`
}

// OK reports whether the check found nothing.
func (r *FileReport) OK() bool { return len(r.Missing) == 0 && len(r.Overwritten) == 0 }

// Exists reports whether path exists on the local filesystem.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// CheckFiles looks at the file-typed plugs with a value on every activated
// node of g, nested pipelines included. exists defaults to Exists.
func CheckFiles(g *graph.Graph, exists func(string) bool) (*FileReport, error) {
	if exists == nil {
		exists = Exists
	}
	// the activation must be current before it is read
	if _, err := g.ActivationState(); err != nil {
		return nil, err
	}
	r := &FileReport{}

	exports, err := g.ExportedPlugs()
	if err != nil {
		return nil, err
	}
	for _, e := range exports {
		if p, ok := g.Exported(e.Name); ok {
			r.check("", p, exists)
		}
	}
	r.walk(g, "", exists)
	return r, nil
}

func (r *FileReport) walk(g *graph.Graph, prefix string, exists func(string) bool) {
	for _, n := range g.Nodes() {
		if !n.Activated() {
			continue
		}
		full := prefix + n.Name()
		for _, p := range n.Plugs() {
			r.check(full, p, exists)
		}
		if pn, ok := n.(*graph.PipelineNode); ok {
			r.walk(pn.Inner(), full+".", exists)
		}
	}
}

func (r *FileReport) check(node string, p *graph.Plug, exists func(string) bool) {
	if !isFile(p.Type()) {
		return
	}
	// an output with a value is optional, so it may stay inactive on an active node
	if p.Direction() == domain.Input && !p.Activated() {
		return
	}
	v, ok := p.Value()
	if !ok {
		return
	}
	for _, path := range paths(v) {
		issue := FileIssue{Node: node, Param: p.Name(), Path: path}
		switch {
		case p.Direction() == domain.Input && !exists(path):
			r.Missing = append(r.Missing, issue)
		case p.Direction() == domain.Output && exists(path):
			r.Overwritten = append(r.Overwritten, issue)
		}
	}
}

func isFile(tag string) bool {
	t, err := schema.ParseType(tag)
	if err != nil {
		return false
	}
	if s, ok := t.(*schema.SliceType); ok {
		t = s.Elem()
	}
	_, ok := t.(*schema.FileType)
	return ok
}

func paths(v any) []string {
	switch v := v.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		var out []string
		for _, e := range v {
			out = append(out, paths(e)...)
		}
		return out
	}
	return nil
}
