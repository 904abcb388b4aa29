package codec

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/graph"
)

type yamlDoc struct {
	Version version     `yaml:"version"`
	Name    string      `yaml:"name"`
	Doc     string      `yaml:"doc,omitempty"`
	Entries []yamlEntry `yaml:"entries"`
}

// yamlEntry is a single-key mapping; exactly one field must be set.
type yamlEntry struct {
	Process            *yamlProcess   `yaml:"process,omitempty"`
	Switch             *yamlSwitch    `yaml:"switch,omitempty"`
	Link               *yamlLink      `yaml:"link,omitempty"`
	ProcessesSelection *yamlSelection `yaml:"processes_selection,omitempty"`
	Pipeline           *yamlPipeline  `yaml:"pipeline,omitempty"`
	GUI                *yamlGUI       `yaml:"gui,omitempty"`
}

type yamlProcess struct {
	Name    string       `yaml:"name"`
	Module  string       `yaml:"module"`
	Set     []yamlSet    `yaml:"set,omitempty"`
	Iterate []string     `yaml:"iterate,omitempty"`
	Nipype  []yamlNipype `yaml:"nipype,omitempty"`
}

type yamlSet struct {
	Name  string   `yaml:"name"`
	Value rawValue `yaml:"value"`
}

type yamlNipype struct {
	Name       string `yaml:"name"`
	UseDefault bool   `yaml:"usedefault,omitempty"`
	CopyFile   string `yaml:"copyfile,omitempty"`
}

type yamlSwitch struct {
	Name         string   `yaml:"name"`
	Optional     bool     `yaml:"optional,omitempty"`
	Selected     string   `yaml:"selected,omitempty"`
	Alternatives []string `yaml:"alternatives"`
	Outputs      []string `yaml:"outputs"`
}

type yamlLink struct {
	Source string `yaml:"source"`
	Dest   string `yaml:"dest"`
	Weak   bool   `yaml:"weak,omitempty"`
}

type yamlSelection struct {
	Name     string      `yaml:"name"`
	Selected string      `yaml:"selected,omitempty"`
	Groups   []yamlGroup `yaml:"groups"`
}

type yamlGroup struct {
	Name      string   `yaml:"name"`
	Processes []string `yaml:"processes"`
}

type yamlPipeline struct {
	Name    string      `yaml:"name"`
	Doc     string      `yaml:"doc,omitempty"`
	Entries []yamlEntry `yaml:"entries"`
}

type yamlGUI struct {
	Positions []yamlPosition `yaml:"positions,omitempty"`
	Zoom      *float64       `yaml:"zoom,omitempty"`
}

type yamlPosition struct {
	Name string  `yaml:"name"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
}

// version keeps the scalar text, so 2.0 is not read back as 2.
type version string

func (v *version) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: version must be a scalar (line %d)", domain.ErrUnsupportedDeclaration, node.Line)
	}
	*v = version(node.Value)
	return nil
}

func (v version) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: string(v)}, nil
}

// rawValue holds an override as flow text, the form the graph stores.
type rawValue string

func (r *rawValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) == 0 {
		if node.Tag == "!!null" {
			*r = "None"
			return nil
		}
		*r = rawValue(node.Value)
		return nil
	}
	if node.Kind == yaml.ScalarNode && node.Value == "" {
		*r = ""
		return nil
	}
	flow(node)
	out, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	*r = rawValue(strings.TrimSpace(string(out)))
	return nil
}

func (r rawValue) MarshalYAML() (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(r), &doc); err == nil && len(doc.Content) == 1 {
		n := doc.Content[0]
		flow(n)
		return n, nil
	}
	return string(r), nil
}

func flow(n *yaml.Node) {
	if n.Kind == yaml.SequenceNode || n.Kind == yaml.MappingNode {
		n.Style |= yaml.FlowStyle
	}
	for _, c := range n.Content {
		flow(c)
	}
}

// YAML reads and writes the YAML rendition of the pipeline format.
type YAML struct{}

func (YAML) Format() string { return "yaml" }

var unknownField = regexp.MustCompile(`line (\d+): field (\S+) not found in type codec\.(\w+)`)

var contexts = map[string]string{
	"yamlDoc":       "pipeline",
	"yamlEntry":     "entry",
	"yamlProcess":   "process",
	"yamlSet":       "set",
	"yamlNipype":    "nipype",
	"yamlSwitch":    "switch",
	"yamlLink":      "link",
	"yamlSelection": "processes_selection",
	"yamlGroup":     "processes_group",
	"yamlPipeline":  "pipeline",
	"yamlGUI":       "gui",
	"yamlPosition":  "position",
}

// Decode parses a YAML pipeline document. Unknown keys are rejected.
func (YAML) Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var y yamlDoc
	if err := dec.Decode(&y); err != nil {
		var te *yaml.TypeError
		if errors.As(err, &te) {
			for _, msg := range te.Errors {
				if m := unknownField.FindStringSubmatch(msg); m != nil {
					line, _ := strconv.Atoi(m[1])
					return nil, &domain.UnsupportedDeclarationError{Tag: m[2], Context: contexts[m[3]], Line: line}
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil, &domain.UnsupportedVersionError{Supported: Version}
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := checkVersion(string(y.Version)); err != nil {
		return nil, err
	}
	entries, err := fromYAML(y.Entries)
	if err != nil {
		return nil, err
	}
	return &Document{Name: y.Name, Doc: y.Doc, Version: string(y.Version), Entries: entries}, nil
}

func fromYAML(in []yamlEntry) ([]Entry, error) {
	out := make([]Entry, 0, len(in))
	for i, y := range in {
		var (
			kinds int
			entry Entry
		)
		if p := y.Process; p != nil {
			kinds++
			e := ProcessEntry{Name: p.Name, Module: p.Module, Iterate: p.Iterate}
			for _, s := range p.Set {
				e.Sets = append(e.Sets, domain.Override{Name: s.Name, Raw: string(s.Value)})
			}
			for _, n := range p.Nipype {
				e.Adapters = append(e.Adapters, domain.PlugAdapter{Plug: n.Name, UseDefault: n.UseDefault, CopyFile: n.CopyFile})
			}
			entry = e
		}
		if s := y.Switch; s != nil {
			kinds++
			entry = SwitchEntry{Name: s.Name, Alternatives: s.Alternatives, Outputs: s.Outputs, Optional: s.Optional, Selected: s.Selected}
		}
		if l := y.Link; l != nil {
			kinds++
			entry = LinkEntry{Source: l.Source, Dest: l.Dest, Weak: l.Weak}
		}
		if s := y.ProcessesSelection; s != nil {
			kinds++
			e := SelectionEntry{Param: s.Name, Selected: s.Selected}
			for _, g := range s.Groups {
				e.Groups = append(e.Groups, graph.Group{Name: g.Name, Nodes: g.Processes})
			}
			entry = e
		}
		if p := y.Pipeline; p != nil {
			kinds++
			inner, err := fromYAML(p.Entries)
			if err != nil {
				return nil, err
			}
			entry = PipelineEntry{Name: p.Name, Pipeline: &Document{Name: p.Name, Doc: p.Doc, Version: Version, Entries: inner}}
		}
		if g := y.GUI; g != nil {
			kinds++
			e := GUIEntry{Zoom: g.Zoom}
			for _, p := range g.Positions {
				e.Positions = append(e.Positions, graph.NamedPosition{Name: p.Name, Position: graph.Position{X: p.X, Y: p.Y}})
			}
			entry = e
		}
		if kinds != 1 {
			return nil, fmt.Errorf("%w: entry %d declares %d kinds, want exactly one", domain.ErrUnsupportedDeclaration, i, kinds)
		}
		out = append(out, entry)
	}
	return out, nil
}

// Encode writes doc as YAML.
func (YAML) Encode(w io.Writer, doc *Document) error {
	y := yamlDoc{Version: version(Version), Name: doc.Name, Doc: doc.Doc, Entries: toYAML(doc.Entries)}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&y); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func toYAML(in []Entry) []yamlEntry {
	out := make([]yamlEntry, 0, len(in))
	for _, e := range in {
		var y yamlEntry
		switch e := e.(type) {
		case ProcessEntry:
			p := &yamlProcess{Name: e.Name, Module: e.Module, Iterate: e.Iterate}
			for _, s := range e.Sets {
				p.Set = append(p.Set, yamlSet{Name: s.Name, Value: rawValue(s.Raw)})
			}
			for _, a := range e.Adapters {
				p.Nipype = append(p.Nipype, yamlNipype{Name: a.Plug, UseDefault: a.UseDefault, CopyFile: a.CopyFile})
			}
			y.Process = p
		case SwitchEntry:
			y.Switch = &yamlSwitch{Name: e.Name, Optional: e.Optional, Selected: e.Selected, Alternatives: e.Alternatives, Outputs: e.Outputs}
		case LinkEntry:
			y.Link = &yamlLink{Source: e.Source, Dest: e.Dest, Weak: e.Weak}
		case SelectionEntry:
			s := &yamlSelection{Name: e.Param, Selected: e.Selected}
			for _, g := range e.Groups {
				s.Groups = append(s.Groups, yamlGroup{Name: g.Name, Processes: g.Nodes})
			}
			y.ProcessesSelection = s
		case PipelineEntry:
			y.Pipeline = &yamlPipeline{Name: e.Name, Doc: e.Pipeline.Doc, Entries: toYAML(e.Pipeline.Entries)}
		case GUIEntry:
			g := &yamlGUI{Zoom: e.Zoom}
			for _, p := range e.Positions {
				g.Positions = append(g.Positions, yamlPosition{Name: p.Name, X: p.X, Y: p.Y})
			}
			y.GUI = g
		}
		out = append(out, y)
	}
	return out
}
