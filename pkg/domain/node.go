package domain

// NodeKind identifies the variant of a node in a pipeline graph.
type NodeKind string

const (
	// KindProcess wraps a single computational unit.
	KindProcess NodeKind = "process"
	// KindPipeline owns a nested pipeline graph.
	KindPipeline NodeKind = "pipeline"
	// KindSwitch routes one of several alternatives to shared outputs.
	KindSwitch NodeKind = "switch"
	// KindOptionalSwitch is a switch that may have no alternative selected.
	KindOptionalSwitch NodeKind = "optional_switch"
	// KindIteration replicates a process over sequence-valued parameters.
	KindIteration NodeKind = "iteration"
)

// Direction is the polarity of a plug.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// ParamSpec declares one parameter of a process. Each parameter becomes a plug.
type ParamSpec struct {
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	Output   bool   `json:"output,omitempty" yaml:"output,omitempty" mapstructure:"output"`
	Optional bool   `json:"optional,omitempty" yaml:"optional,omitempty" mapstructure:"optional"`
	// Type is a value-type tag understood by pkg/schema ("int", "[string]", ...).
	// Empty means any value.
	Type string `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type"`
}

// Direction returns the plug polarity of the parameter.
func (p ParamSpec) Direction() Direction {
	if p.Output {
		return Output
	}
	return Input
}

// ProcessSpec is a catalog entry: the declared interface of a module.
//
// When Kind is KindPipeline, Document holds a nested declarative pipeline
// (in Format, "xml" or "yaml") and Params is ignored.
type ProcessSpec struct {
	Module   string      `json:"module" yaml:"module" mapstructure:"module"`
	Kind     NodeKind    `json:"kind,omitempty" yaml:"kind,omitempty" mapstructure:"kind"`
	Doc      string      `json:"doc,omitempty" yaml:"doc,omitempty" mapstructure:"doc"`
	Params   []ParamSpec `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
	Document string      `json:"document,omitempty" yaml:"document,omitempty" mapstructure:"document"`
	Format   string      `json:"format,omitempty" yaml:"format,omitempty" mapstructure:"format"`
}

// IsPipeline reports whether the spec describes a composite pipeline.
func (s ProcessSpec) IsPipeline() bool {
	return s.Kind == KindPipeline
}

// Param returns the parameter with the given name.
func (s ProcessSpec) Param(name string) (ParamSpec, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Override sets a parameter value at declaration time. Raw is kept verbatim so
// documents re-encode the way they were written.
type Override struct {
	Name string
	Raw  string
}

// CopyFile modes for PlugAdapter.
const (
	CopyFileTrue    = "true"
	CopyFileDiscard = "discard"
)

// PlugAdapter is a per-parameter directive for the external tool adapter.
// The graph carries it untouched.
type PlugAdapter struct {
	Plug       string
	UseDefault bool
	CopyFile   string
}

// SwitchSpec declares a switch node.
//
// Each alternative owns one input plug per output, named
// "<alternative>_switch_<output>".
type SwitchSpec struct {
	Alternatives []string
	Outputs      []string
	Optional     bool
	// Selected is the initial alternative. Empty selects the first alternative
	// for a plain switch and nothing for an optional one.
	Selected string
}

// SwitchInputName returns the name of the input plug routing alternative alt
// to output out.
func SwitchInputName(alt, out string) string {
	return alt + "_switch_" + out
}
