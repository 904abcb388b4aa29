package loam

import "github.com/aretw0/pipegraph/pkg/domain"

// ModuleMetadata is the frontmatter of a module declaration. The document
// body is the module documentation, or the pipeline document when Kind is
// "pipeline".
type ModuleMetadata struct {
	Module string          `json:"module" mapstructure:"module"`
	Kind   domain.NodeKind `json:"kind" mapstructure:"kind"`
	Params []ParamMetadata `json:"params" mapstructure:"params"`
	// Format of the embedded pipeline document ("xml" or "yaml").
	Format string `json:"format,omitempty" mapstructure:"format"`
	// Doc overrides the body as documentation of a pipeline module.
	Doc string `json:"doc,omitempty" mapstructure:"doc"`
}

// ParamMetadata declares one parameter of a module.
type ParamMetadata struct {
	Name     string `json:"name" mapstructure:"name"`
	Output   bool   `json:"output" mapstructure:"output"`
	Optional bool   `json:"optional" mapstructure:"optional"`
	Type     string `json:"type" mapstructure:"type"`
}

func (m ModuleMetadata) spec(id, content string) domain.ProcessSpec {
	s := domain.ProcessSpec{
		Module: m.Module,
		Kind:   m.Kind,
		Format: m.Format,
		Doc:    m.Doc,
	}
	if s.Module == "" {
		s.Module = id
	}
	if s.Kind == "" {
		s.Kind = domain.KindProcess
	}
	if s.IsPipeline() {
		s.Document = content
	} else if s.Doc == "" {
		s.Doc = content
	}
	for _, p := range m.Params {
		s.Params = append(s.Params, domain.ParamSpec{
			Name:     p.Name,
			Output:   p.Output,
			Optional: p.Optional,
			Type:     p.Type,
		})
	}
	return s
}
