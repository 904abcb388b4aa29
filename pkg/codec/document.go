package codec

import (
	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/graph"
)

// Version is the only document version this package reads and writes.
const Version = "2.0"

// Document is a declarative pipeline description.
type Document struct {
	Name    string
	Doc     string
	Version string
	Entries []Entry
}

// Entry is one declaration of a document. The set of entry kinds is closed.
type Entry interface {
	isEntry()
}

// ProcessEntry declares a node resolved from the catalog.
type ProcessEntry struct {
	Name     string
	Module   string
	Sets     []domain.Override
	Iterate  []string
	Adapters []domain.PlugAdapter
}

// SwitchEntry declares a switch node.
type SwitchEntry struct {
	Name         string
	Alternatives []string
	Outputs      []string
	Optional     bool
	Selected     string
}

// LinkEntry declares a link. Either side may be a bare exported name.
type LinkEntry struct {
	Source string
	Dest   string
	Weak   bool
}

// SelectionEntry declares a processes selection parameter.
type SelectionEntry struct {
	Param    string
	Groups   []graph.Group
	Selected string
}

// PipelineEntry declares a nested pipeline inline.
type PipelineEntry struct {
	Name     string
	Pipeline *Document
}

// GUIEntry carries layout metadata.
type GUIEntry struct {
	Positions []graph.NamedPosition
	Zoom      *float64
}

func (ProcessEntry) isEntry()   {}
func (SwitchEntry) isEntry()    {}
func (LinkEntry) isEntry()      {}
func (SelectionEntry) isEntry() {}
func (PipelineEntry) isEntry()  {}
func (GUIEntry) isEntry()       {}

func checkVersion(found string) error {
	if found != Version {
		return &domain.UnsupportedVersionError{Found: found, Supported: Version}
	}
	return nil
}
