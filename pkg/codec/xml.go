package codec

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/graph"
)

// element is a generic XML element. Tags are dispatched by hand so that an
// unknown tag is reported instead of silently ignored.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",chardata"`
	Children []element  `xml:",any"`
}

func (e *element) attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (e *element) require(name string) (string, error) {
	v, ok := e.attr(name)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: <%s> requires attribute %q", domain.ErrUnsupportedDeclaration, e.XMLName.Local, name)
	}
	return v, nil
}

func (e *element) flag(name string) (bool, error) {
	v, ok := e.attr(name)
	if !ok || v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return false, fmt.Errorf("%w: <%s %s=%q> is not a boolean", domain.ErrUnsupportedDeclaration, e.XMLName.Local, name, v)
	}
	return b, nil
}

func (e *element) number(name string) (float64, error) {
	v, err := e.require(name)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: <%s %s=%q> is not a number", domain.ErrUnsupportedDeclaration, e.XMLName.Local, name, v)
	}
	return f, nil
}

func (e *element) set(name, value string) {
	e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

func (e *element) add(child element) {
	e.Children = append(e.Children, child)
}

func newElement(tag string, attrs ...string) element {
	e := element{XMLName: xml.Name{Local: tag}}
	for i := 0; i+1 < len(attrs); i += 2 {
		e.set(attrs[i], attrs[i+1])
	}
	return e
}

func unsupported(tag, context string) error {
	return &domain.UnsupportedDeclarationError{Tag: tag, Context: context}
}

// XML reads and writes the capsul_xml 2.0 dialect.
type XML struct{}

func (XML) Format() string { return "xml" }

// Decode parses an XML pipeline document.
func (XML) Decode(r io.Reader) (*Document, error) {
	var root element
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}
	if root.XMLName.Local != "pipeline" {
		return nil, unsupported(root.XMLName.Local, "document")
	}
	version, _ := root.attr("capsul_xml")
	if err := checkVersion(version); err != nil {
		return nil, err
	}
	return decodePipeline(&root, version)
}

func decodePipeline(root *element, version string) (*Document, error) {
	name, _ := root.attr("name")
	doc := &Document{Name: name, Version: version}
	doc.Doc, _ = root.attr("doc")

	for i := range root.Children {
		child := &root.Children[i]
		var (
			entry Entry
			err   error
		)
		switch child.XMLName.Local {
		case "doc":
			doc.Doc = strings.TrimSpace(child.Content)
			continue
		case "process":
			entry, err = decodeProcess(child)
		case "switch":
			entry, err = decodeSwitch(child)
		case "link":
			entry, err = decodeLink(child)
		case "processes_selection":
			entry, err = decodeSelection(child)
		case "pipeline":
			entry, err = decodeInline(child, version)
		case "gui":
			entry, err = decodeGUI(child)
		default:
			err = unsupported(child.XMLName.Local, "pipeline")
		}
		if err != nil {
			return nil, err
		}
		doc.Entries = append(doc.Entries, entry)
	}
	return doc, nil
}

func decodeProcess(e *element) (Entry, error) {
	var (
		p   ProcessEntry
		err error
	)
	if p.Name, err = e.require("name"); err != nil {
		return nil, err
	}
	if p.Module, err = e.require("module"); err != nil {
		return nil, err
	}
	for i := range e.Children {
		c := &e.Children[i]
		switch c.XMLName.Local {
		case "set", "iterate", "nipype":
		default:
			return nil, unsupported(c.XMLName.Local, "process")
		}
		name, err := c.require("name")
		if err != nil {
			return nil, err
		}
		switch c.XMLName.Local {
		case "set":
			value, _ := c.attr("value")
			p.Sets = append(p.Sets, domain.Override{Name: name, Raw: value})
		case "iterate":
			p.Iterate = append(p.Iterate, name)
		case "nipype":
			a := domain.PlugAdapter{Plug: name}
			// both spellings exist in the wild
			for _, attr := range []string{"usedefault", "use_default"} {
				v, err := c.flag(attr)
				if err != nil {
					return nil, err
				}
				a.UseDefault = a.UseDefault || v
			}
			switch cf, _ := c.attr("copyfile"); cf {
			case "", "false":
			case domain.CopyFileTrue, domain.CopyFileDiscard:
				a.CopyFile = cf
			default:
				return nil, fmt.Errorf("%w: <nipype copyfile=%q>", domain.ErrUnsupportedDeclaration, cf)
			}
			p.Adapters = append(p.Adapters, a)
		}
	}
	return p, nil
}

func decodeSwitch(e *element) (Entry, error) {
	var (
		s   SwitchEntry
		err error
	)
	if s.Name, err = e.require("name"); err != nil {
		return nil, err
	}
	if s.Optional, err = e.flag("optional"); err != nil {
		return nil, err
	}
	s.Selected, _ = e.attr("selected")
	for i := range e.Children {
		c := &e.Children[i]
		var list *[]string
		switch c.XMLName.Local {
		case "alternative":
			list = &s.Alternatives
		case "output":
			list = &s.Outputs
		default:
			return nil, unsupported(c.XMLName.Local, "switch")
		}
		name, err := c.require("name")
		if err != nil {
			return nil, err
		}
		*list = append(*list, name)
	}
	return s, nil
}

func decodeLink(e *element) (Entry, error) {
	var (
		l   LinkEntry
		err error
	)
	if l.Source, err = e.require("source"); err != nil {
		return nil, err
	}
	if l.Dest, err = e.require("dest"); err != nil {
		return nil, err
	}
	if l.Weak, err = e.flag("weak"); err != nil {
		return nil, err
	}
	if len(e.Children) > 0 {
		return nil, unsupported(e.Children[0].XMLName.Local, "link")
	}
	return l, nil
}

func decodeSelection(e *element) (Entry, error) {
	var (
		s   SelectionEntry
		err error
	)
	if s.Param, err = e.require("name"); err != nil {
		return nil, err
	}
	s.Selected, _ = e.attr("selected")
	for i := range e.Children {
		c := &e.Children[i]
		if c.XMLName.Local != "processes_group" {
			return nil, unsupported(c.XMLName.Local, "processes_selection")
		}
		name, err := c.require("name")
		if err != nil {
			return nil, err
		}
		group := graph.Group{Name: name}
		for j := range c.Children {
			p := &c.Children[j]
			if p.XMLName.Local != "process" {
				return nil, unsupported(p.XMLName.Local, "processes_group")
			}
			node, err := p.require("name")
			if err != nil {
				return nil, err
			}
			group.Nodes = append(group.Nodes, node)
		}
		s.Groups = append(s.Groups, group)
	}
	return s, nil
}

func decodeInline(e *element, version string) (Entry, error) {
	name, err := e.require("name")
	if err != nil {
		return nil, err
	}
	if v, ok := e.attr("capsul_xml"); ok {
		if err := checkVersion(v); err != nil {
			return nil, err
		}
	}
	inner, err := decodePipeline(e, version)
	if err != nil {
		return nil, err
	}
	return PipelineEntry{Name: name, Pipeline: inner}, nil
}

func decodeGUI(e *element) (Entry, error) {
	var gui GUIEntry
	for i := range e.Children {
		c := &e.Children[i]
		switch c.XMLName.Local {
		case "position":
			name, err := c.require("name")
			if err != nil {
				return nil, err
			}
			x, err := c.number("x")
			if err != nil {
				return nil, err
			}
			y, err := c.number("y")
			if err != nil {
				return nil, err
			}
			gui.Positions = append(gui.Positions, graph.NamedPosition{Name: name, Position: graph.Position{X: x, Y: y}})
		case "zoom":
			level, err := c.number("level")
			if err != nil {
				return nil, err
			}
			gui.Zoom = &level
		default:
			return nil, unsupported(c.XMLName.Local, "gui")
		}
	}
	return gui, nil
}

// Encode writes doc as an indented XML document.
func (XML) Encode(w io.Writer, doc *Document) error {
	root := encodePipeline(doc)
	root.Attrs = append([]xml.Attr{{Name: xml.Name{Local: "capsul_xml"}, Value: Version}}, root.Attrs...)

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func encodePipeline(doc *Document) element {
	root := newElement("pipeline", "name", doc.Name)
	if doc.Doc != "" {
		d := newElement("doc")
		d.Content = doc.Doc
		root.add(d)
	}
	for _, e := range doc.Entries {
		switch e := e.(type) {
		case ProcessEntry:
			p := newElement("process", "name", e.Name, "module", e.Module)
			for _, s := range e.Sets {
				p.add(newElement("set", "name", s.Name, "value", s.Raw))
			}
			for _, it := range e.Iterate {
				p.add(newElement("iterate", "name", it))
			}
			for _, a := range e.Adapters {
				n := newElement("nipype", "name", a.Plug)
				if a.UseDefault {
					n.set("usedefault", "true")
				}
				if a.CopyFile != "" {
					n.set("copyfile", a.CopyFile)
				}
				p.add(n)
			}
			root.add(p)
		case SwitchEntry:
			s := newElement("switch", "name", e.Name)
			if e.Optional {
				s.set("optional", "true")
			}
			if e.Selected != "" {
				s.set("selected", e.Selected)
			}
			for _, alt := range e.Alternatives {
				s.add(newElement("alternative", "name", alt))
			}
			for _, out := range e.Outputs {
				s.add(newElement("output", "name", out))
			}
			root.add(s)
		case LinkEntry:
			l := newElement("link", "source", e.Source, "dest", e.Dest)
			if e.Weak {
				l.set("weak", "true")
			}
			root.add(l)
		case SelectionEntry:
			s := newElement("processes_selection", "name", e.Param)
			if e.Selected != "" {
				s.set("selected", e.Selected)
			}
			for _, g := range e.Groups {
				ge := newElement("processes_group", "name", g.Name)
				for _, n := range g.Nodes {
					ge.add(newElement("process", "name", n))
				}
				s.add(ge)
			}
			root.add(s)
		case PipelineEntry:
			inner := encodePipeline(e.Pipeline)
			inner.Attrs[0].Value = e.Name
			root.add(inner)
		case GUIEntry:
			g := newElement("gui")
			for _, p := range e.Positions {
				g.add(newElement("position", "name", p.Name,
					"x", strconv.FormatFloat(p.X, 'g', -1, 64),
					"y", strconv.FormatFloat(p.Y, 'g', -1, 64)))
			}
			if e.Zoom != nil {
				g.add(newElement("zoom", "level", strconv.FormatFloat(*e.Zoom, 'g', -1, 64)))
			}
			root.add(g)
		}
	}
	return root
}
