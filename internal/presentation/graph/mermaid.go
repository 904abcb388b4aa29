package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/pipegraph/pkg/domain"
	pgraph "github.com/aretw0/pipegraph/pkg/graph"
)

// Overlay replaces the activation shown on the chart, e.g. with a replayed
// step. Keys are top-level node names.
type Overlay struct {
	Activation map[string]bool
	Current    string
}

// GenerateMermaid produces a Mermaid flowchart of a pipeline.
// Node shapes follow the node kind:
// - Process: [Rectangle]
// - Iteration: [/Parallelogram/]
// - Switch: {Rhombus}
// - Pipeline: [[Subroutine]]
// - Exported plug: ((Circle))
// Weak links are dotted. Inactive and disabled nodes are styled.
func GenerateMermaid(g *pgraph.Graph, overlay *Overlay) (string, error) {
	nodes, err := g.ListNodes()
	if err != nil {
		return "", err
	}
	exports, err := g.ExportedPlugs()
	if err != nil {
		return "", err
	}
	links, err := g.ListLinks()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, e := range exports {
		fmt.Fprintf(&sb, "    %s((\"%s\"))\n", exportID(e.Name), e.Name)
	}

	var inactive, disabled []string
	for _, n := range nodes {
		id := nodeID(n.Name)
		opener, closer := "[", "]"
		switch n.Kind {
		case domain.KindIteration:
			opener, closer = "[/", "/]"
		case domain.KindSwitch, domain.KindOptionalSwitch:
			opener, closer = "{", "}"
		case domain.KindPipeline:
			opener, closer = "[[", "]]"
		}
		label := n.Name
		switch {
		case n.Module != "":
			label = fmt.Sprintf("%s <br/> %s", n.Name, n.Module)
		case n.Selected != "":
			label = fmt.Sprintf("%s <br/> ▸ %s", n.Name, n.Selected)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, label, closer)

		active := n.Activated
		if overlay != nil && overlay.Activation != nil {
			active = overlay.Activation[n.Name]
		}
		switch {
		case !n.Enabled:
			disabled = append(disabled, id)
		case !active:
			inactive = append(inactive, id)
		}
	}

	for _, l := range links {
		src, dst := domain.ParseEndpoint(l.Source), domain.ParseEndpoint(l.Dest)
		label := escape(edgeLabel(src, dst))
		arrow := fmt.Sprintf("-- \"%s\" -->", label)
		if l.Weak {
			arrow = fmt.Sprintf("-. \"%s\" .->", label)
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", endpointID(src), arrow, endpointID(dst))
	}

	if len(inactive)+len(disabled) > 0 || (overlay != nil && overlay.Current != "") {
		sb.WriteString("\n    %% Activation Styles\n")
		// Force black text (color:#000) so labels stay readable on both themes
		sb.WriteString("    classDef inactive fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:4 4,color:#000;\n")
		sb.WriteString("    classDef disabled fill:#ffcdd2,stroke:#b71c1c,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		for _, id := range inactive {
			fmt.Fprintf(&sb, "    class %s inactive;\n", id)
		}
		for _, id := range disabled {
			fmt.Fprintf(&sb, "    class %s disabled;\n", id)
		}
		if overlay != nil && overlay.Current != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", nodeID(overlay.Current))
		}
	}

	return sb.String(), nil
}

func edgeLabel(src, dst domain.Endpoint) string {
	switch {
	case src.IsBoundary():
		return dst.Plug
	case dst.IsBoundary():
		return src.Plug
	}
	return src.Plug + " → " + dst.Plug
}

func endpointID(ep domain.Endpoint) string {
	if ep.IsBoundary() {
		return exportID(ep.Plug)
	}
	return nodeID(ep.Node)
}

// Prefixes keep exported names apart from node names and Mermaid keywords
// such as "end".
func nodeID(name string) string   { return "n_" + sanitizeMermaidID(name) }
func exportID(name string) string { return "x_" + sanitizeMermaidID(name) }

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
