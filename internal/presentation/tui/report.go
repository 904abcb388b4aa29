package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/pipegraph/pkg/graph"
	"github.com/aretw0/pipegraph/pkg/inspect"
)

func mark(active bool) string {
	if active {
		return "✅"
	}
	return "⛔"
}

// ActivationReport renders the activation of a pipeline as markdown: one
// table for exported plugs and one for nodes.
func ActivationReport(g *graph.Graph) (string, error) {
	exports, err := g.ExportedPlugs()
	if err != nil {
		return "", err
	}
	nodes, err := g.ListNodes()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", g.Name())
	if doc := strings.TrimSpace(g.Documentation()); doc != "" {
		sb.WriteString(doc + "\n\n")
	}

	if len(exports) > 0 {
		sb.WriteString("## Pipeline plugs\n\n")
		sb.WriteString("| Plug | Direction | Target | Active |\n|---|---|---|---|\n")
		for _, e := range exports {
			fmt.Fprintf(&sb, "| %s | %s | `%s` | %s |\n", e.Name, e.Direction, e.Target, mark(e.Activated))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Nodes\n\n")
	sb.WriteString("| Node | Kind | Detail | Active | Inactive plugs |\n|---|---|---|---|---|\n")
	for _, n := range nodes {
		detail := n.Module
		if n.Selected != "" {
			detail = "▸ " + n.Selected
		}
		active := mark(n.Activated)
		if !n.Enabled {
			active = "disabled"
		}
		var off []string
		for _, p := range n.Plugs {
			if !p.Activated {
				off = append(off, p.Name)
			}
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n", n.Name, n.Kind, detail, active, strings.Join(off, ", "))
	}
	return sb.String(), nil
}

// FileReport renders the result of a file check as markdown.
func FileReport(r *inspect.FileReport) string {
	if r.OK() {
		return "All file parameters are consistent. ✅\n"
	}
	var sb strings.Builder
	section := func(title string, issues []inspect.FileIssue) {
		if len(issues) == 0 {
			return
		}
		fmt.Fprintf(&sb, "## %s\n\n", title)
		for _, i := range issues {
			fmt.Fprintf(&sb, "- `%s` (%s)\n", i.Path, inspect.Key(i.Node, i.Param))
		}
		sb.WriteString("\n")
	}
	section("Missing inputs", r.Missing)
	section("Outputs that would be overwritten", r.Overwritten)
	return sb.String()
}
