package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseValue parses an override written in a pipeline document.
// Text that is not valid flow YAML is kept as a plain string.
func ParseValue(raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	switch trimmed {
	case "", "None", "null", "~":
		return nil, nil
	}
	var v any
	if err := yaml.Unmarshal([]byte(trimmed), &v); err != nil {
		if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
			return nil, fmt.Errorf("malformed value %q: %w", raw, err)
		}
		return trimmed, nil
	}
	return v, nil
}

// FormatValue renders a value in flow YAML, the inverse of ParseValue.
func FormatValue(v any) (string, error) {
	if v == nil {
		return "None", nil
	}
	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return "", err
	}
	setFlow(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func setFlow(n *yaml.Node) {
	if n.Kind == yaml.SequenceNode || n.Kind == yaml.MappingNode {
		n.Style |= yaml.FlowStyle
	}
	for _, c := range n.Content {
		setFlow(c)
	}
}
