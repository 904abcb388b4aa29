package domain

import "strings"

// Endpoint addresses a plug. An empty Node means the plug is exported on the
// pipeline boundary.
type Endpoint struct {
	Node string
	Plug string
}

// ParseEndpoint splits "node.plug" on the last dot. A bare name addresses a
// boundary plug.
func ParseEndpoint(ref string) Endpoint {
	i := strings.LastIndexByte(ref, '.')
	if i < 0 {
		return Endpoint{Plug: ref}
	}
	return Endpoint{Node: ref[:i], Plug: ref[i+1:]}
}

// IsBoundary reports whether the endpoint addresses an exported plug.
func (e Endpoint) IsBoundary() bool {
	return e.Node == ""
}

func (e Endpoint) String() string {
	if e.Node == "" {
		return e.Plug
	}
	return e.Node + "." + e.Plug
}
