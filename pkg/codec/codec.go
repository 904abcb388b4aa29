package codec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/graph"
)

// Codec converts between a serialized form and a Document.
type Codec interface {
	Format() string
	Decode(r io.Reader) (*Document, error)
	Encode(w io.Writer, doc *Document) error
}

// ForFormat returns the codec registered under name ("xml" or "yaml").
func ForFormat(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "xml":
		return XML{}, nil
	case "yaml", "yml":
		return YAML{}, nil
	}
	return nil, fmt.Errorf("%w: format %q", domain.ErrUnsupportedDeclaration, name)
}

// ForPath picks a codec from a file extension.
func ForPath(path string) (Codec, error) {
	return ForFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Detect guesses the codec from content. Anything that does not start with
// '<' is treated as YAML.
func Detect(data []byte) Codec {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("<")) {
		return XML{}
	}
	return YAML{}
}

// Load decodes a document with c and builds its graph.
func Load(ctx context.Context, r io.Reader, c Codec, opts ...Option) (*graph.Graph, error) {
	doc, err := c.Decode(r)
	if err != nil {
		return nil, err
	}
	return Build(ctx, doc, opts...)
}

// LoadBytes builds a graph from data, detecting the format.
func LoadBytes(ctx context.Context, data []byte, opts ...Option) (*graph.Graph, error) {
	return Load(ctx, bytes.NewReader(data), Detect(data), opts...)
}

// LoadFile builds the graph described by the file at path. The format comes
// from the extension, or the content when the extension is unknown.
func LoadFile(ctx context.Context, path string, opts ...Option) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := ForPath(path)
	if err != nil {
		c = Detect(data)
	}
	g, err := Load(ctx, bytes.NewReader(data), c, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Save serializes g with c.
func Save(w io.Writer, g *graph.Graph, c Codec) error {
	return c.Encode(w, FromGraph(g))
}

// Marshal serializes g with c into memory.
func Marshal(g *graph.Graph, c Codec) ([]byte, error) {
	var buf bytes.Buffer
	if err := Save(&buf, g, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
