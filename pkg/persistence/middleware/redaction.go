package middleware

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/pipegraph/pkg/codec"
	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/ports"
)

type redactionMiddleware struct {
	next     ports.DocumentStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that drops, before storage,
// every parameter value whose name matches one of patterns. Nested
// pipelines are redacted too. Dropped values must be set again after a
// reload.
func NewRedactionMiddleware(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next ports.DocumentStore) ports.DocumentStore {
		return &redactionMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *redactionMiddleware) Save(ctx context.Context, name string, doc []byte) error {
	c := codec.Detect(doc)
	d, err := c.Decode(bytes.NewReader(doc))
	if err != nil {
		return err
	}
	if !m.redact(d) {
		return m.next.Save(ctx, name, doc)
	}
	var buf bytes.Buffer
	if err := c.Encode(&buf, d); err != nil {
		return err
	}
	return m.next.Save(ctx, name, buf.Bytes())
}

func (m *redactionMiddleware) Load(ctx context.Context, name string) ([]byte, error) {
	return m.next.Load(ctx, name)
}

func (m *redactionMiddleware) Delete(ctx context.Context, name string) error {
	return m.next.Delete(ctx, name)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *redactionMiddleware) sensitive(param string) bool {
	for _, p := range m.patterns {
		if p.MatchString(param) {
			return true
		}
	}
	return false
}

// redact removes sensitive values from d in place and reports whether it
// removed any. d is a fresh decode, so nothing outside is touched.
func (m *redactionMiddleware) redact(d *codec.Document) bool {
	changed := false
	for i, e := range d.Entries {
		switch e := e.(type) {
		case codec.ProcessEntry:
			kept := make([]domain.Override, 0, len(e.Sets))
			for _, s := range e.Sets {
				if m.sensitive(s.Name) {
					changed = true
					continue
				}
				kept = append(kept, s)
			}
			e.Sets = kept
			d.Entries[i] = e
		case codec.PipelineEntry:
			if e.Pipeline != nil && m.redact(e.Pipeline) {
				changed = true
			}
		}
	}
	return changed
}
