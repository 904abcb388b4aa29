package logging

import (
	"io"
	"log/slog"
	"os"
)

type options struct {
	w    io.Writer
	json bool
}

// Option configures New.
type Option func(*options)

// WithWriter sends records to w instead of stderr.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.w = w }
}

// WithJSON switches to one JSON object per record.
func WithJSON() Option {
	return func(o *options) { o.json = true }
}

// New creates the application logger. Records go to stderr so stdout stays
// free for reports and JSON-RPC. The "error" key is written as "err".
func New(level slog.Level, opts ...Option) *slog.Logger {
	o := options{w: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}
	ho := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
	if o.json {
		return slog.New(slog.NewJSONHandler(o.w, ho))
	}
	return slog.New(slog.NewTextHandler(o.w, ho))
}

// NewNop returns a logger that drops everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
