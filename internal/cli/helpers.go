package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/aretw0/pipegraph/internal/logging"
	"github.com/aretw0/pipegraph/internal/presentation/tui"
)

// SignalContext is a context cancelled on SIGINT or SIGTERM that remembers
// which signal cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	stop   sync.Once
	sigCh  chan os.Signal
	mu     sync.Mutex
	sigVal os.Signal
}

// NewSignalContext works like signal.NotifyContext but keeps the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}
	signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sc.sigCh:
			sc.mu.Lock()
			sc.sigVal = sig
			sc.mu.Unlock()
			sc.Cancel()
		case <-sc.Done():
		}
		sc.stop.Do(func() { signal.Stop(sc.sigCh) })
	}()
	return sc
}

// Signal returns the signal that cancelled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// NewLogger builds the CLI logger. Debug forces the debug level; otherwise
// cfg.Level is one of debug, info, warn, error or off.
func NewLogger(cfg LogConfig, debug bool) *slog.Logger {
	var opts []logging.Option
	if strings.EqualFold(cfg.Format, "json") {
		opts = append(opts, logging.WithJSON())
	}
	if debug {
		return logging.New(slog.LevelDebug, opts...)
	}
	switch strings.ToLower(cfg.Level) {
	case "debug":
		return logging.New(slog.LevelDebug, opts...)
	case "warn", "warning":
		return logging.New(slog.LevelWarn, opts...)
	case "error":
		return logging.New(slog.LevelError, opts...)
	case "off", "none":
		return logging.NewNop()
	}
	return logging.New(slog.LevelInfo, opts...)
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// PrintMarkdown renders md with glamour when w is a terminal and writes it
// verbatim otherwise.
func PrintMarkdown(w io.Writer, md string) error {
	if f, ok := w.(*os.File); ok && tui.IsTerminal(f) {
		out, err := tui.NewRenderer()(md)
		if err != nil {
			return err
		}
		md = out
	}
	_, err := io.WriteString(w, md)
	return err
}
