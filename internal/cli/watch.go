package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/pipegraph/internal/presentation/tui"
	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/graph"
	"github.com/aretw0/pipegraph/pkg/ports"
)

// debounce lets editors finish writing before a reload.
const debounce = 150 * time.Millisecond

// WatchOptions configures RunWatch.
type WatchOptions struct {
	Path    string
	Config  Config
	Edits   Edits
	Debug   bool
	Version string
	Out     io.Writer
}

// Watcher reloads a pipeline document and reports how its activation moved
// since the previous successful load.
type Watcher struct {
	path    string
	catalog ports.Catalog
	edits   Edits
	logger  *slog.Logger
	last    map[string]graph.NodeState
}

func NewWatcher(path string, catalog ports.Catalog, edits Edits, logger *slog.Logger) *Watcher {
	return &Watcher{path: path, catalog: catalog, edits: edits, logger: logger}
}

// Reload loads the document again. The first load reports every active
// element as a transition. A failed load keeps the previous state.
func (w *Watcher) Reload(ctx context.Context) (*graph.Graph, []domain.Transition, error) {
	g, err := LoadPipeline(ctx, w.path, w.catalog, w.edits, w.logger, domain.ActivationHooks{})
	if err != nil {
		return nil, nil, err
	}
	state, err := g.ActivationState()
	if err != nil {
		return nil, nil, err
	}
	changes := graph.DiffStates(w.last, state)
	w.last = state
	return g, changes, nil
}

// RunWatch reloads the pipeline at opts.Path each time it, or a module of
// the configured catalog directory, changes. It returns when ctx is done.
func RunWatch(ctx context.Context, opts WatchOptions) error {
	logger := NewLogger(opts.Config.Log, opts.Debug)
	out := opts.Out
	tui.PrintBanner(opts.Version)

	abs, err := filepath.Abs(opts.Path)
	if err != nil {
		return err
	}
	catalog, modules, err := OpenCatalog(opts.Config)
	if err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer fw.Close()
	// the directory, not the file: editors replace files on save
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	var catalogEvents <-chan string
	if modules != nil {
		if catalogEvents, err = modules.Watch(ctx); err != nil {
			logger.Warn("Catalog watch unavailable", "dir", opts.Config.Catalog.Dir, "err", err)
		}
	}

	w := NewWatcher(abs, catalog, opts.Edits, logger)
	reload := func(reason string) {
		logger.Info("Reloading pipeline", "path", abs, "reason", reason)
		g, changes, err := w.Reload(ctx)
		if err != nil {
			printSystemMessage(out, "Reload failed: %v", err)
			return
		}
		printSystemMessage(out, "Loaded '%s' (%d transitions).", g.Name(), len(changes))
		for _, t := range changes {
			fmt.Fprintf(out, "    %s\n", strings.TrimPrefix(t.String(), "0"))
		}
		md, err := tui.ActivationReport(g)
		if err != nil {
			printSystemMessage(out, "Activation failed: %v", err)
			return
		}
		if err := PrintMarkdown(out, md); err != nil {
			logger.Error("Render failed", "err", err)
		}
	}

	reload("start")
	printSystemMessage(out, "Watching '%s'. Press Ctrl+C to stop.", opts.Path)

	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := ""
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping watcher")
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			pending = filepath.Base(ev.Name)
			timer.Reset(debounce)
		case id, ok := <-catalogEvents:
			if !ok {
				catalogEvents = nil
				continue
			}
			pending = "module " + id
			timer.Reset(debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			if !errors.Is(err, fsnotify.ErrEventOverflow) {
				logger.Error("File watcher error", "err", err)
			}
		case <-timer.C:
			printSystemMessage(out, "Change detected in %s.", pending)
			reload(pending)
		}
	}
}
