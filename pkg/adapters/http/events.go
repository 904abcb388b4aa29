package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// StreamManager fans edit results out to the SSE clients of a pipeline.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // pipeline -> channels
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

// Subscribe registers a client of pipeline. The returned function
// unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(pipeline string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[pipeline]; !ok {
		sm.subscribers[pipeline] = make(map[chan<- string]struct{})
	}
	sm.subscribers[pipeline][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[pipeline]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, pipeline)
			}
		}
	}
}

// Broadcast sends msg to every client of pipeline. Slow clients miss it.
func (sm *StreamManager) Broadcast(pipeline string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[pipeline] {
		select {
		case ch <- msg:
		default:
			slog.Warn("SSE: client buffer full, dropping message", "pipeline", pipeline)
		}
	}
}

// SubscribeEvents handles GET /pipelines/{name}/events (SSE). Each event is
// the EditResult of one edit.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	name := chi.URLParam(r, "name")
	if _, err := s.sessions.Store().Load(r.Context(), name); err != nil {
		s.respond(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(name)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	var watch map[string]bool
	if q := r.URL.Query().Get("nodes"); q != "" {
		watch = make(map[string]bool)
		for _, n := range strings.Split(q, ",") {
			watch[strings.TrimSpace(n)] = true
		}
	}

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "pipeline", name)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if watch != nil {
				if msg, ok = only(msg, watch); !ok {
					continue
				}
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// only keeps the transitions of watched nodes. Nested nodes match on their
// outermost name.
func only(msg string, watch map[string]bool) (string, bool) {
	var res EditResult
	if err := json.Unmarshal([]byte(msg), &res); err != nil {
		return msg, true
	}
	kept := res.Transitions[:0]
	for _, t := range res.Transitions {
		top, _, _ := strings.Cut(t.Node, ".")
		if watch[top] {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return "", false
	}
	out, err := json.Marshal(EditResult{Transitions: kept})
	if err != nil {
		return msg, true
	}
	return string(out), true
}
