package http

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/pipegraph"
	"github.com/aretw0/pipegraph/internal/logging"
	"github.com/aretw0/pipegraph/pkg/codec"
	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/graph"
	"github.com/aretw0/pipegraph/pkg/inspect"
	"github.com/aretw0/pipegraph/pkg/schema"
	"github.com/aretw0/pipegraph/pkg/session"
)

//go:embed openapi.yaml
var rawSpec []byte

// Server exposes stored pipelines over HTTP.
type Server struct {
	sessions *session.Manager
	streams  *StreamManager
	router   routers.Router
	apiDoc   *openapi3.T
	exists   func(string) bool
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics serves the gatherer on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithFileCheck replaces the file existence test used by /files.
func WithFileCheck(exists func(string) bool) Option {
	return func(s *Server) {
		s.exists = exists
	}
}

// LoadSpec parses the embedded API document.
func LoadSpec() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load API document: %w", err)
	}
	return doc, nil
}

// NewHandler creates the HTTP handler over the session manager.
func NewHandler(sessions *session.Manager, opts ...Option) (http.Handler, error) {
	doc, err := LoadSpec()
	if err != nil {
		return nil, err
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build API router: %w", err)
	}
	s := &Server{
		sessions: sessions,
		streams:  NewStreamManager(),
		router:   router,
		apiDoc:   doc,
		exists:   inspect.Exists,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(s.validate)
		r.Get("/health", s.GetHealth)
		r.Get("/info", s.GetInfo)
		r.Get("/pipelines", s.ListPipelines)
		r.Route("/pipelines/{name}", func(r chi.Router) {
			r.Get("/", s.GetPipeline)
			r.Put("/", s.PutPipeline)
			r.Delete("/", s.DeletePipeline)
			r.Get("/document", s.ExportPipeline)
			r.Get("/nodes", s.ListNodes)
			r.Put("/nodes/{node}/enabled", s.SetNodeEnabled)
			r.Get("/links", s.ListLinks)
			r.Post("/links", s.AddLink)
			r.Delete("/links/{id}", s.RemoveLink)
			r.Get("/exports", s.ListExports)
			r.Get("/activation", s.GetActivation)
			r.Put("/values", s.SetValue)
			r.Put("/switches/{switch}", s.SelectAlternative)
			r.Get("/selections", s.ListSelections)
			r.Put("/selections/{param}", s.SelectGroup)
			r.Get("/record", s.RecordActivation)
			r.Get("/files", s.CheckFiles)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	return enableCORS(r), nil
}

// validate rejects requests that do not match the API document. Routes the
// document does not describe pass through.
func (s *Server) validate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, params, err := s.router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: params,
			Route:      route,
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			s.logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "error", err)
			s.fail(w, http.StatusBadRequest, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Pipegraph API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// PipelineSummary is the short description of a stored pipeline.
type PipelineSummary struct {
	Name    string   `json:"name"`
	Doc     string   `json:"doc,omitempty"`
	Nodes   int      `json:"nodes"`
	Links   int      `json:"links"`
	Exports []string `json:"exports"`
}

// EditResult lists the activation transitions caused by an edit.
type EditResult struct {
	Transitions []domain.Transition `json:"transitions"`
}

type documentRequest struct {
	Document string `json:"document"`
}

type selectionRequest struct {
	Selected string `json:"selected"`
}

type linkRequest struct {
	Source string `json:"source"`
	Dest   string `json:"dest"`
	Weak   bool   `json:"weak"`
}

type valueRequest struct {
	Ref   string `json:"ref"`
	Value any    `json:"value"`
}

type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.reply(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.apiDoc.Info != nil {
		apiVersion = s.apiDoc.Info.Version
	}
	s.reply(w, http.StatusOK, map[string]string{
		"app":         "pipegraph-http",
		"version":     strings.TrimSpace(pipegraph.Version),
		"api_version": apiVersion,
	})
}

// ListPipelines handles GET /pipelines.
func (s *Server) ListPipelines(w http.ResponseWriter, r *http.Request) {
	names, err := s.sessions.List(r.Context())
	if err != nil {
		s.respond(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.reply(w, http.StatusOK, map[string][]string{"pipelines": names})
}

// GetPipeline handles GET /pipelines/{name}.
func (s *Server) GetPipeline(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var summary PipelineSummary
	err := s.sessions.View(r.Context(), name, func(g *graph.Graph) error {
		summary = summarize(name, g)
		return nil
	})
	if err != nil {
		s.respond(w, err)
		return
	}
	s.reply(w, http.StatusOK, summary)
}

// PutPipeline handles PUT /pipelines/{name}.
func (s *Server) PutPipeline(w http.ResponseWriter, r *http.Request) {
	var body documentRequest
	if !s.decode(w, r, &body) {
		return
	}
	name := chi.URLParam(r, "name")
	g, err := s.sessions.Create(r.Context(), name, []byte(body.Document))
	if err != nil {
		s.respond(w, err)
		return
	}
	s.reply(w, http.StatusCreated, summarize(name, g))
}

// DeletePipeline handles DELETE /pipelines/{name}.
func (s *Server) DeletePipeline(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.respond(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportPipeline handles GET /pipelines/{name}/document.
func (s *Server) ExportPipeline(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "yaml"
	}
	c, err := codec.ForFormat(format)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	out, err := s.sessions.Export(r.Context(), chi.URLParam(r, "name"), c)
	if err != nil {
		s.respond(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/"+c.Format())
	w.Write(out)
}

// ListNodes handles GET /pipelines/{name}/nodes.
func (s *Server) ListNodes(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(g *graph.Graph) (any, error) { return g.ListNodes() })
}

// ListLinks handles GET /pipelines/{name}/links.
func (s *Server) ListLinks(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(g *graph.Graph) (any, error) { return g.ListLinks() })
}

// ListExports handles GET /pipelines/{name}/exports.
func (s *Server) ListExports(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(g *graph.Graph) (any, error) { return g.ExportedPlugs() })
}

// ListSelections handles GET /pipelines/{name}/selections.
func (s *Server) ListSelections(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(g *graph.Graph) (any, error) { return g.SelectionGroups(), nil })
}

// GetActivation handles GET /pipelines/{name}/activation.
func (s *Server) GetActivation(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(g *graph.Graph) (any, error) { return g.ActivationState() })
}

// CheckFiles handles GET /pipelines/{name}/files.
func (s *Server) CheckFiles(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(g *graph.Graph) (any, error) { return inspect.CheckFiles(g, s.exists) })
}

// RecordActivation handles GET /pipelines/{name}/record.
func (s *Server) RecordActivation(w http.ResponseWriter, r *http.Request) {
	rec, err := s.sessions.Record(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.respond(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	if _, err := rec.WriteTo(w); err != nil {
		s.logger.Error("record response write failed", "error", err)
	}
}

// SetNodeEnabled handles PUT /pipelines/{name}/nodes/{node}/enabled.
func (s *Server) SetNodeEnabled(w http.ResponseWriter, r *http.Request) {
	var body enabledRequest
	if !s.decode(w, r, &body) {
		return
	}
	node := chi.URLParam(r, "node")
	s.edit(w, r, func(g *graph.Graph) error { return g.SetNodeEnabled(node, body.Enabled) })
}

// AddLink handles POST /pipelines/{name}/links.
func (s *Server) AddLink(w http.ResponseWriter, r *http.Request) {
	var body linkRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.edit(w, r, func(g *graph.Graph) error {
		_, err := g.AddLink(body.Source, body.Dest, body.Weak)
		return err
	})
}

// RemoveLink handles DELETE /pipelines/{name}/links/{id}.
func (s *Server) RemoveLink(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	s.edit(w, r, func(g *graph.Graph) error { return g.RemoveLink(graph.LinkID(id)) })
}

// SetValue handles PUT /pipelines/{name}/values.
func (s *Server) SetValue(w http.ResponseWriter, r *http.Request) {
	var body valueRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.edit(w, r, func(g *graph.Graph) error { return g.SetValue(body.Ref, body.Value) })
}

// SelectAlternative handles PUT /pipelines/{name}/switches/{switch}.
func (s *Server) SelectAlternative(w http.ResponseWriter, r *http.Request) {
	var body selectionRequest
	if !s.decode(w, r, &body) {
		return
	}
	sw := chi.URLParam(r, "switch")
	s.edit(w, r, func(g *graph.Graph) error { return g.SetSwitchSelection(sw, body.Selected) })
}

// SelectGroup handles PUT /pipelines/{name}/selections/{param}.
func (s *Server) SelectGroup(w http.ResponseWriter, r *http.Request) {
	var body selectionRequest
	if !s.decode(w, r, &body) {
		return
	}
	param := chi.URLParam(r, "param")
	s.edit(w, r, func(g *graph.Graph) error { return g.SelectGroup(param, body.Selected) })
}

func (s *Server) view(w http.ResponseWriter, r *http.Request, fn func(*graph.Graph) (any, error)) {
	var out any
	err := s.sessions.View(r.Context(), chi.URLParam(r, "name"), func(g *graph.Graph) error {
		var err error
		out, err = fn(g)
		return err
	})
	if err != nil {
		s.respond(w, err)
		return
	}
	s.reply(w, http.StatusOK, out)
}

// edit applies fn to the named pipeline and answers with the transitions it
// caused. Edits that make activation diverge are rejected.
func (s *Server) edit(w http.ResponseWriter, r *http.Request, fn func(*graph.Graph) error) {
	name := chi.URLParam(r, "name")
	var res EditResult
	err := s.sessions.Edit(r.Context(), name, func(g *graph.Graph) error {
		before, _ := g.ActivationState()
		if err := fn(g); err != nil {
			return err
		}
		after, err := g.ActivationState()
		if err != nil {
			return err
		}
		res.Transitions = graph.DiffStates(before, after)
		return nil
	})
	if err != nil {
		s.respond(w, err)
		return
	}
	if len(res.Transitions) > 0 {
		if payload, err := json.Marshal(res); err == nil {
			s.streams.Broadcast(name, string(payload))
		}
	} else {
		res.Transitions = []domain.Transition{}
	}
	s.reply(w, http.StatusOK, res)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
		s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	s.reply(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) respond(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.fail(w, status, err)
}

func statusOf(err error) int {
	var verr *schema.ValidationError
	switch {
	case errors.Is(err, domain.ErrInvalidLink),
		errors.Is(err, domain.ErrUnknownAlternative),
		errors.Is(err, domain.ErrMultipleSources),
		errors.Is(err, domain.ErrConflictingExport),
		errors.Is(err, domain.ErrUnsupportedDeclaration),
		errors.Is(err, domain.ErrUnsupportedVersion),
		errors.Is(err, domain.ErrDuplicateName),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrModuleNotFound),
		errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDocumentNotFound), errors.Is(err, domain.ErrDanglingReference):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrActivationDivergence):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func summarize(name string, g *graph.Graph) PipelineSummary {
	exports := []string{}
	if infos, err := g.ExportedPlugs(); err == nil {
		for _, e := range infos {
			exports = append(exports, e.Name)
		}
	}
	return PipelineSummary{
		Name:    name,
		Doc:     g.Documentation(),
		Nodes:   len(g.Nodes()),
		Links:   len(g.Links()),
		Exports: exports,
	}
}
