package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/pipegraph"
	"github.com/aretw0/pipegraph/internal/logging"
	"github.com/aretw0/pipegraph/pkg/codec"
	"github.com/aretw0/pipegraph/pkg/graph"
	"github.com/aretw0/pipegraph/pkg/inspect"
	"github.com/aretw0/pipegraph/pkg/schema"
	"github.com/aretw0/pipegraph/pkg/session"
)

const resourcePrefix = "pipegraph://pipelines/"

// EditResult aligns with the HTTP API: the activation transitions an edit caused.
type EditResult struct {
	Pipeline    string              `json:"pipeline" jsonschema_description:"The edited pipeline"`
	Transitions []TransitionPayload `json:"transitions" jsonschema_description:"Activation changes caused by the edit"`
}

// TransitionPayload is one activation change.
type TransitionPayload struct {
	Node      string `json:"node"`
	Plug      string `json:"plug,omitempty"`
	Activated bool   `json:"activated"`
}

// Server exposes stored pipelines as an MCP server.
type Server struct {
	sessions  *session.Manager
	exists    func(string) bool
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithFileCheck replaces the file existence test of check_files.
func WithFileCheck(exists func(string) bool) Option {
	return func(s *Server) {
		s.exists = exists
	}
}

// NewServer creates a new MCP Server over the session manager.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		exists:   inspect.Exists,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("pipegraph-mcp", strings.TrimSpace(pipegraph.Version),
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)
	s.mcpServer.AddTools(s.tools()...)
	s.registerResources()
	return s
}

// MCPServer returns the underlying server for tests or custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: mcp.NewTool("list_pipelines",
			mcp.WithDescription("List the stored pipelines."),
		), Handler: s.handleList},
		{Tool: mcp.NewTool("put_pipeline",
			mcp.WithDescription("Store a pipeline document (XML or YAML), replacing any pipeline with that name."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Pipeline name")),
			mcp.WithString("document", mcp.Required(), mcp.Description("The declarative document")),
		), Handler: s.handlePut},
		{Tool: mcp.NewTool("export_pipeline",
			mcp.WithDescription("Encode a stored pipeline."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Pipeline name")),
			mcp.WithString("format", mcp.Enum("xml", "yaml"), mcp.Description("Document format (default: yaml)")),
		), Handler: s.handleExport},
		{Tool: mcp.NewTool("get_nodes",
			mcp.WithDescription("Describe the nodes of a pipeline with their plugs and activation."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Pipeline name")),
		), Handler: s.handleNodes},
		{Tool: mcp.NewTool("get_activation",
			mcp.WithDescription("Activation of every node and plug of a pipeline."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Pipeline name")),
		), Handler: s.handleActivation},
		{Tool: mcp.NewTool("select_alternative",
			mcp.WithDescription("Select the alternative routed by a switch."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Pipeline name")),
			mcp.WithString("switch", mcp.Required(), mcp.Description("Switch node")),
			mcp.WithString("alternative", mcp.Description("Alternative to route; empty deselects an optional switch")),
			mcp.WithOutputSchema[EditResult](),
		), Handler: mcp.NewStructuredToolHandler(s.handleSelect)},
		{Tool: mcp.NewTool("set_enabled",
			mcp.WithDescription("Enable or disable a node."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Pipeline name")),
			mcp.WithString("node", mcp.Required(), mcp.Description("Node name")),
			mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("New state")),
			mcp.WithOutputSchema[EditResult](),
		), Handler: mcp.NewStructuredToolHandler(s.handleEnable)},
		{Tool: mcp.NewTool("set_value",
			mcp.WithDescription("Assign a value to a plug, written as in pipeline documents (e.g. 0.5, [1, 2], None)."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Pipeline name")),
			mcp.WithString("ref", mcp.Required(), mcp.Description("Plug reference: node.plug, or an exported name")),
			mcp.WithString("value", mcp.Required(), mcp.Description("The value")),
			mcp.WithOutputSchema[EditResult](),
		), Handler: mcp.NewStructuredToolHandler(s.handleSetValue)},
		{Tool: mcp.NewTool("record_activation",
			mcp.WithDescription("Record the activation transitions of a full recompute."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Pipeline name")),
		), Handler: s.handleRecord},
		{Tool: mcp.NewTool("check_files",
			mcp.WithDescription("List missing input files and output files that would be overwritten."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Pipeline name")),
		), Handler: s.handleCheckFiles},
	}
}

func (s *Server) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.sessions.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	if names == nil {
		names = []string{}
	}
	return marshalResult(map[string][]string{"pipelines": names})
}

func (s *Server) handlePut(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required"), nil
	}
	doc, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError("document is required"), nil
	}
	g, err := s.sessions.Create(ctx, name, []byte(doc))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid pipeline: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("stored %s (%d nodes, %d links)", name, len(g.Nodes()), len(g.Links()))), nil
}

func (s *Server) handleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required"), nil
	}
	c, err := codec.ForFormat(req.GetString("format", "yaml"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.sessions.Export(ctx, name, c)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) handleNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.view(ctx, req, func(g *graph.Graph) (any, error) { return g.ListNodes() })
}

func (s *Server) handleActivation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.view(ctx, req, func(g *graph.Graph) (any, error) { return g.ActivationState() })
}

func (s *Server) handleCheckFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.view(ctx, req, func(g *graph.Graph) (any, error) { return inspect.CheckFiles(g, s.exists) })
}

func (s *Server) handleRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required"), nil
	}
	rec, err := s.sessions.Record(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("record failed: %v", err)), nil
	}
	var b strings.Builder
	if _, err := rec.WriteTo(&b); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(b.String()), nil
}

type selectArgs struct {
	Name        string `json:"name"`
	Switch      string `json:"switch"`
	Alternative string `json:"alternative"`
}

func (s *Server) handleSelect(ctx context.Context, req mcp.CallToolRequest, args selectArgs) (EditResult, error) {
	return s.edit(ctx, args.Name, func(g *graph.Graph) error {
		return g.SetSwitchSelection(args.Switch, args.Alternative)
	})
}

type enableArgs struct {
	Name    string `json:"name"`
	Node    string `json:"node"`
	Enabled bool   `json:"enabled"`
}

func (s *Server) handleEnable(ctx context.Context, req mcp.CallToolRequest, args enableArgs) (EditResult, error) {
	return s.edit(ctx, args.Name, func(g *graph.Graph) error {
		return g.SetNodeEnabled(args.Node, args.Enabled)
	})
}

type valueArgs struct {
	Name  string `json:"name"`
	Ref   string `json:"ref"`
	Value string `json:"value"`
}

func (s *Server) handleSetValue(ctx context.Context, req mcp.CallToolRequest, args valueArgs) (EditResult, error) {
	v, err := schema.ParseValue(args.Value)
	if err != nil {
		return EditResult{}, err
	}
	return s.edit(ctx, args.Name, func(g *graph.Graph) error {
		return g.SetValue(args.Ref, v)
	})
}

func (s *Server) view(ctx context.Context, req mcp.CallToolRequest, fn func(*graph.Graph) (any, error)) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required"), nil
	}
	var out any
	err = s.sessions.View(ctx, name, func(g *graph.Graph) error {
		var err error
		out, err = fn(g)
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return marshalResult(out)
}

func (s *Server) edit(ctx context.Context, name string, fn func(*graph.Graph) error) (EditResult, error) {
	if name == "" {
		return EditResult{}, errors.New("name is required")
	}
	res := EditResult{Pipeline: name, Transitions: []TransitionPayload{}}
	err := s.sessions.Edit(ctx, name, func(g *graph.Graph) error {
		before, _ := g.ActivationState()
		if err := fn(g); err != nil {
			return err
		}
		after, err := g.ActivationState()
		if err != nil {
			return err
		}
		for _, t := range graph.DiffStates(before, after) {
			res.Transitions = append(res.Transitions, TransitionPayload{Node: t.Node, Plug: t.Plug, Activated: t.Activated})
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("MCP edit rejected", "pipeline", name, "error", err)
		return EditResult{}, err
	}
	return res, nil
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("pipegraph://pipelines", "Stored pipelines",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		names, err := s.sessions.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list pipelines: %w", err)
		}
		data, _ := json.Marshal(names)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "pipegraph://pipelines",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(resourcePrefix+"{name}", "Pipeline document",
		mcp.WithTemplateDescription("A stored pipeline as a YAML document"),
		mcp.WithTemplateMIMEType("application/yaml"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		uri := request.Params.URI
		name := strings.TrimPrefix(uri, resourcePrefix)
		out, err := s.sessions.Export(ctx, name, codec.YAML{})
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", uri, err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      uri,
				MIMEType: "application/yaml",
				Text:     string(out),
			},
		}, nil
	})
}
