package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pipegraph/pkg/adapters/memory"
	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/session"
)

const demo = `version: "2.0"
name: demo
entries:
  - process: {name: bet, module: fsl.BET}
  - link: {source: t1, dest: bet.in_file}
  - link: {source: bet.out_file, dest: brain}
`

func newServer(t *testing.T) *Server {
	t.Helper()
	catalog, err := memory.NewCatalog(domain.ProcessSpec{Module: "fsl.BET", Params: []domain.ParamSpec{
		{Name: "in_file", Type: "file"},
		{Name: "frac", Type: "float", Optional: true},
		{Name: "out_file", Type: "file", Output: true},
	}})
	require.NoError(t, err)
	m := session.NewManager(memory.NewStore(), session.WithCatalog(catalog))
	return NewServer(m, WithFileCheck(func(string) bool { return false }))
}

func rpc(t *testing.T, s *Server, id int, method string, params map[string]any) json.RawMessage {
	t.Helper()
	ctx := context.Background()
	hello, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      0,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-03-26",
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "test", "version": "1.0.0"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, s.MCPServer().HandleMessage(ctx, hello))

	raw, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": id, "method": method, "params": params})
	require.NoError(t, err)
	resp := s.MCPServer().HandleMessage(ctx, raw)
	require.NotNil(t, resp)
	out, err := json.Marshal(resp)
	require.NoError(t, err)

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(out, &envelope))
	if envelope.Error != nil {
		t.Fatalf("JSON-RPC error: %s", envelope.Error.Message)
	}
	return envelope.Result
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	raw := rpc(t, s, 1, "tools/call", map[string]any{"name": name, "arguments": args})
	var result mcp.CallToolResult
	require.NoError(t, json.Unmarshal(raw, &result))
	return &result
}

func text(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, r.Content)
	return mcp.GetTextFromContent(r.Content[0])
}

func TestTools_PutAndQuery(t *testing.T) {
	s := newServer(t)

	r := callTool(t, s, "put_pipeline", map[string]any{"name": "demo", "document": demo})
	require.False(t, r.IsError, text(t, r))
	assert.Contains(t, text(t, r), "stored demo (1 nodes")

	r = callTool(t, s, "list_pipelines", nil)
	assert.JSONEq(t, `{"pipelines":["demo"]}`, text(t, r))

	r = callTool(t, s, "get_activation", map[string]any{"name": "demo"})
	require.False(t, r.IsError, text(t, r))
	var state map[string]struct {
		Activated bool            `json:"activated"`
		Plugs     map[string]bool `json:"plugs"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, r)), &state))
	assert.True(t, state["bet"].Activated)
	assert.True(t, state[""].Plugs["brain"])

	r = callTool(t, s, "export_pipeline", map[string]any{"name": "demo", "format": "xml"})
	assert.Contains(t, text(t, r), `<process name="bet" module="fsl.BET">`)

	r = callTool(t, s, "record_activation", map[string]any{"name": "demo"})
	assert.Contains(t, text(t, r), "+bet\n")
}

func TestTools_Edits(t *testing.T) {
	s := newServer(t)
	callTool(t, s, "put_pipeline", map[string]any{"name": "demo", "document": demo})

	r := callTool(t, s, "set_enabled", map[string]any{"name": "demo", "node": "bet", "enabled": false})
	require.False(t, r.IsError, text(t, r))
	var res EditResult
	require.NoError(t, json.Unmarshal([]byte(text(t, r)), &res))
	assert.Equal(t, "demo", res.Pipeline)
	assert.Contains(t, res.Transitions, TransitionPayload{Node: "bet", Activated: false})

	r = callTool(t, s, "set_value", map[string]any{"name": "demo", "ref": "bet.frac", "value": "0.3"})
	require.False(t, r.IsError, text(t, r))

	r = callTool(t, s, "set_value", map[string]any{"name": "demo", "ref": "bet.frac", "value": "fast"})
	assert.True(t, r.IsError, "a string is not a float")

	r = callTool(t, s, "select_alternative", map[string]any{"name": "demo", "switch": "bet", "alternative": "a"})
	assert.True(t, r.IsError, "bet is not a switch")
}

func TestTools_CheckFiles(t *testing.T) {
	s := newServer(t)
	callTool(t, s, "put_pipeline", map[string]any{"name": "demo", "document": demo})
	callTool(t, s, "set_value", map[string]any{"name": "demo", "ref": "t1", "value": "/data/t1.nii"})

	r := callTool(t, s, "check_files", map[string]any{"name": "demo"})
	require.False(t, r.IsError, text(t, r))
	assert.Contains(t, text(t, r), "/data/t1.nii")
}

func TestTools_Errors(t *testing.T) {
	s := newServer(t)

	r := callTool(t, s, "put_pipeline", map[string]any{"name": "bad", "document": `<pipeline capsul_xml="2.0"><node/></pipeline>`})
	assert.True(t, r.IsError)

	r = callTool(t, s, "get_nodes", map[string]any{"name": "missing"})
	assert.True(t, r.IsError)
	assert.Contains(t, text(t, r), "not found")

	r = callTool(t, s, "get_nodes", map[string]any{})
	assert.True(t, r.IsError)
}

func TestResources(t *testing.T) {
	s := newServer(t)
	callTool(t, s, "put_pipeline", map[string]any{"name": "demo", "document": demo})

	raw := rpc(t, s, 2, "resources/read", map[string]any{"uri": "pipegraph://pipelines/demo"})
	var res struct {
		Contents []struct {
			URI  string `json:"uri"`
			Text string `json:"text"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(raw, &res))
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "pipegraph://pipelines/demo", res.Contents[0].URI)
	assert.Contains(t, res.Contents[0].Text, "name: demo")

	raw = rpc(t, s, 3, "resources/read", map[string]any{"uri": "pipegraph://pipelines"})
	require.NoError(t, json.Unmarshal(raw, &res))
	assert.JSONEq(t, `["demo"]`, res.Contents[0].Text)
}
