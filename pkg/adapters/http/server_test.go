package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pipegraph/pkg/adapters/memory"
	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/graph"
	"github.com/aretw0/pipegraph/pkg/observability"
	"github.com/aretw0/pipegraph/pkg/session"
)

const demo = `version: "2.0"
name: demo
entries:
  - process: {name: bet, module: fsl.BET}
  - switch: {name: method, alternatives: [brain, raw], outputs: [image]}
  - link: {source: t1, dest: bet.in_file}
  - link: {source: bet.out_file, dest: method.brain_switch_image}
  - link: {source: t1, dest: method.raw_switch_image}
  - link: {source: method.image, dest: result}
`

func newTestServer(t *testing.T, opts ...Option) (http.Handler, *session.Manager) {
	t.Helper()
	catalog, err := memory.NewCatalog(domain.ProcessSpec{Module: "fsl.BET", Params: []domain.ParamSpec{
		{Name: "in_file", Type: "file"},
		{Name: "out_file", Type: "file", Output: true},
	}})
	require.NoError(t, err)
	m := session.NewManager(memory.NewStore(), session.WithCatalog(catalog))
	handler, err := NewHandler(m, opts...)
	require.NoError(t, err)
	return handler, m
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func put(t *testing.T, h http.Handler) {
	t.Helper()
	body, err := json.Marshal(documentRequest{Document: demo})
	require.NoError(t, err)
	w := do(t, h, "PUT", "/pipelines/demo", string(body))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestPipelineLifecycle(t *testing.T) {
	h, _ := newTestServer(t)
	put(t, h)

	w := do(t, h, "GET", "/pipelines", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"pipelines":["demo"]}`, w.Body.String())

	w = do(t, h, "GET", "/pipelines/demo", "")
	require.Equal(t, http.StatusOK, w.Code)
	var summary PipelineSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.Nodes)
	assert.Equal(t, []string{"t1", "result"}, summary.Exports)

	w = do(t, h, "GET", "/pipelines/demo/document?format=xml", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `<switch name="method" selected="brain">`)

	w = do(t, h, "DELETE", "/pipelines/demo", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, "GET", "/pipelines/demo", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestValidation(t *testing.T) {
	h, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"missing document", "PUT", "/pipelines/demo", `{}`},
		{"empty document", "PUT", "/pipelines/demo", `{"document":""}`},
		{"unknown format", "GET", "/pipelines/demo/document?format=json", ""},
		{"link without dest", "POST", "/pipelines/demo/links", `{"source":"t1"}`},
		{"enabled not bool", "PUT", "/pipelines/demo/nodes/bet/enabled", `{"enabled":"no"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestCreateRejectsInvalidDocument(t *testing.T) {
	h, _ := newTestServer(t)
	body, _ := json.Marshal(documentRequest{Document: `<pipeline capsul_xml="9.0"/>`})
	w := do(t, h, "PUT", "/pipelines/demo", string(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "version")
}

func TestEditsReportTransitions(t *testing.T) {
	h, m := newTestServer(t)
	put(t, h)

	w := do(t, h, "PUT", "/pipelines/demo/switches/method", `{"selected":"raw"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res EditResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Contains(t, res.Transitions, domain.Transition{Node: "method", Plug: "brain_switch_image", Activated: false})
	assert.Contains(t, res.Transitions, domain.Transition{Node: "method", Plug: "raw_switch_image", Activated: true})

	err := m.View(context.Background(), "demo", func(g *graph.Graph) error {
		n, _ := g.Node("method")
		assert.Equal(t, "raw", n.(*graph.Switch).Selected(), "the edit is stored")
		return nil
	})
	require.NoError(t, err)

	w = do(t, h, "PUT", "/pipelines/demo/nodes/bet/enabled", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Contains(t, res.Transitions, domain.Transition{Node: "bet", Activated: false})

	w = do(t, h, "PUT", "/pipelines/demo/switches/method", `{"selected":"other"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, h, "PUT", "/pipelines/demo/nodes/ghost/enabled", `{"enabled":true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, h, "POST", "/pipelines/demo/links", `{"source":"bet.out_file","dest":"bet.in_file"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "in_file already has a source")
}

func TestQueries(t *testing.T) {
	h, _ := newTestServer(t)
	put(t, h)

	w := do(t, h, "GET", "/pipelines/demo/nodes", "")
	require.Equal(t, http.StatusOK, w.Code)
	var nodes []graph.NodeInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &nodes))
	require.Len(t, nodes, 2)
	assert.Equal(t, "bet", nodes[0].Name)
	assert.Equal(t, "brain", nodes[1].Selected)

	w = do(t, h, "GET", "/pipelines/demo/links", "")
	require.Equal(t, http.StatusOK, w.Code)
	var links []graph.LinkInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &links))
	assert.Len(t, links, 4)

	w = do(t, h, "GET", "/pipelines/demo/activation", "")
	require.Equal(t, http.StatusOK, w.Code)
	var state map[string]graph.NodeState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.True(t, state["bet"].Activated)
	assert.True(t, state[""].Plugs["result"])

	w = do(t, h, "GET", "/pipelines/demo/record", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "+bet\n")

	w = do(t, h, "GET", "/pipelines/demo/nodes", "")
	assert.Equal(t, http.StatusOK, w.Code, "queries do not break the stored pipeline")
}

func TestCheckFiles(t *testing.T) {
	h, _ := newTestServer(t, WithFileCheck(func(string) bool { return false }))
	put(t, h)

	w := do(t, h, "PUT", "/pipelines/demo/values", `{"ref":"t1","value":"/data/t1.nii"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, "GET", "/pipelines/demo/files", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/data/t1.nii")
}

func TestMetricsAndDocs(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	h, _ := newTestServer(t, WithMetrics(reg))

	w := do(t, h, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, "GET", "/openapi.yaml", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Pipegraph API")
	w = do(t, h, "GET", "/info", "")
	assert.Contains(t, w.Body.String(), `"app":"pipegraph-http"`)
}

func TestSubscribeEvents(t *testing.T) {
	h, _ := newTestServer(t)
	put(t, h)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/pipelines/demo/events?nodes=bet", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	// the switch edit is filtered out, the bet edit is not
	do(t, h, "PUT", "/pipelines/demo/switches/method", `{"selected":"raw"}`)
	do(t, h, "PUT", "/pipelines/demo/nodes/bet/enabled", `{"enabled":false}`)

	var data string
	for lines.Scan() {
		if strings.HasPrefix(lines.Text(), "data: {") {
			data = strings.TrimPrefix(lines.Text(), "data: ")
			break
		}
	}
	var res EditResult
	require.NoError(t, json.Unmarshal([]byte(data), &res))
	require.NotEmpty(t, res.Transitions)
	for _, tr := range res.Transitions {
		assert.Equal(t, "bet", tr.Node)
	}
}
