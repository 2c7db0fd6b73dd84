package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stormwater-tools/stormstats/api"
	"github.com/stormwater-tools/stormstats/internal/config"
	"github.com/stormwater-tools/stormstats/internal/db"
	"github.com/stormwater-tools/stormstats/internal/swaggerui"
)

type testEnv struct {
	srv *Server
	db  *db.DB
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Port:               0,
		StateDir:           t.TempDir(),
		SpecURL:            "/api/openapi.yaml",
		LogLevel:           "info",
		DrainIntervalHours: 12,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithConfig(t, testConfig(t))
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	doc, err := api.Load(context.Background())
	require.NoError(t, err)

	return &testEnv{
		srv: New(cfg, zap.NewNop().Sugar(), database, doc),
		db:  database,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	e.srv.mux.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type failingLibrary struct{ calls int }

func (l *failingLibrary) Slots() []swaggerui.Slot { return nil }

func (l *failingLibrary) Init(swaggerui.Config) (*swaggerui.UI, error) {
	l.calls++
	return nil, errors.New("bundle unavailable")
}

func TestDocsPageCarriesSpecURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.SpecURL = "/api/v1/openapi.yaml"
	e := newTestEnvWithConfig(t, cfg)

	w := e.do(t, "GET", "/api/docs/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	doc, err := swaggerui.ParseDocument(w.Body)
	require.NoError(t, err)
	url, err := swaggerui.SpecURL(doc)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/openapi.yaml", url)
}

func TestDocsRedirect(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, "GET", "/api/docs", "")
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, DocsPath, w.Header().Get("Location"))
}

func TestInitializerBeforeLoad(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, "GET", InitializerPath, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLoadDocs(t *testing.T) {
	cfg := testConfig(t)
	cfg.SpecURL = "/api/v1/openapi.yaml"
	e := newTestEnvWithConfig(t, cfg)

	ui, err := e.srv.LoadDocs()
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/openapi.yaml", ui.Config().SpecURL)
	assert.Equal(t, []string{swaggerui.InfoURLSuppressionName}, ui.Config().PluginNames())

	published, ok := e.srv.Widget().UI()
	require.True(t, ok)
	assert.Same(t, ui, published)

	w := e.do(t, "GET", InitializerPath, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "javascript")
	script := w.Body.String()
	assert.Contains(t, script, `url: "/api/v1/openapi.yaml",`)
	assert.Contains(t, script, "window.ui = SwaggerUIBundle({")
	assert.NotContains(t, script, "SwaggerUIStandalonePreset")

	_, err = e.srv.LoadDocs()
	assert.ErrorIs(t, err, swaggerui.ErrAlreadyLoaded)
}

func TestLoadDocsLibraryFailure(t *testing.T) {
	e := newTestEnv(t)
	lib := &failingLibrary{}

	_, err := e.srv.loadDocs(lib)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bundle unavailable")
	assert.Equal(t, 1, lib.calls)

	_, ok := e.srv.Widget().UI()
	assert.False(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, e.do(t, "GET", InitializerPath, "").Code)
}

func TestDocsAssets(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, "GET", AssetsPath+"swagger-ui.css", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotZero(t, w.Body.Len())

	assert.Equal(t, http.StatusNotFound, e.do(t, "GET", AssetsPath+"index.html", "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, "GET", AssetsPath+"swagger-ui-standalone-preset.js", "").Code)
}

func TestIndex(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, "GET", "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<h1")
	assert.Contains(t, body, "/api/rainflow")
	assert.Contains(t, body, "Interactive docs are not available")

	_, err := e.srv.LoadDocs()
	require.NoError(t, err)
	body = e.do(t, "GET", "/", "").Body.String()
	assert.Contains(t, body, `href="/api/docs/#/statistics/postRain"`)
	assert.NotContains(t, body, "Interactive docs are not available")
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	out := string(renderMarkdown([]byte("# Title\n\n<script>alert(1)</script>\n\n[x](javascript:alert(1))")))
	assert.Contains(t, out, "<h1")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "javascript:")
}

func TestOpenAPIRoutes(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, "GET", "/api/openapi.yaml", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	assert.True(t, bytes.Equal(api.OpenAPISpec, w.Body.Bytes()))

	w = e.do(t, "GET", "/api/openapi.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	out := decodeBody(t, w)
	assert.Equal(t, "3.0.3", out["openapi"])
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)

	out := decodeBody(t, e.do(t, "GET", "/api/health", ""))
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, false, out["docs"])

	_, err := e.srv.LoadDocs()
	require.NoError(t, err)
	out = decodeBody(t, e.do(t, "GET", "/api/health", ""))
	assert.Equal(t, true, out["docs"])
}

const rainBody = `{"rain": {
	"datetime": ["2021-09-24 10:00:00", "2021-09-24 10:05:00", "2021-09-24 23:10:00", "2021-09-24 23:20:00"],
	"rain": [0.5, 0.25, 0.5, 0.25]
}}`

const flowBody = `{
	"inflow1": {"datetime": ["2021-09-24 00:00:00", "2021-09-24 00:01:00"], "flow": [100, 100], "time_unit": "s"},
	"outflow": {"datetime": ["2021-09-24 00:00:00", "2021-09-24 00:01:00"], "flow": [25, 25], "time_unit": "s"}
}`

func TestRainAnalysis(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, "POST", "/api/rain", rainBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decodeBody(t, w)
	stats := out["statistics"].(map[string]any)
	assert.Equal(t, []any{"2021-09-24T10:00:00", "2021-09-24T23:10:00"}, stats["first_rain"])
	dry := stats["antecedent_dry_period"].([]any)
	assert.Nil(t, dry[0])
	assert.NotContains(t, out, "analysis_id")
}

func TestFlowAnalysis(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, "POST", "/api/flow", flowBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stats := decodeBody(t, w)["statistics"].(map[string]any)
	assert.Equal(t, []any{75.0}, stats["percent_change_volume"])
	inflow := stats["inflow1"].(map[string]any)
	assert.Equal(t, []any{6000.0}, inflow["runoff_volume"])
}

func TestRainFlowAnalysis(t *testing.T) {
	e := newTestEnv(t)

	body := `{
		"rain": {"datetime": ["2021-09-24 00:00:00", "2021-09-24 00:05:00"], "rain": [0.5, 0.25]},
		"inflow1": {"datetime": ["2021-09-24 00:00:00", "2021-09-24 00:01:00"], "flow": [1, 1], "time_unit": "min"}
	}`
	w := e.do(t, "POST", "/api/rainflow", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stats := decodeBody(t, w)["statistics"].(map[string]any)
	assert.Contains(t, stats, "rain")
	inflow := stats["inflow1"].(map[string]any)
	assert.Equal(t, []any{1.0}, inflow["runoff_volume"])
}

func TestAnalysisRejectsInvalidData(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name, path, body string
	}{
		{"not json", "/api/rain", `{`},
		{"empty body", "/api/rain", ` `},
		{"flow to rain", "/api/rain", flowBody},
		{"rain to flow", "/api/flow", rainBody},
		{"flow to rainflow", "/api/rainflow", flowBody},
		{"unknown series", "/api/flow", `{"snow": {"datetime": ["2021-09-24 00:00:00"], "snow": [1]}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := e.do(t, "POST", tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, map[string]any{"error": "Invalid data format"}, decodeBody(t, w))
		})
	}
}

func TestAnalysisMethodNotAllowed(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, http.StatusMethodNotAllowed, e.do(t, "GET", "/api/rain", "").Code)
}

func TestPersistedAnalyses(t *testing.T) {
	cfg := testConfig(t)
	cfg.Persist = true
	e := newTestEnvWithConfig(t, cfg)

	out := decodeBody(t, e.do(t, "POST", "/api/rain", rainBody))
	id, ok := out["analysis_id"].(string)
	require.True(t, ok, "persisted analyses carry an id")

	w := e.do(t, "GET", "/api/analyses/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody(t, w)
	assert.Equal(t, id, got["id"])
	assert.Equal(t, "rain", got["kind"])
	assert.Equal(t, out["statistics"], got["statistics"])

	decodeBody(t, e.do(t, "POST", "/api/flow", flowBody))
	list := decodeBody(t, e.do(t, "GET", "/api/analyses?limit=10", ""))
	assert.Len(t, list["analyses"], 2)

	list = decodeBody(t, e.do(t, "GET", "/api/analyses?limit=1&offset=1", ""))
	assert.Len(t, list["analyses"], 1)
}

func TestListAnalysesEmpty(t *testing.T) {
	e := newTestEnv(t)
	out := decodeBody(t, e.do(t, "GET", "/api/analyses", ""))
	assert.Equal(t, []any{}, out["analyses"])
}

func TestListAnalysesBadQuery(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, http.StatusBadRequest, e.do(t, "GET", "/api/analyses?limit=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, "GET", "/api/analyses?offset=x", "").Code)
}

func TestGetAnalysisNotFound(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, "GET", "/api/analyses/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "analysis not found", decodeBody(t, w)["error"])
}

func TestMetrics(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, "POST", "/api/rain", rainBody)

	w := e.do(t, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `stormstats_analyses_total{kind="rain",outcome="ok"}`)
	assert.Contains(t, w.Body.String(), "stormstats_rain_events_total")
}
