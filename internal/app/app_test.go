package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/recipegrid/internal/catalog"
	"github.com/specialistvlad/recipegrid/internal/engine"
	"github.com/specialistvlad/recipegrid/internal/params"
	"github.com/specialistvlad/recipegrid/internal/registry"
	"github.com/specialistvlad/recipegrid/internal/report"
	"github.com/specialistvlad/recipegrid/internal/scheduler"
	"github.com/specialistvlad/recipegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const bundledRecipes = "../../recipes"

// evidenceDir creates a directory with one file containing a keyword.
func evidenceDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("user=admin\npassword=hunter2\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("nothing here\n"), 0o600))
	return dir
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(Config{RecipesPaths: []string{"recipes"}})
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, report.FormatText, cfg.ReportFormat)

	testCases := []struct {
		name string
		cfg  Config
	}{
		{name: "no recipes", cfg: Config{}},
		{name: "bad log format", cfg: Config{RecipesPaths: []string{"r"}, LogFormat: "xml"}},
		{name: "bad log level", cfg: Config{RecipesPaths: []string{"r"}, LogLevel: "trace"}},
		{name: "bad report format", cfg: Config{RecipesPaths: []string{"r"}, ReportFormat: "pdf"}},
		{name: "negative parallelism", cfg: Config{RecipesPaths: []string{"r"}, MaxParallel: -1}},
		{name: "bad port", cfg: Config{RecipesPaths: []string{"r"}, HealthcheckPort: 99999}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestNewApp_LoadsBundledRecipes(t *testing.T) {
	a, _, _ := SetupAppTest(t, &Config{RecipesPaths: []string{bundledRecipes}})

	assert.Equal(t, []string{"live_share", "local_grep", "upload_evidence"}, a.Catalog().Names())
	for _, kind := range []string{"LocalFilesystemCollector", "GrepProcessor", "PrintExporter", "HTTPExporter", "SocketIOExporter"} {
		assert.True(t, a.Registry().Has(kind), kind)
	}
}

func TestNewApp_MissingRecipesPath(t *testing.T) {
	cfg, err := NewConfig(Config{RecipesPaths: []string{filepath.Join(t.TempDir(), "nope")}})
	require.NoError(t, err)
	_, err = NewApp(&testutil.SafeBuffer{}, &testutil.SafeBuffer{}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load recipes")
}

func TestRun_LocalGrep(t *testing.T) {
	dir := evidenceDir(t)
	a, out, logs := SetupAppTest(t, &Config{RecipesPaths: []string{bundledRecipes}})

	res, err := a.Run(context.Background(), "local_grep", params.Strings(map[string]string{"paths": dir}))
	require.NoError(t, err)
	require.Equal(t, scheduler.Completed, res.Verdict)

	got := out.String()
	assert.Contains(t, got, "password=hunter2")
	assert.Contains(t, got, "local_grep: Completed")
	assert.NotContains(t, got, "nothing here")
	assert.Contains(t, logs.String(), "Starting pipeline run")
}

func TestRun_JSONReportAndHistory(t *testing.T) {
	dir := evidenceDir(t)
	historyDB := filepath.Join(t.TempDir(), "history.db")
	a, out, _ := SetupAppTest(t, &Config{
		RecipesPaths: []string{bundledRecipes},
		ReportFormat: report.FormatJSON,
		HistoryDB:    historyDB,
	}, &quietModules{})

	res, err := a.Run(context.Background(), "local_grep", params.Strings(map[string]string{"paths": dir}))
	require.NoError(t, err)

	var doc report.RunDocument
	require.NoError(t, json.Unmarshal([]byte(out.String()), &doc))
	assert.Equal(t, res.RunID, doc.RunID)
	assert.Equal(t, string(scheduler.Completed), doc.Verdict)

	runs, err := a.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)
	assert.Equal(t, "local_grep", runs[0].Recipe)
	assert.Len(t, runs[0].Modules, 3)
}

func TestRun_SchemaErrorWritesNoReport(t *testing.T) {
	a, out, _ := SetupAppTest(t, &Config{RecipesPaths: []string{bundledRecipes}})

	res, err := a.Run(context.Background(), "local_grep", nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, params.ErrMissingRequiredParameter)
	assert.Empty(t, out.String())

	_, err = a.Run(context.Background(), "no_such_recipe", nil)
	assert.ErrorIs(t, err, catalog.ErrRecipeNotFound)
}

func TestRun_SetupFailure(t *testing.T) {
	a, _, _ := SetupAppTest(t, &Config{RecipesPaths: []string{bundledRecipes}})

	_, err := a.Run(context.Background(), "upload_evidence", map[string]cty.Value{
		"paths": cty.StringVal(t.TempDir()),
		"url":   cty.StringVal("ftp://example.com/upload"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrSetupFailed)
}

func TestHistory_Disabled(t *testing.T) {
	a, _, _ := SetupAppTest(t, &Config{RecipesPaths: []string{bundledRecipes}})
	_, err := a.History(context.Background(), 5)
	assert.True(t, errors.Is(err, ErrHistoryDisabled))
}

func TestGraph(t *testing.T) {
	a, _, _ := SetupAppTest(t, &Config{RecipesPaths: []string{bundledRecipes}})

	var buf testutil.SafeBuffer
	require.NoError(t, a.Graph(&buf, "local_grep"))
	got := buf.String()
	assert.Contains(t, got, "```mermaid")
	assert.Contains(t, got, "LocalFilesystemCollector-->GrepProcessor")
	assert.Contains(t, got, "GrepProcessor-->PrintExporter")

	assert.ErrorIs(t, a.Graph(&buf, "missing"), catalog.ErrRecipeNotFound)
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	dir := evidenceDir(t)
	a, _, _ := SetupAppTest(t, &Config{RecipesPaths: []string{bundledRecipes}})
	_, err := a.Run(context.Background(), "local_grep", params.Strings(map[string]string{"paths": dir}))
	require.NoError(t, err)

	srv := httptest.NewServer(a.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `recipegrid_runs_total{verdict="Completed"} 1`)
	assert.Contains(t, rec.Body.String(), "recipegrid_module_duration_seconds")
}

func TestHealthCheckServer_Lifecycle(t *testing.T) {
	a, _, logs := SetupAppTest(t, &Config{RecipesPaths: []string{bundledRecipes}})
	a.config.HealthcheckPort = 0
	a.healthCheckServer()
	assert.Nil(t, a.httpServer)
	require.NoError(t, a.closeHealthCheckServer())
	assert.Contains(t, logs.String(), "Health check server not started: disabled")
}

// quietModules registers the core modules with PrintExporter writing
// nowhere, so the JSON report is the only thing written to the output.
type quietModules struct{}

func (quietModules) Register(r *registry.Registry) {
	for _, m := range coreModules(&testutil.SafeBuffer{}) {
		m.Register(r)
	}
}
