package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankflow/internal/infrastructure"
)

func newTestApplication(t *testing.T) *Application {
	t.Helper()

	tmp := t.TempDir()
	t.Setenv("BANKFLOW_SERVER_PORT", "18931")
	t.Setenv("BANKFLOW_LOGGING_OUTPUT", "console")
	t.Setenv("BANKFLOW_LOGGING_FILE_PATH", filepath.Join(tmp, "app.log"))
	t.Setenv("BANKFLOW_PATHS_DATA_DIR", filepath.Join(tmp, "data"))
	t.Setenv("BANKFLOW_PATHS_OUTPUT_DIR", filepath.Join(tmp, "output"))
	t.Setenv("BANKFLOW_PATHS_LOGS_DIR", filepath.Join(tmp, "logs"))

	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	app, err := NewApplication()
	require.NoError(t, err)
	return app
}

func TestNewApplication(t *testing.T) {
	app := newTestApplication(t)

	assert.NotNil(t, app.Config)
	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.Server)
	assert.NotNil(t, app.AnalysisService)
	assert.NotNil(t, app.HealthService)
	assert.Nil(t, app.WhoisClient)
	assert.DirExists(t, app.Config.Paths.OutputDir)
}

func TestApplicationRoutes(t *testing.T) {
	app := newTestApplication(t)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"health", http.MethodGet, "/api/health", http.StatusOK},
		{"version", http.MethodGet, "/api/health/version", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/nope", http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/api/health", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			app.Router.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestApplicationWhoisEnabled(t *testing.T) {
	t.Setenv("BANKFLOW_WHOIS_ENABLED", "true")
	app := newTestApplication(t)

	assert.NotNil(t, app.WhoisClient)
}

func TestApplicationStop(t *testing.T) {
	app := newTestApplication(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.Start(ctx, cancel))
	require.NoError(t, app.Stop(context.Background()))
}
