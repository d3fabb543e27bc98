package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getzep/reviewpulse/config"
	"github.com/getzep/reviewpulse/pkg/auth"
	"github.com/getzep/reviewpulse/pkg/models"
	"github.com/getzep/reviewpulse/pkg/testutils"
	"github.com/getzep/reviewpulse/pkg/textanalytics"
)

type testApp struct {
	appState    *models.AppState
	source      *testutils.FakeSourceStore
	destination *testutils.FakeDestinationStore
	service     *testutils.SentimentServer
}

func newTestApp(t *testing.T, records ...models.SourceRecord) *testApp {
	t.Helper()
	service := testutils.NewSentimentServer(t)

	cfg := config.Defaults()
	cfg.Analysis.Endpoint = service.URL
	cfg.Analysis.APIKey = "test-key"
	cfg.SourceStore.Postgres.DSN = "postgres://source"
	cfg.DestinationStore.Postgres.DSN = "postgres://destination"
	cfg.Auth.Secret = "test-secret"

	app := &testApp{
		source:      testutils.NewFakeSourceStore(records...),
		destination: testutils.NewFakeDestinationStore(),
		service:     service,
	}
	app.appState = &models.AppState{
		Config:           &cfg,
		SourceStore:      app.source,
		DestinationStore: app.destination,
		Annotator:        textanalytics.NewClientFromConfig(&cfg),
	}
	return app
}

func (a *testApp) do(t *testing.T, method, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	router, err := setupRouter(a.appState)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestProcessHandler(t *testing.T) {
	t.Run("no new data", func(t *testing.T) {
		app := newTestApp(t)

		res := app.do(t, http.MethodPost, "/api/v1/process", nil)

		assert.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "No new data to process.", res.Body.String())
		assert.True(t, strings.HasPrefix(res.Header().Get("Content-Type"), "text/plain"))
	})

	t.Run("records annotated", func(t *testing.T) {
		app := newTestApp(t, testutils.FakeRecords(12)...)

		res := app.do(t, http.MethodGet, "/api/v1/process", nil)

		assert.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "Sentiment analysis complete for 12 records.", res.Body.String())
		assert.Equal(t, 2, app.service.Calls())
		assert.Len(t, app.destination.Committed(), 12)
	})

	t.Run("service failure", func(t *testing.T) {
		app := newTestApp(t, testutils.FakeRecords(12)...)
		app.service.FailOnCall = 1

		res := app.do(t, http.MethodPost, "/api/v1/process", nil)

		assert.Equal(t, http.StatusInternalServerError, res.Code)
		assert.Equal(t, "Processing failed.", res.Body.String())
		// no status code or service body leaks to the caller
		assert.NotContains(t, res.Body.String(), "503")
		assert.Len(t, app.source.Pending(), 12)
	})

	t.Run("missing configuration", func(t *testing.T) {
		app := newTestApp(t, testutils.FakeRecords(2)...)
		app.appState.Config.Analysis.APIKey = ""

		res := app.do(t, http.MethodPost, "/api/v1/process", nil)

		assert.Equal(t, http.StatusInternalServerError, res.Code)
		assert.Equal(t, "Missing configuration", res.Body.String())
		assert.Equal(t, 0, app.service.Calls())
	})

	t.Run("client cancel does not abort the run", func(t *testing.T) {
		app := newTestApp(t, testutils.FakeRecords(25)...)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		app.service.OnCall = func(call int) {
			if call == 2 {
				cancel()
			}
		}

		router, err := setupRouter(app.appState)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/process", nil).WithContext(ctx)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		assert.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "Sentiment analysis complete for 25 records.", res.Body.String())
		assert.Equal(t, 3, app.service.Calls())
		assert.Len(t, app.destination.Committed(), 25)
		assert.Empty(t, app.source.Pending())
	})

	t.Run("method not allowed", func(t *testing.T) {
		app := newTestApp(t)

		res := app.do(t, http.MethodDelete, "/api/v1/process", nil)

		assert.Equal(t, http.StatusMethodNotAllowed, res.Code)
	})
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("auth required", func(t *testing.T) {
		app := newTestApp(t)
		app.appState.Config.Auth.Required = true

		res := app.do(t, http.MethodPost, "/api/v1/process", nil)
		require.Equal(t, http.StatusUnauthorized, res.Code)

		token, err := auth.GenerateJWT(app.appState.Config)
		require.NoError(t, err)
		res = app.do(t, http.MethodPost, "/api/v1/process", http.Header{
			"Authorization": []string{"Bearer " + token},
		})
		require.Equal(t, http.StatusOK, res.Code)
	})

	t.Run("auth not required", func(t *testing.T) {
		app := newTestApp(t)

		res := app.do(t, http.MethodPost, "/api/v1/process", nil)
		require.Equal(t, http.StatusOK, res.Code)
	})

	t.Run("health and metrics stay open", func(t *testing.T) {
		app := newTestApp(t)
		app.appState.Config.Auth.Required = true

		res := app.do(t, http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusOK, res.Code)

		res = app.do(t, http.MethodGet, "/metrics", nil)
		assert.Equal(t, http.StatusOK, res.Code)
	})

	t.Run("auth required without secret", func(t *testing.T) {
		app := newTestApp(t)
		app.appState.Config.Auth.Required = true
		app.appState.Config.Auth.Secret = ""

		_, err := setupRouter(app.appState)
		assert.ErrorIs(t, err, auth.ErrSecretNotSet)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, testutils.FakeRecords(3)...)
	app.do(t, http.MethodPost, "/api/v1/process", nil)

	res := app.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "reviewpulse_pipeline_runs_total")
	assert.Contains(t, res.Body.String(), "reviewpulse_annotation_calls_total")
}

func TestSendVersion(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	handler := SendVersion(nextHandler)

	req, err := http.NewRequest("GET", "/", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get(versionHeader) != config.VersionString {
		t.Errorf("handler returned wrong version header: got %v want %v",
			rr.Header().Get(versionHeader), config.VersionString)
	}
}

func TestCreate(t *testing.T) {
	app := newTestApp(t)
	app.appState.Config.Server.Host = "127.0.0.1"
	app.appState.Config.Server.Port = 8123

	srv, err := Create(app.appState)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8123", srv.Addr)
	assert.Equal(t, ReadHeaderTimeout, srv.ReadHeaderTimeout)
}
