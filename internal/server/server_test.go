package server

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feedreader/internal/core"
	"feedreader/internal/features/reader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, auth core.AuthConfig) *Server {
	t.Helper()
	return newLoggedTestServer(t, auth, io.Discard, "error")
}

func newLoggedTestServer(t *testing.T, auth core.AuthConfig, w io.Writer, level string) *Server {
	t.Helper()

	logger := core.NewLoggerWithOptions(w, core.LogConfig{Level: level})
	db, err := core.OpenSQLite(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	config := &core.Config{
		Server:   core.ServerConfig{Host: "127.0.0.1", Port: 3000},
		Database: core.DatabaseConfig{Path: ":memory:"},
		Auth:     auth,
		Features: core.FeatureConfig{Reader: core.ReaderConfig{
			Enabled:              true,
			FetchTimeoutSeconds:  5,
			MaxConcurrentFetches: 2,
		}},
	}

	registry := core.NewRegistry(logger)
	require.NoError(t, registry.Register(reader.NewFeature(logger, db, reader.NewConfig(config))))
	require.NoError(t, registry.MigrateAll(context.Background()))
	require.NoError(t, registry.InitAll(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		registry.ShutdownAll(ctx)
	})

	return New(config, logger, db, registry)
}

func get(t *testing.T, srv *Server, path string, creds ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if len(creds) == 2 {
		req.SetBasicAuth(creds[0], creds[1])
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer(t, core.AuthConfig{})

	rec := get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = get(t, srv, "/features")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reader"`)

	rec = get(t, srv, "/api/stats")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread":0,"read":0,"starred":0}`, rec.Body.String())

	rec = get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "feedreader_articles_ingested_total")
}

func TestServerBasicAuth(t *testing.T) {
	srv := newTestServer(t, core.AuthConfig{Username: "reader", Password: "secret"})

	assert.Equal(t, http.StatusOK, get(t, srv, "/health").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, srv, "/api/unread").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, srv, "/api/unread", "reader", "wrong").Code)
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/unread", "reader", "secret").Code)
}

func TestServerCompressesResponses(t *testing.T) {
	srv := newTestServer(t, core.AuthConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	reader, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.JSONEq(t, `{"unread":0,"read":0,"starred":0}`, string(body))

	assert.Empty(t, get(t, srv, "/api/stats").Header().Get("Content-Encoding"))
}

func TestServerShutdownLogsDatabaseStats(t *testing.T) {
	var buf bytes.Buffer
	srv := newLoggedTestServer(t, core.AuthConfig{}, &buf, "info")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.Contains(t, buf.String(), "Database stats")
}
