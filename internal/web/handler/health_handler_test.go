package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/freekieb7/neurovault-users/internal/health"
	"github.com/freekieb7/neurovault-users/internal/web/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error   { return p.err }
func (p stubPinger) Health(context.Context) error { return p.err }

func healthMux(dbErr error) *http.ServeMux {
	checker := health.NewChecker(stubPinger{dbErr}, stubPinger{}, slog.New(slog.NewTextHandler(io.Discard, nil)), "test", "testing")
	h := handler.NewHealthHandler(&checker)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func TestHealthEndpoints(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		dbErr  error
		status int
		want   string
	}{
		{"healthy", "/health", nil, http.StatusOK, health.StatusHealthy},
		{"database down", "/health", errors.New("db down"), http.StatusServiceUnavailable, health.StatusUnhealthy},
		{"ready", "/health/ready", nil, http.StatusOK, health.StatusHealthy},
		{"not ready", "/health/ready", errors.New("db down"), http.StatusServiceUnavailable, health.StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			healthMux(tt.dbErr).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")

			var body health.HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Status)
		})
	}
}

func TestHealthRejectsPost(t *testing.T) {
	rec := httptest.NewRecorder()
	healthMux(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health/live", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
