package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pa-gateway/internal/platform/jwtauth"
	"pa-gateway/internal/verify/handler"
	"pa-gateway/internal/verify/models"
	"pa-gateway/pkg/requestcontext"
)

type captureService struct {
	got models.Request
	ctx context.Context
}

func (c *captureService) Verify(ctx context.Context, req models.Request) *models.Result {
	c.ctx = ctx
	c.got = req
	return &models.Result{Status: models.StatusSuccess}
}

func testRouter(t *testing.T, svc handler.Service, checks map[string]HealthCheck) (http.Handler, *jwtauth.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auth := jwtauth.New("test-signing-key", "pa-gateway", "inspection-systems")
	h := handler.New(svc, logger)
	return NewRouter(h, auth, logger, checks), auth
}

func verifyBody() string {
	return `{"issuing_country":"UT","sod":"c29k"}`
}

func TestRouter_VerifyRequiresAuth(t *testing.T) {
	router, _ := testRouter(t, &captureService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/verify", strings.NewReader(verifyBody()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_VerifyRejectsBadToken(t *testing.T) {
	router, _ := testRouter(t, &captureService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/verify", strings.NewReader(verifyBody()))
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_VerifyWithValidToken(t *testing.T) {
	svc := &captureService{}
	router, auth := testRouter(t, svc, nil)

	token, err := auth.GenerateToken("inspector-1", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/verify", strings.NewReader(verifyBody()))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", "pa-client/1.0")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// Middleware metadata reaches the service through the context.
	assert.Equal(t, "inspector-1", svc.got.Audit.Requester)
	assert.Equal(t, "203.0.113.9", svc.got.Audit.ClientIP)
	assert.Equal(t, "pa-client/1.0", svc.got.Audit.UserAgent)
	assert.False(t, requestcontext.Now(svc.ctx).IsZero())
	assert.NotEmpty(t, requestcontext.RequestID(svc.ctx))
}

func TestRouter_RequestIDIsHonored(t *testing.T) {
	svc := &captureService{}
	router, auth := testRouter(t, svc, nil)

	token, err := auth.GenerateToken("inspector-1", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/verify", strings.NewReader(verifyBody()))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", "caller-chosen-id")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "caller-chosen-id", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "caller-chosen-id", requestcontext.RequestID(svc.ctx))
}

func TestRouter_ExpiredTokenRejected(t *testing.T) {
	router, auth := testRouter(t, &captureService{}, nil)

	token, err := auth.GenerateToken("inspector-1", -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/verify", strings.NewReader(verifyBody()))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Healthz(t *testing.T) {
	t.Run("no checks", func(t *testing.T) {
		router, _ := testRouter(t, &captureService{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("failing dependency degrades", func(t *testing.T) {
		checks := map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		}
		router, _ := testRouter(t, &captureService{}, checks)

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "ok", resp.Checks["postgres"])
		assert.Contains(t, resp.Checks["redis"], "connection refused")
	})
}

func TestRouter_MetricsEndpointIsOpen(t *testing.T) {
	router, _ := testRouter(t, &captureService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
