package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gamassss/click-tracker/internal/domain"
	"github.com/gamassss/click-tracker/internal/middleware"
	"github.com/gamassss/click-tracker/internal/mocks"
	"github.com/gamassss/click-tracker/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func setupTrackRouter(tracker ClickTracker, production bool) *gin.Engine {
	router := setupTestRouter()
	h := NewTrackHandler(tracker, production, "127.0.0.1")

	track := router.Group("/track", middleware.CORS())
	track.POST("/click", h.TrackClick)
	track.OPTIONS("/click", func(c *gin.Context) {})

	return router
}

func postClick(router *gin.Engine, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/track/click", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestTrackClick_Success(t *testing.T) {
	tracker := new(mocks.MockClickTracker)
	router := setupTrackRouter(tracker, false)

	tracker.On("TrackClick", mock.Anything,
		&domain.TrackClickRequest{Domain: "dub.sh", Key: "abc123"},
		mock.MatchedBy(func(meta domain.RequestMeta) bool {
			return meta.IP == "127.0.0.1" &&
				meta.Referer == "https://acme.com/" &&
				meta.Country == "US"
		}),
	).Return(&domain.TrackClickResponse{ClickID: "aBcDeFgHiJkLmNoP"}, nil).Once()

	w := postClick(router, `{"domain":"dub.sh","key":"abc123"}`, map[string]string{
		"Referer":             "https://acme.com/",
		"X-Forwarded-For":     "9.9.9.9",
		"X-Vercel-IP-Country": "us",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"clickId":"aBcDeFgHiJkLmNoP","partner":null,"discount":null}`, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	tracker.AssertExpectations(t)
}

func TestTrackClick_ProductionUsesClientIP(t *testing.T) {
	tracker := new(mocks.MockClickTracker)
	router := setupTrackRouter(tracker, true)

	tracker.On("TrackClick", mock.Anything, mock.Anything,
		mock.MatchedBy(func(meta domain.RequestMeta) bool { return meta.IP == "1.2.3.4" }),
	).Return(&domain.TrackClickResponse{ClickID: "aBcDeFgHiJkLmNoP"}, nil).Once()

	w := postClick(router, `{"domain":"dub.sh","key":"abc123"}`, map[string]string{
		"X-Forwarded-For": "1.2.3.4, 10.0.0.1",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	tracker.AssertExpectations(t)
}

func TestTrackClick_BadRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "invalid json", body: `{"domain":`, message: "Invalid JSON body."},
		{name: "missing domain", body: `{"key":"abc123"}`, message: "domain is required"},
		{name: "missing key", body: `{"domain":"dub.sh"}`, message: "key is required"},
		{name: "bad url", body: `{"domain":"dub.sh","key":"abc123","url":"not a url"}`, message: "url must be a valid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := new(mocks.MockClickTracker)
			router := setupTrackRouter(tracker, false)

			w := postClick(router, tt.body, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			env := decodeError(t, w)
			assert.Equal(t, "bad_request", env.Error.Code)
			assert.Equal(t, tt.message, env.Error.Message)
			tracker.AssertNotCalled(t, "TrackClick", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestTrackClick_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "not found", err: apperror.NotFound("Link not found for domain: dub.sh and key: nope."), status: http.StatusNotFound, code: "not_found"},
		{name: "forbidden", err: apperror.Forbidden("Request origin 'evil.com' is not included"), status: http.StatusForbidden, code: "forbidden"},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: "internal_server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := new(mocks.MockClickTracker)
			router := setupTrackRouter(tracker, false)
			tracker.On("TrackClick", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			w := postClick(router, `{"domain":"dub.sh","key":"nope"}`, nil)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
			env := decodeError(t, w)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.NotContains(t, env.Error.Message, "boom")
		})
	}
}

func TestTrackClick_Preflight(t *testing.T) {
	router := setupTrackRouter(new(mocks.MockClickTracker), false)

	req := httptest.NewRequest(http.MethodOptions, "/track/click", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}

func setupCacheRouter(cache LinkInvalidator, token string) *gin.Engine {
	router := setupTestRouter()
	h := NewCacheHandler(cache, token)
	router.DELETE("/api/cache/links/:domain/:key", h.DeleteLink)
	return router
}

func deleteLink(router *gin.Engine, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodDelete, "/api/cache/links/Dub.sh/abc123", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCacheHandler_DeleteLink(t *testing.T) {
	cache := new(mocks.MockLinkInvalidator)
	router := setupCacheRouter(cache, "s3cret")

	cache.On("DeleteLink", mock.Anything, "dub.sh", "abc123").Return(nil).Once()

	w := deleteLink(router, "Bearer s3cret")

	assert.Equal(t, http.StatusNoContent, w.Code)
	cache.AssertExpectations(t)
}

func TestCacheHandler_Unauthorized(t *testing.T) {
	cache := new(mocks.MockLinkInvalidator)
	router := setupCacheRouter(cache, "s3cret")

	for _, auth := range []string{"", "Bearer wrong", "s3cret"} {
		w := deleteLink(router, auth)
		assert.Equal(t, http.StatusUnauthorized, w.Code, auth)
	}
	cache.AssertNotCalled(t, "DeleteLink", mock.Anything, mock.Anything, mock.Anything)
}

func TestCacheHandler_DisabledWithoutToken(t *testing.T) {
	cache := new(mocks.MockLinkInvalidator)
	router := setupCacheRouter(cache, "")

	w := deleteLink(router, "Bearer anything")

	assert.Equal(t, http.StatusNotFound, w.Code)
	cache.AssertNotCalled(t, "DeleteLink", mock.Anything, mock.Anything, mock.Anything)
}

func TestHealthHandler_Readyz(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := NewHealthHandler("test", map[string]HealthCheck{
		"redis": RedisCheck(client),
	})
	router := setupTestRouter()
	router.GET("/readyz", h.Readyz)
	router.GET("/healthz", h.Healthz)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "up", resp.Status)
	assert.Equal(t, "up", resp.Checks["redis"].Status)
	assert.Equal(t, "test", resp.Metadata.Version)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthHandler_ReadyzDown(t *testing.T) {
	h := NewHealthHandler("test", map[string]HealthCheck{
		"database": func(context.Context) error { return errors.New("connection refused") },
		"redis":    func(context.Context) error { return nil },
	})
	router := setupTestRouter()
	router.GET("/readyz", h.Readyz)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "down", resp.Status)
	assert.Equal(t, "connection refused", resp.Checks["database"].Message)
	assert.Equal(t, "up", resp.Checks["redis"].Status)
}
