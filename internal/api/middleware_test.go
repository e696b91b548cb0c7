package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/auth"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/config"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondError_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", &service.Error{Kind: service.KindValidation, Message: "title is required"}, http.StatusBadRequest, "title is required"},
		{"authorization", &service.Error{Kind: service.KindAuthorization, Message: "not authorized"}, http.StatusForbidden, "not authorized"},
		{"conflict", service.ErrAlreadyResolved, http.StatusConflict, "request already resolved"},
		{"not found", &service.Error{Kind: service.KindNotFound, Message: "data request not found"}, http.StatusNotFound, "data request not found"},
		{"unavailable hides cause", &service.Error{Kind: service.KindUnavailable, Message: "service temporarily unavailable", Err: errors.New("dial tcp 10.0.0.1:5432")}, http.StatusServiceUnavailable, "service temporarily unavailable"},
		{"wrapped", fmt.Errorf("approve: %w", service.ErrMinistryInUse), http.StatusConflict, service.ErrMinistryInUse.Message},
		{"unauthenticated", fmt.Errorf("%w: token expired", auth.ErrUnauthenticated), http.StatusUnauthorized, "authentication required"},
		{"identity store down", fmt.Errorf("%w: sql: database is closed", auth.ErrIdentityUnavailable), http.StatusServiceUnavailable, "service temporarily unavailable"},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid email or password"},
		{"unknown", errors.New("pq: relation does not exist"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			RespondError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.message)
			assert.NotContains(t, w.Body.String(), "10.0.0.1")
			assert.NotContains(t, w.Body.String(), "relation")
		})
	}
}

func TestErrorHandlerMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandlerMiddleware())
	router.GET("/api-error", func(c *gin.Context) {
		_ = c.Error(WrapError(errors.New("bad page size"), http.StatusBadRequest, "invalid query"))
	})
	router.GET("/service-error", func(c *gin.Context) {
		_ = c.Error(service.ErrAlreadyResolved)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api-error", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bad page size")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/service-error", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	var meta service.RequestMeta
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) {
		meta = service.RequestMetaFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	req.Header.Set("User-Agent", "exchange-ui/1.0")
	router.ServeHTTP(w, req)

	assert.Equal(t, "trace-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "trace-123", meta.RequestID)
	assert.Equal(t, "exchange-ui/1.0", meta.UserAgent)
	assert.NotEmpty(t, meta.IP)

	// 未提供时生成新的 ID
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestCORSMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware(config.CORSConfig{AllowedOrigins: []string{"https://exchange.gov"}}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://exchange.gov")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://exchange.gov", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(0.001, 2))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestNewLoggerFromConfig(t *testing.T) {
	logger, err := NewLoggerFromConfig(&config.LogConfig{Level: "warn", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	assert.Equal(t, "warning", logger.GetLevel().String())

	logger, err = NewLoggerFromConfig(&config.LogConfig{Level: "nonsense", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	assert.Equal(t, "info", logger.GetLevel().String())
}

func TestNewLoggerFromConfig_FileOutput(t *testing.T) {
	previous := LogDir
	LogDir = t.TempDir()
	defer func() { LogDir = previous }()

	logger, err := NewLoggerFromConfig(&config.LogConfig{Level: "info", Format: "json", Output: "file"})
	require.NoError(t, err)
	logger.WithField("request_id", "r-1").Info("data request created")

	raw, err := os.ReadFile(filepath.Join(LogDir, ServiceName+".log"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"service":"ministry-exchange"`)
	assert.Contains(t, string(raw), `"request_id":"r-1"`)
}
