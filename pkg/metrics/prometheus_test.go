package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestComputeApproximateRequestSize(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"items":[]}`))
	req.Header.Set("Content-Type", "application/json")

	size := computeApproximateRequestSize(req)
	require.Greater(t, size, 0)

	// A bigger body yields a bigger estimate.
	bigger := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(strings.Repeat("x", 1024)))
	bigger.Header.Set("Content-Type", "application/json")
	require.Greater(t, computeApproximateRequestSize(bigger), size)
}

func TestPrometheusHandler_ServesMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", prometheusHandler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "go_goroutines")
}
