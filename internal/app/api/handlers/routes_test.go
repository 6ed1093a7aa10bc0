package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestRegisterRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1")
	RegisterCheckoutRoutes(g, nil)
	RegisterSubscriptionRoutes(g, nil)
	RegisterWebhookRoutes(g, nil)
	RegisterAdminRoutes(g.Group("/admin"), nil)

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("POST /api/v1/checkout"))
	require.True(t, contains("GET /api/v1/subscription"))
	require.True(t, contains("POST /api/v1/webhooks/payments"))
	require.True(t, contains("POST /api/v1/admin/orders/scan"))
}

func TestApiCreateCheckout_RejectsInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/checkout", ApiCreateCheckout(nil))

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"no items", `{"items":[]}`},
		{"zero quantity", `{"items":[{"product_id":"p1","quantity":0}]}`},
		{"missing product id", `{"items":[{"quantity":1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			require.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
