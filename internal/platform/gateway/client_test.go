package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/storefront/pkg/config"
)

func newTestClient(baseURL string) *HTTPClient {
	cfg := &cfgpkg.Config{}
	cfg.Gateway.BaseURL = baseURL
	cfg.Gateway.APIKey = "sk_test"
	cfg.Gateway.TimeoutSec = 2
	return NewHTTPClient(cfg, zap.NewNop().Sugar())
}

func TestCreateCheckoutSession_Success(t *testing.T) {
	var gotReq SessionRequest
	var gotAuth, gotIdem string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "cs_123", "url": "https://pay.example/cs_123"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	session, err := c.CreateCheckoutSession(context.Background(), &SessionRequest{
		Mode:           "payment",
		LineItems:      []LineItem{{Name: "p1", UnitAmount: 1000, Quantity: 2}},
		Metadata:       map[string]string{"order_id": "o1"},
		IdempotencyKey: "idem-1",
	})

	require.NoError(t, err)
	require.Equal(t, "cs_123", session.ID)
	require.Equal(t, "https://pay.example/cs_123", session.RedirectURL)
	require.Equal(t, "Bearer sk_test", gotAuth)
	require.Equal(t, "idem-1", gotIdem)
	require.Len(t, gotReq.LineItems, 1)
	// The idempotency key travels as a header only, never in the body.
	require.Empty(t, gotReq.IdempotencyKey)
}

func TestCreateCheckoutSession_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"bad request", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).CreateCheckoutSession(context.Background(), &SessionRequest{})
			require.Error(t, err)
			require.Equal(t, tt.transient, IsTransient(err))
			if !tt.transient {
				require.ErrorIs(t, err, ErrPermanent)
			}
		})
	}
}

func TestCreateCheckoutSession_ConnectionFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv.URL).CreateCheckoutSession(context.Background(), &SessionRequest{})
	require.Error(t, err)
	require.True(t, IsTransient(err))
}

func TestCreateCheckoutSession_MissingSessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://pay.example/x"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateCheckoutSession(context.Background(), &SessionRequest{})
	require.ErrorIs(t, err, ErrPermanent)
}
