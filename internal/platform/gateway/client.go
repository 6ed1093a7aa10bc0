package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/storefront/pkg/config"
)

// ErrTransient wraps network-class gateway failures (timeouts, 429, 5xx).
// The retry policy only retries errors matching this sentinel.
var ErrTransient = errors.New("transient gateway error")

// ErrPermanent marks request-class failures (4xx) that retrying cannot fix.
var ErrPermanent = errors.New("gateway rejected request")

// IsTransient is the Retryable predicate used with pkg/retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// HTTPClient talks to the external payment gateway over HTTPS. It carries no
// per-request mutable state and is safe for concurrent use.
type HTTPClient struct {
	baseURL string
	apiKey  string
	hc      *http.Client
	log     *zap.SugaredLogger
}

func NewHTTPClient(cfg *cfgpkg.Config, log *zap.SugaredLogger) *HTTPClient {
	timeout := time.Duration(cfg.Gateway.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.Gateway.BaseURL,
		apiKey:  cfg.Gateway.APIKey,
		hc:      &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (c *HTTPClient) CreateCheckoutSession(ctx context.Context, req *SessionRequest) (*Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build session request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		// Timeouts and connection failures are retryable by definition.
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrTransient, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	default:
		c.log.Errorw("gateway rejected session request", "status", resp.StatusCode, "body", string(respBody))
		return nil, fmt.Errorf("%w: status %d", ErrPermanent, resp.StatusCode)
	}

	var session Session
	if err := json.Unmarshal(respBody, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}
	if session.ID == "" {
		return nil, fmt.Errorf("%w: session id missing in response", ErrPermanent)
	}
	return &session, nil
}
