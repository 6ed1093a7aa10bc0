package gateway

import (
	"context"

	"github.com/fatflowers/storefront/pkg/types"
)

// LineItem is one priced row of a checkout session. UnitAmount is in minor
// currency units as required by the gateway wire format.
type LineItem struct {
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int64  `json:"quantity"`
}

// SessionRequest is the provider-agnostic session-creation payload.
type SessionRequest struct {
	Mode       types.SessionMode `json:"mode"`
	LineItems  []LineItem        `json:"line_items"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
	// Metadata carries order_id/user_id plus an HMAC signature so the webhook
	// path can authenticate them independently of the body signature.
	Metadata map[string]string `json:"metadata"`
	// IdempotencyKey is forwarded as the call's own idempotency token; a
	// retried call must not create a second external session.
	IdempotencyKey string `json:"-"`
}

// Session is the gateway's handle for a pending checkout flow.
type Session struct {
	ID          string `json:"id"`
	RedirectURL string `json:"url"`
}

// SessionClient creates checkout sessions at the external gateway.
type SessionClient interface {
	CreateCheckoutSession(ctx context.Context, req *SessionRequest) (*Session, error)
}
