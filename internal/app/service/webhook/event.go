package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/fatflowers/storefront/internal/app/service/subscription"
	"github.com/fatflowers/storefront/pkg/types"
)

// Event types pushed by the gateway. Unrecognized types are acknowledged as
// no-ops for forward compatibility.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentSucceeded         = "payment.succeeded"
	EventPaymentFailed            = "payment.failed"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
)

// Event is the gateway's notification envelope.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// SessionObject is the payload of checkout-session events.
type SessionObject struct {
	ID       string            `json:"id"`
	Mode     types.SessionMode `json:"mode"`
	ChargeID string            `json:"charge_id"`
	Metadata map[string]string `json:"metadata"`
	// Subscription is present on subscription-mode completions.
	Subscription *subscription.GatewaySubscription `json:"subscription"`
}

// PaymentObject is the payload of payment.succeeded/failed events.
type PaymentObject struct {
	SessionID string            `json:"session_id"`
	ChargeID  string            `json:"charge_id"`
	Metadata  map[string]string `json:"metadata"`
}

func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("malformed event payload: %w", err)
	}
	if ev.ID == "" || ev.Type == "" {
		return nil, fmt.Errorf("malformed event payload: missing id or type")
	}
	return &ev, nil
}

func (e *Event) SessionObject() (*SessionObject, error) {
	var obj SessionObject
	if err := json.Unmarshal(e.Data.Object, &obj); err != nil {
		return nil, fmt.Errorf("malformed session object: %w", err)
	}
	if obj.Subscription != nil {
		obj.Subscription.Raw = e.Data.Object
	}
	return &obj, nil
}

func (e *Event) PaymentObject() (*PaymentObject, error) {
	var obj PaymentObject
	if err := json.Unmarshal(e.Data.Object, &obj); err != nil {
		return nil, fmt.Errorf("malformed payment object: %w", err)
	}
	return &obj, nil
}

func (e *Event) SubscriptionObject() (*subscription.GatewaySubscription, error) {
	var obj subscription.GatewaySubscription
	if err := json.Unmarshal(e.Data.Object, &obj); err != nil {
		return nil, fmt.Errorf("malformed subscription object: %w", err)
	}
	obj.Raw = e.Data.Object
	return &obj, nil
}
