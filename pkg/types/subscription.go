package types

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusExpired    SubscriptionStatus = "expired"
	// SubscriptionStatusUnknown is the fallback for provider statuses this
	// service has no mapping for.
	SubscriptionStatusUnknown SubscriptionStatus = "unknown"
)

// MapGatewayStatus translates the gateway's subscription status strings into
// the local lifecycle. Unmapped values fall through to Unknown rather than
// failing the event.
func MapGatewayStatus(provider string) SubscriptionStatus {
	switch provider {
	case "incomplete", "incomplete_expired":
		return SubscriptionStatusIncomplete
	case "trialing":
		return SubscriptionStatusTrialing
	case "active":
		return SubscriptionStatusActive
	case "canceled":
		return SubscriptionStatusCanceled
	case "past_due", "unpaid":
		return SubscriptionStatusExpired
	}
	return SubscriptionStatusUnknown
}

type SubscriptionInfo struct {
	Status    SubscriptionStatus `json:"status"`
	PlanID    string             `json:"plan_id"`
	ExpiresAt *time.Time         `json:"expires_at"`
}
