package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/storefront/pkg/types"
)

// Subscription is the local view of a recurring-billing relationship. It is
// created and mutated only by the subscription service acting on verified
// gateway events, never by the checkout path.
type Subscription struct {
	ID     string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	PlanID string `gorm:"column:plan_id;type:varchar(64);not null" json:"plan_id"`
	// GatewaySubscriptionID is the provider's identity for this relationship;
	// the unique index makes concurrent creation race-safe.
	GatewaySubscriptionID string                   `gorm:"column:gateway_subscription_id;type:varchar(128);not null;uniqueIndex" json:"gateway_subscription_id"`
	Status                types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	ExpiresAt             *time.Time               `gorm:"column:expires_at;default:null" json:"expires_at"`
	// Extra stores provider payload fragments useful for debugging.
	Extra     datatypes.JSON `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Subscription) TableName() string { return "subscription" }

func (s *Subscription) Valid() bool {
	return s != nil &&
		s.Status == types.SubscriptionStatusActive &&
		s.ExpiresAt != nil &&
		s.ExpiresAt.After(time.Now())
}
