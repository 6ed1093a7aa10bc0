package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionPlan is the purchasable plan catalog, seeded from configuration.
// Rows are treated as immutable once a Subscription references them.
type SubscriptionPlan struct {
	ID             string          `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	GatewayPriceID string          `gorm:"column:gateway_price_id;type:varchar(128);not null;uniqueIndex" json:"gateway_price_id"`
	Name           string          `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(18,2);not null" json:"price"`
	Currency       string          `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (SubscriptionPlan) TableName() string { return "subscription_plan" }
