package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fatflowers/storefront/pkg/types"
)

// Payment is the local record of a money-movement attempt, 1:1 with Order.
// Only the reconciliation dispatcher moves it to a terminal status.
type Payment struct {
	ID               string              `gorm:"column:id;type:uuid;primary_key" json:"id"`
	OrderID          string              `gorm:"column:order_id;type:uuid;not null;uniqueIndex" json:"order_id"`
	UserID           string              `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(18,2);not null" json:"amount"`
	Tax              decimal.Decimal     `gorm:"column:tax;type:numeric(18,2);not null" json:"tax"`
	Status           types.PaymentStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	GatewaySessionID *string             `gorm:"column:gateway_session_id;type:varchar(128);index" json:"gateway_session_id"`
	GatewayChargeID  *string             `gorm:"column:gateway_charge_id;type:varchar(128)" json:"gateway_charge_id"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func (Payment) TableName() string { return "payment" }

func (p *Payment) Terminal() bool {
	return p != nil && p.Status.Terminal()
}
