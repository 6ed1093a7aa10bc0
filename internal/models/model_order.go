package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fatflowers/storefront/pkg/types"
)

// Order is a customer's purchase intent. It is created together with its
// Payment inside one transaction and only reaches a terminal status through
// webhook reconciliation.
type Order struct {
	ID     string            `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string            `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Status types.OrderStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	// IdempotencyKey dedups client retries. The unique index is the
	// authoritative guard; any cache lookup is advisory only.
	IdempotencyKey string          `gorm:"column:idempotency_key;type:varchar(128);not null;uniqueIndex" json:"idempotency_key"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(18,2);not null" json:"subtotal"`
	Tax            decimal.Decimal `gorm:"column:tax;type:numeric(18,2);not null" json:"tax"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:numeric(18,2);not null" json:"total_amount"`
	// GatewaySessionID is attached in a second short transaction once the
	// checkout session exists, so a gateway outage leaves a plain Pending row.
	GatewaySessionID *string      `gorm:"column:gateway_session_id;type:varchar(128);index" json:"gateway_session_id"`
	Items            []*OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) Terminal() bool {
	return o != nil && o.Status.Terminal()
}
