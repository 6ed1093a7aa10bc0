package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is one line of an order. UnitPrice is a snapshot of the product
// price at checkout time; the sum of subtotals equals Order.Subtotal.
type OrderItem struct {
	ID        string          `gorm:"column:id;type:uuid;primary_key" json:"id"`
	OrderID   string          `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	ProductID string          `gorm:"column:product_id;type:varchar(64);not null" json:"product_id"`
	Quantity  int64           `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(18,2);not null" json:"unit_price"`
	CreatedAt time.Time       `json:"created_at"`
}

func (OrderItem) TableName() string { return "order_item" }

func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}
