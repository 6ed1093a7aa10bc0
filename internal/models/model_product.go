package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog row consulted at checkout time. Stock is only ever
// decremented through a conditional UPDATE so it can never go negative.
type Product struct {
	ID        string          `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Name      string          `gorm:"column:name;type:varchar(255);not null" json:"name"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(18,2);not null" json:"unit_price"`
	Stock     int64           `gorm:"column:stock;not null;default:0" json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Product) TableName() string { return "product" }
