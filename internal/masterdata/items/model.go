package items

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a stock-keeping master record. Document lines and inventory
// movements reference it; they never own it.
type Item struct {
	ID           int64           `json:"id"`
	CompanyID    int64           `json:"company_id"`
	Code         string          `json:"code" validate:"required,max=100"`
	Name         string          `json:"name" validate:"required,max=255"`
	HSN          string          `json:"hsn,omitempty" validate:"max=10"`
	SAC          string          `json:"sac,omitempty" validate:"max=10"`
	UOM          string          `json:"uom" validate:"max=20"`
	Category     string          `json:"category,omitempty" validate:"max=100"`
	Rate         decimal.Decimal `json:"rate"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	OpeningStock decimal.Decimal `json:"opening_stock"`
	OpeningValue decimal.Decimal `json:"opening_value"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
