package stock

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/billease/billease/internal/shared"
)

// Source identifies which table an Entry was read from.
type Source string

const (
	// SourcePurchase is a purchase order line; it contributes its received quantity.
	SourcePurchase Source = "purchase"
	// SourceSale is a sales invoice line; it removes its quantity.
	SourceSale Source = "sale"
	// SourceMovement is an inventory movement carrying a signed quantity.
	SourceMovement Source = "movement"
)

// Entry is one stock-affecting row for an item, typed at the store boundary.
type Entry struct {
	Source     Source
	DocumentID int64
	Status     shared.DocumentStatus
	Quantity   decimal.Decimal
}

// Opening is the carried-forward position of an item.
type Opening struct {
	ItemID       int64
	Code         string
	Name         string
	OpeningStock decimal.Decimal
	ReorderLevel decimal.Decimal
}

// MovementType enumerates manual adjustment directions.
type MovementType string

const (
	MovementIn  MovementType = "in"
	MovementOut MovementType = "out"
)

// Movement is a persisted inventory adjustment not tied to a document line.
type Movement struct {
	ID        int64           `json:"id"`
	CompanyID int64           `json:"company_id"`
	ItemID    int64           `json:"item_id"`
	Type      MovementType    `json:"movement_type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reference string          `json:"reference,omitempty"`
	Date      time.Time       `json:"movement_date"`
	CreatedBy int64           `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
}

// MovementInput describes a request to adjust stock. Quantity is the
// magnitude; the direction comes from Type.
type MovementInput struct {
	ItemID         int64           `json:"item_id" validate:"required,gt=0"`
	Type           MovementType    `json:"movement_type" validate:"required,oneof=in out"`
	Quantity       decimal.Decimal `json:"quantity"`
	Reference      string          `json:"reference" validate:"max=255"`
	Date           time.Time       `json:"movement_date"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" validate:"max=128"`
}

// Level reports stock on hand for an item against its reorder level.
type Level struct {
	ItemID       int64           `json:"item_id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	OnHand       decimal.Decimal `json:"on_hand"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
}

// ErrNegativeStock triggered when an out movement would drive stock below zero.
var ErrNegativeStock = errors.New("stock: negative stock not allowed")
