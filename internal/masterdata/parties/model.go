package parties

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type distinguishes customers from suppliers.
type Type string

const (
	TypeCustomer Type = "Customer"
	TypeSupplier Type = "Supplier"
)

// Party is a customer or supplier master record.
type Party struct {
	ID             int64           `json:"id"`
	CompanyID      int64           `json:"company_id"`
	Name           string          `json:"name" validate:"required,max=255"`
	Type           Type            `json:"type" validate:"required,oneof=Customer Supplier"`
	Address        string          `json:"address,omitempty"`
	City           string          `json:"city,omitempty" validate:"max=100"`
	State          string          `json:"state,omitempty" validate:"max=100"`
	Pincode        string          `json:"pincode,omitempty" validate:"max=20"`
	Contact        string          `json:"contact,omitempty" validate:"max=20"`
	Email          string          `json:"email,omitempty" validate:"omitempty,email,max=255"`
	GSTIN          string          `json:"gstin,omitempty" validate:"omitempty,len=15,alphanum"`
	PAN            string          `json:"pan,omitempty" validate:"omitempty,len=10,alphanum"`
	Classification string          `json:"classification,omitempty" validate:"max=100"`
	CreditLimit    decimal.Decimal `json:"credit_limit"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
