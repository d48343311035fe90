// Package payroll keeps employee pay components and computes monthly
// payroll runs from them.
package payroll

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrLeaveOverflow is wrapped when a run claims more leave than remains.
var ErrLeaveOverflow = errors.New("payroll: leaves exceed remaining balance")

// Employee carries the pay components a run is derived from.
type Employee struct {
	ID          int64           `json:"id"`
	CompanyID   int64           `json:"company_id"`
	Code        string          `json:"employee_id" validate:"required,max=100"`
	Name        string          `json:"name" validate:"required,max=255"`
	Department  string          `json:"department,omitempty" validate:"max=100"`
	Designation string          `json:"designation,omitempty" validate:"max=100"`
	Basic       decimal.Decimal `json:"basic_salary"`
	HRA         decimal.Decimal `json:"hra"`
	Transport   decimal.Decimal `json:"transport"`
	Medical     decimal.Decimal `json:"medical"`
	Special     decimal.Decimal `json:"special"`
	PFRate      decimal.Decimal `json:"pf_rate"`
	ESIRate     decimal.Decimal `json:"esi_rate"`
	TotalLeaves int             `json:"total_leaves" validate:"min=0,max=366"`
	LeavesTaken int             `json:"leaves_taken" validate:"min=0"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// EmployeeInput is the create and update payload. A nil rate or allowance
// keeps the base value: the company default on create, the stored value on
// update. An explicit zero is kept as zero.
type EmployeeInput struct {
	Code        string           `json:"employee_id"`
	Name        string           `json:"name"`
	Department  string           `json:"department,omitempty"`
	Designation string           `json:"designation,omitempty"`
	Basic       decimal.Decimal  `json:"basic_salary"`
	HRA         decimal.Decimal  `json:"hra"`
	Transport   decimal.Decimal  `json:"transport"`
	Medical     decimal.Decimal  `json:"medical"`
	Special     decimal.Decimal  `json:"special"`
	PFRate      *decimal.Decimal `json:"pf_rate"`
	ESIRate     *decimal.Decimal `json:"esi_rate"`
	TotalLeaves *int             `json:"total_leaves"`
}

func (in EmployeeInput) apply(base Employee) Employee {
	e := base
	e.Code = strings.TrimSpace(in.Code)
	e.Name = strings.TrimSpace(in.Name)
	e.Department = strings.TrimSpace(in.Department)
	e.Designation = strings.TrimSpace(in.Designation)
	e.Basic, e.HRA, e.Transport, e.Medical, e.Special = in.Basic, in.HRA, in.Transport, in.Medical, in.Special
	if in.PFRate != nil {
		e.PFRate = *in.PFRate
	}
	if in.ESIRate != nil {
		e.ESIRate = *in.ESIRate
	}
	if in.TotalLeaves != nil {
		e.TotalLeaves = *in.TotalLeaves
	}
	return e
}

// Default statutory rates applied when an employee is created without them.
var (
	DefaultPFRate  = decimal.NewFromInt(12)
	DefaultESIRate = decimal.RequireFromString("0.75")
)

// DefaultTotalLeaves is the yearly allowance for new employees.
const DefaultTotalLeaves = 12

// Status is the lifecycle state of a payroll run.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusProcessed Status = "processed"
	StatusPaid      Status = "paid"
)

var transitions = map[Status]Status{
	StatusDraft:     StatusProcessed,
	StatusProcessed: StatusPaid,
}

// Run is one employee's payroll for a month. There is at most one per
// employee, month and year.
type Run struct {
	ID              int64           `json:"id"`
	CompanyID       int64           `json:"company_id"`
	EmployeeID      int64           `json:"employee_id"`
	Month           string          `json:"month"`
	Year            int             `json:"year"`
	Basic           decimal.Decimal `json:"basic_salary"`
	HRA             decimal.Decimal `json:"hra"`
	Transport       decimal.Decimal `json:"transport"`
	Medical         decimal.Decimal `json:"medical"`
	Special         decimal.Decimal `json:"special"`
	Gross           decimal.Decimal `json:"gross_salary"`
	Allowances      decimal.Decimal `json:"allowances"`
	PF              decimal.Decimal `json:"pf"`
	ESI             decimal.Decimal `json:"esi"`
	TDS             decimal.Decimal `json:"tds"`
	OtherDeductions decimal.Decimal `json:"other_deductions"`
	Deductions      decimal.Decimal `json:"deductions"`
	Net             decimal.Decimal `json:"net_salary"`
	LeavesTaken     int             `json:"leaves_taken"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ComputeInput asks for an employee's run for one month.
type ComputeInput struct {
	EmployeeID      int64           `json:"employee_id" validate:"required,gt=0"`
	Month           string          `json:"month" validate:"required"`
	Year            int             `json:"year" validate:"required,min=2000,max=2100"`
	TDS             decimal.Decimal `json:"tds"`
	OtherDeductions decimal.Decimal `json:"other_deductions"`
	LeavesTaken     int             `json:"leaves_taken" validate:"min=0"`
	// Preview computes without saving.
	Preview bool `json:"preview"`
}

// RunFilter narrows run listings.
type RunFilter struct {
	Month string
	Year  int
}
