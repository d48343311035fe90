package payroll

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/billease/billease/internal/platform/money"
	"github.com/billease/billease/internal/shared"
)

var monthsByName = func() map[string]time.Month {
	m := make(map[string]time.Month, 24)
	for mo := time.January; mo <= time.December; mo++ {
		m[mo.String()] = mo
		m[mo.String()[:3]] = mo
	}
	return m
}()

// NormalizeMonth accepts a month name, a three letter abbreviation or a
// month number and returns the full English name.
func NormalizeMonth(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 1 || n > 12 {
			return "", shared.E(shared.KindValidation, "payroll.NormalizeMonth", "month").Withf("month %d out of range", n)
		}
		return time.Month(n).String(), nil
	}
	if mo, ok := monthsByName[cases.Title(language.English).String(strings.ToLower(raw))]; ok {
		return mo.String(), nil
	}
	return "", shared.E(shared.KindValidation, "payroll.NormalizeMonth", "month").Withf("unknown month %q", raw)
}

// RemainingLeaves is the allowance left before a new run is applied.
func RemainingLeaves(emp Employee) int {
	return emp.TotalLeaves - emp.LeavesTaken
}

// Compute derives a draft run from the employee's pay components:
//
//	gross = basic + hra + transport + medical + special
//	pf    = basic * pf_rate / 100
//	esi   = gross * esi_rate / 100
//	net   = gross - (pf + esi + tds + other_deductions)
//
// Every amount is rounded to two decimals. Leave beyond the remaining
// allowance is rejected, never clamped.
func Compute(emp Employee, in ComputeInput) (Run, error) {
	const op = "payroll.Compute"
	month, err := NormalizeMonth(in.Month)
	if err != nil {
		return Run{}, err
	}
	if err := shared.NonNegative(op,
		shared.Amount{Name: "tds", Value: in.TDS},
		shared.Amount{Name: "other_deductions", Value: in.OtherDeductions},
	); err != nil {
		return Run{}, err
	}
	if in.LeavesTaken < 0 {
		return Run{}, shared.E(shared.KindValidation, op, "leaves_taken").Withf("leaves_taken must not be negative")
	}
	if remaining := RemainingLeaves(emp); in.LeavesTaken > remaining {
		return Run{}, shared.E(shared.KindValidation, op, "employee", emp.ID).
			Withf("leaves_taken %d exceeds remaining %d", in.LeavesTaken, remaining).
			Wrap(ErrLeaveOverflow)
	}

	allowances := money.Round(money.Sum(emp.HRA, emp.Transport, emp.Medical, emp.Special))
	gross := money.Round(money.Sum(emp.Basic, emp.HRA, emp.Transport, emp.Medical, emp.Special))
	pf := money.Round(money.Percent(emp.Basic, emp.PFRate))
	esi := money.Round(money.Percent(gross, emp.ESIRate))
	tds := money.Round(in.TDS)
	other := money.Round(in.OtherDeductions)
	deductions := money.Round(money.Sum(pf, esi, tds, other))
	net := money.Round(gross.Sub(deductions))
	if net.IsNegative() {
		return Run{}, shared.E(shared.KindValidation, op, "employee", emp.ID).
			Withf("deductions %s exceed gross %s", deductions, gross)
	}

	return Run{
		CompanyID:       emp.CompanyID,
		EmployeeID:      emp.ID,
		Month:           month,
		Year:            in.Year,
		Basic:           money.Round(emp.Basic),
		HRA:             money.Round(emp.HRA),
		Transport:       money.Round(emp.Transport),
		Medical:         money.Round(emp.Medical),
		Special:         money.Round(emp.Special),
		Gross:           gross,
		Allowances:      allowances,
		PF:              pf,
		ESI:             esi,
		TDS:             tds,
		OtherDeductions: other,
		Deductions:      deductions,
		Net:             net,
		LeavesTaken:     in.LeavesTaken,
		Status:          StatusDraft,
	}, nil
}
