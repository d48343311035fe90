package payroll

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/billease/billease/internal/shared"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleEmployee() Employee {
	return Employee{
		ID:          3,
		CompanyID:   1,
		Code:        "EMP-003",
		Name:        "Asha",
		Basic:       d("30000"),
		HRA:         d("12000"),
		Transport:   d("1600"),
		Medical:     d("1250"),
		Special:     d("5150"),
		PFRate:      d("12"),
		ESIRate:     d("0.75"),
		TotalLeaves: 12,
		LeavesTaken: 10,
	}
}

func TestComputeDerivesGrossAndNet(t *testing.T) {
	run, err := Compute(sampleEmployee(), ComputeInput{
		EmployeeID:      3,
		Month:           "apr",
		Year:            2024,
		TDS:             d("2000"),
		OtherDeductions: d("25"),
		LeavesTaken:     2,
	})
	require.NoError(t, err)
	require.Equal(t, "April", run.Month)
	require.True(t, run.Gross.Equal(d("50000")), run.Gross.String())
	require.True(t, run.Allowances.Equal(d("20000")))
	require.True(t, run.PF.Equal(d("3600")))
	require.True(t, run.ESI.Equal(d("375")))
	require.True(t, run.Deductions.Equal(d("6000")))
	require.True(t, run.Net.Equal(d("44000")), run.Net.String())
	require.Equal(t, StatusDraft, run.Status)
	require.Equal(t, 2, run.LeavesTaken)
}

func TestComputeRoundsToTwoPlaces(t *testing.T) {
	emp := Employee{ID: 1, Basic: d("12345.67"), PFRate: d("12"), ESIRate: d("0.75"), TotalLeaves: 12}
	run, err := Compute(emp, ComputeInput{EmployeeID: 1, Month: "1", Year: 2024})
	require.NoError(t, err)
	require.Equal(t, "January", run.Month)
	require.Equal(t, "1481.48", run.PF.StringFixed(2))
	require.Equal(t, "92.59", run.ESI.StringFixed(2))
	require.Equal(t, "10771.60", run.Net.StringFixed(2))
}

func TestComputeRejectsLeaveOverflow(t *testing.T) {
	_, err := Compute(sampleEmployee(), ComputeInput{EmployeeID: 3, Month: "April", Year: 2024, LeavesTaken: 3})
	require.True(t, errors.Is(err, shared.ErrValidation))
	require.True(t, errors.Is(err, ErrLeaveOverflow))
}

func TestComputeRejectsNegativeInputs(t *testing.T) {
	_, err := Compute(sampleEmployee(), ComputeInput{EmployeeID: 3, Month: "April", Year: 2024, TDS: d("-1")})
	require.True(t, errors.Is(err, shared.ErrValidation))

	_, err = Compute(sampleEmployee(), ComputeInput{EmployeeID: 3, Month: "April", Year: 2024, TDS: d("50000")})
	require.True(t, errors.Is(err, shared.ErrValidation))
}

func TestNormalizeMonth(t *testing.T) {
	for _, raw := range []string{"april", "APRIL", " Apr ", "4", "04"} {
		got, err := NormalizeMonth(raw)
		require.NoError(t, err, raw)
		require.Equal(t, "April", got)
	}
	for _, raw := range []string{"", "13", "0", "Smarch"} {
		_, err := NormalizeMonth(raw)
		require.True(t, errors.Is(err, shared.ErrValidation), raw)
	}
}
