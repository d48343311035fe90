package shared

import (
	"fmt"
	"time"
)

// FilingPeriod is a tax filing month in MM-YYYY form.
type FilingPeriod struct {
	Month time.Month
	Year  int
}

// ParseFilingPeriod parses "MM-YYYY".
func ParseFilingPeriod(raw string) (FilingPeriod, error) {
	t, err := time.Parse("01-2006", raw)
	if err != nil {
		return FilingPeriod{}, E(KindValidation, "shared.ParseFilingPeriod", "period").Withf("period %q must be MM-YYYY", raw)
	}
	return FilingPeriod{Month: t.Month(), Year: t.Year()}, nil
}

// PeriodOf returns the filing period containing date.
func PeriodOf(date time.Time) FilingPeriod {
	return FilingPeriod{Month: date.Month(), Year: date.Year()}
}

func (p FilingPeriod) String() string {
	return fmt.Sprintf("%02d-%04d", int(p.Month), p.Year)
}

// Bounds returns the inclusive start and exclusive end of the period in UTC.
func (p FilingPeriod) Bounds() (time.Time, time.Time) {
	start := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Contains reports whether date falls inside the period.
func (p FilingPeriod) Contains(date time.Time) bool {
	return date.Month() == p.Month && date.Year() == p.Year
}
