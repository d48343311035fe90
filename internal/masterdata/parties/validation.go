package parties

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/billease/billease/internal/shared"
)

// NormalizeType maps free-form input such as "customer" or "SUPPLIER" onto Type.
func NormalizeType(raw string) Type {
	return Type(cases.Title(language.English).String(strings.TrimSpace(raw)))
}

func normalize(p *Party) {
	p.Name = strings.TrimSpace(p.Name)
	p.Type = NormalizeType(string(p.Type))
	p.GSTIN = strings.ToUpper(strings.TrimSpace(p.GSTIN))
	p.PAN = strings.ToUpper(strings.TrimSpace(p.PAN))
	p.Email = strings.TrimSpace(p.Email)
}

// Opening balances may be negative (advance received), credit limits may not.
func validate(op string, p Party) error {
	if err := shared.ValidateStruct(op, p); err != nil {
		return err
	}
	return shared.NonNegative(op, shared.Amount{Name: "credit_limit", Value: p.CreditLimit})
}
