package shared

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs tag validation and converts failures to a ValidationError.
func ValidateStruct(op string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return E(KindValidation, op, "input").Wrap(err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" "+fe.Tag())
	}
	return E(KindValidation, op, "input").Withf("%s", strings.Join(fields, "; "))
}

// Amount names a decimal input for NonNegative.
type Amount struct {
	Name  string
	Value decimal.Decimal
}

// NonNegative reports the first negative amount as a ValidationError.
func NonNegative(op string, amounts ...Amount) error {
	for _, a := range amounts {
		if a.Value.IsNegative() {
			return E(KindValidation, op, a.Name).Withf("%s must not be negative", a.Name)
		}
	}
	return nil
}
