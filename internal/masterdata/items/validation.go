package items

import (
	"strings"

	"github.com/billease/billease/internal/shared"
)

const defaultUOM = "PCS"

func normalize(it *Item) {
	it.Code = strings.TrimSpace(it.Code)
	it.Name = strings.TrimSpace(it.Name)
	it.UOM = strings.ToUpper(strings.TrimSpace(it.UOM))
	if it.UOM == "" {
		it.UOM = defaultUOM
	}
}

func validate(op string, it Item) error {
	if err := shared.ValidateStruct(op, it); err != nil {
		return err
	}
	return shared.NonNegative(op,
		shared.Amount{Name: "rate", Value: it.Rate},
		shared.Amount{Name: "cost_price", Value: it.CostPrice},
		shared.Amount{Name: "reorder_level", Value: it.ReorderLevel},
		shared.Amount{Name: "opening_stock", Value: it.OpeningStock},
		shared.Amount{Name: "opening_value", Value: it.OpeningValue},
	)
}
