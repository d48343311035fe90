package documents

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billease/billease/internal/platform/money"
	"github.com/billease/billease/internal/shared"
)

// NewNumber builds PREFIX-YYYYMM-XXXXXXXX.
func NewNumber(k Kind, date time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", k.rules().prefix, date.Format("200601"), suffix)
}

// computeLine derives tax and total:
// tax = (qty*rate - discount) * tax_rate/100, total = qty*rate - discount + tax.
func computeLine(in LineInput) Line {
	net := in.Quantity.Mul(in.Rate).Sub(in.Discount)
	tax := money.Round(money.Percent(net, in.TaxRate))
	return Line{
		ItemID:      in.ItemID,
		Description: in.Description,
		Quantity:    in.Quantity,
		Rate:        in.Rate,
		Discount:    in.Discount,
		TaxRate:     in.TaxRate,
		TaxAmount:   tax,
		Total:       money.Round(net.Add(tax)),
	}
}

func buildLines(op string, inputs []LineInput) ([]Line, error) {
	lines := make([]Line, 0, len(inputs))
	for i, in := range inputs {
		if err := checkLineAmounts(op, i+1, in.Quantity, in.Rate, in.Discount, in.TaxRate); err != nil {
			return nil, err
		}
		line := computeLine(in)
		if line.Total.IsNegative() {
			return nil, shared.E(shared.KindValidation, op, "line").Withf("line %d discount exceeds amount", i+1)
		}
		line.LineNo = i + 1
		lines = append(lines, line)
	}
	return lines, nil
}

func checkLineAmounts(op string, lineNo int, quantity, rate, discount, taxRate decimal.Decimal) error {
	for _, a := range []shared.Amount{
		{Name: "quantity", Value: quantity},
		{Name: "rate", Value: rate},
		{Name: "discount", Value: discount},
		{Name: "tax_rate", Value: taxRate},
	} {
		if a.Value.IsNegative() {
			return shared.E(shared.KindValidation, op, "line").Withf("line %d %s must not be negative", lineNo, a.Name)
		}
	}
	return nil
}

// applyTotals recomputes header totals from the lines.
func applyTotals(doc *Document) {
	total, tax := decimal.Zero, decimal.Zero
	for _, l := range doc.Lines {
		total = total.Add(l.Quantity.Mul(l.Rate).Sub(l.Discount))
		tax = tax.Add(l.TaxAmount)
	}
	doc.TotalAmount = money.Round(total)
	doc.TaxAmount = money.Round(tax)
	doc.DiscountAmount = money.Round(doc.DiscountAmount)
	doc.GrandTotal = money.Round(total.Add(tax).Sub(doc.DiscountAmount))
	doc.BalanceAmount = doc.GrandTotal.Sub(doc.PaidAmount)
}

// checkSupplied rejects a caller-supplied total that disagrees with the lines.
func checkSupplied(op string, in Input, doc Document) error {
	for _, c := range []struct {
		name     string
		supplied *decimal.Decimal
		computed decimal.Decimal
	}{
		{"total_amount", in.TotalAmount, doc.TotalAmount},
		{"tax_amount", in.TaxAmount, doc.TaxAmount},
		{"grand_total", in.GrandTotal, doc.GrandTotal},
	} {
		if c.supplied != nil && !money.Round(*c.supplied).Equal(c.computed) {
			return shared.E(shared.KindValidation, op, c.name).
				Withf("%s %s does not match lines (%s)", c.name, c.supplied.StringFixed(2), c.computed.StringFixed(2))
		}
	}
	return nil
}

// checkConsistent verifies the stored header still equals the sum of its lines.
func checkConsistent(op string, doc Document) error {
	recomputed := doc
	applyTotals(&recomputed)
	if !recomputed.GrandTotal.Equal(money.Round(doc.GrandTotal)) || !recomputed.TaxAmount.Equal(money.Round(doc.TaxAmount)) {
		return shared.E(shared.KindValidation, op, string(doc.Kind), doc.ID).
			Withf("header totals %s do not match lines %s", doc.GrandTotal.StringFixed(2), recomputed.GrandTotal.StringFixed(2))
	}
	return nil
}

// receivedStatus derives the purchase order status from its lines.
func receivedStatus(lines []Line) shared.DocumentStatus {
	received := false
	for _, l := range lines {
		if l.ReceivedQuantity.IsPositive() {
			received = true
		}
	}
	if !received {
		return shared.StatusPending
	}
	for _, l := range lines {
		if !l.ReceivedQuantity.Equal(l.Quantity) {
			return shared.StatusPartiallyReceived
		}
	}
	return shared.StatusCompleted
}
