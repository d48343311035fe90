package documents

import (
	"strings"

	"github.com/billease/billease/internal/shared"
)

// Kind selects one of the document variants sharing the header+lines shape.
type Kind string

const (
	KindSalesInvoice  Kind = "sales_invoice"
	KindPurchaseOrder Kind = "purchase_order"
	KindDebitNote     Kind = "debit_note"
	KindCreditNote    Kind = "credit_note"
)

// rules are the per-variant differences: numbering, counterparty, storage
// layout and the lifecycle graph.
type rules struct {
	prefix       string
	partyType    string
	headerTable  string
	lineTable    string
	parentColumn string
	numberColumn string
	dateColumn   string
	dueColumn    string
	isNote       bool
	tracksGoods  bool
	payable      bool
	creditGuard  bool
	minLines     int
	initial      shared.DocumentStatus
	transitions  map[shared.DocumentStatus][]shared.DocumentStatus
	reasons      []string
}

var invoiceTransitions = map[shared.DocumentStatus][]shared.DocumentStatus{
	shared.StatusDraft:         {shared.StatusConfirmed},
	shared.StatusConfirmed:     {shared.StatusPartiallyPaid, shared.StatusPaid, shared.StatusCancelled},
	shared.StatusPartiallyPaid: {shared.StatusPaid},
	shared.StatusPaid:          {shared.StatusPartiallyPaid},
}

var purchaseTransitions = map[shared.DocumentStatus][]shared.DocumentStatus{
	shared.StatusPending:           {shared.StatusPartiallyReceived, shared.StatusCompleted, shared.StatusCancelled},
	shared.StatusPartiallyReceived: {shared.StatusCompleted, shared.StatusCancelled},
}

var kindRules = map[Kind]rules{
	KindSalesInvoice: {
		prefix: "SI", partyType: "Customer",
		headerTable: "sales_invoices", lineTable: "sales_invoice_items", parentColumn: "invoice_id",
		numberColumn: "invoice_no", dateColumn: "invoice_date", dueColumn: "due_date",
		payable: true, creditGuard: true,
		initial: shared.StatusDraft, transitions: invoiceTransitions,
	},
	KindPurchaseOrder: {
		prefix: "PO", partyType: "Supplier",
		headerTable: "purchase_orders", lineTable: "purchase_order_items", parentColumn: "po_id",
		numberColumn: "po_no", dateColumn: "po_date", dueColumn: "expected_date",
		tracksGoods: true, minLines: 1,
		initial: shared.StatusPending, transitions: purchaseTransitions,
	},
	KindDebitNote: {
		prefix: "DN", partyType: "Customer",
		headerTable: "debit_notes", lineTable: "debit_note_items", parentColumn: "note_id",
		numberColumn: "note_no", dateColumn: "note_date",
		isNote: true, creditGuard: true,
		initial: shared.StatusDraft, transitions: invoiceTransitions,
		reasons: []string{"Additional Charges", "Price Revision", "Short Billing", "Other"},
	},
	KindCreditNote: {
		prefix: "CN", partyType: "Customer",
		headerTable: "credit_notes", lineTable: "credit_note_items", parentColumn: "note_id",
		numberColumn: "note_no", dateColumn: "note_date",
		isNote: true,
		initial: shared.StatusDraft, transitions: invoiceTransitions,
		reasons: []string{"Return", "Discount", "Over Billing", "Cancellation", "Other"},
	},
}

var kindAliases = map[string]Kind{
	"sales-invoices":  KindSalesInvoice,
	"purchase-orders": KindPurchaseOrder,
	"debit-notes":     KindDebitNote,
	"credit-notes":    KindCreditNote,
}

// ParseKind accepts either the kind name or its plural URL slug.
func ParseKind(raw string) (Kind, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if k, ok := kindAliases[raw]; ok {
		return k, nil
	}
	k := Kind(raw)
	if _, ok := kindRules[k]; ok {
		return k, nil
	}
	return "", shared.E(shared.KindValidation, "documents.ParseKind", "kind").Withf("unknown document kind %q", raw)
}

func (k Kind) rules() rules { return kindRules[k] }

// CanTransition reports whether the lifecycle graph of k allows from -> to.
func (k Kind) CanTransition(from, to shared.DocumentStatus) bool {
	for _, next := range k.rules().transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (k Kind) validReason(reason string) bool {
	r := k.rules()
	if !r.isNote || reason == "" {
		return true
	}
	for _, allowed := range r.reasons {
		if strings.EqualFold(allowed, reason) {
			return true
		}
	}
	return false
}

func invalidTransition(op string, k Kind, id int64, from, to shared.DocumentStatus) error {
	return shared.E(shared.KindInvalidTransition, op, string(k), id).Withf("cannot move from %s to %s", from, to)
}
