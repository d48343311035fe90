package documents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/billease/billease/internal/gst"
	"github.com/billease/billease/internal/partybalance"
	"github.com/billease/billease/internal/platform/money"
	"github.com/billease/billease/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, k Kind, companyID, id int64) (Document, error)
	List(ctx context.Context, k Kind, companyID int64, filter ListFilter, page shared.Page) ([]Document, int, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort claims request keys so replays are rejected.
type IdempotencyPort interface {
	Claim(ctx context.Context, companyID int64, module, key string) error
	Release(ctx context.Context, companyID int64, module, key string) error
}

// Service runs the document lifecycle.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, idempotency: idem, logger: logger, now: time.Now}
}

// Get loads a document with its lines.
func (s *Service) Get(ctx context.Context, actor shared.Identity, k Kind, id int64) (Document, error) {
	if err := shared.Authorize("documents.Get", actor, shared.CapRead); err != nil {
		return Document{}, err
	}
	return s.repo.Get(ctx, k, actor.CompanyID, id)
}

// List returns document headers.
func (s *Service) List(ctx context.Context, actor shared.Identity, k Kind, filter ListFilter, page shared.Page) ([]Document, int, error) {
	if err := shared.Authorize("documents.List", actor, shared.CapRead); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, k, actor.CompanyID, filter, page)
}

// prepare validates input and builds the document it describes, with totals
// recomputed from the lines.
func (s *Service) prepare(op string, actor shared.Identity, k Kind, in Input) (Document, error) {
	ru := k.rules()
	if err := shared.ValidateStruct(op, in); err != nil {
		return Document{}, err
	}
	if err := shared.NonNegative(op, shared.Amount{Name: "discount_amount", Value: in.DiscountAmount}); err != nil {
		return Document{}, err
	}
	if len(in.Lines) < ru.minLines {
		return Document{}, shared.E(shared.KindValidation, op, "lines").Withf("%s requires at least %d line", k, ru.minLines)
	}
	if !ru.isNote && (in.ReferenceInvoiceID != nil || in.Reason != "") {
		return Document{}, shared.E(shared.KindValidation, op, "reference_invoice_id").Withf("only notes reference invoices")
	}
	if !k.validReason(in.Reason) {
		return Document{}, shared.E(shared.KindValidation, op, "reason").Withf("reason %q not allowed for %s", in.Reason, k)
	}
	lines, err := buildLines(op, in.Lines)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		CompanyID:          actor.CompanyID,
		Kind:               k,
		Number:             strings.TrimSpace(in.Number),
		Date:               in.Date,
		DueDate:            in.DueDate,
		PartyID:            in.PartyID,
		ReferenceInvoiceID: in.ReferenceInvoiceID,
		Reason:             in.Reason,
		DiscountAmount:     in.DiscountAmount,
		Status:             ru.initial,
		Notes:              in.Notes,
		CreatedBy:          actor.UserID,
		Lines:              lines,
	}
	if doc.Date.IsZero() {
		doc.Date = s.now().UTC()
	}
	if doc.Number == "" {
		doc.Number = NewNumber(k, doc.Date)
	}
	applyTotals(&doc)
	if doc.GrandTotal.IsNegative() {
		return Document{}, shared.E(shared.KindValidation, op, "discount_amount").Withf("discount exceeds document total")
	}
	if err := checkSupplied(op, in, doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// checkReferences resolves the party, items and referenced invoice.
func checkReferences(ctx context.Context, op string, tx TxRepository, doc Document) error {
	ru := doc.Kind.rules()
	party, err := tx.Party(ctx, doc.CompanyID, doc.PartyID)
	if err != nil {
		return err
	}
	if party.Type != ru.partyType {
		return shared.E(shared.KindValidation, op, "party", doc.PartyID).Withf("%s requires a %s, got %s", doc.Kind, ru.partyType, party.Type)
	}
	itemIDs := make([]int64, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		itemIDs = append(itemIDs, l.ItemID)
	}
	missing, err := tx.MissingItems(ctx, doc.CompanyID, itemIDs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return shared.E(shared.KindNotFound, op, "item", missing...)
	}
	if doc.ReferenceInvoiceID != nil {
		partyID, err := tx.InvoiceParty(ctx, doc.CompanyID, *doc.ReferenceInvoiceID)
		if err != nil {
			return err
		}
		if partyID != doc.PartyID {
			return shared.E(shared.KindValidation, op, "reference_invoice_id", *doc.ReferenceInvoiceID).Withf("invoice belongs to another party")
		}
	}
	return nil
}

// Create persists a header and all of its lines in one transaction.
func (s *Service) Create(ctx context.Context, actor shared.Identity, k Kind, in Input) (Document, error) {
	op := "documents.Create"
	if err := shared.Authorize(op, actor, shared.CapMasterWrite); err != nil {
		return Document{}, err
	}
	doc, err := s.prepare(op, actor, k, in)
	if err != nil {
		return Document{}, err
	}

	claimed := false
	if s.idempotency != nil && in.IdempotencyKey != "" {
		if err := s.idempotency.Claim(ctx, actor.CompanyID, string(k), in.IdempotencyKey); err != nil {
			return Document{}, err
		}
		claimed = true
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := checkReferences(ctx, op, tx, doc); err != nil {
			return err
		}
		return tx.InsertDocument(ctx, &doc)
	})
	if err != nil {
		if claimed {
			if rerr := s.idempotency.Release(ctx, actor.CompanyID, string(k), in.IdempotencyKey); rerr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", rerr))
			}
		}
		return Document{}, err
	}
	s.record(ctx, actor, doc, "create", map[string]any{"number": doc.Number, "lines": len(doc.Lines)})
	return doc, nil
}

// UpdateDraft replaces the header fields and lines of a document that has
// not left its initial status.
func (s *Service) UpdateDraft(ctx context.Context, actor shared.Identity, k Kind, id int64, in Input) (Document, error) {
	op := "documents.UpdateDraft"
	if err := shared.Authorize(op, actor, shared.CapMasterWrite); err != nil {
		return Document{}, err
	}
	doc, err := s.prepare(op, actor, k, in)
	if err != nil {
		return Document{}, err
	}
	doc.ID = id
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, k, actor.CompanyID, id)
		if err != nil {
			return err
		}
		if current.Status != k.rules().initial {
			return shared.E(shared.KindInvalidTransition, op, string(k), id).Withf("only %s documents can be edited", k.rules().initial)
		}
		if strings.TrimSpace(in.Number) == "" {
			doc.Number = current.Number
		}
		doc.CreatedBy = current.CreatedBy
		doc.CreatedAt = current.CreatedAt
		if err := checkReferences(ctx, op, tx, doc); err != nil {
			return err
		}
		return tx.ReplaceDraft(ctx, &doc)
	})
	if err != nil {
		return Document{}, err
	}
	s.record(ctx, actor, doc, "update", map[string]any{"lines": len(doc.Lines)})
	return doc, nil
}

// Confirm posts a draft. It needs at least one line, non-negative amounts
// and, for invoices and debit notes, a projected outstanding within the
// party's credit limit. Confirmed sales invoices get a GSTR1 record.
func (s *Service) Confirm(ctx context.Context, actor shared.Identity, k Kind, id int64) (Document, error) {
	op := "documents.Confirm"
	if err := shared.Authorize(op, actor, shared.CapLedgerWrite); err != nil {
		return Document{}, err
	}
	var doc Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetForUpdate(ctx, k, actor.CompanyID, id)
		if err != nil {
			return err
		}
		if !k.CanTransition(doc.Status, shared.StatusConfirmed) {
			return invalidTransition(op, k, id, doc.Status, shared.StatusConfirmed)
		}
		if len(doc.Lines) == 0 {
			return shared.E(shared.KindValidation, op, string(k), id).Withf("at least one line item required")
		}
		for _, l := range doc.Lines {
			if err := checkLineAmounts(op, l.LineNo, l.Quantity, l.Rate, l.Discount, l.TaxRate); err != nil {
				return err
			}
		}
		if err := checkConsistent(op, doc); err != nil {
			return err
		}
		if k.rules().creditGuard {
			if err := partybalance.EnsureWithinLimit(ctx, tx.Balances(), actor.CompanyID, doc.PartyID, doc.BalanceAmount); err != nil {
				return err
			}
		}
		from := doc.Status
		doc.Status = shared.StatusConfirmed
		if err := tx.SetState(ctx, doc, from); err != nil {
			return err
		}
		if k == KindSalesInvoice {
			party, err := tx.Party(ctx, actor.CompanyID, doc.PartyID)
			if err != nil {
				return err
			}
			if _, err := gst.Capture(ctx, tx.Taxes(), gst.Invoice{
				CompanyID:    actor.CompanyID,
				InvoiceID:    doc.ID,
				InvoiceNo:    doc.Number,
				InvoiceDate:  doc.Date,
				PartyGSTIN:   party.GSTIN,
				TaxableValue: doc.TotalAmount.Sub(doc.DiscountAmount),
				TaxAmount:    doc.TaxAmount,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	s.record(ctx, actor, doc, "confirm", map[string]any{"grand_total": doc.GrandTotal.String()})
	return doc, nil
}

// Cancel moves a document to cancelled. Documents with payments must be
// reversed through a note instead.
func (s *Service) Cancel(ctx context.Context, actor shared.Identity, k Kind, id int64) (Document, error) {
	op := "documents.Cancel"
	if err := shared.Authorize(op, actor, shared.CapLedgerWrite); err != nil {
		return Document{}, err
	}
	var doc Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetForUpdate(ctx, k, actor.CompanyID, id)
		if err != nil {
			return err
		}
		if !k.CanTransition(doc.Status, shared.StatusCancelled) {
			return invalidTransition(op, k, id, doc.Status, shared.StatusCancelled)
		}
		if doc.PaidAmount.IsPositive() {
			return shared.E(shared.KindInvalidTransition, op, string(k), id).
				Withf("paid amount %s must be reversed with a note before cancelling", doc.PaidAmount.StringFixed(2))
		}
		if k == KindSalesInvoice {
			if err := gst.Withdraw(ctx, tx.Taxes(), actor.CompanyID, id); err != nil {
				return err
			}
		}
		from := doc.Status
		doc.Status = shared.StatusCancelled
		return tx.SetState(ctx, doc, from)
	})
	if err != nil {
		return Document{}, err
	}
	s.record(ctx, actor, doc, "cancel", nil)
	return doc, nil
}

// Receive books received quantities against purchase order lines. The order
// completes once every line is fully received.
func (s *Service) Receive(ctx context.Context, actor shared.Identity, k Kind, id int64, in ReceiveInput) (Document, error) {
	op := "documents.Receive"
	if err := shared.Authorize(op, actor, shared.CapLedgerWrite); err != nil {
		return Document{}, err
	}
	if !k.rules().tracksGoods {
		return Document{}, shared.E(shared.KindInvalidTransition, op, string(k), id).Withf("%s does not receive goods", k)
	}
	if err := shared.ValidateStruct(op, in); err != nil {
		return Document{}, err
	}
	var doc Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetForUpdate(ctx, k, actor.CompanyID, id)
		if err != nil {
			return err
		}
		if !k.CanTransition(doc.Status, shared.StatusCompleted) {
			return invalidTransition(op, k, id, doc.Status, shared.StatusPartiallyReceived)
		}
		index := make(map[int64]int, len(doc.Lines))
		for i, l := range doc.Lines {
			index[l.ID] = i
		}
		for _, rl := range in.Lines {
			i, ok := index[rl.LineID]
			if !ok {
				return shared.E(shared.KindNotFound, op, "line", rl.LineID)
			}
			if !rl.Quantity.IsPositive() {
				return shared.E(shared.KindValidation, op, "line", rl.LineID).Withf("received quantity must be greater than zero")
			}
			line := &doc.Lines[i]
			received := line.ReceivedQuantity.Add(rl.Quantity)
			if received.GreaterThan(line.Quantity) {
				return shared.E(shared.KindValidation, op, "line", rl.LineID).
					Withf("received %s exceeds ordered %s", received, line.Quantity)
			}
			line.ReceivedQuantity = received
			if err := tx.SetReceived(ctx, k, *line); err != nil {
				return err
			}
		}
		next := receivedStatus(doc.Lines)
		if next == doc.Status {
			return nil
		}
		if !k.CanTransition(doc.Status, next) {
			return invalidTransition(op, k, id, doc.Status, next)
		}
		from := doc.Status
		doc.Status = next
		return tx.SetState(ctx, doc, from)
	})
	if err != nil {
		return Document{}, err
	}
	s.record(ctx, actor, doc, "receive", map[string]any{"status": string(doc.Status)})
	return doc, nil
}

// RecordPayment applies a payment to a posted sales invoice.
func (s *Service) RecordPayment(ctx context.Context, actor shared.Identity, k Kind, id int64, in PaymentInput) (Document, error) {
	op := "documents.RecordPayment"
	if err := shared.Authorize(op, actor, shared.CapLedgerWrite); err != nil {
		return Document{}, err
	}
	if !k.rules().payable {
		return Document{}, shared.E(shared.KindInvalidTransition, op, string(k), id).Withf("%s does not accept payments", k)
	}
	if err := shared.ValidateStruct(op, in); err != nil {
		return Document{}, err
	}
	amount := money.Round(in.Amount)
	if !amount.IsPositive() {
		return Document{}, shared.E(shared.KindValidation, op, "amount").Withf("payment amount must be greater than zero")
	}
	var doc Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetForUpdate(ctx, k, actor.CompanyID, id)
		if err != nil {
			return err
		}
		paid := doc.PaidAmount.Add(amount)
		if paid.GreaterThan(doc.GrandTotal) {
			return shared.E(shared.KindValidation, op, string(k), id).
				Withf("payment %s exceeds balance %s", amount.StringFixed(2), doc.BalanceAmount.StringFixed(2))
		}
		next := shared.StatusPartiallyPaid
		if paid.Equal(doc.GrandTotal) {
			next = shared.StatusPaid
		}
		if !k.CanTransition(doc.Status, next) {
			return invalidTransition(op, k, id, doc.Status, next)
		}
		now := s.now().UTC()
		p := Payment{
			CompanyID:  actor.CompanyID,
			DocumentID: id,
			Amount:     amount,
			Date:       in.Date,
			Method:     in.Method,
			Reference:  in.Reference,
			CreatedBy:  actor.UserID,
			CreatedAt:  now,
		}
		if p.Date.IsZero() {
			p.Date = now
		}
		if _, err := tx.InsertPayment(ctx, p); err != nil {
			return err
		}
		from := doc.Status
		doc.PaidAmount = paid
		doc.BalanceAmount = doc.GrandTotal.Sub(paid)
		doc.Status = next
		return tx.SetState(ctx, doc, from)
	})
	if err != nil {
		return Document{}, err
	}
	s.record(ctx, actor, doc, "payment", map[string]any{"amount": amount.String()})
	return doc, nil
}

// Delete removes a document and exactly its own lines. Paid documents,
// invoices referenced by notes and invoices in a filed GSTR1 period cannot
// be deleted.
func (s *Service) Delete(ctx context.Context, actor shared.Identity, k Kind, id int64) (DeleteResult, error) {
	op := "documents.Delete"
	if err := shared.Authorize(op, actor, shared.CapLedgerWrite); err != nil {
		return DeleteResult{}, err
	}
	result := DeleteResult{DocumentID: id}
	var doc Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetForUpdate(ctx, k, actor.CompanyID, id)
		if err != nil {
			return err
		}
		if doc.PaidAmount.IsPositive() {
			return shared.E(shared.KindInvalidTransition, op, string(k), id).Withf("paid documents cannot be deleted")
		}
		if k == KindSalesInvoice {
			refs, err := tx.CountReferencingNotes(ctx, actor.CompanyID, id)
			if err != nil {
				return err
			}
			if refs > 0 {
				return shared.E(shared.KindReferentialIntegrity, op, string(k), id).Withf("referenced by %d notes", refs)
			}
			if err := gst.Withdraw(ctx, tx.Taxes(), actor.CompanyID, id); err != nil {
				return err
			}
		}
		n, err := tx.DeleteDocument(ctx, k, actor.CompanyID, id)
		if err != nil {
			return err
		}
		if n != len(doc.Lines) {
			return shared.E(shared.KindConcurrencyConflict, op, string(k), id).
				Withf("expected %d lines, deleted %d", len(doc.Lines), n)
		}
		result.LinesDeleted = n
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}
	s.record(ctx, actor, doc, "delete", map[string]any{"lines": result.LinesDeleted})
	return result, nil
}

func (s *Service) record(ctx context.Context, actor shared.Identity, doc Document, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   fmt.Sprintf("%s:%s", doc.Kind, action),
		Entity:   string(doc.Kind),
		EntityID: doc.ID,
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit document", slog.String("action", action), slog.Any("error", err))
	}
}
