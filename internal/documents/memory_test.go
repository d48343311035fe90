package documents

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/billease/billease/internal/gst"
	"github.com/billease/billease/internal/partybalance"
	"github.com/billease/billease/internal/shared"
	"github.com/billease/billease/internal/stock"
)

type docKey struct {
	kind Kind
	id   int64
}

type memoryRepo struct {
	docs         map[docKey]Document
	parties      map[int64]partyRow
	items        map[int64]decimal.Decimal
	payments     []Payment
	records      []gst.Record
	companyGSTIN string
	nextID       int64
	failInsert   error
}

type partyRow struct {
	ref            PartyRef
	creditLimit    decimal.Decimal
	openingBalance decimal.Decimal
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		docs:         map[docKey]Document{},
		parties:      map[int64]partyRow{},
		items:        map[int64]decimal.Decimal{},
		companyGSTIN: "29ABCDE1234F1Z5",
	}
}

func (m *memoryRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func clone(d Document) Document {
	d.Lines = append([]Line(nil), d.Lines...)
	return d
}

// WithTx discards every change made by a failing callback.
func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	docs := make(map[docKey]Document, len(m.docs))
	for k, d := range m.docs {
		docs[k] = clone(d)
	}
	payments := append([]Payment(nil), m.payments...)
	records := append([]gst.Record(nil), m.records...)
	if err := fn(ctx, m); err != nil {
		m.docs, m.payments, m.records = docs, payments, records
		return err
	}
	return nil
}

func (m *memoryRepo) Get(_ context.Context, k Kind, _ int64, id int64) (Document, error) {
	d, ok := m.docs[docKey{k, id}]
	if !ok {
		return Document{}, shared.E(shared.KindNotFound, "memory", string(k), id)
	}
	return clone(d), nil
}

func (m *memoryRepo) GetForUpdate(ctx context.Context, k Kind, companyID, id int64) (Document, error) {
	return m.Get(ctx, k, companyID, id)
}

func (m *memoryRepo) List(_ context.Context, k Kind, _ int64, filter ListFilter, _ shared.Page) ([]Document, int, error) {
	var out []Document
	for key, d := range m.docs {
		if key.kind != k || (filter.Status != "" && d.Status != filter.Status) || (filter.PartyID != 0 && d.PartyID != filter.PartyID) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) Party(_ context.Context, _ int64, partyID int64) (PartyRef, error) {
	p, ok := m.parties[partyID]
	if !ok {
		return PartyRef{}, shared.E(shared.KindNotFound, "memory", "party", partyID)
	}
	return p.ref, nil
}

func (m *memoryRepo) MissingItems(_ context.Context, _ int64, ids []int64) ([]int64, error) {
	var missing []int64
	for _, id := range ids {
		if _, ok := m.items[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (m *memoryRepo) InvoiceParty(_ context.Context, _ int64, invoiceID int64) (int64, error) {
	d, ok := m.docs[docKey{KindSalesInvoice, invoiceID}]
	if !ok {
		return 0, shared.E(shared.KindNotFound, "memory", "sales_invoice", invoiceID)
	}
	return d.PartyID, nil
}

func (m *memoryRepo) InsertDocument(_ context.Context, doc *Document) error {
	doc.ID = m.id()
	for i := range doc.Lines {
		if m.failInsert != nil && i == len(doc.Lines)-1 {
			return m.failInsert
		}
		doc.Lines[i].ID = m.id()
		doc.Lines[i].DocumentID = doc.ID
	}
	m.docs[docKey{doc.Kind, doc.ID}] = clone(*doc)
	return nil
}

func (m *memoryRepo) ReplaceDraft(_ context.Context, doc *Document) error {
	for i := range doc.Lines {
		doc.Lines[i].ID = m.id()
		doc.Lines[i].DocumentID = doc.ID
	}
	m.docs[docKey{doc.Kind, doc.ID}] = clone(*doc)
	return nil
}

func (m *memoryRepo) SetState(_ context.Context, doc Document, from shared.DocumentStatus) error {
	key := docKey{doc.Kind, doc.ID}
	cur := m.docs[key]
	if cur.Status != from {
		return shared.E(shared.KindConcurrencyConflict, "memory", string(doc.Kind), doc.ID)
	}
	cur.Status, cur.PaidAmount, cur.BalanceAmount = doc.Status, doc.PaidAmount, doc.BalanceAmount
	m.docs[key] = cur
	return nil
}

func (m *memoryRepo) SetReceived(_ context.Context, k Kind, line Line) error {
	key := docKey{k, line.DocumentID}
	d := clone(m.docs[key])
	for i := range d.Lines {
		if d.Lines[i].ID == line.ID {
			d.Lines[i].ReceivedQuantity = line.ReceivedQuantity
		}
	}
	m.docs[key] = d
	return nil
}

func (m *memoryRepo) InsertPayment(_ context.Context, p Payment) (int64, error) {
	p.ID = m.id()
	m.payments = append(m.payments, p)
	return p.ID, nil
}

func (m *memoryRepo) CountReferencingNotes(_ context.Context, _ int64, invoiceID int64) (int, error) {
	n := 0
	for key, d := range m.docs {
		if (key.kind == KindCreditNote || key.kind == KindDebitNote) && d.ReferenceInvoiceID != nil && *d.ReferenceInvoiceID == invoiceID {
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) DeleteDocument(_ context.Context, k Kind, _ int64, id int64) (int, error) {
	key := docKey{k, id}
	d, ok := m.docs[key]
	if !ok {
		return 0, shared.E(shared.KindNotFound, "memory", string(k), id)
	}
	delete(m.docs, key)
	return len(d.Lines), nil
}

func (m *memoryRepo) lineCount() int {
	n := 0
	for _, d := range m.docs {
		n += len(d.Lines)
	}
	return n
}

func (m *memoryRepo) Balances() partybalance.GuardSource { return memoryBalances{m} }

func (m *memoryRepo) Taxes() gst.Store { return memoryTaxes{m} }

type memoryBalances struct{ m *memoryRepo }

func (b memoryBalances) Account(_ context.Context, _ int64, partyID int64) (partybalance.Account, error) {
	p, ok := b.m.parties[partyID]
	if !ok {
		return partybalance.Account{}, shared.E(shared.KindNotFound, "memory", "party", partyID)
	}
	return partybalance.Account{PartyID: partyID, CreditLimit: p.creditLimit, OpeningBalance: p.openingBalance}, nil
}

func (b memoryBalances) PartyEntries(_ context.Context, _ int64, partyID int64) ([]partybalance.Entry, error) {
	kinds := map[Kind]partybalance.EntryKind{
		KindSalesInvoice: partybalance.KindInvoice,
		KindCreditNote:   partybalance.KindCreditNote,
		KindDebitNote:    partybalance.KindDebitNote,
	}
	var out []partybalance.Entry
	for key, d := range b.m.docs {
		ek, ok := kinds[key.kind]
		if !ok || d.PartyID != partyID {
			continue
		}
		out = append(out, partybalance.Entry{Kind: ek, DocumentID: d.ID, Status: d.Status, GrandTotal: d.GrandTotal, Paid: d.PaidAmount})
	}
	return out, nil
}

func (b memoryBalances) LockParty(ctx context.Context, companyID, partyID int64) error {
	_, err := b.Account(ctx, companyID, partyID)
	return err
}

type memoryTaxes struct{ m *memoryRepo }

func (t memoryTaxes) CompanyGSTIN(context.Context, int64) (string, error) { return t.m.companyGSTIN, nil }

func (t memoryTaxes) InsertRecord(_ context.Context, rec gst.Record) (int64, error) {
	rec.ID = t.m.id()
	t.m.records = append(t.m.records, rec)
	return rec.ID, nil
}

func (t memoryTaxes) RecordByInvoice(_ context.Context, _ int64, invoiceID int64) (gst.Record, error) {
	for _, r := range t.m.records {
		if r.InvoiceID == invoiceID {
			return r, nil
		}
	}
	return gst.Record{}, shared.E(shared.KindNotFound, "memory", "gstr1", invoiceID)
}

func (t memoryTaxes) DeleteRecord(_ context.Context, id int64) error {
	for i, r := range t.m.records {
		if r.ID == id {
			t.m.records = append(t.m.records[:i], t.m.records[i+1:]...)
			break
		}
	}
	return nil
}

func (t memoryTaxes) PeriodRecords(_ context.Context, _ int64, period string) ([]gst.Record, error) {
	var out []gst.Record
	for _, r := range t.m.records {
		if r.Period == period {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t memoryTaxes) PeriodInvoices(context.Context, int64, shared.FilingPeriod) ([]gst.InvoiceRef, error) {
	return nil, nil
}

func (t memoryTaxes) UncapturedInvoices(context.Context, int64, shared.FilingPeriod) ([]gst.Invoice, error) {
	return nil, nil
}

func (t memoryTaxes) MarkFiled(context.Context, int64, string) (int64, error) { return 0, nil }

// stockSource folds the memory documents through the stock ledger.
type stockSource struct{ m *memoryRepo }

func (s stockSource) ItemOpening(_ context.Context, _ int64, itemID int64) (stock.Opening, error) {
	opening, ok := s.m.items[itemID]
	if !ok {
		return stock.Opening{}, shared.E(shared.KindNotFound, "memory", "item", itemID)
	}
	return stock.Opening{ItemID: itemID, OpeningStock: opening}, nil
}

func (s stockSource) ItemEntries(_ context.Context, _ int64, itemID int64) ([]stock.Entry, error) {
	var out []stock.Entry
	for key, d := range s.m.docs {
		for _, l := range d.Lines {
			if l.ItemID != itemID {
				continue
			}
			switch key.kind {
			case KindSalesInvoice:
				out = append(out, stock.Entry{Source: stock.SourceSale, DocumentID: d.ID, Status: d.Status, Quantity: l.Quantity})
			case KindPurchaseOrder:
				out = append(out, stock.Entry{Source: stock.SourcePurchase, DocumentID: d.ID, Status: d.Status, Quantity: l.ReceivedQuantity})
			}
		}
	}
	return out, nil
}
