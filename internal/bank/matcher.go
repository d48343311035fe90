package bank

import (
	"sort"
	"strings"
	"time"

	"github.com/billease/billease/internal/shared"
)

// Options tune a reconciliation pass.
type Options struct {
	// DateTolerance is the widest date gap accepted by the date-window tier.
	DateTolerance time.Duration
	Manual        []ManualPair
	// AsOf is stamped on matched rows as their reconciled date.
	AsOf time.Time
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func normalizeRef(ref string) string {
	return strings.ToLower(strings.TrimSpace(ref))
}

func withinTolerance(a, b time.Time, tol time.Duration) bool {
	gap := a.Sub(b)
	if gap < 0 {
		gap = -gap
	}
	return gap <= tol
}

func sameMoney(t Transaction, l LedgerEntry) bool {
	return t.Type == l.Type && t.Amount.Equal(l.Amount)
}

func referenceMatch(t Transaction, l LedgerEntry, _ time.Duration) bool {
	ref := normalizeRef(t.Reference)
	return ref != "" && sameMoney(t, l) && sameDay(t.Date, l.Date) && ref == normalizeRef(l.Reference)
}

func dateWindowMatch(t Transaction, l LedgerEntry, tol time.Duration) bool {
	return sameMoney(t, l) && withinTolerance(t.Date, l.Date, tol)
}

type matcher struct {
	bank       []Transaction
	ledger     []LedgerEntry
	bankDone   map[int64]bool
	ledgerDone map[int64]bool
	opts       Options
	matches    []Match
}

// tier commits pairs accepted by pred that are unique on both sides: the bank
// row has exactly one eligible ledger entry and that entry has exactly one
// eligible bank row. Anything else stays open.
func (m *matcher) tier(tier Tier, pred func(Transaction, LedgerEntry, time.Duration) bool) {
	bankHits := map[int64][]int{}
	ledgerHits := map[int64]int{}
	for _, t := range m.bank {
		if m.bankDone[t.ID] {
			continue
		}
		for j, l := range m.ledger {
			if m.ledgerDone[l.ID] || !pred(t, l, m.opts.DateTolerance) {
				continue
			}
			bankHits[t.ID] = append(bankHits[t.ID], j)
			ledgerHits[l.ID]++
		}
	}
	for _, t := range m.bank {
		hits := bankHits[t.ID]
		if len(hits) != 1 {
			continue
		}
		l := m.ledger[hits[0]]
		if ledgerHits[l.ID] != 1 {
			continue
		}
		m.commit(t, l, tier)
	}
}

func (m *matcher) commit(t Transaction, l LedgerEntry, tier Tier) {
	m.bankDone[t.ID] = true
	m.ledgerDone[l.ID] = true
	m.matches = append(m.matches, Match{BankID: t.ID, LedgerID: l.ID, Amount: t.Amount, Tier: tier, ReconciledDate: m.opts.AsOf})
}

func (m *matcher) manual() error {
	const op = "bank.Reconcile"
	bankByID := make(map[int64]Transaction, len(m.bank))
	for _, t := range m.bank {
		bankByID[t.ID] = t
	}
	ledgerByID := make(map[int64]LedgerEntry, len(m.ledger))
	for _, l := range m.ledger {
		ledgerByID[l.ID] = l
	}
	for _, p := range m.opts.Manual {
		t, ok := bankByID[p.BankID]
		if !ok {
			return shared.E(shared.KindNotFound, op, "bank_transaction", p.BankID)
		}
		l, ok := ledgerByID[p.LedgerID]
		if !ok {
			return shared.E(shared.KindNotFound, op, "ledger_entry", p.LedgerID)
		}
		if m.bankDone[t.ID] || m.ledgerDone[l.ID] {
			return shared.E(shared.KindValidation, op, "manual_pair", t.ID, l.ID).Withf("row already matched")
		}
		if !sameMoney(t, l) {
			return shared.E(shared.KindValidation, op, "manual_pair", t.ID, l.ID).
				Withf("amounts differ: %s %s vs %s %s", t.Type, t.Amount, l.Type, l.Amount)
		}
		m.commit(t, l, TierManual)
	}
	return nil
}

// Reconcile pairs bank rows with ledger entries. Tiers run in order and each
// match removes both sides from later tiers:
//  1. equal amount, same day and the same non-empty reference
//  2. equal amount within DateTolerance
//  3. manual pairs from opts
//
// Rows never match on amount alone when more than one pairing is possible;
// such rows are reported as candidates instead.
func Reconcile(bank []Transaction, ledger []LedgerEntry, opts Options) (Result, error) {
	m := &matcher{
		bank:       sortedBank(bank),
		ledger:     sortedLedger(ledger),
		bankDone:   map[int64]bool{},
		ledgerDone: map[int64]bool{},
		opts:       opts,
	}
	m.tier(TierReference, referenceMatch)
	m.tier(TierDate, dateWindowMatch)
	if err := m.manual(); err != nil {
		return Result{}, err
	}

	res := Result{
		Matches:         m.matches,
		UnmatchedBank:   []Transaction{},
		UnmatchedLedger: []LedgerEntry{},
		Candidates:      []Candidate{},
	}
	if res.Matches == nil {
		res.Matches = []Match{}
	}
	for _, t := range m.bank {
		if m.bankDone[t.ID] {
			continue
		}
		res.UnmatchedBank = append(res.UnmatchedBank, t)
		var ids []int64
		for _, l := range m.ledger {
			if !m.ledgerDone[l.ID] && dateWindowMatch(t, l, opts.DateTolerance) {
				ids = append(ids, l.ID)
			}
		}
		if len(ids) > 0 {
			res.Candidates = append(res.Candidates, Candidate{BankID: t.ID, LedgerIDs: ids})
		}
	}
	for _, l := range m.ledger {
		if !m.ledgerDone[l.ID] {
			res.UnmatchedLedger = append(res.UnmatchedLedger, l)
		}
	}
	return res, nil
}

func sortedBank(in []Transaction) []Transaction {
	out := append([]Transaction(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sortedLedger(in []LedgerEntry) []LedgerEntry {
	out := append([]LedgerEntry(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
