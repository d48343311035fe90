package partybalance

import (
	"context"
	"time"

	"github.com/billease/billease/internal/shared"
)

// Service answers outstanding and statement queries.
type Service struct {
	src      LedgerSource
	observer shared.CalcObserver
}

// NewService builds Service.
func NewService(src LedgerSource, observer shared.CalcObserver) *Service {
	return &Service{src: src, observer: shared.ObserverOrNop(observer)}
}

// Outstanding recomputes the party's balance; nothing is cached.
func (s *Service) Outstanding(ctx context.Context, actor shared.Identity, partyID int64) (b Balance, err error) {
	if err := shared.Authorize("partybalance.Outstanding", actor, shared.CapRead); err != nil {
		return Balance{}, err
	}
	defer func(start time.Time) { s.observer.ObserveCalculation("party_outstanding", start, err) }(time.Now())
	return Outstanding(ctx, s.src, actor.CompanyID, partyID)
}

// Statement returns the party's posted documents with a running balance.
func (s *Service) Statement(ctx context.Context, actor shared.Identity, partyID int64) ([]StatementLine, error) {
	if err := shared.Authorize("partybalance.Statement", actor, shared.CapRead); err != nil {
		return nil, err
	}
	acct, err := s.src.Account(ctx, actor.CompanyID, partyID)
	if err != nil {
		return nil, err
	}
	entries, err := s.src.PartyEntries(ctx, actor.CompanyID, partyID)
	if err != nil {
		return nil, err
	}
	return BuildStatement(acct, entries), nil
}
