package audit

import (
	"context"

	"github.com/billease/billease/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Store is the read port used by Service.
type Store interface {
	Window(ctx context.Context, p WindowParams) ([]Entry, error)
}

// Service pages through the audit trail of the caller's company.
type Service struct {
	store Store
}

// NewService builds the audit trail service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Timeline returns one page of entries, newest first.
func (s *Service) Timeline(ctx context.Context, actor shared.Identity, f Filters) (Result, error) {
	const op = "audit.Timeline"
	if err := shared.Authorize(op, actor, shared.CapLedgerWrite); err != nil {
		return Result{}, err
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return Result{}, shared.E(shared.KindValidation, op, "audit").Withf("to before from")
	}
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.store.Window(ctx, WindowParams{
		CompanyID: actor.CompanyID,
		FromAt:    toPgTime(f.From),
		ToAt:      toPgTime(f.To),
		ActorID:   optionalID(f.ActorID),
		Action:    optionalText(f.Action),
		Entity:    optionalText(f.Entity),
		EntityID:  optionalID(f.EntityID),
		Offset:    int32((page - 1) * pageSize),
		Limit:     int32(pageSize + 1),
	})
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []Entry{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Entries: rows, Paging: paging}, nil
}
