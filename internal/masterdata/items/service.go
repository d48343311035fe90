package items

import (
	"context"
	"log/slog"

	"github.com/billease/billease/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages item master data.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

func (s *Service) List(ctx context.Context, actor shared.Identity, search string, page shared.Page) ([]Item, int, error) {
	return s.repo.List(ctx, actor.CompanyID, search, page)
}

func (s *Service) Get(ctx context.Context, actor shared.Identity, id int64) (Item, error) {
	return s.repo.Get(ctx, actor.CompanyID, id)
}

func (s *Service) Create(ctx context.Context, actor shared.Identity, it Item) (Item, error) {
	if err := shared.Authorize("items.Create", actor, shared.CapMasterWrite); err != nil {
		return Item{}, err
	}
	normalize(&it)
	it.CompanyID = actor.CompanyID
	if err := validate("items.Create", it); err != nil {
		return Item{}, err
	}
	created, err := s.repo.Create(ctx, it)
	if err != nil {
		return Item{}, err
	}
	s.record(ctx, actor, "item:create", created.ID, map[string]any{"code": created.Code})
	return created, nil
}

func (s *Service) Update(ctx context.Context, actor shared.Identity, id int64, it Item) (Item, error) {
	if err := shared.Authorize("items.Update", actor, shared.CapMasterWrite); err != nil {
		return Item{}, err
	}
	normalize(&it)
	it.ID = id
	it.CompanyID = actor.CompanyID
	if err := validate("items.Update", it); err != nil {
		return Item{}, err
	}
	if err := s.repo.Update(ctx, it); err != nil {
		return Item{}, err
	}
	s.record(ctx, actor, "item:update", id, nil)
	return s.repo.Get(ctx, actor.CompanyID, id)
}

// Delete removes an item that no historical document line or movement
// references. Referenced items fail with ReferentialIntegrityError.
func (s *Service) Delete(ctx context.Context, actor shared.Identity, id int64) error {
	if err := shared.Authorize("items.Delete", actor, shared.CapLedgerWrite); err != nil {
		return err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.Get(ctx, actor.CompanyID, id); err != nil {
			return err
		}
		refs, err := tx.CountReferences(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return shared.E(shared.KindReferentialIntegrity, "items.Delete", "item", id).Withf("referenced by %d rows", refs)
		}
		return tx.Delete(ctx, actor.CompanyID, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actor, "item:delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actor shared.Identity, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "item", EntityID: id, Meta: meta}); err != nil {
		s.logger.Warn("audit item", slog.String("action", action), slog.Any("error", err))
	}
}
