package parties

import (
	"context"
	"log/slog"

	"github.com/billease/billease/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages party master data.
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

func (s *Service) List(ctx context.Context, actor shared.Identity, filter ListFilter, page shared.Page) ([]Party, int, error) {
	if filter.Type != "" {
		filter.Type = NormalizeType(string(filter.Type))
	}
	return s.repo.List(ctx, actor.CompanyID, filter, page)
}

func (s *Service) Get(ctx context.Context, actor shared.Identity, id int64) (Party, error) {
	return s.repo.Get(ctx, actor.CompanyID, id)
}

func (s *Service) Create(ctx context.Context, actor shared.Identity, p Party) (Party, error) {
	if err := shared.Authorize("parties.Create", actor, shared.CapMasterWrite); err != nil {
		return Party{}, err
	}
	normalize(&p)
	p.CompanyID = actor.CompanyID
	if err := validate("parties.Create", p); err != nil {
		return Party{}, err
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Party{}, err
	}
	s.record(ctx, actor, "party:create", created.ID, map[string]any{"name": created.Name, "type": created.Type})
	return created, nil
}

func (s *Service) Update(ctx context.Context, actor shared.Identity, id int64, p Party) (Party, error) {
	if err := shared.Authorize("parties.Update", actor, shared.CapMasterWrite); err != nil {
		return Party{}, err
	}
	normalize(&p)
	p.ID = id
	p.CompanyID = actor.CompanyID
	if err := validate("parties.Update", p); err != nil {
		return Party{}, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return Party{}, err
	}
	s.record(ctx, actor, "party:update", id, nil)
	return s.repo.Get(ctx, actor.CompanyID, id)
}

// Delete removes a party that no document header references. Referenced
// parties fail with ReferentialIntegrityError instead of orphaning documents.
func (s *Service) Delete(ctx context.Context, actor shared.Identity, id int64) error {
	if err := shared.Authorize("parties.Delete", actor, shared.CapLedgerWrite); err != nil {
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
			return shared.E(shared.KindReferentialIntegrity, "parties.Delete", "party", id).Withf("referenced by %d rows", refs)
		}
		return tx.Delete(ctx, actor.CompanyID, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actor, "party:delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actor shared.Identity, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "party", EntityID: id, Meta: meta}); err != nil {
		s.logger.Warn("audit party", slog.String("action", action), slog.Any("error", err))
	}
}
