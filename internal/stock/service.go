package stock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/billease/billease/internal/shared"
)

// lowStockWorkers bounds concurrent per-item stock calculations.
const lowStockWorkers = 8

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	LedgerSource
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListOpenings(ctx context.Context, companyID int64) ([]Opening, error)
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

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
}

// Service coordinates stock reads and manual movements.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	observer    shared.CalcObserver
	logger      *slog.Logger
	allowNeg    bool
	now         func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, observer shared.CalcObserver, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		audit:       audit,
		idempotency: idem,
		observer:    shared.ObserverOrNop(observer),
		logger:      logger,
		allowNeg:    cfg.AllowNegativeStock,
		now:         time.Now,
	}
}

// StockOnHand recomputes the quantity on hand for an item.
func (s *Service) StockOnHand(ctx context.Context, actor shared.Identity, itemID int64) (qty decimal.Decimal, err error) {
	if err := shared.Authorize("stock.StockOnHand", actor, shared.CapRead); err != nil {
		return decimal.Zero, err
	}
	defer func(start time.Time) { s.observer.ObserveCalculation("stock_on_hand", start, err) }(time.Now())
	return OnHand(ctx, s.repo, actor.CompanyID, itemID)
}

// LowStock lists items whose stock on hand is at or below the reorder level.
func (s *Service) LowStock(ctx context.Context, actor shared.Identity) ([]Level, error) {
	if err := shared.Authorize("stock.LowStock", actor, shared.CapRead); err != nil {
		return nil, err
	}
	openings, err := s.repo.ListOpenings(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	levels := make([]Level, len(openings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lowStockWorkers)
	for i, o := range openings {
		i, o := i, o
		g.Go(func() error {
			entries, err := s.repo.ItemEntries(gctx, actor.CompanyID, o.ItemID)
			if err != nil {
				return fmt.Errorf("stock: item %d: %w", o.ItemID, err)
			}
			levels[i] = Level{
				ItemID:       o.ItemID,
				Code:         o.Code,
				Name:         o.Name,
				OnHand:       Fold(o.OpeningStock, entries),
				ReorderLevel: o.ReorderLevel,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	low := make([]Level, 0)
	for _, l := range levels {
		if l.OnHand.LessThanOrEqual(l.ReorderLevel) {
			low = append(low, l)
		}
	}
	return low, nil
}

// PostMovement records a manual stock adjustment. Out movements that would
// leave the item below zero fail unless negative stock is allowed.
func (s *Service) PostMovement(ctx context.Context, actor shared.Identity, in MovementInput) (Movement, error) {
	const op = "stock.PostMovement"
	if err := shared.Authorize(op, actor, shared.CapLedgerWrite); err != nil {
		return Movement{}, err
	}
	if err := shared.ValidateStruct(op, in); err != nil {
		return Movement{}, err
	}
	if !in.Quantity.IsPositive() {
		return Movement{}, shared.E(shared.KindValidation, op, "quantity").Withf("quantity must be greater than zero")
	}

	now := s.now().UTC()
	m := Movement{
		CompanyID: actor.CompanyID,
		ItemID:    in.ItemID,
		Type:      in.Type,
		Quantity:  in.Quantity,
		Reference: in.Reference,
		Date:      in.Date,
		CreatedBy: actor.UserID,
		CreatedAt: now,
	}
	if m.Date.IsZero() {
		m.Date = now
	}
	if m.Type == MovementOut {
		m.Quantity = m.Quantity.Neg()
	}

	claimed := false
	if s.idempotency != nil && in.IdempotencyKey != "" {
		if err := s.idempotency.Claim(ctx, actor.CompanyID, "stock", in.IdempotencyKey); err != nil {
			return Movement{}, err
		}
		claimed = true
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockItem(ctx, actor.CompanyID, in.ItemID); err != nil {
			return err
		}
		if m.Type == MovementOut && !s.allowNeg {
			current, err := OnHand(ctx, tx, actor.CompanyID, in.ItemID)
			if err != nil {
				return err
			}
			if current.Add(m.Quantity).IsNegative() {
				return shared.E(shared.KindValidation, op, "item", in.ItemID).
					Withf("on hand %s, requested %s", current, in.Quantity).Wrap(ErrNegativeStock)
			}
		}
		id, err := tx.InsertMovement(ctx, m)
		if err != nil {
			return err
		}
		m.ID = id
		return nil
	})
	if err != nil {
		if claimed {
			if rerr := s.idempotency.Release(ctx, actor.CompanyID, "stock", in.IdempotencyKey); rerr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", rerr))
			}
		}
		return Movement{}, err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			Actor:    actor,
			Action:   fmt.Sprintf("stock:%s", m.Type),
			Entity:   "inventory_movement",
			EntityID: m.ID,
			Meta: map[string]any{
				"item_id":   m.ItemID,
				"quantity":  m.Quantity.String(),
				"reference": m.Reference,
			},
		}); err != nil {
			s.logger.Warn("audit movement", slog.Any("error", err))
		}
	}
	return m, nil
}
