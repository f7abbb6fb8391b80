package service

import (
	"context"
	"errors"
	"fmt"

	"toko-beras-pos/internal/event"
	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository"
	"toko-beras-pos/pkg/logger"
	"toko-beras-pos/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// MovementRequest asks for one stock change. Quantity follows the type's
// sign convention (see model.SignedQuantity).
type MovementRequest struct {
	ProductID   uuid.UUID          `json:"product_id" validate:"uuid_required"`
	Type        model.MovementType `json:"type" validate:"required"`
	Quantity    int                `json:"quantity"`
	UnitPrice   *decimal.Decimal   `json:"unit_price,omitempty" validate:"omitempty,money"`
	Description string             `json:"description" validate:"max=500"`
	SaleID      *uuid.UUID         `json:"sale_id,omitempty"`
}

type AbsoluteStockRequest struct {
	ProductID   uuid.UUID          `json:"product_id" validate:"uuid_required"`
	NewStock    int                `json:"new_stock" validate:"gte=0"`
	Type        model.MovementType `json:"type"`
	Description string             `json:"description" validate:"max=500"`
}

// ReconcileReport compares the cached stock with the ledger sum.
type ReconcileReport struct {
	ProductID       uuid.UUID `json:"product_id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	OK              bool      `json:"ok"`
	StoredStock     int       `json:"stored_stock"`
	RecomputedStock int       `json:"recomputed_stock"`
	Difference      int       `json:"difference"`
}

func newReport(p *model.Product, recomputed int) ReconcileReport {
	return ReconcileReport{
		ProductID:       p.ID,
		Code:            p.Code,
		Name:            p.Name,
		OK:              p.Stock == recomputed,
		StoredStock:     p.Stock,
		RecomputedStock: recomputed,
		Difference:      p.Stock - recomputed,
	}
}

// InventoryService is the only writer of Product.Stock.
type InventoryService interface {
	ApplyMovement(ctx context.Context, req MovementRequest, actor Actor) (*model.StockMovement, error)
	// ApplyInTx runs inside the caller's transaction and publishes nothing;
	// the caller announces the movements after commit.
	ApplyInTx(ctx context.Context, tx repository.Store, req MovementRequest, actor Actor) (*model.StockMovement, error)
	SetAbsoluteStock(ctx context.Context, req AbsoluteStockRequest, actor Actor) (*model.StockMovement, error)
	ApplyBulk(ctx context.Context, reqs []MovementRequest, actor Actor) ([]model.StockMovement, error)
	Reconcile(ctx context.Context, productID uuid.UUID) (*ReconcileReport, error)
	ReconcileAll(ctx context.Context) ([]ReconcileReport, error)
}

type inventoryService struct {
	store  repository.Store
	ledger LedgerService
	notify notifier
	log    logrus.FieldLogger
}

func NewInventoryService(store repository.Store, ledger LedgerService, pub event.Publisher, log logrus.FieldLogger) InventoryService {
	return &inventoryService{
		store:  store,
		ledger: ledger,
		notify: newNotifier(pub, log),
		log:    log,
	}
}

func (s *inventoryService) ApplyMovement(ctx context.Context, req MovementRequest, actor Actor) (*model.StockMovement, error) {
	var movement *model.StockMovement
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		m, err := s.ApplyInTx(ctx, tx, req, actor)
		movement = m
		return err
	})
	if err != nil {
		s.logFailure("ApplyMovement", req, err)
		return nil, err
	}

	s.notify.stockMoved(ctx, actor, *movement)
	return movement, nil
}

func (s *inventoryService) ApplyInTx(ctx context.Context, tx repository.Store, req MovementRequest, actor Actor) (*model.StockMovement, error) {
	// 1. Validasi request
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if err := actor.validate(); err != nil {
		return nil, err
	}
	delta, err := model.SignedQuantity(req.Type, req.Quantity)
	if err != nil {
		if errors.Is(err, model.ErrUnknownMovementType) {
			return nil, invalid("unknown movement type %q", req.Type)
		}
		if req.Type.TakesSignedDelta() {
			return nil, invalid("%s delta must not be zero", req.Type)
		}
		return nil, invalid("%s quantity must be greater than zero, got %d", req.Type, req.Quantity)
	}

	// 2. Tulis ke ledger
	return s.ledger.Append(ctx, tx, MovementDraft{
		ProductID:   req.ProductID,
		Type:        req.Type,
		Delta:       delta,
		UnitPrice:   req.UnitPrice,
		Description: req.Description,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		SaleID:      req.SaleID,
	})
}

func (s *inventoryService) SetAbsoluteStock(ctx context.Context, req AbsoluteStockRequest, actor Actor) (*model.StockMovement, error) {
	if req.Type == "" {
		req.Type = model.MovementAdjustment
	}
	switch req.Type {
	case model.MovementAdjustment, model.MovementCorrection, model.MovementInitial:
	default:
		return nil, invalid("absolute stock cannot be set with type %q", req.Type)
	}
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if err := actor.validate(); err != nil {
		return nil, err
	}

	var movement *model.StockMovement
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		product, err := tx.Products().FindByIDForUpdate(ctx, req.ProductID)
		if err != nil {
			return translate(err, "product "+req.ProductID.String())
		}

		delta := req.NewStock - product.Stock
		if delta == 0 {
			return fmt.Errorf("%w: %s is already %d", ErrNoStockChange, product.Code, product.Stock)
		}
		if req.Type == model.MovementInitial && delta < 0 {
			return invalid("initial stock can only add to %s", product.Code)
		}

		description := req.Description
		if description == "" {
			description = fmt.Sprintf("Stok disesuaikan %d -> %d", product.Stock, req.NewStock)
		}
		movement, err = s.ledger.Append(ctx, tx, MovementDraft{
			ProductID:   product.ID,
			Type:        req.Type,
			Delta:       delta,
			Description: description,
			ActorID:     actor.ID,
			ActorName:   actor.Name,
		})
		return err
	})
	if err != nil {
		s.logFailure("SetAbsoluteStock", req, err)
		return nil, err
	}

	s.notify.stockMoved(ctx, actor, *movement)
	return movement, nil
}

func (s *inventoryService) ApplyBulk(ctx context.Context, reqs []MovementRequest, actor Actor) ([]model.StockMovement, error) {
	if len(reqs) == 0 {
		return nil, invalid("no movements given")
	}

	movements := make([]model.StockMovement, 0, len(reqs))
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		for i, req := range reqs {
			m, err := s.ApplyInTx(ctx, tx, req, actor)
			if err != nil {
				return fmt.Errorf("movement %d: %w", i+1, err)
			}
			movements = append(movements, *m)
		}
		return nil
	})
	if err != nil {
		s.logFailure("ApplyBulk", len(reqs), err)
		return nil, err
	}

	s.notify.stockMoved(ctx, actor, movements...)
	return movements, nil
}

func (s *inventoryService) Reconcile(ctx context.Context, productID uuid.UUID) (*ReconcileReport, error) {
	var report ReconcileReport
	// The row lock keeps a concurrent movement from landing between the
	// two reads; nothing is written.
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		product, err := tx.Products().FindByIDForUpdate(ctx, productID)
		if err != nil {
			return translate(err, "product "+productID.String())
		}
		sum, err := tx.Movements().SumQuantity(ctx, productID)
		if err != nil {
			return err
		}
		report = newReport(product, sum)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !report.OK {
		s.log.WithFields(logrus.Fields{
			"product":    report.Code,
			"stored":     report.StoredStock,
			"recomputed": report.RecomputedStock,
		}).Warn("stock drift detected")
	}
	return &report, nil
}

func (s *inventoryService) ReconcileAll(ctx context.Context) ([]ReconcileReport, error) {
	products, err := s.store.Products().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	sums, err := s.store.Movements().SumQuantityByProduct(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]ReconcileReport, 0, len(products))
	for i := range products {
		report := newReport(&products[i], sums[products[i].ID])
		if !report.OK {
			// the two reads above are not atomic; confirm under the row lock
			confirmed, err := s.Reconcile(ctx, products[i].ID)
			if err != nil {
				return nil, err
			}
			report = *confirmed
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *inventoryService) logFailure(funcName string, data any, err error) {
	if IsDomainError(err) {
		s.log.WithError(err).WithField("funcName", funcName).Debug("stock change rejected")
		return
	}
	logger.LogError(s.log, "inventory", funcName, "stock transaction", data, err)
}
