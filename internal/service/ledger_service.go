package service

import (
	"context"
	"iter"

	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementDraft is a ledger row before stock_before/stock_after are known.
// Delta is already signed.
type MovementDraft struct {
	ProductID   uuid.UUID
	Type        model.MovementType
	Delta       int
	UnitPrice   *decimal.Decimal
	Description string
	ActorID     string
	ActorName   string
	SaleID      *uuid.UUID
}

type MovementPage struct {
	Items    []model.StockMovement `json:"items"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

type LedgerService interface {
	// Append locks the product, writes one movement and the new cached stock.
	// It joins tx when tx is already a transaction.
	Append(ctx context.Context, tx repository.Store, draft MovementDraft) (*model.StockMovement, error)
	Query(ctx context.Context, filter repository.MovementFilter) (*MovementPage, error)
	// Iterate walks every movement matching filter, oldest first, one page
	// at a time. The sequence ends after the rows counted on the first page.
	Iterate(ctx context.Context, filter repository.MovementFilter) iter.Seq2[model.StockMovement, error]
	Recompute(ctx context.Context, productID uuid.UUID) (int, error)
}

type ledgerService struct {
	store repository.Store
}

func NewLedgerService(store repository.Store) LedgerService {
	return &ledgerService{store: store}
}

func (s *ledgerService) Append(ctx context.Context, tx repository.Store, draft MovementDraft) (*model.StockMovement, error) {
	if !draft.Type.Valid() {
		return nil, invalid("unknown movement type %q", draft.Type)
	}
	if draft.Delta == 0 {
		return nil, invalid("movement quantity must not be zero")
	}
	if draft.ActorID == "" {
		return nil, invalid("actor is required")
	}

	var movement *model.StockMovement
	err := tx.Transaction(ctx, func(tx repository.Store) error {
		// 1. Lock product row
		product, err := tx.Products().FindByIDForUpdate(ctx, draft.ProductID)
		if err != nil {
			return translate(err, "product "+draft.ProductID.String())
		}

		// 2. Hitung stok baru
		before := product.Stock
		after := before + draft.Delta
		if after < 0 {
			return &InsufficientStockError{
				ProductID: product.ID,
				Code:      product.Code,
				Name:      product.Name,
				Available: before,
				Requested: -draft.Delta,
			}
		}

		// 3. Ledger row, then the cached stock
		m := &model.StockMovement{
			ProductID:   product.ID,
			Type:        draft.Type,
			Quantity:    draft.Delta,
			StockBefore: before,
			StockAfter:  after,
			UnitPrice:   draft.UnitPrice,
			Description: draft.Description,
			ActorID:     draft.ActorID,
			ActorName:   draft.ActorName,
			SaleID:      draft.SaleID,
		}
		if err := tx.Movements().Create(ctx, m); err != nil {
			return err
		}
		if err := tx.Products().UpdateStock(ctx, product.ID, after, draft.ActorID); err != nil {
			return translate(err, "product "+product.ID.String())
		}

		product.Stock = after
		m.Product = product
		movement = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

func (s *ledgerService) Query(ctx context.Context, filter repository.MovementFilter) (*MovementPage, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, invalid("unknown movement type %q", filter.Type)
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, invalid("date range is reversed")
	}

	items, total, err := s.store.Movements().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	offset, limit := filter.Bounds()
	return &MovementPage{
		Items:    items,
		Total:    total,
		Page:     offset/limit + 1,
		PageSize: limit,
	}, nil
}

func (s *ledgerService) Iterate(ctx context.Context, filter repository.MovementFilter) iter.Seq2[model.StockMovement, error] {
	return func(yield func(model.StockMovement, error) bool) {
		f := filter
		f.Ascending = true
		_, limit := f.Bounds()
		f.PageSize = limit
		f.Page = 1

		var (
			total int64 = -1
			seen  int64
		)
		for {
			if err := ctx.Err(); err != nil {
				yield(model.StockMovement{}, err)
				return
			}
			items, count, err := s.store.Movements().List(ctx, f)
			if err != nil {
				yield(model.StockMovement{}, err)
				return
			}
			if total < 0 {
				total = count
			}
			for _, m := range items {
				if seen >= total {
					return
				}
				seen++
				if !yield(m, nil) {
					return
				}
			}
			if len(items) < limit || seen >= total {
				return
			}
			f.Page++
		}
	}
}

func (s *ledgerService) Recompute(ctx context.Context, productID uuid.UUID) (int, error) {
	if _, err := s.store.Products().FindByID(ctx, productID); err != nil {
		return 0, translate(err, "product "+productID.String())
	}
	return s.store.Movements().SumQuantity(ctx, productID)
}
