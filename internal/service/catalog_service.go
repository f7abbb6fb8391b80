package service

import (
	"context"
	"strings"
	"time"

	"toko-beras-pos/internal/event"
	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository"
	"toko-beras-pos/pkg/logger"
	"toko-beras-pos/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type CreateProductRequest struct {
	Code         string          `json:"code" validate:"required,max=50"`
	Name         string          `json:"name" validate:"required,max=255"`
	Category     string          `json:"category" validate:"max=100"`
	Unit         string          `json:"unit" validate:"max=20"`
	BuyPrice     decimal.Decimal `json:"buy_price" validate:"money"`
	SellPrice    decimal.Decimal `json:"sell_price" validate:"money"`
	MinStock     int             `json:"min_stock" validate:"gte=0"`
	InitialStock int             `json:"initial_stock" validate:"gte=0"`
}

// MetadataPatch changes descriptive fields only; nil fields are left alone.
type MetadataPatch struct {
	Code     *string `json:"code" validate:"omitempty,min=1,max=50"`
	Name     *string `json:"name" validate:"omitempty,min=1,max=255"`
	Category *string `json:"category" validate:"omitempty,max=100"`
	Unit     *string `json:"unit" validate:"omitempty,max=20"`
	MinStock *int    `json:"min_stock" validate:"omitempty,gte=0"`
}

// UpdateProductRequest is the full edit form. Stock is accepted only so a
// client echoing the product back is not rejected; changing it is refused.
type UpdateProductRequest struct {
	MetadataPatch
	BuyPrice  *decimal.Decimal `json:"buy_price" validate:"omitempty,money"`
	SellPrice *decimal.Decimal `json:"sell_price" validate:"omitempty,money"`
	Stock     *int             `json:"stock"`
	IsActive  *bool            `json:"is_active"`
}

type ProductPage struct {
	Items    []model.Product `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

type CatalogService interface {
	CreateProduct(ctx context.Context, req CreateProductRequest, actor Actor) (*model.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListActive(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error)
	ListLowStock(ctx context.Context) ([]model.Product, error)
	SetPrice(ctx context.Context, id uuid.UUID, buy, sell decimal.Decimal, actor Actor) (*model.Product, error)
	SetMetadata(ctx context.Context, id uuid.UUID, patch MetadataPatch, actor Actor) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req UpdateProductRequest, actor Actor) (*model.Product, error)
	Deactivate(ctx context.Context, id uuid.UUID, actor Actor) (*model.Product, error)
	Activate(ctx context.Context, id uuid.UUID, actor Actor) (*model.Product, error)
	PriceHistory(ctx context.Context, id uuid.UUID, limit int) ([]model.ProductPriceHistory, error)
}

type catalogService struct {
	store     repository.Store
	inventory InventoryService
	notify    notifier
	log       logrus.FieldLogger
}

func NewCatalogService(store repository.Store, inventory InventoryService, pub event.Publisher, log logrus.FieldLogger) CatalogService {
	return &catalogService{
		store:     store,
		inventory: inventory,
		notify:    newNotifier(pub, log),
		log:       log,
	}
}

func (s *catalogService) CreateProduct(ctx context.Context, req CreateProductRequest, actor Actor) (*model.Product, error) {
	// 1. Validasi Struct Dasar
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if err := actor.validate(); err != nil {
		return nil, err
	}

	product := &model.Product{
		Code:      req.Code,
		Name:      req.Name,
		Category:  req.Category,
		Unit:      req.Unit,
		BuyPrice:  req.BuyPrice,
		SellPrice: req.SellPrice,
		MinStock:  req.MinStock,
		IsActive:  true,
	}
	product.CreatedBy = actor.ID
	product.UpdatedBy = actor.ID

	// 2. Produk selalu dibuat dengan stok 0; stok awal lewat ledger
	var initial *model.StockMovement
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Products().Create(ctx, product); err != nil {
			return translate(err, req.Code)
		}
		if req.InitialStock == 0 {
			return nil
		}
		price := req.BuyPrice
		m, err := s.inventory.ApplyInTx(ctx, tx, MovementRequest{
			ProductID:   product.ID,
			Type:        model.MovementInitial,
			Quantity:    req.InitialStock,
			UnitPrice:   &price,
			Description: "Stok awal",
		}, actor)
		if err != nil {
			return err
		}
		initial = m
		product.Stock = m.StockAfter
		return nil
	})
	if err != nil {
		s.logFailure("CreateProduct", req, err)
		return nil, err
	}

	s.notify.productChanged(ctx, actor, "created", product)
	if initial != nil {
		s.notify.stockMoved(ctx, actor, *initial)
	}
	return product, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "product "+id.String())
	}
	return product, nil
}

func (s *catalogService) ListActive(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error) {
	items, total, err := s.store.Products().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	offset, limit := filter.Bounds()
	return &ProductPage{Items: items, Total: total, Page: offset/limit + 1, PageSize: limit}, nil
}

func (s *catalogService) ListLowStock(ctx context.Context) ([]model.Product, error) {
	filter := repository.ProductFilter{LowStockOnly: true}
	filter.PageSize = repository.MaxPageSize

	var all []model.Product
	for filter.Page = 1; ; filter.Page++ {
		items, total, err := s.store.Products().List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < filter.PageSize || int64(len(all)) >= total {
			return all, nil
		}
	}
}

func (s *catalogService) SetPrice(ctx context.Context, id uuid.UUID, buy, sell decimal.Decimal, actor Actor) (*model.Product, error) {
	if buy.IsNegative() || sell.IsNegative() {
		return nil, invalid("prices must not be negative")
	}
	return s.update(ctx, "SetPrice", id, actor, "price_updated", func(p *model.Product) error {
		p.BuyPrice = buy
		p.SellPrice = sell
		return nil
	})
}

func (s *catalogService) SetMetadata(ctx context.Context, id uuid.UUID, patch MetadataPatch, actor Actor) (*model.Product, error) {
	patch = patch.trimmed()
	if errs := validator.ValidateStruct(patch); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	return s.update(ctx, "SetMetadata", id, actor, "updated", func(p *model.Product) error {
		patch.apply(p)
		return nil
	})
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req UpdateProductRequest, actor Actor) (*model.Product, error) {
	req.MetadataPatch = req.MetadataPatch.trimmed()
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	return s.update(ctx, "UpdateProduct", id, actor, "updated", func(p *model.Product) error {
		if req.Stock != nil && *req.Stock != p.Stock {
			return invariantf("stock of %s can only change through stock movements", p.Code)
		}
		req.MetadataPatch.apply(p)
		if req.BuyPrice != nil {
			p.BuyPrice = *req.BuyPrice
		}
		if req.SellPrice != nil {
			p.SellPrice = *req.SellPrice
		}
		if req.IsActive != nil {
			p.IsActive = *req.IsActive
		}
		return nil
	})
}

func (s *catalogService) Deactivate(ctx context.Context, id uuid.UUID, actor Actor) (*model.Product, error) {
	return s.update(ctx, "Deactivate", id, actor, "deactivated", func(p *model.Product) error {
		p.IsActive = false
		return nil
	})
}

func (s *catalogService) Activate(ctx context.Context, id uuid.UUID, actor Actor) (*model.Product, error) {
	return s.update(ctx, "Activate", id, actor, "activated", func(p *model.Product) error {
		p.IsActive = true
		return nil
	})
}

func (s *catalogService) PriceHistory(ctx context.Context, id uuid.UUID, limit int) ([]model.ProductPriceHistory, error) {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Products().ListPriceHistory(ctx, id, limit)
}

// update locks the product, lets mutate change it, records a price-history
// row when a price moved and saves everything except stock.
func (s *catalogService) update(ctx context.Context, funcName string, id uuid.UUID, actor Actor, action string, mutate func(*model.Product) error) (*model.Product, error) {
	if err := actor.validate(); err != nil {
		return nil, err
	}

	var product *model.Product
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		existing, err := tx.Products().FindByIDForUpdate(ctx, id)
		if err != nil {
			return translate(err, "product "+id.String())
		}
		oldBuy, oldSell := existing.BuyPrice, existing.SellPrice

		if err := mutate(existing); err != nil {
			return err
		}
		existing.UpdatedBy = actor.ID

		if !oldBuy.Equal(existing.BuyPrice) || !oldSell.Equal(existing.SellPrice) {
			if err := tx.Products().CreatePriceHistory(ctx, &model.ProductPriceHistory{
				ProductID:    existing.ID,
				OldBuyPrice:  oldBuy,
				NewBuyPrice:  existing.BuyPrice,
				OldSellPrice: oldSell,
				NewSellPrice: existing.SellPrice,
				ChangedBy:    actor.ID,
				ChangedAt:    time.Now(),
			}); err != nil {
				return err
			}
		}

		if err := tx.Products().UpdateDetails(ctx, existing); err != nil {
			return translate(err, existing.Code)
		}
		product = existing
		return nil
	})
	if err != nil {
		s.logFailure(funcName, id, err)
		return nil, err
	}

	s.notify.productChanged(ctx, actor, action, product)
	return product, nil
}

func (s *catalogService) logFailure(funcName string, data any, err error) {
	if IsDomainError(err) {
		s.log.WithError(err).WithField("funcName", funcName).Debug("catalog change rejected")
		return
	}
	logger.LogError(s.log, "catalog", funcName, "product transaction", data, err)
}

// trimmed returns the patch with code and name trimmed, so a blank value
// fails the min=1 rule instead of being stored empty.
func (p MetadataPatch) trimmed() MetadataPatch {
	if p.Code != nil {
		code := strings.TrimSpace(*p.Code)
		p.Code = &code
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
	}
	return p
}

func (p MetadataPatch) apply(product *model.Product) {
	if p.Code != nil {
		product.Code = *p.Code
	}
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Category != nil {
		product.Category = *p.Category
	}
	if p.Unit != nil {
		product.Unit = *p.Unit
	}
	if p.MinStock != nil {
		product.MinStock = *p.MinStock
	}
}
