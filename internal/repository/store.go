package repository

import (
	"context"
	"errors"
	"time"

	"toko-beras-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Store groups the repositories that take part in stock-affecting writes.
// Transaction runs fn against a Store bound to one database transaction;
// calling Transaction on that Store joins the running transaction.
type Store interface {
	Products() ProductRepository
	Movements() MovementRepository
	Sales() SaleRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByCode(ctx context.Context, code string) (*model.Product, error)
	// FindByIDForUpdate locks the product row until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindAll(ctx context.Context) ([]model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	// UpdateDetails saves every column except stock.
	UpdateDetails(ctx context.Context, product *model.Product) error
	UpdateStock(ctx context.Context, id uuid.UUID, newStock int, updatedBy string) error
	CreatePriceHistory(ctx context.Context, entry *model.ProductPriceHistory) error
	ListPriceHistory(ctx context.Context, productID uuid.UUID, limit int) ([]model.ProductPriceHistory, error)
	Stats(ctx context.Context) (*StockStats, error)
}

type MovementRepository interface {
	Create(ctx context.Context, movement *model.StockMovement) error
	List(ctx context.Context, filter MovementFilter) ([]model.StockMovement, int64, error)
	SumQuantity(ctx context.Context, productID uuid.UUID) (int, error)
	SumQuantityByProduct(ctx context.Context) (map[uuid.UUID]int, error)
	FindBySale(ctx context.Context, saleID uuid.UUID) ([]model.StockMovement, error)
	DailyFlow(ctx context.Context, from, to time.Time) ([]DailyFlow, error)
}

type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	// UpdateState saves status, payment and lifecycle columns. Items and
	// totals are fixed once the sale exists.
	UpdateState(ctx context.Context, sale *model.Sale) error
	List(ctx context.Context, filter SaleFilter) ([]model.Sale, int64, error)
	Summary(ctx context.Context, from, to time.Time) (*SalesSummary, error)
}

type Pagination struct {
	Page     int
	PageSize int
}

// Bounds returns offset and limit for the requested page.
func (p Pagination) Bounds() (offset, limit int) {
	limit = p.PageSize
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit, limit
}

type ProductFilter struct {
	Pagination
	Search          string
	Category        string
	IncludeInactive bool
	LowStockOnly    bool
}

type MovementFilter struct {
	Pagination
	ProductID *uuid.UUID
	SaleID    *uuid.UUID
	Type      model.MovementType
	From      *time.Time
	To        *time.Time
	Search    string
	// Ascending orders oldest first; the default is newest first.
	Ascending bool
}

type SaleFilter struct {
	Pagination
	Status  model.SaleStatus
	Channel model.SaleChannel
	From    *time.Time
	To      *time.Time
	Search  string
}

// DailyFlow is the chart row for one day of ledger activity.
type DailyFlow struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

type StockStats struct {
	TotalProducts  int64           `json:"total_products"`
	LowStockCount  int64           `json:"low_stock_count"`
	TotalValuation decimal.Decimal `json:"total_valuation"`
}

type SalesSummary struct {
	CompletedCount int64           `json:"completed_count"`
	Revenue        decimal.Decimal `json:"revenue"`
}
