package repository

import (
	"context"
	"time"

	"toko-beras-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type movementRepo struct {
	db *gorm.DB
}

func NewMovementRepo(db *gorm.DB) MovementRepository {
	return &movementRepo{db}
}

// Create inserts a ledger row. There is no update or delete counterpart.
func (r *movementRepo) Create(ctx context.Context, movement *model.StockMovement) error {
	return r.db.WithContext(ctx).Omit("Product").Create(movement).Error
}

func (r *movementRepo) List(ctx context.Context, filter MovementFilter) ([]model.StockMovement, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.StockMovement{})

	if filter.ProductID != nil {
		query = query.Where("stock_movements.product_id = ?", *filter.ProductID)
	}
	if filter.SaleID != nil {
		query = query.Where("stock_movements.sale_id = ?", *filter.SaleID)
	}
	if filter.Type != "" {
		query = query.Where("stock_movements.type = ?", filter.Type)
	}
	if filter.From != nil {
		query = query.Where("stock_movements.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("stock_movements.created_at < ?", *filter.To)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Joins("JOIN products ON products.id = stock_movements.product_id").
			Where("stock_movements.description ILIKE ? OR products.name ILIKE ? OR products.code ILIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "stock_movements.created_at DESC, stock_movements.id DESC"
	if filter.Ascending {
		order = "stock_movements.created_at ASC, stock_movements.id ASC"
	}

	offset, limit := filter.Bounds()
	var movements []model.StockMovement
	err := query.Preload("Product").
		Order(order).
		Offset(offset).
		Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

func (r *movementRepo) SumQuantity(ctx context.Context, productID uuid.UUID) (int, error) {
	var sum int
	row := r.db.WithContext(ctx).Model(&model.StockMovement{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("product_id = ?", productID).
		Row()
	if err := row.Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *movementRepo) SumQuantityByProduct(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := r.db.WithContext(ctx).Model(&model.StockMovement{}).
		Select("product_id, COALESCE(SUM(quantity), 0)").
		Group("product_id").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sums := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var sum int
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, err
		}
		sums[id] = sum
	}
	return sums, rows.Err()
}

func (r *movementRepo) FindBySale(ctx context.Context, saleID uuid.UUID) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("created_at ASC, id ASC").
		Find(&movements).Error
	return movements, err
}

// DailyFlow aggregates signed quantities per day into inbound and outbound totals.
func (r *movementRepo) DailyFlow(ctx context.Context, from, to time.Time) ([]DailyFlow, error) {
	rows, err := r.db.WithContext(ctx).Model(&model.StockMovement{}).
		Select(`
			TO_CHAR(DATE(created_at), 'YYYY-MM-DD') as date,
			COALESCE(SUM(CASE WHEN quantity > 0 THEN quantity ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN quantity < 0 THEN -quantity ELSE 0 END), 0) as outbound
		`).
		Where("created_at BETWEEN ? AND ?", from, to).
		Group("DATE(created_at)").
		Order("DATE(created_at) ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DailyFlow
	for rows.Next() {
		var data DailyFlow
		if err := rows.Scan(&data.Date, &data.Inbound, &data.Outbound); err != nil {
			return nil, err
		}
		results = append(results, data)
	}
	return results, rows.Err()
}
