package repository

import (
	"context"
	"time"

	"toko-beras-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

// Create inserts the sale together with its items.
func (r *saleRepo) Create(ctx context.Context, sale *model.Sale) error {
	return translateError(r.db.WithContext(ctx).Create(sale).Error)
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := r.db.WithContext(ctx).Preload("Items").First(&sale, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &sale, nil
}

func (r *saleRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	if err := r.db.WithContext(ctx).Where("sale_id = ?", sale.ID).Find(&sale.Items).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepo) UpdateState(ctx context.Context, sale *model.Sale) error {
	return r.db.WithContext(ctx).Model(&model.Sale{}).
		Where("id = ?", sale.ID).
		Updates(map[string]interface{}{
			"status":           sale.Status,
			"amount_paid":      sale.AmountPaid,
			"change_amount":    sale.Change,
			"paid_at":          sale.PaidAt,
			"completed_at":     sale.CompletedAt,
			"cancelled_at":     sale.CancelledAt,
			"cancel_reason":    sale.CancelReason,
			"rejection_reason": sale.RejectionReason,
			"updated_by":       sale.UpdatedBy,
		}).Error
}

func (r *saleRepo) List(ctx context.Context, filter SaleFilter) ([]model.Sale, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Sale{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("transaction_number ILIKE ? OR customer_name ILIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := filter.Bounds()
	var sales []model.Sale
	if err := query.Preload("Items").Order("created_at DESC").Offset(offset).Limit(limit).Find(&sales).Error; err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

// Summary counts completed sales by completion time.
func (r *saleRepo) Summary(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	var summary SalesSummary
	row := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select("COUNT(*), COALESCE(SUM(total), 0)").
		Where("status = ? AND completed_at BETWEEN ? AND ?", model.SaleCompleted, from, to).
		Row()
	if err := row.Scan(&summary.CompletedCount, &summary.Revenue); err != nil {
		return nil, err
	}
	return &summary, nil
}
