package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is one sellable item (barang). Stock is a materialized cache of the
// product's ledger and is written only by the inventory engine.
type Product struct {
	BaseModel
	Code      string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Category  string          `gorm:"type:varchar(100);index" json:"category"`
	Unit      string          `gorm:"type:varchar(20)" json:"unit"`
	BuyPrice  decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"buy_price"`
	SellPrice decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"sell_price"`
	Stock     int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	MinStock  int             `gorm:"not null;default:0;check:min_stock >= 0" json:"min_stock"`
	IsActive  bool            `gorm:"not null;default:true;index" json:"is_active"`
}

// IsLowStock reports whether stock has reached the minimum threshold.
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.MinStock
}

// ProductPriceHistory records every buy/sell price change.
type ProductPriceHistory struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key;" json:"id"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	OldBuyPrice  decimal.Decimal `gorm:"type:decimal(15,2)" json:"old_buy_price"`
	NewBuyPrice  decimal.Decimal `gorm:"type:decimal(15,2)" json:"new_buy_price"`
	OldSellPrice decimal.Decimal `gorm:"type:decimal(15,2)" json:"old_sell_price"`
	NewSellPrice decimal.Decimal `gorm:"type:decimal(15,2)" json:"new_sell_price"`
	ChangedBy    string          `gorm:"type:varchar(255)" json:"changed_by"`
	ChangedAt    time.Time       `gorm:"not null" json:"changed_at"`
}
