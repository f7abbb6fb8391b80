package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
	MovementCorrection MovementType = "correction"
	MovementInitial    MovementType = "initial"
	MovementReturn     MovementType = "return"
	MovementDamage     MovementType = "damage"
)

var (
	ErrUnknownMovementType = errors.New("unknown movement type")
	ErrInvalidQuantity     = errors.New("invalid movement quantity")
	ErrImmutableMovement   = errors.New("stock movements are append-only")
)

// MovementTypes lists every type in display order.
var MovementTypes = []MovementType{
	MovementInitial, MovementIn, MovementOut, MovementReturn,
	MovementDamage, MovementAdjustment, MovementCorrection,
}

func (t MovementType) Valid() bool {
	for _, known := range MovementTypes {
		if t == known {
			return true
		}
	}
	return false
}

// TakesSignedDelta reports whether callers pass an already-signed delta for
// this type. All other types take an unsigned magnitude whose direction the
// type implies.
func (t MovementType) TakesSignedDelta() bool {
	return t == MovementAdjustment || t == MovementCorrection
}

// SignedQuantity resolves the ledger delta for a movement request.
//
//	in, return, initial   magnitude > 0, result positive
//	out, damage           magnitude > 0, result negative
//	adjustment, correction signed delta != 0, used as is
func SignedQuantity(t MovementType, quantity int) (int, error) {
	switch t {
	case MovementIn, MovementReturn, MovementInitial:
		if quantity <= 0 {
			return 0, ErrInvalidQuantity
		}
		return quantity, nil
	case MovementOut, MovementDamage:
		if quantity <= 0 {
			return 0, ErrInvalidQuantity
		}
		return -quantity, nil
	case MovementAdjustment, MovementCorrection:
		if quantity == 0 {
			return 0, ErrInvalidQuantity
		}
		return quantity, nil
	default:
		return 0, ErrUnknownMovementType
	}
}

// StockMovement is one immutable ledger entry. StockAfter always equals
// StockBefore + Quantity and is never negative.
type StockMovement struct {
	ID          uuid.UUID        `gorm:"type:uuid;primary_key;" json:"id"`
	ProductID   uuid.UUID        `gorm:"type:uuid;not null;index:idx_movement_product_created,priority:1" json:"product_id"`
	Product     *Product         `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	Type        MovementType     `gorm:"type:varchar(20);not null;index" json:"type"`
	Quantity    int              `gorm:"not null" json:"quantity"`
	StockBefore int              `gorm:"not null" json:"stock_before"`
	StockAfter  int              `gorm:"not null;check:stock_after >= 0" json:"stock_after"`
	UnitPrice   *decimal.Decimal `gorm:"type:decimal(15,2)" json:"unit_price,omitempty"`
	Description string           `gorm:"type:text" json:"description"`
	ActorID     string           `gorm:"type:varchar(255);not null" json:"actor_id"`
	ActorName   string           `gorm:"type:varchar(255)" json:"actor_name"`
	SaleID      *uuid.UUID       `gorm:"type:uuid;index" json:"sale_id,omitempty"`
	CreatedAt   time.Time        `gorm:"not null;index:idx_movement_product_created,priority:2" json:"created_at"`
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *StockMovement) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableMovement
}

func (m *StockMovement) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableMovement
}
