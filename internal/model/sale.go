package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleChannel string

const (
	ChannelOffline SaleChannel = "offline"
	ChannelOnline  SaleChannel = "online"
)

type SaleStatus string

const (
	SalePending   SaleStatus = "pending"
	SalePaid      SaleStatus = "dibayar"
	SaleReady     SaleStatus = "siap_pickup"
	SaleCompleted SaleStatus = "selesai"
	SaleCancelled SaleStatus = "dibatalkan"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentQRIS     PaymentMethod = "qris"
	PaymentDebit    PaymentMethod = "debit"
)

func (c SaleChannel) Valid() bool {
	return c == ChannelOffline || c == ChannelOnline
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentTransfer, PaymentQRIS, PaymentDebit:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s SaleStatus) IsTerminal() bool {
	return s == SaleCompleted || s == SaleCancelled
}

var saleTransitions = map[SaleChannel]map[SaleStatus][]SaleStatus{
	ChannelOffline: {
		SalePending: {SaleCompleted, SaleCancelled},
	},
	ChannelOnline: {
		SalePending: {SalePaid, SaleCancelled},
		SalePaid:    {SaleReady, SalePending},
		SaleReady:   {SaleCompleted},
	},
}

// CanTransition reports whether a sale on the given channel may move from one
// status to another.
func CanTransition(channel SaleChannel, from, to SaleStatus) bool {
	for _, next := range saleTransitions[channel][from] {
		if next == to {
			return true
		}
	}
	return false
}

// Sale (penjualan) groups one or more line items. All money fields are
// derived from the items and the payment input.
type Sale struct {
	BaseModel
	TransactionNumber string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"transaction_number"`
	CustomerID        *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	CustomerName      string          `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerPhone     string          `gorm:"type:varchar(30)" json:"customer_phone"`
	CustomerAddress   string          `gorm:"type:text" json:"customer_address"`
	Channel           SaleChannel     `gorm:"type:varchar(10);not null;index" json:"channel"`
	Status            SaleStatus      `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentMethod     PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	Subtotal          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"subtotal"`
	Discount          decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"discount"`
	Tax               decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"tax"`
	Total             decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total"`
	AmountPaid        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"amount_paid"`
	Change            decimal.Decimal `gorm:"column:change_amount;type:decimal(15,2);not null;default:0" json:"change"`
	Notes             string          `gorm:"type:text" json:"notes"`
	CashierID         string          `gorm:"type:varchar(255);not null" json:"cashier_id"`
	CashierName       string          `gorm:"type:varchar(255)" json:"cashier_name"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason      string          `gorm:"type:text" json:"cancel_reason,omitempty"`
	RejectionReason   string          `gorm:"type:text" json:"rejection_reason,omitempty"`

	Items []SaleItem `gorm:"foreignKey:SaleID" json:"items"`
}

// SaleItem (detail penjualan) keeps the unit price as it was at checkout.
type SaleItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key;" json:"id"`
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductCode string          `gorm:"type:varchar(50)" json:"product_code"`
	ProductName string          `gorm:"type:varchar(255)" json:"product_name"`
	Quantity    int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"unit_price"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"subtotal"`
}

func (i *SaleItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// ItemsSubtotal sums the line subtotals.
func (s *Sale) ItemsSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range s.Items {
		sum = sum.Add(item.Subtotal)
	}
	return sum
}
