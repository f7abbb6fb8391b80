package service

import (
	"context"
	"fmt"
	"time"

	"toko-beras-pos/internal/event"
	"toko-beras-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// notifier publishes events once a transaction has committed. Publish
// failures are logged and never reach the caller: the write already happened.
type notifier struct {
	pub     event.Publisher
	log     logrus.FieldLogger
	timeout time.Duration
}

// publishTimeout bounds how long a committed request waits on delivery.
const publishTimeout = 2 * time.Second

func newNotifier(pub event.Publisher, log logrus.FieldLogger) notifier {
	if pub == nil {
		pub = event.Noop
	}
	return notifier{pub: pub, log: log, timeout: publishTimeout}
}

// productSnapshot is what event consumers see of a product. Events reach
// every websocket client, so costs stay out.
type productSnapshot struct {
	ID        uuid.UUID       `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	SellPrice decimal.Decimal `json:"sell_price"`
	Stock     int             `json:"stock"`
	MinStock  int             `json:"min_stock"`
	IsActive  bool            `json:"is_active"`
}

func snapshot(p *model.Product) productSnapshot {
	return productSnapshot{
		ID:        p.ID,
		Code:      p.Code,
		Name:      p.Name,
		Unit:      p.Unit,
		SellPrice: p.SellPrice,
		Stock:     p.Stock,
		MinStock:  p.MinStock,
		IsActive:  p.IsActive,
	}
}

type movementPayload struct {
	ID          uuid.UUID          `json:"id"`
	Type        model.MovementType `json:"type"`
	Quantity    int                `json:"quantity"`
	StockBefore int                `json:"stock_before"`
	StockAfter  int                `json:"stock_after"`
	SaleID      *uuid.UUID         `json:"sale_id,omitempty"`
	Product     *productSnapshot   `json:"product,omitempty"`
}

func (n notifier) publish(ctx context.Context, e event.Event) {
	// the client may have gone; the write is committed either way
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()
	if err := n.pub.Publish(ctx, e); err != nil {
		n.log.WithError(err).WithField("event", e.Type).Warn("publish event failed")
	}
}

func (n notifier) stockMoved(ctx context.Context, actor Actor, movements ...model.StockMovement) {
	for _, m := range movements {
		payload := movementPayload{
			ID:          m.ID,
			Type:        m.Type,
			Quantity:    m.Quantity,
			StockBefore: m.StockBefore,
			StockAfter:  m.StockAfter,
			SaleID:      m.SaleID,
		}
		name := m.ProductID.String()
		if m.Product != nil {
			snap := snapshot(m.Product)
			payload.Product = &snap
			name = m.Product.Name
		}
		n.publish(ctx, event.New(event.StockMoved, string(m.Type), payload, actor.Name,
			fmt.Sprintf("%s: %s %+d (%d -> %d)", actor.Name, name, m.Quantity, m.StockBefore, m.StockAfter)))

		if m.Product != nil && m.Product.IsLowStock() {
			n.publish(ctx, event.New(event.LowStock, string(m.Type), payload.Product, actor.Name,
				fmt.Sprintf("Stok %s tinggal %d %s (minimum %d)", m.Product.Name, m.Product.Stock, m.Product.Unit, m.Product.MinStock)))
		}
	}
}

func (n notifier) productChanged(ctx context.Context, actor Actor, action string, p *model.Product) {
	n.publish(ctx, event.New(event.ProductChanged, action, snapshot(p), actor.Name,
		fmt.Sprintf("%s %s product '%s'", actor.Name, action, p.Name)))
}

func (n notifier) saleStatusChanged(ctx context.Context, actor Actor, from model.SaleStatus, sale *model.Sale) {
	n.publish(ctx, event.New(event.SaleStatusChanged, string(sale.Status), sale, actor.Name,
		fmt.Sprintf("%s: %s -> %s", sale.TransactionNumber, from, sale.Status)))
}
