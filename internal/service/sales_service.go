package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
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

type CartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

type PaymentRequest struct {
	Method          model.PaymentMethod `json:"payment_method" validate:"required"`
	AmountPaid      decimal.Decimal     `json:"amount_paid" validate:"money"`
	Discount        decimal.Decimal     `json:"discount" validate:"money"`
	TaxRate         decimal.Decimal     `json:"tax_rate" validate:"money"`
	CustomerID      *uuid.UUID          `json:"customer_id,omitempty"`
	CustomerName    string              `json:"customer_name" validate:"max=255"`
	CustomerPhone   string              `json:"customer_phone" validate:"max=30"`
	CustomerAddress string              `json:"customer_address"`
	Notes           string              `json:"notes"`
}

type SalePage struct {
	Items    []model.Sale `json:"items"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

type SalesService interface {
	// AddLineItem checks the shelf (advisory, no lock) and adds to the cart.
	AddLineItem(ctx context.Context, cart *Cart, productID uuid.UUID, qty int) error
	// BuildCart is AddLineItem for a whole request body.
	BuildCart(ctx context.Context, channel model.SaleChannel, items []CartItemRequest) (*Cart, error)
	Checkout(ctx context.Context, cart *Cart, payment PaymentRequest, actor Actor) (*model.Sale, error)
	// CheckoutItems checks out a request body in one step. The shelf check
	// is left to Checkout's row locks, so a lost race reports
	// InsufficientStock.
	CheckoutItems(ctx context.Context, channel model.SaleChannel, items []CartItemRequest, payment PaymentRequest, actor Actor) (*model.Sale, error)
	Cancel(ctx context.Context, saleID uuid.UUID, reason string, actor Actor) (*model.Sale, error)
	ConfirmPayment(ctx context.Context, saleID uuid.UUID, actor Actor) (*model.Sale, error)
	RejectPayment(ctx context.Context, saleID uuid.UUID, reason string, actor Actor) (*model.Sale, error)
	MarkReadyForPickup(ctx context.Context, saleID uuid.UUID, actor Actor) (*model.Sale, error)
	Complete(ctx context.Context, saleID uuid.UUID, actor Actor) (*model.Sale, error)
	GetSale(ctx context.Context, saleID uuid.UUID) (*model.Sale, error)
	ListSales(ctx context.Context, filter repository.SaleFilter) (*SalePage, error)
}

type salesService struct {
	store     repository.Store
	inventory InventoryService
	notify    notifier
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewSalesService(store repository.Store, inventory InventoryService, pub event.Publisher, log logrus.FieldLogger) SalesService {
	return &salesService{
		store:     store,
		inventory: inventory,
		notify:    newNotifier(pub, log),
		log:       log,
		now:       time.Now,
	}
}

func (s *salesService) AddLineItem(ctx context.Context, cart *Cart, productID uuid.UUID, qty int) error {
	return s.addLine(ctx, cart, productID, qty, true)
}

func (s *salesService) addLine(ctx context.Context, cart *Cart, productID uuid.UUID, qty int, checkShelf bool) error {
	if qty <= 0 {
		return invalid("quantity must be greater than zero")
	}
	product, err := s.store.Products().FindByID(ctx, productID)
	if err != nil {
		return translate(err, "product "+productID.String())
	}
	if !product.IsActive {
		return invalid("product %s is not for sale", product.Code)
	}

	inCart := cart.QuantityOf(productID)
	if checkShelf && qty > product.Stock-inCart {
		return &StockExceededError{
			ProductID: product.ID,
			Code:      product.Code,
			Name:      product.Name,
			Available: product.Stock,
			InCart:    inCart,
			Requested: qty,
		}
	}

	for i := range cart.Lines {
		if cart.Lines[i].ProductID == productID {
			cart.Lines[i].Quantity += qty
			cart.Lines[i].UnitPrice = product.SellPrice
			return nil
		}
	}
	cart.Lines = append(cart.Lines, CartLine{
		ProductID: product.ID,
		Code:      product.Code,
		Name:      product.Name,
		Unit:      product.Unit,
		Quantity:  qty,
		UnitPrice: product.SellPrice,
	})
	return nil
}

func (s *salesService) BuildCart(ctx context.Context, channel model.SaleChannel, items []CartItemRequest) (*Cart, error) {
	return s.buildCart(ctx, channel, items, true)
}

func (s *salesService) CheckoutItems(ctx context.Context, channel model.SaleChannel, items []CartItemRequest, payment PaymentRequest, actor Actor) (*model.Sale, error) {
	cart, err := s.buildCart(ctx, channel, items, false)
	if err != nil {
		return nil, err
	}
	return s.Checkout(ctx, cart, payment, actor)
}

func (s *salesService) buildCart(ctx context.Context, channel model.SaleChannel, items []CartItemRequest, checkShelf bool) (*Cart, error) {
	if !channel.Valid() {
		return nil, invalid("unknown channel %q", channel)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	cart := NewCart(channel)
	for _, item := range items {
		if errs := validator.ValidateStruct(item); len(errs) > 0 {
			return nil, validationFailed(errs)
		}
		if err := s.addLine(ctx, cart, item.ProductID, item.Quantity, checkShelf); err != nil {
			return nil, err
		}
	}
	return cart, nil
}

func (s *salesService) Checkout(ctx context.Context, cart *Cart, payment PaymentRequest, actor Actor) (*model.Sale, error) {
	// 1. Validasi keranjang & pembayaran
	if cart == nil || cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if !cart.Channel.Valid() {
		return nil, invalid("unknown channel %q", cart.Channel)
	}
	if errs := validator.ValidateStruct(payment); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if !payment.Method.Valid() {
		return nil, invalid("unknown payment method %q", payment.Method)
	}
	if err := actor.validate(); err != nil {
		return nil, err
	}
	lines := cart.merged()
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, invalid("quantity for %s must be greater than zero", l.Code)
		}
	}
	// Lock in id order so two checkouts sharing products cannot deadlock.
	slices.SortFunc(lines, func(a, b CartLine) int {
		return strings.Compare(a.ProductID.String(), b.ProductID.String())
	})

	var (
		sale      *model.Sale
		movements []model.StockMovement
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		// 2. Lock produk, ambil harga terkini
		items := make([]model.SaleItem, 0, len(lines))
		for _, l := range lines {
			product, err := tx.Products().FindByIDForUpdate(ctx, l.ProductID)
			if err != nil {
				return translate(err, "product "+l.ProductID.String())
			}
			if !product.IsActive {
				return invalid("product %s is not for sale", product.Code)
			}
			if product.Stock < l.Quantity {
				return &InsufficientStockError{
					ProductID: product.ID,
					Code:      product.Code,
					Name:      product.Name,
					Available: product.Stock,
					Requested: l.Quantity,
				}
			}
			items = append(items, model.SaleItem{
				ProductID:   product.ID,
				ProductCode: product.Code,
				ProductName: product.Name,
				Quantity:    l.Quantity,
				UnitPrice:   product.SellPrice,
				Subtotal:    product.SellPrice.Mul(decimal.NewFromInt(int64(l.Quantity))),
			})
		}

		// 3. Hitung total
		subtotal := decimal.Zero
		for _, item := range items {
			subtotal = subtotal.Add(item.Subtotal)
		}
		totals, err := computeTotals(subtotal, payment.Discount, payment.TaxRate)
		if err != nil {
			return err
		}
		paid, change, err := settle(cart.Channel, payment, totals.Total)
		if err != nil {
			return err
		}

		// 4. Simpan penjualan
		sale = &model.Sale{
			TransactionNumber: newTransactionNumber(s.now()),
			CustomerID:        payment.CustomerID,
			CustomerName:      payment.CustomerName,
			CustomerPhone:     payment.CustomerPhone,
			CustomerAddress:   payment.CustomerAddress,
			Channel:           cart.Channel,
			Status:            model.SalePending,
			PaymentMethod:     payment.Method,
			Subtotal:          totals.Subtotal,
			Discount:          totals.Discount,
			Tax:               totals.Tax,
			Total:             totals.Total,
			AmountPaid:        paid,
			Change:            change,
			Notes:             payment.Notes,
			CashierID:         actor.ID,
			CashierName:       actor.Name,
			Items:             items,
		}
		sale.CreatedBy = actor.ID
		sale.UpdatedBy = actor.ID
		if err := tx.Sales().Create(ctx, sale); err != nil {
			return err
		}

		// 5. Satu movement "out" per baris
		for _, item := range sale.Items {
			price := item.UnitPrice
			saleID := sale.ID
			m, err := s.inventory.ApplyInTx(ctx, tx, MovementRequest{
				ProductID:   item.ProductID,
				Type:        model.MovementOut,
				Quantity:    item.Quantity,
				UnitPrice:   &price,
				Description: "Penjualan " + sale.TransactionNumber,
				SaleID:      &saleID,
			}, actor)
			if err != nil {
				return err
			}
			movements = append(movements, *m)
		}
		return nil
	})
	if err != nil {
		s.logFailure("Checkout", len(lines), err)
		return nil, err
	}

	s.notify.stockMoved(ctx, actor, movements...)
	s.notify.saleStatusChanged(ctx, actor, "", sale)
	return sale, nil
}

// settle decides what is recorded as paid at checkout. Offline cash must
// cover the total; offline non-cash is taken as exact; online orders are
// paid later through ConfirmPayment.
func settle(channel model.SaleChannel, payment PaymentRequest, total decimal.Decimal) (paid, change decimal.Decimal, err error) {
	if channel == model.ChannelOnline {
		return decimal.Zero, decimal.Zero, nil
	}
	if payment.Method != model.PaymentCash {
		return total, decimal.Zero, nil
	}
	if payment.AmountPaid.LessThan(total) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: paid %s, total %s",
			ErrPaymentShort, payment.AmountPaid.StringFixed(2), total.StringFixed(2))
	}
	return payment.AmountPaid, payment.AmountPaid.Sub(total), nil
}

func newTransactionNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("TRX-%s-%s", now.Format("20060102"), suffix)
}

func (s *salesService) Cancel(ctx context.Context, saleID uuid.UUID, reason string, actor Actor) (*model.Sale, error) {
	var restocked []model.StockMovement
	sale, from, err := s.transition(ctx, "Cancel", saleID, model.SaleCancelled, actor, func(tx repository.Store, sale *model.Sale) error {
		applied, err := tx.Movements().FindBySale(ctx, sale.ID)
		if err != nil {
			return err
		}
		for _, m := range applied {
			if m.Type != model.MovementOut {
				continue
			}
			id := sale.ID
			back, err := s.inventory.ApplyInTx(ctx, tx, MovementRequest{
				ProductID:   m.ProductID,
				Type:        model.MovementReturn,
				Quantity:    -m.Quantity,
				UnitPrice:   m.UnitPrice,
				Description: "Pembatalan " + sale.TransactionNumber,
				SaleID:      &id,
			}, actor)
			if err != nil {
				return err
			}
			restocked = append(restocked, *back)
		}
		now := s.now()
		sale.CancelledAt = &now
		sale.CancelReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.stockMoved(ctx, actor, restocked...)
	s.notify.saleStatusChanged(ctx, actor, from, sale)
	return sale, nil
}

func (s *salesService) ConfirmPayment(ctx context.Context, saleID uuid.UUID, actor Actor) (*model.Sale, error) {
	return s.simpleTransition(ctx, "ConfirmPayment", saleID, model.SalePaid, actor, func(sale *model.Sale) {
		now := s.now()
		sale.PaidAt = &now
		sale.AmountPaid = sale.Total
		sale.Change = decimal.Zero
		sale.RejectionReason = ""
	})
}

func (s *salesService) RejectPayment(ctx context.Context, saleID uuid.UUID, reason string, actor Actor) (*model.Sale, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, invalid("rejection reason is required")
	}
	return s.simpleTransition(ctx, "RejectPayment", saleID, model.SalePending, actor, func(sale *model.Sale) {
		sale.PaidAt = nil
		sale.AmountPaid = decimal.Zero
		sale.RejectionReason = reason
	})
}

func (s *salesService) MarkReadyForPickup(ctx context.Context, saleID uuid.UUID, actor Actor) (*model.Sale, error) {
	return s.simpleTransition(ctx, "MarkReadyForPickup", saleID, model.SaleReady, actor, nil)
}

func (s *salesService) Complete(ctx context.Context, saleID uuid.UUID, actor Actor) (*model.Sale, error) {
	return s.simpleTransition(ctx, "Complete", saleID, model.SaleCompleted, actor, func(sale *model.Sale) {
		now := s.now()
		sale.CompletedAt = &now
		if sale.PaidAt == nil {
			sale.PaidAt = &now
		}
	})
}

func (s *salesService) GetSale(ctx context.Context, saleID uuid.UUID) (*model.Sale, error) {
	sale, err := s.store.Sales().FindByID(ctx, saleID)
	if err != nil {
		return nil, translate(err, "sale "+saleID.String())
	}
	return sale, nil
}

func (s *salesService) ListSales(ctx context.Context, filter repository.SaleFilter) (*SalePage, error) {
	if filter.Status != "" && !slices.Contains([]model.SaleStatus{
		model.SalePending, model.SalePaid, model.SaleReady, model.SaleCompleted, model.SaleCancelled,
	}, filter.Status) {
		return nil, invalid("unknown status %q", filter.Status)
	}
	if filter.Channel != "" && !filter.Channel.Valid() {
		return nil, invalid("unknown channel %q", filter.Channel)
	}
	items, total, err := s.store.Sales().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	offset, limit := filter.Bounds()
	return &SalePage{Items: items, Total: total, Page: offset/limit + 1, PageSize: limit}, nil
}

func (s *salesService) simpleTransition(ctx context.Context, funcName string, saleID uuid.UUID, to model.SaleStatus, actor Actor, mutate func(*model.Sale)) (*model.Sale, error) {
	sale, from, err := s.transition(ctx, funcName, saleID, to, actor, func(_ repository.Store, sale *model.Sale) error {
		if mutate != nil {
			mutate(sale)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.saleStatusChanged(ctx, actor, from, sale)
	return sale, nil
}

// transition locks the sale, checks the state machine, runs apply and saves
// the new status in one transaction.
func (s *salesService) transition(ctx context.Context, funcName string, saleID uuid.UUID, to model.SaleStatus, actor Actor, apply func(tx repository.Store, sale *model.Sale) error) (*model.Sale, model.SaleStatus, error) {
	if err := actor.validate(); err != nil {
		return nil, "", err
	}

	var (
		sale *model.Sale
		from model.SaleStatus
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		existing, err := tx.Sales().FindByIDForUpdate(ctx, saleID)
		if err != nil {
			return translate(err, "sale "+saleID.String())
		}
		from = existing.Status
		if !model.CanTransition(existing.Channel, existing.Status, to) {
			return &TransitionError{Channel: existing.Channel, From: existing.Status, To: to}
		}
		if err := apply(tx, existing); err != nil {
			return err
		}
		existing.Status = to
		existing.UpdatedBy = actor.ID
		if err := tx.Sales().UpdateState(ctx, existing); err != nil {
			return err
		}
		sale = existing
		return nil
	})
	if err != nil {
		s.logFailure(funcName, saleID, err)
		return nil, "", err
	}
	return sale, from, nil
}

func (s *salesService) logFailure(funcName string, data any, err error) {
	var stock *InsufficientStockError
	switch {
	case errors.As(err, &stock):
		s.log.WithFields(logrus.Fields{
			"funcName":  funcName,
			"product":   stock.Code,
			"available": stock.Available,
			"requested": stock.Requested,
		}).Info("sale rejected: insufficient stock")
	case IsDomainError(err):
		s.log.WithError(err).WithField("funcName", funcName).Debug("sale change rejected")
	default:
		logger.LogError(s.log, "sales", funcName, "sale transaction", data, err)
	}
}
