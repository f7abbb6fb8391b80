package service

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"toko-beras-pos/internal/event"
	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cashPayment(paid int64) PaymentRequest {
	return PaymentRequest{Method: model.PaymentCash, AmountPaid: rupiah(paid)}
}

func TestCartAddLineItemIsAdvisory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "RICE-5KG", 5, 0, 65000)

	cart := NewCart(model.ChannelOffline)
	require.NoError(t, f.sales.AddLineItem(ctx, cart, p.ID, 3))
	require.NoError(t, f.sales.AddLineItem(ctx, cart, p.ID, 2))
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.QuantityOf(p.ID))

	err := f.sales.AddLineItem(ctx, cart, p.ID, 1)
	var exceeded *StockExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.ErrorIs(t, err, ErrStockExceeded)
	assert.Equal(t, 5, exceeded.Available)
	assert.Equal(t, 5, exceeded.InCart)
	assert.Equal(t, 1, exceeded.Requested)

	assert.ErrorIs(t, f.sales.AddLineItem(ctx, cart, p.ID, 0), ErrValidation)
	assert.ErrorIs(t, f.sales.AddLineItem(ctx, cart, uuid.New(), 1), ErrNotFound)

	// the cart never touches stock
	assert.Equal(t, 5, f.stockOf(t, p))

	assert.True(t, cart.RemoveLineItem(p.ID))
	assert.False(t, cart.RemoveLineItem(p.ID))
	assert.True(t, cart.IsEmpty())
}

func TestCartTotals(t *testing.T) {
	cart := NewCart(model.ChannelOffline)
	cart.Lines = []CartLine{
		{ProductID: uuid.New(), Quantity: 2, UnitPrice: rupiah(65000)},
		{ProductID: uuid.New(), Quantity: 1, UnitPrice: rupiah(20000)},
	}

	totals, err := cart.Totals(rupiah(10000), decimal.RequireFromString("0.11"))
	require.NoError(t, err)
	assert.True(t, totals.Subtotal.Equal(rupiah(150000)))
	assert.True(t, totals.Tax.Equal(rupiah(15400)))
	assert.True(t, totals.Total.Equal(rupiah(155400)))

	_, err = cart.Totals(rupiah(150001), decimal.Zero)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = cart.Totals(rupiah(-1), decimal.Zero)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRice5kgSaleAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "RICE-5KG", 100, 10, 65000)

	cart, err := f.sales.BuildCart(ctx, model.ChannelOffline, []CartItemRequest{{ProductID: p.ID, Quantity: 30}})
	require.NoError(t, err)
	sale, err := f.sales.Checkout(ctx, cart, cashPayment(2000000), cashier)
	require.NoError(t, err)
	assert.Equal(t, model.SalePending, sale.Status)
	assert.Regexp(t, regexp.MustCompile(`^TRX-\d{8}-[0-9A-F]{8}$`), sale.TransactionNumber)
	assert.True(t, sale.Total.Equal(rupiah(1950000)))
	assert.True(t, sale.Change.Equal(rupiah(50000)))
	assert.True(t, sale.Subtotal.Equal(sale.ItemsSubtotal()))
	assert.Equal(t, 70, f.stockOf(t, p))

	outs, err := f.store.Movements().FindBySale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, model.MovementOut, outs[0].Type)
	assert.Equal(t, -30, outs[0].Quantity)
	assert.Equal(t, 100, outs[0].StockBefore)
	assert.Equal(t, 70, outs[0].StockAfter)
	assert.Contains(t, outs[0].Description, sale.TransactionNumber)

	cancelled, err := f.sales.Cancel(ctx, sale.ID, "pelanggan batal", cashier)
	require.NoError(t, err)
	assert.Equal(t, model.SaleCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 100, f.stockOf(t, p))

	all, err := f.store.Movements().FindBySale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	ret := all[1]
	assert.Equal(t, model.MovementReturn, ret.Type)
	assert.Equal(t, 30, ret.Quantity)
	assert.Equal(t, 70, ret.StockBefore)
	assert.Equal(t, 100, ret.StockAfter)

	// a second cancel cannot restock twice
	_, err = f.sales.Cancel(ctx, sale.ID, "lagi", cashier)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 100, f.stockOf(t, p))
	f.assertConsistent(t)
}

func TestCheckoutIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "RICE-5KG", 10, 0, 65000)
	b := f.product(t, "KETAN", 2, 0, 20000)

	cart, err := f.sales.BuildCart(ctx, model.ChannelOffline, []CartItemRequest{
		{ProductID: a.ID, Quantity: 3},
		{ProductID: b.ID, Quantity: 2},
	})
	require.NoError(t, err)

	// someone else takes the last KETAN between cart and checkout
	_, err = f.inventory.ApplyMovement(ctx, MovementRequest{ProductID: b.ID, Type: model.MovementOut, Quantity: 1}, owner)
	require.NoError(t, err)
	before, err := f.ledger.Query(ctx, repository.MovementFilter{})
	require.NoError(t, err)

	_, err = f.sales.Checkout(ctx, cart, cashPayment(1000000), cashier)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, b.ID, stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)

	after, err := f.ledger.Query(ctx, repository.MovementFilter{})
	require.NoError(t, err)
	assert.Equal(t, before.Total, after.Total, "no movement may survive a failed checkout")

	sales, err := f.sales.ListSales(ctx, repository.SaleFilter{})
	require.NoError(t, err)
	assert.Zero(t, sales.Total)
	assert.Equal(t, 10, f.stockOf(t, a))
	f.assertConsistent(t)
}

func TestCheckoutUsesCurrentPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "RICE-5KG", 10, 0, 65000)

	cart, err := f.sales.BuildCart(ctx, model.ChannelOffline, []CartItemRequest{{ProductID: p.ID, Quantity: 2}})
	require.NoError(t, err)
	_, err = f.catalog.SetPrice(ctx, p.ID, rupiah(60000), rupiah(70000), owner)
	require.NoError(t, err)

	sale, err := f.sales.Checkout(ctx, cart, PaymentRequest{Method: model.PaymentQRIS}, cashier)
	require.NoError(t, err)
	assert.True(t, sale.Items[0].UnitPrice.Equal(rupiah(70000)))
	assert.True(t, sale.Total.Equal(rupiah(140000)))
	assert.True(t, sale.AmountPaid.Equal(sale.Total))
	assert.True(t, sale.Change.IsZero())
}

func TestCheckoutValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "RICE-5KG", 10, 0, 65000)
	cart, err := f.sales.BuildCart(ctx, model.ChannelOffline, []CartItemRequest{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)

	_, err = f.sales.Checkout(ctx, NewCart(model.ChannelOffline), cashPayment(0), cashier)
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = f.sales.Checkout(ctx, cart, cashPayment(1000), cashier)
	assert.ErrorIs(t, err, ErrPaymentShort)

	_, err = f.sales.Checkout(ctx, cart, PaymentRequest{Method: "cek", AmountPaid: rupiah(65000)}, cashier)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.sales.Checkout(ctx, cart, PaymentRequest{Method: model.PaymentCash, AmountPaid: rupiah(65000), Discount: rupiah(70000)}, cashier)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.catalog.Deactivate(ctx, p.ID, owner)
	require.NoError(t, err)
	_, err = f.sales.Checkout(ctx, cart, cashPayment(65000), cashier)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, 10, f.stockOf(t, p))
}

func TestOfflineComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "RICE-5KG", 10, 0, 65000)
	cart, err := f.sales.BuildCart(ctx, model.ChannelOffline, []CartItemRequest{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)
	sale, err := f.sales.Checkout(ctx, cart, cashPayment(65000), cashier)
	require.NoError(t, err)

	_, err = f.sales.ConfirmPayment(ctx, sale.ID, cashier)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done, err := f.sales.Complete(ctx, sale.ID, cashier)
	require.NoError(t, err)
	assert.Equal(t, model.SaleCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)
	assert.NotNil(t, done.PaidAt)

	_, err = f.sales.Cancel(ctx, sale.ID, "telat", cashier)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 9, f.stockOf(t, p))
}

func TestOnlineOrderLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "RICE-5KG", 10, 0, 65000)
	cart, err := f.sales.BuildCart(ctx, model.ChannelOnline, []CartItemRequest{{ProductID: p.ID, Quantity: 2}})
	require.NoError(t, err)

	sale, err := f.sales.Checkout(ctx, cart, PaymentRequest{
		Method:          model.PaymentTransfer,
		CustomerName:    "Bu Rina",
		CustomerPhone:   "08123456789",
		CustomerAddress: "Jl. Melati 5",
	}, cashier)
	require.NoError(t, err)
	assert.Equal(t, model.SalePending, sale.Status)
	assert.True(t, sale.AmountPaid.IsZero())
	assert.Equal(t, 8, f.stockOf(t, p))

	_, err = f.sales.Complete(ctx, sale.ID, cashier)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.sales.MarkReadyForPickup(ctx, sale.ID, cashier)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	paid, err := f.sales.ConfirmPayment(ctx, sale.ID, cashier)
	require.NoError(t, err)
	assert.Equal(t, model.SalePaid, paid.Status)
	assert.True(t, paid.AmountPaid.Equal(paid.Total))

	_, err = f.sales.RejectPayment(ctx, sale.ID, "", cashier)
	assert.ErrorIs(t, err, ErrValidation)
	rejected, err := f.sales.RejectPayment(ctx, sale.ID, "bukti transfer buram", cashier)
	require.NoError(t, err)
	assert.Equal(t, model.SalePending, rejected.Status)
	assert.Nil(t, rejected.PaidAt)
	assert.Equal(t, "bukti transfer buram", rejected.RejectionReason)

	_, err = f.sales.ConfirmPayment(ctx, sale.ID, cashier)
	require.NoError(t, err)
	ready, err := f.sales.MarkReadyForPickup(ctx, sale.ID, cashier)
	require.NoError(t, err)
	assert.Equal(t, model.SaleReady, ready.Status)

	_, err = f.sales.Cancel(ctx, sale.ID, "batal", cashier)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done, err := f.sales.Complete(ctx, sale.ID, cashier)
	require.NoError(t, err)
	assert.Equal(t, model.SaleCompleted, done.Status)

	got, err := f.sales.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SaleCompleted, got.Status)
	assert.Equal(t, 8, f.stockOf(t, p))

	statuses := []string{}
	for _, e := range f.events.OfType(event.SaleStatusChanged) {
		statuses = append(statuses, e.Action)
	}
	assert.Equal(t, []string{"pending", "dibayar", "pending", "dibayar", "siap_pickup", "selesai"}, statuses)
}

func TestListSalesFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "RICE-5KG", 10, 0, 65000)
	for _, ch := range []model.SaleChannel{model.ChannelOffline, model.ChannelOnline, model.ChannelOffline} {
		cart, err := f.sales.BuildCart(ctx, ch, []CartItemRequest{{ProductID: p.ID, Quantity: 1}})
		require.NoError(t, err)
		_, err = f.sales.Checkout(ctx, cart, PaymentRequest{Method: model.PaymentQRIS}, cashier)
		require.NoError(t, err)
	}

	offline, err := f.sales.ListSales(ctx, repository.SaleFilter{Channel: model.ChannelOffline})
	require.NoError(t, err)
	assert.EqualValues(t, 2, offline.Total)

	_, err = f.sales.ListSales(ctx, repository.SaleFilter{Status: "lunas"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.sales.GetSale(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentLastUnitSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "RICE-5KG", 1, 0, 65000)

	carts := make([]*Cart, 2)
	for i := range carts {
		cart, err := f.sales.BuildCart(ctx, model.ChannelOffline, []CartItemRequest{{ProductID: p.ID, Quantity: 1}})
		require.NoError(t, err)
		carts[i] = cart
	}

	var wg sync.WaitGroup
	errs := make([]error, len(carts))
	start := make(chan struct{})
	for i, cart := range carts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = f.sales.Checkout(ctx, cart, cashPayment(65000), cashier)
		}()
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)

	sales, err := f.sales.ListSales(ctx, repository.SaleFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, sales.Total)
	assert.Equal(t, 0, f.stockOf(t, p))
	f.assertConsistent(t)
}

func TestCheckoutItemsReportsInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "RICE-5KG", 1, 0, 65000)
	items := []CartItemRequest{{ProductID: p.ID, Quantity: 1}}

	first, err := f.sales.CheckoutItems(ctx, model.ChannelOffline, items, cashPayment(65000), cashier)
	require.NoError(t, err)
	assert.Equal(t, model.SalePending, first.Status)

	// the shelf is empty now; the loser sees the ledger's answer, not the cart's
	_, err = f.sales.CheckoutItems(ctx, model.ChannelOffline, items, cashPayment(65000), cashier)
	var short *InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.NotErrorIs(t, err, ErrStockExceeded)
	assert.Equal(t, 0, short.Available)
	assert.Equal(t, 1, short.Requested)

	_, err = f.sales.CheckoutItems(ctx, model.ChannelOffline, nil, cashPayment(0), cashier)
	assert.ErrorIs(t, err, ErrEmptyCart)
	_, err = f.sales.CheckoutItems(ctx, model.ChannelOffline, []CartItemRequest{{ProductID: uuid.New(), Quantity: 1}}, cashPayment(0), cashier)
	assert.ErrorIs(t, err, ErrNotFound)

	sales, err := f.sales.ListSales(ctx, repository.SaleFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, sales.Total)
	f.assertConsistent(t)
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "RICE-5KG", 10, 9, 65000)
	f.product(t, "KETAN", 2, 5, 20000)

	cart, err := f.sales.BuildCart(ctx, model.ChannelOffline, []CartItemRequest{{ProductID: p.ID, Quantity: 2}})
	require.NoError(t, err)
	sale, err := f.sales.Checkout(ctx, cart, cashPayment(130000), cashier)
	require.NoError(t, err)
	_, err = f.sales.Complete(ctx, sale.ID, cashier)
	require.NoError(t, err)

	now := sale.CreatedAt
	stats, err := f.dashboard.GetDashboardStats(ctx, now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalProducts)
	assert.EqualValues(t, 2, stats.LowStockCount)
	// 8 x 60000 + 2 x 15000
	assert.True(t, stats.TotalValuation.Equal(rupiah(510000)), stats.TotalValuation.String())
	assert.EqualValues(t, 1, stats.CompletedSales)
	assert.True(t, stats.Revenue.Equal(rupiah(130000)))

	flow, err := f.dashboard.GetStockMovement(ctx, 7)
	require.NoError(t, err)
	require.Len(t, flow, 1)
	assert.Equal(t, 12, flow[0].Inbound)
	assert.Equal(t, 2, flow[0].Outbound)

	_, err = f.dashboard.GetStockMovement(ctx, 0)
	assert.ErrorIs(t, err, ErrValidation)
}
