package service

import (
	"context"
	"io"
	"testing"

	"toko-beras-pos/internal/event"
	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository"
	"toko-beras-pos/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var owner = Actor{
	ID:         "owner-1",
	Name:       "Pak Budi",
	Role:       model.RoleOwner,
	Privileges: []string{model.PrivProductViewCost, model.PrivStockAdjust},
}

var cashier = Actor{
	ID:         "kasir-1",
	Name:       "Sari",
	Role:       model.RoleCashier,
	Privileges: model.CashierPrivileges,
}

type fixture struct {
	store     *memory.Store
	events    *event.Recorder
	ledger    LedgerService
	inventory InventoryService
	catalog   CatalogService
	sales     SalesService
	dashboard DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := memory.New()
	events := &event.Recorder{}
	ledger := NewLedgerService(store)
	inventory := NewInventoryService(store, ledger, events, log)
	return &fixture{
		store:     store,
		events:    events,
		ledger:    ledger,
		inventory: inventory,
		catalog:   NewCatalogService(store, inventory, events, log),
		sales:     NewSalesService(store, inventory, events, log),
		dashboard: NewDashboardService(store),
	}
}

func rupiah(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// product creates an active product whose stock comes from an initial movement.
func (f *fixture) product(t *testing.T, code string, stock, minStock int, sellPrice int64) *model.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), CreateProductRequest{
		Code:         code,
		Name:         "Beras " + code,
		Category:     "beras",
		Unit:         "karung",
		BuyPrice:     rupiah(sellPrice - 5000),
		SellPrice:    rupiah(sellPrice),
		MinStock:     minStock,
		InitialStock: stock,
	}, owner)
	require.NoError(t, err)
	return p
}

func (f *fixture) stockOf(t *testing.T, p *model.Product) int {
	t.Helper()
	got, err := f.store.Products().FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	return got.Stock
}

// assertConsistent checks the ledger invariants for every product.
func (f *fixture) assertConsistent(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	products, err := f.store.Products().FindAll(ctx)
	require.NoError(t, err)

	for _, p := range products {
		sum, err := f.store.Movements().SumQuantity(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Stock, sum, "stock of %s must equal ledger sum", p.Code)

		pid := p.ID
		for m, err := range f.ledger.Iterate(ctx, repository.MovementFilter{ProductID: &pid}) {
			require.NoError(t, err)
			assert.Equal(t, m.StockBefore+m.Quantity, m.StockAfter, "movement %s", m.ID)
			assert.GreaterOrEqual(t, m.StockAfter, 0, "movement %s", m.ID)
		}
	}
}
