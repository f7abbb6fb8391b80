package memory

import (
	"context"
	"errors"
	"testing"

	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProduct(code string, stock int) *model.Product {
	return &model.Product{
		Code:      code,
		Name:      "Beras " + code,
		Unit:      "karung",
		BuyPrice:  decimal.NewFromInt(60000),
		SellPrice: decimal.NewFromInt(65000),
		Stock:     stock,
		IsActive:  true,
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := New()
	p := newProduct("RICE-5KG", 0)
	require.NoError(t, store.Products().Create(ctx, p))

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Products().UpdateStock(ctx, p.ID, 10, "tester"))
		require.NoError(t, tx.Movements().Create(ctx, &model.StockMovement{
			ProductID:  p.ID,
			Type:       model.MovementIn,
			Quantity:   10,
			StockAfter: 10,
			ActorID:    "tester",
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)

	sum, err := store.Movements().SumQuantity(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestTransactionCommitsAndNests(t *testing.T) {
	ctx := context.Background()
	store := New()
	p := newProduct("RICE-10KG", 0)
	require.NoError(t, store.Products().Create(ctx, p))

	err := store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Products().UpdateStock(ctx, p.ID, 4, "tester"); err != nil {
			return err
		}
		return tx.Transaction(ctx, func(inner repository.Store) error {
			got, err := inner.Products().FindByIDForUpdate(ctx, p.ID)
			if err != nil {
				return err
			}
			assert.Equal(t, 4, got.Stock)
			return nil
		})
	})
	require.NoError(t, err)

	got, err := store.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Stock)
}

func TestDuplicateProductCode(t *testing.T) {
	ctx := context.Background()
	store := New()
	require.NoError(t, store.Products().Create(ctx, newProduct("KETAN", 0)))
	err := store.Products().Create(ctx, newProduct("KETAN", 0))
	assert.ErrorIs(t, err, repository.ErrDuplicateKey)
}

func TestNegativeStockRejected(t *testing.T) {
	ctx := context.Background()
	store := New()
	p := newProduct("PANDAN", 1)
	require.NoError(t, store.Products().Create(ctx, p))

	assert.Error(t, store.Products().UpdateStock(ctx, p.ID, -1, "tester"))
	assert.Error(t, store.Movements().Create(ctx, &model.StockMovement{
		ProductID:   p.ID,
		Type:        model.MovementOut,
		Quantity:    -2,
		StockBefore: 1,
		StockAfter:  -1,
		ActorID:     "tester",
	}))
}

func TestProductListFiltersAndPaging(t *testing.T) {
	ctx := context.Background()
	store := New()
	for _, code := range []string{"A", "B", "C"} {
		require.NoError(t, store.Products().Create(ctx, newProduct(code, 5)))
	}
	low := newProduct("LOW", 1)
	low.MinStock = 2
	require.NoError(t, store.Products().Create(ctx, low))
	off := newProduct("OFF", 9)
	off.IsActive = false
	require.NoError(t, store.Products().Create(ctx, off))

	all, total, err := store.Products().List(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, all, 4)

	paged, total, err := store.Products().List(ctx, repository.ProductFilter{
		Pagination: repository.Pagination{Page: 2, PageSize: 3},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, paged, 1)

	lows, _, err := store.Products().List(ctx, repository.ProductFilter{LowStockOnly: true})
	require.NoError(t, err)
	require.Len(t, lows, 1)
	assert.Equal(t, "LOW", lows[0].Code)

	found, _, err := store.Products().List(ctx, repository.ProductFilter{Search: "beras off", IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "OFF", found[0].Code)
}

func TestReturnedSaleIsACopy(t *testing.T) {
	ctx := context.Background()
	store := New()
	p := newProduct("RICE-5KG", 5)
	require.NoError(t, store.Products().Create(ctx, p))

	sale := &model.Sale{
		TransactionNumber: "TRX-20240101-AAAA0001",
		Channel:           model.ChannelOffline,
		Status:            model.SalePending,
		Items: []model.SaleItem{
			{ProductID: p.ID, Quantity: 1, UnitPrice: p.SellPrice, Subtotal: p.SellPrice},
		},
	}
	require.NoError(t, store.Sales().Create(ctx, sale))

	got, err := store.Sales().FindByID(ctx, sale.ID)
	require.NoError(t, err)
	got.Items[0].Quantity = 99

	again, err := store.Sales().FindByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity)
	assert.Equal(t, sale.ID, again.Items[0].SaleID)

	dup := &model.Sale{TransactionNumber: sale.TransactionNumber}
	assert.ErrorIs(t, store.Sales().Create(ctx, dup), repository.ErrDuplicateKey)
}

func TestRoleRepoSeedsAndAssigns(t *testing.T) {
	ctx := context.Background()
	privileges := NewPrivilegeRepo()
	roles := NewRoleRepo()
	require.NoError(t, privileges.SeedDefaults(ctx))
	require.NoError(t, privileges.SeedDefaults(ctx))
	require.NoError(t, roles.SeedDefaults(ctx))

	all, err := privileges.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(model.DefaultPrivileges))

	kasir, err := roles.FindByCode(ctx, model.RoleCashier)
	require.NoError(t, err)
	assert.Empty(t, kasir.Privileges)

	granted, err := privileges.FindByCodes(ctx, model.RolePrivileges(model.RoleCashier))
	require.NoError(t, err)
	require.NoError(t, roles.AssignPrivileges(ctx, kasir, granted))

	kasir, err = roles.FindByCode(ctx, model.RoleCashier)
	require.NoError(t, err)
	assert.Len(t, kasir.Privileges, len(model.CashierPrivileges))

	_, err = roles.FindByCode(ctx, "GUEST")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
