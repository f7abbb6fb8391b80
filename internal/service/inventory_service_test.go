package service

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"toko-beras-pos/internal/event"
	"toko-beras-pos/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMovementSignConvention(t *testing.T) {
	tests := []struct {
		typ      model.MovementType
		quantity int
		delta    int
		wantErr  error
	}{
		{model.MovementIn, 5, 5, nil},
		{model.MovementReturn, 5, 5, nil},
		{model.MovementInitial, 5, 5, nil},
		{model.MovementOut, 5, -5, nil},
		{model.MovementDamage, 5, -5, nil},
		{model.MovementAdjustment, -5, -5, nil},
		{model.MovementAdjustment, 5, 5, nil},
		{model.MovementCorrection, -2, -2, nil},
		{model.MovementIn, 0, 0, ErrValidation},
		{model.MovementOut, -5, 0, ErrValidation},
		{model.MovementDamage, 0, 0, ErrValidation},
		{model.MovementAdjustment, 0, 0, ErrValidation},
		{"gift", 1, 0, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			f := newFixture(t)
			p := f.product(t, "RICE-5KG", 20, 0, 65000)

			m, err := f.inventory.ApplyMovement(context.Background(), MovementRequest{
				ProductID: p.ID,
				Type:      tt.typ,
				Quantity:  tt.quantity,
			}, owner)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 20, f.stockOf(t, p))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.delta, m.Quantity)
			assert.Equal(t, 20+tt.delta, f.stockOf(t, p))
			assert.Equal(t, owner.ID, m.ActorID)
			f.assertConsistent(t)
		})
	}
}

func TestApplyMovementRequiresActor(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "RICE-5KG", 1, 0, 65000)
	_, err := f.inventory.ApplyMovement(context.Background(), MovementRequest{ProductID: p.ID, Type: model.MovementIn, Quantity: 1}, Actor{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetAbsoluteStockFrom70To50(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "RICE-5KG", 70, 10, 65000)

	m, err := f.inventory.SetAbsoluteStock(ctx, AbsoluteStockRequest{ProductID: p.ID, NewStock: 50}, owner)
	require.NoError(t, err)
	assert.Equal(t, model.MovementAdjustment, m.Type)
	assert.Equal(t, -20, m.Quantity)
	assert.Equal(t, 70, m.StockBefore)
	assert.Equal(t, 50, m.StockAfter)
	assert.Equal(t, 50, f.stockOf(t, p))
	f.assertConsistent(t)
}

func TestSetAbsoluteStockRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "RICE-5KG", 70, 10, 65000)

	_, err := f.inventory.SetAbsoluteStock(ctx, AbsoluteStockRequest{ProductID: p.ID, NewStock: 70}, owner)
	assert.ErrorIs(t, err, ErrNoStockChange)

	_, err = f.inventory.SetAbsoluteStock(ctx, AbsoluteStockRequest{ProductID: p.ID, NewStock: -1}, owner)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.inventory.SetAbsoluteStock(ctx, AbsoluteStockRequest{ProductID: p.ID, NewStock: 60, Type: model.MovementOut}, owner)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.inventory.SetAbsoluteStock(ctx, AbsoluteStockRequest{ProductID: p.ID, NewStock: 60, Type: model.MovementInitial}, owner)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.inventory.SetAbsoluteStock(ctx, AbsoluteStockRequest{ProductID: uuid.New(), NewStock: 1}, owner)
	assert.ErrorIs(t, err, ErrNotFound)

	m, err := f.inventory.SetAbsoluteStock(ctx, AbsoluteStockRequest{ProductID: p.ID, NewStock: 72, Type: model.MovementCorrection}, owner)
	require.NoError(t, err)
	assert.Equal(t, model.MovementCorrection, m.Type)
	assert.Equal(t, 2, m.Quantity)
	assert.Equal(t, 72, f.stockOf(t, p))
}

func TestApplyBulkIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", 5, 0, 10000)
	b := f.product(t, "B", 1, 0, 10000)

	_, err := f.inventory.ApplyBulk(ctx, []MovementRequest{
		{ProductID: a.ID, Type: model.MovementOut, Quantity: 2},
		{ProductID: b.ID, Type: model.MovementOut, Quantity: 2},
	}, owner)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 5, f.stockOf(t, a))
	assert.Equal(t, 1, f.stockOf(t, b))

	movements, err := f.inventory.ApplyBulk(ctx, []MovementRequest{
		{ProductID: a.ID, Type: model.MovementOut, Quantity: 2},
		{ProductID: b.ID, Type: model.MovementIn, Quantity: 4},
		{ProductID: a.ID, Type: model.MovementAdjustment, Quantity: -1},
	}, owner)
	require.NoError(t, err)
	require.Len(t, movements, 3)
	assert.Equal(t, 2, f.stockOf(t, a))
	assert.Equal(t, 5, f.stockOf(t, b))
	f.assertConsistent(t)

	_, err = f.inventory.ApplyBulk(ctx, nil, owner)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "RICE-5KG", 100, 10, 65000)
	q := f.product(t, "KETAN", 4, 0, 20000)

	report, err := f.inventory.Reconcile(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.Equal(t, 100, report.StoredStock)
	assert.Equal(t, 100, report.RecomputedStock)

	// simulate drift by writing the cache behind the engine's back
	require.NoError(t, f.store.Products().UpdateStock(ctx, p.ID, 97, "test"))

	report, err = f.inventory.Reconcile(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, report.OK)
	assert.Equal(t, 97, report.StoredStock)
	assert.Equal(t, 100, report.RecomputedStock)
	assert.Equal(t, -3, report.Difference)

	// reconcile never writes
	assert.Equal(t, 97, f.stockOf(t, p))

	reports, err := f.inventory.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	byCode := map[string]ReconcileReport{}
	for _, r := range reports {
		byCode[r.Code] = r
	}
	assert.False(t, byCode["RICE-5KG"].OK)
	assert.True(t, byCode[q.Code].OK)

	_, err = f.inventory.Reconcile(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMovementEventsAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "RICE-5KG", 12, 10, 65000)
	f.events.Events = nil

	_, err := f.inventory.ApplyMovement(ctx, MovementRequest{ProductID: p.ID, Type: model.MovementOut, Quantity: 1}, owner)
	require.NoError(t, err)
	assert.Len(t, f.events.OfType(event.StockMoved), 1)
	assert.Empty(t, f.events.OfType(event.LowStock))

	_, err = f.inventory.ApplyMovement(ctx, MovementRequest{ProductID: p.ID, Type: model.MovementOut, Quantity: 1}, owner)
	require.NoError(t, err)
	assert.Len(t, f.events.OfType(event.LowStock), 1)

	// a rejected movement publishes nothing
	_, err = f.inventory.ApplyMovement(ctx, MovementRequest{ProductID: p.ID, Type: model.MovementOut, Quantity: 100}, owner)
	require.Error(t, err)
	assert.Len(t, f.events.OfType(event.StockMoved), 2)
}

func TestRandomMovementSequencesKeepInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	types := model.MovementTypes

	for round := 0; round < 20; round++ {
		f := newFixture(t)
		ctx := context.Background()
		products := []*model.Product{
			f.product(t, "A", rng.Intn(20), 0, 10000),
			f.product(t, "B", rng.Intn(20), 0, 10000),
			f.product(t, "C", 0, 0, 10000),
		}

		for step := 0; step < 60; step++ {
			p := products[rng.Intn(len(products))]
			typ := types[rng.Intn(len(types))]
			qty := rng.Intn(15) + 1
			if typ.TakesSignedDelta() && rng.Intn(2) == 0 {
				qty = -qty
			}
			if rng.Intn(4) == 0 {
				_, _ = f.inventory.SetAbsoluteStock(ctx, AbsoluteStockRequest{ProductID: p.ID, NewStock: rng.Intn(30)}, owner)
				continue
			}
			_, err := f.inventory.ApplyMovement(ctx, MovementRequest{ProductID: p.ID, Type: typ, Quantity: qty}, owner)
			if err != nil {
				assert.ErrorIs(t, err, ErrInsufficientStock)
			}
		}
		f.assertConsistent(t)
	}
}

func TestConcurrentLastUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "RICE-5KG", 1, 0, 65000)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.inventory.ApplyMovement(ctx, MovementRequest{ProductID: p.ID, Type: model.MovementOut, Quantity: 1}, owner)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, ErrInsufficientStock) {
				rejected++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, rejected)
	assert.Equal(t, 0, f.stockOf(t, p))
	f.assertConsistent(t)
}
