package ws

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"toko-beras-pos/internal/event"
	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository/memory"
	"toko-beras-pos/internal/service"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishQueuesEncodedEvent(t *testing.T) {
	hub := NewHub(logrus.New())

	err := hub.Publish(context.Background(), event.New(event.StockMoved, "out", map[string]int{"stock": 4}, "kasir", ""))
	require.NoError(t, err)

	select {
	case msg := <-hub.Broadcast:
		var e event.Event
		require.NoError(t, json.Unmarshal(msg, &e))
		assert.Equal(t, event.StockMoved, e.Type)
		assert.Equal(t, "out", e.Action)
	default:
		t.Fatal("expected a queued message")
	}
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	hub := NewHub(logrus.New())
	for i := 0; i < cap(hub.Broadcast); i++ {
		hub.Broadcast <- []byte("{}")
	}

	// a context that never ends must not matter
	done := make(chan error, 1)
	go func() {
		done <- hub.Publish(context.WithoutCancel(context.Background()), event.New(event.LowStock, "", nil, "", ""))
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrQueueFull)
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
}

func TestPublishAfterStopReturnsImmediately(t *testing.T) {
	hub := stoppedHub(t)

	for i := 0; i < 2*cap(hub.Broadcast); i++ {
		err := hub.Publish(context.Background(), event.New(event.StockMoved, "in", nil, "", ""))
		require.ErrorIs(t, err, ErrHubStopped)
	}
}

// stoppedHub returns a hub whose Run loop has already exited.
func stoppedHub(t *testing.T) *Hub {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	hub := NewHub(log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	return hub
}

func TestStoppedHubNeverBlocksStockWrites(t *testing.T) {
	hub := stoppedHub(t)
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := memory.New()
	ledger := service.NewLedgerService(store)
	inventory := service.NewInventoryService(store, ledger, hub, log)
	catalog := service.NewCatalogService(store, inventory, hub, log)
	actor := service.Actor{ID: "owner-1", Name: "Pak Budi"}

	p, err := catalog.CreateProduct(context.Background(), service.CreateProductRequest{
		Code: "RICE-5KG", Name: "Beras 5kg", SellPrice: decimal.NewFromInt(65000),
	}, actor)
	require.NoError(t, err)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i := 0; i < 3*cap(hub.Broadcast); i++ {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			_, err := inventory.ApplyMovement(ctx, service.MovementRequest{
				ProductID: p.ID, Type: model.MovementIn, Quantity: 1,
			}, actor)
			cancel()
			if !assert.NoError(t, err) {
				return
			}
		}
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("stock writes hung on event delivery")
	}

	got, err := store.Products().FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3*cap(hub.Broadcast), got.Stock)
}

func TestRunStopsOnCancel(t *testing.T) {
	hub := NewHub(logrus.New())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Zero(t, hub.ClientCount())
}
