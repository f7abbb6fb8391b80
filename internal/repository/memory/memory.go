// Package memory is an in-process repository.Store used for development
// runs and service tests. Transactions are serialized: each one works on a
// private copy of the data which replaces the committed copy only when the
// transaction function succeeds.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errCheckViolation = errors.New("check constraint violated")

type state struct {
	products     map[uuid.UUID]model.Product
	priceHistory []model.ProductPriceHistory
	movements    []model.StockMovement
	sales        map[uuid.UUID]model.Sale
	saleOrder    []uuid.UUID
}

func newState() *state {
	return &state{
		products: make(map[uuid.UUID]model.Product),
		sales:    make(map[uuid.UUID]model.Sale),
	}
}

func (s *state) clone() *state {
	c := &state{
		products:     make(map[uuid.UUID]model.Product, len(s.products)),
		priceHistory: slices.Clone(s.priceHistory),
		movements:    slices.Clone(s.movements),
		sales:        make(map[uuid.UUID]model.Sale, len(s.sales)),
		saleOrder:    slices.Clone(s.saleOrder),
	}
	for id, p := range s.products {
		c.products[id] = p
	}
	for id, sale := range s.sales {
		c.sales[id] = copySale(sale)
	}
	return c
}

func copySale(sale model.Sale) model.Sale {
	sale.Items = slices.Clone(sale.Items)
	return sale
}

type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state
}

// New returns an empty store.
func New() *Store {
	return &Store{data: newState()}
}

func (s *Store) root() *session {
	return &session{root: s}
}

func (s *Store) Products() repository.ProductRepository {
	return s.root().Products()
}

func (s *Store) Movements() repository.MovementRepository {
	return s.root().Movements()
}

func (s *Store) Sales() repository.SaleRepository {
	return s.root().Sales()
}

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.root().Transaction(ctx, fn)
}

// session is bound to the committed data, or to a transaction's working
// copy when work is set.
type session struct {
	root *Store
	work *state
}

func (s *session) Products() repository.ProductRepository {
	return &productRepo{s}
}

func (s *session) Movements() repository.MovementRepository {
	return &movementRepo{s}
}

func (s *session) Sales() repository.SaleRepository {
	return &saleRepo{s}
}

func (s *session) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.work != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.root.txMu.Lock()
	defer s.root.txMu.Unlock()

	s.root.mu.RLock()
	work := s.root.data.clone()
	s.root.mu.RUnlock()

	if err := fn(&session{root: s.root, work: work}); err != nil {
		return err
	}

	s.root.mu.Lock()
	s.root.data = work
	s.root.mu.Unlock()
	return nil
}

func (s *session) read(fn func(st *state)) {
	if s.work != nil {
		fn(s.work)
		return
	}
	s.root.mu.RLock()
	defer s.root.mu.RUnlock()
	fn(s.root.data)
}

// write applies fn directly when inside a transaction, otherwise as a
// single-statement transaction. fn must validate before it mutates.
func (s *session) write(fn func(st *state) error) error {
	if s.work != nil {
		return fn(s.work)
	}
	s.root.txMu.Lock()
	defer s.root.txMu.Unlock()
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	return fn(s.root.data)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func page[T any](items []T, p repository.Pagination) []T {
	offset, limit := p.Bounds()
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return slices.Clone(items[offset:end])
}

// ---- products ----

type productRepo struct {
	s *session
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.s.write(func(st *state) error {
		for _, existing := range st.products {
			if existing.Code == product.Code {
				return fmt.Errorf("%w: products.code %q", repository.ErrDuplicateKey, product.Code)
			}
		}
		if product.Stock < 0 || product.MinStock < 0 {
			return errCheckViolation
		}
		if product.ID == uuid.Nil {
			product.ID = uuid.New()
		}
		now := time.Now()
		if product.CreatedAt.IsZero() {
			product.CreatedAt = now
		}
		product.UpdatedAt = now
		st.products[product.ID] = *product
		return nil
	})
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var (
		product model.Product
		ok      bool
	)
	r.s.read(func(st *state) {
		product, ok = st.products[id]
	})
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &product, nil
}

func (r *productRepo) FindByCode(ctx context.Context, code string) (*model.Product, error) {
	var found *model.Product
	r.s.read(func(st *state) {
		for _, p := range st.products {
			if p.Code == code {
				product := p
				found = &product
				return
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

// FindByIDForUpdate needs no row lock: transactions are already serialized.
func (r *productRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *productRepo) FindAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	r.s.read(func(st *state) {
		for _, p := range st.products {
			products = append(products, p)
		}
	})
	sort.Slice(products, func(i, j int) bool { return products[i].Code < products[j].Code })
	return products, nil
}

func (r *productRepo) List(ctx context.Context, filter repository.ProductFilter) ([]model.Product, int64, error) {
	var matched []model.Product
	r.s.read(func(st *state) {
		for _, p := range st.products {
			if !filter.IncludeInactive && !p.IsActive {
				continue
			}
			if filter.Category != "" && p.Category != filter.Category {
				continue
			}
			if filter.LowStockOnly && p.Stock > p.MinStock {
				continue
			}
			if filter.Search != "" && !containsFold(p.Code, filter.Search) && !containsFold(p.Name, filter.Search) {
				continue
			}
			matched = append(matched, p)
		}
	})
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	return page(matched, filter.Pagination), int64(len(matched)), nil
}

func (r *productRepo) UpdateDetails(ctx context.Context, product *model.Product) error {
	return r.s.write(func(st *state) error {
		existing, ok := st.products[product.ID]
		if !ok {
			return repository.ErrNotFound
		}
		for id, other := range st.products {
			if id != product.ID && other.Code == product.Code {
				return fmt.Errorf("%w: products.code %q", repository.ErrDuplicateKey, product.Code)
			}
		}
		if product.MinStock < 0 {
			return errCheckViolation
		}
		existing.Code = product.Code
		existing.Name = product.Name
		existing.Category = product.Category
		existing.Unit = product.Unit
		existing.BuyPrice = product.BuyPrice
		existing.SellPrice = product.SellPrice
		existing.MinStock = product.MinStock
		existing.IsActive = product.IsActive
		existing.UpdatedBy = product.UpdatedBy
		existing.UpdatedAt = time.Now()
		st.products[product.ID] = existing
		return nil
	})
}

func (r *productRepo) UpdateStock(ctx context.Context, id uuid.UUID, newStock int, updatedBy string) error {
	return r.s.write(func(st *state) error {
		existing, ok := st.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		if newStock < 0 {
			return fmt.Errorf("%w: products.stock >= 0", errCheckViolation)
		}
		existing.Stock = newStock
		existing.UpdatedBy = updatedBy
		existing.UpdatedAt = time.Now()
		st.products[id] = existing
		return nil
	})
}

func (r *productRepo) CreatePriceHistory(ctx context.Context, entry *model.ProductPriceHistory) error {
	return r.s.write(func(st *state) error {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		st.priceHistory = append(st.priceHistory, *entry)
		return nil
	})
}

func (r *productRepo) ListPriceHistory(ctx context.Context, productID uuid.UUID, limit int) ([]model.ProductPriceHistory, error) {
	if limit <= 0 || limit > repository.MaxPageSize {
		limit = repository.DefaultPageSize
	}
	var entries []model.ProductPriceHistory
	r.s.read(func(st *state) {
		for i := len(st.priceHistory) - 1; i >= 0 && len(entries) < limit; i-- {
			if st.priceHistory[i].ProductID == productID {
				entries = append(entries, st.priceHistory[i])
			}
		}
	})
	return entries, nil
}

func (r *productRepo) Stats(ctx context.Context) (*repository.StockStats, error) {
	stats := &repository.StockStats{TotalValuation: decimal.Zero}
	r.s.read(func(st *state) {
		for _, p := range st.products {
			if !p.IsActive {
				continue
			}
			stats.TotalProducts++
			if p.IsLowStock() {
				stats.LowStockCount++
			}
			stats.TotalValuation = stats.TotalValuation.Add(p.BuyPrice.Mul(decimal.NewFromInt(int64(p.Stock))))
		}
	})
	return stats, nil
}

// ---- movements ----

type movementRepo struct {
	s *session
}

func (r *movementRepo) Create(ctx context.Context, movement *model.StockMovement) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.products[movement.ProductID]; !ok {
			return fmt.Errorf("foreign key violation: product %s", movement.ProductID)
		}
		if movement.StockAfter < 0 {
			return fmt.Errorf("%w: stock_movements.stock_after >= 0", errCheckViolation)
		}
		if movement.ID == uuid.Nil {
			movement.ID = uuid.New()
		}
		if movement.CreatedAt.IsZero() {
			movement.CreatedAt = time.Now()
		}
		stored := *movement
		stored.Product = nil
		st.movements = append(st.movements, stored)
		return nil
	})
}

func (r *movementRepo) List(ctx context.Context, filter repository.MovementFilter) ([]model.StockMovement, int64, error) {
	var matched []model.StockMovement
	r.s.read(func(st *state) {
		for _, m := range st.movements {
			if filter.ProductID != nil && m.ProductID != *filter.ProductID {
				continue
			}
			if filter.SaleID != nil && (m.SaleID == nil || *m.SaleID != *filter.SaleID) {
				continue
			}
			if filter.Type != "" && m.Type != filter.Type {
				continue
			}
			if filter.From != nil && m.CreatedAt.Before(*filter.From) {
				continue
			}
			if filter.To != nil && !m.CreatedAt.Before(*filter.To) {
				continue
			}
			product := st.products[m.ProductID]
			if filter.Search != "" &&
				!containsFold(m.Description, filter.Search) &&
				!containsFold(product.Name, filter.Search) &&
				!containsFold(product.Code, filter.Search) {
				continue
			}
			m.Product = &product
			matched = append(matched, m)
		}
	})
	if !filter.Ascending {
		slices.Reverse(matched)
	}
	return page(matched, filter.Pagination), int64(len(matched)), nil
}

func (r *movementRepo) SumQuantity(ctx context.Context, productID uuid.UUID) (int, error) {
	sum := 0
	r.s.read(func(st *state) {
		for _, m := range st.movements {
			if m.ProductID == productID {
				sum += m.Quantity
			}
		}
	})
	return sum, nil
}

func (r *movementRepo) SumQuantityByProduct(ctx context.Context) (map[uuid.UUID]int, error) {
	sums := make(map[uuid.UUID]int)
	r.s.read(func(st *state) {
		for _, m := range st.movements {
			sums[m.ProductID] += m.Quantity
		}
	})
	return sums, nil
}

func (r *movementRepo) FindBySale(ctx context.Context, saleID uuid.UUID) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	r.s.read(func(st *state) {
		for _, m := range st.movements {
			if m.SaleID != nil && *m.SaleID == saleID {
				movements = append(movements, m)
			}
		}
	})
	return movements, nil
}

func (r *movementRepo) DailyFlow(ctx context.Context, from, to time.Time) ([]repository.DailyFlow, error) {
	byDate := make(map[string]*repository.DailyFlow)
	r.s.read(func(st *state) {
		for _, m := range st.movements {
			if m.CreatedAt.Before(from) || m.CreatedAt.After(to) {
				continue
			}
			date := m.CreatedAt.Format("2006-01-02")
			row, ok := byDate[date]
			if !ok {
				row = &repository.DailyFlow{Date: date}
				byDate[date] = row
			}
			if m.Quantity > 0 {
				row.Inbound += m.Quantity
			} else {
				row.Outbound -= m.Quantity
			}
		}
	})
	results := make([]repository.DailyFlow, 0, len(byDate))
	for _, row := range byDate {
		results = append(results, *row)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Date < results[j].Date })
	return results, nil
}

// ---- sales ----

type saleRepo struct {
	s *session
}

func (r *saleRepo) Create(ctx context.Context, sale *model.Sale) error {
	return r.s.write(func(st *state) error {
		for _, existing := range st.sales {
			if existing.TransactionNumber == sale.TransactionNumber {
				return fmt.Errorf("%w: sales.transaction_number %q", repository.ErrDuplicateKey, sale.TransactionNumber)
			}
		}
		for _, item := range sale.Items {
			if item.Quantity <= 0 {
				return fmt.Errorf("%w: sale_items.quantity > 0", errCheckViolation)
			}
		}
		if sale.ID == uuid.Nil {
			sale.ID = uuid.New()
		}
		now := time.Now()
		if sale.CreatedAt.IsZero() {
			sale.CreatedAt = now
		}
		sale.UpdatedAt = now
		for i := range sale.Items {
			if sale.Items[i].ID == uuid.Nil {
				sale.Items[i].ID = uuid.New()
			}
			sale.Items[i].SaleID = sale.ID
		}
		st.sales[sale.ID] = copySale(*sale)
		st.saleOrder = append(st.saleOrder, sale.ID)
		return nil
	})
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var (
		sale model.Sale
		ok   bool
	)
	r.s.read(func(st *state) {
		sale, ok = st.sales[id]
		sale = copySale(sale)
	})
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sale, nil
}

func (r *saleRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	return r.FindByID(ctx, id)
}

func (r *saleRepo) UpdateState(ctx context.Context, sale *model.Sale) error {
	return r.s.write(func(st *state) error {
		existing, ok := st.sales[sale.ID]
		if !ok {
			return repository.ErrNotFound
		}
		existing.Status = sale.Status
		existing.AmountPaid = sale.AmountPaid
		existing.Change = sale.Change
		existing.PaidAt = sale.PaidAt
		existing.CompletedAt = sale.CompletedAt
		existing.CancelledAt = sale.CancelledAt
		existing.CancelReason = sale.CancelReason
		existing.RejectionReason = sale.RejectionReason
		existing.UpdatedBy = sale.UpdatedBy
		existing.UpdatedAt = time.Now()
		st.sales[sale.ID] = existing
		return nil
	})
}

func (r *saleRepo) List(ctx context.Context, filter repository.SaleFilter) ([]model.Sale, int64, error) {
	var matched []model.Sale
	r.s.read(func(st *state) {
		for i := len(st.saleOrder) - 1; i >= 0; i-- {
			sale := st.sales[st.saleOrder[i]]
			if filter.Status != "" && sale.Status != filter.Status {
				continue
			}
			if filter.Channel != "" && sale.Channel != filter.Channel {
				continue
			}
			if filter.From != nil && sale.CreatedAt.Before(*filter.From) {
				continue
			}
			if filter.To != nil && !sale.CreatedAt.Before(*filter.To) {
				continue
			}
			if filter.Search != "" && !containsFold(sale.TransactionNumber, filter.Search) && !containsFold(sale.CustomerName, filter.Search) {
				continue
			}
			matched = append(matched, copySale(sale))
		}
	})
	return page(matched, filter.Pagination), int64(len(matched)), nil
}

func (r *saleRepo) Summary(ctx context.Context, from, to time.Time) (*repository.SalesSummary, error) {
	summary := &repository.SalesSummary{Revenue: decimal.Zero}
	r.s.read(func(st *state) {
		for _, sale := range st.sales {
			if sale.Status != model.SaleCompleted || sale.CompletedAt == nil {
				continue
			}
			if sale.CompletedAt.Before(from) || sale.CompletedAt.After(to) {
				continue
			}
			summary.CompletedCount++
			summary.Revenue = summary.Revenue.Add(sale.Total)
		}
	})
	return summary, nil
}
