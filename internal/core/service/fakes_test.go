package service

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/time-sale/internal/core/domain"
	"github.com/rl1809/time-sale/internal/port"
)

// memStore is an in-memory stand-in for the MySQL adapter. WithinTx holds
// one mutex for the whole unit of work, which gives the same serialization
// the row lock provides for a single sale, and pending writes are applied
// only on commit so a failed fn rolls back.
type memStore struct {
	mu       sync.Mutex
	sales    map[string]*domain.Sale
	orders   []*domain.Order
	orderErr error
}

func newMemStore(sales ...*domain.Sale) *memStore {
	m := &memStore{sales: make(map[string]*domain.Sale)}
	for _, s := range sales {
		m.sales[s.ID] = copySale(s)
	}
	return m
}

func copySale(s *domain.Sale) *domain.Sale {
	c := *s
	return &c
}

func (m *memStore) WithinTx(ctx context.Context, fn func(r port.TxRepos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{store: m, pendingSales: make(map[string]*domain.Sale)}
	if err := fn(tx); err != nil {
		return err
	}

	for id, s := range tx.pendingSales {
		m.sales[id] = s
	}
	m.orders = append(m.orders, tx.pendingOrders...)
	return nil
}

func (m *memStore) Sales() port.SaleRepository {
	return &memSaleRepo{store: m}
}

func (m *memStore) Orders() port.OrderRepository {
	return &memOrderRepo{store: m}
}

func (m *memStore) remaining(saleID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sales[saleID].RemainingQuantity
}

func (m *memStore) completedQty(saleID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, o := range m.orders {
		if o.SaleID == saleID && o.Status == domain.OrderStatusCompleted {
			total += o.Quantity
		}
	}
	return total
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type memSaleRepo struct {
	store *memStore
}

func (r *memSaleRepo) Create(ctx context.Context, sale *domain.Sale) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.sales[sale.ID] = copySale(sale)
	return nil
}

func (r *memSaleRepo) FindByID(ctx context.Context, saleID string) (*domain.Sale, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.sales[saleID]
	if !ok {
		return nil, domain.ErrSaleNotFound
	}
	return copySale(s), nil
}

func (r *memSaleRepo) FindByIDForUpdate(ctx context.Context, saleID string) (*domain.Sale, error) {
	return r.FindByID(ctx, saleID)
}

func (r *memSaleRepo) Update(ctx context.Context, sale *domain.Sale) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.sales[sale.ID]; !ok {
		return domain.ErrSaleNotFound
	}
	r.store.sales[sale.ID] = copySale(sale)
	return nil
}

func (r *memSaleRepo) ListOngoing(ctx context.Context, now time.Time, page, size int) ([]*domain.Sale, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.Sale
	for _, s := range r.store.sales {
		if s.IsActive(now) {
			out = append(out, copySale(s))
		}
	}
	return out, nil
}

type memOrderRepo struct {
	store *memStore
}

func (r *memOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.orderErr != nil {
		return r.store.orderErr
	}
	r.store.orders = append(r.store.orders, order)
	return nil
}

type memTx struct {
	store         *memStore
	pendingSales  map[string]*domain.Sale
	pendingOrders []*domain.Order
}

func (t *memTx) Sales() port.SaleRepository {
	return &txSaleRepo{tx: t}
}

func (t *memTx) Orders() port.OrderRepository {
	return &txOrderRepo{tx: t}
}

type txSaleRepo struct {
	tx *memTx
}

func (r *txSaleRepo) Create(ctx context.Context, sale *domain.Sale) error {
	r.tx.pendingSales[sale.ID] = copySale(sale)
	return nil
}

func (r *txSaleRepo) FindByID(ctx context.Context, saleID string) (*domain.Sale, error) {
	if s, ok := r.tx.pendingSales[saleID]; ok {
		return copySale(s), nil
	}
	s, ok := r.tx.store.sales[saleID]
	if !ok {
		return nil, domain.ErrSaleNotFound
	}
	return copySale(s), nil
}

func (r *txSaleRepo) FindByIDForUpdate(ctx context.Context, saleID string) (*domain.Sale, error) {
	return r.FindByID(ctx, saleID)
}

func (r *txSaleRepo) Update(ctx context.Context, sale *domain.Sale) error {
	if _, ok := r.tx.store.sales[sale.ID]; !ok {
		if _, pending := r.tx.pendingSales[sale.ID]; !pending {
			return domain.ErrSaleNotFound
		}
	}
	r.tx.pendingSales[sale.ID] = copySale(sale)
	return nil
}

func (r *txSaleRepo) ListOngoing(ctx context.Context, now time.Time, page, size int) ([]*domain.Sale, error) {
	return (&memSaleRepo{store: r.tx.store}).ListOngoing(ctx, now, page, size)
}

type txOrderRepo struct {
	tx *memTx
}

func (r *txOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	if r.tx.store.orderErr != nil {
		return r.tx.store.orderErr
	}
	r.tx.pendingOrders = append(r.tx.pendingOrders, order)
	return nil
}

// fakeCache mirrors sales in memory; errors are injectable per direction.
type fakeCache struct {
	mu     sync.Mutex
	snaps  map[string]domain.Sale
	getErr error
	putErr error
	puts   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{snaps: make(map[string]domain.Sale)}
}

func (c *fakeCache) GetSale(ctx context.Context, saleID string) (*domain.Sale, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	s, ok := c.snaps[saleID]
	if !ok {
		return nil, port.ErrCacheMiss
	}
	return copySale(&s), nil
}

func (c *fakeCache) PutSale(ctx context.Context, sale *domain.Sale) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.putErr != nil {
		return c.putErr
	}
	c.snaps[sale.ID] = *copySale(sale)
	c.puts++
	return nil
}

func (c *fakeCache) snapshot(saleID string) (domain.Sale, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.snaps[saleID]
	return s, ok
}

// fakeLocker gives real mutual exclusion per key with the same
// bounded-wait contract as the Redis locker.
type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, wait, lease time.Duration) (port.Lock, error) {
	deadline := time.Now().Add(wait)
	for {
		l.mu.Lock()
		if !l.held[key] {
			l.held[key] = true
			l.mu.Unlock()
			return &fakeLock{locker: l, key: key}, nil
		}
		l.mu.Unlock()

		if time.Now().After(deadline) {
			return nil, port.ErrLockUnavailable
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (l *fakeLocker) heldCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, h := range l.held {
		if h {
			n++
		}
	}
	return n
}

type fakeLock struct {
	locker *fakeLocker
	key    string
}

func (f *fakeLock) Release(ctx context.Context) error {
	f.locker.mu.Lock()
	defer f.locker.mu.Unlock()
	delete(f.locker.held, f.key)
	return nil
}

// unavailableLocker always times out, as if another instance never lets go.
type unavailableLocker struct{}

func (unavailableLocker) Acquire(ctx context.Context, key string, wait, lease time.Duration) (port.Lock, error) {
	return nil, port.ErrLockUnavailable
}

type fakeCatalog struct {
	products map[string]*port.Product
}

func newFakeCatalog(ids ...string) *fakeCatalog {
	c := &fakeCatalog{products: make(map[string]*port.Product)}
	for _, id := range ids {
		c.products[id] = &port.Product{ID: id, Name: "product " + id, Price: 2000}
	}
	return c
}

func (c *fakeCatalog) GetProduct(ctx context.Context, productID string) (*port.Product, error) {
	p, ok := c.products[productID]
	if !ok {
		return nil, port.ErrProductNotFound
	}
	return p, nil
}
