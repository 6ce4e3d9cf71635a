package services

import (
	"context"
	"sync"
	"time"

	"github.com/saeedj2446/barton-back-sub003/internal/domain"
	"github.com/saeedj2446/barton-back-sub003/internal/repository"
)

// fakeStore is an in-memory repository.Store with real transactional
// semantics: WithTx snapshots all state and restores it when the body
// errors, so atomicity assertions mean something.
type fakeStore struct {
	mu sync.Mutex

	orders   map[uint64]*domain.Order
	items    map[uint64][]domain.OrderItem
	txns     map[uint64]*domain.Transaction
	products map[uint64]*domain.Product
	accounts map[uint64]*domain.Account
	owners   map[uint64]uint64
	users    map[uint64]*domain.User

	nextOrderID uint64
	nextItemID  uint64
	nextTxnID   uint64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   map[uint64]*domain.Order{},
		items:    map[uint64][]domain.OrderItem{},
		txns:     map[uint64]*domain.Transaction{},
		products: map[uint64]*domain.Product{},
		accounts: map[uint64]*domain.Account{},
		owners:   map[uint64]uint64{},
		users:    map[uint64]*domain.User{},
	}
}

func (f *fakeStore) addProduct(p domain.Product) {
	f.products[p.ID] = &p
}

func (f *fakeStore) addSeller(accountID, ownerID uint64, status string) {
	f.accounts[accountID] = &domain.Account{ID: accountID, Title: "account", Status: status}
	f.owners[accountID] = ownerID
}

func (f *fakeStore) addUser(u domain.User) {
	f.users[u.ID] = &u
}

func (f *fakeStore) stock(productID uint64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[productID].Stock
}

func (f *fakeStore) snapshot() *fakeStore {
	s := newFakeStore()
	for id, o := range f.orders {
		c := *o
		s.orders[id] = &c
	}
	for id, items := range f.items {
		s.items[id] = append([]domain.OrderItem(nil), items...)
	}
	for id, t := range f.txns {
		c := *t
		s.txns[id] = &c
	}
	for id, p := range f.products {
		c := *p
		s.products[id] = &c
	}
	for id, a := range f.accounts {
		c := *a
		s.accounts[id] = &c
	}
	for id, u := range f.users {
		c := *u
		s.users[id] = &c
	}
	for k, v := range f.owners {
		s.owners[k] = v
	}
	s.nextOrderID, s.nextItemID, s.nextTxnID = f.nextOrderID, f.nextItemID, f.nextTxnID
	return s
}

func (f *fakeStore) restore(s *fakeStore) {
	f.orders, f.items, f.txns = s.orders, s.items, s.txns
	f.products, f.accounts, f.owners, f.users = s.products, s.accounts, s.owners, s.users
	f.nextOrderID, f.nextItemID, f.nextTxnID = s.nextOrderID, s.nextItemID, s.nextTxnID
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	f.mu.Lock()
	snap := f.snapshot()
	f.mu.Unlock()
	if err := fn(f); err != nil {
		f.mu.Lock()
		f.restore(snap)
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) Orders() repository.OrderRepository             { return (*fakeOrderRepo)(f) }
func (f *fakeStore) Transactions() repository.TransactionRepository { return (*fakeTxnRepo)(f) }
func (f *fakeStore) Catalog() repository.CatalogRepository          { return (*fakeCatalogRepo)(f) }

type fakeOrderRepo fakeStore

func (r *fakeOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextOrderID++
	order.ID = r.nextOrderID
	order.CreatedAt = time.Now()
	c := *order
	r.orders[order.ID] = &c
	return nil
}

func (r *fakeOrderRepo) CreateItems(ctx context.Context, items []domain.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.nextItemID++
		item.ID = r.nextItemID
		r.items[item.OrderID] = append(r.items[item.OrderID], item)
	}
	return nil
}

func (r *fakeOrderRepo) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	c := *o
	return &c, nil
}

func (r *fakeOrderRepo) FindByIDs(ctx context.Context, ids []uint64) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, id := range ids {
		if o, ok := r.orders[id]; ok {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) FindByUser(ctx context.Context, userID uint64) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) FindItems(ctx context.Context, orderID uint64) ([]domain.OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.OrderItem(nil), r.items[orderID]...), nil
}

func (r *fakeOrderRepo) UpdateMeta(ctx context.Context, id uint64, meta domain.OrderMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		o.Meta = meta
	}
	return nil
}

func (r *fakeOrderRepo) MarkPaid(ctx context.Context, id uint64, paidAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != domain.OrderStatusPending {
		return false, nil
	}
	o.Status = domain.OrderStatusPaid
	t := paidAt
	o.PaidAt = &t
	return true, nil
}

func (r *fakeOrderRepo) MarkCancelled(ctx context.Context, id uint64, meta domain.OrderMeta) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != domain.OrderStatusPending {
		return false, nil
	}
	o.Status = domain.OrderStatusCancelled
	o.Meta = meta
	return true, nil
}

type fakeTxnRepo fakeStore

func (r *fakeTxnRepo) Create(ctx context.Context, txn *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextTxnID++
	txn.ID = r.nextTxnID
	txn.CreatedAt = time.Now()
	c := *txn
	r.txns[txn.ID] = &c
	return nil
}

func (r *fakeTxnRepo) FindByID(ctx context.Context, id uint64) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txns[id]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (r *fakeTxnRepo) FindByNumber(ctx context.Context, number string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.txns {
		if t.TransactionNumber == number {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeTxnRepo) FindByGatewayReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Transaction
	for _, t := range r.txns {
		if t.GatewayReference != reference {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, nil
	}
	c := *latest
	return &c, nil
}

func (r *fakeTxnRepo) FindPendingByOrder(ctx context.Context, orderID uint64) ([]domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Transaction
	for _, t := range r.txns {
		if t.OrderID == orderID && t.Status == domain.TransactionStatusPending {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTxnRepo) SetGatewayResult(ctx context.Context, id uint64, reference string, audit domain.GatewayAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.txns[id]; ok {
		t.GatewayReference = reference
		t.GatewayResponse = audit
	}
	return nil
}

func (r *fakeTxnRepo) MarkTerminal(ctx context.Context, id uint64, status domain.TransactionStatus, upd repository.TerminalUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txns[id]
	if !ok || t.Status != domain.TransactionStatusPending {
		return false, nil
	}
	t.Status = status
	t.TrackingCode = upd.TrackingCode
	t.CardNumber = upd.CardNumber
	t.ErrorMessage = upd.ErrorMessage
	completed := upd.CompletedAt
	t.CompletedAt = &completed
	t.GatewayResponse = upd.Audit
	return true, nil
}

type fakeCatalogRepo fakeStore

func (r *fakeCatalogRepo) FindProductsByIDs(ctx context.Context, ids []uint64) (map[uint64]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[uint64]domain.Product{}
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = *p
		}
	}
	return out, nil
}

func (r *fakeCatalogRepo) FindAccountsByIDs(ctx context.Context, ids []uint64) (map[uint64]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[uint64]domain.Account{}
	for _, id := range ids {
		if a, ok := r.accounts[id]; ok {
			out[id] = *a
		}
	}
	return out, nil
}

func (r *fakeCatalogRepo) FindOwnersByAccountIDs(ctx context.Context, accountIDs []uint64) (map[uint64]uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[uint64]uint64{}
	for _, id := range accountIDs {
		if owner, ok := r.owners[id]; ok {
			out[id] = owner
		}
	}
	return out, nil
}

func (r *fakeCatalogRepo) FindUser(ctx context.Context, id uint64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (r *fakeCatalogRepo) DecrementStock(ctx context.Context, productID uint64, qty int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok || p.Stock < qty {
		return domain.Conflictf("insufficient stock for product %d", productID)
	}
	p.Stock -= qty
	return nil
}

func (r *fakeCatalogRepo) IncrementStock(ctx context.Context, productID uint64, qty int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[productID]; ok {
		p.Stock += qty
	}
	return nil
}

var _ repository.Store = (*fakeStore)(nil)
