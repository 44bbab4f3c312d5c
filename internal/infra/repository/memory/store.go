// Package memory はプロセス内で完結するリポジトリ実装。
// STORE_DRIVER=memory の開発用とテスト用。
package memory

import (
	"context"
	"sort"
	"sync"

	"eyewear/internal/domain/model"
	repo "eyewear/internal/repository"
)

type state struct {
	products    map[int64]model.Product
	orders      map[int64]model.Order
	items       map[int64]model.OrderItem
	counters    map[string]int64
	adjustments []model.InventoryAdjustment
	audits      []model.AuditLog

	nextProductID int64
	nextOrderID   int64
	nextItemID    int64
	nextAdjID     int64
	nextAuditID   int64
}

func (s *state) clone() state {
	c := *s
	c.products = make(map[int64]model.Product, len(s.products))
	for k, v := range s.products {
		c.products[k] = v
	}
	c.orders = make(map[int64]model.Order, len(s.orders))
	for k, v := range s.orders {
		c.orders[k] = v
	}
	c.items = make(map[int64]model.OrderItem, len(s.items))
	for k, v := range s.items {
		c.items[k] = v
	}
	c.counters = make(map[string]int64, len(s.counters))
	for k, v := range s.counters {
		c.counters[k] = v
	}
	c.adjustments = append([]model.InventoryAdjustment(nil), s.adjustments...)
	c.audits = append([]model.AuditLog(nil), s.audits...)
	return c
}

// トランザクションは1本ずつ実行し、エラーなら開始前の状態に戻す
type Store struct {
	mu    sync.Mutex
	state state
}

func NewStore() *Store {
	return &Store{state: state{
		products: map[int64]model.Product{},
		orders:   map[int64]model.Order{},
		items:    map[int64]model.OrderItem{},
		counters: map[string]int64{},
	}}
}

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&txRepos{st: &s.state}); err != nil {
		s.state = snapshot
		return err
	}
	// 途中でキャンセルされたらコミットしない
	if err := ctx.Err(); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// 商品を登録/上書きする。IDが0なら採番
func (s *Store) PutProduct(p model.Product) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		s.state.nextProductID++
		p.ID = s.state.nextProductID
	} else if p.ID > s.state.nextProductID {
		s.state.nextProductID = p.ID
	}
	s.state.products[p.ID] = p
	return p
}

func (s *Store) Product(id int64) (model.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.state.products[id]
	return p, ok
}

func (s *Store) AuditLogs() []model.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]model.AuditLog(nil), s.state.audits...)
}

func (s *Store) Adjustments() []model.InventoryAdjustment {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]model.InventoryAdjustment(nil), s.state.adjustments...)
}

type txRepos struct {
	st *state
}

func (r *txRepos) Orders() repo.OrderRepository         { return orderRepo{r.st} }
func (r *txRepos) OrderItems() repo.OrderItemRepository { return orderItemRepo{r.st} }
func (r *txRepos) Inventory() repo.InventoryRepository  { return inventoryRepo{r.st} }
func (r *txRepos) Products() repo.ProductRepository     { return productRepo{r.st} }
func (r *txRepos) Counters() repo.CounterRepository     { return counterRepo{r.st} }
func (r *txRepos) AuditLogs() repo.AuditLogRepository   { return auditRepo{r.st} }

type orderRepo struct{ st *state }

func (r orderRepo) FindByID(_ context.Context, orderID int64) (model.Order, error) {
	o, ok := r.st.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (r orderRepo) List(_ context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}

	matched := make([]model.Order, 0)
	for _, o := range r.st.orders {
		if f.OrderStatus != "" && o.OrderStatus != f.OrderStatus {
			continue
		}
		if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
			continue
		}
		if f.UserID != nil && o.UserID != *f.UserID {
			continue
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && o.CreatedAt.After(*f.To) {
			continue
		}
		matched = append(matched, o)
	}

	//新しい順
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := (f.Page - 1) * f.Limit
	if start >= len(matched) {
		return []model.Order{}, total, nil
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r orderRepo) Create(_ context.Context, order model.Order) (model.Order, error) {
	for _, o := range r.st.orders {
		if o.OrderNumber == order.OrderNumber {
			return model.Order{}, repo.ErrConflict
		}
		if order.IdempotencyKey != nil && o.IdempotencyKey != nil &&
			o.UserID == order.UserID && *o.IdempotencyKey == *order.IdempotencyKey {
			return model.Order{}, repo.ErrConflict
		}
	}

	r.st.nextOrderID++
	order.ID = r.st.nextOrderID
	if order.Version == 0 {
		order.Version = 1
	}
	r.st.orders[order.ID] = order
	return order, nil
}

func (r orderRepo) Update(_ context.Context, order model.Order, expectedVersion int64) error {
	cur, ok := r.st.orders[order.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return repo.ErrConflict
	}

	//作成時に決まる項目は引き継ぐ
	order.OrderNumber = cur.OrderNumber
	order.UserID = cur.UserID
	order.PaymentMethod = cur.PaymentMethod
	order.IdempotencyKey = cur.IdempotencyKey
	order.CreatedAt = cur.CreatedAt
	order.Version = expectedVersion + 1
	r.st.orders[order.ID] = order
	return nil
}

func (r orderRepo) FindByIdempotencyKey(_ context.Context, userID int64, key string) (model.Order, bool, error) {
	for _, o := range r.st.orders {
		if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return o, true, nil
		}
	}
	return model.Order{}, false, nil
}

type orderItemRepo struct{ st *state }

func (r orderItemRepo) CreateBulk(_ context.Context, orderID int64, items []model.OrderItem) ([]model.OrderItem, error) {
	out := make([]model.OrderItem, 0, len(items))
	for _, it := range items {
		r.st.nextItemID++
		it.ID = r.st.nextItemID
		it.OrderID = orderID
		r.st.items[it.ID] = it
		out = append(out, it)
	}
	return out, nil
}

func (r orderItemRepo) ListByOrderID(_ context.Context, orderID int64) ([]model.OrderItem, error) {
	out := make([]model.OrderItem, 0)
	for _, it := range r.st.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r orderItemRepo) DeleteByOrderID(_ context.Context, orderID int64) error {
	for id, it := range r.st.items {
		if it.OrderID == orderID {
			delete(r.st.items, id)
		}
	}
	return nil
}

type inventoryRepo struct{ st *state }

func (r inventoryRepo) DecreaseStockIfEnough(_ context.Context, productID int64, qty int64) (bool, error) {
	p, ok := r.st.products[productID]
	if !ok || p.DeletedAt.Valid || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	r.st.products[productID] = p
	return true, nil
}

func (r inventoryRepo) IncreaseStock(_ context.Context, productID int64, qty int64) error {
	p, ok := r.st.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock += qty
	r.st.products[productID] = p
	return nil
}

func (r inventoryRepo) CreateAdjustment(_ context.Context, adj model.InventoryAdjustment) error {
	r.st.nextAdjID++
	adj.ID = r.st.nextAdjID
	r.st.adjustments = append(r.st.adjustments, adj)
	return nil
}

type productRepo struct{ st *state }

func (r productRepo) FindByID(_ context.Context, id int64) (model.Product, error) {
	p, ok := r.st.products[id]
	if !ok || p.DeletedAt.Valid {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

type counterRepo struct{ st *state }

func (r counterRepo) Next(_ context.Context, name string) (int64, error) {
	r.st.counters[name]++
	return r.st.counters[name], nil
}

type auditRepo struct{ st *state }

func (r auditRepo) Create(_ context.Context, log model.AuditLog) error {
	r.st.nextAuditID++
	log.ID = r.st.nextAuditID
	r.st.audits = append(r.st.audits, log)
	return nil
}
