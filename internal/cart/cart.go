// Package cart holds the per-cashier working set of line items and the
// park/resume flow over the durable parked-orders slot.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"tokotunai/backend/internal/domain"
	"tokotunai/backend/internal/kv"
	"tokotunai/backend/internal/xid"
)

var (
	ErrOutOfStock   = errors.New("item is out of stock")
	ErrStockLimit   = errors.New("quantity would exceed available stock")
	ErrEmptyCart    = errors.New("cart is empty")
	ErrParkNotFound = errors.New("parked order not found")
	ErrItemNotFound = errors.New("item not in cart")
)

// Manager owns one Cart per cashier. Carts are in-memory only; the parked
// list is the single durable artifact, one KV slot per cashier.
type Manager struct {
	mu    sync.Mutex
	store kv.Store
	carts map[string]*Cart
}

func NewManager(store kv.Store) *Manager {
	return &Manager{
		store: store,
		carts: make(map[string]*Cart),
	}
}

func (m *Manager) Cart(userID string) *Cart {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[userID]
	if !ok {
		c = &Cart{store: m.store, slotKey: parkedSlotKey(userID)}
		m.carts[userID] = c
	}
	return c
}

func parkedSlotKey(userID string) string {
	return fmt.Sprintf("pos:parked_orders:%s", userID)
}

// Cart serializes every mutation, including the read-modify-write of the
// parked slot, behind one mutex. The slot is only ever rewritten as a whole
// list, never updated in place.
type Cart struct {
	mu      sync.Mutex
	store   kv.Store
	slotKey string
	items   []domain.CartItem
}

// AddItem appends the product with quantity 1, or bumps an existing line by
// 1 when the new quantity still fits the stock recorded on the snapshot.
func (c *Cart) AddItem(product domain.Product) error {
	if product.StockQuantity <= 0 {
		return ErrOutOfStock
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductID != product.ID {
			continue
		}
		if c.items[i].Quantity+1 > product.StockQuantity {
			return fmt.Errorf("%w: only %d available", ErrStockLimit, product.StockQuantity)
		}
		c.items[i].Quantity++
		// Refresh the stock bound so later delta edits see current stock.
		c.items[i].StockQuantity = product.StockQuantity
		return nil
	}

	c.items = append(c.items, domain.CartItem{
		ProductID:     product.ID,
		Name:          product.Name,
		Price:         product.Price,
		Category:      product.Category,
		StockQuantity: product.StockQuantity,
		ImageURL:      product.ImageURL,
		Quantity:      1,
	})
	return nil
}

// UpdateQuantity applies a signed delta. A resulting quantity of zero or
// less drops the line; exceeding the line's stock bound leaves it unchanged.
func (c *Cart) UpdateQuantity(productID string, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductID != productID {
			continue
		}
		newQty := c.items[i].Quantity + delta
		if newQty <= 0 {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return nil
		}
		if newQty > c.items[i].StockQuantity {
			return fmt.Errorf("%w: only %d available", ErrStockLimit, c.items[i].StockQuantity)
		}
		c.items[i].Quantity = newQty
		return nil
	}

	return ErrItemNotFound
}

func (c *Cart) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
}

// Items returns a copy of the current lines.
func (c *Cart) Items() []domain.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshotLocked()
}

func (c *Cart) snapshotLocked() []domain.CartItem {
	items := make([]domain.CartItem, len(c.items))
	copy(items, c.items)
	return items
}

// View folds the current lines into totals. Totals are recomputed on every
// call rather than cached.
func (c *Cart) View() domain.CartView {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := domain.CartView{Items: c.snapshotLocked()}
	for _, item := range c.items {
		view.Total += item.Price * int64(item.Quantity)
		view.TotalItems += item.Quantity
	}
	return view
}

// Park snapshots the cart into a new parked order, appends it to the durable
// list and clears the live cart. An empty cart cannot be parked.
func (c *Cart) Park(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) == 0 {
		return "", ErrEmptyCart
	}

	total := int64(0)
	for _, item := range c.items {
		total += item.Price * int64(item.Quantity)
	}

	order := domain.ParkedOrder{
		ID:       xid.New("park"),
		Items:    c.snapshotLocked(),
		Total:    total,
		ParkedAt: time.Now().UTC(),
	}

	orders, err := c.loadParkedLocked(ctx)
	if err != nil {
		return "", err
	}
	orders = append(orders, order)
	if err := c.saveParkedLocked(ctx, orders); err != nil {
		return "", err
	}

	c.items = nil
	return order.ID, nil
}

func (c *Cart) ListParked(ctx context.Context) ([]domain.ParkedOrder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.loadParkedLocked(ctx)
}

// Resume replaces the live cart wholesale with the parked items and removes
// the entry from the durable list. There is no merge; the returned flag
// reports whether a non-empty cart was overwritten so the caller can warn.
func (c *Cart) Resume(ctx context.Context, parkID string) (overwrote bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	orders, err := c.loadParkedLocked(ctx)
	if err != nil {
		return false, err
	}

	idx := -1
	for i := range orders {
		if orders[i].ID == parkID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, ErrParkNotFound
	}

	resumed := orders[idx]
	remaining := append(orders[:idx], orders[idx+1:]...)
	if err := c.saveParkedLocked(ctx, remaining); err != nil {
		return false, err
	}

	overwrote = len(c.items) > 0
	c.items = resumed.Items
	return overwrote, nil
}

func (c *Cart) DeleteParked(ctx context.Context, parkID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	orders, err := c.loadParkedLocked(ctx)
	if err != nil {
		return err
	}

	for i := range orders {
		if orders[i].ID == parkID {
			orders = append(orders[:i], orders[i+1:]...)
			return c.saveParkedLocked(ctx, orders)
		}
	}
	return ErrParkNotFound
}

func (c *Cart) ParkedCount(ctx context.Context) (int, error) {
	orders, err := c.ListParked(ctx)
	if err != nil {
		return 0, err
	}
	return len(orders), nil
}

func (c *Cart) loadParkedLocked(ctx context.Context) ([]domain.ParkedOrder, error) {
	raw, err := c.store.Get(ctx, c.slotKey)
	if errors.Is(err, kv.ErrNoKey) {
		return []domain.ParkedOrder{}, nil
	}
	if err != nil {
		return nil, err
	}

	var orders []domain.ParkedOrder
	if err := json.Unmarshal(raw, &orders); err != nil {
		return nil, fmt.Errorf("corrupt parked-orders slot: %w", err)
	}
	return orders, nil
}

func (c *Cart) saveParkedLocked(ctx context.Context, orders []domain.ParkedOrder) error {
	payload, err := json.Marshal(orders)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.slotKey, payload)
}
