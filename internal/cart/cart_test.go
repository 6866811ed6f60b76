package cart

import (
	"context"
	"errors"
	"testing"

	"tokotunai/backend/internal/domain"
	"tokotunai/backend/internal/kv"
)

func testProduct(id string, price int64, stock int) domain.Product {
	return domain.Product{
		ID:            id,
		Name:          "Product " + id,
		Price:         price,
		Category:      "food",
		StockQuantity: stock,
	}
}

func newTestCart() *Cart {
	return NewManager(kv.NewMemory()).Cart("user-1")
}

func TestAddItemBoundedByStock(t *testing.T) {
	c := newTestCart()
	product := testProduct("p1", 10000, 2)

	if err := c.AddItem(product); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := c.AddItem(product); err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if err := c.AddItem(product); !errors.Is(err, ErrStockLimit) {
		t.Fatalf("expected stock limit at quantity 3, got %v", err)
	}

	view := c.View()
	if view.TotalItems != 2 {
		t.Fatalf("expected 2 items, got %d", view.TotalItems)
	}
	if view.Total != 20000 {
		t.Fatalf("expected total 20000, got %d", view.Total)
	}
}

func TestAddItemRejectsOutOfStock(t *testing.T) {
	c := newTestCart()

	if err := c.AddItem(testProduct("p1", 5000, 0)); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}
}

func TestAddItemRefreshesStockBound(t *testing.T) {
	c := newTestCart()

	if err := c.AddItem(testProduct("p1", 5000, 1)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	// Stock went up between adds; the line's bound must follow.
	if err := c.AddItem(testProduct("p1", 5000, 5)); err != nil {
		t.Fatalf("add after restock failed: %v", err)
	}
	if err := c.UpdateQuantity("p1", 3); err != nil {
		t.Fatalf("delta within new bound failed: %v", err)
	}
	if err := c.UpdateQuantity("p1", 1); !errors.Is(err, ErrStockLimit) {
		t.Fatalf("expected stock limit at quantity 6, got %v", err)
	}
}

func TestUpdateQuantityDropsLineAtZero(t *testing.T) {
	c := newTestCart()

	if err := c.AddItem(testProduct("p1", 5000, 10)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := c.UpdateQuantity("p1", -1); err != nil {
		t.Fatalf("delta to zero failed: %v", err)
	}
	if len(c.Items()) != 0 {
		t.Fatalf("expected line dropped at quantity zero")
	}
	if err := c.UpdateQuantity("p1", 1); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected item not found after drop, got %v", err)
	}
}

func TestParkAndResumeRoundTrip(t *testing.T) {
	c := newTestCart()
	ctx := context.Background()

	for _, p := range []domain.Product{
		testProduct("p1", 5000, 10),
		testProduct("p2", 8000, 10),
		testProduct("p3", 12000, 10),
	} {
		if err := c.AddItem(p); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	parkID, err := c.Park(ctx)
	if err != nil {
		t.Fatalf("park failed: %v", err)
	}
	if parkID == "" {
		t.Fatalf("expected park id")
	}
	if len(c.Items()) != 0 {
		t.Fatalf("expected empty cart after park")
	}

	orders, err := c.ListParked(ctx)
	if err != nil {
		t.Fatalf("list parked failed: %v", err)
	}
	if len(orders) != 1 || len(orders[0].Items) != 3 {
		t.Fatalf("expected one parked order with 3 items, got %+v", orders)
	}
	if orders[0].Total != 25000 {
		t.Fatalf("expected parked total 25000, got %d", orders[0].Total)
	}

	overwrote, err := c.Resume(ctx, parkID)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if overwrote {
		t.Fatalf("resume into empty cart should not report overwrite")
	}
	if len(c.Items()) != 3 {
		t.Fatalf("expected 3 items after resume, got %d", len(c.Items()))
	}

	count, err := c.ParkedCount(ctx)
	if err != nil {
		t.Fatalf("parked count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected resumed order removed from slot, got %d", count)
	}
}

func TestResumeOverwritesLiveCart(t *testing.T) {
	c := newTestCart()
	ctx := context.Background()

	if err := c.AddItem(testProduct("p1", 5000, 10)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	parkID, err := c.Park(ctx)
	if err != nil {
		t.Fatalf("park failed: %v", err)
	}

	if err := c.AddItem(testProduct("p2", 8000, 10)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	overwrote, err := c.Resume(ctx, parkID)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if !overwrote {
		t.Fatalf("expected overwrite flag when cart had items")
	}

	items := c.Items()
	if len(items) != 1 || items[0].ProductID != "p1" {
		t.Fatalf("expected cart replaced wholesale, got %+v", items)
	}
}

func TestResumeUnknownParkID(t *testing.T) {
	c := newTestCart()

	if _, err := c.Resume(context.Background(), "park-nope"); !errors.Is(err, ErrParkNotFound) {
		t.Fatalf("expected park not found, got %v", err)
	}
}

func TestParkEmptyCartRejected(t *testing.T) {
	c := newTestCart()

	if _, err := c.Park(context.Background()); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected empty cart error, got %v", err)
	}
}

func TestDeleteParked(t *testing.T) {
	c := newTestCart()
	ctx := context.Background()

	if err := c.AddItem(testProduct("p1", 5000, 10)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	parkID, err := c.Park(ctx)
	if err != nil {
		t.Fatalf("park failed: %v", err)
	}

	if err := c.DeleteParked(ctx, parkID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := c.DeleteParked(ctx, parkID); !errors.Is(err, ErrParkNotFound) {
		t.Fatalf("expected park not found on second delete, got %v", err)
	}
}

func TestParkedOrdersSurviveManagerRestart(t *testing.T) {
	slots := kv.NewMemory()
	ctx := context.Background()

	c := NewManager(slots).Cart("user-1")
	if err := c.AddItem(testProduct("p1", 5000, 10)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	parkID, err := c.Park(ctx)
	if err != nil {
		t.Fatalf("park failed: %v", err)
	}

	// A new manager over the same slot store sees the parked order; only the
	// live cart is lost on restart.
	restarted := NewManager(slots).Cart("user-1")
	orders, err := restarted.ListParked(ctx)
	if err != nil {
		t.Fatalf("list parked failed: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != parkID {
		t.Fatalf("expected parked order to survive restart, got %+v", orders)
	}
}

func TestCartsAreIsolatedPerUser(t *testing.T) {
	manager := NewManager(kv.NewMemory())
	ctx := context.Background()

	a := manager.Cart("user-a")
	b := manager.Cart("user-b")

	if err := a.AddItem(testProduct("p1", 5000, 10)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := a.Park(ctx); err != nil {
		t.Fatalf("park failed: %v", err)
	}

	count, err := b.ParkedCount(ctx)
	if err != nil {
		t.Fatalf("parked count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected user-b slot untouched, got %d", count)
	}
}
