package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"tokotunai/backend/internal/domain"
	"tokotunai/backend/internal/store"
)

func TestDecrementStockClampsAtZero(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if err := s.DecrementStock(ctx, "prod-pisang-goreng", 100); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}

	product, err := s.GetProductByID(ctx, "prod-pisang-goreng")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StockQuantity != 0 {
		t.Fatalf("expected stock clamped at 0, got %d", product.StockQuantity)
	}
}

func TestDecrementStockUnknownProduct(t *testing.T) {
	s := NewSeeded()

	if err := s.DecrementStock(context.Background(), "prod-nope", 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSoftDeleteHidesProduct(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if err := s.SoftDeleteProduct(ctx, "prod-es-teh"); err != nil {
		t.Fatalf("soft delete failed: %v", err)
	}
	if _, err := s.GetProductByID(ctx, "prod-es-teh"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected deleted product hidden, got %v", err)
	}

	products, err := s.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, p := range products {
		if p.ID == "prod-es-teh" {
			t.Fatalf("deleted product still listed")
		}
	}
}

func TestCreateShiftEnforcesOneOpenPerUser(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	first, err := s.CreateShift(ctx, domain.Shift{UserID: "user-1", StartCash: 10000, Status: domain.ShiftStatusOpen})
	if err != nil {
		t.Fatalf("create shift failed: %v", err)
	}

	if _, err := s.CreateShift(ctx, domain.Shift{UserID: "user-1", StartCash: 5000, Status: domain.ShiftStatusOpen}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict for second open shift, got %v", err)
	}

	// A different cashier can open freely.
	if _, err := s.CreateShift(ctx, domain.Shift{UserID: "user-2", StartCash: 5000, Status: domain.ShiftStatusOpen}); err != nil {
		t.Fatalf("second cashier shift failed: %v", err)
	}

	// Closing frees the slot for the same cashier.
	now := time.Now().UTC()
	closing := *first
	closing.EndTime = &now
	if _, err := s.CloseShift(ctx, closing); err != nil {
		t.Fatalf("close shift failed: %v", err)
	}
	if _, err := s.CreateShift(ctx, domain.Shift{UserID: "user-1", StartCash: 2000, Status: domain.ShiftStatusOpen}); err != nil {
		t.Fatalf("reopen after close failed: %v", err)
	}
}

func TestCloseShiftIsOneShot(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	shift, err := s.CreateShift(ctx, domain.Shift{UserID: "user-1", StartCash: 10000, Status: domain.ShiftStatusOpen})
	if err != nil {
		t.Fatalf("create shift failed: %v", err)
	}

	now := time.Now().UTC()
	closing := *shift
	closing.EndTime = &now
	closing.EndCashActual = 10000
	if _, err := s.CloseShift(ctx, closing); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := s.CloseShift(ctx, closing); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict on second close, got %v", err)
	}
}

func TestGetLastClosedShiftPicksLatest(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	var lastID string
	for i := 0; i < 3; i++ {
		shift, err := s.CreateShift(ctx, domain.Shift{UserID: "user-1", StartCash: 1000, Status: domain.ShiftStatusOpen})
		if err != nil {
			t.Fatalf("create shift failed: %v", err)
		}
		end := time.Now().UTC().Add(time.Duration(i) * time.Minute)
		closing := *shift
		closing.EndTime = &end
		if _, err := s.CloseShift(ctx, closing); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		lastID = shift.ID
	}

	last, err := s.GetLastClosedShift(ctx, "user-1")
	if err != nil {
		t.Fatalf("last closed failed: %v", err)
	}
	if last.ID != lastID {
		t.Fatalf("expected %s, got %s", lastID, last.ID)
	}
}

func TestVoidTransactionStampsAudit(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	tx, err := s.CreateTransaction(ctx, domain.Transaction{
		UserID:        "user-1",
		Username:      "kasir",
		TotalAmount:   10000,
		PaymentMethod: domain.PaymentCash,
		CashReceived:  10000,
		Items:         []domain.CartItem{{ProductID: "p1", Name: "Item", Price: 10000, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}

	at := time.Now().UTC()
	voided, err := s.VoidTransaction(ctx, tx.ID, "admin", "wrong order", at)
	if err != nil {
		t.Fatalf("void failed: %v", err)
	}
	if voided.Status != domain.TxStatusVoided || voided.VoidedBy != "admin" || voided.VoidedAt == nil {
		t.Fatalf("missing void audit fields: %+v", voided)
	}

	if _, err := s.VoidTransaction(ctx, tx.ID, "admin", "again", at); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict on double void, got %v", err)
	}
}

func TestListTransactionsByRangeNewestFirst(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := s.CreateTransaction(ctx, domain.Transaction{
			UserID:        "user-1",
			Username:      "kasir",
			TotalAmount:   int64(1000 * (i + 1)),
			PaymentMethod: domain.PaymentCash,
			CashReceived:  int64(1000 * (i + 1)),
			Items:         []domain.CartItem{{ProductID: "p1", Name: "Item", Price: 1000, Quantity: 1}},
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("create transaction failed: %v", err)
		}
	}

	transactions, err := s.ListTransactionsByRange(ctx, base.Add(-time.Minute), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(transactions) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(transactions))
	}
	for i := 1; i < len(transactions); i++ {
		if transactions[i].CreatedAt.After(transactions[i-1].CreatedAt) {
			t.Fatalf("expected newest-first ordering")
		}
	}
}

func TestReturnedProductIsACopy(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	product, err := s.GetProductByID(ctx, "prod-nasi-goreng")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	product.StockQuantity = -999

	again, err := s.GetProductByID(ctx, "prod-nasi-goreng")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if again.StockQuantity == -999 {
		t.Fatalf("mutating the returned product must not touch the store")
	}
}
