package offline

import (
	"context"
	"errors"
	"testing"

	"tokotunai/backend/internal/domain"
	"tokotunai/backend/internal/kv"
)

// failSome rejects the transactions whose user id is in reject.
type failSome struct {
	reject    map[string]bool
	submitted []string
}

func (f *failSome) SubmitQueued(_ context.Context, queued domain.QueuedTransaction) error {
	if f.reject[queued.Input.UserID] {
		return errors.New("remote store down")
	}
	f.submitted = append(f.submitted, queued.ID)
	return nil
}

func enqueueSale(t *testing.T, q *Queue, userID string, total int64) string {
	t.Helper()
	id, err := q.Enqueue(context.Background(), domain.TransactionInput{
		UserID:        userID,
		Username:      userID,
		TotalAmount:   total,
		PaymentMethod: domain.PaymentCash,
		CashReceived:  total,
	}, []domain.CartItem{{ProductID: "p1", Name: "Item", Price: total, Quantity: 1}})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	return id
}

func TestEnqueueAlwaysSucceedsLocally(t *testing.T) {
	q := NewQueue(kv.NewMemory())

	id := enqueueSale(t, q, "kasir", 15000)
	if id == "" {
		t.Fatalf("expected queue id")
	}

	count, err := q.Count(context.Background())
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 queued entry, got %d", count)
	}
}

func TestDrainRemovesSyncedEntries(t *testing.T) {
	q := NewQueue(kv.NewMemory())
	ctx := context.Background()

	enqueueSale(t, q, "kasir", 10000)
	enqueueSale(t, q, "kasir", 20000)

	sub := &failSome{}
	result, err := q.Drain(ctx, sub)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if result.Synced != 2 || result.Failed != 0 {
		t.Fatalf("expected 2 synced / 0 failed, got %+v", result)
	}

	count, err := q.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty queue, got %d", count)
	}
}

func TestDrainRetainsFailuresInOrder(t *testing.T) {
	q := NewQueue(kv.NewMemory())
	ctx := context.Background()

	keptFirst := enqueueSale(t, q, "stuck", 10000)
	enqueueSale(t, q, "kasir", 20000)
	keptSecond := enqueueSale(t, q, "stuck", 30000)

	sub := &failSome{reject: map[string]bool{"stuck": true}}
	result, err := q.Drain(ctx, sub)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if result.Synced != 1 || result.Failed != 2 {
		t.Fatalf("expected 1 synced / 2 failed, got %+v", result)
	}

	remaining, err := q.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 retained entries, got %d", len(remaining))
	}
	if remaining[0].ID != keptFirst || remaining[1].ID != keptSecond {
		t.Fatalf("expected failures retained in original order, got %+v", remaining)
	}

	// Retry after the remote recovers drains the rest.
	sub.reject = nil
	result, err = q.Drain(ctx, sub)
	if err != nil {
		t.Fatalf("second drain failed: %v", err)
	}
	if result.Synced != 2 || result.Failed != 0 {
		t.Fatalf("expected 2 synced on retry, got %+v", result)
	}
}

func TestDrainEmptyQueueIsNoop(t *testing.T) {
	q := NewQueue(kv.NewMemory())

	result, err := q.Drain(context.Background(), &failSome{})
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if result.Synced != 0 || result.Failed != 0 {
		t.Fatalf("expected zero result, got %+v", result)
	}
}

func TestQueueSurvivesRestart(t *testing.T) {
	slots := kv.NewMemory()
	ctx := context.Background()

	q := NewQueue(slots)
	id := enqueueSale(t, q, "kasir", 10000)

	// A fresh queue over the same slot store picks up pending entries.
	restarted := NewQueue(slots)
	entries, err := restarted.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id {
		t.Fatalf("expected entry to survive restart, got %+v", entries)
	}
}
