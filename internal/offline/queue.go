// Package offline buffers sales that could not reach the remote store and
// replays them when connectivity returns.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"tokotunai/backend/internal/domain"
	"tokotunai/backend/internal/kv"
	"tokotunai/backend/internal/xid"
)

const queueSlotKey = "pos:offline_queue"

// Submitter replays one queued transaction against the remote store. It is
// implemented by the checkout pipeline.
type Submitter interface {
	SubmitQueued(ctx context.Context, queued domain.QueuedTransaction) error
}

// Queue is the durable local buffer. All slot access is read-modify-write of
// the whole list under one mutex; there is deliberately no partial update.
type Queue struct {
	mu    sync.Mutex
	store kv.Store
}

func NewQueue(store kv.Store) *Queue {
	return &Queue{store: store}
}

// Enqueue durably appends the sale and returns its locally generated id.
func (q *Queue) Enqueue(ctx context.Context, input domain.TransactionInput, items []domain.CartItem) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	queued := domain.QueuedTransaction{
		ID:       xid.New("offline"),
		Input:    input,
		Items:    items,
		QueuedAt: time.Now().UTC(),
	}

	entries, err := q.loadLocked(ctx)
	if err != nil {
		return "", err
	}
	entries = append(entries, queued)
	if err := q.saveLocked(ctx, entries); err != nil {
		return "", err
	}
	return queued.ID, nil
}

func (q *Queue) List(ctx context.Context) ([]domain.QueuedTransaction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.loadLocked(ctx)
}

func (q *Queue) Count(ctx context.Context) (int, error) {
	entries, err := q.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Drain submits every queued entry in order. Each entry succeeds or fails
// independently: successes are removed, failures are retained unchanged in
// their original relative order for the next attempt.
func (q *Queue) Drain(ctx context.Context, submitter Submitter) (domain.SyncResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.loadLocked(ctx)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if len(entries) == 0 {
		return domain.SyncResult{}, nil
	}

	result := domain.SyncResult{}
	remaining := make([]domain.QueuedTransaction, 0, len(entries))
	for _, queued := range entries {
		if err := submitter.SubmitQueued(ctx, queued); err != nil {
			log.Printf("[offline] WARN: failed to sync transaction %s: %v", queued.ID, err)
			remaining = append(remaining, queued)
			result.Failed++
			continue
		}
		result.Synced++
	}

	if err := q.saveLocked(ctx, remaining); err != nil {
		return result, err
	}
	return result, nil
}

func (q *Queue) loadLocked(ctx context.Context) ([]domain.QueuedTransaction, error) {
	raw, err := q.store.Get(ctx, queueSlotKey)
	if errors.Is(err, kv.ErrNoKey) {
		return []domain.QueuedTransaction{}, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []domain.QueuedTransaction
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("corrupt offline-queue slot: %w", err)
	}
	return entries, nil
}

func (q *Queue) saveLocked(ctx context.Context, entries []domain.QueuedTransaction) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return q.store.Set(ctx, queueSlotKey, payload)
}
