package store

import (
	"context"
	"errors"
	"time"

	"tokotunai/backend/internal/domain"
)

var (
	// ErrNotFound covers missing rows: unknown product, shift, transaction.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput covers bad user input rejected before any write.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict covers illegal state transitions: voiding a voided
	// transaction, closing a closed shift, opening a second shift.
	ErrConflict = errors.New("state conflict")
	// ErrUnavailable signals the remote store could not be reached; callers
	// on the transaction path fall back to the offline queue.
	ErrUnavailable = errors.New("remote store unavailable")
)

// Repository is the contract against the remote hosted store. Implementations
// are the postgres store in production and the in-memory store for dev/tests.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	SoftDeleteProduct(ctx context.Context, id string) error
	// DecrementStock is the atomic decrement procedure: stock is reduced by
	// qty in a single statement, clamped at zero. Returns ErrNotFound for an
	// unknown product id.
	DecrementStock(ctx context.Context, productID string, qty int) error
	SetStockQuantity(ctx context.Context, productID string, qty int) error

	CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*domain.Transaction, error)
	// VoidTransaction flips COMPLETED to VOIDED exactly once; a second call
	// returns ErrConflict and changes nothing.
	VoidTransaction(ctx context.Context, id string, voidedBy string, reason string, at time.Time) (*domain.Transaction, error)
	ListTransactionsByRange(ctx context.Context, from time.Time, to time.Time) ([]domain.Transaction, error)
	ListTransactionsByShift(ctx context.Context, shiftID string) ([]domain.Transaction, error)

	// CreateShift enforces the one-OPEN-shift-per-cashier invariant at the
	// data layer: a second open shift for the same user returns ErrConflict.
	CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error)
	GetOpenShift(ctx context.Context, userID string) (*domain.Shift, error)
	GetShiftByID(ctx context.Context, id string) (*domain.Shift, error)
	// CloseShift persists the one-shot OPEN to CLOSED transition; closing an
	// already CLOSED shift returns ErrConflict.
	CloseShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error)
	GetLastClosedShift(ctx context.Context, userID string) (*domain.Shift, error)

	CreatePettyCash(ctx context.Context, entry domain.PettyCash) (*domain.PettyCash, error)
	ListPettyCashByShift(ctx context.Context, shiftID string) ([]domain.PettyCash, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
