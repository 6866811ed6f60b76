package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tokotunai/backend/internal/domain"
	"tokotunai/backend/internal/store"
	"tokotunai/backend/internal/xid"
)

type Store struct {
	mu               sync.RWMutex
	products         map[string]domain.Product
	transactionsByID map[string]*domain.Transaction
	shiftsByID       map[string]domain.Shift
	openShiftByUser  map[string]string
	pettyCash        []domain.PettyCash
	usersByUsername  map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; if
// unset, hardcoded dev defaults are used with a warning. Production runs
// use PostgreSQL (DATABASE_URL set) and never hit this path.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			ID:        xid.New("user"),
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	products := []domain.Product{
		{ID: "prod-nasi-goreng", Name: "Nasi Goreng Spesial", Price: 25000, Category: "food", StockQuantity: 40, DailyCapacity: 50},
		{ID: "prod-mie-ayam", Name: "Mie Ayam Bakso", Price: 18000, Category: "food", StockQuantity: 35, DailyCapacity: 40},
		{ID: "prod-ayam-geprek", Name: "Ayam Geprek", Price: 22000, Category: "food", StockQuantity: 30, DailyCapacity: 40},
		{ID: "prod-es-teh", Name: "Es Teh Manis", Price: 5000, Category: "drink", StockQuantity: 100, DailyCapacity: 120},
		{ID: "prod-es-jeruk", Name: "Es Jeruk", Price: 7000, Category: "drink", StockQuantity: 80, DailyCapacity: 100},
		{ID: "prod-kopi-susu", Name: "Kopi Susu Gula Aren", Price: 15000, Category: "drink", StockQuantity: 50, DailyCapacity: 60},
		{ID: "prod-kerupuk", Name: "Kerupuk Udang", Price: 3000, Category: "snack", StockQuantity: 60, DailyCapacity: 80},
		{ID: "prod-pisang-goreng", Name: "Pisang Goreng", Price: 10000, Category: "snack", StockQuantity: 25, DailyCapacity: 30},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		p.CreatedAt = now
		productMap[p.ID] = p
	}

	return &Store{
		products:         productMap,
		transactionsByID: make(map[string]*domain.Transaction),
		shiftsByID:       make(map[string]domain.Shift),
		openShiftByUser:  make(map[string]string),
		pettyCash:        make([]domain.PettyCash, 0, 64),
		usersByUsername:  seedUsers(),
	}
}

// New returns an empty store for tests that want full control of the data.
func New() *Store {
	s := NewSeeded()
	s.products = make(map[string]domain.Product)
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.Deleted {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists || product.Deleted {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Price < 1 || product.StockQuantity < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrConflict
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.Deleted = false

	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Price < 1 || product.StockQuantity < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[product.ID]
	if !exists || existing.Deleted {
		return nil, store.ErrNotFound
	}

	now := time.Now().UTC()
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = &now
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) SoftDeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists || product.Deleted {
		return store.ErrNotFound
	}
	product.Deleted = true
	s.products[id] = product
	return nil
}

func (s *Store) DecrementStock(_ context.Context, productID string, qty int) error {
	if qty < 1 {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[productID]
	if !exists {
		return store.ErrNotFound
	}
	product.StockQuantity -= qty
	if product.StockQuantity < 0 {
		product.StockQuantity = 0
	}
	s.products[productID] = product
	return nil
}

func (s *Store) SetStockQuantity(_ context.Context, productID string, qty int) error {
	if qty < 0 {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[productID]
	if !exists {
		return store.ErrNotFound
	}
	product.StockQuantity = qty
	s.products[productID] = product
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if tx.UserID == "" || len(tx.Items) == 0 || tx.TotalAmount < 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = xid.New("tx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if tx.Status == "" {
		tx.Status = domain.TxStatusCompleted
	}

	txCopy := cloneTransaction(&tx)
	s.transactionsByID[tx.ID] = txCopy
	return cloneTransaction(txCopy), nil
}

func (s *Store) GetTransactionByID(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactionsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneTransaction(tx), nil
}

func (s *Store) VoidTransaction(_ context.Context, id string, voidedBy string, reason string, at time.Time) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactionsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if tx.Status != domain.TxStatusCompleted {
		return nil, store.ErrConflict
	}

	tx.Status = domain.TxStatusVoided
	tx.VoidedBy = voidedBy
	tx.VoidReason = reason
	tx.VoidedAt = &at

	return cloneTransaction(tx), nil
}

func (s *Store) ListTransactionsByRange(_ context.Context, from time.Time, to time.Time) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, 64)
	for _, tx := range s.transactionsByID {
		if tx.CreatedAt.Before(from) || tx.CreatedAt.After(to) {
			continue
		}
		result = append(result, *cloneTransaction(tx))
	}

	slices.SortFunc(result, func(a, b domain.Transaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})

	return result, nil
}

func (s *Store) ListTransactionsByShift(_ context.Context, shiftID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, 32)
	for _, tx := range s.transactionsByID {
		if tx.ShiftID != shiftID {
			continue
		}
		result = append(result, *cloneTransaction(tx))
	}

	slices.SortFunc(result, func(a, b domain.Transaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})

	return result, nil
}

// CreateShift is the check-and-insert for the one-open-shift invariant: the
// openShiftByUser index is consulted and updated under the same lock.
func (s *Store) CreateShift(_ context.Context, shift domain.Shift) (*domain.Shift, error) {
	if strings.TrimSpace(shift.UserID) == "" || shift.StartCash < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.openShiftByUser[shift.UserID]; exists {
		return nil, store.ErrConflict
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.StartTime.IsZero() {
		shift.StartTime = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen
	shift.EndTime = nil

	s.shiftsByID[shift.ID] = shift
	s.openShiftByUser[shift.UserID] = shift.ID
	copyShift := shift
	return &copyShift, nil
}

func (s *Store) GetOpenShift(_ context.Context, userID string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shiftID, exists := s.openShiftByUser[userID]
	if !exists {
		return nil, store.ErrNotFound
	}
	shift, exists := s.shiftsByID[shiftID]
	if !exists || shift.Status != domain.ShiftStatusOpen {
		return nil, store.ErrNotFound
	}
	copyShift := shift
	return &copyShift, nil
}

func (s *Store) GetShiftByID(_ context.Context, id string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shift, exists := s.shiftsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyShift := shift
	return &copyShift, nil
}

func (s *Store) CloseShift(_ context.Context, shift domain.Shift) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.shiftsByID[shift.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if existing.Status != domain.ShiftStatusOpen {
		return nil, store.ErrConflict
	}

	existing.Status = domain.ShiftStatusClosed
	existing.EndTime = shift.EndTime
	existing.EndCashSystem = shift.EndCashSystem
	existing.EndCashActual = shift.EndCashActual
	existing.Variance = shift.Variance
	existing.Note = shift.Note

	s.shiftsByID[shift.ID] = existing
	delete(s.openShiftByUser, existing.UserID)
	copyShift := existing
	return &copyShift, nil
}

func (s *Store) GetLastClosedShift(_ context.Context, userID string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *domain.Shift
	for _, shift := range s.shiftsByID {
		if shift.UserID != userID || shift.Status != domain.ShiftStatusClosed || shift.EndTime == nil {
			continue
		}
		if last == nil || shift.EndTime.After(*last.EndTime) {
			copyShift := shift
			last = &copyShift
		}
	}
	if last == nil {
		return nil, store.ErrNotFound
	}
	return last, nil
}

func (s *Store) CreatePettyCash(_ context.Context, entry domain.PettyCash) (*domain.PettyCash, error) {
	if entry.ShiftID == "" || entry.UserID == "" || entry.Amount <= 0 || strings.TrimSpace(entry.Reason) == "" {
		return nil, store.ErrInvalidInput
	}
	if entry.Type != domain.PettyCashIn && entry.Type != domain.PettyCashOut {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("petty")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.pettyCash = append(s.pettyCash, entry)
	created := entry
	return &created, nil
}

func (s *Store) ListPettyCashByShift(_ context.Context, shiftID string) ([]domain.PettyCash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.PettyCash, 0, 16)
	for _, entry := range s.pettyCash {
		if entry.ShiftID == shiftID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrConflict
	}
	if user.ID == "" {
		user.ID = xid.New("user")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	if username == "" || password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneTransaction(tx *domain.Transaction) *domain.Transaction {
	clone := *tx
	clone.Items = make([]domain.CartItem, len(tx.Items))
	copy(clone.Items, tx.Items)
	if tx.VoidedAt != nil {
		at := *tx.VoidedAt
		clone.VoidedAt = &at
	}
	return &clone
}
