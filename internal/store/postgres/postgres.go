package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tokotunai/backend/internal/domain"
	"tokotunai/backend/internal/store"
	"tokotunai/backend/internal/xid"
)

// Store talks to the hosted PostgreSQL backend. The one-open-shift-per-user
// invariant relies on a partial unique index:
//
//	CREATE UNIQUE INDEX shifts_one_open_per_user
//	ON shifts (user_id) WHERE status = 'OPEN';
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping is used as the connectivity probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, category, stock_quantity, daily_capacity, image_url, deleted, created_at, updated_at
		FROM products
		WHERE deleted = false
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, price, category, stock_quantity, daily_capacity, image_url, deleted, created_at, updated_at
		FROM products
		WHERE id = $1 AND deleted = false
	`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Price < 1 || product.StockQuantity < 0 {
		return nil, store.ErrInvalidInput
	}

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.Deleted = false

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, category, stock_quantity, daily_capacity, image_url, deleted, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, product.ID, product.Name, product.Price, product.Category, product.StockQuantity,
		product.DailyCapacity, product.ImageURL, product.Deleted, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Price < 1 || product.StockQuantity < 0 {
		return nil, store.ErrInvalidInput
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, price = $3, category = $4, stock_quantity = $5, daily_capacity = $6, image_url = $7, updated_at = $8
		WHERE id = $1 AND deleted = false
	`, product.ID, product.Name, product.Price, product.Category, product.StockQuantity,
		product.DailyCapacity, product.ImageURL, now)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	product.UpdatedAt = &now
	updated := product
	return &updated, nil
}

func (s *Store) SoftDeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET deleted = true, updated_at = now()
		WHERE id = $1 AND deleted = false
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DecrementStock is a single-statement decrement clamped at zero, the SQL
// equivalent of the hosted store's decrement_stock procedure.
func (s *Store) DecrementStock(ctx context.Context, productID string, qty int) error {
	if qty < 1 {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = GREATEST(0, stock_quantity - $2), updated_at = now()
		WHERE id = $1
	`, productID, qty)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetStockQuantity(ctx context.Context, productID string, qty int) error {
	if qty < 0 {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET stock_quantity = $2, updated_at = now()
		WHERE id = $1
	`, productID, qty)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if tx.UserID == "" || len(tx.Items) == 0 || tx.TotalAmount < 1 {
		return nil, store.ErrInvalidInput
	}

	if tx.ID == "" {
		tx.ID = xid.New("tx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if tx.Status == "" {
		tx.Status = domain.TxStatusCompleted
	}

	itemsJSON, err := json.Marshal(tx.Items)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, user_id, username, shift_id, customer_name, notes,
			total_amount, payment_method, cash_received, change_amount,
			items, status, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, tx.ID, tx.UserID, tx.Username, nullIfEmpty(tx.ShiftID), nullIfEmpty(tx.CustomerName), nullIfEmpty(tx.Notes),
		tx.TotalAmount, tx.PaymentMethod, tx.CashReceived, tx.ChangeAmount,
		itemsJSON, tx.Status, tx.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := tx
	return &created, nil
}

func (s *Store) GetTransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, username, shift_id, customer_name, notes,
			total_amount, payment_method, cash_received, change_amount,
			items, status, voided_by, void_reason, voided_at, created_at
		FROM transactions
		WHERE id = $1
	`, id)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return tx, nil
}

func (s *Store) VoidTransaction(ctx context.Context, id string, voidedBy string, reason string, at time.Time) (*domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE transactions
		SET status = $2, voided_by = $3, void_reason = $4, voided_at = $5
		WHERE id = $1 AND status = $6
		RETURNING id, user_id, username, shift_id, customer_name, notes,
			total_amount, payment_method, cash_received, change_amount,
			items, status, voided_by, void_reason, voided_at, created_at
	`, id, domain.TxStatusVoided, voidedBy, reason, at, domain.TxStatusCompleted)
	tx, err := scanTransaction(row)
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// No row updated: either the transaction does not exist or it is already
	// voided. Distinguish so callers can report a state conflict.
	var status string
	probeErr := s.db.QueryRowContext(ctx, `SELECT status FROM transactions WHERE id = $1`, id).Scan(&status)
	if errors.Is(probeErr, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if probeErr != nil {
		return nil, probeErr
	}
	return nil, store.ErrConflict
}

func (s *Store) ListTransactionsByRange(ctx context.Context, from time.Time, to time.Time) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, username, shift_id, customer_name, notes,
			total_amount, payment_method, cash_received, change_amount,
			items, status, voided_by, void_reason, voided_at, created_at
		FROM transactions
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (s *Store) ListTransactionsByShift(ctx context.Context, shiftID string) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, username, shift_id, customer_name, notes,
			total_amount, payment_method, cash_received, change_amount,
			items, status, voided_by, void_reason, voided_at, created_at
		FROM transactions
		WHERE shift_id = $1
		ORDER BY created_at ASC
	`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (s *Store) CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	if strings.TrimSpace(shift.UserID) == "" || shift.StartCash < 0 {
		return nil, store.ErrInvalidInput
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.StartTime.IsZero() {
		shift.StartTime = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen
	shift.EndTime = nil

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shifts (
			id, user_id, start_time, end_time, start_cash,
			end_cash_system, end_cash_actual, variance, status, note
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, shift.ID, shift.UserID, shift.StartTime, nullTime(shift.EndTime), shift.StartCash,
		shift.EndCashSystem, shift.EndCashActual, shift.Variance, shift.Status, shift.Note)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	saved := shift
	return &saved, nil
}

func (s *Store) GetOpenShift(ctx context.Context, userID string) (*domain.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, start_time, end_time, start_cash,
			end_cash_system, end_cash_actual, variance, status, note
		FROM shifts
		WHERE user_id = $1 AND status = $2
		LIMIT 1
	`, userID, domain.ShiftStatusOpen)
	return scanShift(row)
}

func (s *Store) GetShiftByID(ctx context.Context, id string) (*domain.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, start_time, end_time, start_cash,
			end_cash_system, end_cash_actual, variance, status, note
		FROM shifts
		WHERE id = $1
	`, id)
	return scanShift(row)
}

func (s *Store) CloseShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE shifts
		SET status = $2, end_time = $3, end_cash_system = $4, end_cash_actual = $5, variance = $6, note = $7
		WHERE id = $1 AND status = $8
		RETURNING id, user_id, start_time, end_time, start_cash,
			end_cash_system, end_cash_actual, variance, status, note
	`, shift.ID, domain.ShiftStatusClosed, nullTime(shift.EndTime), shift.EndCashSystem,
		shift.EndCashActual, shift.Variance, shift.Note, domain.ShiftStatusOpen)
	closed, err := scanShift(row)
	if err == nil {
		return closed, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	var status string
	probeErr := s.db.QueryRowContext(ctx, `SELECT status FROM shifts WHERE id = $1`, shift.ID).Scan(&status)
	if errors.Is(probeErr, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if probeErr != nil {
		return nil, probeErr
	}
	return nil, store.ErrConflict
}

func (s *Store) GetLastClosedShift(ctx context.Context, userID string) (*domain.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, start_time, end_time, start_cash,
			end_cash_system, end_cash_actual, variance, status, note
		FROM shifts
		WHERE user_id = $1 AND status = $2
		ORDER BY end_time DESC
		LIMIT 1
	`, userID, domain.ShiftStatusClosed)
	return scanShift(row)
}

func (s *Store) CreatePettyCash(ctx context.Context, entry domain.PettyCash) (*domain.PettyCash, error) {
	if entry.ShiftID == "" || entry.UserID == "" || entry.Amount <= 0 || strings.TrimSpace(entry.Reason) == "" {
		return nil, store.ErrInvalidInput
	}
	if entry.Type != domain.PettyCashIn && entry.Type != domain.PettyCashOut {
		return nil, store.ErrInvalidInput
	}

	if entry.ID == "" {
		entry.ID = xid.New("petty")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO petty_cash (id, shift_id, user_id, amount, type, reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, entry.ID, entry.ShiftID, entry.UserID, entry.Amount, entry.Type, entry.Reason, entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := entry
	return &created, nil
}

func (s *Store) ListPettyCashByShift(ctx context.Context, shiftID string) ([]domain.PettyCash, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shift_id, user_id, amount, type, reason, created_at
		FROM petty_cash
		WHERE shift_id = $1
		ORDER BY created_at ASC
	`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.PettyCash, 0, 16)
	for rows.Next() {
		var entry domain.PettyCash
		if err := rows.Scan(&entry.ID, &entry.ShiftID, &entry.UserID, &entry.Amount, &entry.Type, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.ID == "" {
		user.ID = xid.New("user")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, user.ID, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	if username == "" || password == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var product domain.Product
	var updatedAt sql.NullTime
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Category,
		&product.StockQuantity,
		&product.DailyCapacity,
		&product.ImageURL,
		&product.Deleted,
		&product.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Product{}, err
	}
	product.CreatedAt = product.CreatedAt.UTC()
	if updatedAt.Valid {
		at := updatedAt.Time.UTC()
		product.UpdatedAt = &at
	}
	return product, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var shiftID, customerName, notes, voidedBy, voidReason sql.NullString
	var voidedAt sql.NullTime
	var itemsJSON []byte

	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Username,
		&shiftID,
		&customerName,
		&notes,
		&tx.TotalAmount,
		&tx.PaymentMethod,
		&tx.CashReceived,
		&tx.ChangeAmount,
		&itemsJSON,
		&tx.Status,
		&voidedBy,
		&voidReason,
		&voidedAt,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.ShiftID = shiftID.String
	tx.CustomerName = customerName.String
	tx.Notes = notes.String
	tx.VoidedBy = voidedBy.String
	tx.VoidReason = voidReason.String
	tx.CreatedAt = tx.CreatedAt.UTC()
	if voidedAt.Valid {
		at := voidedAt.Time.UTC()
		tx.VoidedAt = &at
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &tx.Items); err != nil {
			return nil, err
		}
	}
	return &tx, nil
}

func collectTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	result := make([]domain.Transaction, 0, 64)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanShift(row rowScanner) (*domain.Shift, error) {
	var shift domain.Shift
	var endTime sql.NullTime
	var note sql.NullString
	err := row.Scan(
		&shift.ID,
		&shift.UserID,
		&shift.StartTime,
		&endTime,
		&shift.StartCash,
		&shift.EndCashSystem,
		&shift.EndCashActual,
		&shift.Variance,
		&shift.Status,
		&note,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	shift.StartTime = shift.StartTime.UTC()
	shift.Note = note.String
	if endTime.Valid {
		at := endTime.Time.UTC()
		shift.EndTime = &at
	}
	return &shift, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
