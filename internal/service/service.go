package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"tokotunai/backend/internal/cart"
	"tokotunai/backend/internal/domain"
	"tokotunai/backend/internal/offline"
	"tokotunai/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo           store.Repository
	carts          *cart.Manager
	queue          *offline.Queue
	conn           offline.Connectivity
	salesChartDays int
}

func New(repo store.Repository, carts *cart.Manager, queue *offline.Queue, conn offline.Connectivity, salesChartDays int) *Service {
	if salesChartDays < 1 {
		salesChartDays = 7
	}
	return &Service{
		repo:           repo,
		carts:          carts,
		queue:          queue,
		conn:           conn,
		salesChartDays: salesChartDays,
	}
}

// ListProducts returns the live catalog without soft-deleted rows.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

// LowStockCount reports how many live products are at or under the threshold,
// for the dashboard warning badge.
func (s *Service) LowStockCount(ctx context.Context, threshold int) (int, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, product := range products {
		if product.StockQuantity <= threshold {
			count++
		}
	}
	return count, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.Category == "" || req.Price < 1 || req.StockQuantity < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:          req.Name,
		Price:         req.Price,
		Category:      req.Category,
		StockQuantity: req.StockQuantity,
		DailyCapacity: req.DailyCapacity,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		return domain.Product{}, err
	}
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Category = category
	}
	if req.Price != nil {
		if *req.Price < 1 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Price = *req.Price
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.StockQuantity = *req.StockQuantity
	}
	if req.DailyCapacity != nil {
		updated.DailyCapacity = *req.DailyCapacity
	}
	if req.ImageURL != nil {
		updated.ImageURL = *req.ImageURL
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	return s.repo.SoftDeleteProduct(ctx, id)
}

func (s *Service) cartFor(ctx context.Context) (*cart.Cart, domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, domain.Actor{}, fmt.Errorf("authenticated user required")
	}
	return s.carts.Cart(actor.UserID), actor, nil
}

func (s *Service) CartView(ctx context.Context) (domain.CartView, error) {
	c, _, err := s.cartFor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	return c.View(), nil
}

// AddToCart re-reads the product so the cart always bounds quantity against
// current stock, not a stale snapshot.
func (s *Service) AddToCart(ctx context.Context, productID string) (domain.CartView, error) {
	c, _, err := s.cartFor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}

	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return domain.CartView{}, err
	}
	if err := c.AddItem(*product); err != nil {
		return domain.CartView{}, err
	}
	return c.View(), nil
}

func (s *Service) UpdateCartQuantity(ctx context.Context, productID string, delta int) (domain.CartView, error) {
	c, _, err := s.cartFor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	if err := c.UpdateQuantity(productID, delta); err != nil {
		return domain.CartView{}, err
	}
	return c.View(), nil
}

func (s *Service) RemoveFromCart(ctx context.Context, productID string) (domain.CartView, error) {
	c, _, err := s.cartFor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	c.RemoveItem(productID)
	return c.View(), nil
}

func (s *Service) ClearCart(ctx context.Context) error {
	c, _, err := s.cartFor(ctx)
	if err != nil {
		return err
	}
	c.Clear()
	return nil
}

func (s *Service) ParkCart(ctx context.Context) (string, error) {
	c, _, err := s.cartFor(ctx)
	if err != nil {
		return "", err
	}
	return c.Park(ctx)
}

func (s *Service) ListParkedOrders(ctx context.Context) ([]domain.ParkedOrder, error) {
	c, _, err := s.cartFor(ctx)
	if err != nil {
		return nil, err
	}
	return c.ListParked(ctx)
}

func (s *Service) ResumeParkedOrder(ctx context.Context, parkID string) (domain.CartView, bool, error) {
	c, _, err := s.cartFor(ctx)
	if err != nil {
		return domain.CartView{}, false, err
	}
	overwrote, err := c.Resume(ctx, parkID)
	if err != nil {
		return domain.CartView{}, false, err
	}
	return c.View(), overwrote, nil
}

func (s *Service) DeleteParkedOrder(ctx context.Context, parkID string) error {
	c, _, err := s.cartFor(ctx)
	if err != nil {
		return err
	}
	return c.DeleteParked(ctx, parkID)
}

// Checkout freezes the current cart into a transaction. CASH requires enough
// received money; QRIS is exact-amount. When the remote store is unreachable
// the sale lands in the durable offline queue instead of failing.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	c, actor, err := s.cartFor(ctx)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	items := c.Items()
	if len(items) == 0 {
		return domain.CheckoutResponse{}, cart.ErrEmptyCart
	}

	var total int64
	for _, item := range items {
		total += item.Price * int64(item.Quantity)
	}

	var received, change int64
	switch req.PaymentMethod {
	case domain.PaymentCash:
		if req.CashReceived < total {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: insufficient cash received", store.ErrInvalidInput)
		}
		received = req.CashReceived
		change = received - total
	case domain.PaymentQRIS:
		received = total
		change = 0
	default:
		return domain.CheckoutResponse{}, fmt.Errorf("%w: unknown payment method %q", store.ErrInvalidInput, req.PaymentMethod)
	}

	now := time.Now().UTC()
	input := domain.TransactionInput{
		UserID:        actor.UserID,
		Username:      actor.Username,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		Notes:         strings.TrimSpace(req.Notes),
		TotalAmount:   total,
		PaymentMethod: req.PaymentMethod,
		CashReceived:  received,
		ChangeAmount:  change,
	}

	if s.conn.Online() {
		if shift, err := s.repo.GetOpenShift(ctx, actor.UserID); err == nil {
			input.ShiftID = shift.ID
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[service] WARN: failed to look up open shift for %s: %v", actor.Username, err)
		}
	}

	resp := domain.CheckoutResponse{
		TotalAmount:   total,
		PaymentMethod: req.PaymentMethod,
		CashReceived:  received,
		ChangeAmount:  change,
		Items:         items,
		CreatedAt:     now.Format(time.RFC3339),
	}

	if !s.conn.Online() {
		queueID, err := s.queue.Enqueue(ctx, input, items)
		if err != nil {
			return domain.CheckoutResponse{}, err
		}
		c.Clear()
		resp.QueueID = queueID
		resp.Queued = true
		return resp, nil
	}

	created, err := s.repo.CreateTransaction(ctx, transactionFromInput(input, items, now))
	if err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			return domain.CheckoutResponse{}, err
		}
		// Remote write failed mid-flight: the sale is not lost, it waits in
		// the offline queue for the next drain.
		log.Printf("[service] WARN: remote transaction insert failed, queueing locally: %v", err)
		queueID, qerr := s.queue.Enqueue(ctx, input, items)
		if qerr != nil {
			return domain.CheckoutResponse{}, qerr
		}
		c.Clear()
		resp.QueueID = queueID
		resp.Queued = true
		return resp, nil
	}

	resp.TransactionID = created.ID
	resp.FailedStock = s.decrementStockForItems(ctx, items)
	c.Clear()
	return resp, nil
}

// decrementStockForItems is best effort per line: a failed decrement is
// recorded and reported, never rolled back into the completed transaction.
func (s *Service) decrementStockForItems(ctx context.Context, items []domain.CartItem) []string {
	var failed []string
	for _, item := range items {
		if err := s.repo.DecrementStock(ctx, item.ProductID, item.Quantity); err == nil {
			continue
		} else if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidInput) {
			log.Printf("[service] WARN: stock decrement rejected for %s: %v", item.ProductID, err)
			failed = append(failed, item.ProductID)
			continue
		}

		// Atomic decrement unavailable: manual read-then-write fallback.
		product, gerr := s.repo.GetProductByID(ctx, item.ProductID)
		if gerr != nil {
			log.Printf("[service] WARN: stock decrement failed for %s: %v", item.ProductID, gerr)
			failed = append(failed, item.ProductID)
			continue
		}
		next := product.StockQuantity - item.Quantity
		if next < 0 {
			next = 0
		}
		if serr := s.repo.SetStockQuantity(ctx, item.ProductID, next); serr != nil {
			log.Printf("[service] WARN: stock decrement fallback failed for %s: %v", item.ProductID, serr)
			failed = append(failed, item.ProductID)
		}
	}
	return failed
}

func transactionFromInput(input domain.TransactionInput, items []domain.CartItem, at time.Time) domain.Transaction {
	return domain.Transaction{
		UserID:        input.UserID,
		Username:      input.Username,
		ShiftID:       input.ShiftID,
		CustomerName:  input.CustomerName,
		Notes:         input.Notes,
		TotalAmount:   input.TotalAmount,
		PaymentMethod: input.PaymentMethod,
		CashReceived:  input.CashReceived,
		ChangeAmount:  input.ChangeAmount,
		Items:         items,
		Status:        domain.TxStatusCompleted,
		CreatedAt:     at,
	}
}

// SubmitQueued replays one offline sale against the remote store. The shift id
// is resolved at sync time when the original checkout could not reach the
// backend to look it up.
func (s *Service) SubmitQueued(ctx context.Context, queued domain.QueuedTransaction) error {
	input := queued.Input
	if input.ShiftID == "" {
		if shift, err := s.repo.GetOpenShift(ctx, input.UserID); err == nil {
			input.ShiftID = shift.ID
		}
	}

	created, err := s.repo.CreateTransaction(ctx, transactionFromInput(input, queued.Items, queued.QueuedAt))
	if err != nil {
		return err
	}

	if failed := s.decrementStockForItems(ctx, queued.Items); len(failed) > 0 {
		log.Printf("[service] WARN: synced transaction %s with %d stock decrement failures", created.ID, len(failed))
	}
	return nil
}

// SyncOfflineQueue drains the queue through SubmitQueued. Failed entries stay
// queued in their original order.
func (s *Service) SyncOfflineQueue(ctx context.Context) (domain.SyncResult, error) {
	return s.queue.Drain(ctx, s)
}

func (s *Service) PendingOfflineCount(ctx context.Context) (int, error) {
	return s.queue.Count(ctx)
}

func (s *Service) ListOfflineQueue(ctx context.Context) ([]domain.QueuedTransaction, error) {
	return s.queue.List(ctx)
}

func (s *Service) Online() bool {
	return s.conn.Online()
}

// VoidTransaction marks a completed sale as refunded. Stock is intentionally
// not restored; sold goods coming back is a manual inventory decision.
func (s *Service) VoidTransaction(ctx context.Context, req domain.VoidRequest) (domain.VoidResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.VoidResponse{}, fmt.Errorf("authenticated user required")
	}

	req.TransactionID = strings.TrimSpace(req.TransactionID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.TransactionID == "" || req.Reason == "" {
		return domain.VoidResponse{}, fmt.Errorf("%w: transaction id and reason are required", store.ErrInvalidInput)
	}

	now := time.Now().UTC()
	voided, err := s.repo.VoidTransaction(ctx, req.TransactionID, actor.Username, req.Reason, now)
	if err != nil {
		return domain.VoidResponse{}, err
	}

	return domain.VoidResponse{
		TransactionID: voided.ID,
		Status:        voided.Status,
		VoidedBy:      voided.VoidedBy,
		VoidedAt:      now.Format(time.RFC3339),
	}, nil
}

func (s *Service) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	tx, err := s.repo.GetTransactionByID(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

func (s *Service) ListTransactions(ctx context.Context, from time.Time, to time.Time) ([]domain.Transaction, error) {
	return s.repo.ListTransactionsByRange(ctx, from, to)
}

func (s *Service) StartShift(ctx context.Context, req domain.ShiftStartRequest) (domain.Shift, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Shift{}, fmt.Errorf("authenticated user required")
	}
	if req.StartCash < 0 {
		return domain.Shift{}, fmt.Errorf("%w: start cash cannot be negative", store.ErrInvalidInput)
	}

	created, err := s.repo.CreateShift(ctx, domain.Shift{
		UserID:    actor.UserID,
		StartTime: time.Now().UTC(),
		StartCash: req.StartCash,
		Status:    domain.ShiftStatusOpen,
	})
	if err != nil {
		return domain.Shift{}, err
	}
	return *created, nil
}

func (s *Service) CurrentShift(ctx context.Context) (domain.Shift, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Shift{}, fmt.Errorf("authenticated user required")
	}
	shift, err := s.repo.GetOpenShift(ctx, actor.UserID)
	if err != nil {
		return domain.Shift{}, err
	}
	return *shift, nil
}

func (s *Service) LastClosedShift(ctx context.Context) (domain.Shift, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Shift{}, fmt.Errorf("authenticated user required")
	}
	shift, err := s.repo.GetLastClosedShift(ctx, actor.UserID)
	if err != nil {
		return domain.Shift{}, err
	}
	return *shift, nil
}

// shiftCashTotals folds everything that moved cash during the shift: CASH
// sales that were not voided, plus petty cash in both directions.
func (s *Service) shiftCashTotals(ctx context.Context, shiftID string) (cashSales, pettyIn, pettyOut int64, err error) {
	transactions, err := s.repo.ListTransactionsByShift(ctx, shiftID)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, tx := range transactions {
		if tx.Status == domain.TxStatusVoided {
			continue
		}
		if tx.PaymentMethod == domain.PaymentCash {
			cashSales += tx.TotalAmount
		}
	}

	entries, err := s.repo.ListPettyCashByShift(ctx, shiftID)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, entry := range entries {
		switch entry.Type {
		case domain.PettyCashIn:
			pettyIn += entry.Amount
		case domain.PettyCashOut:
			pettyOut += entry.Amount
		}
	}
	return cashSales, pettyIn, pettyOut, nil
}

// EndShift reconciles the drawer and closes the shift. The counted amount is
// compared with expected cash; any variance beyond the threshold needs a
// written explanation before the close is accepted.
func (s *Service) EndShift(ctx context.Context, req domain.ShiftEndRequest) (domain.Shift, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Shift{}, fmt.Errorf("authenticated user required")
	}
	if req.EndCashActual < 0 {
		return domain.Shift{}, fmt.Errorf("%w: counted cash cannot be negative", store.ErrInvalidInput)
	}

	parked, err := s.carts.Cart(actor.UserID).ParkedCount(ctx)
	if err != nil {
		return domain.Shift{}, err
	}
	if parked > 0 {
		return domain.Shift{}, fmt.Errorf("%w: %d parked orders must be resumed or deleted first", store.ErrConflict, parked)
	}

	var shift *domain.Shift
	if req.ShiftID != "" {
		shift, err = s.repo.GetShiftByID(ctx, req.ShiftID)
	} else {
		shift, err = s.repo.GetOpenShift(ctx, actor.UserID)
	}
	if err != nil {
		return domain.Shift{}, err
	}
	if shift.Status != domain.ShiftStatusOpen {
		return domain.Shift{}, fmt.Errorf("%w: shift %s is already closed", store.ErrConflict, shift.ID)
	}
	if shift.UserID != actor.UserID {
		return domain.Shift{}, fmt.Errorf("%w: shift belongs to another cashier", store.ErrConflict)
	}

	cashSales, pettyIn, pettyOut, err := s.shiftCashTotals(ctx, shift.ID)
	if err != nil {
		return domain.Shift{}, err
	}

	expected := shift.StartCash + cashSales + pettyIn - pettyOut
	variance := req.EndCashActual - expected

	note := strings.TrimSpace(req.Note)
	if abs64(variance) > domain.VarianceNoteThreshold && note == "" {
		return domain.Shift{}, fmt.Errorf("%w: variance of %d requires a note", store.ErrInvalidInput, variance)
	}

	now := time.Now().UTC()
	closing := *shift
	closing.EndTime = &now
	closing.EndCashSystem = expected
	closing.EndCashActual = req.EndCashActual
	closing.Variance = variance
	closing.Note = note

	closed, err := s.repo.CloseShift(ctx, closing)
	if err != nil {
		return domain.Shift{}, err
	}
	return *closed, nil
}

// Logout refuses to end the session while a shift is still open, so every
// shift gets reconciled.
func (s *Service) Logout(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return fmt.Errorf("authenticated user required")
	}
	_, err := s.repo.GetOpenShift(ctx, actor.UserID)
	if err == nil {
		return fmt.Errorf("%w: close the open shift before logging out", store.ErrConflict)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) AddPettyCash(ctx context.Context, req domain.PettyCashRequest) (domain.PettyCash, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.PettyCash{}, fmt.Errorf("authenticated user required")
	}
	if req.Amount <= 0 {
		return domain.PettyCash{}, fmt.Errorf("%w: amount must be positive", store.ErrInvalidInput)
	}
	if req.Type != domain.PettyCashIn && req.Type != domain.PettyCashOut {
		return domain.PettyCash{}, fmt.Errorf("%w: unknown petty cash type %q", store.ErrInvalidInput, req.Type)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return domain.PettyCash{}, fmt.Errorf("%w: reason is required", store.ErrInvalidInput)
	}

	shiftID := req.ShiftID
	if shiftID == "" {
		shift, err := s.repo.GetOpenShift(ctx, actor.UserID)
		if err != nil {
			return domain.PettyCash{}, err
		}
		shiftID = shift.ID
	} else {
		shift, err := s.repo.GetShiftByID(ctx, shiftID)
		if err != nil {
			return domain.PettyCash{}, err
		}
		if shift.Status != domain.ShiftStatusOpen {
			return domain.PettyCash{}, fmt.Errorf("%w: shift %s is closed", store.ErrConflict, shiftID)
		}
	}

	created, err := s.repo.CreatePettyCash(ctx, domain.PettyCash{
		ShiftID:   shiftID,
		UserID:    actor.UserID,
		Amount:    req.Amount,
		Type:      req.Type,
		Reason:    strings.TrimSpace(req.Reason),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.PettyCash{}, err
	}
	return *created, nil
}

func (s *Service) ListPettyCash(ctx context.Context, shiftID string) ([]domain.PettyCash, error) {
	if shiftID == "" {
		return nil, fmt.Errorf("%w: shift id is required", store.ErrInvalidInput)
	}
	return s.repo.ListPettyCashByShift(ctx, shiftID)
}

// CashDrawer is the live drawer status for the caller's open shift.
func (s *Service) CashDrawer(ctx context.Context) (domain.CashDrawer, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.CashDrawer{}, fmt.Errorf("authenticated user required")
	}
	shift, err := s.repo.GetOpenShift(ctx, actor.UserID)
	if err != nil {
		return domain.CashDrawer{}, err
	}

	cashSales, pettyIn, pettyOut, err := s.shiftCashTotals(ctx, shift.ID)
	if err != nil {
		return domain.CashDrawer{}, err
	}

	return domain.CashDrawer{
		ShiftID:      shift.ID,
		StartCash:    shift.StartCash,
		CashSales:    cashSales,
		PettyIn:      pettyIn,
		PettyOut:     pettyOut,
		ExpectedCash: shift.StartCash + cashSales + pettyIn - pettyOut,
	}, nil
}

func foldStats(transactions []domain.Transaction) domain.SalesStats {
	var stats domain.SalesStats
	for _, tx := range transactions {
		if tx.Status == domain.TxStatusVoided {
			continue
		}
		stats.TotalSales += tx.TotalAmount
		stats.Count++
		switch tx.PaymentMethod {
		case domain.PaymentCash:
			stats.CashTotal += tx.TotalAmount
		case domain.PaymentQRIS:
			stats.QRISTotal += tx.TotalAmount
		}
	}
	return stats
}

func (s *Service) RangeStats(ctx context.Context, from time.Time, to time.Time) (domain.SalesStats, error) {
	transactions, err := s.repo.ListTransactionsByRange(ctx, from, to)
	if err != nil {
		return domain.SalesStats{}, err
	}
	return foldStats(transactions), nil
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Nanosecond)
}

func (s *Service) TodayStats(ctx context.Context) (domain.SalesStats, error) {
	from, to := dayBounds(time.Now().UTC())
	return s.RangeStats(ctx, from, to)
}

func (s *Service) ShiftStats(ctx context.Context, shiftID string) (domain.SalesStats, error) {
	if shiftID == "" {
		return domain.SalesStats{}, fmt.Errorf("%w: shift id is required", store.ErrInvalidInput)
	}
	transactions, err := s.repo.ListTransactionsByShift(ctx, shiftID)
	if err != nil {
		return domain.SalesStats{}, err
	}
	return foldStats(transactions), nil
}

// SalesChart returns one zero-filled bucket per day, oldest first.
func (s *Service) SalesChart(ctx context.Context) ([]domain.SalesChartPoint, error) {
	days := s.salesChartDays
	now := time.Now().UTC()
	from, _ := dayBounds(now.AddDate(0, 0, -(days - 1)))
	_, to := dayBounds(now)

	transactions, err := s.repo.ListTransactionsByRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int64, days)
	for _, tx := range transactions {
		if tx.Status == domain.TxStatusVoided {
			continue
		}
		totals[tx.CreatedAt.UTC().Format("2006-01-02")] += tx.TotalAmount
	}

	points := make([]domain.SalesChartPoint, 0, days)
	for i := 0; i < days; i++ {
		date := from.AddDate(0, 0, i).Format("2006-01-02")
		points = append(points, domain.SalesChartPoint{Date: date, Value: totals[date]})
	}
	return points, nil
}

func (s *Service) DailyComparison(ctx context.Context) (domain.DailyComparison, error) {
	now := time.Now().UTC()
	todayFrom, todayTo := dayBounds(now)
	yesterdayFrom, yesterdayTo := dayBounds(now.AddDate(0, 0, -1))

	today, err := s.RangeStats(ctx, todayFrom, todayTo)
	if err != nil {
		return domain.DailyComparison{}, err
	}
	yesterday, err := s.RangeStats(ctx, yesterdayFrom, yesterdayTo)
	if err != nil {
		return domain.DailyComparison{}, err
	}

	return domain.DailyComparison{
		TodaySales:     today.TotalSales,
		YesterdaySales: yesterday.TotalSales,
	}, nil
}

// BuildReceipt renders a 32-column ESC/POS ticket plus a plain-text preview.
func (s *Service) BuildReceipt(ctx context.Context, transactionID string) (domain.ReceiptResponse, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return domain.ReceiptResponse{}, fmt.Errorf("%w: transaction id is required", store.ErrInvalidInput)
	}
	tx, err := s.repo.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}

	lines := []string{
		"TokoTunai POS",
		"========================",
		"TX: " + tx.ID,
		"Kasir: " + tx.Username,
		"Date: " + tx.CreatedAt.Format("2006-01-02 15:04:05"),
		"------------------------",
	}
	for _, item := range tx.Items {
		lines = append(lines, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
		lines = append(lines, fmt.Sprintf("  %d", item.Price*int64(item.Quantity)))
	}
	lines = append(lines,
		"------------------------",
		fmt.Sprintf("Total    : %d", tx.TotalAmount),
		fmt.Sprintf("Bayar    : %d", tx.CashReceived),
		fmt.Sprintf("Kembali  : %d", tx.ChangeAmount),
		"========================",
		"Terima kasih",
		"",
	)
	if tx.Status == domain.TxStatusVoided {
		lines = append(lines, "** DIBATALKAN **", "")
	}

	escpos := []byte{0x1b, 0x40}
	for _, line := range lines {
		escpos = append(escpos, []byte(line)...)
		escpos = append(escpos, '\n')
	}
	escpos = append(escpos, []byte{0x1d, 0x56, 0x41, 0x10}...)

	return domain.ReceiptResponse{
		TransactionID: tx.ID,
		EscposBase64:  base64.StdEncoding.EncodeToString(escpos),
		PreviewText:   strings.Join(lines, "\n"),
	}, nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
