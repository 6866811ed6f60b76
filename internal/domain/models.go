package domain

import "time"

type Product struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Price         int64      `json:"price"`
	Category      string     `json:"category"`
	StockQuantity int        `json:"stock_quantity"`
	DailyCapacity int        `json:"daily_capacity"`
	ImageURL      string     `json:"image_url"`
	Deleted       bool       `json:"deleted"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

type ProductCreateRequest struct {
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	Category      string `json:"category"`
	StockQuantity int    `json:"stock_quantity"`
	DailyCapacity int    `json:"daily_capacity"`
	ImageURL      string `json:"image_url"`
}

type ProductUpdateRequest struct {
	Name          *string `json:"name,omitempty"`
	Price         *int64  `json:"price,omitempty"`
	Category      *string `json:"category,omitempty"`
	StockQuantity *int    `json:"stock_quantity,omitempty"`
	DailyCapacity *int    `json:"daily_capacity,omitempty"`
	ImageURL      *string `json:"image_url,omitempty"`
}

// CartItem is a point-in-time snapshot of a product plus the quantity in the
// cart. The snapshot is what gets frozen into transactions and parked orders;
// later catalog edits never rewrite it.
type CartItem struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	Category      string `json:"category"`
	StockQuantity int    `json:"stock_quantity"`
	ImageURL      string `json:"image_url"`
	Quantity      int    `json:"quantity"`
}

type ParkedOrder struct {
	ID       string     `json:"id"`
	Items    []CartItem `json:"items"`
	Total    int64      `json:"total"`
	ParkedAt time.Time  `json:"parked_at"`
}

type CartView struct {
	Items      []CartItem `json:"items"`
	Total      int64      `json:"total"`
	TotalItems int        `json:"total_items"`
}

type Shift struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	StartCash     int64      `json:"start_cash"`
	EndCashSystem int64      `json:"end_cash_system"`
	EndCashActual int64      `json:"end_cash_actual"`
	Variance      int64      `json:"variance"`
	Status        string     `json:"status"`
	Note          string     `json:"note,omitempty"`
}

type ShiftStartRequest struct {
	StartCash int64 `json:"start_cash"`
}

type ShiftEndRequest struct {
	ShiftID       string `json:"shift_id"`
	EndCashActual int64  `json:"end_cash_actual"`
	Note          string `json:"note"`
}

type ShiftResponse struct {
	Shift Shift `json:"shift"`
}

type PettyCash struct {
	ID        string    `json:"id"`
	ShiftID   string    `json:"shift_id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	Type      string    `json:"type"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type PettyCashRequest struct {
	ShiftID string `json:"shift_id"`
	Amount  int64  `json:"amount"`
	Type    string `json:"type"`
	Reason  string `json:"reason"`
}

type Transaction struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Username      string     `json:"username"`
	ShiftID       string     `json:"shift_id,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	TotalAmount   int64      `json:"total_amount"`
	PaymentMethod string     `json:"payment_method"`
	CashReceived  int64      `json:"cash_received"`
	ChangeAmount  int64      `json:"change_amount"`
	Items         []CartItem `json:"items"`
	Status        string     `json:"status"`
	VoidedBy      string     `json:"voided_by,omitempty"`
	VoidReason    string     `json:"void_reason,omitempty"`
	VoidedAt      *time.Time `json:"voided_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TransactionInput is what the checkout pipeline needs before the remote
// store has assigned a row. It is also the payload retained in the offline
// queue.
type TransactionInput struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	ShiftID       string `json:"shift_id,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	Notes         string `json:"notes,omitempty"`
	TotalAmount   int64  `json:"total_amount"`
	PaymentMethod string `json:"payment_method"`
	CashReceived  int64  `json:"cash_received"`
	ChangeAmount  int64  `json:"change_amount"`
}

type QueuedTransaction struct {
	ID       string           `json:"id"`
	Input    TransactionInput `json:"input"`
	Items    []CartItem       `json:"items"`
	QueuedAt time.Time        `json:"queued_at"`
}

type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method"`
	CashReceived  int64  `json:"cash_received"`
	CustomerName  string `json:"customer_name,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type CheckoutResponse struct {
	TransactionID string     `json:"transaction_id,omitempty"`
	QueueID       string     `json:"queue_id,omitempty"`
	Queued        bool       `json:"queued"`
	TotalAmount   int64      `json:"total_amount"`
	PaymentMethod string     `json:"payment_method"`
	CashReceived  int64      `json:"cash_received"`
	ChangeAmount  int64      `json:"change_amount"`
	Items         []CartItem `json:"items"`
	FailedStock   []string   `json:"failed_stock_product_ids,omitempty"`
	CreatedAt     string     `json:"created_at"`
}

type VoidRequest struct {
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

type VoidResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	VoidedBy      string `json:"voided_by"`
	VoidedAt      string `json:"voided_at"`
}

type SyncResult struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

type SalesStats struct {
	TotalSales int64 `json:"total_sales"`
	Count      int   `json:"count"`
	CashTotal  int64 `json:"cash_total"`
	QRISTotal  int64 `json:"qris_total"`
}

type SalesChartPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

type DailyComparison struct {
	TodaySales     int64 `json:"today_sales"`
	YesterdaySales int64 `json:"yesterday_sales"`
}

// CashDrawer is the live drawer view for an open shift: the float plus every
// cash movement the system knows about.
type CashDrawer struct {
	ShiftID      string `json:"shift_id"`
	StartCash    int64  `json:"start_cash"`
	CashSales    int64  `json:"cash_sales"`
	PettyIn      int64  `json:"petty_in"`
	PettyOut     int64  `json:"petty_out"`
	ExpectedCash int64  `json:"expected_cash"`
}

type ReceiptResponse struct {
	TransactionID string `json:"transaction_id"`
	EscposBase64  string `json:"escpos_base64"`
	PreviewText   string `json:"preview_text"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	UserID   string
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	ID        string
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	PaymentCash = "CASH"
	PaymentQRIS = "QRIS"
)

const (
	TxStatusCompleted = "COMPLETED"
	TxStatusVoided    = "VOIDED"
)

const (
	ShiftStatusOpen   = "OPEN"
	ShiftStatusClosed = "CLOSED"
)

const (
	PettyCashIn  = "CASH_IN"
	PettyCashOut = "CASH_OUT"
)

// VarianceNoteThreshold is the absolute end-of-shift variance (in rupiah)
// above which a written explanation is mandatory.
const VarianceNoteThreshold = 10000
