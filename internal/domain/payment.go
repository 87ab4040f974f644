package domain

import "time"

// TossPaymentStatus mirrors the status values the payment provider reports.
type TossPaymentStatus string

const (
	TossPaymentReady             TossPaymentStatus = "READY"
	TossPaymentInProgress        TossPaymentStatus = "IN_PROGRESS"
	TossPaymentWaitingForDeposit TossPaymentStatus = "WAITING_FOR_DEPOSIT"
	TossPaymentDone              TossPaymentStatus = "DONE"
	TossPaymentCanceled          TossPaymentStatus = "CANCELED"
	TossPaymentPartialCanceled   TossPaymentStatus = "PARTIAL_CANCELED"
	TossPaymentAborted           TossPaymentStatus = "ABORTED"
	TossPaymentExpired           TossPaymentStatus = "EXPIRED"
)

// Payment is the durable record of a single provider transaction. It is
// created only after the confirm API verified the paymentKey/orderId/amount
// triple, and is never hard-deleted.
type Payment struct {
	ID         string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	PaymentKey string `gorm:"uniqueIndex;type:varchar(200);not null" json:"payment_key"`
	OrderID    string `gorm:"uniqueIndex;type:varchar(100);not null" json:"order_id"`
	OrderName  string `gorm:"type:varchar(200)" json:"order_name"`

	TotalAmount    int64  `json:"total_amount"`
	SuppliedAmount int64  `json:"supplied_amount"`
	VAT            int64  `gorm:"column:vat" json:"vat"`
	TaxFreeAmount  int64  `json:"tax_free_amount"`
	BalanceAmount  int64  `json:"balance_amount"`
	Currency       string `gorm:"type:varchar(8);default:'KRW'" json:"currency"`

	Status TossPaymentStatus `gorm:"type:varchar(24);index" json:"status"`
	Method string            `gorm:"type:varchar(32)" json:"method"`

	CardCompany           string `gorm:"type:varchar(32)" json:"card_company,omitempty"`
	CardNumber            string `gorm:"type:varchar(32)" json:"card_number,omitempty"`
	CardType              string `gorm:"type:varchar(16)" json:"card_type,omitempty"`
	InstallmentPlanMonths int    `json:"installment_plan_months,omitempty"`

	ReservationID string `gorm:"index;type:varchar(64)" json:"reservation_id,omitempty"`
	UserID        string `gorm:"index;type:varchar(64)" json:"user_id,omitempty"`

	CustomerName  string `gorm:"type:varchar(100)" json:"customer_name"`
	CustomerPhone string `gorm:"type:varchar(32)" json:"customer_phone"`
	CustomerEmail string `gorm:"type:varchar(200)" json:"customer_email,omitempty"`

	// Cancels holds the ordered refund history as a JSON array of
	// CancelRecord. Stored denormalized; the provider is the source of truth.
	Cancels string `gorm:"type:text" json:"cancels,omitempty"`

	ReceiptURL string `gorm:"type:text" json:"receipt_url,omitempty"`

	CancelInProgress         bool   `json:"cancel_in_progress"`
	LastCancelIdempotencyKey string `gorm:"type:varchar(64)" json:"-"`

	RequestedAt *time.Time `json:"requested_at,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// CancelRecord is one entry of Payment.Cancels.
type CancelRecord struct {
	TransactionKey string    `json:"transaction_key"`
	CancelReason   string    `json:"cancel_reason"`
	CancelAmount   int64     `json:"cancel_amount"`
	CanceledAt     time.Time `json:"canceled_at"`
	CancelStatus   string    `json:"cancel_status"`
}

// Refundable reports whether any balance remains to cancel.
func (p *Payment) Refundable() bool {
	return p.Status != TossPaymentCanceled && p.BalanceAmount > 0
}
