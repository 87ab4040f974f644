package toss

import "time"

// Payment statuses as reported by the provider.
const (
	StatusReady             = "READY"
	StatusInProgress        = "IN_PROGRESS"
	StatusWaitingForDeposit = "WAITING_FOR_DEPOSIT"
	StatusDone              = "DONE"
	StatusCanceled          = "CANCELED"
	StatusPartialCanceled   = "PARTIAL_CANCELED"
	StatusAborted           = "ABORTED"
	StatusExpired           = "EXPIRED"
)

// ConfirmRequest is the body of POST /v1/payments/confirm.
type ConfirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

// CancelRequest is the body of POST /v1/payments/{paymentKey}/cancel.
// CancelAmount nil means full cancellation of the remaining balance.
type CancelRequest struct {
	CancelReason string `json:"cancelReason"`
	CancelAmount *int64 `json:"cancelAmount,omitempty"`
}

type Card struct {
	Company               string `json:"company"`
	Number                string `json:"number"`
	CardType              string `json:"cardType"`
	OwnerType             string `json:"ownerType"`
	InstallmentPlanMonths int    `json:"installmentPlanMonths"`
	ApproveNo             string `json:"approveNo"`
}

type EasyPay struct {
	Provider       string `json:"provider"`
	Amount         int64  `json:"amount"`
	DiscountAmount int64  `json:"discountAmount"`
}

type Receipt struct {
	URL string `json:"url"`
}

type Cancel struct {
	TransactionKey     string    `json:"transactionKey"`
	CancelReason       string    `json:"cancelReason"`
	CancelAmount       int64     `json:"cancelAmount"`
	TaxFreeAmount      int64     `json:"taxFreeAmount"`
	TaxExemptionAmount int64     `json:"taxExemptionAmount"`
	CanceledAt         time.Time `json:"canceledAt"`
	CancelStatus       string    `json:"cancelStatus"`
}

// Payment is the provider's payment object as returned by the confirm,
// cancel and lookup endpoints.
type Payment struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	OrderName  string `json:"orderName"`

	TotalAmount    int64  `json:"totalAmount"`
	SuppliedAmount int64  `json:"suppliedAmount"`
	VAT            int64  `json:"vat"`
	TaxFreeAmount  int64  `json:"taxFreeAmount"`
	BalanceAmount  int64  `json:"balanceAmount"`
	Currency       string `json:"currency"`

	Status string `json:"status"`
	Method string `json:"method"`

	RequestedAt *time.Time `json:"requestedAt,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`

	Card    *Card    `json:"card,omitempty"`
	EasyPay *EasyPay `json:"easyPay,omitempty"`
	Receipt *Receipt `json:"receipt,omitempty"`
	Cancels []Cancel `json:"cancels,omitempty"`

	IsPartialCancelable bool `json:"isPartialCancelable"`
}

// WebhookEvent is the envelope Toss posts to the webhook endpoint.
type WebhookEvent struct {
	EventType string      `json:"eventType"`
	CreatedAt string      `json:"createdAt"`
	Data      WebhookData `json:"data"`
}

type WebhookData struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`
	ApprovedAt string `json:"approvedAt"`
}
