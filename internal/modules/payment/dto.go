package payment

import (
	"time"

	"charzing/internal/domain"
)

type CustomerInfo struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required,krphone"`
	Email string `json:"email"`
}

// ReservationInfo carries the reservation details for the web flow, where
// the widget runs before any reservation row exists.
type ReservationInfo struct {
	VehicleBrand  string    `json:"vehicle_brand" binding:"required"`
	VehicleModel  string    `json:"vehicle_model" binding:"required"`
	VehicleYear   string    `json:"vehicle_year"`
	RequestedDate time.Time `json:"requested_date" binding:"required"`
	Address       string    `json:"address" binding:"required"`
	DetailAddress string    `json:"detail_address"`
	ServiceType   string    `json:"service_type" binding:"required,oneof=standard premium"`
	Notes         string    `json:"notes"`
}

type ConfirmPaymentRequest struct {
	PaymentKey      string           `json:"paymentKey" binding:"required"`
	OrderID         string           `json:"orderId" binding:"required"`
	Amount          int64            `json:"amount" binding:"required,gt=0"`
	CustomerInfo    CustomerInfo     `json:"customerInfo" binding:"required"`
	ReservationID   string           `json:"reservationId"`
	ReservationInfo *ReservationInfo `json:"reservationInfo"`
}

type ConfirmPaymentResponse struct {
	ReservationID string `json:"reservationId"`
	PaymentID     string `json:"paymentId"`
	Status        string `json:"status"`
	ReceiptURL    string `json:"receiptUrl,omitempty"`
}

type CancelPaymentRequest struct {
	PaymentID    string `json:"paymentId" binding:"required"`
	CancelReason string `json:"cancelReason" binding:"required"`
	CancelAmount *int64 `json:"cancelAmount"`
}

type CancelPaymentResponse struct {
	PaymentID     string `json:"paymentId"`
	Status        string `json:"status"`
	BalanceAmount int64  `json:"balanceAmount"`
	PaymentStatus string `json:"paymentStatus"`
}

// PaymentDetail is the read model for a stored payment, with the cancel
// history decoded from its JSON column.
type PaymentDetail struct {
	PaymentID     string                `json:"paymentId"`
	ReservationID string                `json:"reservationId,omitempty"`
	OrderID       string                `json:"orderId"`
	Status        string                `json:"status"`
	Method        string                `json:"method,omitempty"`
	TotalAmount   int64                 `json:"totalAmount"`
	BalanceAmount int64                 `json:"balanceAmount"`
	ReceiptURL    string                `json:"receiptUrl,omitempty"`
	ApprovedAt    *time.Time            `json:"approvedAt,omitempty"`
	Cancels       []domain.CancelRecord `json:"cancels"`
}

type LandingResponse struct {
	OrderID       string `json:"orderId"`
	ReservationID string `json:"reservationId,omitempty"`
	Confirmed     bool   `json:"confirmed"`
	Message       string `json:"message"`
}
