package domain

import "time"

type ReservationStatus string

const (
	ReservationPendingPayment ReservationStatus = "pending_payment"
	ReservationPending        ReservationStatus = "pending"
	ReservationConfirmed      ReservationStatus = "confirmed"
	ReservationInProgress     ReservationStatus = "in_progress"
	ReservationPendingReview  ReservationStatus = "pending_review"
	ReservationCompleted      ReservationStatus = "completed"
	ReservationCancelled      ReservationStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentUnpaid          PaymentStatus = "unpaid"
	PaymentPaid            PaymentStatus = "paid"
	PaymentPartialRefunded PaymentStatus = "partial_refunded"
	PaymentRefunded        PaymentStatus = "refunded"
	PaymentFailed          PaymentStatus = "failed"
)

type ServiceType string

const (
	ServiceStandard ServiceType = "standard"
	ServicePremium  ServiceType = "premium"
)

// Reservation is one customer's request for an on-site battery diagnosis
// visit. The status field drives the booking lifecycle; the paid transition
// out of pending_payment belongs exclusively to the payment confirmation
// handler (or the provider webhook backup).
type Reservation struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	VehicleBrand       string `json:"vehicle_brand" validate:"required"`
	VehicleModel       string `json:"vehicle_model" validate:"required"`
	VehicleYear        string `json:"vehicle_year"`
	VehiclePlateNumber string `json:"vehicle_plate_number,omitempty"`

	RequestedDate time.Time `json:"requested_date" validate:"required"`
	Address       string    `json:"address" validate:"required"`
	DetailAddress string    `json:"detail_address,omitempty"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`

	ServiceType  ServiceType `json:"service_type"`
	ServicePrice int64       `json:"service_price" validate:"gte=0"` // KRW, no decimals

	Status ReservationStatus `json:"status"`

	OrderID       string        `json:"order_id"`
	PaymentID     string        `json:"payment_id,omitempty"`
	PaymentKey    string        `json:"payment_key,omitempty"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentMethod string        `json:"payment_method,omitempty"`
	PaidAmount    int64         `json:"paid_amount,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`

	TechnicianID   string     `json:"technician_id,omitempty"`
	TechnicianName string     `json:"technician_name,omitempty"`
	AssignedAt     *time.Time `json:"assigned_at,omitempty"`

	Notes              string     `json:"notes,omitempty"`
	AdminNotes         string     `json:"admin_notes,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// reservationTransitions is the allowed edge set of the booking lifecycle.
// completed and cancelled are terminal.
var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPendingPayment: {ReservationPending, ReservationConfirmed, ReservationCancelled},
	ReservationPending:        {ReservationConfirmed, ReservationCancelled},
	ReservationConfirmed:      {ReservationInProgress, ReservationCancelled},
	ReservationInProgress:     {ReservationPendingReview, ReservationCompleted, ReservationCancelled},
	ReservationPendingReview:  {ReservationCompleted, ReservationCancelled},
}

// CanTransition reports whether moving from one lifecycle status to another
// is allowed.
func CanTransition(from, to ReservationStatus) bool {
	for _, next := range reservationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Known reports whether the value is one of the lifecycle statuses.
func (s ReservationStatus) Known() bool {
	switch s {
	case ReservationPendingPayment, ReservationPending, ReservationConfirmed,
		ReservationInProgress, ReservationPendingReview, ReservationCompleted, ReservationCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether a reservation can no longer change status.
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationCompleted || s == ReservationCancelled
}

// ActiveReservationStatuses are the states that count against the
// one-active-reservation-per-user rule. pending_payment is deliberately
// excluded: an unpaid draft must not block the user from booking again.
func ActiveReservationStatuses() []ReservationStatus {
	return []ReservationStatus{
		ReservationPending,
		ReservationConfirmed,
		ReservationInProgress,
		ReservationPendingReview,
	}
}
