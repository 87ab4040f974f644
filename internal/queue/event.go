// Package queue publishes and consumes reservation lifecycle events over
// RabbitMQ. Publishing is best-effort: errors are logged and returned so the
// request flow can ignore them.
package queue

import "time"

const ReservationQueueName = "reservation.events"

// Event kinds carried on the reservation.events queue.
const (
	KindReservationCreated   = "reservation.created"
	KindReservationPaid      = "reservation.paid"
	KindReservationCancelled = "reservation.cancelled"
)

// Event is the JSON envelope for one reservation lifecycle change.
type Event struct {
	Kind          string    `json:"kind"`
	ReservationID string    `json:"reservation_id"`
	UserID        string    `json:"user_id"`
	OrderID       string    `json:"order_id,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	ServiceType   string    `json:"service_type,omitempty"`
	Amount        int64     `json:"amount,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
