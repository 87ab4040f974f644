package reservation

import (
	"context"
	"time"

	"charzing/internal/domain"
	"charzing/internal/queue"
)

type reservationRepo interface {
	Create(ctx context.Context, r *domain.Reservation) error
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Reservation, error)
	ListByStatus(ctx context.Context, status domain.ReservationStatus) ([]*domain.Reservation, error)
	CountActiveByUser(ctx context.Context, userID string) (int64, error)
	UpdateStatusGuarded(ctx context.Context, id string, from, to domain.ReservationStatus) error
	Cancel(ctx context.Context, id, reason string, at time.Time) error
	ResetForRetry(ctx context.Context, id, orderID string) error
	AssignTechnician(ctx context.Context, id, technicianID, technicianName string, at time.Time) error
	ListStaleUnpaid(ctx context.Context, cutoff time.Time) ([]*domain.Reservation, error)
}

type userReader interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// eventPublisher is best-effort; a nil publisher disables events entirely.
type eventPublisher interface {
	Publish(ctx context.Context, event queue.Event) error
}
