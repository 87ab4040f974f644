package payment

import (
	"context"
	"time"

	"charzing/internal/domain"
	"charzing/internal/queue"
	"charzing/internal/toss"
)

type tossClient interface {
	Confirm(ctx context.Context, req *toss.ConfirmRequest) (*toss.Payment, error)
	Cancel(ctx context.Context, paymentKey string, req *toss.CancelRequest, idempotencyKey string) (*toss.Payment, error)
	Get(ctx context.Context, paymentKey string) (*toss.Payment, error)
}

type paymentRepo interface {
	Create(ctx context.Context, p *domain.Payment) error
	Save(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)
	SetCancelInProgress(ctx context.Context, paymentKey string, inProgress bool, idempotencyKey string) error
}

type reservationRepo interface {
	Create(ctx context.Context, r *domain.Reservation) error
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Reservation, error)
	MarkPaidIdempotent(ctx context.Context, id, paymentID, paymentKey, method string, amount int64, paidAt time.Time) (bool, error)
	SetPaymentFailed(ctx context.Context, id string) error
	SetRefunded(ctx context.Context, id string, status domain.PaymentStatus, reason string, cancelledAt time.Time) error
	Cancel(ctx context.Context, id, reason string, at time.Time) error
}

type userRepo interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}

// eventPublisher is best-effort; nil disables events.
type eventPublisher interface {
	Publish(ctx context.Context, event queue.Event) error
}

// outcomeNotifier pushes terminal widget outcomes to subscribed clients.
// nil disables the stream.
type outcomeNotifier interface {
	NotifyOutcome(orderID, kind, code, message string)
}
