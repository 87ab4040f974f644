package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"charzing/internal/domain"
	"charzing/internal/queue"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const orderIDPrefix = "CHZ_"

type Service struct {
	reservations reservationRepo
	users        userReader
	events       eventPublisher
	loggerf      func(format string, args ...interface{})
}

func NewService(reservations reservationRepo, users userReader, events eventPublisher, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{
		reservations: reservations,
		users:        users,
		events:       events,
		loggerf:      loggerf,
	}
}

// OrderIDFor builds the base order id for a reservation.
func OrderIDFor(reservationID string) string {
	return orderIDPrefix + reservationID
}

// RetryOrderIDFor builds a fresh order id for a payment retry. The provider
// refuses to reuse an order id from a failed attempt, so each retry gets a
// nanosecond timestamp suffix that stays unique across rapid retries.
func RetryOrderIDFor(reservationID string) string {
	return fmt.Sprintf("%s%s_retry%d", orderIDPrefix, reservationID, time.Now().UnixNano())
}

func (s *Service) Create(ctx context.Context, userID string, req CreateReservationRequest) (*domain.Reservation, error) {
	if req.RequestedDate.Before(time.Now()) {
		return nil, ErrValidation
	}

	active, err := s.reservations.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, ErrActiveReservationExists
	}

	id := uuid.NewString()
	r := &domain.Reservation{
		ID:                 id,
		UserID:             userID,
		VehicleBrand:       req.VehicleBrand,
		VehicleModel:       req.VehicleModel,
		VehicleYear:        req.VehicleYear,
		VehiclePlateNumber: req.VehiclePlateNumber,
		RequestedDate:      req.RequestedDate,
		Address:            req.Address,
		DetailAddress:      req.DetailAddress,
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
		ServiceType:        domain.ServiceType(req.ServiceType),
		ServicePrice:       req.ServicePrice,
		Status:             domain.ReservationPendingPayment,
		OrderID:            OrderIDFor(id),
		PaymentStatus:      domain.PaymentUnpaid,
		Notes:              req.Notes,
	}

	if err := s.reservations.Create(ctx, r); err != nil {
		return nil, err
	}

	s.publish(ctx, queue.KindReservationCreated, r)
	return r, nil
}

func (s *Service) GetMy(ctx context.Context, userID string, limit, offset int) ([]*domain.Reservation, error) {
	return s.reservations.ListByUser(ctx, userID, limit, offset)
}

// ListByStatus backs the staff queue views, such as the dispatch screen that
// works through paid reservations waiting for a technician.
func (s *Service) ListByStatus(ctx context.Context, status domain.ReservationStatus) ([]*domain.Reservation, error) {
	if !status.Known() {
		return nil, ErrValidation
	}
	return s.reservations.ListByStatus(ctx, status)
}

// GetByID enforces ownership: customers see only their own reservations,
// technicians and admins see everything.
func (s *Service) GetByID(ctx context.Context, id, requesterID string, requesterRole domain.UserRole) (*domain.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if requesterRole == domain.RoleCustomer && r.UserID != requesterID {
		return nil, ErrForbidden
	}
	return r, nil
}

// Cancel is idempotent: cancelling an already cancelled reservation returns
// its current state. Completed reservations cannot be cancelled, and paid
// ones must go through the refund path so the money moves first.
func (s *Service) Cancel(ctx context.Context, id, requesterID string, requesterRole domain.UserRole, reason string) (*domain.Reservation, error) {
	r, err := s.GetByID(ctx, id, requesterID, requesterRole)
	if err != nil {
		return nil, err
	}

	switch {
	case r.Status == domain.ReservationCancelled:
		return r, nil
	case r.Status == domain.ReservationCompleted:
		return nil, ErrAlreadyCompleted
	case r.PaymentStatus == domain.PaymentPaid:
		return nil, ErrRefundRequired
	}

	if err := s.reservations.Cancel(ctx, id, reason, time.Now().UTC()); err != nil {
		return nil, err
	}

	r, err = s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.KindReservationCancelled, r)
	return r, nil
}

// RetryPayment puts a failed or expired reservation back into the unpaid
// draft state under a brand new order id.
func (s *Service) RetryPayment(ctx context.Context, id, requesterID string, requesterRole domain.UserRole) (*domain.Reservation, error) {
	r, err := s.GetByID(ctx, id, requesterID, requesterRole)
	if err != nil {
		return nil, err
	}
	if r.PaymentStatus == domain.PaymentPaid {
		return nil, ErrAlreadyPaid
	}
	if r.Status == domain.ReservationCompleted {
		return nil, ErrAlreadyCompleted
	}

	orderID := RetryOrderIDFor(id)
	if err := s.reservations.ResetForRetry(ctx, id, orderID); err != nil {
		return nil, err
	}
	s.loggerf("level=info msg=payment retry issued reservation_id=%s order_id=%s", id, orderID)

	return s.reservations.GetByID(ctx, id)
}

// UpdateStatus moves a reservation along the lifecycle. The transition is
// checked against the state machine and applied with a status guard so a
// concurrent update cannot skip a step.
func (s *Service) UpdateStatus(ctx context.Context, id string, to domain.ReservationStatus) (*domain.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !domain.CanTransition(r.Status, to) {
		return nil, ErrInvalidStatusTransition
	}

	if err := s.reservations.UpdateStatusGuarded(ctx, id, r.Status, to); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, err
	}
	return s.reservations.GetByID(ctx, id)
}

func (s *Service) AssignTechnician(ctx context.Context, id, technicianID, technicianName string) (*domain.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if r.Status != domain.ReservationPending {
		return nil, ErrInvalidStatusTransition
	}

	if err := s.reservations.AssignTechnician(ctx, id, technicianID, technicianName, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.reservations.UpdateStatusGuarded(ctx, id, domain.ReservationPending, domain.ReservationConfirmed); err != nil {
		return nil, err
	}
	return s.reservations.GetByID(ctx, id)
}

// SweepStaleUnpaid cancels pending_payment reservations older than maxAge.
// A reservation that carries a paymentKey but is still pending_payment is
// money-received-but-stuck: it is skipped and logged loudly for manual
// review.
func (s *Service) SweepStaleUnpaid(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	stale, err := s.reservations.ListStaleUnpaid(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, r := range stale {
		if r.PaymentKey != "" || r.PaymentStatus == domain.PaymentPaid {
			s.loggerf("level=warn msg=paid-but-stuck reservation skipped by sweeper reservation_id=%s order_id=%s payment_key=%s", r.ID, r.OrderID, r.PaymentKey)
			continue
		}
		if err := s.reservations.Cancel(ctx, r.ID, "payment window expired", time.Now().UTC()); err != nil {
			s.loggerf("level=error msg=sweeper cancel failed reservation_id=%s err=%v", r.ID, err)
			continue
		}
		cancelled++
		s.publish(ctx, queue.KindReservationCancelled, r)
	}
	return cancelled, nil
}

func (s *Service) publish(ctx context.Context, kind string, r *domain.Reservation) {
	if s.events == nil {
		return
	}
	phone := ""
	if u, err := s.users.GetByID(ctx, r.UserID); err == nil {
		phone = u.Phone
	}
	err := s.events.Publish(ctx, queue.Event{
		Kind:          kind,
		ReservationID: r.ID,
		UserID:        r.UserID,
		OrderID:       r.OrderID,
		Phone:         phone,
		ServiceType:   string(r.ServiceType),
		Amount:        r.ServicePrice,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		s.loggerf("level=error msg=event publish failed kind=%s reservation_id=%s err=%v", kind, r.ID, err)
	}
}
