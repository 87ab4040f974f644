package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"charzing/internal/domain"
	"charzing/internal/pkg/utils"
	"charzing/internal/queue"
	"charzing/internal/toss"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const webhookEventPaymentStatusChanged = "PAYMENT_STATUS_CHANGED"

// Service is the only component allowed to move a reservation into the paid
// state. Both entry points (the confirm endpoint and the provider webhook)
// converge on MarkPaidIdempotent, so a duplicate signal is always a no-op.
type Service struct {
	payments     paymentRepo
	reservations reservationRepo
	users        userRepo
	provider     tossClient
	events       eventPublisher
	stream       outcomeNotifier
	loggerf      func(format string, args ...interface{})
}

func NewService(
	payments paymentRepo,
	reservations reservationRepo,
	users userRepo,
	provider tossClient,
	events eventPublisher,
	stream outcomeNotifier,
	loggerf func(format string, args ...interface{}),
) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{
		payments:     payments,
		reservations: reservations,
		users:        users,
		provider:     provider,
		events:       events,
		stream:       stream,
		loggerf:      loggerf,
	}
}

// ReservationIDFromOrderID extracts the reservation id from an order id of
// the form CHZ_{id} or CHZ_{id}_retry{ts}. Empty string when the order id is
// not ours.
func ReservationIDFromOrderID(orderID string) string {
	rest, ok := strings.CutPrefix(orderID, "CHZ_")
	if !ok {
		return ""
	}
	if i := strings.Index(rest, "_"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func (s *Service) Confirm(ctx context.Context, requesterID string, req ConfirmPaymentRequest) (*ConfirmPaymentResponse, error) {
	// duplicate success signals are no-ops: the first DONE payment wins
	if existing, err := s.payments.GetByOrderID(ctx, req.OrderID); err == nil && existing.Status == domain.TossPaymentDone {
		s.loggerf("level=info msg=confirm idempotent replay order_id=%s payment_id=%s", req.OrderID, existing.ID)
		return confirmResponse(existing), nil
	}

	reservation, err := s.resolveReservation(ctx, req)
	if err != nil {
		return nil, err
	}

	// the order id must be the one minted for this reservation
	if reservation != nil && reservation.OrderID != req.OrderID {
		s.loggerf("level=error msg=confirm order id mismatch reservation_id=%s expected=%s got=%s", reservation.ID, reservation.OrderID, req.OrderID)
		s.notify(req.OrderID, "FAIL", "ORDER_MISMATCH", "주문번호가 예약과 일치하지 않습니다.")
		return nil, ErrPaymentVerificationFailed
	}

	// amount tamper check before any money moves
	if reservation != nil && reservation.ServicePrice != req.Amount {
		s.loggerf("level=error msg=confirm amount mismatch order_id=%s requested=%d expected=%d", req.OrderID, req.Amount, reservation.ServicePrice)
		_ = s.reservations.SetPaymentFailed(ctx, reservation.ID)
		s.notify(req.OrderID, "FAIL", "AMOUNT_MISMATCH", "결제 금액이 예약 금액과 일치하지 않습니다.")
		return nil, ErrPaymentVerificationFailed
	}

	tp, err := s.provider.Confirm(ctx, &toss.ConfirmRequest{
		PaymentKey: req.PaymentKey,
		OrderID:    req.OrderID,
		Amount:     req.Amount,
	})
	if err != nil {
		if reservation != nil {
			_ = s.reservations.SetPaymentFailed(ctx, reservation.ID)
		}
		var perr *toss.Error
		if errors.As(err, &perr) {
			s.loggerf("level=error msg=provider rejected confirm order_id=%s code=%s", req.OrderID, perr.Code)
			s.notify(req.OrderID, "FAIL", perr.Code, perr.Message)
			return nil, fmt.Errorf("%w: %s", ErrPaymentVerificationFailed, perr.Message)
		}
		return nil, err
	}

	if tp.Status != toss.StatusDone || tp.TotalAmount != req.Amount {
		s.loggerf("level=error msg=confirmed payment failed verification order_id=%s status=%s total_amount=%d", req.OrderID, tp.Status, tp.TotalAmount)
		if reservation != nil {
			_ = s.reservations.SetPaymentFailed(ctx, reservation.ID)
		}
		s.notify(req.OrderID, "FAIL", "PAYMENT_VERIFICATION_FAILED", "결제 검증에 실패했습니다.")
		return nil, ErrPaymentVerificationFailed
	}

	// Money has moved. Any failure from here on is logged for manual
	// reconciliation, never silently dropped.
	p := paymentFromProvider(tp)
	p.UserID = requesterID
	p.CustomerName = req.CustomerInfo.Name
	p.CustomerPhone = req.CustomerInfo.Phone
	p.CustomerEmail = req.CustomerInfo.Email

	statusChanged := true
	if reservation == nil {
		reservation, err = s.createWebReservation(ctx, requesterID, req, tp)
		if err != nil {
			s.loggerf("level=error msg=paid without reservation, manual reconciliation required payment_key=%s order_id=%s err=%v", tp.PaymentKey, req.OrderID, err)
			return nil, err
		}
		p.UserID = reservation.UserID
	} else {
		approvedAt := time.Now().UTC()
		if tp.ApprovedAt != nil {
			approvedAt = *tp.ApprovedAt
		}
		changed, merr := s.reservations.MarkPaidIdempotent(ctx, reservation.ID, p.ID, tp.PaymentKey, tp.Method, tp.TotalAmount, approvedAt)
		if merr != nil {
			s.loggerf("level=error msg=mark paid failed after confirm, manual reconciliation required payment_key=%s reservation_id=%s err=%v", tp.PaymentKey, reservation.ID, merr)
			return nil, merr
		}
		statusChanged = changed
		if !changed {
			if cur, gerr := s.reservations.GetByID(ctx, reservation.ID); gerr == nil && cur.Status == domain.ReservationCancelled {
				s.loggerf("level=error msg=payment confirmed on cancelled reservation, manual reconciliation required reservation_id=%s order_id=%s", reservation.ID, req.OrderID)
			} else {
				s.loggerf("level=info msg=reservation already paid reservation_id=%s", reservation.ID)
			}
		}
		p.UserID = reservation.UserID
	}

	p.ReservationID = reservation.ID
	if err := s.payments.Create(ctx, p); err != nil {
		// 23505 on order_id means a concurrent confirm already persisted it
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			if existing, gerr := s.payments.GetByOrderID(ctx, req.OrderID); gerr == nil {
				return confirmResponse(existing), nil
			}
		}
		s.loggerf("level=error msg=payment row not persisted, manual reconciliation required payment_key=%s order_id=%s err=%v", tp.PaymentKey, req.OrderID, err)
		return nil, err
	}

	if statusChanged {
		s.publish(ctx, queue.KindReservationPaid, reservation, tp.TotalAmount)
		s.notify(req.OrderID, "SUCCESS", "", "결제가 완료되었습니다.")
	}
	return confirmResponse(p), nil
}

func (s *Service) resolveReservation(ctx context.Context, req ConfirmPaymentRequest) (*domain.Reservation, error) {
	if req.ReservationID != "" {
		r, err := s.reservations.GetByID(ctx, req.ReservationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrReservationNotFound
			}
			return nil, err
		}
		return r, nil
	}

	r, err := s.reservations.GetByOrderID(ctx, req.OrderID)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if req.ReservationInfo == nil {
		return nil, ErrReservationNotFound
	}
	// web flow: the reservation is created after the provider confirms
	return nil, nil
}

// createWebReservation covers the web widget flow where payment happens
// before any reservation exists. An unauthenticated payer gets a guest
// account.
func (s *Service) createWebReservation(ctx context.Context, requesterID string, req ConfirmPaymentRequest, tp *toss.Payment) (*domain.Reservation, error) {
	userID := requesterID
	if userID == "" {
		guest := &domain.User{
			ID:          "guest_" + uuid.NewString(),
			Role:        domain.RoleCustomer,
			Provider:    domain.ProviderEmail,
			DisplayName: req.CustomerInfo.Name,
			Phone:       req.CustomerInfo.Phone,
			Email:       req.CustomerInfo.Email,
			IsGuest:     true,
		}
		if err := s.users.Create(ctx, guest); err != nil {
			return nil, fmt.Errorf("create guest user: %w", err)
		}
		userID = guest.ID
	}

	approvedAt := time.Now().UTC()
	if tp.ApprovedAt != nil {
		approvedAt = *tp.ApprovedAt
	}
	info := req.ReservationInfo
	r := &domain.Reservation{
		ID:            uuid.NewString(),
		UserID:        userID,
		VehicleBrand:  info.VehicleBrand,
		VehicleModel:  info.VehicleModel,
		VehicleYear:   info.VehicleYear,
		RequestedDate: info.RequestedDate,
		Address:       info.Address,
		DetailAddress: info.DetailAddress,
		ServiceType:   domain.ServiceType(info.ServiceType),
		ServicePrice:  tp.TotalAmount,
		Status:        domain.ReservationPending,
		OrderID:       req.OrderID,
		PaymentKey:    tp.PaymentKey,
		PaymentStatus: domain.PaymentPaid,
		PaymentMethod: tp.Method,
		PaidAmount:    tp.TotalAmount,
		PaidAt:        &approvedAt,
		Notes:         info.Notes,
	}
	if err := s.reservations.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	return r, nil
}

// GetPayment returns a stored payment with its cancel history. Customers can
// only read their own payments.
func (s *Service) GetPayment(ctx context.Context, requesterID string, requesterRole domain.UserRole, id string) (*PaymentDetail, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if requesterRole == domain.RoleCustomer && p.UserID != requesterID {
		return nil, ErrForbidden
	}
	return &PaymentDetail{
		PaymentID:     p.ID,
		ReservationID: p.ReservationID,
		OrderID:       p.OrderID,
		Status:        string(p.Status),
		Method:        p.Method,
		TotalAmount:   p.TotalAmount,
		BalanceAmount: p.BalanceAmount,
		ReceiptURL:    p.ReceiptURL,
		ApprovedAt:    p.ApprovedAt,
		Cancels:       utils.UnmarshalList[domain.CancelRecord](p.Cancels),
	}, nil
}

// Cancel refunds a payment in full or in part. The cancelInProgress flag
// keeps a second refund attempt out while the provider call is in flight.
func (s *Service) Cancel(ctx context.Context, requesterID string, requesterRole domain.UserRole, req CancelPaymentRequest) (*CancelPaymentResponse, error) {
	p, err := s.payments.GetByID(ctx, req.PaymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if requesterRole == domain.RoleCustomer && p.UserID != requesterID {
		return nil, ErrForbidden
	}
	if p.Status == domain.TossPaymentCanceled {
		return nil, ErrAlreadyCanceled
	}
	if !p.Refundable() {
		return nil, ErrNoRefundableAmount
	}
	if req.CancelAmount != nil && *req.CancelAmount > p.BalanceAmount {
		return nil, ErrRefundExceedsBalance
	}

	idemKey := uuid.NewString()
	if err := s.payments.SetCancelInProgress(ctx, p.PaymentKey, true, idemKey); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCancelInProgress
		}
		return nil, err
	}
	defer func() {
		if err := s.payments.SetCancelInProgress(context.WithoutCancel(ctx), p.PaymentKey, false, ""); err != nil {
			s.loggerf("level=error msg=failed to clear cancel flag payment_key=%s err=%v", p.PaymentKey, err)
		}
	}()

	tp, err := s.provider.Cancel(ctx, p.PaymentKey, &toss.CancelRequest{
		CancelReason: req.CancelReason,
		CancelAmount: req.CancelAmount,
	}, idemKey)
	if err != nil {
		s.loggerf("level=error msg=provider cancel failed payment_key=%s err=%v", p.PaymentKey, err)
		return nil, err
	}

	applyProviderCancel(p, tp)
	if err := s.payments.Save(ctx, p); err != nil {
		s.loggerf("level=error msg=cancel persisted at provider but not locally, manual reconciliation required payment_key=%s err=%v", p.PaymentKey, err)
		return nil, err
	}

	refundStatus := domain.PaymentPartialRefunded
	if tp.Status == toss.StatusCanceled {
		refundStatus = domain.PaymentRefunded
	}
	if p.ReservationID != "" {
		if err := s.reservations.SetRefunded(ctx, p.ReservationID, refundStatus, req.CancelReason, time.Now().UTC()); err != nil {
			s.loggerf("level=error msg=failed to sync reservation after refund reservation_id=%s err=%v", p.ReservationID, err)
		}
		if r, gerr := s.reservations.GetByID(ctx, p.ReservationID); gerr == nil {
			s.publish(ctx, queue.KindReservationCancelled, r, p.TotalAmount)
		}
	}

	s.notify(p.OrderID, "CANCEL", "", "결제가 취소되었습니다.")
	return &CancelPaymentResponse{
		PaymentID:     p.ID,
		Status:        string(p.Status),
		BalanceAmount: p.BalanceAmount,
		PaymentStatus: string(refundStatus),
	}, nil
}

// HandleWebhook is the provider backup path for a missed confirm: only
// PAYMENT_STATUS_CHANGED with status DONE is acted on, and the provider
// object is refetched rather than trusted from the webhook body.
func (s *Service) HandleWebhook(ctx context.Context, event toss.WebhookEvent) (string, error) {
	if event.EventType != webhookEventPaymentStatusChanged || event.Data.Status != toss.StatusDone {
		s.loggerf("level=info msg=webhook ignored event_type=%s status=%s", event.EventType, event.Data.Status)
		return "ignored", nil
	}

	reservationID := ReservationIDFromOrderID(event.Data.OrderID)
	if reservationID == "" {
		return "", ErrValidation
	}

	r, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrReservationNotFound
		}
		return "", err
	}
	if r.PaymentStatus == domain.PaymentPaid {
		return "Already paid", nil
	}

	tp, err := s.provider.Get(ctx, event.Data.PaymentKey)
	if err != nil {
		return "", err
	}
	if tp.Status != toss.StatusDone || tp.OrderID != event.Data.OrderID {
		return "", ErrPaymentVerificationFailed
	}
	if tp.TotalAmount != r.ServicePrice {
		s.loggerf("level=error msg=webhook amount mismatch order_id=%s provider=%d expected=%d", tp.OrderID, tp.TotalAmount, r.ServicePrice)
		return "", ErrPaymentVerificationFailed
	}

	p := paymentFromProvider(tp)
	p.ReservationID = r.ID
	p.UserID = r.UserID
	if err := s.payments.Create(ctx, p); err != nil {
		// a duplicate row means the confirm handler already persisted it
		existing, gerr := s.payments.GetByOrderID(ctx, tp.OrderID)
		if gerr != nil {
			return "", err
		}
		p = existing
	}

	approvedAt := time.Now().UTC()
	if tp.ApprovedAt != nil {
		approvedAt = *tp.ApprovedAt
	}
	changed, err := s.reservations.MarkPaidIdempotent(ctx, r.ID, p.ID, tp.PaymentKey, tp.Method, tp.TotalAmount, approvedAt)
	if err != nil {
		return "", err
	}
	if changed {
		s.loggerf("level=info msg=webhook recovered missed payment reservation_id=%s order_id=%s", r.ID, tp.OrderID)
		s.publish(ctx, queue.KindReservationPaid, r, tp.TotalAmount)
		s.notify(tp.OrderID, "SUCCESS", "", "결제가 완료되었습니다.")
	} else if r.Status == domain.ReservationCancelled {
		s.loggerf("level=error msg=webhook payment on cancelled reservation, manual reconciliation required reservation_id=%s order_id=%s", r.ID, tp.OrderID)
	}
	return "OK", nil
}

// CheckOrder backs the success landing page. It only reports state, it never
// flips it: confirmation is the confirm endpoint's job.
func (s *Service) CheckOrder(ctx context.Context, orderID string) (*LandingResponse, error) {
	r, err := s.reservations.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	confirmed := r.PaymentStatus == domain.PaymentPaid
	msg := "결제 확인 대기 중입니다."
	if confirmed {
		msg = "결제가 완료되었습니다."
	}
	return &LandingResponse{OrderID: orderID, ReservationID: r.ID, Confirmed: confirmed, Message: msg}, nil
}

// HandleFailLanding cancels the still-unpaid reservation behind a failed
// widget run. No money has moved at this point. Duplicate fail signals and
// fail-after-success races are both no-ops.
func (s *Service) HandleFailLanding(ctx context.Context, orderID, code, message string) (*LandingResponse, error) {
	r, err := s.reservations.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	if r.PaymentStatus == domain.PaymentPaid {
		s.loggerf("level=warn msg=fail landing after successful payment ignored order_id=%s", orderID)
		return &LandingResponse{OrderID: orderID, ReservationID: r.ID, Confirmed: true, Message: "이미 결제가 완료된 예약입니다."}, nil
	}
	if r.Status != domain.ReservationCancelled {
		_ = s.reservations.SetPaymentFailed(ctx, r.ID)
		reason := fmt.Sprintf("payment failed: %s %s", code, message)
		if err := s.reservations.Cancel(ctx, r.ID, reason, time.Now().UTC()); err != nil {
			return nil, err
		}
		s.notify(orderID, "FAIL", code, message)
	}

	return &LandingResponse{OrderID: orderID, ReservationID: r.ID, Confirmed: false, Message: "결제에 실패하여 예약이 취소되었습니다."}, nil
}

func (s *Service) publish(ctx context.Context, kind string, r *domain.Reservation, amount int64) {
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
		Amount:        amount,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		s.loggerf("level=error msg=event publish failed kind=%s reservation_id=%s err=%v", kind, r.ID, err)
	}
}

func (s *Service) notify(orderID, kind, code, message string) {
	if s.stream == nil {
		return
	}
	s.stream.NotifyOutcome(orderID, kind, code, message)
}

func paymentFromProvider(tp *toss.Payment) *domain.Payment {
	p := &domain.Payment{
		ID:             uuid.NewString(),
		PaymentKey:     tp.PaymentKey,
		OrderID:        tp.OrderID,
		OrderName:      tp.OrderName,
		TotalAmount:    tp.TotalAmount,
		SuppliedAmount: tp.SuppliedAmount,
		VAT:            tp.VAT,
		TaxFreeAmount:  tp.TaxFreeAmount,
		BalanceAmount:  tp.BalanceAmount,
		Currency:       tp.Currency,
		Status:         domain.TossPaymentStatus(tp.Status),
		Method:         tp.Method,
		RequestedAt:    tp.RequestedAt,
		ApprovedAt:     tp.ApprovedAt,
	}
	if tp.Card != nil {
		p.CardCompany = tp.Card.Company
		p.CardNumber = tp.Card.Number
		p.CardType = tp.Card.CardType
		p.InstallmentPlanMonths = tp.Card.InstallmentPlanMonths
	}
	if tp.Receipt != nil {
		p.ReceiptURL = tp.Receipt.URL
	}
	if len(tp.Cancels) > 0 {
		p.Cancels = utils.MarshalList(cancelRecords(tp.Cancels))
	}
	return p
}

func applyProviderCancel(p *domain.Payment, tp *toss.Payment) {
	p.Status = domain.TossPaymentStatus(tp.Status)
	p.BalanceAmount = tp.BalanceAmount
	p.Cancels = utils.MarshalList(cancelRecords(tp.Cancels))
	if tp.Receipt != nil && tp.Receipt.URL != "" {
		p.ReceiptURL = tp.Receipt.URL
	}
}

func cancelRecords(cancels []toss.Cancel) []domain.CancelRecord {
	out := make([]domain.CancelRecord, 0, len(cancels))
	for _, c := range cancels {
		out = append(out, domain.CancelRecord{
			TransactionKey: c.TransactionKey,
			CancelReason:   c.CancelReason,
			CancelAmount:   c.CancelAmount,
			CanceledAt:     c.CanceledAt,
			CancelStatus:   c.CancelStatus,
		})
	}
	return out
}

func confirmResponse(p *domain.Payment) *ConfirmPaymentResponse {
	return &ConfirmPaymentResponse{
		ReservationID: p.ReservationID,
		PaymentID:     p.ID,
		Status:        "confirmed",
		ReceiptURL:    p.ReceiptURL,
	}
}
