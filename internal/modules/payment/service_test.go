package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"charzing/internal/domain"
	"charzing/internal/toss"

	"gorm.io/gorm"
)

type fakeTossClient struct {
	confirmResult *toss.Payment
	confirmErr    error
	cancelResult  *toss.Payment
	cancelErr     error
	getResult     *toss.Payment
	getErr        error

	confirmCalls int
	cancelCalls  int
	lastIdemKey  string
}

func (f *fakeTossClient) Confirm(ctx context.Context, req *toss.ConfirmRequest) (*toss.Payment, error) {
	f.confirmCalls++
	return f.confirmResult, f.confirmErr
}

func (f *fakeTossClient) Cancel(ctx context.Context, paymentKey string, req *toss.CancelRequest, idemKey string) (*toss.Payment, error) {
	f.cancelCalls++
	f.lastIdemKey = idemKey
	return f.cancelResult, f.cancelErr
}

func (f *fakeTossClient) Get(ctx context.Context, paymentKey string) (*toss.Payment, error) {
	return f.getResult, f.getErr
}

type fakePaymentRepo struct {
	byOrderID map[string]*domain.Payment
	byID      map[string]*domain.Payment

	created          []*domain.Payment
	saved            []*domain.Payment
	cancelInProgress bool
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		byOrderID: map[string]*domain.Payment{},
		byID:      map[string]*domain.Payment{},
	}
}

func (f *fakePaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	f.created = append(f.created, p)
	f.byOrderID[p.OrderID] = p
	f.byID[p.ID] = p
	return nil
}

func (f *fakePaymentRepo) Save(ctx context.Context, p *domain.Payment) error {
	f.saved = append(f.saved, p)
	return nil
}

func (f *fakePaymentRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	if p, ok := f.byOrderID[orderID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentRepo) SetCancelInProgress(ctx context.Context, paymentKey string, inProgress bool, idemKey string) error {
	if f.cancelInProgress == inProgress {
		return gorm.ErrRecordNotFound
	}
	f.cancelInProgress = inProgress
	return nil
}

type fakeReservationRepo struct {
	byID      map[string]*domain.Reservation
	byOrderID map[string]*domain.Reservation

	markPaidCalls  int
	setFailedCalls int
	refunded       []domain.PaymentStatus
	cancelCalls    int
}

func newFakeReservationRepo(rs ...*domain.Reservation) *fakeReservationRepo {
	f := &fakeReservationRepo{
		byID:      map[string]*domain.Reservation{},
		byOrderID: map[string]*domain.Reservation{},
	}
	for _, r := range rs {
		f.byID[r.ID] = r
		f.byOrderID[r.OrderID] = r
	}
	return f
}

func (f *fakeReservationRepo) Create(ctx context.Context, r *domain.Reservation) error {
	f.byID[r.ID] = r
	f.byOrderID[r.OrderID] = r
	return nil
}

func (f *fakeReservationRepo) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	if r, ok := f.byID[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeReservationRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.Reservation, error) {
	if r, ok := f.byOrderID[orderID]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeReservationRepo) MarkPaidIdempotent(ctx context.Context, id, paymentID, paymentKey, method string, amount int64, paidAt time.Time) (bool, error) {
	f.markPaidCalls++
	r, ok := f.byID[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if r.PaymentStatus == domain.PaymentPaid {
		return false, nil
	}
	if r.Status == domain.ReservationCancelled {
		return false, nil
	}
	r.Status = domain.ReservationPending
	r.PaymentStatus = domain.PaymentPaid
	r.PaymentID = paymentID
	r.PaymentKey = paymentKey
	r.PaidAmount = amount
	return true, nil
}

func (f *fakeReservationRepo) SetPaymentFailed(ctx context.Context, id string) error {
	f.setFailedCalls++
	if r, ok := f.byID[id]; ok {
		r.PaymentStatus = domain.PaymentFailed
	}
	return nil
}

func (f *fakeReservationRepo) SetRefunded(ctx context.Context, id string, status domain.PaymentStatus, reason string, at time.Time) error {
	f.refunded = append(f.refunded, status)
	if r, ok := f.byID[id]; ok {
		r.PaymentStatus = status
	}
	return nil
}

func (f *fakeReservationRepo) Cancel(ctx context.Context, id, reason string, at time.Time) error {
	f.cancelCalls++
	if r, ok := f.byID[id]; ok {
		r.Status = domain.ReservationCancelled
		r.CancellationReason = reason
	}
	return nil
}

type fakeUserRepo struct {
	created []*domain.User
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return &domain.User{ID: id, Phone: "010-1234-5678"}, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	f.created = append(f.created, u)
	return nil
}

func silentLogger(string, ...interface{}) {}

func donePayment(orderID string, amount int64) *toss.Payment {
	now := time.Now()
	return &toss.Payment{
		PaymentKey:    "pk_" + orderID,
		OrderID:       orderID,
		Status:        toss.StatusDone,
		TotalAmount:   amount,
		BalanceAmount: amount,
		Method:        "카드",
		ApprovedAt:    &now,
		Receipt:       &toss.Receipt{URL: "https://receipt/" + orderID},
	}
}

func TestReservationIDFromOrderID(t *testing.T) {
	if got := ReservationIDFromOrderID("CHZ_abc-123"); got != "abc-123" {
		t.Errorf("base order id: got %q", got)
	}
	if got := ReservationIDFromOrderID("CHZ_abc-123_retry1700000000"); got != "abc-123" {
		t.Errorf("retry order id: got %q", got)
	}
	if got := ReservationIDFromOrderID("OTHER_abc"); got != "" {
		t.Errorf("foreign order id: got %q", got)
	}
}

func TestConfirm_Success(t *testing.T) {
	res := &domain.Reservation{
		ID: "r1", UserID: "kakao_1", OrderID: "CHZ_r1",
		Status: domain.ReservationPendingPayment, PaymentStatus: domain.PaymentUnpaid,
		ServicePrice: 50000,
	}
	reservations := newFakeReservationRepo(res)
	payments := newFakePaymentRepo()
	provider := &fakeTossClient{confirmResult: donePayment("CHZ_r1", 50000)}

	svc := NewService(payments, reservations, &fakeUserRepo{}, provider, nil, nil, silentLogger)
	resp, err := svc.Confirm(context.Background(), "kakao_1", ConfirmPaymentRequest{
		PaymentKey:   "pk_CHZ_r1",
		OrderID:      "CHZ_r1",
		Amount:       50000,
		CustomerInfo: CustomerInfo{Name: "김철수", Phone: "010-1234-5678"},
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if resp.ReservationID != "r1" || resp.Status != "confirmed" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if reservations.markPaidCalls != 1 {
		t.Fatalf("expected MarkPaidIdempotent called once, got %d", reservations.markPaidCalls)
	}
	if len(payments.created) != 1 {
		t.Fatalf("expected one payment row, got %d", len(payments.created))
	}
	if res.Status != domain.ReservationPending || res.PaymentStatus != domain.PaymentPaid {
		t.Fatalf("reservation not moved to pending/paid: %s/%s", res.Status, res.PaymentStatus)
	}
}

func TestConfirm_IdempotentReplay(t *testing.T) {
	payments := newFakePaymentRepo()
	existing := &domain.Payment{
		ID: "pay1", OrderID: "CHZ_r1", ReservationID: "r1",
		Status: domain.TossPaymentDone, ReceiptURL: "https://receipt/r1",
	}
	payments.byOrderID["CHZ_r1"] = existing
	provider := &fakeTossClient{}

	svc := NewService(payments, newFakeReservationRepo(), &fakeUserRepo{}, provider, nil, nil, silentLogger)
	resp, err := svc.Confirm(context.Background(), "kakao_1", ConfirmPaymentRequest{
		PaymentKey: "pk", OrderID: "CHZ_r1", Amount: 50000,
		CustomerInfo: CustomerInfo{Name: "김철수", Phone: "010-1234-5678"},
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if resp.PaymentID != "pay1" {
		t.Fatalf("expected existing payment returned, got %s", resp.PaymentID)
	}
	if provider.confirmCalls != 0 {
		t.Fatalf("expected no provider call on replay, got %d", provider.confirmCalls)
	}
}

func TestConfirm_AmountMismatch(t *testing.T) {
	res := &domain.Reservation{
		ID: "r1", UserID: "kakao_1", OrderID: "CHZ_r1",
		Status: domain.ReservationPendingPayment, ServicePrice: 50000,
	}
	reservations := newFakeReservationRepo(res)
	provider := &fakeTossClient{}

	svc := NewService(newFakePaymentRepo(), reservations, &fakeUserRepo{}, provider, nil, nil, silentLogger)
	_, err := svc.Confirm(context.Background(), "kakao_1", ConfirmPaymentRequest{
		PaymentKey: "pk", OrderID: "CHZ_r1", Amount: 10000,
		CustomerInfo: CustomerInfo{Name: "김철수", Phone: "010-1234-5678"},
	})
	if !errors.Is(err, ErrPaymentVerificationFailed) {
		t.Fatalf("expected ErrPaymentVerificationFailed, got %v", err)
	}
	if provider.confirmCalls != 0 {
		t.Fatalf("provider must not be called on amount mismatch")
	}
	if reservations.setFailedCalls != 1 {
		t.Fatalf("expected payment marked failed")
	}
}

func TestConfirm_OrderIDMismatch(t *testing.T) {
	res := &domain.Reservation{
		ID: "r1", UserID: "kakao_1", OrderID: "CHZ_r1",
		Status: domain.ReservationPendingPayment, ServicePrice: 50000,
	}
	reservations := newFakeReservationRepo(res)
	provider := &fakeTossClient{}

	svc := NewService(newFakePaymentRepo(), reservations, &fakeUserRepo{}, provider, nil, nil, silentLogger)
	_, err := svc.Confirm(context.Background(), "kakao_1", ConfirmPaymentRequest{
		PaymentKey: "pk", OrderID: "CHZ_other", Amount: 50000,
		ReservationID: "r1",
		CustomerInfo:  CustomerInfo{Name: "김철수", Phone: "010-1234-5678"},
	})
	if !errors.Is(err, ErrPaymentVerificationFailed) {
		t.Fatalf("expected ErrPaymentVerificationFailed, got %v", err)
	}
	if provider.confirmCalls != 0 {
		t.Fatalf("provider must not be called with a foreign order id")
	}
}

func TestConfirm_CancelledReservationStaysCancelled(t *testing.T) {
	res := &domain.Reservation{
		ID: "r1", UserID: "kakao_1", OrderID: "CHZ_r1",
		Status: domain.ReservationCancelled, PaymentStatus: domain.PaymentFailed,
		ServicePrice: 50000,
	}
	reservations := newFakeReservationRepo(res)
	payments := newFakePaymentRepo()
	provider := &fakeTossClient{confirmResult: donePayment("CHZ_r1", 50000)}

	svc := NewService(payments, reservations, &fakeUserRepo{}, provider, nil, nil, silentLogger)
	_, err := svc.Confirm(context.Background(), "kakao_1", ConfirmPaymentRequest{
		PaymentKey: "pk_CHZ_r1", OrderID: "CHZ_r1", Amount: 50000,
		CustomerInfo: CustomerInfo{Name: "김철수", Phone: "010-1234-5678"},
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if res.Status != domain.ReservationCancelled {
		t.Fatalf("cancelled reservation resurrected to %s", res.Status)
	}
	// the money is still recorded so it can be reconciled by hand
	if len(payments.created) != 1 {
		t.Fatalf("expected payment row for reconciliation, got %d", len(payments.created))
	}
}

func TestConfirm_ProviderRejection(t *testing.T) {
	res := &domain.Reservation{
		ID: "r1", UserID: "kakao_1", OrderID: "CHZ_r1",
		Status: domain.ReservationPendingPayment, ServicePrice: 50000,
	}
	reservations := newFakeReservationRepo(res)
	provider := &fakeTossClient{confirmErr: &toss.Error{Code: "NOT_FOUND_PAYMENT", Message: "존재하지 않는 결제입니다."}}

	svc := NewService(newFakePaymentRepo(), reservations, &fakeUserRepo{}, provider, nil, nil, silentLogger)
	_, err := svc.Confirm(context.Background(), "kakao_1", ConfirmPaymentRequest{
		PaymentKey: "pk", OrderID: "CHZ_r1", Amount: 50000,
		CustomerInfo: CustomerInfo{Name: "김철수", Phone: "010-1234-5678"},
	})
	if !errors.Is(err, ErrPaymentVerificationFailed) {
		t.Fatalf("expected ErrPaymentVerificationFailed, got %v", err)
	}
	if reservations.setFailedCalls != 1 {
		t.Fatalf("expected payment marked failed on provider rejection")
	}
}

func TestConfirm_WebFlowCreatesGuestAndReservation(t *testing.T) {
	reservations := newFakeReservationRepo()
	users := &fakeUserRepo{}
	provider := &fakeTossClient{confirmResult: donePayment("CHZ_WEB_1", 70000)}

	svc := NewService(newFakePaymentRepo(), reservations, users, provider, nil, nil, silentLogger)
	resp, err := svc.Confirm(context.Background(), "", ConfirmPaymentRequest{
		PaymentKey:   "pk",
		OrderID:      "CHZ_WEB_1",
		Amount:       70000,
		CustomerInfo: CustomerInfo{Name: "웹손님", Phone: "010-9999-8888"},
		ReservationInfo: &ReservationInfo{
			VehicleBrand: "Kia", VehicleModel: "EV6",
			RequestedDate: time.Now().Add(24 * time.Hour),
			Address:       "부산광역시 해운대구",
			ServiceType:   "premium",
		},
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if len(users.created) != 1 || users.created[0].IsGuest != true {
		t.Fatalf("expected one guest user created")
	}
	r, err := reservations.GetByID(context.Background(), resp.ReservationID)
	if err != nil {
		t.Fatalf("reservation not created: %v", err)
	}
	if r.Status != domain.ReservationPending || r.PaymentStatus != domain.PaymentPaid {
		t.Fatalf("web reservation not created paid: %s/%s", r.Status, r.PaymentStatus)
	}
}

func TestGetPayment_DecodesCancelHistory(t *testing.T) {
	payments := newFakePaymentRepo()
	payments.byID["pay1"] = &domain.Payment{
		ID: "pay1", UserID: "u1", OrderID: "CHZ_r1", ReservationID: "r1",
		Status: domain.TossPaymentPartialCanceled, TotalAmount: 50000, BalanceAmount: 30000,
		Cancels: `[{"transaction_key":"tk1","cancel_reason":"부분 환불","cancel_amount":20000,"cancel_status":"DONE"}]`,
	}

	svc := NewService(payments, newFakeReservationRepo(), &fakeUserRepo{}, &fakeTossClient{}, nil, nil, silentLogger)

	detail, err := svc.GetPayment(context.Background(), "u1", domain.RoleCustomer, "pay1")
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if detail.BalanceAmount != 30000 {
		t.Fatalf("balance = %d, want 30000", detail.BalanceAmount)
	}
	if len(detail.Cancels) != 1 || detail.Cancels[0].CancelAmount != 20000 {
		t.Fatalf("cancel history not decoded: %+v", detail.Cancels)
	}

	if _, err := svc.GetPayment(context.Background(), "other", domain.RoleCustomer, "pay1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("ownership: got %v", err)
	}
	if _, err := svc.GetPayment(context.Background(), "u1", domain.RoleCustomer, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing: got %v", err)
	}
}

func TestCancel_FullRefund(t *testing.T) {
	res := &domain.Reservation{ID: "r1", UserID: "kakao_1", OrderID: "CHZ_r1", Status: domain.ReservationPending, PaymentStatus: domain.PaymentPaid}
	reservations := newFakeReservationRepo(res)
	payments := newFakePaymentRepo()
	p := &domain.Payment{
		ID: "pay1", PaymentKey: "pk1", OrderID: "CHZ_r1", ReservationID: "r1", UserID: "kakao_1",
		Status: domain.TossPaymentDone, TotalAmount: 50000, BalanceAmount: 50000,
	}
	payments.byID["pay1"] = p

	canceled := donePayment("CHZ_r1", 50000)
	canceled.Status = toss.StatusCanceled
	canceled.BalanceAmount = 0
	provider := &fakeTossClient{cancelResult: canceled}

	svc := NewService(payments, reservations, &fakeUserRepo{}, provider, nil, nil, silentLogger)
	resp, err := svc.Cancel(context.Background(), "kakao_1", domain.RoleCustomer, CancelPaymentRequest{
		PaymentID: "pay1", CancelReason: "고객 요청",
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if resp.PaymentStatus != string(domain.PaymentRefunded) {
		t.Fatalf("expected refunded, got %s", resp.PaymentStatus)
	}
	if provider.lastIdemKey == "" {
		t.Fatalf("expected an idempotency key on provider cancel")
	}
	if payments.cancelInProgress {
		t.Fatalf("cancel flag not cleared")
	}
	if len(reservations.refunded) != 1 || reservations.refunded[0] != domain.PaymentRefunded {
		t.Fatalf("reservation not synced to refunded: %v", reservations.refunded)
	}
}

func TestCancel_PartialRefund(t *testing.T) {
	res := &domain.Reservation{ID: "r1", UserID: "kakao_1", OrderID: "CHZ_r1", PaymentStatus: domain.PaymentPaid}
	reservations := newFakeReservationRepo(res)
	payments := newFakePaymentRepo()
	payments.byID["pay1"] = &domain.Payment{
		ID: "pay1", PaymentKey: "pk1", OrderID: "CHZ_r1", ReservationID: "r1", UserID: "kakao_1",
		Status: domain.TossPaymentDone, TotalAmount: 50000, BalanceAmount: 50000,
	}

	partial := donePayment("CHZ_r1", 50000)
	partial.Status = toss.StatusPartialCanceled
	partial.BalanceAmount = 30000
	provider := &fakeTossClient{cancelResult: partial}

	amount := int64(20000)
	svc := NewService(payments, reservations, &fakeUserRepo{}, provider, nil, nil, silentLogger)
	resp, err := svc.Cancel(context.Background(), "kakao_1", domain.RoleCustomer, CancelPaymentRequest{
		PaymentID: "pay1", CancelReason: "부분 환불", CancelAmount: &amount,
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if resp.PaymentStatus != string(domain.PaymentPartialRefunded) {
		t.Fatalf("expected partial_refunded, got %s", resp.PaymentStatus)
	}
	if resp.BalanceAmount != 30000 {
		t.Fatalf("balance = %d, want 30000", resp.BalanceAmount)
	}
}

func TestCancel_Guards(t *testing.T) {
	payments := newFakePaymentRepo()
	payments.byID["canceled"] = &domain.Payment{ID: "canceled", UserID: "u1", Status: domain.TossPaymentCanceled, BalanceAmount: 0}
	payments.byID["drained"] = &domain.Payment{ID: "drained", UserID: "u1", Status: domain.TossPaymentDone, BalanceAmount: 0}
	payments.byID["small"] = &domain.Payment{ID: "small", UserID: "u1", Status: domain.TossPaymentDone, TotalAmount: 50000, BalanceAmount: 10000}
	payments.byID["busy"] = &domain.Payment{ID: "busy", PaymentKey: "pk_busy", UserID: "u1", Status: domain.TossPaymentDone, BalanceAmount: 50000}

	svc := NewService(payments, newFakeReservationRepo(), &fakeUserRepo{}, &fakeTossClient{}, nil, nil, silentLogger)
	ctx := context.Background()

	if _, err := svc.Cancel(ctx, "u1", domain.RoleCustomer, CancelPaymentRequest{PaymentID: "missing", CancelReason: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: got %v", err)
	}
	if _, err := svc.Cancel(ctx, "other", domain.RoleCustomer, CancelPaymentRequest{PaymentID: "drained", CancelReason: "x"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("ownership: got %v", err)
	}
	if _, err := svc.Cancel(ctx, "u1", domain.RoleCustomer, CancelPaymentRequest{PaymentID: "canceled", CancelReason: "x"}); !errors.Is(err, ErrAlreadyCanceled) {
		t.Errorf("already canceled: got %v", err)
	}
	if _, err := svc.Cancel(ctx, "u1", domain.RoleCustomer, CancelPaymentRequest{PaymentID: "drained", CancelReason: "x"}); !errors.Is(err, ErrNoRefundableAmount) {
		t.Errorf("no balance: got %v", err)
	}
	over := int64(20000)
	if _, err := svc.Cancel(ctx, "u1", domain.RoleCustomer, CancelPaymentRequest{PaymentID: "small", CancelReason: "x", CancelAmount: &over}); !errors.Is(err, ErrRefundExceedsBalance) {
		t.Errorf("exceeds balance: got %v", err)
	}

	payments.cancelInProgress = true
	if _, err := svc.Cancel(ctx, "u1", domain.RoleCustomer, CancelPaymentRequest{PaymentID: "busy", CancelReason: "x"}); !errors.Is(err, ErrCancelInProgress) {
		t.Errorf("in progress: got %v", err)
	}
}

func TestHandleWebhook_IgnoresOtherEvents(t *testing.T) {
	svc := NewService(newFakePaymentRepo(), newFakeReservationRepo(), &fakeUserRepo{}, &fakeTossClient{}, nil, nil, silentLogger)

	ack, err := svc.HandleWebhook(context.Background(), toss.WebhookEvent{
		EventType: "PAYMENT_STATUS_CHANGED",
		Data:      toss.WebhookData{OrderID: "CHZ_r1", Status: toss.StatusCanceled},
	})
	if err != nil || ack != "ignored" {
		t.Fatalf("expected ignored, got %q err=%v", ack, err)
	}

	ack, err = svc.HandleWebhook(context.Background(), toss.WebhookEvent{
		EventType: "DEPOSIT_CALLBACK",
		Data:      toss.WebhookData{OrderID: "CHZ_r1", Status: toss.StatusDone},
	})
	if err != nil || ack != "ignored" {
		t.Fatalf("expected ignored, got %q err=%v", ack, err)
	}
}

func TestHandleWebhook_AlreadyPaidNoOp(t *testing.T) {
	res := &domain.Reservation{ID: "r1", OrderID: "CHZ_r1", PaymentStatus: domain.PaymentPaid}
	reservations := newFakeReservationRepo(res)
	provider := &fakeTossClient{}

	svc := NewService(newFakePaymentRepo(), reservations, &fakeUserRepo{}, provider, nil, nil, silentLogger)
	ack, err := svc.HandleWebhook(context.Background(), toss.WebhookEvent{
		EventType: "PAYMENT_STATUS_CHANGED",
		Data:      toss.WebhookData{PaymentKey: "pk", OrderID: "CHZ_r1", Status: toss.StatusDone},
	})
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if ack != "Already paid" {
		t.Fatalf("ack = %q, want Already paid", ack)
	}
	if reservations.markPaidCalls != 0 {
		t.Fatalf("no mark paid expected on already-paid reservation")
	}
}

func TestHandleWebhook_RecoversMissedPayment(t *testing.T) {
	res := &domain.Reservation{
		ID: "r1", UserID: "kakao_1", OrderID: "CHZ_r1",
		Status: domain.ReservationPendingPayment, PaymentStatus: domain.PaymentUnpaid,
		ServicePrice: 50000,
	}
	reservations := newFakeReservationRepo(res)
	provider := &fakeTossClient{getResult: donePayment("CHZ_r1", 50000)}

	svc := NewService(newFakePaymentRepo(), reservations, &fakeUserRepo{}, provider, nil, nil, silentLogger)
	ack, err := svc.HandleWebhook(context.Background(), toss.WebhookEvent{
		EventType: "PAYMENT_STATUS_CHANGED",
		Data:      toss.WebhookData{PaymentKey: "pk_CHZ_r1", OrderID: "CHZ_r1", Status: toss.StatusDone},
	})
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if ack != "OK" {
		t.Fatalf("ack = %q, want OK", ack)
	}
	if res.PaymentStatus != domain.PaymentPaid {
		t.Fatalf("reservation not recovered to paid")
	}
}

func TestHandleWebhook_CancelledReservationStaysCancelled(t *testing.T) {
	res := &domain.Reservation{
		ID: "r1", UserID: "kakao_1", OrderID: "CHZ_r1",
		Status: domain.ReservationCancelled, PaymentStatus: domain.PaymentFailed,
		ServicePrice: 50000,
	}
	reservations := newFakeReservationRepo(res)
	provider := &fakeTossClient{getResult: donePayment("CHZ_r1", 50000)}

	svc := NewService(newFakePaymentRepo(), reservations, &fakeUserRepo{}, provider, nil, nil, silentLogger)
	ack, err := svc.HandleWebhook(context.Background(), toss.WebhookEvent{
		EventType: "PAYMENT_STATUS_CHANGED",
		Data:      toss.WebhookData{PaymentKey: "pk_CHZ_r1", OrderID: "CHZ_r1", Status: toss.StatusDone},
	})
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if ack != "OK" {
		t.Fatalf("ack = %q, want OK", ack)
	}
	if res.Status != domain.ReservationCancelled || res.PaymentStatus == domain.PaymentPaid {
		t.Fatalf("cancelled reservation resurrected: %s/%s", res.Status, res.PaymentStatus)
	}
}

func TestHandleWebhook_UnknownReservation(t *testing.T) {
	svc := NewService(newFakePaymentRepo(), newFakeReservationRepo(), &fakeUserRepo{}, &fakeTossClient{}, nil, nil, silentLogger)
	_, err := svc.HandleWebhook(context.Background(), toss.WebhookEvent{
		EventType: "PAYMENT_STATUS_CHANGED",
		Data:      toss.WebhookData{PaymentKey: "pk", OrderID: "CHZ_nope", Status: toss.StatusDone},
	})
	if !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestHandleFailLanding_CancelsAndIsIdempotent(t *testing.T) {
	res := &domain.Reservation{
		ID: "r1", UserID: "kakao_1", OrderID: "CHZ_r1",
		Status: domain.ReservationPendingPayment, PaymentStatus: domain.PaymentUnpaid,
	}
	reservations := newFakeReservationRepo(res)

	svc := NewService(newFakePaymentRepo(), reservations, &fakeUserRepo{}, &fakeTossClient{}, nil, nil, silentLogger)

	resp, err := svc.HandleFailLanding(context.Background(), "CHZ_r1", "PAY_PROCESS_CANCELED", "사용자 취소")
	if err != nil {
		t.Fatalf("HandleFailLanding: %v", err)
	}
	if resp.Confirmed {
		t.Fatalf("fail landing must not report confirmed")
	}
	if res.Status != domain.ReservationCancelled {
		t.Fatalf("reservation not cancelled")
	}

	// second fail signal is a no-op
	if _, err := svc.HandleFailLanding(context.Background(), "CHZ_r1", "PAY_PROCESS_CANCELED", "사용자 취소"); err != nil {
		t.Fatalf("duplicate fail landing: %v", err)
	}
	if reservations.cancelCalls != 1 {
		t.Fatalf("cancel called %d times, want 1", reservations.cancelCalls)
	}
}

func TestCheckOrder_NeverFlipsState(t *testing.T) {
	res := &domain.Reservation{
		ID: "r1", OrderID: "CHZ_r1",
		Status: domain.ReservationPendingPayment, PaymentStatus: domain.PaymentUnpaid,
	}
	reservations := newFakeReservationRepo(res)

	svc := NewService(newFakePaymentRepo(), reservations, &fakeUserRepo{}, &fakeTossClient{}, nil, nil, silentLogger)
	resp, err := svc.CheckOrder(context.Background(), "CHZ_r1")
	if err != nil {
		t.Fatalf("CheckOrder: %v", err)
	}
	if resp.Confirmed {
		t.Fatalf("unpaid order reported confirmed")
	}
	if res.Status != domain.ReservationPendingPayment || res.PaymentStatus != domain.PaymentUnpaid {
		t.Fatalf("success landing changed state: %s/%s", res.Status, res.PaymentStatus)
	}
	if reservations.markPaidCalls != 0 {
		t.Fatalf("success landing must never mark paid")
	}
}
