package repository

import (
	"context"

	"charzing/internal/domain"

	"gorm.io/gorm"
)

// PaymentRepository stores the raw provider payment objects. Unlike the
// reservation repo it persists the domain entity directly: the payments
// table is an audit mirror of what the provider returned, not a view model.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) Save(ctx context.Context, p *domain.Payment) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// SetCancelInProgress flips the in-flight cancellation flag. Returns
// ErrRecordNotFound when the flag was already in the requested state, which
// lets the caller reject concurrent cancel attempts.
func (r *PaymentRepository) SetCancelInProgress(ctx context.Context, paymentKey string, inProgress bool, idempotencyKey string) error {
	updates := map[string]interface{}{
		"cancel_in_progress": inProgress,
	}
	if idempotencyKey != "" {
		updates["last_cancel_idempotency_key"] = idempotencyKey
	}
	res := r.db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("payment_key = ? AND cancel_in_progress = ?", paymentKey, !inProgress).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
