package repository

import (
	"context"
	"errors"
	"time"

	"charzing/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

type reservationModel struct {
	ID     string `gorm:"column:id;primaryKey;type:varchar(64)"`
	UserID string `gorm:"column:user_id;index"`

	VehicleBrand       string  `gorm:"column:vehicle_brand"`
	VehicleModel       string  `gorm:"column:vehicle_model"`
	VehicleYear        *string `gorm:"column:vehicle_year"`
	VehiclePlateNumber *string `gorm:"column:vehicle_plate_number"`

	RequestedDate time.Time `gorm:"column:requested_date"`
	Address       string    `gorm:"column:address"`
	DetailAddress *string   `gorm:"column:detail_address"`
	Latitude      float64   `gorm:"column:latitude"`
	Longitude     float64   `gorm:"column:longitude"`

	ServiceType  string `gorm:"column:service_type"`
	ServicePrice int64  `gorm:"column:service_price"`

	Status string `gorm:"column:status;index"`

	OrderID       string     `gorm:"column:order_id;uniqueIndex"`
	PaymentID     *string    `gorm:"column:payment_id"`
	PaymentKey    *string    `gorm:"column:payment_key"`
	PaymentStatus string     `gorm:"column:payment_status"`
	PaymentMethod *string    `gorm:"column:payment_method"`
	PaidAmount    int64      `gorm:"column:paid_amount"`
	PaidAt        *time.Time `gorm:"column:paid_at"`

	TechnicianID   *string    `gorm:"column:technician_id;index"`
	TechnicianName *string    `gorm:"column:technician_name"`
	AssignedAt     *time.Time `gorm:"column:assigned_at"`

	Notes              *string    `gorm:"column:notes"`
	AdminNotes         *string    `gorm:"column:admin_notes"`
	CancellationReason *string    `gorm:"column:cancellation_reason"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (reservationModel) TableName() string { return "reservations" }

func toDomainReservation(m reservationModel) *domain.Reservation {
	return &domain.Reservation{
		ID:                 m.ID,
		UserID:             m.UserID,
		VehicleBrand:       m.VehicleBrand,
		VehicleModel:       m.VehicleModel,
		VehicleYear:        strOrEmpty(m.VehicleYear),
		VehiclePlateNumber: strOrEmpty(m.VehiclePlateNumber),
		RequestedDate:      m.RequestedDate,
		Address:            m.Address,
		DetailAddress:      strOrEmpty(m.DetailAddress),
		Latitude:           m.Latitude,
		Longitude:          m.Longitude,
		ServiceType:        domain.ServiceType(m.ServiceType),
		ServicePrice:       m.ServicePrice,
		Status:             domain.ReservationStatus(m.Status),
		OrderID:            m.OrderID,
		PaymentID:          strOrEmpty(m.PaymentID),
		PaymentKey:         strOrEmpty(m.PaymentKey),
		PaymentStatus:      domain.PaymentStatus(m.PaymentStatus),
		PaymentMethod:      strOrEmpty(m.PaymentMethod),
		PaidAmount:         m.PaidAmount,
		PaidAt:             m.PaidAt,
		TechnicianID:       strOrEmpty(m.TechnicianID),
		TechnicianName:     strOrEmpty(m.TechnicianName),
		AssignedAt:         m.AssignedAt,
		Notes:              strOrEmpty(m.Notes),
		AdminNotes:         strOrEmpty(m.AdminNotes),
		CancellationReason: strOrEmpty(m.CancellationReason),
		CancelledAt:        m.CancelledAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toReservationModel(r *domain.Reservation) reservationModel {
	return reservationModel{
		ID:                 r.ID,
		UserID:             r.UserID,
		VehicleBrand:       r.VehicleBrand,
		VehicleModel:       r.VehicleModel,
		VehicleYear:        strOrNil(r.VehicleYear),
		VehiclePlateNumber: strOrNil(r.VehiclePlateNumber),
		RequestedDate:      r.RequestedDate,
		Address:            r.Address,
		DetailAddress:      strOrNil(r.DetailAddress),
		Latitude:           r.Latitude,
		Longitude:          r.Longitude,
		ServiceType:        string(r.ServiceType),
		ServicePrice:       r.ServicePrice,
		Status:             string(r.Status),
		OrderID:            r.OrderID,
		PaymentID:          strOrNil(r.PaymentID),
		PaymentKey:         strOrNil(r.PaymentKey),
		PaymentStatus:      string(r.PaymentStatus),
		PaymentMethod:      strOrNil(r.PaymentMethod),
		PaidAmount:         r.PaidAmount,
		PaidAt:             r.PaidAt,
		TechnicianID:       strOrNil(r.TechnicianID),
		TechnicianName:     strOrNil(r.TechnicianName),
		AssignedAt:         r.AssignedAt,
		Notes:              strOrNil(r.Notes),
		AdminNotes:         strOrNil(r.AdminNotes),
		CancellationReason: strOrNil(r.CancellationReason),
		CancelledAt:        r.CancelledAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	m := toReservationModel(res)
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return tx.Error
	}
	*res = *toDomainReservation(m)
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	var m reservationModel
	tx := r.db.WithContext(ctx).Where("id = ?", id).First(&m)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainReservation(m), nil
}

func (r *ReservationRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Reservation, error) {
	var m reservationModel
	tx := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&m)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainReservation(m), nil
}

func (r *ReservationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Reservation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var models []reservationModel
	tx := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models)
	if tx.Error != nil {
		return nil, tx.Error
	}
	out := make([]*domain.Reservation, 0, len(models))
	for _, m := range models {
		out = append(out, toDomainReservation(m))
	}
	return out, nil
}

func (r *ReservationRepository) ListByStatus(ctx context.Context, status domain.ReservationStatus) ([]*domain.Reservation, error) {
	var models []reservationModel
	tx := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("created_at DESC").
		Find(&models)
	if tx.Error != nil {
		return nil, tx.Error
	}
	out := make([]*domain.Reservation, 0, len(models))
	for _, m := range models {
		out = append(out, toDomainReservation(m))
	}
	return out, nil
}

// CountActiveByUser counts reservations that block the user from creating a
// new one. Unpaid drafts and terminal states do not count.
func (r *ReservationRepository) CountActiveByUser(ctx context.Context, userID string) (int64, error) {
	statuses := domain.ActiveReservationStatuses()
	raw := make([]string, 0, len(statuses))
	for _, s := range statuses {
		raw = append(raw, string(s))
	}

	var cnt int64
	tx := r.db.WithContext(ctx).
		Model(&reservationModel{}).
		Where("user_id = ? AND status IN ?", userID, raw).
		Count(&cnt)
	if tx.Error != nil {
		return 0, tx.Error
	}
	return cnt, nil
}

// UpdateStatusGuarded moves a reservation from one status to another only if
// it is still in the expected status. Returns ErrRecordNotFound when the row
// exists but the guard did not match.
func (r *ReservationRepository) UpdateStatusGuarded(ctx context.Context, id string, from, to domain.ReservationStatus) error {
	res := r.db.WithContext(ctx).
		Model(&reservationModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkPaidIdempotent records a successful payment on the reservation exactly
// once. The second and later calls with the same outcome are no-ops and
// report changed=false. The row is locked for the duration of the check so a
// racing confirm handler and webhook cannot both apply the update.
//
// A cancelled reservation stays cancelled: a confirm or webhook that lands
// after the fail landing or the sweeper must not resurrect the row. The
// caller keeps the payment record for manual reconciliation.
func (r *ReservationRepository) MarkPaidIdempotent(ctx context.Context, id, paymentID, paymentKey, method string, amount int64, paidAt time.Time) (bool, error) {
	var changed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m reservationModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&m).Error; err != nil {
			return err
		}
		if m.PaymentStatus == string(domain.PaymentPaid) {
			changed = false
			return nil
		}
		if m.Status == string(domain.ReservationCancelled) {
			changed = false
			return nil
		}
		res := tx.Model(&reservationModel{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":         string(domain.ReservationPending),
			"payment_status": string(domain.PaymentPaid),
			"payment_id":     paymentID,
			"payment_key":    paymentKey,
			"payment_method": method,
			"paid_amount":    amount,
			"paid_at":        paidAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("reservation row not updated")
		}
		changed = true
		return nil
	})
	return changed, err
}

// ResetForRetry returns a reservation to the unpaid draft state under a new
// order id so the client can launch the payment widget again.
func (r *ReservationRepository) ResetForRetry(ctx context.Context, id, orderID string) error {
	res := r.db.WithContext(ctx).
		Model(&reservationModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         string(domain.ReservationPendingPayment),
			"payment_status": string(domain.PaymentUnpaid),
			"order_id":       orderID,
			"cancelled_at":   nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ReservationRepository) SetPaymentFailed(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&reservationModel{}).
		Where("id = ?", id).
		Update("payment_status", string(domain.PaymentFailed)).Error
}

func (r *ReservationRepository) SetRefunded(ctx context.Context, id string, status domain.PaymentStatus, reason string, cancelledAt time.Time) error {
	updates := map[string]interface{}{
		"payment_status": string(status),
	}
	if status == domain.PaymentRefunded {
		updates["status"] = string(domain.ReservationCancelled)
		updates["cancellation_reason"] = reason
		updates["cancelled_at"] = cancelledAt
	}
	return r.db.WithContext(ctx).
		Model(&reservationModel{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *ReservationRepository) Cancel(ctx context.Context, id, reason string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&reservationModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":              string(domain.ReservationCancelled),
			"cancellation_reason": reason,
			"cancelled_at":        at,
		}).Error
}

func (r *ReservationRepository) AssignTechnician(ctx context.Context, id, technicianID, technicianName string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&reservationModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"technician_id":   technicianID,
			"technician_name": technicianName,
			"assigned_at":     at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListStaleUnpaid returns pending_payment reservations created before the
// cutoff. The sweeper cancels these.
func (r *ReservationRepository) ListStaleUnpaid(ctx context.Context, cutoff time.Time) ([]*domain.Reservation, error) {
	var models []reservationModel
	tx := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(domain.ReservationPendingPayment), cutoff).
		Find(&models)
	if tx.Error != nil {
		return nil, tx.Error
	}
	out := make([]*domain.Reservation, 0, len(models))
	for _, m := range models {
		out = append(out, toDomainReservation(m))
	}
	return out, nil
}
