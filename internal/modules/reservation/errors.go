package reservation

import "errors"

var (
	ErrValidation              = errors.New("validation error")
	ErrNotFound                = errors.New("reservation not found")
	ErrForbidden               = errors.New("forbidden")
	ErrActiveReservationExists = errors.New("active reservation already exists")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrAlreadyCompleted        = errors.New("reservation already completed")
	ErrAlreadyPaid             = errors.New("reservation already paid")
	ErrRefundRequired          = errors.New("paid reservation requires a refund, not a cancel")
)
