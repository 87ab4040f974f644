package payment

import "errors"

var (
	ErrValidation                = errors.New("validation error")
	ErrNotFound                  = errors.New("payment not found")
	ErrForbidden                 = errors.New("forbidden")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrCancelInProgress          = errors.New("cancellation already in progress")
	ErrAlreadyCanceled           = errors.New("payment already canceled")
	ErrNoRefundableAmount        = errors.New("no refundable balance")
	ErrRefundExceedsBalance      = errors.New("refund amount exceeds balance")
	ErrReservationNotFound       = errors.New("reservation not found")
)
