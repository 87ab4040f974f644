package payment

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"charzing/internal/domain"
	"charzing/internal/pkg/response"
	"charzing/internal/toss"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
	loggerf func(format string, args ...interface{})
}

func NewHandler(service *Service, loggerf func(format string, args ...interface{})) *Handler {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Handler{service: service, loggerf: loggerf}
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/cancel", h.Cancel)
	rg.GET("/payments/:id", h.GetByID)
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	// confirm accepts both authenticated app users and the guest web flow
	rg.POST("/payments/confirm", h.Confirm)
	rg.POST("/payments/webhook", h.Webhook)
	rg.GET("/payments/success", h.SuccessLanding)
	rg.GET("/payments/fail", h.FailLanding)
}

// Confirm godoc
// @Summary      Confirm a widget payment
// @Description  Verifies paymentKey/orderId/amount with the provider and marks the reservation paid
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        body body ConfirmPaymentRequest true "Confirmation payload"
// @Success      200 {object} ConfirmPaymentResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /payments/confirm [post]
func (h *Handler) Confirm(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(strings.NewReader(string(body)))
	h.loggerf("level=info msg=payment confirm request request_body=%s", string(body))

	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.loggerf("level=error msg=invalid confirm payload err=%v", err)
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	resp, err := h.service.Confirm(c.Request.Context(), c.GetString("user_id"), req)
	if err != nil {
		h.loggerf("level=error msg=payment confirm failed order_id=%s err=%v", req.OrderID, err)
		h.writeError(c, err)
		return
	}
	h.loggerf("level=info msg=payment confirmed order_id=%s payment_id=%s", req.OrderID, resp.PaymentID)
	response.Success(c, http.StatusOK, resp)
}

// Cancel godoc
// @Summary      Cancel (refund) a payment
// @Tags         Payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body CancelPaymentRequest true "Cancellation payload"
// @Success      200 {object} CancelPaymentResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /payments/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	var req CancelPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	userID := c.GetString("user_id")
	role := domain.UserRole(c.GetString("role"))
	resp, err := h.service.Cancel(c.Request.Context(), userID, role, req)
	if err != nil {
		h.loggerf("level=error msg=payment cancel failed payment_id=%s err=%v", req.PaymentID, err)
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// GetByID godoc
// @Summary      Payment detail with cancel history
// @Tags         Payments
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Payment ID"
// @Success      200 {object} PaymentDetail
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /payments/{id} [get]
func (h *Handler) GetByID(c *gin.Context) {
	userID := c.GetString("user_id")
	role := domain.UserRole(c.GetString("role"))
	resp, err := h.service.GetPayment(c.Request.Context(), userID, role, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// Webhook godoc
// @Summary      Provider webhook (backup confirmation path)
// @Tags         Payments
// @Accept       json
// @Produce      plain
// @Success      200 {string} string "OK"
// @Failure      404 {string} string "reservation not found"
// @Router       /payments/webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	rawBody, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(strings.NewReader(string(rawBody)))
	h.loggerf("level=info msg=payment webhook received raw_body=%s", string(rawBody))

	var event toss.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.String(http.StatusBadRequest, "bad request")
		return
	}

	ack, err := h.service.HandleWebhook(c.Request.Context(), event)
	if err != nil {
		h.loggerf("level=error msg=payment webhook failed order_id=%s err=%v", event.Data.OrderID, err)
		switch {
		case errors.Is(err, ErrReservationNotFound):
			c.String(http.StatusNotFound, "reservation not found")
		case errors.Is(err, ErrValidation), errors.Is(err, ErrPaymentVerificationFailed):
			c.String(http.StatusBadRequest, "bad request")
		default:
			c.String(http.StatusInternalServerError, "internal error")
		}
		return
	}
	c.String(http.StatusOK, ack)
}

// SuccessLanding godoc
// @Summary      Widget success redirect landing
// @Description  Reports whether the orderId is confirmed; never changes state
// @Tags         Payments
// @Produce      json
// @Param        orderId query string true "Order ID"
// @Success      200 {object} LandingResponse
// @Router       /payments/success [get]
func (h *Handler) SuccessLanding(c *gin.Context) {
	orderID := c.Query("orderId")
	if orderID == "" {
		response.Fail(c, http.StatusBadRequest, "orderId가 필요합니다.")
		return
	}
	resp, err := h.service.CheckOrder(c.Request.Context(), orderID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// FailLanding godoc
// @Summary      Widget fail redirect landing
// @Description  Cancels the still-unpaid reservation; idempotent
// @Tags         Payments
// @Produce      json
// @Param        orderId query string true "Order ID"
// @Param        code query string false "Provider failure code"
// @Param        message query string false "Provider failure message"
// @Success      200 {object} LandingResponse
// @Router       /payments/fail [get]
func (h *Handler) FailLanding(c *gin.Context) {
	orderID := c.Query("orderId")
	if orderID == "" {
		response.Fail(c, http.StatusBadRequest, "orderId가 필요합니다.")
		return
	}
	h.loggerf("level=info msg=payment fail landing order_id=%s code=%s message=%s", orderID, c.Query("code"), c.Query("message"))

	resp, err := h.service.HandleFailLanding(c.Request.Context(), orderID, c.Query("code"), c.Query("message"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "validation error")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "payment not found")
	case errors.Is(err, ErrReservationNotFound):
		response.Error(c, http.StatusNotFound, "RESERVATION_NOT_FOUND", "예약을 찾을 수 없습니다.")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "forbidden")
	case errors.Is(err, ErrPaymentVerificationFailed):
		response.Error(c, http.StatusBadRequest, "PAYMENT_VERIFICATION_FAILED", "결제 검증에 실패했습니다.")
	case errors.Is(err, ErrCancelInProgress):
		response.Error(c, http.StatusConflict, "CANCEL_IN_PROGRESS", "이미 취소 처리가 진행 중입니다.")
	case errors.Is(err, ErrAlreadyCanceled):
		response.Error(c, http.StatusConflict, "ALREADY_CANCELED", "이미 취소된 결제입니다.")
	case errors.Is(err, ErrNoRefundableAmount):
		response.Error(c, http.StatusConflict, "NO_REFUNDABLE_AMOUNT", "환불 가능한 금액이 없습니다.")
	case errors.Is(err, ErrRefundExceedsBalance):
		response.Error(c, http.StatusBadRequest, "REFUND_EXCEEDS_BALANCE", "환불 금액이 잔액을 초과합니다.")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

type ErrorResponse struct {
	Error string `json:"error" example:"invalid request"`
}
