package reservation

import (
	"errors"
	"net/http"
	"strconv"

	"charzing/internal/domain"
	"charzing/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/reservations", h.Create)
	rg.GET("/reservations/my", h.GetMy)
	rg.GET("/reservations/:id", h.GetByID)
	rg.POST("/reservations/:id/cancel", h.Cancel)
	rg.POST("/reservations/:id/retry-payment", h.RetryPayment)
}

// RegisterStaffRoutes are mounted behind the role middleware for admins and
// technicians.
func (h *Handler) RegisterStaffRoutes(rg *gin.RouterGroup) {
	rg.GET("/reservations", h.ListByStatus)
	rg.PATCH("/reservations/:id/status", h.UpdateStatus)
	rg.POST("/reservations/:id/assign", h.AssignTechnician)
}

func requester(c *gin.Context) (string, domain.UserRole) {
	return c.GetString("user_id"), domain.UserRole(c.GetString("role"))
}

// Create godoc
// @Summary      Create a diagnosis reservation
// @Description  Creates a reservation in pending_payment with a fresh order id
// @Tags         Reservations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body CreateReservationRequest true "Reservation details"
// @Success      201 {object} domain.Reservation
// @Router       /reservations [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	userID, _ := requester(c)
	r, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "requested date must be in the future")
		case errors.Is(err, ErrActiveReservationExists):
			response.Error(c, http.StatusConflict, "ACTIVE_RESERVATION_EXISTS", "이미 진행 중인 예약이 있습니다.")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		}
		return
	}
	response.Success(c, http.StatusCreated, r)
}

// GetMy godoc
// @Summary      List my reservations
// @Tags         Reservations
// @Security     BearerAuth
// @Produce      json
// @Param        limit query int false "Page size (default 20, max 100)"
// @Param        offset query int false "Offset"
// @Success      200 {array} domain.Reservation
// @Router       /reservations/my [get]
func (h *Handler) GetMy(c *gin.Context) {
	userID, _ := requester(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.service.GetMy(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}
	response.Success(c, http.StatusOK, list)
}

// GetByID godoc
// @Summary      Get one reservation
// @Tags         Reservations
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Reservation ID"
// @Success      200 {object} domain.Reservation
// @Router       /reservations/{id} [get]
func (h *Handler) GetByID(c *gin.Context) {
	userID, role := requester(c)
	r, err := h.service.GetByID(c.Request.Context(), c.Param("id"), userID, role)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

// Cancel godoc
// @Summary      Cancel a reservation
// @Description  Idempotent; paid reservations must be refunded instead
// @Tags         Reservations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Reservation ID"
// @Param        body body CancelReservationRequest false "Cancellation reason"
// @Success      200 {object} domain.Reservation
// @Router       /reservations/{id}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	var req CancelReservationRequest
	_ = c.ShouldBindJSON(&req)

	userID, role := requester(c)
	r, err := h.service.Cancel(c.Request.Context(), c.Param("id"), userID, role, req.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

// RetryPayment godoc
// @Summary      Issue a new order id for a payment retry
// @Tags         Reservations
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Reservation ID"
// @Success      200 {object} RetryPaymentResponse
// @Router       /reservations/{id}/retry-payment [post]
func (h *Handler) RetryPayment(c *gin.Context) {
	userID, role := requester(c)
	r, err := h.service.RetryPayment(c.Request.Context(), c.Param("id"), userID, role)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, RetryPaymentResponse{
		ReservationID: r.ID,
		OrderID:       r.OrderID,
		Status:        string(r.Status),
	})
}

// ListByStatus godoc
// @Summary      List reservations in a lifecycle status (staff)
// @Tags         Reservations
// @Security     BearerAuth
// @Produce      json
// @Param        status query string true "Reservation status"
// @Success      200 {array} domain.Reservation
// @Router       /staff/reservations [get]
func (h *Handler) ListByStatus(c *gin.Context) {
	status := domain.ReservationStatus(c.Query("status"))
	list, err := h.service.ListByStatus(c.Request.Context(), status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}

// UpdateStatus godoc
// @Summary      Move a reservation along the lifecycle
// @Tags         Reservations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Reservation ID"
// @Param        body body UpdateStatusRequest true "Target status"
// @Success      200 {object} domain.Reservation
// @Router       /reservations/{id}/status [patch]
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	r, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), domain.ReservationStatus(req.Status))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

// AssignTechnician godoc
// @Summary      Assign a technician to a paid reservation
// @Tags         Reservations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Reservation ID"
// @Param        body body AssignTechnicianRequest true "Technician"
// @Success      200 {object} domain.Reservation
// @Router       /reservations/{id}/assign [post]
func (h *Handler) AssignTechnician(c *gin.Context) {
	var req AssignTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	r, err := h.service.AssignTechnician(c.Request.Context(), c.Param("id"), req.TechnicianID, req.TechnicianName)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "reservation not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "forbidden")
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "validation error")
	case errors.Is(err, ErrActiveReservationExists):
		response.Error(c, http.StatusConflict, "ACTIVE_RESERVATION_EXISTS", "이미 진행 중인 예약이 있습니다.")
	case errors.Is(err, ErrInvalidStatusTransition):
		response.Error(c, http.StatusConflict, "INVALID_STATUS_TRANSITION", "invalid status transition")
	case errors.Is(err, ErrAlreadyCompleted):
		response.Error(c, http.StatusConflict, "ALREADY_COMPLETED", "completed reservations cannot change")
	case errors.Is(err, ErrAlreadyPaid):
		response.Error(c, http.StatusConflict, "ALREADY_PAID", "이미 결제가 완료된 예약입니다.")
	case errors.Is(err, ErrRefundRequired):
		response.Error(c, http.StatusConflict, "REFUND_REQUIRED", "결제 취소(환불)를 통해 예약을 취소해 주세요.")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}
