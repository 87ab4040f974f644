package reservation

import "time"

type CreateReservationRequest struct {
	VehicleBrand       string    `json:"vehicle_brand" binding:"required"`
	VehicleModel       string    `json:"vehicle_model" binding:"required"`
	VehicleYear        string    `json:"vehicle_year"`
	VehiclePlateNumber string    `json:"vehicle_plate_number"`
	RequestedDate      time.Time `json:"requested_date" binding:"required"`
	Address            string    `json:"address" binding:"required"`
	DetailAddress      string    `json:"detail_address"`
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	ServiceType        string    `json:"service_type" binding:"required,oneof=standard premium"`
	ServicePrice       int64     `json:"service_price" binding:"required,gt=0"`
	Notes              string    `json:"notes"`
}

type CancelReservationRequest struct {
	Reason string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type AssignTechnicianRequest struct {
	TechnicianID   string `json:"technician_id" binding:"required"`
	TechnicianName string `json:"technician_name" binding:"required"`
}

type RetryPaymentResponse struct {
	ReservationID string `json:"reservation_id"`
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
}
