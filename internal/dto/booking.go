package dto

// ── 预订模块 DTO ──

// CreateBookingRequest 创建预订请求
type CreateBookingRequest struct {
	CourtID   string `json:"courtId"   binding:"required,max=36"`
	Date      string `json:"date"      binding:"required,datetime=2006-01-02"`
	StartTime string `json:"startTime" binding:"required,len=5"`
	EndTime   string `json:"endTime"   binding:"required,len=5"`
}

// RescheduleBookingRequest 改期请求
type RescheduleBookingRequest struct {
	Date      string `json:"date"      binding:"required,datetime=2006-01-02"`
	StartTime string `json:"startTime" binding:"required,len=5"`
	EndTime   string `json:"endTime"   binding:"required,len=5"`
}

// CancelBookingRequest 取消请求
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=200"`
}

// BookingResponse 预订信息
type BookingResponse struct {
	ID                 string  `json:"id"`
	TenantID           string  `json:"tenantId"`
	CourtID            string  `json:"courtId"`
	UserID             string  `json:"userId"`
	BookingDate        string  `json:"bookingDate"`
	StartTime          string  `json:"startTime"`
	EndTime            string  `json:"endTime"`
	Status             string  `json:"status"`
	PaymentStatus      string  `json:"paymentStatus"`
	Price              string  `json:"price"`
	ExpiresAt          *string `json:"expiresAt,omitempty"`
	RecurringID        *string `json:"recurringId,omitempty"`
	CancelledAt        *string `json:"cancelledAt,omitempty"`
	CancellationReason *string `json:"cancellationReason,omitempty"`
	Notes              *string `json:"notes,omitempty"`
}
