package handler

import (
	"github.com/gin-gonic/gin"

	"turnero-padel/backend/internal/dto"
	"turnero-padel/backend/internal/service"
	"turnero-padel/backend/pkg/response"
)

// BookingHandler 预订模块 HTTP 处理器
// 权限判定在 service 内完成，这里只负责取上下文与绑定参数
type BookingHandler struct {
	bookingSvc service.BookingService
}

// NewBookingHandler 创建 BookingHandler
func NewBookingHandler(bookingSvc service.BookingService) *BookingHandler {
	return &BookingHandler{bookingSvc: bookingSvc}
}

// GetBooking 预订详情
// GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	t, ok := MustGetTenant(c)
	if !ok {
		return
	}

	booking, err := h.bookingSvc.Get(c.Request.Context(), p, t.ID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, booking)
}

// CreateBooking 创建预订
// POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	t, ok := MustGetTenant(c)
	if !ok {
		return
	}

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	booking, err := h.bookingSvc.Create(c.Request.Context(), p, t.ID, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, booking)
}

// RescheduleBooking 改期
// PUT /api/v1/bookings/:id/reschedule
func (h *BookingHandler) RescheduleBooking(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	t, ok := MustGetTenant(c)
	if !ok {
		return
	}

	var req dto.RescheduleBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	booking, err := h.bookingSvc.Reschedule(c.Request.Context(), p, t.ID, c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, booking)
}

// ConfirmBooking 确认支付
// POST /api/v1/bookings/:id/confirm
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	t, ok := MustGetTenant(c)
	if !ok {
		return
	}

	booking, err := h.bookingSvc.Confirm(c.Request.Context(), p, t.ID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, booking)
}

// CancelBooking 取消预订，请求体可省略
// POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	t, ok := MustGetTenant(c)
	if !ok {
		return
	}

	var req dto.CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
	}

	booking, err := h.bookingSvc.Cancel(c.Request.Context(), p, t.ID, c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, booking)
}
