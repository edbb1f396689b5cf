package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"turnero-padel/backend/internal/service"
	pkgerrors "turnero-padel/backend/pkg/errors"
	"turnero-padel/backend/pkg/response"
)

// bizError 业务错误到响应码的映射
type bizError struct {
	err    error
	status int
	code   int
}

// 顺序即匹配优先级：具体错误在前，分类兜底在后
var bizErrors = []bizError{
	{service.ErrInvalidDate, http.StatusBadRequest, 20001},
	{service.ErrInvalidDateRange, http.StatusBadRequest, 20002},
	{service.ErrInvalidTimeRange, http.StatusBadRequest, 20003},
	{service.ErrOutsideHours, http.StatusBadRequest, 20004},
	{service.ErrBookingInPast, http.StatusBadRequest, 20005},
	{service.ErrInvalidSetting, http.StatusBadRequest, 20006},
	{service.ErrCourtNotFound, http.StatusNotFound, 20101},
	{service.ErrBookingNotFound, http.StatusNotFound, 20102},
	{service.ErrSlotUnavailable, http.StatusConflict, 20201},
	{service.ErrSlotBlocked, http.StatusConflict, 20202},
	{service.ErrBookingNotPending, http.StatusConflict, 20203},
	{service.ErrBookingCancelled, http.StatusConflict, 20204},
	{service.ErrTenantNotFound, http.StatusNotFound, 30001},
	{pkgerrors.ErrValidation, http.StatusBadRequest, 10001},
	{pkgerrors.ErrNotFound, http.StatusNotFound, 10006},
	{pkgerrors.ErrConflict, http.StatusConflict, 10007},
}

// writeError 统一把 service 错误写成响应
func writeError(c *gin.Context, err error) {
	if tier, ok := pkgerrors.MissingTier(err); ok {
		response.ForbiddenTier(c, tier)
		return
	}
	if errors.Is(err, pkgerrors.ErrPermission) {
		response.Forbidden(c, 10003, "无权限访问")
		return
	}
	for _, be := range bizErrors {
		if errors.Is(err, be.err) {
			response.Error(c, be.status, be.code, be.err.Error())
			return
		}
	}
	_ = c.Error(err)
	response.InternalError(c)
}

// writeBindError 参数绑定失败；请求体超限时返回 413
func writeBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.PayloadTooLarge(c)
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
}
