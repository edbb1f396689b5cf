package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"turnero-padel/backend/internal/dto"
	"turnero-padel/backend/internal/service"
	"turnero-padel/backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
	perm      *service.PermissionEvaluator
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, perm *service.PermissionEvaluator) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, perm: perm}
}

// ExportBookings 导出预订报表（租户管理员）
// GET /api/v1/admin/export/bookings.xlsx?from=&to=
func (h *ExportHandler) ExportBookings(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	t, ok := MustGetTenant(c)
	if !ok {
		return
	}
	if err := h.perm.AuthorizeTenantAdmin(c.Request.Context(), p, t.ID); err != nil {
		writeError(c, err)
		return
	}

	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportBookings(c.Request.Context(), t.ID, req.From, req.To)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, contentTypeXLSX, buf.Bytes())
}

// CourtCalendar 场地日历订阅
// GET /api/v1/courts/:id/calendar.ics?from=&to=
func (h *ExportHandler) CourtCalendar(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	t, ok := MustGetTenant(c)
	if !ok {
		return
	}
	if err := h.perm.Authorize(c.Request.Context(), p, t.ID, service.OpRead); err != nil {
		writeError(c, err)
		return
	}

	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	body, err := h.exportSvc.CourtCalendar(c.Request.Context(), t.ID, c.Param("id"), req.From, req.To)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Disposition", "inline; filename=court-"+url.PathEscape(c.Param("id"))+".ics")
	c.Data(http.StatusOK, contentTypeICS, []byte(body))
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrExportGenerateFail) {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, 40101, "生成导出文件失败")
		return
	}
	writeError(c, err)
}
