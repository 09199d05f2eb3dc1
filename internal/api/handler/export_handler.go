package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Naveen-Pal/timetable-2024-25/internal/dto"
	"github.com/Naveen-Pal/timetable-2024-25/internal/service"
	"github.com/Naveen-Pal/timetable-2024-25/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	sessionSvc service.SessionService
	exportSvc  service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(sessionSvc service.SessionService, exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{sessionSvc: sessionSvc, exportSvc: exportSvc}
}

// ListFormats 可用的导出格式
// GET /api/v1/export/formats
func (h *ExportHandler) ListFormats(c *gin.Context) {
	response.OK(c, dto.ExportFormatsResponse{Formats: h.exportSvc.Formats()})
}

// ExportGrid 导出当前会话的课表
// GET /api/v1/session/export/:format
func (h *ExportHandler) ExportGrid(c *gin.Context) {
	format := c.Param("format")
	if format == "" {
		response.BadRequest(c, 10001, "导出格式不能为空")
		return
	}

	id, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	res, err := h.sessionSvc.Export(c.Request.Context(), id, format)
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.Attachment(c, res.Filename, res.ContentType, res.Data)
}
