package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Naveen-Pal/timetable-2024-25/internal/dto"
	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
	"github.com/Naveen-Pal/timetable-2024-25/internal/service"
	"github.com/Naveen-Pal/timetable-2024-25/pkg/response"
)

// TimeSlotHandler 时段布局模块 HTTP 处理器
type TimeSlotHandler struct {
	catalogSvc service.CatalogService
}

// NewTimeSlotHandler 创建 TimeSlotHandler
func NewTimeSlotHandler(catalogSvc service.CatalogService) *TimeSlotHandler {
	return &TimeSlotHandler{catalogSvc: catalogSvc}
}

// ListTimeSlots 获取时段布局
// GET /api/v1/time-slots
func (h *TimeSlotHandler) ListTimeSlots(c *gin.Context) {
	layout, err := h.catalogSvc.Layout(c.Request.Context())
	if err != nil {
		handleCatalogError(c, err)
		return
	}

	rows := make([]dto.TimeSlotRowResponse, 0, len(layout.Rows))
	for _, r := range layout.Rows {
		slots := make(map[string]string, len(r.Slots))
		for _, day := range model.Weekdays {
			if code, ok := r.Slots[day]; ok {
				slots[day.Key()] = code
			}
		}
		rows = append(rows, dto.TimeSlotRowResponse{Time: r.Label, Slots: slots})
	}

	response.OK(c, gin.H{"list": rows})
}

// ImportTimeSlots 导入时段布局
// POST /api/v1/catalog/time-slots
//
// multipart/form-data, field="file"；首列为时间标签，其余为工作日列
func (h *TimeSlotHandler) ImportTimeSlots(c *gin.Context) {
	f, format, ok := uploadedCatalogFile(c)
	if !ok {
		return
	}
	defer f.Close()

	resp, err := h.catalogSvc.ImportTimeSlots(c.Request.Context(), f, format)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	response.Created(c, resp)
}
