package handler

import "github.com/Naveen-Pal/timetable-2024-25/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Catalog   *CatalogHandler
	TimeSlot  *TimeSlotHandler
	Session   *SessionHandler
	Export    *ExportHandler
	Timetable *TimetableHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Catalog:   NewCatalogHandler(svc.Catalog),
		TimeSlot:  NewTimeSlotHandler(svc.Catalog),
		Session:   NewSessionHandler(svc.Session),
		Export:    NewExportHandler(svc.Session, svc.Export),
		Timetable: NewTimetableHandler(svc.Builder),
	}
}
