package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Naveen-Pal/timetable-2024-25/internal/dto"
	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
	"github.com/Naveen-Pal/timetable-2024-25/internal/service"
	apperrors "github.com/Naveen-Pal/timetable-2024-25/pkg/errors"
	"github.com/Naveen-Pal/timetable-2024-25/pkg/response"
)

// SessionHandler 选课会话模块 HTTP 处理器
type SessionHandler struct {
	sessionSvc service.SessionService
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(sessionSvc service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// CreateSession 创建会话
// POST /api/v1/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	resp, err := h.sessionSvc.Create(c.Request.Context())
	if err != nil {
		handleSessionError(c, err)
		return
	}
	response.Created(c, resp)
}

// GetSelection 当前选课
// GET /api/v1/session/selection
func (h *SessionHandler) GetSelection(c *gin.Context) {
	id, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	changed, err := h.sessionSvc.Selection(c.Request.Context(), id)
	if err != nil {
		handleSessionError(c, err)
		return
	}
	response.OK(c, toSelectionResponse(changed))
}

// ToggleCourse 切换选课
// POST /api/v1/session/selection/toggle
func (h *SessionHandler) ToggleCourse(c *gin.Context) {
	var req dto.ToggleCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	id, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	changed, err := h.sessionSvc.Toggle(c.Request.Context(), id, req.Code)
	if err != nil {
		handleSessionError(c, err)
		return
	}
	response.OK(c, toSelectionResponse(changed))
}

// RemoveCourse 取消一门课程
// DELETE /api/v1/session/selection/:code
func (h *SessionHandler) RemoveCourse(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		response.BadRequest(c, 10001, "课程编码不能为空")
		return
	}

	id, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	changed, err := h.sessionSvc.Remove(c.Request.Context(), id, code)
	if err != nil {
		handleSessionError(c, err)
		return
	}
	response.OK(c, toSelectionResponse(changed))
}

// ClearSelection 清空选课
// DELETE /api/v1/session/selection
func (h *SessionHandler) ClearSelection(c *gin.Context) {
	id, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	changed, err := h.sessionSvc.Clear(c.Request.Context(), id)
	if err != nil {
		handleSessionError(c, err)
		return
	}
	response.OK(c, toSelectionResponse(changed))
}

// Build 生成课表
// POST /api/v1/session/build
func (h *SessionHandler) Build(c *gin.Context) {
	id, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	grid, err := h.sessionSvc.Build(c.Request.Context(), id)
	if err != nil {
		handleSessionError(c, err)
		return
	}
	response.OK(c, toGridResponse(grid))
}

// GetGrid 最近一次成功生成的课表
// GET /api/v1/session/grid
func (h *SessionHandler) GetGrid(c *gin.Context) {
	id, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	grid, err := h.sessionSvc.Grid(c.Request.Context(), id)
	if err != nil {
		handleSessionError(c, err)
		return
	}
	response.OK(c, toGridResponse(grid))
}

// GetNotice 当前提示，无提示时 data 为 null
// GET /api/v1/session/notice
func (h *SessionHandler) GetNotice(c *gin.Context) {
	id, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	n, err := h.sessionSvc.Notice(c.Request.Context(), id)
	if err != nil {
		handleSessionError(c, err)
		return
	}
	if n == nil {
		response.OK(c, nil)
		return
	}
	response.OK(c, dto.NoticeResponse{Kind: string(n.Kind), Message: n.Message, ExpiresAt: n.ExpiresAt})
}

// EndSession 结束会话
// DELETE /api/v1/session
func (h *SessionHandler) EndSession(c *gin.Context) {
	id, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	if err := h.sessionSvc.End(c.Request.Context(), id); err != nil {
		handleSessionError(c, err)
		return
	}
	response.OK(c, nil)
}

// handleSessionError 统一处理会话模块业务错误
func handleSessionError(c *gin.Context, err error) {
	var nerr *service.NormalizationError
	var berr *service.BackendStatusError

	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Unauthorized(c, 21001, "会话不存在或已过期")
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 20001, "课程不存在")
	case errors.Is(err, service.ErrSelectionEmpty):
		response.BadRequest(c, 22001, "请至少选择一门课程")
	case errors.Is(err, service.ErrGridNotBuilt):
		response.BadRequest(c, 22002, "尚未生成课表")
	case errors.As(err, &berr):
		response.BadGateway(c, 22101, "课表后端返回错误", berr.Error())
	case errors.Is(err, service.ErrScheduleBackend):
		response.BadGateway(c, 22101, "课表后端请求失败", err.Error())
	case errors.As(err, &nerr):
		response.BadGateway(c, 22102, "课表数据无法识别", nerr.Reason)
	case errors.Is(err, service.ErrExportFormatUnknown):
		response.BadRequest(c, 23001, err.Error())
	case apperrors.KindOf(err) == apperrors.KindExport:
		response.Error(c, http.StatusInternalServerError, 23002, "导出失败")
	case apperrors.KindOf(err) == apperrors.KindInputValidation:
		response.BadRequest(c, 10001, err.Error())
	default:
		response.InternalError(c)
	}
}

// ── DTO 转换 ──

func toSelectionResponse(ch *service.SelectionChanged) dto.SelectionResponse {
	courses := ch.Selected
	if courses == nil {
		courses = []string{}
	}
	return dto.SelectionResponse{
		Op:          string(ch.Op),
		Code:        ch.Code,
		Courses:     courses,
		CreditTotal: ch.CreditTotal,
	}
}

func toGridResponse(g *model.GridModel) dto.GridResponse {
	resp := dto.GridResponse{
		Days:       make([]string, 0, len(model.Weekdays)),
		Rows:       make([]dto.GridRowResponse, 0, g.Len()),
		ClashCount: g.ClashCount(),
	}
	for _, day := range model.Weekdays {
		resp.Days = append(resp.Days, day.String())
	}
	for _, slot := range g.Slots() {
		row := dto.GridRowResponse{Time: slot, Cells: make(map[string]dto.GridCellResponse)}
		for _, day := range model.Weekdays {
			e, ok := g.Cell(slot, day)
			if !ok {
				continue
			}
			row.Cells[day.Key()] = dto.GridCellResponse{
				Code:     e.Class.Code,
				Name:     e.Class.Name,
				Type:     e.Class.Type,
				Location: e.Class.Location,
				Clash:    e.Clash,
			}
		}
		resp.Rows = append(resp.Rows, row)
	}
	return resp
}
