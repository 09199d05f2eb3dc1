package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Naveen-Pal/timetable-2024-25/internal/dto"
	"github.com/Naveen-Pal/timetable-2024-25/internal/service"
)

// TimetableHandler 课表后端 Handler
//
// 对外提供与远程课表后端相同的线格式（不使用统一响应信封）：
//   - POST /api/timetable       结构化形态 {"monday": [{time, class}]}
//   - POST /api/timetable/text  文本形态 {"text": "..."}
//
// 失败时返回 {"error": "..."}，远程课表源据此提取错误信息。
type TimetableHandler struct {
	builder *service.ScheduleBuilder
}

// NewTimetableHandler 创建 TimetableHandler 实例
func NewTimetableHandler(builder *service.ScheduleBuilder) *TimetableHandler {
	return &TimetableHandler{builder: builder}
}

// Structured 生成结构化课表
// POST /api/timetable
func (h *TimetableHandler) Structured(c *gin.Context) {
	codes, ok := bindTimetableCourses(c)
	if !ok {
		return
	}

	tt, err := h.builder.BuildStructured(c.Request.Context(), codes)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	c.JSON(http.StatusOK, tt)
}

// Text 生成文本课表
// POST /api/timetable/text
func (h *TimetableHandler) Text(c *gin.Context) {
	codes, ok := bindTimetableCourses(c)
	if !ok {
		return
	}

	text, err := h.builder.BuildText(c.Request.Context(), codes)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TextTimetable{Text: text})
}

// bindTimetableCourses 读取 {"courses": [...]}；缺失或为空一律视为未选课
func bindTimetableCourses(c *gin.Context) ([]string, bool) {
	var req dto.TimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Courses) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No courses selected"})
		return nil, false
	}
	return req.Courses, true
}

func handleTimetableError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrSelectionEmpty) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No courses selected"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate timetable: " + err.Error()})
}
