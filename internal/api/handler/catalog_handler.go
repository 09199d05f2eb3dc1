package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Naveen-Pal/timetable-2024-25/internal/service"
	"github.com/Naveen-Pal/timetable-2024-25/pkg/response"
)

// CatalogHandler 课程目录模块 HTTP 处理器
type CatalogHandler struct {
	catalogSvc service.CatalogService
}

// NewCatalogHandler 创建 CatalogHandler
func NewCatalogHandler(catalogSvc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc}
}

// ListCourses 获取课程目录
// GET /api/v1/courses
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	resp, err := h.catalogSvc.Catalog(c.Request.Context())
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	response.OK(c, resp)
}

// GetCourse 获取单门课程
// GET /api/v1/courses/:code
func (h *CatalogHandler) GetCourse(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		response.BadRequest(c, 10001, "课程编码不能为空")
		return
	}

	course, err := h.catalogSvc.GetCourse(c.Request.Context(), code)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	response.OK(c, gin.H{"code": course.Code, "name": course.Name, "credits": course.Credits})
}

// ImportCourses 导入课程目录
// POST /api/v1/catalog/courses
//
// multipart/form-data, field="file"，按扩展名识别 csv / xlsx
func (h *CatalogHandler) ImportCourses(c *gin.Context) {
	f, format, ok := uploadedCatalogFile(c)
	if !ok {
		return
	}
	defer f.Close()

	resp, err := h.catalogSvc.ImportCourses(c.Request.Context(), f, format)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	response.Created(c, resp)
}

// handleCatalogError 统一处理目录模块业务错误
func handleCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 20001, "课程不存在")
	case errors.Is(err, service.ErrCatalogFormatUnsupported):
		response.BadRequest(c, 20002, err.Error())
	case errors.Is(err, service.ErrCatalogHeaderInvalid):
		response.BadRequest(c, 20003, err.Error())
	case errors.Is(err, service.ErrCatalogEmpty):
		response.BadRequest(c, 20004, "目录文件中没有有效行")
	default:
		response.InternalError(c)
	}
}
