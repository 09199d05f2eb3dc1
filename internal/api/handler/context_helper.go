package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/Naveen-Pal/timetable-2024-25/internal/service"
	"github.com/Naveen-Pal/timetable-2024-25/pkg/response"
)

// MustGetSessionID 从 Gin 上下文中安全提取 session_id。
// 如果会话中间件未正确注入 session_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetSessionID(c *gin.Context) (string, bool) {
	v, exists := c.Get("session_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// uploadedCatalogFile 读取 multipart 字段 "file" 并按文件名判断格式。
// 失败时已写入 400 响应，调用方应直接 return。
func uploadedCatalogFile(c *gin.Context) (io.ReadCloser, service.CatalogFormat, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "请上传目录文件（字段 file）")
		return nil, "", false
	}
	format, err := service.CatalogFormatFromFilename(fh.Filename)
	if err != nil {
		response.BadRequest(c, 20002, err.Error())
		return nil, "", false
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 10001, "读取上传文件失败")
		return nil, "", false
	}
	return f, format, true
}

