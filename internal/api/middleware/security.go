package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// sessionPathPrefix 同时覆盖 /api/v1/session、/api/v1/session/* 与 /api/v1/sessions
const sessionPathPrefix = "/api/v1/session"

// SecurityHeaders 安全 HTTP 头中间件
// 接口只返回 JSON 与导出文件；会话接口（含创建会话）禁止缓存
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		if strings.HasPrefix(c.Request.URL.Path, sessionPathPrefix) {
			c.Header("Cache-Control", "no-store")
		}

		c.Next()
	}
}
