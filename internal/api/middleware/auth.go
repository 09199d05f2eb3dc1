package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Naveen-Pal/timetable-2024-25/pkg/jwt"
	"github.com/Naveen-Pal/timetable-2024-25/pkg/response"
)

// sessionIDKey 会话 ID 在 gin.Context 中的键，handler.MustGetSessionID 读取同一键
const sessionIDKey = "session_id"

// SessionAuth 会话令牌中间件
// 从 Authorization: Bearer <token> 中提取并验证会话令牌，将 session_id 注入上下文
func SessionAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少会话令牌，请先创建会话")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Unauthorized(c, 10003, "会话已过期，请重新创建")
			} else {
				response.Unauthorized(c, 10002, "会话令牌无效")
			}
			c.Abort()
			return
		}

		c.Set(sessionIDKey, claims.SessionID)
		c.Next()
	}
}

// adminTokenHeader 管理员令牌请求头，与会话令牌分开传递
const adminTokenHeader = "X-Admin-Token"

// AdminAuth 管理员令牌中间件，保护替换目录的导入接口
// adminToken 为空时接口关闭，一律 403
func AdminAuth(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminToken == "" {
			response.Forbidden(c, 10006, "目录导入未启用")
			c.Abort()
			return
		}

		got := c.GetHeader(adminTokenHeader)
		if got == "" {
			response.Unauthorized(c, 10002, "缺少管理员令牌")
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(adminToken)) != 1 {
			response.Forbidden(c, 10006, "无权限访问")
			c.Abort()
			return
		}

		c.Next()
	}
}
