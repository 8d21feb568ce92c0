// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"whispr-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ContextUserID 是匿名用户 ID 在 gin.Context 中的键。
const ContextUserID = "userId"

// BearerToken 从 Authorization 请求头中提取 token，格式不正确时返回空串。
func BearerToken(c *gin.Context) string {
	const bearerPrefix = "Bearer "
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
}

// AuthMiddleware 创建一个 Gin 中间件，校验匿名身份 token 并把用户 ID 存入上下文。
func AuthMiddleware(identityService service.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := BearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "Missing or malformed authorization header.",
			})
			return
		}
		userID, err := identityService.Resolve(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "Invalid or expired identity token.",
			})
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}
