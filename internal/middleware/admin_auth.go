package middleware

import (
	"net/http"

	"whispr-go/internal/service"

	"github.com/gin-gonic/gin"
)

// 管理员会话在 gin.Context 中的键。
const (
	ContextAdminID     = "adminId"
	ContextAdminClaims = "adminClaims"
)

// AdminAuthMiddleware 校验管理员会话 cookie。
func AdminAuthMiddleware(authService service.AdminAuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(service.AdminSessionCookie)
		if err != nil || cookie == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "Admin login required.",
			})
			return
		}
		claims, err := authService.Verify(cookie)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "Admin session is invalid or has expired.",
			})
			return
		}
		c.Set(ContextAdminID, claims.AdminID)
		c.Set(ContextAdminClaims, claims)
		c.Next()
	}
}
