package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware 检查登录邮箱是否属于允许的域名（例如 "@example.com"）。
// 此中间件必须在 AuthMiddleware 之后使用。allowedDomain 为空时放行所有已认证用户。
func AdminAuthMiddleware(allowedDomain string) gin.HandlerFunc {
	allowedDomain = strings.ToLower(strings.TrimSpace(allowedDomain))
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "No se pudo obtener el usuario"})
			return
		}

		if allowedDomain != "" && !strings.HasSuffix(strings.ToLower(claims.Email), allowedDomain) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "No tienes permiso para acceder"})
			return
		}
		c.Next()
	}
}
