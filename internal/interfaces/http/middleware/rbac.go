package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"z-novel-lore-api/pkg/utils"
)

// RequireWrite 只允许编辑者与管理员修改注册表
func RequireWrite() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextKeyRole)
		if role == "" {
			abort(c, http.StatusForbidden, "missing role in context")
			return
		}
		if !utils.CanWrite(role) {
			abort(c, http.StatusForbidden, "permission denied")
			return
		}
		c.Next()
	}
}
