// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"z-novel-lore-api/pkg/utils"
)

// gin.Context 中的键
const (
	ContextKeySubject   = "subject"
	ContextKeyRole      = "role"
	ContextKeyRequestID = "request_id"
	ContextKeyTraceID   = "trace_id"
)

// AuthConfig 认证配置
type AuthConfig struct {
	Enabled bool
	Secret  string
	Issuer  string
	// SkipPaths 前缀匹配时跳过认证
	SkipPaths []string
}

// DefaultSkipPaths 默认跳过认证的路径
var DefaultSkipPaths = []string{"/health", "/ready", "/live", "/metrics"}

// Auth Bearer JWT 认证；关闭时以匿名编辑者身份放行
func Auth(cfg AuthConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Set(ContextKeySubject, "anonymous")
			c.Set(ContextKeyRole, utils.RoleEditor)
			c.Next()
		}
	}

	jwtManager := utils.NewJWTManager(cfg.Secret, cfg.Issuer)
	return func(c *gin.Context) {
		for _, p := range cfg.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, p) {
				c.Next()
				return
			}
		}

		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		switch {
		case !ok && scheme == "":
			abort(c, http.StatusUnauthorized, "missing authorization header")
			return
		case !ok || !strings.EqualFold(scheme, "Bearer") || token == "":
			abort(c, http.StatusUnauthorized, "invalid authorization format")
			return
		}

		claims, err := jwtManager.ParseToken(strings.TrimSpace(token))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, utils.ErrExpiredToken) {
				msg = "token expired"
			}
			abort(c, http.StatusUnauthorized, msg)
			return
		}
		if claims.Type != utils.TokenTypeAccess {
			abort(c, http.StatusUnauthorized, "invalid token type")
			return
		}

		c.Set(ContextKeySubject, claims.Subject)
		c.Set(ContextKeyRole, claims.Role)
		c.Next()
	}
}

// abort 以统一错误结构终止请求
func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":     status,
		"message":  msg,
		"trace_id": c.GetString(ContextKeyTraceID),
	})
}
