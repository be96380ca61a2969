// Package handler 提供 HTTP 请求处理器
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"z-novel-lore-api/internal/interfaces/http/dto"
	apperrors "z-novel-lore-api/pkg/errors"
	"z-novel-lore-api/pkg/logger"
)

// fail 输出业务错误；5xx 记录错误日志
func fail(c *gin.Context, op string, err error) {
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus == 0 || appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), op+" failed", err)
	}
	dto.Fail(c, err)
}

// bindJSON 解析请求体，失败时直接写 400
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// bindOptionalJSON 允许空请求体
func bindOptionalJSON(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, req)
}
