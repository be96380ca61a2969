// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"
	CodeDuplicateID        ErrorCode = "1009"
	CodeInvalidReference   ErrorCode = "1010"

	// 认证错误 (2xxx)
	CodeUnauthorized ErrorCode = "2001"
	CodeForbidden    ErrorCode = "2003"
	CodeRateLimited  ErrorCode = "2029"

	// 资源错误 (3xxx)
	CodeEntityNotFound       ErrorCode = "3003"
	CodeEventNotFound        ErrorCode = "3005"
	CodeRelationshipNotFound ErrorCode = "3006"
	CodeSnapshotNotFound     ErrorCode = "3007"

	// 业务错误 (4xxx)
	CodeValidationFailed  ErrorCode = "4002"
	CodeConsistencyFailed ErrorCode = "4007"

	// 外部服务错误 (5xxx)
	CodeDatabaseError  ErrorCode = "5001"
	CodeCacheError     ErrorCode = "5002"
	CodeMessagingError ErrorCode = "5006"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg = msg + " (" + e.Detail + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码匹配，资源类 NotFound 同时匹配通用 NotFound
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	return t.Code == CodeNotFound && isNotFoundCode(e.Code)
}

// WithDetail 返回附带详细信息的副本，不修改预定义错误
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 返回附带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

func isNotFoundCode(code ErrorCode) bool {
	switch code {
	case CodeNotFound, CodeEntityNotFound, CodeEventNotFound, CodeRelationshipNotFound, CodeSnapshotNotFound:
		return true
	}
	return false
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeInvalidReference:
		return http.StatusBadRequest
	case CodeConflict, CodeDuplicateID:
		return http.StatusConflict
	case CodeValidationFailed:
		return http.StatusUnprocessableEntity
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	}
	if isNotFoundCode(code) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrDuplicateID      = New(CodeDuplicateID, "duplicate id")
	ErrInvalidReference = New(CodeInvalidReference, "invalid reference")

	ErrEntityNotFound       = New(CodeEntityNotFound, "entity not found")
	ErrEventNotFound        = New(CodeEventNotFound, "timeline event not found")
	ErrRelationshipNotFound = New(CodeRelationshipNotFound, "relationship not found")
	ErrSnapshotNotFound     = New(CodeSnapshotNotFound, "snapshot not found")

	ErrValidationFailed = New(CodeValidationFailed, "validation failed")

	ErrUnauthorized = New(CodeUnauthorized, "unauthorized")
	ErrForbidden    = New(CodeForbidden, "forbidden")
	ErrRateLimited  = New(CodeRateLimited, "too many requests")

	ErrCacheUnavailable = New(CodeCacheError, "cache unavailable")
	ErrDatabase         = New(CodeDatabaseError, "database error")
	ErrMessaging        = New(CodeMessagingError, "messaging error")
)

// IsAppError 检查错误链中是否包含 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
