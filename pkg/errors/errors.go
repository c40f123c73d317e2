// Package errors 提供统一的错误定义
package errors

import (
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
	CodeNotFound           ErrorCode = "1002"
	CodeConflict           ErrorCode = "1003"
	CodeInternalError      ErrorCode = "1004"
	CodeServiceUnavailable ErrorCode = "1005"

	// 配置错误 (2xxx)
	CodeConfigInvalid     ErrorCode = "2001"
	CodeCredentialMissing ErrorCode = "2002"

	// 资源错误 (3xxx)
	CodeSessionNotFound   ErrorCode = "3001"
	CodeCharacterNotFound ErrorCode = "3002"
	CodeStoryNotStarted   ErrorCode = "3003"
	CodeStoryComplete     ErrorCode = "3004"
	CodeExportNotReady    ErrorCode = "3005"

	// 业务错误 (4xxx)
	CodeGenerationFailed ErrorCode = "4001"
	CodeRewriteFailed    ErrorCode = "4002"
	CodeEmbeddingFailed  ErrorCode = "4003"

	// 外部服务错误 (5xxx)
	CodeBackendUnavailable ErrorCode = "5001"
	CodeBackendCallFailed  ErrorCode = "5002"
	CodeStoreUnavailable   ErrorCode = "5003"
	CodeCacheError         ErrorCode = "5004"
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
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 添加详细信息
// 返回副本，预定义错误可安全复用。
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 添加底层错误
// 返回副本，预定义错误可安全复用。
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

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeStoryNotStarted:
		return http.StatusBadRequest
	case CodeNotFound, CodeSessionNotFound, CodeCharacterNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeStoryComplete, CodeExportNotReady:
		return http.StatusConflict
	case CodeBackendUnavailable, CodeStoreUnavailable, CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeBackendCallFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrCredentialMissing = New(CodeCredentialMissing, "llm api credential missing")

	ErrSessionNotFound = New(CodeSessionNotFound, "story session not found")
	ErrStoryNotStarted = New(CodeStoryNotStarted, "story not started")
	ErrStoryComplete   = New(CodeStoryComplete, "story already complete")
	ErrExportNotReady  = New(CodeExportNotReady, "story is not complete yet")

	ErrBackendUnavailable = New(CodeBackendUnavailable, "model backend not configured")
	ErrBackendCallFailed  = New(CodeBackendCallFailed, "model backend call failed")
	ErrStoreUnavailable   = New(CodeStoreUnavailable, "vector store unavailable")
	ErrEmbeddingFailed    = New(CodeEmbeddingFailed, "embedding failed")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
