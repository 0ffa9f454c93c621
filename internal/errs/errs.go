// Package errs 定义了应用统一的错误分类。
// handler 层依据错误类型翻译为 HTTP 状态码和统一响应格式。
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// 错误类型名，随响应体中的 error_type 字段返回。
const (
	TypeValidation         = "ValidationError"
	TypeNotFound           = "NotFoundError"
	TypePreconditionFailed = "PreconditionFailed"
	TypeService            = "ServiceError"
	TypeUnhandled          = "UnhandledError"
)

// Error 携带错误分类、HTTP 状态码和面向客户端的消息。
// Err 保留底层原因，仅用于服务端日志，不会泄露给客户端。
type Error struct {
	Type    string
	Status  int
	Message string
	Err     error
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap 暴露底层错误，支持 errors.Is / errors.As 链式判断。
func (e *Error) Unwrap() error {
	return e.Err
}

// Validation 构造一个 422 数据验证错误。
func Validation(format string, args ...interface{}) *Error {
	return &Error{
		Type:    TypeValidation,
		Status:  http.StatusUnprocessableEntity,
		Message: fmt.Sprintf(format, args...),
	}
}

// NotFound 构造一个 404 资源不存在错误。
func NotFound(format string, args ...interface{}) *Error {
	return &Error{
		Type:    TypeNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// PreconditionFailed 构造一个 400 前置条件不满足错误。
func PreconditionFailed(format string, args ...interface{}) *Error {
	return &Error{
		Type:    TypePreconditionFailed,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf(format, args...),
	}
}

// Service 构造一个 500 外部服务错误，message 面向客户端，cause 只进日志。
func Service(message string, cause error) *Error {
	return &Error{
		Type:    TypeService,
		Status:  http.StatusInternalServerError,
		Message: message,
		Err:     cause,
	}
}

// As 尝试把任意 error 解析为 *Error。
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsType 判断 err 是否为指定分类的错误。
func IsType(err error, errType string) bool {
	e, ok := As(err)
	return ok && e.Type == errType
}
