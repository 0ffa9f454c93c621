// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taible-storage-go/internal/errs"
	"taible-storage-go/pkg/log"
)

// Response 是所有端点共用的统一响应格式，成功和失败使用同一结构。
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Message   string      `json:"message"`
	Code      int         `json:"code"`
	ErrorType *string     `json:"error_type"`
}

// OK 以统一格式返回成功响应。
func OK(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, Response{
		Success: true,
		Data:    data,
		Message: message,
		Code:    status,
	})
}

// Fail 把业务错误翻译为 HTTP 状态码和统一格式的失败响应。
// 服务错误的底层细节只在 debug 模式下返回给客户端，否则只记日志。
func Fail(c *gin.Context, err error, debug bool) {
	e, ok := errs.As(err)
	if !ok {
		log.Errorf("未处理的异常: %v", err)
		message := "服务器内部错误"
		if debug {
			message = err.Error()
		}
		errType := errs.TypeUnhandled
		c.JSON(http.StatusInternalServerError, Response{
			Success:   false,
			Message:   message,
			Code:      http.StatusInternalServerError,
			ErrorType: &errType,
		})
		return
	}

	message := e.Message
	if debug && e.Err != nil {
		message = e.Error()
	}
	errType := e.Type
	c.JSON(e.Status, Response{
		Success:   false,
		Message:   message,
		Code:      e.Status,
		ErrorType: &errType,
	})
}
