// Package response 提供统一的 API 响应格式
//
// 业务结果（包括业务错误）一律返回 HTTP 200，由 code 区分，0 表示成功；
// 请求本身不合法（参数、认证、限流、内部错误）时使用对应的 HTTP 状态码并中止后续处理。
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CodeSuccess 成功响应的业务码
const CodeSuccess = 0

// Response API 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageData 分页数据
type PageData struct {
	List     interface{} `json:"list"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	SuccessWithMessage(c, "success", data)
}

// SuccessWithMessage 成功响应，使用自定义提示
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: CodeSuccess, Message: message, Data: data})
}

// SuccessPage 分页成功响应
func SuccessPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	Success(c, PageData{List: list, Total: total, Page: page, PageSize: pageSize})
}

// Error 业务错误响应
func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, code, message, nil)
}

// ErrorWithData 带数据的业务错误响应，代理分析失败时用于返回日志轨迹
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: code, Message: message, Data: data})
}

// BadRequest 400
func BadRequest(c *gin.Context, message string) {
	Abort(c, http.StatusBadRequest, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, message string) {
	Abort(c, http.StatusUnauthorized, message)
}

// InternalError 500
func InternalError(c *gin.Context, message string) {
	Abort(c, http.StatusInternalServerError, message)
}

// TooManyRequests 429
func TooManyRequests(c *gin.Context, message string) {
	Abort(c, http.StatusTooManyRequests, message)
}

// Abort 以 HTTP 状态码作为 code 写入响应并中止处理链，message 为空时用状态码的标准描述
func Abort(c *gin.Context, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, Response{Code: status, Message: message})
}
