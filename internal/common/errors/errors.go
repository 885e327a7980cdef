// Package errors 定义业务错误码和错误处理
package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的应用错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Err:     e.Err,
	}
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown         = New(1000, "未知错误")
	ErrInvalidParams   = New(1001, "参数错误")
	ErrNotFound        = New(1002, "资源不存在")
	ErrAlreadyExists   = New(1003, "资源已存在")
	ErrDatabaseError   = New(1004, "数据库错误")
	ErrCacheError      = New(1005, "缓存错误")
	ErrInternalError   = New(1006, "内部错误")
	ErrExternalService = New(1007, "外部服务错误")
	ErrRateLimitExceed = New(1008, "请求过于频繁")
	ErrOperationFailed = New(1009, "操作失败")
)

// 认证错误码 (2000-2999)
var (
	ErrUnauthorized     = New(2000, "未登录")
	ErrTokenExpired     = New(2001, "登录已过期")
	ErrTokenInvalid     = New(2002, "无效的令牌")
	ErrPermissionDenied = New(2004, "权限不足")
	ErrAccountDisabled  = New(2005, "账号已禁用")
	ErrPasswordError    = New(2007, "用户名或密码错误")
)

// 客人错误码 (3000-3999)
var (
	ErrGuestNotFound = New(3000, "客人不存在")
	ErrGuestInvalid  = New(3001, "客人信息不完整")
)

// 房间与可用性错误码 (7000-7999)
var (
	ErrRoomNotFound      = New(7000, "房间不存在")
	ErrRoomInactive      = New(7001, "房间未开放")
	ErrInvalidDateRange  = New(7002, "无效的日期范围")
	ErrCapacityExceeded  = New(7003, "入住人数超过房间容量")
	ErrInvalidRoomConfig = New(7004, "房间价格或容量设置无效")
	ErrRoomHasBookings   = New(7005, "房间存在预订记录，无法删除")
)

// 预订错误码 (8000-8999)
var (
	ErrBookingNotFound      = New(8000, "预订不存在")
	ErrInvalidBookingStatus = New(8001, "无效的预订状态")
	ErrBookingConflict      = New(8002, "所选日期已被预订")
	ErrRoomBusy             = New(8003, "房间正在被其他预订处理，请稍后重试")
)

// 分析代理错误码 (9000-9999)
var (
	ErrUnknownAgent        = New(9000, "未知的分析代理")
	ErrUnknownAction       = New(9001, "未知的操作")
	ErrThresholdOutOfRange = New(9002, "价格变动阈值超出范围")
	ErrAnalysisFailed      = New(9003, "分析失败")
	ErrRemediationFailed   = New(9004, "修复失败")
)

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrUnknown.WithError(err)
}

// Is 判断 err 是否与目标应用错误码相同
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == target.Code
}
