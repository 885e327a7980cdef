// Package handler 提供 API Handler 的通用辅助函数
// 用于减少 Handler 层的代码重复，统一错误处理、认证检查、参数解析等操作
package handler

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/bnb-booking-backend/internal/common/dateutil"
	"github.com/dumeirei/bnb-booking-backend/internal/common/errors"
	"github.com/dumeirei/bnb-booking-backend/internal/common/response"
	"github.com/dumeirei/bnb-booking-backend/internal/common/utils"
	"github.com/dumeirei/bnb-booking-backend/internal/middleware"
)

// ============================================================================
// 统一错误处理
// ============================================================================

// HandleError 处理错误并发送适当的响应
// 如果 err 为 nil，返回 false（表示无错误需要处理）
// 如果 err 不为 nil，发送错误响应并返回 true（表示已处理错误，调用方应该 return）
//
// 使用示例:
//
//	result, err := service.DoSomething()
//	if HandleError(c, err) {
//	    return
//	}
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	return HandleErrorWithMessage(c, err, err.Error())
}

// HandleErrorWithMessage 处理错误，对非 AppError 使用自定义消息
// 适用于需要隐藏内部错误详情的场景
func HandleErrorWithMessage(c *gin.Context, err error, message string) bool {
	if err == nil {
		return false
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		response.Error(c, appErr.Code, appErr.Message)
		return true
	}
	response.InternalError(c, message)
	return true
}

// MustSucceed 便捷封装：如果有错误则返回错误响应，否则返回成功响应
// 调用 MustSucceed 后必须 return
func MustSucceed(c *gin.Context, err error, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.Success(c, data)
}

// MustSucceedWithMessage 便捷封装：带自定义成功消息
func MustSucceedWithMessage(c *gin.Context, err error, message string, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.SuccessWithMessage(c, message, data)
}

// MustSucceedPage 便捷封装：分页响应版本
//
// 使用示例:
//
//	list, total, err := service.List(ctx, p.Page, p.PageSize)
//	MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
//	return
func MustSucceedPage(c *gin.Context, err error, list interface{}, total int64, page, pageSize int) {
	if HandleError(c, err) {
		return
	}
	response.SuccessPage(c, list, total, page, pageSize)
}

// ============================================================================
// 管理员认证检查
// ============================================================================

// RequireAdminID 获取当前管理员ID，如果未登录则返回401响应
// 返回 (0, false) 时已发送响应，调用方应该 return
func RequireAdminID(c *gin.Context) (int64, bool) {
	adminID := middleware.GetAdminID(c)
	if adminID == 0 {
		response.Unauthorized(c, "请先登录")
		return 0, false
	}
	return adminID, true
}

// ============================================================================
// ID 参数解析
// ============================================================================

// ParseID 解析路径参数 "id" 为 int64
// 返回 (0, false) 表示解析失败（已发送400响应，调用方应该 return）
func ParseID(c *gin.Context, resourceName string) (int64, bool) {
	return ParseParamID(c, "id", resourceName)
}

// ParseParamID 解析指定路径参数为 int64
// paramName: 路径参数名称（如 "id", "room_id"）
// resourceName: 资源名称，用于错误消息（如 "房间", "预订"）
func ParseParamID(c *gin.Context, paramName, resourceName string) (int64, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return 0, false
	}
	return id, true
}

// ParseQueryID 解析查询参数中的可选 ID
// 参数为空返回 (nil, true)，解析失败返回 (nil, false)（已发送400响应）
func ParseQueryID(c *gin.Context, paramName, resourceName string) (*int64, bool) {
	idStr := c.Query(paramName)
	if idStr == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return nil, false
	}
	return utils.Int64Ptr(id), true
}

// ParseQueryInt 解析查询参数中的整数，参数为空时返回默认值
func ParseQueryInt(c *gin.Context, paramName string, defaultValue int) (int, bool) {
	s := c.Query(paramName)
	if s == "" {
		return defaultValue, true
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		response.BadRequest(c, "无效的参数 "+paramName)
		return 0, false
	}
	return v, true
}

// ============================================================================
// 日期解析辅助
// ============================================================================

// ParseQueryDate 从查询参数解析日期 (YYYY-MM-DD)
// 参数为空返回 (nil, true)，解析失败返回 (nil, false)（已发送400响应）
func ParseQueryDate(c *gin.Context, paramName string) (*time.Time, bool) {
	s := c.Query(paramName)
	if s == "" {
		return nil, true
	}
	t, err := dateutil.Parse(s)
	if err != nil {
		response.BadRequest(c, "无效的日期格式: "+paramName)
		return nil, false
	}
	return &t, true
}

// ParseQueryWindow 解析 start_date/end_date（都包含）为半开区间
// 缺省的一端取 def 对应的端点；开始日期晚于结束日期，或 maxDays 大于 0 且超过 maxDays 天时返回 ErrInvalidDateRange
func ParseQueryWindow(c *gin.Context, def dateutil.Window, maxDays int) (dateutil.Window, bool) {
	start, ok := ParseQueryDate(c, "start_date")
	if !ok {
		return dateutil.Window{}, false
	}
	end, ok := ParseQueryDate(c, "end_date")
	if !ok {
		return dateutil.Window{}, false
	}

	first, last := def.Start, def.Last()
	if start != nil {
		first = *start
	}
	if end != nil {
		last = *end
	}
	if last.Before(first) {
		HandleError(c, errors.ErrInvalidDateRange)
		return dateutil.Window{}, false
	}
	w := dateutil.NewInclusiveWindow(first, last)
	if maxDays > 0 && w.Len() > maxDays {
		HandleError(c, errors.ErrInvalidDateRange.WithMessage(fmt.Sprintf("date range cannot exceed %d days", maxDays)))
		return dateutil.Window{}, false
	}
	return w, true
}

// ============================================================================
// 分页处理
// ============================================================================

// BindPagination 从查询参数绑定并规范化分页参数
// 默认 page=1, pageSize=10, 最大 pageSize=100
func BindPagination(c *gin.Context) utils.Pagination {
	return BindPaginationWithDefaults(c, 1, 10)
}

// BindPaginationWithDefaults 从查询参数绑定分页参数，使用自定义默认值
func BindPaginationWithDefaults(c *gin.Context, defaultPage, defaultPageSize int) utils.Pagination {
	var p utils.Pagination
	p.Page, _ = strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	p.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	p.Normalize()
	return p
}

// ============================================================================
// 组合辅助函数
// ============================================================================

// RequireAdminAndParseID 组合：检查管理员登录 + 解析ID参数
func RequireAdminAndParseID(c *gin.Context, resourceName string) (adminID, resourceID int64, ok bool) {
	adminID, ok = RequireAdminID(c)
	if !ok {
		return 0, 0, false
	}
	resourceID, ok = ParseID(c, resourceName)
	if !ok {
		return 0, 0, false
	}
	return adminID, resourceID, true
}
