// Package booking 提供前台预订的 HTTP Handler
package booking

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/bnb-booking-backend/internal/common/handler"
	"github.com/dumeirei/bnb-booking-backend/internal/common/response"
	bookingService "github.com/dumeirei/bnb-booking-backend/internal/service/booking"
)

// Handler 前台预订处理器
type Handler struct {
	bookingService *bookingService.Service
}

// NewHandler 创建前台预订处理器
func NewHandler(bookingSvc *bookingService.Service) *Handler {
	return &Handler{bookingService: bookingSvc}
}

// Create 确认预订
// @Summary 确认预订
// @Description 在房间锁和事务内重新核对可用性，成功后写入预订和房晚占用并异步发送通知
// @Tags 预订
// @Accept json
// @Produce json
// @Param request body bookingService.CreateRequest true "预订信息"
// @Success 200 {object} response.Response{data=bookingService.Confirmation}
// @Router /api/v1/bookings [post]
func (h *Handler) Create(c *gin.Context) {
	var req bookingService.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	confirmation, err := h.bookingService.Confirm(c.Request.Context(), &req)
	handler.MustSucceed(c, err, confirmation)
}

// GetByNumber 按预订号查询
// @Summary 按预订号查询预订
// @Tags 预订
// @Produce json
// @Param number path string true "预订号"
// @Success 200 {object} response.Response{data=models.Booking}
// @Router /api/v1/bookings/{number} [get]
func (h *Handler) GetByNumber(c *gin.Context) {
	number := strings.TrimSpace(c.Param("number"))
	if number == "" {
		response.BadRequest(c, "预订号不能为空")
		return
	}

	booking, err := h.bookingService.GetByNumber(c.Request.Context(), number)
	handler.MustSucceed(c, err, booking)
}

// RegisterRoutes 注册预订公开路由，limiters 只作用于创建预订
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, limiters ...gin.HandlerFunc) {
	bookings := r.Group("/bookings")
	{
		create := append(limiters, h.Create)
		bookings.POST("", create...)
		bookings.GET("/:number", h.GetByNumber)
	}
}
