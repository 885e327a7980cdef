package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/bnb-booking-backend/internal/common/handler"
	"github.com/dumeirei/bnb-booking-backend/internal/common/response"
	"github.com/dumeirei/bnb-booking-backend/internal/repository"
	bookingService "github.com/dumeirei/bnb-booking-backend/internal/service/booking"
)

// NotificationHandler 后台通知处理器
type NotificationHandler struct {
	notifier *bookingService.Notifier
}

// NewNotificationHandler 创建后台通知处理器
func NewNotificationHandler(notifier *bookingService.Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// List 通知记录
// @Summary 通知记录列表
// @Tags 后台-通知
// @Produce json
// @Security Bearer
// @Param booking_id query int false "预订ID"
// @Param channel query string false "渠道 whatsapp/sms"
// @Param status query string false "状态 pending/sent/failed"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/admin/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	bookingID, ok := handler.ParseQueryID(c, "booking_id", "预订")
	if !ok {
		return
	}
	p := handler.BindPagination(c)

	filters := &repository.NotificationListFilters{
		BookingID: bookingID,
		Channel:   c.Query("channel"),
		Status:    c.Query("status"),
	}
	list, total, err := h.notifier.List(c.Request.Context(), p.Page, p.PageSize, filters)
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
}

// SendRequest 手动发送请求
type SendRequest struct {
	Channel   string `json:"channel" binding:"required"`
	Recipient string `json:"recipient" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

// Send 手动发送通知
// @Summary 手动发送通知
// @Tags 后台-通知
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body SendRequest true "渠道、收件人和内容"
// @Success 200 {object} response.Response{data=models.Notification}
// @Router /api/admin/notifications/send [post]
func (h *NotificationHandler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	notification, err := h.notifier.SendManual(c.Request.Context(), req.Channel, req.Recipient, req.Message)
	handler.MustSucceed(c, err, notification)
}
