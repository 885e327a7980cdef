package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/bnb-booking-backend/internal/common/handler"
	"github.com/dumeirei/bnb-booking-backend/internal/common/response"
	bookingService "github.com/dumeirei/bnb-booking-backend/internal/service/booking"
)

// BookingHandler 后台预订处理器
type BookingHandler struct {
	bookingService *bookingService.Service
}

// NewBookingHandler 创建后台预订处理器
func NewBookingHandler(bookingSvc *bookingService.Service) *BookingHandler {
	return &BookingHandler{bookingService: bookingSvc}
}

// List 预订列表
// @Summary 预订列表
// @Tags 后台-预订
// @Produce json
// @Security Bearer
// @Param status query string false "状态 pending/confirmed/cancelled/completed"
// @Param room_id query int false "房间ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/admin/bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	roomID, ok := handler.ParseQueryID(c, "room_id", "房间")
	if !ok {
		return
	}
	p := handler.BindPagination(c)

	filters := &bookingService.ListFilters{
		Status: c.Query("status"),
		RoomID: roomID,
	}
	list, total, err := h.bookingService.List(c.Request.Context(), p.Page, p.PageSize, filters)
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
}

// Get 预订详情
// @Summary 预订详情
// @Tags 后台-预订
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=models.Booking}
// @Router /api/admin/bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}

	booking, err := h.bookingService.GetByID(c.Request.Context(), id)
	handler.MustSucceed(c, err, booking)
}

// Stats 按状态统计
// @Summary 预订状态统计
// @Tags 后台-预订
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=map[string]int64}
// @Router /api/admin/bookings/stats [get]
func (h *BookingHandler) Stats(c *gin.Context) {
	counts, err := h.bookingService.StatusCounts(c.Request.Context())
	handler.MustSucceed(c, err, counts)
}

// UpdateStatusRequest 修改状态请求
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus 修改预订状态
// @Summary 修改预订状态
// @Tags 后台-预订
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Param request body UpdateStatusRequest true "新状态"
// @Success 200 {object} response.Response{data=models.Booking}
// @Router /api/admin/bookings/{id}/status [put]
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	booking, err := h.bookingService.UpdateStatus(c.Request.Context(), id, req.Status)
	handler.MustSucceed(c, err, booking)
}

// UpdateNotesRequest 修改备注请求
type UpdateNotesRequest struct {
	Notes *string `json:"notes"`
}

// UpdateNotes 修改预订备注
// @Summary 修改预订备注
// @Tags 后台-预订
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Param request body UpdateNotesRequest true "备注，为空时清除"
// @Success 200 {object} response.Response{data=models.Booking}
// @Router /api/admin/bookings/{id}/notes [put]
func (h *BookingHandler) UpdateNotes(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}
	var req UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	booking, err := h.bookingService.UpdateNotes(c.Request.Context(), id, req.Notes)
	handler.MustSucceed(c, err, booking)
}

// Delete 删除预订
// @Summary 删除预订
// @Tags 后台-预订
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response
// @Router /api/admin/bookings/{id} [delete]
func (h *BookingHandler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}

	err := h.bookingService.Delete(c.Request.Context(), id)
	handler.MustSucceedWithMessage(c, err, "删除成功", nil)
}
