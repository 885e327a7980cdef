package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/bnb-booking-backend/internal/common/dateutil"
	"github.com/dumeirei/bnb-booking-backend/internal/common/handler"
	"github.com/dumeirei/bnb-booking-backend/internal/common/response"
	availabilityService "github.com/dumeirei/bnb-booking-backend/internal/service/availability"
)

// AvailabilityHandler 后台可用性处理器
type AvailabilityHandler struct {
	adminService *availabilityService.AdminService
}

// NewAvailabilityHandler 创建后台可用性处理器
func NewAvailabilityHandler(adminSvc *availabilityService.AdminService) *AvailabilityHandler {
	return &AvailabilityHandler{adminService: adminSvc}
}

// List 可用性记录
// @Summary 可用性记录列表
// @Tags 后台-可用性
// @Produce json
// @Security Bearer
// @Param room_id query int false "房间ID"
// @Param start_date query string false "开始日期"
// @Param end_date query string false "结束日期（包含）"
// @Success 200 {object} response.Response{data=[]models.AvailabilityDay}
// @Router /api/admin/availability [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	roomID, ok := handler.ParseQueryID(c, "room_id", "房间")
	if !ok {
		return
	}

	var window *dateutil.Window
	if c.Query("start_date") != "" || c.Query("end_date") != "" {
		start, ok := handler.ParseQueryDate(c, "start_date")
		if !ok {
			return
		}
		end, ok := handler.ParseQueryDate(c, "end_date")
		if !ok {
			return
		}
		if start == nil || end == nil {
			response.BadRequest(c, "start_date and end_date must be given together")
			return
		}
		w := dateutil.NewInclusiveWindow(*start, *end)
		window = &w
	}

	days, err := h.adminService.List(c.Request.Context(), roomID, window)
	handler.MustSucceed(c, err, days)
}

// BatchUpdate 批量写入可用性
// @Summary 批量写入可用性
// @Tags 后台-可用性
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body []availabilityService.DayUpdate true "按 (room_id, date) 写入的记录"
// @Success 200 {object} response.Response{data=map[string]int}
// @Router /api/admin/availability [post]
func (h *AvailabilityHandler) BatchUpdate(c *gin.Context) {
	var updates []availabilityService.DayUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	count, err := h.adminService.BatchUpdate(c.Request.Context(), updates)
	handler.MustSucceed(c, err, gin.H{"count": count})
}
