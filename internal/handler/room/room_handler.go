// Package room 提供前台房间和可用性查询的 HTTP Handler
package room

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/bnb-booking-backend/internal/common/dateutil"
	"github.com/dumeirei/bnb-booking-backend/internal/common/handler"
	"github.com/dumeirei/bnb-booking-backend/internal/common/response"
	availabilityService "github.com/dumeirei/bnb-booking-backend/internal/service/availability"
	roomService "github.com/dumeirei/bnb-booking-backend/internal/service/room"
)

// Handler 前台房间处理器
type Handler struct {
	roomService     *roomService.Service
	searchService   *availabilityService.SearchService
	calendarService *availabilityService.CalendarService
	clock           dateutil.Clock
	windowDays      int
	maxWindowDays   int
}

// NewHandler 创建前台房间处理器
func NewHandler(
	roomSvc *roomService.Service,
	searchSvc *availabilityService.SearchService,
	calendarSvc *availabilityService.CalendarService,
	clock dateutil.Clock,
	windowDays int,
	maxWindowDays int,
) *Handler {
	return &Handler{
		roomService:     roomSvc,
		searchService:   searchSvc,
		calendarService: calendarSvc,
		clock:           clock,
		windowDays:      windowDays,
		maxWindowDays:   maxWindowDays,
	}
}

// List 开放房间列表
// @Summary 房间列表
// @Tags 房间
// @Produce json
// @Success 200 {object} response.Response{data=[]models.Room}
// @Router /api/v1/rooms [get]
func (h *Handler) List(c *gin.Context) {
	rooms, err := h.roomService.ListActive(c.Request.Context())
	handler.MustSucceed(c, err, rooms)
}

// Get 房间详情
// @Summary 房间详情
// @Tags 房间
// @Produce json
// @Param id path int true "房间ID"
// @Success 200 {object} response.Response{data=models.Room}
// @Router /api/v1/rooms/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "房间")
	if !ok {
		return
	}

	room, err := h.roomService.GetActive(c.Request.Context(), id)
	handler.MustSucceed(c, err, room)
}

// Available 查询入住区间内的可用房间
// @Summary 查询可用房间
// @Tags 房间
// @Produce json
// @Param check_in query string true "入住日期 YYYY-MM-DD"
// @Param check_out query string true "退房日期 YYYY-MM-DD"
// @Param adults query int false "成人数" default(2)
// @Param children query int false "儿童数" default(0)
// @Param room_id query int false "只查询指定房间"
// @Param include_partial query bool false "是否返回部分可用房间" default(true)
// @Success 200 {object} response.Response{data=availabilityService.SearchResult}
// @Router /api/v1/rooms/available [get]
func (h *Handler) Available(c *gin.Context) {
	checkInStr, checkOutStr := c.Query("check_in"), c.Query("check_out")
	if checkInStr == "" || checkOutStr == "" {
		response.BadRequest(c, "check_in and check_out are required")
		return
	}
	checkIn, err := dateutil.Parse(checkInStr)
	if err != nil {
		response.BadRequest(c, "无效的入住日期格式")
		return
	}
	checkOut, err := dateutil.Parse(checkOutStr)
	if err != nil {
		response.BadRequest(c, "无效的退房日期格式")
		return
	}
	adults, ok := handler.ParseQueryInt(c, "adults", 2)
	if !ok {
		return
	}
	children, ok := handler.ParseQueryInt(c, "children", 0)
	if !ok {
		return
	}
	roomID, ok := handler.ParseQueryID(c, "room_id", "房间")
	if !ok {
		return
	}

	query := &availabilityService.SearchQuery{
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Adults:   adults,
		Children: children,
	}

	if roomID != nil {
		result, err := h.searchService.CheckRoom(c.Request.Context(), *roomID, query)
		handler.MustSucceed(c, err, result)
		return
	}

	result, err := h.searchService.Search(c.Request.Context(), query)
	if handler.HandleError(c, err) {
		return
	}
	if c.DefaultQuery("include_partial", "true") == "false" {
		response.Success(c, gin.H{
			"fully_available": result.FullyAvailable,
			"unavailable":     result.Unavailable,
			"summary":         result.Summary,
			"recommendations": result.Recommendations,
		})
		return
	}
	response.Success(c, result)
}

// Calendar 房间逐日可用性和价格
// @Summary 房间日历
// @Tags 房间
// @Produce json
// @Param id path int true "房间ID"
// @Param start_date query string false "开始日期，默认今天"
// @Param end_date query string false "结束日期（包含）"
// @Success 200 {object} response.Response{data=availabilityService.RoomCalendar}
// @Router /api/v1/rooms/{id}/availability [get]
func (h *Handler) Calendar(c *gin.Context) {
	id, ok := handler.ParseID(c, "房间")
	if !ok {
		return
	}
	window, ok := handler.ParseQueryWindow(c, availabilityService.DefaultWindow(h.clock.Today(), h.windowDays), h.maxWindowDays)
	if !ok {
		return
	}

	calendar, err := h.calendarService.Calendar(c.Request.Context(), id, window, true)
	handler.MustSucceed(c, err, calendar)
}

// RegisterRoutes 注册房间公开路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	rooms := r.Group("/rooms")
	{
		rooms.GET("", h.List)
		rooms.GET("/available", h.Available)
		rooms.GET("/:id", h.Get)
		rooms.GET("/:id/availability", h.Calendar)
	}
}
