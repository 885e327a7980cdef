package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/bnb-booking-backend/internal/common/handler"
	"github.com/dumeirei/bnb-booking-backend/internal/common/response"
	roomService "github.com/dumeirei/bnb-booking-backend/internal/service/room"
)

// RoomHandler 后台房间处理器
type RoomHandler struct {
	roomService *roomService.Service
}

// NewRoomHandler 创建后台房间处理器
func NewRoomHandler(roomSvc *roomService.Service) *RoomHandler {
	return &RoomHandler{roomService: roomSvc}
}

// List 全部房间
// @Summary 房间列表（含未开放）
// @Tags 后台-房间
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=[]models.Room}
// @Router /api/admin/rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	rooms, err := h.roomService.ListAll(c.Request.Context())
	handler.MustSucceed(c, err, rooms)
}

// Get 房间详情
// @Summary 房间详情
// @Tags 后台-房间
// @Produce json
// @Security Bearer
// @Param id path int true "房间ID"
// @Success 200 {object} response.Response{data=models.Room}
// @Router /api/admin/rooms/{id} [get]
func (h *RoomHandler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "房间")
	if !ok {
		return
	}

	room, err := h.roomService.Get(c.Request.Context(), id)
	handler.MustSucceed(c, err, room)
}

// Create 创建房间
// @Summary 创建房间
// @Tags 后台-房间
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body roomService.CreateRoomRequest true "房间信息"
// @Success 200 {object} response.Response{data=models.Room}
// @Router /api/admin/rooms [post]
func (h *RoomHandler) Create(c *gin.Context) {
	var req roomService.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	room, err := h.roomService.Create(c.Request.Context(), &req)
	handler.MustSucceed(c, err, room)
}

// Update 更新房间
// @Summary 更新房间
// @Tags 后台-房间
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "房间ID"
// @Param request body roomService.UpdateRoomRequest true "要修改的字段"
// @Success 200 {object} response.Response{data=models.Room}
// @Router /api/admin/rooms/{id} [put]
func (h *RoomHandler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "房间")
	if !ok {
		return
	}
	var req roomService.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	room, err := h.roomService.Update(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, room)
}

// Toggle 切换开放状态
// @Summary 切换房间开放状态
// @Tags 后台-房间
// @Produce json
// @Security Bearer
// @Param id path int true "房间ID"
// @Success 200 {object} response.Response{data=models.Room}
// @Router /api/admin/rooms/{id}/toggle [put]
func (h *RoomHandler) Toggle(c *gin.Context) {
	id, ok := handler.ParseID(c, "房间")
	if !ok {
		return
	}

	room, err := h.roomService.Toggle(c.Request.Context(), id)
	handler.MustSucceed(c, err, room)
}

// Delete 删除房间
// @Summary 删除房间
// @Tags 后台-房间
// @Produce json
// @Security Bearer
// @Param id path int true "房间ID"
// @Success 200 {object} response.Response
// @Router /api/admin/rooms/{id} [delete]
func (h *RoomHandler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "房间")
	if !ok {
		return
	}

	err := h.roomService.Delete(c.Request.Context(), id)
	handler.MustSucceedWithMessage(c, err, "删除成功", nil)
}
