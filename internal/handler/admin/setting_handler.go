package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/bnb-booking-backend/internal/common/handler"
	"github.com/dumeirei/bnb-booking-backend/internal/common/response"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
	settingService "github.com/dumeirei/bnb-booking-backend/internal/service/setting"
)

// SettingHandler 后台站点设置处理器
type SettingHandler struct {
	settingService *settingService.Service
}

// NewSettingHandler 创建后台站点设置处理器
func NewSettingHandler(settingSvc *settingService.Service) *SettingHandler {
	return &SettingHandler{settingService: settingSvc}
}

// Get 读取设置
// @Summary 读取站点设置
// @Tags 后台-设置
// @Produce json
// @Security Bearer
// @Param key path string true "设置项，如 contact_info"
// @Success 200 {object} response.Response{data=models.JSON}
// @Router /api/admin/settings/{key} [get]
func (h *SettingHandler) Get(c *gin.Context) {
	value, err := h.settingService.Get(c.Request.Context(), c.Param("key"))
	handler.MustSucceed(c, err, value)
}

// Update 写入设置
// @Summary 写入站点设置
// @Description contact_info 的 whatsapp/phone 必须是有效号码
// @Tags 后台-设置
// @Accept json
// @Produce json
// @Security Bearer
// @Param key path string true "设置项"
// @Param request body models.JSON true "设置值"
// @Success 200 {object} response.Response{data=models.JSON}
// @Router /api/admin/settings/{key} [put]
func (h *SettingHandler) Update(c *gin.Context) {
	var value models.JSON
	if err := c.ShouldBindJSON(&value); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	saved, err := h.settingService.Update(c.Request.Context(), c.Param("key"), value)
	handler.MustSucceed(c, err, saved)
}
