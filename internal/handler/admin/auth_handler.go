// Package admin 提供后台管理的 HTTP Handler
package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/bnb-booking-backend/internal/common/handler"
	"github.com/dumeirei/bnb-booking-backend/internal/common/response"
	authService "github.com/dumeirei/bnb-booking-backend/internal/service/auth"
)

// AuthHandler 管理员认证处理器
type AuthHandler struct {
	authService *authService.AuthService
}

// NewAuthHandler 创建管理员认证处理器
func NewAuthHandler(authSvc *authService.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authSvc,
	}
}

// Login 管理员登录
// @Summary 管理员登录
// @Tags 管理员认证
// @Accept json
// @Produce json
// @Param request body authService.LoginRequest true "请求参数"
// @Success 200 {object} response.Response{data=authService.LoginResponse}
// @Router /api/admin/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req authService.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	handler.MustSucceed(c, err, result)
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken 刷新 Token
// @Summary 刷新管理员 Token
// @Tags 管理员认证
// @Accept json
// @Produce json
// @Param request body RefreshTokenRequest true "请求参数"
// @Success 200 {object} response.Response{data=jwt.TokenPair}
// @Router /api/admin/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	pair, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	handler.MustSucceed(c, err, pair)
}

// Profile 当前管理员信息
// @Summary 当前管理员信息
// @Tags 管理员认证
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=models.Admin}
// @Router /api/admin/auth/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	adminID, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	admin, err := h.authService.Profile(c.Request.Context(), adminID)
	handler.MustSucceed(c, err, admin)
}
