// Package auth 提供后台管理员认证服务
package auth

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/bnb-booking-backend/internal/common/crypto"
	"github.com/dumeirei/bnb-booking-backend/internal/common/errors"
	"github.com/dumeirei/bnb-booking-backend/internal/common/jwt"
	"github.com/dumeirei/bnb-booking-backend/internal/common/logger"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
	"github.com/dumeirei/bnb-booking-backend/internal/repository"
)

// AuthService 管理员认证服务
type AuthService struct {
	adminRepo  *repository.AdminRepository
	jwtManager *jwt.Manager
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService 创建管理员认证服务
func NewAuthService(adminRepo *repository.AdminRepository, jwtManager *jwt.Manager, bcryptCost int, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		adminRepo:  adminRepo,
		jwtManager: jwtManager,
		bcryptCost: bcryptCost,
		logger:     log.With(logger.Module("auth")),
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Admin *models.Admin  `json:"admin"`
	Token *jwt.TokenPair `json:"token"`
}

// Login 管理员登录，用户名不存在和密码错误返回相同错误
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	admin, err := s.adminRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrPasswordError
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if !crypto.VerifyPassword(req.Password, admin.PasswordHash) {
		s.logger.Warn("admin login failed", zap.String("username", admin.Username))
		return nil, errors.ErrPasswordError
	}
	if !admin.IsActive {
		return nil, errors.ErrAccountDisabled
	}

	pair, err := s.jwtManager.GenerateTokenPair(admin.ID, admin.Username)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}

	now := time.Now()
	if err := s.adminRepo.UpdateLoginAt(ctx, admin.ID, now); err != nil {
		s.logger.Warn("update admin login time failed", logger.AdminID(admin.ID), zap.Error(err))
	}
	admin.LastLoginAt = &now

	s.logger.Info("admin logged in", logger.AdminID(admin.ID))
	return &LoginResponse{Admin: admin, Token: pair}, nil
}

// RefreshToken 刷新令牌，已禁用的管理员不能刷新
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*jwt.TokenPair, error) {
	pair, err := s.jwtManager.RefreshToken(refreshToken)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.ErrTokenInvalid
	}

	claims, err := s.jwtManager.ParseAccessToken(pair.AccessToken)
	if err != nil {
		return nil, errors.ErrTokenInvalid
	}
	if _, err := s.activeAdmin(ctx, claims.AdminID); err != nil {
		return nil, err
	}
	return pair, nil
}

// Profile 当前管理员信息
func (s *AuthService) Profile(ctx context.Context, adminID int64) (*models.Admin, error) {
	return s.activeAdmin(ctx, adminID)
}

func (s *AuthService) activeAdmin(ctx context.Context, adminID int64) (*models.Admin, error) {
	admin, err := s.adminRepo.GetByID(ctx, adminID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUnauthorized
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if !admin.IsActive {
		return nil, errors.ErrAccountDisabled
	}
	return admin, nil
}

// EnsureAdmin 用户名不存在时创建管理员，返回是否新建
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password, name string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, nil
	}

	exists, err := s.adminRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	hash, err := crypto.HashPassword(password, s.bcryptCost)
	if err != nil {
		return false, err
	}
	if name == "" {
		name = username
	}
	if err := s.adminRepo.Create(ctx, &models.Admin{
		Username:     username,
		PasswordHash: hash,
		Name:         name,
		IsActive:     true,
	}); err != nil {
		return false, err
	}
	s.logger.Info("initial admin created", zap.String("username", username))
	return true, nil
}
