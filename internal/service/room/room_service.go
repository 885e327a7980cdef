// Package room 提供房间管理服务
package room

import (
	"context"
	stderrors "errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/bnb-booking-backend/internal/common/errors"
	"github.com/dumeirei/bnb-booking-backend/internal/common/logger"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
	"github.com/dumeirei/bnb-booking-backend/internal/repository"
)

// Service 房间服务
type Service struct {
	db               *gorm.DB
	roomRepo         *repository.RoomRepository
	availabilityRepo *repository.AvailabilityRepository
	bookingRepo      *repository.BookingRepository
	logger           *zap.Logger
}

// NewService 创建房间服务
func NewService(db *gorm.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:               db,
		roomRepo:         repository.NewRoomRepository(db),
		availabilityRepo: repository.NewAvailabilityRepository(db),
		bookingRepo:      repository.NewBookingRepository(db),
		logger:           log.With(logger.Module("room")),
	}
}

// CreateRoomRequest 创建房间请求
type CreateRoomRequest struct {
	Name             string   `json:"name" binding:"required"`
	Description      *string  `json:"description"`
	ShortDescription *string  `json:"short_description"`
	BasePrice        float64  `json:"base_price"`
	MaxGuests        int      `json:"max_guests"`
	SizeSqm          *int     `json:"size_sqm"`
	Beds             *string  `json:"beds"`
	Amenities        []string `json:"amenities"`
	Images           []string `json:"images"`
	IsActive         *bool    `json:"is_active"`
}

// UpdateRoomRequest 更新房间请求，空字段不修改
type UpdateRoomRequest struct {
	Name             *string  `json:"name"`
	Description      *string  `json:"description"`
	ShortDescription *string  `json:"short_description"`
	BasePrice        *float64 `json:"base_price"`
	MaxGuests        *int     `json:"max_guests"`
	SizeSqm          *int     `json:"size_sqm"`
	Beds             *string  `json:"beds"`
	Amenities        []string `json:"amenities"`
	Images           []string `json:"images"`
	IsActive         *bool    `json:"is_active"`
}

// ListActive 前台房间列表，按基础价升序
func (s *Service) ListActive(ctx context.Context) ([]*models.Room, error) {
	rooms, err := s.roomRepo.ListActive(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return rooms, nil
}

// GetActive 前台房间详情，未开放的房间视为不存在
func (s *Service) GetActive(ctx context.Context, id int64) (*models.Room, error) {
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, errors.ErrRoomNotFound
	}
	return room, nil
}

// ListAll 后台房间列表，包含未开放的房间
func (s *Service) ListAll(ctx context.Context) ([]*models.Room, error) {
	rooms, err := s.roomRepo.ListAll(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return rooms, nil
}

// Get 获取房间
func (s *Service) Get(ctx context.Context, id int64) (*models.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrRoomNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return room, nil
}

// Create 创建房间
func (s *Service) Create(ctx context.Context, req *CreateRoomRequest) (*models.Room, error) {
	room := &models.Room{
		Name:             strings.TrimSpace(req.Name),
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		BasePrice:        req.BasePrice,
		MaxGuests:        req.MaxGuests,
		SizeSqm:          req.SizeSqm,
		Beds:             req.Beds,
		Amenities:        models.StringList(req.Amenities),
		Images:           models.StringList(req.Images),
		IsActive:         true,
	}
	if req.IsActive != nil {
		room.IsActive = *req.IsActive
	}
	if err := validateRoom(room); err != nil {
		return nil, err
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	s.logger.Info("room created", logger.RoomID(room.ID), zap.String("name", room.Name))
	return room, nil
}

// Update 更新房间
func (s *Service) Update(ctx context.Context, id int64, req *UpdateRoomRequest) (*models.Room, error) {
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		room.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		room.Description = req.Description
	}
	if req.ShortDescription != nil {
		room.ShortDescription = req.ShortDescription
	}
	if req.BasePrice != nil {
		room.BasePrice = *req.BasePrice
	}
	if req.MaxGuests != nil {
		room.MaxGuests = *req.MaxGuests
	}
	if req.SizeSqm != nil {
		room.SizeSqm = req.SizeSqm
	}
	if req.Beds != nil {
		room.Beds = req.Beds
	}
	if req.Amenities != nil {
		room.Amenities = models.StringList(req.Amenities)
	}
	if req.Images != nil {
		room.Images = models.StringList(req.Images)
	}
	if req.IsActive != nil {
		room.IsActive = *req.IsActive
	}
	if err := validateRoom(room); err != nil {
		return nil, err
	}

	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return room, nil
}

// Toggle 切换房间开放状态
func (s *Service) Toggle(ctx context.Context, id int64) (*models.Room, error) {
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	room.IsActive = !room.IsActive
	if err := s.roomRepo.UpdateFields(ctx, id, map[string]interface{}{"is_active": room.IsActive}); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	s.logger.Info("room toggled", logger.RoomID(id), zap.Bool("is_active", room.IsActive))
	return room, nil
}

// Delete 删除房间及其可用性记录，存在预订的房间不能删除
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	count, err := s.bookingRepo.CountByRoom(ctx, id)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if count > 0 {
		return errors.ErrRoomHasBookings
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.availabilityRepo.WithTx(tx).DeleteByRoom(ctx, id); err != nil {
			return err
		}
		return s.roomRepo.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	s.logger.Info("room deleted", logger.RoomID(id))
	return nil
}

func validateRoom(room *models.Room) error {
	if room.Name == "" {
		return errors.ErrInvalidParams.WithMessage("房间名称不能为空")
	}
	if room.BasePrice <= 0 || room.MaxGuests < 1 {
		return errors.ErrInvalidRoomConfig
	}
	return nil
}
