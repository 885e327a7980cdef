package availability

import (
	"context"

	"go.uber.org/zap"

	"github.com/dumeirei/bnb-booking-backend/internal/common/dateutil"
	"github.com/dumeirei/bnb-booking-backend/internal/common/errors"
	"github.com/dumeirei/bnb-booking-backend/internal/common/logger"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
	"github.com/dumeirei/bnb-booking-backend/internal/repository"
)

// 后台手工修改可用性的审计标识
const (
	AuditAgentAdmin               = "admin"
	AuditActionUpdateAvailability = "update_availability"
)

// AdminService 后台可用性维护服务
type AdminService struct {
	roomRepo         *repository.RoomRepository
	availabilityRepo *repository.AvailabilityRepository
	agentLogRepo     *repository.AgentLogRepository
	logger           *zap.Logger
}

// NewAdminService 创建后台可用性维护服务
func NewAdminService(
	roomRepo *repository.RoomRepository,
	availabilityRepo *repository.AvailabilityRepository,
	agentLogRepo *repository.AgentLogRepository,
	log *zap.Logger,
) *AdminService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminService{
		roomRepo:         roomRepo,
		availabilityRepo: availabilityRepo,
		agentLogRepo:     agentLogRepo,
		logger:           log.With(logger.Module("availability_admin")),
	}
}

// DayUpdate 单日可用性写入，Price 为空时清除价格覆盖
type DayUpdate struct {
	RoomID      int64    `json:"room_id" binding:"required"`
	Date        string   `json:"date" binding:"required"`
	IsAvailable bool     `json:"is_available"`
	Price       *float64 `json:"price"`
}

// List 查询可用性记录，窗口为空时不限日期
func (s *AdminService) List(ctx context.Context, roomID *int64, window *dateutil.Window) ([]*models.AvailabilityDay, error) {
	filters := &repository.AvailabilityFilters{RoomID: roomID}
	if window != nil {
		if window.Empty() {
			return nil, errors.ErrInvalidDateRange
		}
		filters.Start = &window.Start
		filters.End = &window.End
	}

	days, err := s.availabilityRepo.List(ctx, filters)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return days, nil
}

// BatchUpdate 批量按 (room_id, date) 写入，全部成功或全部失败
func (s *AdminService) BatchUpdate(ctx context.Context, updates []DayUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, errors.ErrInvalidParams.WithMessage("no availability updates")
	}

	days := make([]*models.AvailabilityDay, 0, len(updates))
	checked := make(map[int64]bool)
	for _, u := range updates {
		date, err := dateutil.Parse(u.Date)
		if err != nil {
			return 0, errors.ErrInvalidParams.WithMessage("invalid date: " + u.Date)
		}
		if u.Price != nil && *u.Price <= 0 {
			return 0, errors.ErrInvalidParams.WithMessage("price must be positive")
		}
		if !checked[u.RoomID] {
			exists, err := s.roomRepo.Exists(ctx, u.RoomID)
			if err != nil {
				return 0, errors.ErrDatabaseError.WithError(err)
			}
			if !exists {
				return 0, errors.ErrRoomNotFound
			}
			checked[u.RoomID] = true
		}
		days = append(days, &models.AvailabilityDay{
			RoomID:      u.RoomID,
			Date:        date,
			IsAvailable: u.IsAvailable,
			Price:       u.Price,
		})
	}

	if err := s.availabilityRepo.BatchUpsert(ctx, days); err != nil {
		return 0, errors.ErrDatabaseError.WithError(err)
	}

	entry := &models.AgentLog{
		Agent:   AuditAgentAdmin,
		Action:  AuditActionUpdateAvailability,
		Details: models.JSON{"count": len(days)},
		Status:  models.AgentLogStatusCompleted,
	}
	if err := s.agentLogRepo.Create(ctx, entry); err != nil {
		s.logger.Error("write availability audit log failed", zap.Error(err))
	}

	s.logger.Info("availability updated", zap.Int("count", len(days)))
	return len(days), nil
}
