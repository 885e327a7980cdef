package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/bnb-booking-backend/internal/common/utils"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
)

// AvailabilityRepository 按日可用性仓储
type AvailabilityRepository struct {
	db *gorm.DB
}

// NewAvailabilityRepository 创建可用性仓储
func NewAvailabilityRepository(db *gorm.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *AvailabilityRepository) WithTx(tx *gorm.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: tx}
}

// AvailabilityFilters 可用性查询条件，日期区间为 [Start, End)
type AvailabilityFilters struct {
	RoomID *int64
	Start  *time.Time
	End    *time.Time
}

// List 按条件查询，按房间、日期排序
func (r *AvailabilityRepository) List(ctx context.Context, filters *AvailabilityFilters) ([]*models.AvailabilityDay, error) {
	var days []*models.AvailabilityDay

	query := r.db.WithContext(ctx).Model(&models.AvailabilityDay{})
	if filters != nil {
		if filters.RoomID != nil {
			query = query.Where("room_id = ?", *filters.RoomID)
		}
		if filters.Start != nil {
			query = query.Where("date >= ?", *filters.Start)
		}
		if filters.End != nil {
			query = query.Where("date < ?", *filters.End)
		}
	}

	err := query.Order("room_id ASC, date ASC").Find(&days).Error
	return days, err
}

// ListByRoom 获取房间在 [start, end) 内的记录
func (r *AvailabilityRepository) ListByRoom(ctx context.Context, roomID int64, start, end time.Time) ([]*models.AvailabilityDay, error) {
	return r.List(ctx, &AvailabilityFilters{RoomID: &roomID, Start: &start, End: &end})
}

// ListByRooms 获取多个房间在 [start, end) 内的记录
func (r *AvailabilityRepository) ListByRooms(ctx context.Context, roomIDs []int64, start, end time.Time) ([]*models.AvailabilityDay, error) {
	var days []*models.AvailabilityDay
	if len(roomIDs) == 0 {
		return days, nil
	}
	err := r.db.WithContext(ctx).
		Where("room_id IN ?", roomIDs).
		Where("date >= ? AND date < ?", start, end).
		Order("room_id ASC, date ASC").
		Find(&days).Error
	return days, err
}

// Get 获取单日记录，不存在时返回 gorm.ErrRecordNotFound
func (r *AvailabilityRepository) Get(ctx context.Context, roomID int64, date time.Time) (*models.AvailabilityDay, error) {
	var day models.AvailabilityDay
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND date = ?", roomID, date).
		First(&day).Error
	if err != nil {
		return nil, err
	}
	return &day, nil
}

// UpsertAvailability 按 (room_id, date) 写入可用标记，已有价格保持不变
func (r *AvailabilityRepository) UpsertAvailability(ctx context.Context, roomID int64, date time.Time, available bool) error {
	day := &models.AvailabilityDay{RoomID: roomID, Date: date, IsAvailable: available}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"is_available": available, "updated_at": time.Now()}),
	}).Create(day).Error
}

// UpsertPrice 按 (room_id, date) 写入价格，新记录默认可用，已有可用标记保持不变
func (r *AvailabilityRepository) UpsertPrice(ctx context.Context, roomID int64, date time.Time, price float64) error {
	day := &models.AvailabilityDay{RoomID: roomID, Date: date, IsAvailable: true, Price: utils.Float64Ptr(price)}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"price": price, "updated_at": time.Now()}),
	}).Create(day).Error
}

// Upsert 按 (room_id, date) 整行写入可用标记和价格
func (r *AvailabilityRepository) Upsert(ctx context.Context, day *models.AvailabilityDay) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_available", "price", "updated_at"}),
	}).Create(day).Error
}

// BatchUpsert 批量整行写入
func (r *AvailabilityRepository) BatchUpsert(ctx context.Context, days []*models.AvailabilityDay) error {
	if len(days) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := r.WithTx(tx)
		for _, day := range days {
			if err := txRepo.Upsert(ctx, day); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteByRoom 删除房间全部记录
func (r *AvailabilityRepository) DeleteByRoom(ctx context.Context, roomID int64) error {
	return r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&models.AvailabilityDay{}).Error
}
