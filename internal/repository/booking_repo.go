package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/bnb-booking-backend/internal/models"
)

// BookingRepository 预订仓储
type BookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository 创建预订仓储
func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *BookingRepository) WithTx(tx *gorm.DB) *BookingRepository {
	return &BookingRepository{db: tx}
}

// Create 创建预订
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

// GetByID 根据 ID 获取预订（包含房间和客人）
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Room").
		Preload("Guest").
		First(&booking, id).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetByNumber 根据预订编号获取预订（包含房间和客人）
func (r *BookingRepository) GetByNumber(ctx context.Context, number string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Room").
		Preload("Guest").
		Where("booking_number = ?", number).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// UpdateStatus 更新预订状态
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id).Update("status", status).Error
}

// UpdateNotes 更新备注
func (r *BookingRepository) UpdateNotes(ctx context.Context, id int64, notes *string) error {
	return r.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id).Update("notes", notes).Error
}

// Delete 删除预订
func (r *BookingRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Booking{}, id).Error
}

// BookingListFilters 预订列表筛选条件
type BookingListFilters struct {
	RoomID *int64
	Status string
}

// List 获取预订列表，按创建时间倒序
func (r *BookingRepository) List(ctx context.Context, offset, limit int, filters *BookingListFilters) ([]*models.Booking, int64, error) {
	var bookings []*models.Booking
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Booking{})
	if filters != nil {
		if filters.RoomID != nil {
			query = query.Where("room_id = ?", *filters.RoomID)
		}
		if filters.Status != "" {
			query = query.Where("status = ?", filters.Status)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Room").
		Preload("Guest").
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&bookings).Error; err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

// ListActiveOverlapping 获取与 [start, end) 相交的未取消预订，roomIDs 为空时查询全部房间
func (r *BookingRepository) ListActiveOverlapping(ctx context.Context, roomIDs []int64, start, end time.Time) ([]*models.Booking, error) {
	var bookings []*models.Booking
	query := r.db.WithContext(ctx).
		Where("status <> ?", models.BookingStatusCancelled).
		Where("check_in < ? AND check_out > ?", end, start)
	if len(roomIDs) > 0 {
		query = query.Where("room_id IN ?", roomIDs)
	}
	err := query.Order("check_in ASC, id ASC").Find(&bookings).Error
	return bookings, err
}

// ListActiveByRoom 获取房间与 [start, end) 相交的未取消预订
func (r *BookingRepository) ListActiveByRoom(ctx context.Context, roomID int64, start, end time.Time) ([]*models.Booking, error) {
	return r.ListActiveOverlapping(ctx, []int64{roomID}, start, end)
}

// CountByRoom 统计房间的预订数量
func (r *BookingRepository) CountByRoom(ctx context.Context, roomID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Booking{}).Where("room_id = ?", roomID).Count(&count).Error
	return count, err
}

// ListToComplete 获取退房日早于 today 的已确认预订
func (r *BookingRepository) ListToComplete(ctx context.Context, today time.Time, limit int) ([]*models.Booking, error) {
	var bookings []*models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ?", models.BookingStatusConfirmed).
		Where("check_out < ?", today).
		Order("id ASC").
		Limit(limit).
		Find(&bookings).Error
	return bookings, err
}

// CountByStatus 按状态统计预订数量
func (r *BookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.Booking{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, item := range rows {
		counts[item.Status] = item.Count
	}
	return counts, nil
}
