package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/bnb-booking-backend/internal/models"
)

// BookingNightRepository 房晚占用仓储
type BookingNightRepository struct {
	db *gorm.DB
}

// NewBookingNightRepository 创建房晚占用仓储
func NewBookingNightRepository(db *gorm.DB) *BookingNightRepository {
	return &BookingNightRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *BookingNightRepository) WithTx(tx *gorm.DB) *BookingNightRepository {
	return &BookingNightRepository{db: tx}
}

// CreateForBooking 为预订写入每个入住晚的占用记录
// (room_id, date) 唯一索引冲突时返回 gorm.ErrDuplicatedKey（需开启 TranslateError）
func (r *BookingNightRepository) CreateForBooking(ctx context.Context, booking *models.Booking, nights []time.Time) error {
	if len(nights) == 0 {
		return nil
	}
	rows := make([]*models.BookingNight, 0, len(nights))
	for _, d := range nights {
		rows = append(rows, &models.BookingNight{
			BookingID: booking.ID,
			RoomID:    booking.RoomID,
			Date:      d,
		})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// DeleteByBooking 释放预订占用的房晚
func (r *BookingNightRepository) DeleteByBooking(ctx context.Context, bookingID int64) error {
	return r.db.WithContext(ctx).Where("booking_id = ?", bookingID).Delete(&models.BookingNight{}).Error
}

// ListByRoom 获取房间在 [start, end) 内的占用记录
func (r *BookingNightRepository) ListByRoom(ctx context.Context, roomID int64, start, end time.Time) ([]*models.BookingNight, error) {
	var nights []*models.BookingNight
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND date >= ? AND date < ?", roomID, start, end).
		Order("date ASC").
		Find(&nights).Error
	return nights, err
}
