package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/bnb-booking-backend/internal/models"
)

// NotificationRepository 通知仓储
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓储
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create 创建通知记录
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// GetByID 根据 ID 获取通知
func (r *NotificationRepository) GetByID(ctx context.Context, id int64) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).First(&notification, id).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

// Save 保存发送结果
func (r *NotificationRepository) Save(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Save(notification).Error
}

// NotificationListFilters 通知列表筛选条件
type NotificationListFilters struct {
	BookingID *int64
	Channel   string
	Status    string
}

// List 获取通知列表
func (r *NotificationRepository) List(ctx context.Context, offset, limit int, filters *NotificationListFilters) ([]*models.Notification, int64, error) {
	var notifications []*models.Notification
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Notification{})

	if filters != nil {
		if filters.BookingID != nil {
			query = query.Where("booking_id = ?", *filters.BookingID)
		}
		if filters.Channel != "" {
			query = query.Where("channel = ?", filters.Channel)
		}
		if filters.Status != "" {
			query = query.Where("status = ?", filters.Status)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// ListRetryable 获取发送失败且重试次数未达上限的通知
func (r *NotificationRepository) ListRetryable(ctx context.Context, maxAttempts, limit int) ([]*models.Notification, error) {
	var notifications []*models.Notification
	err := r.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", models.NotificationStatusFailed, maxAttempts).
		Order("id ASC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}
