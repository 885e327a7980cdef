package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/bnb-booking-backend/internal/models"
)

// GuestRepository 客人仓储
type GuestRepository struct {
	db *gorm.DB
}

// NewGuestRepository 创建客人仓储
func NewGuestRepository(db *gorm.DB) *GuestRepository {
	return &GuestRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *GuestRepository) WithTx(tx *gorm.DB) *GuestRepository {
	return &GuestRepository{db: tx}
}

// GetByID 根据 ID 获取客人
func (r *GuestRepository) GetByID(ctx context.Context, id int64) (*models.Guest, error) {
	var guest models.Guest
	if err := r.db.WithContext(ctx).First(&guest, id).Error; err != nil {
		return nil, err
	}
	return &guest, nil
}

// GetByEmail 根据邮箱获取客人
func (r *GuestRepository) GetByEmail(ctx context.Context, email string) (*models.Guest, error) {
	var guest models.Guest
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&guest).Error; err != nil {
		return nil, err
	}
	return &guest, nil
}

// UpsertByEmail 按邮箱创建或更新客人资料，写入后 guest.ID 为库中记录 ID
func (r *GuestRepository) UpsertByEmail(ctx context.Context, guest *models.Guest) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"first_name", "last_name", "phone", "address", "city",
			"country", "document_type", "document_number", "updated_at",
		}),
	}).Create(guest).Error
	if err != nil {
		return err
	}

	// 冲突更新时部分驱动不回填主键
	stored, err := r.GetByEmail(ctx, guest.Email)
	if err != nil {
		return err
	}
	guest.ID = stored.ID
	guest.CreatedAt = stored.CreatedAt
	return nil
}
