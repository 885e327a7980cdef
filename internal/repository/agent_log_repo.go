package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/bnb-booking-backend/internal/models"
)

// AgentLogRepository 分析代理审计日志仓储，只追加
type AgentLogRepository struct {
	db *gorm.DB
}

// NewAgentLogRepository 创建审计日志仓储
func NewAgentLogRepository(db *gorm.DB) *AgentLogRepository {
	return &AgentLogRepository{db: db}
}

// Create 追加一条审计记录
func (r *AgentLogRepository) Create(ctx context.Context, log *models.AgentLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// ListLatest 获取最近的审计记录，agent 为空时不过滤
func (r *AgentLogRepository) ListLatest(ctx context.Context, agent string, limit int) ([]*models.AgentLog, error) {
	var logs []*models.AgentLog
	query := r.db.WithContext(ctx).Model(&models.AgentLog{})
	if agent != "" {
		query = query.Where("agent = ?", agent)
	}
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
