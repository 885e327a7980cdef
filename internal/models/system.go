package models

import (
	"time"
)

// AgentLog 分析代理审计日志，只追加
type AgentLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Agent     string    `gorm:"type:varchar(50);not null;index" json:"agent"`
	Action    string    `gorm:"type:varchar(100);not null" json:"action"`
	Details   JSON      `gorm:"type:jsonb" json:"details,omitempty"`
	Status    string    `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 表名
func (AgentLog) TableName() string {
	return "agent_logs"
}

// AgentLogStatus 审计状态
const (
	AgentLogStatusCompleted = "completed"
	AgentLogStatusError     = "error"
)

// Notification 预订通知发送记录
type Notification struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	BookingID *int64     `gorm:"index" json:"booking_id,omitempty"`
	Channel   string     `gorm:"type:varchar(20);not null" json:"channel"`
	Recipient string     `gorm:"type:varchar(100);not null" json:"recipient"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	Status    string     `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	Attempts  int        `gorm:"not null;default:0" json:"attempts"`
	Error     *string    `gorm:"type:text" json:"error,omitempty"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Notification) TableName() string {
	return "notifications"
}

// NotificationChannel 通知渠道
const (
	NotificationChannelWhatsApp = "whatsapp"
	NotificationChannelSMS      = "sms"
)

// NotificationStatus 通知状态
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// Setting 站点设置，按 key 存储 JSON 值
type Setting struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Key       string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"key"`
	Value     JSON      `gorm:"type:jsonb" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Setting) TableName() string {
	return "settings"
}

// SettingKey 预置设置项
const (
	SettingKeyContactInfo = "contact_info"
)

// Admin 后台管理员
type Admin struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	Name         string     `gorm:"type:varchar(50);not null" json:"name"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Admin) TableName() string {
	return "admins"
}

// AllModels 需要自动迁移的模型
func AllModels() []interface{} {
	return []interface{}{
		&Room{},
		&AvailabilityDay{},
		&Guest{},
		&Booking{},
		&BookingNight{},
		&AgentLog{},
		&Notification{},
		&Setting{},
		&Admin{},
	}
}
