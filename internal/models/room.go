// Package models 定义数据库模型
package models

import (
	"time"
)

// Room 房间模型
type Room struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name             string     `gorm:"type:varchar(100);not null" json:"name"`
	Description      *string    `gorm:"type:text" json:"description,omitempty"`
	ShortDescription *string    `gorm:"type:varchar(255)" json:"short_description,omitempty"`
	BasePrice        float64    `gorm:"type:decimal(10,2);not null" json:"base_price"`
	MaxGuests        int        `gorm:"not null;default:2" json:"max_guests"`
	SizeSqm          *int       `json:"size_sqm,omitempty"`
	Beds             *string    `gorm:"type:varchar(100)" json:"beds,omitempty"`
	Amenities        StringList `gorm:"type:jsonb" json:"amenities,omitempty"`
	Images           StringList `gorm:"type:jsonb" json:"images,omitempty"`
	IsActive         bool       `gorm:"not null;index" json:"is_active"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Room) TableName() string {
	return "rooms"
}

// AvailabilityDay 房间按日可用性/价格覆盖
// 记录是稀疏的：没有记录的日期视为可用，价格为空时使用房间基础价
type AvailabilityDay struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID      int64     `gorm:"not null;uniqueIndex:uk_availability_room_date,priority:1" json:"room_id"`
	Date        time.Time `gorm:"type:date;not null;uniqueIndex:uk_availability_room_date,priority:2" json:"date"`
	IsAvailable bool      `gorm:"not null" json:"is_available"`
	Price       *float64  `gorm:"type:decimal(10,2)" json:"price,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (AvailabilityDay) TableName() string {
	return "availability"
}
