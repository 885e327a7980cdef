package models

import (
	"time"
)

// Guest 客人
type Guest struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FirstName      string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName       string    `gorm:"type:varchar(100);not null" json:"last_name"`
	Email          string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone          string    `gorm:"type:varchar(30);not null" json:"phone"`
	Address        *string   `gorm:"type:varchar(255)" json:"address,omitempty"`
	City           *string   `gorm:"type:varchar(100)" json:"city,omitempty"`
	Country        *string   `gorm:"type:varchar(100)" json:"country,omitempty"`
	DocumentType   *string   `gorm:"type:varchar(30)" json:"document_type,omitempty"`
	DocumentNumber *string   `gorm:"type:varchar(50)" json:"document_number,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Guest) TableName() string {
	return "guests"
}

// FullName 客人全名
func (g *Guest) FullName() string {
	return g.FirstName + " " + g.LastName
}

// Booking 预订
// 入住区间为半开区间 [CheckIn, CheckOut)，退房当晚不占用
type Booking struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BookingNumber string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"booking_number"`
	RoomID        int64     `gorm:"not null;index:idx_bookings_room_dates,priority:1" json:"room_id"`
	GuestID       int64     `gorm:"not null;index" json:"guest_id"`
	CheckIn       time.Time `gorm:"type:date;not null;index:idx_bookings_room_dates,priority:2" json:"check_in"`
	CheckOut      time.Time `gorm:"type:date;not null;index:idx_bookings_room_dates,priority:3" json:"check_out"`
	TotalPrice    float64   `gorm:"type:decimal(10,2);not null" json:"total_price"`
	NumGuests     int       `gorm:"not null;default:1" json:"num_guests"`
	NumAdults     int       `gorm:"not null;default:1" json:"num_adults"`
	NumChildren   int       `gorm:"not null;default:0" json:"num_children"`
	Status        string    `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	Notes         *string   `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Room  *Room  `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	Guest *Guest `gorm:"foreignKey:GuestID" json:"guest,omitempty"`
}

// TableName 表名
func (Booking) TableName() string {
	return "bookings"
}

// BookingStatus 预订状态
const (
	BookingStatusPending   = "pending"   // 待确认
	BookingStatusConfirmed = "confirmed" // 已确认
	BookingStatusCancelled = "cancelled" // 已取消
	BookingStatusCompleted = "completed" // 已完成
)

// ValidBookingStatus 是否为合法的预订状态
func ValidBookingStatus(status string) bool {
	switch status {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

// Nights 入住晚数
func (b *Booking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
}

// Occupies 判断某天是否被该预订占用（check_in <= d < check_out）
func (b *Booking) Occupies(d time.Time) bool {
	if b.Status == BookingStatusCancelled {
		return false
	}
	return !d.Before(b.CheckIn) && d.Before(b.CheckOut)
}

// BookingNight 房晚占用记录，(room_id, date) 唯一，防止重复预订
type BookingNight struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BookingID int64     `gorm:"not null;index" json:"booking_id"`
	RoomID    int64     `gorm:"not null;uniqueIndex:uk_booking_nights_room_date,priority:1" json:"room_id"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:uk_booking_nights_room_date,priority:2" json:"date"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 表名
func (BookingNight) TableName() string {
	return "booking_nights"
}
