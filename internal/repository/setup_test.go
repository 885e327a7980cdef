package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/bnb-booking-backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func createRoom(t *testing.T, db *gorm.DB, name string, basePrice float64, active bool) *models.Room {
	t.Helper()
	room := &models.Room{Name: name, BasePrice: basePrice, MaxGuests: 2, IsActive: active}
	require.NoError(t, db.Create(room).Error)
	return room
}

func createGuest(t *testing.T, db *gorm.DB, email string) *models.Guest {
	t.Helper()
	guest := &models.Guest{FirstName: "Anna", LastName: "Rossi", Email: email, Phone: "+393331234567"}
	require.NoError(t, db.Create(guest).Error)
	return guest
}

func createBooking(t *testing.T, db *gorm.DB, roomID, guestID int64, number string, in, out time.Time, status string) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		BookingNumber: number,
		RoomID:        roomID,
		GuestID:       guestID,
		CheckIn:       in,
		CheckOut:      out,
		TotalPrice:    100,
		NumGuests:     2,
		NumAdults:     2,
		Status:        status,
	}
	require.NoError(t, db.Create(booking).Error)
	return booking
}
