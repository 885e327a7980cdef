package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/bnb-booking-backend/internal/common/dateutil"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func price(p float64) *float64 { return &p }

func testRoom(id int64, base float64, maxGuests int) *models.Room {
	return &models.Room{ID: id, Name: "Room", BasePrice: base, MaxGuests: maxGuests, IsActive: true}
}

func TestEffectiveAvailabilityAndPrice(t *testing.T) {
	room := testRoom(1, 80, 2)

	assert.True(t, EffectiveAvailability(nil))
	assert.False(t, EffectiveAvailability(&models.AvailabilityDay{IsAvailable: false}))
	assert.True(t, EffectiveAvailability(&models.AvailabilityDay{IsAvailable: true}))

	assert.Equal(t, 80.0, EffectivePrice(nil, room))
	assert.Equal(t, 80.0, EffectivePrice(&models.AvailabilityDay{}, room))
	assert.Equal(t, 80.0, EffectivePrice(&models.AvailabilityDay{Price: price(0)}, room))
	assert.Equal(t, 95.5, EffectivePrice(&models.AvailabilityDay{Price: price(95.5)}, room))
}

func TestBookingHalfOpenInterval(t *testing.T) {
	b := &models.Booking{RoomID: 1, CheckIn: d(2026, 7, 10), CheckOut: d(2026, 7, 12), Status: models.BookingStatusConfirmed}
	bookings := []*models.Booking{b}

	assert.True(t, Covered(bookings, 1, d(2026, 7, 10)), "check-in night is occupied")
	assert.True(t, Covered(bookings, 1, d(2026, 7, 11)))
	assert.False(t, Covered(bookings, 1, d(2026, 7, 12)), "check-out night is free")
	assert.False(t, Covered(bookings, 2, d(2026, 7, 10)), "other room")

	b.Status = models.BookingStatusCancelled
	assert.False(t, Covered(bookings, 1, d(2026, 7, 10)))
}

func TestCountCovering(t *testing.T) {
	bookings := []*models.Booking{
		{RoomID: 1, CheckIn: d(2026, 7, 1), CheckOut: d(2026, 7, 5), Status: models.BookingStatusConfirmed},
		{RoomID: 2, CheckIn: d(2026, 7, 3), CheckOut: d(2026, 7, 4), Status: models.BookingStatusPending},
		{RoomID: 3, CheckIn: d(2026, 7, 3), CheckOut: d(2026, 7, 4), Status: models.BookingStatusCancelled},
	}
	assert.Equal(t, 2, CountCovering(bookings, d(2026, 7, 3)))
	assert.Equal(t, 1, CountCovering(bookings, d(2026, 7, 4)))
	assert.Equal(t, 0, CountCovering(bookings, d(2026, 7, 5)))
}

func TestReconcileRoom_FullyAvailable(t *testing.T) {
	room := testRoom(1, 80, 2)
	dates := dateutil.Range(d(2026, 7, 1), d(2026, 7, 4))
	idx := IndexDays([]*models.AvailabilityDay{
		{RoomID: 1, Date: d(2026, 7, 2), IsAvailable: true, Price: price(100)},
	})

	got := ReconcileRoom(room, dates, idx, nil, 2)

	assert.Equal(t, StatusFullyAvailable, got.Status)
	assert.Equal(t, []string{"2026-07-01", "2026-07-02", "2026-07-03"}, got.AvailableDates)
	assert.Empty(t, got.UnavailableDates)
	assert.Equal(t, 3, got.TotalNights)
	assert.Equal(t, 260.0, got.TotalPrice)
	assert.Nil(t, got.AvailabilityPercentage)
	assert.Empty(t, got.Reason)
}

func TestReconcileRoom_Partial(t *testing.T) {
	room := testRoom(1, 80, 4)
	dates := dateutil.Range(d(2026, 7, 1), d(2026, 7, 4))
	idx := IndexDays([]*models.AvailabilityDay{
		{RoomID: 1, Date: d(2026, 7, 1), IsAvailable: false},
	})
	bookings := []*models.Booking{
		{RoomID: 1, CheckIn: d(2026, 7, 3), CheckOut: d(2026, 7, 6), Status: models.BookingStatusConfirmed},
	}

	got := ReconcileRoom(room, dates, idx, bookings, 3)

	assert.Equal(t, StatusPartiallyAvailable, got.Status)
	assert.Equal(t, []string{"2026-07-02"}, got.AvailableDates)
	assert.Equal(t, []string{"2026-07-01", "2026-07-03"}, got.UnavailableDates)
	require.NotNil(t, got.AvailabilityPercentage)
	assert.Equal(t, 33, *got.AvailabilityPercentage)
	assert.Equal(t, 80.0, got.TotalPrice)
}

func TestReconcileRoom_UnavailableByDates(t *testing.T) {
	room := testRoom(1, 80, 2)
	dates := dateutil.Range(d(2026, 7, 1), d(2026, 7, 3))
	bookings := []*models.Booking{
		{RoomID: 1, CheckIn: d(2026, 6, 28), CheckOut: d(2026, 7, 3), Status: models.BookingStatusPending},
	}

	got := ReconcileRoom(room, dates, IndexDays(nil), bookings, 1)

	assert.Equal(t, StatusUnavailable, got.Status)
	assert.Equal(t, ReasonDates, got.Reason)
	assert.Empty(t, got.AvailableDates)
	assert.Len(t, got.UnavailableDates, 2)
	assert.Equal(t, 0.0, got.TotalPrice)
}

func TestReconcileRoom_CapacityShortCircuits(t *testing.T) {
	room := testRoom(1, 80.5, 2)
	dates := dateutil.Range(d(2026, 7, 1), d(2026, 7, 4))

	got := ReconcileRoom(room, dates, IndexDays(nil), nil, 3)

	assert.Equal(t, StatusUnavailable, got.Status)
	assert.Equal(t, ReasonCapacity, got.Reason)
	assert.Empty(t, got.AvailableDates)
	assert.Empty(t, got.UnavailableDates)
	assert.Equal(t, 241.5, got.TotalPrice)
}

func TestClassifyIsExhaustive(t *testing.T) {
	for total := 1; total <= 10; total++ {
		for available := 0; available <= total; available++ {
			status := Classify(available, total)
			switch {
			case available == total:
				assert.Equal(t, StatusFullyAvailable, status)
			case available == 0:
				assert.Equal(t, StatusUnavailable, status)
			default:
				assert.Equal(t, StatusPartiallyAvailable, status)
			}
		}
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 33, Percentage(1, 3))
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 50, Percentage(1, 2))
	assert.Equal(t, 0, Percentage(0, 0))
}

func TestRankAlternatives(t *testing.T) {
	mk := func(id int64, p int) RoomAvailability {
		return RoomAvailability{Room: testRoom(id, 80, 2), Status: StatusPartiallyAvailable, AvailabilityPercentage: &p}
	}
	partial := []RoomAvailability{mk(1, 20), mk(2, 80), mk(3, 50), mk(4, 80)}

	got := RankAlternatives(partial, 3)

	require.Len(t, got, 3)
	assert.Equal(t, int64(2), got[0].Room.ID)
	assert.Equal(t, int64(4), got[1].Room.ID)
	assert.Equal(t, int64(3), got[2].Room.ID)
	// 输入顺序不变
	assert.Equal(t, int64(1), partial[0].Room.ID)

	assert.Len(t, RankAlternatives(partial[:2], 3), 2)
}
