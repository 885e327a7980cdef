package availability

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/bnb-booking-backend/internal/common/dateutil"
	"github.com/dumeirei/bnb-booking-backend/internal/common/errors"
	"github.com/dumeirei/bnb-booking-backend/internal/repository"
)

// CalendarService 房间日历服务
type CalendarService struct {
	roomRepo         *repository.RoomRepository
	availabilityRepo *repository.AvailabilityRepository
	bookingRepo      *repository.BookingRepository
}

// NewCalendarService 创建日历服务
func NewCalendarService(
	roomRepo *repository.RoomRepository,
	availabilityRepo *repository.AvailabilityRepository,
	bookingRepo *repository.BookingRepository,
) *CalendarService {
	return &CalendarService{
		roomRepo:         roomRepo,
		availabilityRepo: availabilityRepo,
		bookingRepo:      bookingRepo,
	}
}

// CalendarDay 日历中的一天
type CalendarDay struct {
	Date        string  `json:"date"`
	IsAvailable bool    `json:"is_available"`
	Price       float64 `json:"price"`
	Booked      bool    `json:"booked"`
}

// RoomCalendar 房间日历
type RoomCalendar struct {
	RoomID    int64         `json:"room_id"`
	StartDate string        `json:"start_date"`
	EndDate   string        `json:"end_date"`
	Days      []CalendarDay `json:"days"`
}

// Calendar 获取房间在窗口内逐日的有效可用性和价格
// publicOnly 为 true 时未开放的房间视为不存在
func (s *CalendarService) Calendar(ctx context.Context, roomID int64, window dateutil.Window, publicOnly bool) (*RoomCalendar, error) {
	if window.Empty() {
		return nil, errors.ErrInvalidDateRange
	}

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrRoomNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if publicOnly && !room.IsActive {
		return nil, errors.ErrRoomNotFound
	}

	rows, err := s.availabilityRepo.ListByRoom(ctx, room.ID, window.Start, window.End)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	bookings, err := s.bookingRepo.ListActiveByRoom(ctx, room.ID, window.Start, window.End)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	states := BuildDayStates(room, window.Days(), IndexDays(rows), bookings)
	days := make([]CalendarDay, 0, len(states))
	for _, st := range states {
		days = append(days, CalendarDay{
			Date:        dateutil.Format(st.Date),
			IsAvailable: st.Available(),
			Price:       st.Price,
			Booked:      st.Booked,
		})
	}

	return &RoomCalendar{
		RoomID:    room.ID,
		StartDate: dateutil.Format(window.Start),
		EndDate:   dateutil.Format(window.Last()),
		Days:      days,
	}, nil
}

// DefaultWindow 默认窗口：today 起 days 天（含首尾）
func DefaultWindow(today time.Time, days int) dateutil.Window {
	return dateutil.NewInclusiveWindow(today, dateutil.AddDays(today, days))
}
