package availability

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/bnb-booking-backend/internal/common/dateutil"
	"github.com/dumeirei/bnb-booking-backend/internal/common/errors"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
	"github.com/dumeirei/bnb-booking-backend/internal/repository"
)

const (
	msgNoFullyAvailable = "No room is fully available for the selected period"
	msgNoneAvailable    = "No room is available for the selected period"
	msgSuggestion       = "Try different dates or contact us for a tailored solution"
)

// SearchService 可用房间查询服务
type SearchService struct {
	roomRepo         *repository.RoomRepository
	availabilityRepo *repository.AvailabilityRepository
	bookingRepo      *repository.BookingRepository
	maxAlternatives  int
	maxNights        int
}

// NewSearchService 创建可用房间查询服务
func NewSearchService(
	roomRepo *repository.RoomRepository,
	availabilityRepo *repository.AvailabilityRepository,
	bookingRepo *repository.BookingRepository,
	maxAlternatives int,
	maxNights int,
) *SearchService {
	return &SearchService{
		roomRepo:         roomRepo,
		availabilityRepo: availabilityRepo,
		bookingRepo:      bookingRepo,
		maxAlternatives:  maxAlternatives,
		maxNights:        maxNights,
	}
}

// SearchQuery 查询条件，入住区间为 [CheckIn, CheckOut)
type SearchQuery struct {
	CheckIn  time.Time
	CheckOut time.Time
	Adults   int
	Children int
}

// Guests 入住总人数
func (q *SearchQuery) Guests() int {
	return q.Adults + q.Children
}

// Validate 校验查询条件，maxNights 大于 0 时限制入住晚数
func (q *SearchQuery) Validate(maxNights int) error {
	if !q.CheckIn.Before(q.CheckOut) {
		return errors.ErrInvalidDateRange.WithMessage("check_out must be after check_in")
	}
	if maxNights > 0 && dateutil.DaysBetween(q.CheckIn, q.CheckOut) > maxNights {
		return errors.ErrInvalidDateRange.WithMessage(fmt.Sprintf("stay cannot exceed %d nights", maxNights))
	}
	if q.Adults < 1 || q.Children < 0 {
		return errors.ErrInvalidParams.WithMessage("at least one adult is required")
	}
	return nil
}

// Summary 分类统计
type Summary struct {
	TotalRooms         int `json:"total_rooms"`
	FullyAvailable     int `json:"fully_available"`
	PartiallyAvailable int `json:"partially_available"`
	Unavailable        int `json:"unavailable"`
}

// Recommendations 没有完全可用房间时的建议
type Recommendations struct {
	Message          string             `json:"message"`
	BestAlternatives []RoomAvailability `json:"best_alternatives,omitempty"`
	Suggestion       string             `json:"suggestion"`
}

// SearchResult 查询结果
type SearchResult struct {
	FullyAvailable     []RoomAvailability `json:"fully_available"`
	PartiallyAvailable []RoomAvailability `json:"partially_available"`
	Unavailable        []RoomAvailability `json:"unavailable"`
	Summary            Summary            `json:"summary"`
	Recommendations    *Recommendations   `json:"recommendations,omitempty"`
}

// RoomCheckResult 指定房间的查询结果
type RoomCheckResult struct {
	Room   *RoomAvailability `json:"room"`
	Status string            `json:"status"`
}

// Search 查询全部开放房间在区间内的可用性
func (s *SearchService) Search(ctx context.Context, q *SearchQuery) (*SearchResult, error) {
	if err := q.Validate(s.maxNights); err != nil {
		return nil, err
	}

	rooms, err := s.roomRepo.ListActive(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	results, err := s.reconcile(ctx, rooms, q)
	if err != nil {
		return nil, err
	}

	out := &SearchResult{
		FullyAvailable:     []RoomAvailability{},
		PartiallyAvailable: []RoomAvailability{},
		Unavailable:        []RoomAvailability{},
	}
	for _, r := range results {
		switch r.Status {
		case StatusFullyAvailable:
			out.FullyAvailable = append(out.FullyAvailable, r)
		case StatusPartiallyAvailable:
			out.PartiallyAvailable = append(out.PartiallyAvailable, r)
		default:
			out.Unavailable = append(out.Unavailable, r)
		}
	}
	out.Summary = Summary{
		TotalRooms:         len(rooms),
		FullyAvailable:     len(out.FullyAvailable),
		PartiallyAvailable: len(out.PartiallyAvailable),
		Unavailable:        len(out.Unavailable),
	}

	switch {
	case len(out.FullyAvailable) == 0 && len(out.PartiallyAvailable) > 0:
		out.Recommendations = &Recommendations{
			Message:          msgNoFullyAvailable,
			BestAlternatives: RankAlternatives(out.PartiallyAvailable, s.maxAlternatives),
			Suggestion:       msgSuggestion,
		}
	case len(out.FullyAvailable) == 0:
		out.Recommendations = &Recommendations{
			Message:    msgNoneAvailable,
			Suggestion: msgSuggestion,
		}
	}

	return out, nil
}

// CheckRoom 查询单个房间，房间不存在或未开放时状态为 not_found
func (s *SearchService) CheckRoom(ctx context.Context, roomID int64, q *SearchQuery) (*RoomCheckResult, error) {
	if err := q.Validate(s.maxNights); err != nil {
		return nil, err
	}

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return &RoomCheckResult{Status: StatusNotFound}, nil
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if !room.IsActive {
		return &RoomCheckResult{Status: StatusNotFound}, nil
	}

	results, err := s.reconcile(ctx, []*models.Room{room}, q)
	if err != nil {
		return nil, err
	}
	return &RoomCheckResult{Room: &results[0], Status: results[0].Status}, nil
}

// reconcile 一次读取区间内的记录和预订，逐个房间核对；任何读取失败都不返回部分结果
func (s *SearchService) reconcile(ctx context.Context, rooms []*models.Room, q *SearchQuery) ([]RoomAvailability, error) {
	if len(rooms) == 0 {
		return []RoomAvailability{}, nil
	}

	ids := make([]int64, 0, len(rooms))
	for _, room := range rooms {
		ids = append(ids, room.ID)
	}

	rows, err := s.availabilityRepo.ListByRooms(ctx, ids, q.CheckIn, q.CheckOut)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	bookings, err := s.bookingRepo.ListActiveOverlapping(ctx, ids, q.CheckIn, q.CheckOut)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	dates := dateutil.Range(q.CheckIn, q.CheckOut)
	idx := IndexDays(rows)
	results := make([]RoomAvailability, 0, len(rooms))
	for _, room := range rooms {
		results = append(results, ReconcileRoom(room, dates, idx, bookings, q.Guests()))
	}
	return results, nil
}
