// Package availability 提供房间可用性核对、查询和日历服务
package availability

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dumeirei/bnb-booking-backend/internal/common/dateutil"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
)

// 房间整体可用状态
const (
	StatusFullyAvailable     = "fully_available"
	StatusPartiallyAvailable = "partially_available"
	StatusUnavailable        = "unavailable"
	StatusNotFound           = "not_found"
)

// 不可用原因
const (
	ReasonCapacity = "capacity"
	ReasonDates    = "dates"
)

// EffectiveAvailability 解析单日存储的可用标记，没有记录视为可用
func EffectiveAvailability(row *models.AvailabilityDay) bool {
	return row == nil || row.IsAvailable
}

// EffectivePrice 单日价格：有正数覆盖价时使用覆盖价，否则使用房间基础价
func EffectivePrice(row *models.AvailabilityDay, room *models.Room) float64 {
	if row != nil && row.Price != nil && *row.Price > 0 {
		return *row.Price
	}
	return room.BasePrice
}

// DayIndex 按房间和日期索引的可用性记录
type DayIndex map[int64]map[string]*models.AvailabilityDay

// IndexDays 构建可用性索引
func IndexDays(rows []*models.AvailabilityDay) DayIndex {
	idx := make(DayIndex)
	for _, row := range rows {
		byDate, ok := idx[row.RoomID]
		if !ok {
			byDate = make(map[string]*models.AvailabilityDay)
			idx[row.RoomID] = byDate
		}
		byDate[dateutil.Format(row.Date)] = row
	}
	return idx
}

// Get 获取单日记录，没有时返回 nil
func (idx DayIndex) Get(roomID int64, date time.Time) *models.AvailabilityDay {
	return idx[roomID][dateutil.Format(date)]
}

// Covered 判断日期是否被未取消预订占用（check_in <= d < check_out）
func Covered(bookings []*models.Booking, roomID int64, date time.Time) bool {
	for _, b := range bookings {
		if b.RoomID == roomID && b.Occupies(date) {
			return true
		}
	}
	return false
}

// CountCovering 统计占用该日期的未取消预订数量（不区分房间）
func CountCovering(bookings []*models.Booking, date time.Time) int {
	n := 0
	for _, b := range bookings {
		if b.Occupies(date) {
			n++
		}
	}
	return n
}

// DayState 单日核对结果
type DayState struct {
	Date   time.Time
	Flag   bool // 存储的可用标记（已解析默认值）
	Booked bool // 被未取消预订占用
	Price  float64
}

// Available 当天可订：标记可用且未被占用
func (d DayState) Available() bool {
	return d.Flag && !d.Booked
}

// BuildDayStates 为房间逐日合并可用性记录与预订
func BuildDayStates(room *models.Room, dates []time.Time, idx DayIndex, bookings []*models.Booking) []DayState {
	states := make([]DayState, 0, len(dates))
	for _, d := range dates {
		row := idx.Get(room.ID, d)
		states = append(states, DayState{
			Date:   d,
			Flag:   EffectiveAvailability(row),
			Booked: Covered(bookings, room.ID, d),
			Price:  EffectivePrice(row, room),
		})
	}
	return states
}

// RoomAvailability 单个房间在查询区间内的可用性
type RoomAvailability struct {
	Room                   *models.Room `json:"room"`
	Status                 string       `json:"status"`
	Reason                 string       `json:"reason,omitempty"`
	AvailableDates         []string     `json:"available_dates"`
	UnavailableDates       []string     `json:"unavailable_dates"`
	TotalNights            int          `json:"total_nights"`
	TotalPrice             float64      `json:"total_price"`
	AvailabilityPercentage *int         `json:"availability_percentage,omitempty"`
}

// ReconcileRoom 核对房间在 dates 上的可用性
// 容量不足时直接判定不可用，总价按基础价 × 晚数估算
func ReconcileRoom(room *models.Room, dates []time.Time, idx DayIndex, bookings []*models.Booking, guests int) RoomAvailability {
	result := RoomAvailability{
		Room:             room,
		AvailableDates:   []string{},
		UnavailableDates: []string{},
		TotalNights:      len(dates),
	}

	if guests > room.MaxGuests {
		result.Status = StatusUnavailable
		result.Reason = ReasonCapacity
		result.TotalPrice = decimal.NewFromFloat(room.BasePrice).
			Mul(decimal.NewFromInt(int64(len(dates)))).
			Round(2).InexactFloat64()
		return result
	}

	total := decimal.Zero
	for _, state := range BuildDayStates(room, dates, idx, bookings) {
		if state.Available() {
			result.AvailableDates = append(result.AvailableDates, dateutil.Format(state.Date))
			total = total.Add(decimal.NewFromFloat(state.Price))
		} else {
			result.UnavailableDates = append(result.UnavailableDates, dateutil.Format(state.Date))
		}
	}
	result.TotalPrice = total.Round(2).InexactFloat64()

	result.Status = Classify(len(result.AvailableDates), len(dates))
	switch result.Status {
	case StatusPartiallyAvailable:
		pct := Percentage(len(result.AvailableDates), len(dates))
		result.AvailabilityPercentage = &pct
	case StatusUnavailable:
		result.Reason = ReasonDates
	}
	return result
}

// Classify 按可用天数分类，三种状态互斥且完备
func Classify(available, total int) string {
	switch {
	case available >= total:
		return StatusFullyAvailable
	case available == 0:
		return StatusUnavailable
	default:
		return StatusPartiallyAvailable
	}
}

// Percentage 可用百分比，四舍五入到整数
func Percentage(available, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(available) / float64(total) * 100))
}

// RankAlternatives 按可用百分比降序挑选前 limit 个部分可用房间，同比例保持原有顺序
func RankAlternatives(partial []RoomAvailability, limit int) []RoomAvailability {
	ranked := make([]RoomAvailability, len(partial))
	copy(ranked, partial)
	sort.SliceStable(ranked, func(i, j int) bool {
		return pct(ranked[i]) > pct(ranked[j])
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func pct(r RoomAvailability) int {
	if r.AvailabilityPercentage == nil {
		return 0
	}
	return *r.AvailabilityPercentage
}
