// Package booking 提供预订确认、查询和后台管理服务
package booking

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/bnb-booking-backend/internal/common/cache"
	"github.com/dumeirei/bnb-booking-backend/internal/common/config"
	"github.com/dumeirei/bnb-booking-backend/internal/common/crypto"
	"github.com/dumeirei/bnb-booking-backend/internal/common/dateutil"
	"github.com/dumeirei/bnb-booking-backend/internal/common/errors"
	"github.com/dumeirei/bnb-booking-backend/internal/common/logger"
	"github.com/dumeirei/bnb-booking-backend/internal/common/metrics"
	"github.com/dumeirei/bnb-booking-backend/internal/common/qrcode"
	"github.com/dumeirei/bnb-booking-backend/internal/common/tracing"
	"github.com/dumeirei/bnb-booking-backend/internal/common/utils"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
	"github.com/dumeirei/bnb-booking-backend/internal/repository"
	"github.com/dumeirei/bnb-booking-backend/internal/service/availability"
)

// 房间锁结果，用于指标标签
const (
	lockAcquired = "acquired"
	lockBusy     = "busy"
	lockError    = "error"
)

// errNumberTaken 生成的预订编号已存在
var errNumberTaken = stderrors.New("booking number already taken")

// Service 预订服务
type Service struct {
	db               *gorm.DB
	roomRepo         *repository.RoomRepository
	availabilityRepo *repository.AvailabilityRepository
	bookingRepo      *repository.BookingRepository
	nightRepo        *repository.BookingNightRepository
	guestRepo        *repository.GuestRepository
	locker           *cache.Locker
	notifier         *Notifier
	qr               *qrcode.Generator
	bookingNo        func() string
	clock            dateutil.Clock
	cfg              config.BookingConfig
	metrics          *metrics.Metrics
	logger           *zap.Logger
}

// NewService 创建预订服务
func NewService(
	db *gorm.DB,
	locker *cache.Locker,
	notifier *Notifier,
	clock dateutil.Clock,
	cfg config.BookingConfig,
	m *metrics.Metrics,
	log *zap.Logger,
) *Service {
	if m == nil {
		m = metrics.GetMetrics()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = "BNB"
	}
	s := &Service{
		db:               db,
		roomRepo:         repository.NewRoomRepository(db),
		availabilityRepo: repository.NewAvailabilityRepository(db),
		bookingRepo:      repository.NewBookingRepository(db),
		nightRepo:        repository.NewBookingNightRepository(db),
		guestRepo:        repository.NewGuestRepository(db),
		locker:           locker,
		notifier:         notifier,
		qr:               qrcode.NewGenerator(qrcode.WithSize(256)),
		clock:            clock,
		cfg:              cfg,
		metrics:          m,
		logger:           log.With(logger.Module("booking")),
	}
	s.bookingNo = func() string { return utils.GenerateBookingNo(s.cfg.NumberPrefix, time.Now()) }
	return s
}

// GuestInput 客人资料
type GuestInput struct {
	FirstName      string  `json:"first_name" binding:"required"`
	LastName       string  `json:"last_name" binding:"required"`
	Email          string  `json:"email" binding:"required"`
	Phone          string  `json:"phone" binding:"required"`
	Address        *string `json:"address"`
	City           *string `json:"city"`
	Country        *string `json:"country"`
	DocumentType   *string `json:"document_type"`
	DocumentNumber *string `json:"document_number"`
}

// CreateRequest 确认预订请求，日期为 YYYY-MM-DD，入住区间为 [check_in, check_out)
type CreateRequest struct {
	RoomID   int64      `json:"room_id" binding:"required"`
	CheckIn  string     `json:"check_in" binding:"required"`
	CheckOut string     `json:"check_out" binding:"required"`
	Adults   int        `json:"adults"`
	Children int        `json:"children"`
	Notes    *string    `json:"notes"`
	Guest    GuestInput `json:"guest" binding:"required"`
}

// Confirmation 预订确认结果
type Confirmation struct {
	Booking    *models.Booking `json:"booking"`
	Nights     int             `json:"nights"`
	TotalPrice float64         `json:"total_price"`
	QRCode     string          `json:"qr_code"`
}

type stay struct {
	checkIn  time.Time
	checkOut time.Time
	adults   int
	children int
}

func (s stay) guests() int {
	return s.adults + s.children
}

func (s *Service) validate(req *CreateRequest) (*stay, error) {
	checkIn, err := dateutil.Parse(req.CheckIn)
	if err != nil {
		return nil, errors.ErrInvalidParams.WithMessage("check_in must be YYYY-MM-DD")
	}
	checkOut, err := dateutil.Parse(req.CheckOut)
	if err != nil {
		return nil, errors.ErrInvalidParams.WithMessage("check_out must be YYYY-MM-DD")
	}
	if !checkIn.Before(checkOut) {
		return nil, errors.ErrInvalidDateRange.WithMessage("check_out must be after check_in")
	}
	if s.cfg.MaxNights > 0 && dateutil.DaysBetween(checkIn, checkOut) > s.cfg.MaxNights {
		return nil, errors.ErrInvalidDateRange.WithMessage(fmt.Sprintf("stay cannot exceed %d nights", s.cfg.MaxNights))
	}
	if checkIn.Before(s.clock.Today()) {
		return nil, errors.ErrInvalidDateRange.WithMessage("check_in cannot be in the past")
	}

	adults := req.Adults
	if adults == 0 {
		adults = s.cfg.DefaultAdults
	}
	if adults < 1 || req.Children < 0 {
		return nil, errors.ErrInvalidParams.WithMessage("at least one adult is required")
	}

	g := &req.Guest
	g.Email = utils.NormalizeEmail(g.Email)
	g.FirstName = strings.TrimSpace(g.FirstName)
	g.LastName = strings.TrimSpace(g.LastName)
	if g.FirstName == "" || g.LastName == "" {
		return nil, errors.ErrGuestInvalid.WithMessage("guest first and last name are required")
	}
	if !utils.ValidateEmail(g.Email) {
		return nil, errors.ErrGuestInvalid.WithMessage("guest email is invalid")
	}
	if !utils.ValidatePhone(g.Phone) {
		return nil, errors.ErrGuestInvalid.WithMessage("guest phone is invalid")
	}

	return &stay{checkIn: checkIn, checkOut: checkOut, adults: adults, children: req.Children}, nil
}

// Confirm 确认预订
// 持有房间分布式锁，在事务内重新核对每个入住晚的可用性后写入客人、预订、房晚占用和不可用标记
func (s *Service) Confirm(ctx context.Context, req *CreateRequest) (*Confirmation, error) {
	ctx, span := tracing.StartSpan(ctx, "booking.Confirm", tracing.WithRoomID(req.RoomID))
	defer span.End()

	st, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	lock, err := s.locker.Acquire(ctx, cache.RoomLockKey(req.RoomID))
	if err != nil {
		if stderrors.Is(err, cache.ErrLockNotAcquired) {
			s.metrics.RecordLockAttempt(lockBusy)
			return nil, errors.ErrRoomBusy
		}
		s.metrics.RecordLockAttempt(lockError)
		return nil, errors.ErrCacheError.WithError(err)
	}
	s.metrics.RecordLockAttempt(lockAcquired)
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release room lock failed", logger.RoomID(req.RoomID), zap.Error(err))
		}
	}()

	// 编号冲突时整笔事务用新编号重试一次
	var booking *models.Booking
	for attempt := 0; attempt < 2; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var txErr error
			booking, txErr = s.confirmTx(ctx, tx, req, st)
			return txErr
		})
		if !stderrors.Is(err, errNumberTaken) {
			break
		}
		s.logger.Warn("booking number collision", logger.RoomID(req.RoomID), zap.Error(err))
	}
	if err != nil {
		tracing.Fail(span, err)
		if errors.IsAppError(err) {
			return nil, err
		}
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			s.metrics.RecordBooking("conflict")
			return nil, errors.ErrBookingConflict
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	span.SetAttributes(tracing.WithBookingNumber(booking.BookingNumber))

	s.metrics.RecordBooking(booking.Status)
	s.logger.Info("booking confirmed",
		logger.BookingNo(booking.BookingNumber),
		logger.RoomID(booking.RoomID),
		logger.Date("check_in", booking.CheckIn),
		logger.Date("check_out", booking.CheckOut),
		zap.Float64("total_price", booking.TotalPrice),
		zap.String("guest", crypto.MaskEmail(req.Guest.Email)),
	)

	if s.notifier != nil {
		s.notifier.Dispatch(ctx, booking)
	}

	qr, err := s.qr.GenerateDataURL(booking.BookingNumber)
	if err != nil {
		s.logger.Warn("generate booking qr code failed", logger.BookingNo(booking.BookingNumber), zap.Error(err))
	}
	return &Confirmation{
		Booking:    booking,
		Nights:     booking.Nights(),
		TotalPrice: booking.TotalPrice,
		QRCode:     qr,
	}, nil
}

func (s *Service) confirmTx(ctx context.Context, tx *gorm.DB, req *CreateRequest, st *stay) (*models.Booking, error) {
	room, err := s.roomRepo.WithTx(tx).GetForUpdate(ctx, req.RoomID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrRoomNotFound
		}
		return nil, err
	}
	if !room.IsActive {
		return nil, errors.ErrRoomInactive
	}
	if st.guests() > room.MaxGuests {
		return nil, errors.ErrCapacityExceeded.WithMessage(
			fmt.Sprintf("room %s accepts at most %d guests", room.Name, room.MaxGuests))
	}

	nights := dateutil.Range(st.checkIn, st.checkOut)
	rows, err := s.availabilityRepo.WithTx(tx).ListByRoom(ctx, room.ID, st.checkIn, st.checkOut)
	if err != nil {
		return nil, err
	}
	existing, err := s.bookingRepo.WithTx(tx).ListActiveByRoom(ctx, room.ID, st.checkIn, st.checkOut)
	if err != nil {
		return nil, err
	}
	reconciled := availability.ReconcileRoom(room, nights, availability.IndexDays(rows), existing, st.guests())
	if reconciled.Status != availability.StatusFullyAvailable {
		s.metrics.RecordBooking("conflict")
		return nil, errors.ErrBookingConflict.WithMessage(
			"the selected dates are no longer available: " + strings.Join(reconciled.UnavailableDates, ", "))
	}

	in := &req.Guest
	guest := &models.Guest{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Phone:          strings.TrimSpace(in.Phone),
		Address:        in.Address,
		City:           in.City,
		Country:        in.Country,
		DocumentType:   in.DocumentType,
		DocumentNumber: in.DocumentNumber,
	}
	if err := s.guestRepo.WithTx(tx).UpsertByEmail(ctx, guest); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		BookingNumber: s.bookingNo(),
		RoomID:        room.ID,
		GuestID:       guest.ID,
		CheckIn:       st.checkIn,
		CheckOut:      st.checkOut,
		TotalPrice:    reconciled.TotalPrice,
		NumGuests:     st.guests(),
		NumAdults:     st.adults,
		NumChildren:   st.children,
		Status:        models.BookingStatusConfirmed,
		Notes:         req.Notes,
	}
	if err := s.bookingRepo.WithTx(tx).Create(ctx, booking); err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s", errNumberTaken, booking.BookingNumber)
		}
		return nil, err
	}
	if err := s.occupy(ctx, tx, booking, nights); err != nil {
		return nil, err
	}

	booking.Room = room
	booking.Guest = guest
	return booking, nil
}

// occupy 写入房晚占用并把这些日期标记为不可用
func (s *Service) occupy(ctx context.Context, tx *gorm.DB, booking *models.Booking, nights []time.Time) error {
	if err := s.nightRepo.WithTx(tx).CreateForBooking(ctx, booking, nights); err != nil {
		return err
	}
	availRepo := s.availabilityRepo.WithTx(tx)
	for _, d := range nights {
		if err := availRepo.UpsertAvailability(ctx, booking.RoomID, d, false); err != nil {
			return err
		}
	}
	return nil
}

// GetByNumber 根据预订编号获取预订
func (s *Service) GetByNumber(ctx context.Context, number string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return nil, notFound(err)
	}
	return booking, nil
}

// GetByID 根据 ID 获取预订
func (s *Service) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return booking, nil
}

// ListFilters 后台预订列表筛选
type ListFilters struct {
	Status string
	RoomID *int64
}

// List 分页获取预订列表，按创建时间倒序
func (s *Service) List(ctx context.Context, page, pageSize int, filters *ListFilters) ([]*models.Booking, int64, error) {
	repoFilters := &repository.BookingListFilters{}
	if filters != nil {
		if filters.Status != "" && !models.ValidBookingStatus(filters.Status) {
			return nil, 0, errors.ErrInvalidBookingStatus
		}
		repoFilters.Status = filters.Status
		repoFilters.RoomID = filters.RoomID
	}

	p := utils.Pagination{Page: page, PageSize: pageSize}
	p.Normalize()
	bookings, total, err := s.bookingRepo.List(ctx, p.GetOffset(), p.GetLimit(), repoFilters)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return bookings, total, nil
}

// UpdateStatus 修改预订状态
// 取消时释放房晚占用，可用标记保留给可用性代理标记为 unnecessary_block
// 从取消恢复时重新占用并标记为不可用，冲突返回 ErrBookingConflict
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*models.Booking, error) {
	if !models.ValidBookingStatus(status) {
		return nil, errors.ErrInvalidBookingStatus
	}

	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status == status {
		return booking, nil
	}
	previous := booking.Status

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.bookingRepo.WithTx(tx).UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		nightRepo := s.nightRepo.WithTx(tx)
		switch {
		case status == models.BookingStatusCancelled:
			return nightRepo.DeleteByBooking(ctx, id)
		case previous == models.BookingStatusCancelled:
			return s.occupy(ctx, tx, booking, dateutil.Range(booking.CheckIn, booking.CheckOut))
		}
		return nil
	})
	if err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.ErrBookingConflict
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	booking.Status = status
	s.metrics.RecordBooking(status)
	s.logger.Info("booking status changed",
		logger.BookingNo(booking.BookingNumber),
		zap.String("from", previous),
		zap.String("to", status),
	)
	return booking, nil
}

// UpdateNotes 修改预订备注
func (s *Service) UpdateNotes(ctx context.Context, id int64, notes *string) (*models.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.bookingRepo.UpdateNotes(ctx, id, notes); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	booking.Notes = notes
	return booking, nil
}

// Delete 删除预订及其房晚占用
func (s *Service) Delete(ctx context.Context, id int64) error {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.nightRepo.WithTx(tx).DeleteByBooking(ctx, id); err != nil {
			return err
		}
		return s.bookingRepo.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	s.logger.Info("booking deleted", logger.BookingNo(booking.BookingNumber))
	return nil
}

// CompletePast 把退房日已过的已确认预订标记为已完成，返回处理数量
func (s *Service) CompletePast(ctx context.Context, limit int) (int, error) {
	bookings, err := s.bookingRepo.ListToComplete(ctx, s.clock.Today(), limit)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, b := range bookings {
		if err := s.bookingRepo.UpdateStatus(ctx, b.ID, models.BookingStatusCompleted); err != nil {
			s.logger.Error("complete booking failed", logger.BookingNo(b.BookingNumber), zap.Error(err))
			continue
		}
		s.metrics.RecordBooking(models.BookingStatusCompleted)
		completed++
	}
	return completed, nil
}

// StatusCounts 按状态统计预订数量
func (s *Service) StatusCounts(ctx context.Context) (map[string]int64, error) {
	counts, err := s.bookingRepo.CountByStatus(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return counts, nil
}

func notFound(err error) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrBookingNotFound
	}
	return errors.ErrDatabaseError.WithError(err)
}
