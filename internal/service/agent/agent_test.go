package agent

import (
	"context"
	"database/sql/driver"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/bnb-booking-backend/internal/common/dateutil"
	"github.com/dumeirei/bnb-booking-backend/internal/common/errors"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
	"github.com/dumeirei/bnb-booking-backend/internal/repository"
)

var testToday = dateutil.FixedClock(d(2026, 5, 1))

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

type agents struct {
	pricing      *PricingAgent
	availability *AvailabilityAgent
	runner       *Runner
}

func newAgents(db *gorm.DB) agents {
	roomRepo := repository.NewRoomRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	agentLogRepo := repository.NewAgentLogRepository(db)
	cfg := testAgentConfig()

	a := agents{
		pricing:      NewPricingAgent(roomRepo, availabilityRepo, bookingRepo, agentLogRepo, testToday, cfg, nil, nil),
		availability: NewAvailabilityAgent(roomRepo, availabilityRepo, bookingRepo, agentLogRepo, testToday, cfg, nil, nil),
	}
	a.runner = NewRunner(a.pricing, a.availability, agentLogRepo, cfg.LogsLimit)
	return a
}

func seedRoom(t *testing.T, db *gorm.DB, name string, base float64) *models.Room {
	t.Helper()
	room := &models.Room{Name: name, BasePrice: base, MaxGuests: 2, IsActive: true}
	require.NoError(t, db.Create(room).Error)
	return room
}

func seedBooking(t *testing.T, db *gorm.DB, room *models.Room, number string, in, out string, status string) {
	t.Helper()
	guest := &models.Guest{FirstName: "Anna", LastName: "Rossi", Email: number + "@example.com", Phone: "+39111"}
	require.NoError(t, db.Create(guest).Error)
	checkIn, err := dateutil.Parse(in)
	require.NoError(t, err)
	checkOut, err := dateutil.Parse(out)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Booking{
		BookingNumber: number, RoomID: room.ID, GuestID: guest.ID,
		CheckIn: checkIn, CheckOut: checkOut, TotalPrice: 100, NumGuests: 2, NumAdults: 2, Status: status,
	}).Error)
}

func auditLogs(t *testing.T, db *gorm.DB) []*models.AgentLog {
	t.Helper()
	var logs []*models.AgentLog
	require.NoError(t, db.Order("id ASC").Find(&logs).Error)
	return logs
}

func roomParams(room *models.Room, start, end string) *Params {
	id := room.ID
	return &Params{StartDate: start, EndDate: end, RoomID: &id}
}

// ==================== 定价代理 ====================

func TestPricingAgent_Analyze(t *testing.T) {
	db := setupTestDB(t)
	room := seedRoom(t, db, "Doppia", 92)
	a := newAgents(db)

	res, err := a.pricing.Analyze(context.Background(), roomParams(room, "2026-07-07", "2026-07-07"))
	require.NoError(t, err)
	require.Len(t, res.Results, 1)

	r := res.Results[0]
	assert.Equal(t, "2026-07-07", r.Date)
	assert.Equal(t, 92.0, r.OriginalPrice)
	assert.Equal(t, 107.64, r.AdjustedPrice)
	assert.Equal(t, PricingFactors{SeasonalFactor: 1.3, DemandFactor: 1, AdvanceBookingDiscount: 0.10}, r.Factors)
	assert.Equal(t, "2026-07-07 to 2026-07-07", res.Period)
	assert.NotEmpty(t, res.Log)

	logs := auditLogs(t, db)
	require.Len(t, logs, 1)
	assert.Equal(t, AgentPricing, logs[0].Agent)
	assert.Equal(t, ActionAnalyzePricing, logs[0].Action)
	assert.Equal(t, models.AgentLogStatusCompleted, logs[0].Status)
	assert.Equal(t, float64(room.ID), logs[0].Details["room_id"])
}

func TestPricingAgent_AnalyzeUsesStoredPriceAndDemandAcrossRooms(t *testing.T) {
	db := setupTestDB(t)
	room := seedRoom(t, db, "Doppia", 92)
	other := seedRoom(t, db, "Suite", 150)
	third := seedRoom(t, db, "Singola", 60)
	price := 100.0
	require.NoError(t, db.Create(&models.AvailabilityDay{RoomID: room.ID, Date: d(2026, 7, 7), IsAvailable: true, Price: &price}).Error)

	// 其他房间的两个预订覆盖 07-07，已取消的不计入
	seedBooking(t, db, other, "B1", "2026-07-06", "2026-07-08", models.BookingStatusConfirmed)
	seedBooking(t, db, third, "B2", "2026-07-07", "2026-07-08", models.BookingStatusPending)
	seedBooking(t, db, room, "B3", "2026-07-07", "2026-07-09", models.BookingStatusCancelled)
	// 退房日不占用
	seedBooking(t, db, room, "B4", "2026-07-05", "2026-07-07", models.BookingStatusConfirmed)

	a := newAgents(db)
	res, err := a.pricing.Analyze(context.Background(), roomParams(room, "2026-07-07", "2026-07-07"))
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, 100.0, res.Results[0].OriginalPrice)
	assert.Equal(t, 1.1, res.Results[0].Factors.DemandFactor)
	assert.Equal(t, 128.7, res.Results[0].AdjustedPrice)
}

func TestPricingAgent_DefaultWindowCoversActiveRooms(t *testing.T) {
	db := setupTestDB(t)
	seedRoom(t, db, "Doppia", 80)
	seedRoom(t, db, "Suite", 150)
	require.NoError(t, db.Create(&models.Room{Name: "Chiusa", BasePrice: 50, MaxGuests: 2}).Error)

	res, err := newAgents(db).pricing.Analyze(context.Background(), &Params{})
	require.NoError(t, err)
	// today..today+90 含首尾
	assert.Len(t, res.Results, 2*91)
	assert.Equal(t, "2026-05-01", res.Results[0].Date)
	assert.Equal(t, "2026-07-30", res.Results[90].Date)
}

func TestPricingAgent_InputErrorsBeforeStorage(t *testing.T) {
	db := setupTestDB(t)
	seedRoom(t, db, "Doppia", 80)
	a := newAgents(db)
	ctx := context.Background()

	_, err := a.pricing.Analyze(ctx, &Params{StartDate: "2026-07-10", EndDate: "2026-07-01"})
	assert.True(t, errors.Is(err, errors.ErrInvalidDateRange))

	missing := int64(999)
	_, err = a.pricing.Analyze(ctx, &Params{RoomID: &missing})
	assert.True(t, errors.Is(err, errors.ErrRoomNotFound))

	_, err = a.availability.Analyze(ctx, &Params{StartDate: "07/01/2026"})
	assert.True(t, errors.Is(err, errors.ErrInvalidParams))

	assert.Empty(t, auditLogs(t, db))
}

func TestPricingAgent_WindowCap(t *testing.T) {
	db := setupTestDB(t)
	seedRoom(t, db, "Doppia", 80)
	a := newAgents(db)
	ctx := context.Background()

	// 默认上限 366 天，含首尾
	res, err := a.pricing.Analyze(ctx, &Params{StartDate: "2026-01-01", EndDate: "2027-01-01"})
	require.NoError(t, err)
	assert.Len(t, res.Results, 366)

	_, err = a.pricing.Analyze(ctx, &Params{StartDate: "2026-01-01", EndDate: "2027-01-02"})
	assert.True(t, errors.Is(err, errors.ErrInvalidDateRange))

	_, err = a.availability.Analyze(ctx, &Params{StartDate: "0001-01-01", EndDate: "9999-12-31"})
	assert.True(t, errors.Is(err, errors.ErrInvalidDateRange))
}

func TestPricingAgent_Threshold(t *testing.T) {
	a := newAgents(setupTestDB(t))

	got, err := a.pricing.Threshold(&Params{})
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)

	for _, v := range []float64{0, 50} {
		v := v
		got, err = a.pricing.Threshold(&Params{Threshold: &v})
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	for _, v := range []float64{-0.1, 50.5} {
		v := v
		_, err = a.pricing.Threshold(&Params{Threshold: &v})
		assert.True(t, errors.Is(err, errors.ErrThresholdOutOfRange))
	}
}

func TestPricingAgent_ApplyReanalyzesAndIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	room := seedRoom(t, db, "Doppia", 92)
	a := newAgents(db)
	ctx := context.Background()

	report, err := a.pricing.Apply(ctx, roomParams(room, "2026-07-07", "2026-07-08"))
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Applied)

	day, err := repository.NewAvailabilityRepository(db).Get(ctx, room.ID, d(2026, 7, 7))
	require.NoError(t, err)
	require.NotNil(t, day.Price)
	assert.Equal(t, 107.64, *day.Price)
	assert.True(t, day.IsAvailable)

	// 重放同一批建议不产生写入
	recs := []PricingResult{{RoomID: room.ID, Date: "2026-07-07", OriginalPrice: 92, AdjustedPrice: 107.64}}
	again, err := a.pricing.Apply(ctx, &Params{Recommendations: recs})
	require.NoError(t, err)
	assert.Equal(t, 1, again.Unchanged)
	assert.Zero(t, again.Applied)

	logs := auditLogs(t, db)
	last := logs[len(logs)-1]
	assert.Equal(t, ActionApplyPricing, last.Action)
	assert.Equal(t, float64(1), last.Details["unchanged"])
	assert.Equal(t, float64(5), last.Details["threshold"])
}

// ==================== 可用性代理 ====================

func TestAvailabilityAgent_Analyze(t *testing.T) {
	db := setupTestDB(t)
	room := seedRoom(t, db, "Doppia", 80)

	// 07-03..07-06 有预订且已关闭，07-09 关闭但无预订
	seedBooking(t, db, room, "B1", "2026-07-03", "2026-07-07", models.BookingStatusConfirmed)
	for _, day := range []int{3, 4, 5, 6, 9} {
		require.NoError(t, db.Create(&models.AvailabilityDay{RoomID: room.ID, Date: d(2026, 7, day), IsAvailable: false}).Error)
	}

	a := newAgents(db)
	res, err := a.availability.Analyze(context.Background(), roomParams(room, "2026-07-01", "2026-07-10"))
	require.NoError(t, err)

	assert.Equal(t, AvailabilityStats{
		TotalDates:             10,
		AvailableDates:         5,
		UnavailableDates:       5,
		LowAvailabilityPeriods: 1,
		UnusualPatterns:        1,
	}, res.Stats)

	runs := ofKind(res.Alerts, KindLowAvailabilityRun)
	require.Len(t, runs, 1)
	assert.Equal(t, SeverityMedium, runs[0].Severity)
	assert.Equal(t, "2026-07-03", runs[0].Date)
	assert.Len(t, ofKind(res.Alerts, KindIsolatedBlock), 1)
	assert.Len(t, ofKind(res.Alerts, KindUnnecessaryBlock), 1)
	assert.Empty(t, ofKind(res.Alerts, KindMissingUnavailability))

	logs := auditLogs(t, db)
	require.Len(t, logs, 1)
	assert.Equal(t, ActionAnalyzeAvailability, logs[0].Action)
	stats, ok := logs[0].Details["stats"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(10), stats["total_dates"])
}

func TestAvailabilityAgent_FixMissingUnavailability(t *testing.T) {
	db := setupTestDB(t)
	room := seedRoom(t, db, "Doppia", 80)
	seedBooking(t, db, room, "B1", "2026-07-02", "2026-07-04", models.BookingStatusConfirmed)
	a := newAgents(db)
	ctx := context.Background()
	params := roomParams(room, "2026-07-01", "2026-07-05")

	report, err := a.availability.Fix(ctx, params)
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, 2, report.Applied)

	res, err := a.availability.Analyze(ctx, params)
	require.NoError(t, err)
	assert.Empty(t, ofKind(res.Alerts, KindMissingUnavailability))
	assert.Equal(t, 2, res.Stats.UnavailableDates)

	// 取消预订后，关闭的日期变为多余封锁
	require.NoError(t, db.Model(&models.Booking{}).Where("booking_number = ?", "B1").
		Update("status", models.BookingStatusCancelled).Error)
	res, err = a.availability.Analyze(ctx, params)
	require.NoError(t, err)
	assert.Len(t, ofKind(res.Alerts, KindUnnecessaryBlock), 2)

	fixed := a.availability.FixMismatches(ctx, res.Alerts)
	assert.Equal(t, 2, fixed.Applied)

	var logs []*models.AgentLog
	require.NoError(t, db.Where("action = ?", ActionFixAvailability).Order("id ASC").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, float64(2), logs[1].Details["fixed"])
}

func TestAvailabilityAgent_FixRejectsUnknownKind(t *testing.T) {
	db := setupTestDB(t)
	room := seedRoom(t, db, "Doppia", 80)
	a := newAgents(db)
	params := roomParams(room, "2026-07-01", "2026-07-05")
	params.Alerts = []Alert{{RoomID: room.ID, Date: "2026-07-02", Kind: "overbooked"}}

	report, err := a.availability.Fix(context.Background(), params)
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, errors.ErrInvalidParams))
}

// ==================== 调用入口 ====================

func TestRunner_Dispatch(t *testing.T) {
	db := setupTestDB(t)
	room := seedRoom(t, db, "Doppia", 92)
	a := newAgents(db)
	ctx := context.Background()
	params := *roomParams(room, "2026-07-07", "2026-07-07")

	out, err := a.runner.Run(ctx, &RunRequest{Agent: "pricing", Action: "analyze", Params: params})
	require.NoError(t, err)
	assert.IsType(t, &PricingAnalysis{}, out)

	out, err = a.runner.Run(ctx, &RunRequest{Agent: "availabilityAgent", Action: "analyze", Params: params})
	require.NoError(t, err)
	assert.IsType(t, &AvailabilityAnalysis{}, out)

	out, err = a.runner.Run(ctx, &RunRequest{Agent: "availability", Action: "fix", Params: params})
	require.NoError(t, err)
	assert.IsType(t, &RemediationReport{}, out)

	_, err = a.runner.Run(ctx, &RunRequest{Agent: "marketing", Action: "analyze"})
	assert.True(t, errors.Is(err, errors.ErrUnknownAgent))

	_, err = a.runner.Run(ctx, &RunRequest{Agent: "pricing", Action: "fix"})
	assert.True(t, errors.Is(err, errors.ErrUnknownAction))
}

func TestRunner_RunAllWithAutoFix(t *testing.T) {
	db := setupTestDB(t)
	room := seedRoom(t, db, "Doppia", 92)
	seedBooking(t, db, room, "B1", "2026-07-07", "2026-07-08", models.BookingStatusConfirmed)
	a := newAgents(db)
	ctx := context.Background()
	id := room.ID

	res, err := a.runner.RunAll(ctx, &RunAllRequest{StartDate: "2026-07-07", EndDate: "2026-07-08", RoomID: &id, AutoFix: true})
	require.NoError(t, err)
	require.NotNil(t, res.PricingApplied)
	require.NotNil(t, res.AvailabilityFixed)
	assert.Len(t, res.Pricing.Results, 2)
	assert.Equal(t, 1, res.AvailabilityFixed.Applied)

	day, err := repository.NewAvailabilityRepository(db).Get(ctx, room.ID, d(2026, 7, 7))
	require.NoError(t, err)
	assert.False(t, day.IsAvailable)
	require.NotNil(t, day.Price)

	logs, err := a.runner.Logs(ctx, "pricing", 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, ActionApplyPricing, logs[0].Action)

	all, err := a.runner.Logs(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRunner_RunAllWithoutAutoFix(t *testing.T) {
	db := setupTestDB(t)
	seedRoom(t, db, "Doppia", 92)

	res, err := newAgents(db).runner.RunAll(context.Background(), &RunAllRequest{StartDate: "2026-07-07", EndDate: "2026-07-07"})
	require.NoError(t, err)
	assert.Nil(t, res.PricingApplied)
	assert.Nil(t, res.AvailabilityFixed)
	assert.Len(t, auditLogs(t, db), 2)
}

// ==================== 存储失败 ====================

// jsonContains 匹配包含指定片段的 JSON 参数
type jsonContains string

func (c jsonContains) Match(v driver.Value) bool {
	switch b := v.(type) {
	case []byte:
		return strings.Contains(string(b), string(c))
	case string:
		return strings.Contains(b, string(c))
	}
	return false
}

func newMockAgents(t *testing.T) (agents, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return newAgents(db), mock
}

func TestPricingAgent_StorageFailureWritesErrorAudit(t *testing.T) {
	a, mock := newMockAgents(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "rooms"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "base_price", "max_guests", "is_active"}).
			AddRow(1, "Doppia", 92, 2, true))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "availability"`)).
		WillReturnError(assert.AnError)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "agent_logs"`)).
		WithArgs(AgentPricing, ActionAnalyzePricing, jsonContains(assert.AnError.Error()), models.AgentLogStatusError, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	res, err := a.pricing.Analyze(context.Background(), &Params{StartDate: "2026-07-01", EndDate: "2026-07-03"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAnalysisFailed))
	require.NotNil(t, res)
	assert.Empty(t, res.Results)
	assert.Contains(t, res.Log[len(res.Log)-1], "Error during pricing analysis")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityAgent_AuditFailureDoesNotFailRun(t *testing.T) {
	a, mock := newMockAgents(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "rooms"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "base_price", "max_guests", "is_active"}))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "agent_logs"`)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	res, err := a.availability.Analyze(context.Background(), &Params{StartDate: "2026-07-01", EndDate: "2026-07-03"})
	require.NoError(t, err)
	assert.Contains(t, res.Log, "No rooms found for analysis")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityAgent_RoomsQueryFailureWritesErrorAudit(t *testing.T) {
	a, mock := newMockAgents(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "rooms"`)).
		WillReturnError(assert.AnError)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "agent_logs"`)).
		WithArgs(AgentAvailability, ActionAnalyzeAvailability, jsonContains(assert.AnError.Error()), models.AgentLogStatusError, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	res, err := a.availability.Analyze(context.Background(), &Params{StartDate: "2026-07-01", EndDate: "2026-07-03"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAnalysisFailed))
	assert.False(t, errors.Is(err, errors.ErrDatabaseError))
	require.NotNil(t, res)
	assert.Equal(t, "2026-07-01 to 2026-07-03", res.Period)
	require.NotEmpty(t, res.Log)
	assert.Contains(t, res.Log[len(res.Log)-1], "Error during availability analysis")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPricingAgent_RoomLookupFailureWritesErrorAudit(t *testing.T) {
	a, mock := newMockAgents(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "rooms"`)).
		WillReturnError(assert.AnError)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "agent_logs"`)).
		WithArgs(AgentPricing, ActionAnalyzePricing, jsonContains(assert.AnError.Error()), models.AgentLogStatusError, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	id := int64(7)
	res, err := a.pricing.Analyze(context.Background(), &Params{StartDate: "2026-07-01", EndDate: "2026-07-03", RoomID: &id})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAnalysisFailed))
	assert.False(t, errors.Is(err, errors.ErrRoomNotFound))
	require.NotNil(t, res)
	assert.Contains(t, res.Log[len(res.Log)-1], "Error during pricing analysis")
	assert.NoError(t, mock.ExpectationsWereMet())
}
