package availability

import (
	"context"
	"regexp"
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

func newSearchService(db *gorm.DB) *SearchService {
	return NewSearchService(
		repository.NewRoomRepository(db),
		repository.NewAvailabilityRepository(db),
		repository.NewBookingRepository(db),
		3,
		30,
	)
}

type searchFixture struct {
	cheap, mid, suite *models.Room
}

func seedSearch(t *testing.T, db *gorm.DB) searchFixture {
	t.Helper()
	f := searchFixture{
		cheap: &models.Room{Name: "Singola", BasePrice: 60, MaxGuests: 1, IsActive: true},
		mid:   &models.Room{Name: "Doppia", BasePrice: 80, MaxGuests: 2, IsActive: true},
		suite: &models.Room{Name: "Suite", BasePrice: 150, MaxGuests: 4, IsActive: true},
	}
	for _, r := range []*models.Room{f.cheap, f.mid, f.suite} {
		require.NoError(t, db.Create(r).Error)
	}
	require.NoError(t, db.Create(&models.Room{Name: "Chiusa", BasePrice: 50, MaxGuests: 4, IsActive: false}).Error)

	guest := &models.Guest{FirstName: "Anna", LastName: "Rossi", Email: "anna@example.com", Phone: "+39111"}
	require.NoError(t, db.Create(guest).Error)

	// Doppia: 07-02 occupata
	require.NoError(t, db.Create(&models.Booking{
		BookingNumber: "B1", RoomID: f.mid.ID, GuestID: guest.ID,
		CheckIn: d(2026, 7, 2), CheckOut: d(2026, 7, 3), TotalPrice: 80, Status: models.BookingStatusConfirmed,
	}).Error)
	// 已取消的预订不占用
	require.NoError(t, db.Create(&models.Booking{
		BookingNumber: "B2", RoomID: f.suite.ID, GuestID: guest.ID,
		CheckIn: d(2026, 7, 1), CheckOut: d(2026, 7, 4), TotalPrice: 450, Status: models.BookingStatusCancelled,
	}).Error)
	// Suite 07-03 关闭
	require.NoError(t, db.Create(&models.AvailabilityDay{RoomID: f.suite.ID, Date: d(2026, 7, 3), IsAvailable: false}).Error)
	require.NoError(t, db.Create(&models.AvailabilityDay{RoomID: f.suite.ID, Date: d(2026, 7, 1), IsAvailable: true, Price: price(170)}).Error)
	return f
}

func TestSearchService_Search(t *testing.T) {
	db := setupTestDB(t)
	f := seedSearch(t, db)
	svc := newSearchService(db)

	res, err := svc.Search(context.Background(), &SearchQuery{CheckIn: d(2026, 7, 1), CheckOut: d(2026, 7, 4), Adults: 2})
	require.NoError(t, err)

	assert.Equal(t, Summary{TotalRooms: 3, FullyAvailable: 0, PartiallyAvailable: 2, Unavailable: 1}, res.Summary)

	require.Len(t, res.Unavailable, 1)
	assert.Equal(t, f.cheap.ID, res.Unavailable[0].Room.ID)
	assert.Equal(t, ReasonCapacity, res.Unavailable[0].Reason)
	assert.Equal(t, 180.0, res.Unavailable[0].TotalPrice)

	require.Len(t, res.PartiallyAvailable, 2)
	assert.Equal(t, f.mid.ID, res.PartiallyAvailable[0].Room.ID)
	assert.Equal(t, 160.0, res.PartiallyAvailable[0].TotalPrice)
	assert.Equal(t, []string{"2026-07-02"}, res.PartiallyAvailable[0].UnavailableDates)
	assert.Equal(t, 320.0, res.PartiallyAvailable[1].TotalPrice)

	require.NotNil(t, res.Recommendations)
	assert.Equal(t, msgNoFullyAvailable, res.Recommendations.Message)
	assert.Len(t, res.Recommendations.BestAlternatives, 2)
}

func TestSearchService_SearchFullyAvailableHasNoRecommendations(t *testing.T) {
	db := setupTestDB(t)
	seedSearch(t, db)
	svc := newSearchService(db)

	// 07-04 起无占用
	res, err := svc.Search(context.Background(), &SearchQuery{CheckIn: d(2026, 7, 4), CheckOut: d(2026, 7, 6), Adults: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Summary.FullyAvailable)
	assert.Nil(t, res.Recommendations)
}

func TestSearchService_SearchNoneAvailable(t *testing.T) {
	db := setupTestDB(t)
	seedSearch(t, db)
	svc := newSearchService(db)

	res, err := svc.Search(context.Background(), &SearchQuery{CheckIn: d(2026, 7, 4), CheckOut: d(2026, 7, 6), Adults: 5})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Summary.Unavailable)
	require.NotNil(t, res.Recommendations)
	assert.Equal(t, msgNoneAvailable, res.Recommendations.Message)
	assert.Empty(t, res.Recommendations.BestAlternatives)
}

func TestSearchService_Validation(t *testing.T) {
	svc := newSearchService(setupTestDB(t))
	ctx := context.Background()

	_, err := svc.Search(ctx, &SearchQuery{CheckIn: d(2026, 7, 4), CheckOut: d(2026, 7, 4), Adults: 2})
	assert.True(t, errors.Is(err, errors.ErrInvalidDateRange))

	_, err = svc.Search(ctx, &SearchQuery{CheckIn: d(2026, 7, 4), CheckOut: d(2026, 7, 5), Adults: 0})
	assert.True(t, errors.Is(err, errors.ErrInvalidParams))

	_, err = svc.CheckRoom(ctx, 1, &SearchQuery{CheckIn: d(2026, 7, 5), CheckOut: d(2026, 7, 4), Adults: 2})
	assert.True(t, errors.Is(err, errors.ErrInvalidDateRange))
}

func TestSearchQuery_MaxNights(t *testing.T) {
	q := &SearchQuery{CheckIn: d(2026, 7, 1), CheckOut: d(2026, 7, 31), Adults: 2}
	assert.NoError(t, q.Validate(30))

	q.CheckOut = d(2026, 8, 1)
	assert.True(t, errors.Is(q.Validate(30), errors.ErrInvalidDateRange))
	assert.NoError(t, q.Validate(0))

	q = &SearchQuery{CheckIn: d(1, 1, 1), CheckOut: d(9999, 12, 31), Adults: 2}
	assert.True(t, errors.Is(q.Validate(30), errors.ErrInvalidDateRange))
}

func TestSearchService_RejectsLongStayBeforeStorage(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	svc := newSearchService(db)

	_, err = svc.Search(context.Background(), &SearchQuery{CheckIn: d(1, 1, 1), CheckOut: d(9999, 12, 31), Adults: 2})
	assert.True(t, errors.Is(err, errors.ErrInvalidDateRange))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchService_CheckRoom(t *testing.T) {
	db := setupTestDB(t)
	f := seedSearch(t, db)
	svc := newSearchService(db)
	ctx := context.Background()
	q := &SearchQuery{CheckIn: d(2026, 7, 1), CheckOut: d(2026, 7, 3), Adults: 2}

	res, err := svc.CheckRoom(ctx, f.suite.ID, q)
	require.NoError(t, err)
	assert.Equal(t, StatusFullyAvailable, res.Status)
	assert.Equal(t, 320.0, res.Room.TotalPrice)

	res, err = svc.CheckRoom(ctx, 9999, q)
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Nil(t, res.Room)
}

func TestSearchService_StorageFailureReturnsNoPartialResult(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "rooms"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "base_price", "max_guests", "is_active"}).
			AddRow(1, "Doppia", 80, 2, true))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "availability"`)).
		WillReturnError(assert.AnError)

	res, err := newSearchService(db).Search(context.Background(), &SearchQuery{
		CheckIn: d(2026, 7, 1), CheckOut: d(2026, 7, 3), Adults: 2,
	})
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDatabaseError))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarService_Calendar(t *testing.T) {
	db := setupTestDB(t)
	f := seedSearch(t, db)
	svc := NewCalendarService(
		repository.NewRoomRepository(db),
		repository.NewAvailabilityRepository(db),
		repository.NewBookingRepository(db),
	)
	ctx := context.Background()

	cal, err := svc.Calendar(ctx, f.mid.ID, dateutil.NewInclusiveWindow(d(2026, 7, 1), d(2026, 7, 3)), true)
	require.NoError(t, err)
	assert.Equal(t, "2026-07-01", cal.StartDate)
	assert.Equal(t, "2026-07-03", cal.EndDate)
	require.Len(t, cal.Days, 3)
	assert.True(t, cal.Days[0].IsAvailable)
	assert.False(t, cal.Days[1].IsAvailable)
	assert.True(t, cal.Days[1].Booked)
	assert.True(t, cal.Days[2].IsAvailable)

	cal, err = svc.Calendar(ctx, f.suite.ID, dateutil.NewInclusiveWindow(d(2026, 7, 1), d(2026, 7, 3)), true)
	require.NoError(t, err)
	assert.Equal(t, 170.0, cal.Days[0].Price)
	assert.False(t, cal.Days[2].IsAvailable)
	assert.False(t, cal.Days[2].Booked)

	_, err = svc.Calendar(ctx, 9999, DefaultWindow(d(2026, 7, 1), 30), true)
	assert.True(t, errors.Is(err, errors.ErrRoomNotFound))

	_, err = svc.Calendar(ctx, f.mid.ID, dateutil.NewWindow(d(2026, 7, 3), d(2026, 7, 1)), true)
	assert.True(t, errors.Is(err, errors.ErrInvalidDateRange))
}
