package setting

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/bnb-booking-backend/internal/common/cache"
	"github.com/dumeirei/bnb-booking-backend/internal/common/config"
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

func setupCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	_, err = cache.Init(&config.RedisConfig{
		Host:        s.Host(),
		Port:        s.Server().Addr().Port,
		DialTimeout: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return s
}

func TestService_GetNotFound(t *testing.T) {
	svc := NewService(repository.NewSettingRepository(setupTestDB(t)), nil)

	_, err := svc.Get(context.Background(), models.SettingKeyContactInfo)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	phone, err := svc.ContactWhatsApp(context.Background())
	require.NoError(t, err)
	assert.Empty(t, phone)
}

func TestService_GetReadsThroughCache(t *testing.T) {
	s := setupCache(t)
	db := setupTestDB(t)
	repo := repository.NewSettingRepository(db)
	svc := NewService(repo, nil)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, models.SettingKeyContactInfo, models.JSON{"whatsapp": "+39 333 1112222"}))

	phone, err := svc.ContactWhatsApp(ctx)
	require.NoError(t, err)
	assert.Equal(t, "+393331112222", phone)
	assert.True(t, s.Exists("setting:contact_info"))
	assert.Equal(t, cacheTTL, s.TTL("setting:contact_info"))

	// 绕过服务直接改库，缓存未过期前仍返回旧值
	require.NoError(t, repo.Upsert(ctx, models.SettingKeyContactInfo, models.JSON{"whatsapp": "+39 333 9999999"}))
	phone, err = svc.ContactWhatsApp(ctx)
	require.NoError(t, err)
	assert.Equal(t, "+393331112222", phone)
}

func TestService_UpdateEvictsCache(t *testing.T) {
	s := setupCache(t)
	svc := NewService(repository.NewSettingRepository(setupTestDB(t)), nil)
	ctx := context.Background()

	_, err := svc.Update(ctx, models.SettingKeyContactInfo, models.JSON{"whatsapp": "+39 333 1112222"})
	require.NoError(t, err)
	_, err = svc.Get(ctx, models.SettingKeyContactInfo)
	require.NoError(t, err)
	require.True(t, s.Exists("setting:contact_info"))

	_, err = svc.Update(ctx, models.SettingKeyContactInfo, models.JSON{"whatsapp": "+39 320 5556666", "phone": "+39 051 123456"})
	require.NoError(t, err)
	assert.False(t, s.Exists("setting:contact_info"))

	phone, err := svc.ContactWhatsApp(ctx)
	require.NoError(t, err)
	assert.Equal(t, "+393205556666", phone)
}

func TestService_UpdateValidation(t *testing.T) {
	svc := NewService(repository.NewSettingRepository(setupTestDB(t)), nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		value models.JSON
	}{
		{"empty key", " ", models.JSON{"a": 1}},
		{"empty value", "banner", models.JSON{}},
		{"bad whatsapp", models.SettingKeyContactInfo, models.JSON{"whatsapp": "call me"}},
		{"non-string phone", models.SettingKeyContactInfo, models.JSON{"phone": 12345}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, tt.key, tt.value)
			assert.True(t, errors.Is(err, errors.ErrInvalidParams), "got %v", err)
		})
	}
}
