// Package setting 提供站点设置读写，读取经过 Redis 缓存
package setting

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/bnb-booking-backend/internal/common/cache"
	"github.com/dumeirei/bnb-booking-backend/internal/common/errors"
	"github.com/dumeirei/bnb-booking-backend/internal/common/logger"
	"github.com/dumeirei/bnb-booking-backend/internal/common/utils"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
	"github.com/dumeirei/bnb-booking-backend/internal/repository"
)

const cacheTTL = 5 * time.Minute

// contact_info 中需要是电话号码的字段
var contactPhoneFields = []string{"whatsapp", "phone"}

// Service 站点设置服务
type Service struct {
	settingRepo *repository.SettingRepository
	logger      *zap.Logger
}

// NewService 创建站点设置服务
func NewService(settingRepo *repository.SettingRepository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		settingRepo: settingRepo,
		logger:      log.With(logger.Module("setting")),
	}
}

// Get 读取设置，不存在时返回 ErrNotFound
// 缓存读取失败时直接读库
func (s *Service) Get(ctx context.Context, key string) (models.JSON, error) {
	cacheKey := cache.BuildKey(cache.KeyPrefixSetting, key)

	var value models.JSON
	err := cache.Get(ctx, cacheKey, &value)
	if err == nil {
		return value, nil
	}
	if !cache.IsNil(err) {
		s.logger.Warn("read setting cache failed", zap.String("key", key), zap.Error(err))
	}

	setting, err := s.settingRepo.Get(ctx, key)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if err := cache.Set(ctx, cacheKey, setting.Value, cacheTTL); err != nil {
		s.logger.Warn("write setting cache failed", zap.String("key", key), zap.Error(err))
	}
	return setting.Value, nil
}

// Update 写入设置并清除缓存
func (s *Service) Update(ctx context.Context, key string, value models.JSON) (models.JSON, error) {
	key = strings.TrimSpace(key)
	if key == "" || len(value) == 0 {
		return nil, errors.ErrInvalidParams.WithMessage("setting key and value are required")
	}
	if key == models.SettingKeyContactInfo {
		if err := validateContactInfo(value); err != nil {
			return nil, err
		}
	}

	if err := s.settingRepo.Upsert(ctx, key, value); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if err := cache.Delete(ctx, cache.BuildKey(cache.KeyPrefixSetting, key)); err != nil {
		s.logger.Warn("evict setting cache failed", zap.String("key", key), zap.Error(err))
	}

	s.logger.Info("setting updated", zap.String("key", key))
	return value, nil
}

// ContactWhatsApp 站点联系人 WhatsApp 号码，未配置时返回空串
func (s *Service) ContactWhatsApp(ctx context.Context) (string, error) {
	value, err := s.Get(ctx, models.SettingKeyContactInfo)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	var contact struct {
		WhatsApp string `json:"whatsapp"`
	}
	if err := value.Unmarshal(&contact); err != nil {
		return "", errors.ErrInternalError.WithError(err)
	}
	return utils.NormalizePhone(contact.WhatsApp), nil
}

func validateContactInfo(value models.JSON) error {
	for _, field := range contactPhoneFields {
		raw, ok := value[field]
		if !ok {
			continue
		}
		phone, ok := raw.(string)
		if !ok || !utils.ValidatePhone(utils.NormalizePhone(phone)) {
			return errors.ErrInvalidParams.WithMessage("invalid " + field + " number")
		}
	}
	return nil
}
