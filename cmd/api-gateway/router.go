// Package main 是应用程序入口
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/bnb-booking-backend/internal/common/cache"
	"github.com/dumeirei/bnb-booking-backend/internal/common/config"
	"github.com/dumeirei/bnb-booking-backend/internal/common/dateutil"
	"github.com/dumeirei/bnb-booking-backend/internal/common/jwt"
	"github.com/dumeirei/bnb-booking-backend/internal/common/metrics"
	commonMiddleware "github.com/dumeirei/bnb-booking-backend/internal/common/middleware"
	adminHandler "github.com/dumeirei/bnb-booking-backend/internal/handler/admin"
	bookingHandler "github.com/dumeirei/bnb-booking-backend/internal/handler/booking"
	roomHandler "github.com/dumeirei/bnb-booking-backend/internal/handler/room"
	"github.com/dumeirei/bnb-booking-backend/internal/middleware"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
	"github.com/dumeirei/bnb-booking-backend/internal/repository"
	"github.com/dumeirei/bnb-booking-backend/internal/scheduler"
	agentService "github.com/dumeirei/bnb-booking-backend/internal/service/agent"
	authService "github.com/dumeirei/bnb-booking-backend/internal/service/auth"
	availabilityService "github.com/dumeirei/bnb-booking-backend/internal/service/availability"
	bookingService "github.com/dumeirei/bnb-booking-backend/internal/service/booking"
	roomService "github.com/dumeirei/bnb-booking-backend/internal/service/room"
	settingService "github.com/dumeirei/bnb-booking-backend/internal/service/setting"
	"github.com/dumeirei/bnb-booking-backend/pkg/sms"
	"github.com/dumeirei/bnb-booking-backend/pkg/whatsapp"
)

// 请求体上限
const maxBodyBytes = 1 << 20

// application 需要在退出时关闭的组件
type application struct {
	notifier  *bookingService.Notifier
	scheduler *scheduler.Scheduler
}

// setupRouter 设置路由
func setupRouter(
	r *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
) (*application, error) {
	// 创建 JWT 管理器
	jwtManager := jwt.NewManager(&jwt.Config{
		Secret:            cfg.JWT.Secret,
		AccessExpireTime:  cfg.JWT.AccessTokenDuration(),
		RefreshExpireTime: cfg.JWT.RefreshTokenDuration(),
		Issuer:            cfg.JWT.Issuer,
	})

	m := metrics.GetMetrics()
	clock := dateutil.SystemClock{Location: cfg.Booking.Location()}

	// 初始化仓储
	roomRepo := repository.NewRoomRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	agentLogRepo := repository.NewAgentLogRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	settingSvc := settingService.NewService(repository.NewSettingRepository(db), logger)

	// 初始化通知渠道
	notifier := bookingService.NewNotifier(
		repository.NewNotificationRepository(db),
		settingSvc,
		m,
		logger,
	)
	if err := registerSenders(notifier, cfg, logger); err != nil {
		return nil, err
	}

	// 初始化服务
	authSvc := authService.NewAuthService(adminRepo, jwtManager, cfg.Crypto.BcryptCost, logger)
	created, err := authSvc.EnsureAdmin(context.Background(), cfg.Admin.InitialUsername, cfg.Admin.InitialPassword, cfg.Admin.InitialName)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("initial admin created", zap.String("username", cfg.Admin.InitialUsername))
	}

	roomSvc := roomService.NewService(db, logger)
	searchSvc := availabilityService.NewSearchService(roomRepo, availabilityRepo, bookingRepo, cfg.Agent.MaxAlternatives, cfg.Booking.MaxNights)
	calendarSvc := availabilityService.NewCalendarService(roomRepo, availabilityRepo, bookingRepo)
	availabilityAdminSvc := availabilityService.NewAdminService(roomRepo, availabilityRepo, agentLogRepo, logger)

	locker := cache.NewLocker(redisClient, cfg.Booking.LockTTL())
	bookingSvc := bookingService.NewService(db, locker, notifier, clock, cfg.Booking, m, logger)

	pricingAgent := agentService.NewPricingAgent(roomRepo, availabilityRepo, bookingRepo, agentLogRepo, clock, cfg.Agent, m, logger)
	availabilityAgent := agentService.NewAvailabilityAgent(roomRepo, availabilityRepo, bookingRepo, agentLogRepo, clock, cfg.Agent, m, logger)
	runner := agentService.NewRunner(pricingAgent, availabilityAgent, agentLogRepo, cfg.Agent.LogsLimit)

	// 初始化处理器
	roomH := roomHandler.NewHandler(roomSvc, searchSvc, calendarSvc, clock, cfg.Agent.AvailabilityWindowDays, cfg.Agent.MaxWindowDays)
	bookingH := bookingHandler.NewHandler(bookingSvc)
	authH := adminHandler.NewAuthHandler(authSvc)
	adminRoomH := adminHandler.NewRoomHandler(roomSvc)
	adminAvailabilityH := adminHandler.NewAvailabilityHandler(availabilityAdminSvc)
	adminBookingH := adminHandler.NewBookingHandler(bookingSvc)
	agentH := adminHandler.NewAgentHandler(runner)
	notificationH := adminHandler.NewNotificationHandler(notifier)
	settingH := adminHandler.NewSettingHandler(settingSvc)

	operationLogger := commonMiddleware.NewOperationLogger(agentLogRepo, logger)

	// 全局中间件
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.RequestSizeLimiter(maxBodyBytes))
	r.Use(middleware.CORS(middleware.CORSConfigFrom(&cfg.CORS)))
	r.Use(middleware.AccessLog(logger))
	if cfg.Tracing.Enabled {
		r.Use(commonMiddleware.Tracing(&commonMiddleware.TracingConfig{
			ServiceName: cfg.Tracing.ServiceName,
			SkipPaths:   []string{"/health", "/ping", "/ready", cfg.Metrics.Path},
		}))
		r.Use(commonMiddleware.InjectTraceContext())
	}
	if cfg.Metrics.Enabled {
		r.Use(m.Middleware())
		r.GET(cfg.Metrics.Path, metrics.Handler())
	}

	// 健康检查（不需要认证）
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(db, redisClient))

	// Swagger 文档
	if !cfg.IsRelease() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var bookingLimiters, loginLimiters []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		bookingLimiters = append(bookingLimiters, middleware.IPRateLimit(
			redisClient, "booking", cfg.RateLimit.BookingLimit, seconds(cfg.RateLimit.BookingWindow),
		))
		loginLimiters = append(loginLimiters, middleware.IPRateLimit(
			redisClient, "login", cfg.RateLimit.LoginLimit, seconds(cfg.RateLimit.LoginWindow),
		))
	}

	// 前台 API（无需认证）
	v1 := r.Group("/api/v1")
	{
		roomH.RegisterRoutes(v1)
		bookingH.RegisterRoutes(v1, bookingLimiters...)
	}

	// 管理后台 API
	admin := r.Group("/api/admin")
	{
		// 管理员登录（公开）
		admin.POST("/auth/login", append(loginLimiters, authH.Login)...)
		admin.POST("/auth/refresh", authH.RefreshToken)

		// 需要管理员认证
		adminAuth := admin.Group("")
		adminAuth.Use(middleware.AdminAuth(jwtManager))
		adminAuth.Use(operationLogger.Log())
		{
			adminAuth.GET("/auth/profile", authH.Profile)

			// 房间管理
			adminAuth.GET("/rooms", adminRoomH.List)
			adminAuth.POST("/rooms", adminRoomH.Create)
			adminAuth.GET("/rooms/:id", adminRoomH.Get)
			adminAuth.PUT("/rooms/:id", adminRoomH.Update)
			adminAuth.PUT("/rooms/:id/toggle", adminRoomH.Toggle)
			adminAuth.DELETE("/rooms/:id", adminRoomH.Delete)

			// 可用性维护
			adminAuth.GET("/availability", adminAvailabilityH.List)
			adminAuth.POST("/availability", adminAvailabilityH.BatchUpdate)

			// 预订管理
			adminAuth.GET("/bookings", adminBookingH.List)
			adminAuth.GET("/bookings/stats", adminBookingH.Stats)
			adminAuth.GET("/bookings/:id", adminBookingH.Get)
			adminAuth.PUT("/bookings/:id/status", adminBookingH.UpdateStatus)
			adminAuth.PUT("/bookings/:id/notes", adminBookingH.UpdateNotes)
			adminAuth.DELETE("/bookings/:id", adminBookingH.Delete)

			// 定价/可用性代理
			adminAuth.POST("/agents/run", agentH.Run)
			adminAuth.POST("/agents/run-all", agentH.RunAll)
			adminAuth.GET("/agents/logs", agentH.Logs)

			// 通知
			adminAuth.GET("/notifications", notificationH.List)
			adminAuth.POST("/notifications/send", notificationH.Send)

			// 站点设置
			adminAuth.GET("/settings/:key", settingH.Get)
			adminAuth.PUT("/settings/:key", settingH.Update)
		}
	}

	// 404 处理
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    http.StatusNotFound,
			"message": "接口不存在",
		})
	})

	app := &application{notifier: notifier}
	if cfg.Scheduler.Enabled {
		app.scheduler = scheduler.NewScheduler(logger)
		taskHandler := scheduler.NewTaskHandler(bookingSvc, notifier, cfg.Scheduler.NotificationMaxAttempts, logger)
		scheduler.SetupTasks(app.scheduler, taskHandler, cfg.Scheduler)
	}
	return app, nil
}

// registerSenders 按配置注册 WhatsApp 和短信渠道，未启用的渠道不注册
func registerSenders(notifier *bookingService.Notifier, cfg *config.Config, logger *zap.Logger) error {
	if cfg.WhatsApp.Enabled {
		notifier.Register(models.NotificationChannelWhatsApp, whatsapp.NewClient(whatsapp.Options{
			BaseURL:           cfg.WhatsApp.BaseURL,
			APIKey:            cfg.WhatsApp.APIKey,
			Timeout:           seconds(cfg.WhatsApp.Timeout),
			RequestsPerSecond: cfg.WhatsApp.RequestsPerSecond,
			MaxRetryElapsed:   seconds(cfg.WhatsApp.MaxRetryElapsed),
		}, logger))
	}

	if cfg.SMS.Enabled {
		sender, err := sms.NewAliyunSender(&sms.Config{
			AccessKeyID:     cfg.SMS.AccessKeyID,
			AccessKeySecret: cfg.SMS.AccessKeySecret,
			RegionID:        cfg.SMS.RegionID,
			SignName:        cfg.SMS.SignName,
			TemplateCode:    cfg.SMS.TemplateID,
		})
		if err != nil {
			return err
		}
		notifier.Register(models.NotificationChannelSMS, sender)
	} else if cfg.IsDebug() {
		// 开发环境未配置短信时使用 Mock 渠道
		notifier.Register(models.NotificationChannelSMS, sms.NewMockSender())
	}

	logger.Info("notification channels registered", zap.Strings("channels", notifier.Channels()))
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
