// Package scheduler 提供定时任务
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dumeirei/bnb-booking-backend/internal/common/config"
	"github.com/dumeirei/bnb-booking-backend/internal/common/logger"
)

// 任务名
const (
	TaskBookingCompletion = "booking_completion"
	TaskNotificationRetry = "notification_retry"
)

// 单次任务处理的最大记录数
const batchSize = 100

// BookingCompleter 完成退房日已过的预订
type BookingCompleter interface {
	CompletePast(ctx context.Context, limit int) (int, error)
}

// NotificationRetrier 重发失败的通知
type NotificationRetrier interface {
	Retry(ctx context.Context, maxAttempts, limit int) (int, error)
}

// TaskHandler 任务处理器
type TaskHandler struct {
	bookings    BookingCompleter
	notifier    NotificationRetrier
	maxAttempts int
	logger      *zap.Logger
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(bookings BookingCompleter, notifier NotificationRetrier, maxAttempts int, log *zap.Logger) *TaskHandler {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskHandler{
		bookings:    bookings,
		notifier:    notifier,
		maxAttempts: maxAttempts,
		logger:      log.With(logger.Module("scheduler")),
	}
}

// CompletePastBookings 退房日早于今天的已确认预订标记为已完成
func (h *TaskHandler) CompletePastBookings(ctx context.Context) error {
	completed, err := h.bookings.CompletePast(ctx, batchSize)
	if err != nil {
		return err
	}
	if completed > 0 {
		h.logger.Info("past bookings completed", zap.Int("count", completed))
	}
	return nil
}

// RetryNotifications 重发失败且未达重试上限的通知
func (h *TaskHandler) RetryNotifications(ctx context.Context) error {
	sent, err := h.notifier.Retry(ctx, h.maxAttempts, batchSize)
	if err != nil {
		return err
	}
	if sent > 0 {
		h.logger.Info("notifications resent", zap.Int("count", sent))
	}
	return nil
}

// SetupTasks 设置所有任务，间隔单位为分钟
func SetupTasks(scheduler *Scheduler, handler *TaskHandler, cfg config.SchedulerConfig) {
	// 默认每小时完成已退房的预订
	scheduler.AddTask(TaskBookingCompletion, minutes(cfg.BookingCompletionInterval, 60), handler.CompletePastBookings)

	// 默认每 10 分钟重发失败通知
	scheduler.AddTask(TaskNotificationRetry, minutes(cfg.NotificationRetryInterval, 10), handler.RetryNotifications)
}

func minutes(n, def int) time.Duration {
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Minute
}
