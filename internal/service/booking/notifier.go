package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dumeirei/bnb-booking-backend/internal/common/crypto"
	"github.com/dumeirei/bnb-booking-backend/internal/common/errors"
	"github.com/dumeirei/bnb-booking-backend/internal/common/logger"
	"github.com/dumeirei/bnb-booking-backend/internal/common/metrics"
	"github.com/dumeirei/bnb-booking-backend/internal/common/utils"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
	"github.com/dumeirei/bnb-booking-backend/internal/repository"
	settingService "github.com/dumeirei/bnb-booking-backend/internal/service/setting"
)

// Sender 单个通知渠道
type Sender interface {
	Send(ctx context.Context, recipient, message string) error
}

// Notifier 预订通知分发
// WhatsApp 发给站点联系人（contact_info.whatsapp），短信发给客人；每次发送都落库，失败记录由定时任务重试
type Notifier struct {
	senders          map[string]Sender
	notificationRepo *repository.NotificationRepository
	settings         *settingService.Service
	metrics          *metrics.Metrics
	logger           *zap.Logger
	wg               sync.WaitGroup
}

// NewNotifier 创建通知分发器
func NewNotifier(
	notificationRepo *repository.NotificationRepository,
	settings *settingService.Service,
	m *metrics.Metrics,
	log *zap.Logger,
) *Notifier {
	if m == nil {
		m = metrics.GetMetrics()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{
		senders:          make(map[string]Sender),
		notificationRepo: notificationRepo,
		settings:         settings,
		metrics:          m,
		logger:           log.With(logger.Module("notifier")),
	}
}

// Register 注册通知渠道，必须在开始分发之前调用
func (n *Notifier) Register(channel string, sender Sender) {
	n.senders[channel] = sender
}

// Channels 已注册的渠道
func (n *Notifier) Channels() []string {
	channels := make([]string, 0, len(n.senders))
	for _, ch := range []string{models.NotificationChannelWhatsApp, models.NotificationChannelSMS} {
		if _, ok := n.senders[ch]; ok {
			channels = append(channels, ch)
		}
	}
	return channels
}

// Dispatch 异步发送预订确认通知，不阻塞预订流程
func (n *Notifier) Dispatch(ctx context.Context, booking *models.Booking) {
	if len(n.senders) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.BookingConfirmed(ctx, booking)
	}()
}

// Wait 等待进行中的异步发送完成
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// BookingConfirmed 同步发送预订确认通知，返回本次创建的通知记录
func (n *Notifier) BookingConfirmed(ctx context.Context, booking *models.Booking) []*models.Notification {
	message := BookingMessage(booking)
	var sent []*models.Notification

	if _, ok := n.senders[models.NotificationChannelWhatsApp]; ok {
		host, err := n.hostWhatsApp(ctx)
		switch {
		case err != nil:
			n.logger.Warn("load contact info failed", logger.BookingNo(booking.BookingNumber), zap.Error(err))
		case host == "":
			n.logger.Debug("no whatsapp contact configured, skip", logger.BookingNo(booking.BookingNumber))
		default:
			if notification := n.notify(ctx, &booking.ID, models.NotificationChannelWhatsApp, host, message); notification != nil {
				sent = append(sent, notification)
			}
		}
	}

	if _, ok := n.senders[models.NotificationChannelSMS]; ok && booking.Guest != nil && booking.Guest.Phone != "" {
		phone := utils.NormalizePhone(booking.Guest.Phone)
		if notification := n.notify(ctx, &booking.ID, models.NotificationChannelSMS, phone, message); notification != nil {
			sent = append(sent, notification)
		}
	}
	return sent
}

// SendManual 后台手动发送一条通知
func (n *Notifier) SendManual(ctx context.Context, channel, recipient, message string) (*models.Notification, error) {
	if _, ok := n.senders[channel]; !ok {
		return nil, errors.ErrInvalidParams.WithMessage(fmt.Sprintf("notification channel %q is not enabled", channel))
	}
	recipient = utils.NormalizePhone(recipient)
	if !utils.ValidatePhone(recipient) || message == "" {
		return nil, errors.ErrInvalidParams.WithMessage("a valid phone number and a message are required")
	}

	notification := n.notify(ctx, nil, channel, recipient, message)
	if notification == nil {
		return nil, errors.ErrDatabaseError
	}
	if notification.Status != models.NotificationStatusSent {
		return notification, errors.ErrExternalService.WithMessage("notification delivery failed")
	}
	return notification, nil
}

// Retry 重发失败且次数未达上限的通知，返回成功数量
func (n *Notifier) Retry(ctx context.Context, maxAttempts, limit int) (int, error) {
	pending, err := n.notificationRepo.ListRetryable(ctx, maxAttempts, limit)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, notification := range pending {
		if _, ok := n.senders[notification.Channel]; !ok {
			continue
		}
		if n.deliver(ctx, notification) == nil {
			sent++
		}
	}
	return sent, nil
}

// List 后台分页查询通知记录，按创建时间倒序
func (n *Notifier) List(ctx context.Context, page, pageSize int, filters *repository.NotificationListFilters) ([]*models.Notification, int64, error) {
	p := utils.Pagination{Page: page, PageSize: pageSize}
	p.Normalize()
	list, total, err := n.notificationRepo.List(ctx, p.GetOffset(), p.GetLimit(), filters)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return list, total, nil
}

func (n *Notifier) notify(ctx context.Context, bookingID *int64, channel, recipient, message string) *models.Notification {
	notification := &models.Notification{
		BookingID: bookingID,
		Channel:   channel,
		Recipient: recipient,
		Content:   message,
		Status:    models.NotificationStatusPending,
	}
	if err := n.notificationRepo.Create(ctx, notification); err != nil {
		n.logger.Error("create notification failed", zap.String("channel", channel), zap.Error(err))
		return nil
	}
	_ = n.deliver(ctx, notification)
	return notification
}

func (n *Notifier) deliver(ctx context.Context, notification *models.Notification) error {
	sender := n.senders[notification.Channel]
	notification.Attempts++

	err := sender.Send(ctx, notification.Recipient, notification.Content)
	if err != nil {
		msg := err.Error()
		notification.Status = models.NotificationStatusFailed
		notification.Error = &msg
		n.logger.Warn("send notification failed",
			zap.Int64("notification_id", notification.ID),
			zap.String("channel", notification.Channel),
			zap.String("recipient", crypto.MaskPhone(notification.Recipient)),
			zap.Int("attempts", notification.Attempts),
			zap.Error(err),
		)
	} else {
		now := time.Now()
		notification.Status = models.NotificationStatusSent
		notification.Error = nil
		notification.SentAt = &now
	}
	n.metrics.RecordNotification(notification.Channel, notification.Status)

	if saveErr := n.notificationRepo.Save(ctx, notification); saveErr != nil {
		n.logger.Error("save notification failed", zap.Int64("notification_id", notification.ID), zap.Error(saveErr))
	}
	return err
}

func (n *Notifier) hostWhatsApp(ctx context.Context) (string, error) {
	if n.settings == nil {
		return "", nil
	}
	return n.settings.ContactWhatsApp(ctx)
}

// BookingMessage 预订确认摘要：房间、日期和总价
func BookingMessage(b *models.Booking) string {
	guest := "A guest"
	if b.Guest != nil {
		guest = b.Guest.FullName()
	}
	room := fmt.Sprintf("room %d", b.RoomID)
	if b.Room != nil {
		room = b.Room.Name
	}
	return fmt.Sprintf("New booking: %s. %s booked %s from %s to %s. Total: €%s.",
		b.BookingNumber,
		guest,
		room,
		b.CheckIn.Format("02/01/2006"),
		b.CheckOut.Format("02/01/2006"),
		decimal.NewFromFloat(b.TotalPrice).StringFixed(2),
	)
}
