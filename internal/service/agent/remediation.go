package agent

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/bnb-booking-backend/internal/common/dateutil"
	"github.com/dumeirei/bnb-booking-backend/internal/common/metrics"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
	"github.com/dumeirei/bnb-booking-backend/internal/service/availability"
)

// AvailabilityStore 修复所需的可用性存储
type AvailabilityStore interface {
	Get(ctx context.Context, roomID int64, date time.Time) (*models.AvailabilityDay, error)
	UpsertAvailability(ctx context.Context, roomID int64, date time.Time, available bool) error
	UpsertPrice(ctx context.Context, roomID int64, date time.Time, price float64) error
}

// 单条修复结果
const (
	ResultApplied   = "applied"
	ResultUnchanged = "unchanged"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
)

// 修复类型，用于指标标签
const remediationKindPricing = "pricing"

// PricingResult 单个房间单日的定价建议
type PricingResult struct {
	RoomID        int64          `json:"room_id"`
	RoomName      string         `json:"room_name"`
	Date          string         `json:"date"`
	OriginalPrice float64        `json:"original_price"`
	AdjustedPrice float64        `json:"adjusted_price"`
	Factors       PricingFactors `json:"factors"`
}

// RemediationReport 修复报告，任何一条失败时 Success 为 false
type RemediationReport struct {
	Success   bool     `json:"success"`
	Total     int      `json:"total"`
	Applied   int      `json:"applied"`
	Unchanged int      `json:"unchanged"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Log       []string `json:"log"`
}

func (r *RemediationReport) record(result string) {
	switch result {
	case ResultApplied:
		r.Applied++
	case ResultUnchanged:
		r.Unchanged++
	case ResultSkipped:
		r.Skipped++
	case ResultFailed:
		r.Failed++
	}
}

func (r *RemediationReport) logf(format string, args ...interface{}) {
	r.Log = append(r.Log, fmt.Sprintf(format, args...))
}

func (r *RemediationReport) finish() {
	r.Success = r.Failed == 0
}

// Applier 把定价建议和可用性告警写回存储
// 每条记录独立处理，单条失败不影响其余记录；重复执行同一批输入不会产生新的写入
type Applier struct {
	store   AvailabilityStore
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewApplier 创建修复器
func NewApplier(store AvailabilityStore, m *metrics.Metrics, logger *zap.Logger) *Applier {
	if m == nil {
		m = metrics.GetMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Applier{store: store, metrics: m, logger: logger}
}

// ApplyPricing 应用定价建议，调整幅度不超过 threshold 百分比的跳过
func (a *Applier) ApplyPricing(ctx context.Context, recs []PricingResult, threshold float64) *RemediationReport {
	report := &RemediationReport{Total: len(recs)}
	report.logf("Applying pricing recommendations for %d room/date pairs", len(recs))

	for _, rec := range recs {
		result := a.applyPrice(ctx, rec, threshold, report)
		report.record(result)
		a.metrics.RecordRemediationItem(remediationKindPricing, result)
	}

	report.finish()
	report.logf("Pricing completed: %d applied, %d unchanged, %d skipped, %d failed of %d",
		report.Applied, report.Unchanged, report.Skipped, report.Failed, report.Total)
	return report
}

func (a *Applier) applyPrice(ctx context.Context, rec PricingResult, threshold float64, report *RemediationReport) string {
	date, err := dateutil.Parse(rec.Date)
	if err != nil {
		report.logf("Invalid date %q for room %d", rec.Date, rec.RoomID)
		return ResultFailed
	}
	if rec.OriginalPrice <= 0 || rec.AdjustedPrice <= 0 {
		report.logf("Invalid prices for %s, room %d: %.2f -> %.2f", rec.Date, rec.RoomID, rec.OriginalPrice, rec.AdjustedPrice)
		return ResultFailed
	}

	if !ExceedsThreshold(rec.OriginalPrice, rec.AdjustedPrice, threshold) {
		diff := ChangePercent(rec.OriginalPrice, rec.AdjustedPrice)
		report.logf("No update needed for %s, room %d: difference (%s%%) within threshold (%g%%)",
			rec.Date, rec.RoomID, diff.StringFixed(2), threshold)
		return ResultSkipped
	}

	current, err := a.currentDay(ctx, rec.RoomID, date)
	if err != nil {
		report.logf("Failed to read price for %s, room %d: %v", rec.Date, rec.RoomID, err)
		a.logger.Warn("read availability day failed", zap.Int64("room_id", rec.RoomID), zap.String("date", rec.Date), zap.Error(err))
		return ResultFailed
	}
	if current != nil && current.Price != nil && *current.Price == rec.AdjustedPrice {
		report.logf("Price already %.2f for %s, room %d", rec.AdjustedPrice, rec.Date, rec.RoomID)
		return ResultUnchanged
	}

	if err := a.store.UpsertPrice(ctx, rec.RoomID, date, rec.AdjustedPrice); err != nil {
		report.logf("Failed to update price for %s, room %d: %v", rec.Date, rec.RoomID, err)
		a.logger.Warn("upsert price failed", zap.Int64("room_id", rec.RoomID), zap.String("date", rec.Date), zap.Error(err))
		return ResultFailed
	}
	report.logf("Price updated for %s, room %d: %.2f -> %.2f", rec.Date, rec.RoomID, rec.OriginalPrice, rec.AdjustedPrice)
	return ResultApplied
}

// ApplyAlerts 按告警类型修复可用标记
// missing_unavailability 置为不可用，unnecessary_block 置为可用，其余类型只需人工查看
func (a *Applier) ApplyAlerts(ctx context.Context, alerts []Alert) *RemediationReport {
	report := &RemediationReport{Total: len(alerts)}
	report.logf("Fixing %d availability alerts", len(alerts))

	for _, alert := range alerts {
		result := a.applyAlert(ctx, alert, report)
		report.record(result)
		a.metrics.RecordRemediationItem(string(alert.Kind), result)
	}

	report.finish()
	report.logf("Fix completed: %d fixed, %d unchanged, %d skipped, %d failed of %d",
		report.Applied, report.Unchanged, report.Skipped, report.Failed, report.Total)
	return report
}

func (a *Applier) applyAlert(ctx context.Context, alert Alert, report *RemediationReport) string {
	var target bool
	switch alert.Kind {
	case KindMissingUnavailability:
		target = false
	case KindUnnecessaryBlock:
		target = true
	default:
		report.logf("Skipped %s on %s, room %d: requires manual review", alert.Kind, alert.Date, alert.RoomID)
		return ResultSkipped
	}

	date, err := dateutil.Parse(alert.Date)
	if err != nil {
		report.logf("Invalid date %q for room %d", alert.Date, alert.RoomID)
		return ResultFailed
	}

	current, err := a.currentDay(ctx, alert.RoomID, date)
	if err != nil {
		report.logf("Failed to read availability for %s, room %d: %v", alert.Date, alert.RoomID, err)
		a.logger.Warn("read availability day failed", zap.Int64("room_id", alert.RoomID), zap.String("date", alert.Date), zap.Error(err))
		return ResultFailed
	}
	stored := availability.EffectiveAvailability(current)
	if stored == target {
		report.logf("Availability already %t for %s, room %d", target, alert.Date, alert.RoomID)
		return ResultUnchanged
	}

	if err := a.store.UpsertAvailability(ctx, alert.RoomID, date, target); err != nil {
		report.logf("Failed to update availability for %s, room %d: %v", alert.Date, alert.RoomID, err)
		a.logger.Warn("upsert availability failed", zap.Int64("room_id", alert.RoomID), zap.String("date", alert.Date), zap.Error(err))
		return ResultFailed
	}
	report.logf("Availability set to %t for %s, room %d", target, alert.Date, alert.RoomID)
	return ResultApplied
}

func (a *Applier) currentDay(ctx context.Context, roomID int64, date time.Time) (*models.AvailabilityDay, error) {
	day, err := a.store.Get(ctx, roomID, date)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return day, nil
}
