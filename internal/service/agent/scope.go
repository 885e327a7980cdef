package agent

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/bnb-booking-backend/internal/common/dateutil"
	"github.com/dumeirei/bnb-booking-backend/internal/common/errors"
	"github.com/dumeirei/bnb-booking-backend/internal/common/logger"
	"github.com/dumeirei/bnb-booking-backend/internal/common/metrics"
	"github.com/dumeirei/bnb-booking-backend/internal/common/tracing"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
	"github.com/dumeirei/bnb-booking-backend/internal/repository"
)

// 代理名称与操作名称，写入审计日志
const (
	AgentPricing      = "pricingAgent"
	AgentAvailability = "availabilityAgent"

	ActionAnalyzePricing      = "analyzePricing"
	ActionApplyPricing        = "applyPricingRecommendations"
	ActionAnalyzeAvailability = "analyzeAvailability"
	ActionFixAvailability     = "fixAvailabilityIssues"
)

// Params 代理调用参数，日期为闭区间 YYYY-MM-DD，留空使用默认窗口
type Params struct {
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	RoomID          *int64          `json:"room_id"`
	Threshold       *float64        `json:"threshold"`
	Recommendations []PricingResult `json:"recommendations"`
	Alerts          []Alert         `json:"alerts"`
}

// scope 一次分析涉及的窗口和房间
type scope struct {
	window dateutil.Window
	today  time.Time
	roomID *int64
	rooms  []*models.Room
}

func (s *scope) period() string {
	return s.window.String()
}

func (s *scope) roomLabel() interface{} {
	if s.roomID == nil {
		return "all"
	}
	return *s.roomID
}

func (s *scope) roomIDs() []int64 {
	ids := make([]int64, 0, len(s.rooms))
	for _, room := range s.rooms {
		ids = append(ids, room.ID)
	}
	return ids
}

// resolver 解析分析窗口和房间范围，输入错误在读取可用性和预订之前返回
type resolver struct {
	roomRepo   *repository.RoomRepository
	clock      dateutil.Clock
	windowDays int
	maxDays    int
}

// loadError 读取房间失败
// 此时窗口已解析，调用方按分析失败处理并写入错误审计
type loadError struct {
	err error
}

func (e *loadError) Error() string { return "load rooms: " + e.err.Error() }

func (e *loadError) Unwrap() error { return e.err }

// isLoadError 是否为读取房间失败，区别于参数错误
func isLoadError(err error) bool {
	var le *loadError
	return stderrors.As(err, &le)
}

// resolve 解析窗口和房间。参数错误返回 nil scope；
// 读取房间失败返回已填好窗口的 scope 和 *loadError
func (r *resolver) resolve(ctx context.Context, p *Params) (*scope, error) {
	today := r.clock.Today()

	first := today
	if p.StartDate != "" {
		d, err := dateutil.Parse(p.StartDate)
		if err != nil {
			return nil, errors.ErrInvalidParams.WithMessage("start_date 格式应为 YYYY-MM-DD")
		}
		first = d
	}
	last := dateutil.AddDays(first, r.windowDays)
	if p.EndDate != "" {
		d, err := dateutil.Parse(p.EndDate)
		if err != nil {
			return nil, errors.ErrInvalidParams.WithMessage("end_date 格式应为 YYYY-MM-DD")
		}
		last = d
	}
	if first.After(last) {
		return nil, errors.ErrInvalidDateRange
	}

	sc := &scope{
		window: dateutil.NewInclusiveWindow(first, last),
		today:  today,
		roomID: p.RoomID,
	}
	if r.maxDays > 0 && sc.window.Len() > r.maxDays {
		return nil, errors.ErrInvalidDateRange.WithMessage(fmt.Sprintf("analysis window cannot exceed %d days", r.maxDays))
	}

	if p.RoomID != nil {
		room, err := r.roomRepo.GetByID(ctx, *p.RoomID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.ErrRoomNotFound
			}
			return sc, &loadError{err: err}
		}
		sc.rooms = []*models.Room{room}
		return sc, nil
	}

	rooms, err := r.roomRepo.ListActive(ctx)
	if err != nil {
		return sc, &loadError{err: err}
	}
	sc.rooms = rooms
	return sc, nil
}

// auditor 审计日志写入，写入失败只记录日志
type auditor struct {
	repo   *repository.AgentLogRepository
	logger *zap.Logger
}

func (a *auditor) completed(ctx context.Context, agent, action string, details models.JSON) {
	a.write(ctx, agent, action, models.AgentLogStatusCompleted, details)
}

func (a *auditor) failed(ctx context.Context, agent, action string, cause error, details models.JSON) {
	if details == nil {
		details = models.JSON{}
	}
	details["error"] = cause.Error()
	a.write(ctx, agent, action, models.AgentLogStatusError, details)
}

func (a *auditor) write(ctx context.Context, agent, action, status string, details models.JSON) {
	entry := &models.AgentLog{
		Agent:   agent,
		Action:  action,
		Details: details,
		Status:  status,
	}
	if err := a.repo.Create(ctx, entry); err != nil {
		a.logger.Error("write agent audit log failed",
			logger.Agent(agent),
			logger.Action(action),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}

// run 一次代理运行的追踪和指标
type run struct {
	agent   string
	action  string
	started time.Time
	span    trace.Span
	metrics *metrics.Metrics
}

func startRun(ctx context.Context, m *metrics.Metrics, agent, action string) (context.Context, *run) {
	ctx, span := tracing.StartSpan(ctx, agent+"."+action, tracing.WithAgent(agent, action)...)
	return ctx, &run{agent: agent, action: action, started: time.Now(), span: span, metrics: m}
}

func (r *run) scoped(sc *scope) {
	attrs := tracing.WithWindow(dateutil.Format(sc.window.Start), dateutil.Format(sc.window.Last()))
	if sc.roomID != nil {
		attrs = append(attrs, tracing.WithRoomID(*sc.roomID))
	}
	attrs = append(attrs, attribute.Int("rooms", len(sc.rooms)))
	r.span.SetAttributes(attrs...)
}

func (r *run) end(err error) {
	status := models.AgentLogStatusCompleted
	if err != nil {
		status = models.AgentLogStatusError
		tracing.Fail(r.span, err)
	}
	r.metrics.RecordAgentRun(r.agent, r.action, status, time.Since(r.started))
	r.span.End()
}
