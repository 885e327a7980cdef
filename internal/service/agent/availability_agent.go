package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dumeirei/bnb-booking-backend/internal/common/config"
	"github.com/dumeirei/bnb-booking-backend/internal/common/dateutil"
	"github.com/dumeirei/bnb-booking-backend/internal/common/errors"
	"github.com/dumeirei/bnb-booking-backend/internal/common/logger"
	"github.com/dumeirei/bnb-booking-backend/internal/common/metrics"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
	"github.com/dumeirei/bnb-booking-backend/internal/repository"
	"github.com/dumeirei/bnb-booking-backend/internal/service/availability"
)

// AvailabilityStats 可用性统计，按存储的可用标记计数
type AvailabilityStats struct {
	TotalDates             int `json:"total_dates"`
	AvailableDates         int `json:"available_dates"`
	UnavailableDates       int `json:"unavailable_dates"`
	LowAvailabilityPeriods int `json:"low_availability_periods"`
	UnusualPatterns        int `json:"unusual_patterns"`
}

func (s AvailabilityStats) toJSON() models.JSON {
	return models.JSON{
		"total_dates":              s.TotalDates,
		"available_dates":          s.AvailableDates,
		"unavailable_dates":        s.UnavailableDates,
		"low_availability_periods": s.LowAvailabilityPeriods,
		"unusual_patterns":         s.UnusualPatterns,
	}
}

// AvailabilityAnalysis 可用性分析结果
type AvailabilityAnalysis struct {
	Period string            `json:"period"`
	Alerts []Alert           `json:"alerts"`
	Stats  AvailabilityStats `json:"stats"`
	Log    []string          `json:"log"`
}

// AvailabilityAgent 可用性分析代理
type AvailabilityAgent struct {
	resolver         *resolver
	availabilityRepo *repository.AvailabilityRepository
	bookingRepo      *repository.BookingRepository
	audit            *auditor
	scanner          *Scanner
	applier          *Applier
	metrics          *metrics.Metrics
	logger           *zap.Logger
}

// NewAvailabilityAgent 创建可用性分析代理
func NewAvailabilityAgent(
	roomRepo *repository.RoomRepository,
	availabilityRepo *repository.AvailabilityRepository,
	bookingRepo *repository.BookingRepository,
	agentLogRepo *repository.AgentLogRepository,
	clock dateutil.Clock,
	cfg config.AgentConfig,
	m *metrics.Metrics,
	log *zap.Logger,
) *AvailabilityAgent {
	if m == nil {
		m = metrics.GetMetrics()
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(logger.Module("availability_agent"))
	return &AvailabilityAgent{
		resolver:         &resolver{roomRepo: roomRepo, clock: clock, windowDays: cfg.AnalysisWindowDays, maxDays: cfg.MaxWindowDays},
		availabilityRepo: availabilityRepo,
		bookingRepo:      bookingRepo,
		audit:            &auditor{repo: agentLogRepo, logger: log},
		scanner:          NewScanner(cfg),
		applier:          NewApplier(availabilityRepo, m, log),
		metrics:          m,
		logger:           log,
	}
}

// Analyze 扫描窗口内每个房间的可用性异常
func (a *AvailabilityAgent) Analyze(ctx context.Context, p *Params) (*AvailabilityAnalysis, error) {
	ctx, r := startRun(ctx, a.metrics, AgentAvailability, ActionAnalyzeAvailability)
	analysis, err := a.analyze(ctx, p, r)
	r.end(err)
	return analysis, err
}

func (a *AvailabilityAgent) analyze(ctx context.Context, p *Params, r *run) (*AvailabilityAnalysis, error) {
	analysis := &AvailabilityAnalysis{Alerts: []Alert{}}
	trail := newTrail(a.logger, &analysis.Log)
	trail.add("Initializing availability agent")

	sc, err := a.resolver.resolve(ctx, p)
	if isLoadError(err) {
		analysis.Period = sc.period()
		return analysis, a.fail(ctx, trail, sc, analysis.Stats, err)
	}
	if err != nil {
		trail.add("Invalid analysis scope: %v", err)
		return analysis, err
	}
	r.scoped(sc)
	analysis.Period = sc.period()
	trail.add("Analysis period: %s", sc.period())
	if sc.roomID != nil {
		trail.add("Analysis limited to room ID: %d", *sc.roomID)
	}

	if len(sc.rooms) == 0 {
		trail.add("No rooms found for analysis")
		a.audit.completed(ctx, AgentAvailability, ActionAnalyzeAvailability, a.details(sc, analysis.Stats))
		return analysis, nil
	}
	trail.add("Found %d rooms for analysis", len(sc.rooms))

	rows, err := a.availabilityRepo.ListByRooms(ctx, sc.roomIDs(), sc.window.Start, sc.window.End)
	if err != nil {
		return analysis, a.fail(ctx, trail, sc, analysis.Stats, fmt.Errorf("load availability: %w", err))
	}
	bookings, err := a.bookingRepo.ListActiveOverlapping(ctx, sc.roomIDs(), sc.window.Start, sc.window.End)
	if err != nil {
		return analysis, a.fail(ctx, trail, sc, analysis.Stats, fmt.Errorf("load bookings: %w", err))
	}

	idx := availability.IndexDays(rows)
	dates := sc.window.Days()
	for _, room := range sc.rooms {
		trail.add("Analyzing room: %s (ID: %d)", room.Name, room.ID)

		days := make([]DaySample, 0, len(dates))
		for _, d := range dates {
			sample := DaySample{
				Date:      d,
				Available: availability.EffectiveAvailability(idx.Get(room.ID, d)),
				Booked:    availability.Covered(bookings, room.ID, d),
			}
			if sample.Available {
				analysis.Stats.AvailableDates++
			} else {
				analysis.Stats.UnavailableDates++
			}
			days = append(days, sample)
		}
		analysis.Stats.TotalDates += len(days)

		res := a.scanner.Scan(room, days)
		analysis.Stats.LowAvailabilityPeriods += res.LowAvailabilityPeriods
		analysis.Stats.UnusualPatterns += res.UnusualPatterns
		analysis.Alerts = append(analysis.Alerts, res.Alerts...)
		for _, line := range res.Log {
			trail.add("%s", line)
		}
		for _, alert := range res.Alerts {
			a.metrics.RecordAlert(string(alert.Kind), string(alert.Severity))
		}
	}

	trail.add("Analysis completed: found %d alerts", len(analysis.Alerts))
	a.audit.completed(ctx, AgentAvailability, ActionAnalyzeAvailability, a.details(sc, analysis.Stats))
	a.logger.Info("availability analysis completed",
		zap.String("period", sc.period()),
		zap.Int("rooms", len(sc.rooms)),
		zap.Int("alerts", len(analysis.Alerts)),
	)
	return analysis, nil
}

func (a *AvailabilityAgent) details(sc *scope, stats AvailabilityStats) models.JSON {
	return models.JSON{
		"period":  sc.period(),
		"room_id": sc.roomLabel(),
		"stats":   stats.toJSON(),
	}
}

func (a *AvailabilityAgent) fail(ctx context.Context, trail *trail, sc *scope, stats AvailabilityStats, err error) error {
	trail.add("Error during availability analysis: %v", err)
	a.audit.failed(ctx, AgentAvailability, ActionAnalyzeAvailability, err, a.details(sc, stats))
	a.logger.Error("availability analysis failed", zap.Error(err))
	return errors.ErrAnalysisFailed.WithError(err)
}

// Fix 按告警修复可用标记，未提供告警时先重新分析
func (a *AvailabilityAgent) Fix(ctx context.Context, p *Params) (*RemediationReport, error) {
	alerts := p.Alerts
	for _, alert := range alerts {
		if !alert.Kind.Valid() {
			return nil, errors.ErrInvalidParams.WithMessage(fmt.Sprintf("unknown alert kind: %s", alert.Kind))
		}
	}
	if len(alerts) == 0 {
		analysis, err := a.Analyze(ctx, p)
		if err != nil {
			return &RemediationReport{Log: analysis.Log}, err
		}
		alerts = analysis.Alerts
	}
	return a.fixAlerts(ctx, alerts), nil
}

// FixMismatches 只修复与预订不一致的告警
func (a *AvailabilityAgent) FixMismatches(ctx context.Context, alerts []Alert) *RemediationReport {
	var mismatches []Alert
	for _, alert := range alerts {
		if alert.Kind == KindMissingUnavailability || alert.Kind == KindUnnecessaryBlock {
			mismatches = append(mismatches, alert)
		}
	}
	return a.fixAlerts(ctx, mismatches)
}

func (a *AvailabilityAgent) fixAlerts(ctx context.Context, alerts []Alert) *RemediationReport {
	ctx, r := startRun(ctx, a.metrics, AgentAvailability, ActionFixAvailability)
	report := a.applier.ApplyAlerts(ctx, alerts)

	details := models.JSON{
		"total":     report.Total,
		"fixed":     report.Applied,
		"unchanged": report.Unchanged,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
	}
	var runErr error
	if report.Success {
		a.audit.completed(ctx, AgentAvailability, ActionFixAvailability, details)
	} else {
		runErr = fmt.Errorf("%d of %d availability fixes failed", report.Failed, report.Total)
		a.audit.failed(ctx, AgentAvailability, ActionFixAvailability, runErr, details)
	}
	r.end(runErr)

	a.logger.Info("availability issues fixed",
		zap.Int("total", report.Total),
		zap.Int("fixed", report.Applied),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report
}
