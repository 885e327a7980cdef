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

// PricingAnalysis 定价分析结果
type PricingAnalysis struct {
	Period  string          `json:"period"`
	Results []PricingResult `json:"results"`
	Log     []string        `json:"log"`
}

// PricingAgent 定价分析代理
type PricingAgent struct {
	resolver         *resolver
	availabilityRepo *repository.AvailabilityRepository
	bookingRepo      *repository.BookingRepository
	audit            *auditor
	rules            *PricingRules
	applier          *Applier
	cfg              config.AgentConfig
	metrics          *metrics.Metrics
	logger           *zap.Logger
}

// NewPricingAgent 创建定价分析代理
func NewPricingAgent(
	roomRepo *repository.RoomRepository,
	availabilityRepo *repository.AvailabilityRepository,
	bookingRepo *repository.BookingRepository,
	agentLogRepo *repository.AgentLogRepository,
	clock dateutil.Clock,
	cfg config.AgentConfig,
	m *metrics.Metrics,
	log *zap.Logger,
) *PricingAgent {
	if m == nil {
		m = metrics.GetMetrics()
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(logger.Module("pricing_agent"))
	return &PricingAgent{
		resolver:         &resolver{roomRepo: roomRepo, clock: clock, windowDays: cfg.AnalysisWindowDays, maxDays: cfg.MaxWindowDays},
		availabilityRepo: availabilityRepo,
		bookingRepo:      bookingRepo,
		audit:            &auditor{repo: agentLogRepo, logger: log},
		rules:            NewPricingRules(cfg),
		applier:          NewApplier(availabilityRepo, m, log),
		cfg:              cfg,
		metrics:          m,
		logger:           log,
	}
}

// Analyze 计算窗口内每个房间每天的建议价格
// 存储读取失败时写入错误审计，返回带日志轨迹的结果和错误
func (a *PricingAgent) Analyze(ctx context.Context, p *Params) (*PricingAnalysis, error) {
	ctx, r := startRun(ctx, a.metrics, AgentPricing, ActionAnalyzePricing)
	analysis, err := a.analyze(ctx, p, r)
	r.end(err)
	return analysis, err
}

func (a *PricingAgent) analyze(ctx context.Context, p *Params, r *run) (*PricingAnalysis, error) {
	analysis := &PricingAnalysis{Results: []PricingResult{}}
	trail := newTrail(a.logger, &analysis.Log)
	trail.add("Initializing pricing agent")

	sc, err := a.resolver.resolve(ctx, p)
	if isLoadError(err) {
		analysis.Period = sc.period()
		return analysis, a.fail(ctx, trail, sc, err)
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
		a.audit.completed(ctx, AgentPricing, ActionAnalyzePricing, models.JSON{
			"period":  sc.period(),
			"room_id": sc.roomLabel(),
			"results": 0,
		})
		return analysis, nil
	}
	trail.add("Found %d rooms for analysis", len(sc.rooms))

	rows, err := a.availabilityRepo.ListByRooms(ctx, sc.roomIDs(), sc.window.Start, sc.window.End)
	if err != nil {
		return analysis, a.fail(ctx, trail, sc, fmt.Errorf("load availability: %w", err))
	}
	// 需求按全部房间的预订计算
	bookings, err := a.bookingRepo.ListActiveOverlapping(ctx, nil, sc.window.Start, sc.window.End)
	if err != nil {
		return analysis, a.fail(ctx, trail, sc, fmt.Errorf("load bookings: %w", err))
	}
	trail.add("Analyzed %d existing bookings", len(bookings))

	idx := availability.IndexDays(rows)
	dates := sc.window.Days()
	for _, room := range sc.rooms {
		trail.add("Analyzing room: %s (ID: %d)", room.Name, room.ID)
		for _, d := range dates {
			original := availability.EffectivePrice(idx.Get(room.ID, d), room)
			adjusted, factors := a.rules.Evaluate(original, d, sc.today, availability.CountCovering(bookings, d))
			analysis.Results = append(analysis.Results, PricingResult{
				RoomID:        room.ID,
				RoomName:      room.Name,
				Date:          dateutil.Format(d),
				OriginalPrice: original,
				AdjustedPrice: adjusted,
				Factors:       factors,
			})
			trail.debug("Optimized price for %s: %.2f (original: %.2f)", dateutil.Format(d), adjusted, original)
		}
	}

	trail.add("Analysis completed: %d price recommendations", len(analysis.Results))
	a.audit.completed(ctx, AgentPricing, ActionAnalyzePricing, models.JSON{
		"period":  sc.period(),
		"room_id": sc.roomLabel(),
		"results": len(analysis.Results),
	})
	a.logger.Info("pricing analysis completed",
		zap.String("period", sc.period()),
		zap.Int("rooms", len(sc.rooms)),
		zap.Int("results", len(analysis.Results)),
	)
	return analysis, nil
}

func (a *PricingAgent) fail(ctx context.Context, trail *trail, sc *scope, err error) error {
	trail.add("Error during pricing analysis: %v", err)
	a.audit.failed(ctx, AgentPricing, ActionAnalyzePricing, err, models.JSON{
		"period":  sc.period(),
		"room_id": sc.roomLabel(),
	})
	a.logger.Error("pricing analysis failed", zap.Error(err))
	return errors.ErrAnalysisFailed.WithError(err)
}

// Threshold 解析价格变动阈值，未指定时使用默认值
func (a *PricingAgent) Threshold(p *Params) (float64, error) {
	if p == nil || p.Threshold == nil {
		return a.cfg.PriceChangeThreshold, nil
	}
	t := *p.Threshold
	if t < 0 || t > a.cfg.MaxPriceChangeThreshold {
		return 0, errors.ErrThresholdOutOfRange.WithMessage(
			fmt.Sprintf("价格变动阈值必须在 0 到 %g 之间", a.cfg.MaxPriceChangeThreshold))
	}
	return t, nil
}

// DefaultThreshold 默认价格变动阈值
func (a *PricingAgent) DefaultThreshold() float64 {
	return a.cfg.PriceChangeThreshold
}

// Apply 应用定价建议，未提供建议时先重新分析
func (a *PricingAgent) Apply(ctx context.Context, p *Params) (*RemediationReport, error) {
	threshold, err := a.Threshold(p)
	if err != nil {
		return nil, err
	}

	recs := p.Recommendations
	if len(recs) == 0 {
		analysis, err := a.Analyze(ctx, p)
		if err != nil {
			return &RemediationReport{Log: analysis.Log}, err
		}
		recs = analysis.Results
	}
	return a.ApplyRecommendations(ctx, recs, threshold), nil
}

// ApplyRecommendations 按阈值应用给定的定价建议并写入审计
func (a *PricingAgent) ApplyRecommendations(ctx context.Context, recs []PricingResult, threshold float64) *RemediationReport {
	ctx, r := startRun(ctx, a.metrics, AgentPricing, ActionApplyPricing)
	report := a.applier.ApplyPricing(ctx, recs, threshold)

	details := models.JSON{
		"total":     report.Total,
		"applied":   report.Applied,
		"unchanged": report.Unchanged,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
		"threshold": threshold,
	}
	var runErr error
	if report.Success {
		a.audit.completed(ctx, AgentPricing, ActionApplyPricing, details)
	} else {
		runErr = fmt.Errorf("%d of %d price updates failed", report.Failed, report.Total)
		a.audit.failed(ctx, AgentPricing, ActionApplyPricing, runErr, details)
	}
	r.end(runErr)

	a.logger.Info("pricing recommendations applied",
		zap.Int("total", report.Total),
		zap.Int("applied", report.Applied),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Float64("threshold", threshold),
	)
	return report
}

// trail 叙述性日志轨迹，同时以 debug 级别写入 zap
type trail struct {
	lines  *[]string
	logger *zap.Logger
}

func newTrail(log *zap.Logger, lines *[]string) *trail {
	if *lines == nil {
		*lines = []string{}
	}
	return &trail{lines: lines, logger: log}
}

func (t *trail) add(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	*t.lines = append(*t.lines, line)
	t.logger.Debug(line)
}

// debug 逐日明细只写 zap，不进入返回的日志轨迹
func (t *trail) debug(format string, args ...interface{}) {
	if ce := t.logger.Check(zap.DebugLevel, ""); ce != nil {
		t.logger.Debug(fmt.Sprintf(format, args...))
	}
}
