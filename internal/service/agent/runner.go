package agent

import (
	"context"

	"github.com/dumeirei/bnb-booking-backend/internal/common/errors"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
	"github.com/dumeirei/bnb-booking-backend/internal/repository"
)

// 调用方使用的代理名和操作名
const (
	NamePricing      = "pricing"
	NameAvailability = "availability"

	OpAnalyze = "analyze"
	OpApply   = "apply"
	OpFix     = "fix"
)

const maxLogsLimit = 500

// RunRequest 单次代理调用
type RunRequest struct {
	Agent  string `json:"agent" binding:"required"`
	Action string `json:"action" binding:"required"`
	Params Params `json:"params"`
}

// RunAllRequest 同时运行两个代理
type RunAllRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	RoomID    *int64 `json:"room_id"`
	AutoFix   bool   `json:"auto_fix"`
}

// RunAllResult 全量运行结果，AutoFix 为 false 时不含修复报告
type RunAllResult struct {
	Pricing           *PricingAnalysis      `json:"pricing"`
	Availability      *AvailabilityAnalysis `json:"availability"`
	PricingApplied    *RemediationReport    `json:"pricing_applied,omitempty"`
	AvailabilityFixed *RemediationReport    `json:"availability_fixed,omitempty"`
}

// Runner 代理调用入口
type Runner struct {
	pricing      *PricingAgent
	availability *AvailabilityAgent
	agentLogRepo *repository.AgentLogRepository
	logsLimit    int
}

// NewRunner 创建代理调用入口
func NewRunner(
	pricing *PricingAgent,
	availability *AvailabilityAgent,
	agentLogRepo *repository.AgentLogRepository,
	logsLimit int,
) *Runner {
	if logsLimit <= 0 {
		logsLimit = 50
	}
	return &Runner{
		pricing:      pricing,
		availability: availability,
		agentLogRepo: agentLogRepo,
		logsLimit:    logsLimit,
	}
}

// Run 按 {agent, action} 分派
// 返回值为 *PricingAnalysis、*AvailabilityAnalysis 或 *RemediationReport
func (r *Runner) Run(ctx context.Context, req *RunRequest) (interface{}, error) {
	switch normalizeAgent(req.Agent) {
	case AgentPricing:
		switch req.Action {
		case OpAnalyze:
			return r.pricing.Analyze(ctx, &req.Params)
		case OpApply:
			return r.pricing.Apply(ctx, &req.Params)
		}
	case AgentAvailability:
		switch req.Action {
		case OpAnalyze:
			return r.availability.Analyze(ctx, &req.Params)
		case OpFix:
			return r.availability.Fix(ctx, &req.Params)
		}
	default:
		return nil, errors.ErrUnknownAgent
	}
	return nil, errors.ErrUnknownAction
}

// RunAll 运行定价和可用性分析，AutoFix 时应用默认阈值的定价并修复与预订不一致的告警
func (r *Runner) RunAll(ctx context.Context, req *RunAllRequest) (*RunAllResult, error) {
	params := &Params{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		RoomID:    req.RoomID,
	}

	result := &RunAllResult{}
	pricing, err := r.pricing.Analyze(ctx, params)
	result.Pricing = pricing
	if err != nil {
		return result, err
	}
	avail, err := r.availability.Analyze(ctx, params)
	result.Availability = avail
	if err != nil {
		return result, err
	}

	if !req.AutoFix {
		return result, nil
	}

	result.PricingApplied = r.pricing.ApplyRecommendations(ctx, pricing.Results, r.pricing.DefaultThreshold())
	result.AvailabilityFixed = r.availability.FixMismatches(ctx, avail.Alerts)
	return result, nil
}

// Logs 最近的审计记录，agent 为空时返回全部
func (r *Runner) Logs(ctx context.Context, agent string, limit int) ([]*models.AgentLog, error) {
	if limit <= 0 {
		limit = r.logsLimit
	}
	if limit > maxLogsLimit {
		limit = maxLogsLimit
	}
	if agent != "" {
		agent = normalizeAgent(agent)
	}
	logs, err := r.agentLogRepo.ListLatest(ctx, agent, limit)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return logs, nil
}

func normalizeAgent(name string) string {
	switch name {
	case NamePricing, AgentPricing:
		return AgentPricing
	case NameAvailability, AgentAvailability:
		return AgentAvailability
	}
	return name
}
