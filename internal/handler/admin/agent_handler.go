package admin

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dumeirei/bnb-booking-backend/internal/common/errors"
	"github.com/dumeirei/bnb-booking-backend/internal/common/handler"
	commonMiddleware "github.com/dumeirei/bnb-booking-backend/internal/common/middleware"
	"github.com/dumeirei/bnb-booking-backend/internal/common/response"
	agentService "github.com/dumeirei/bnb-booking-backend/internal/service/agent"
)

// AgentHandler 定价/可用性代理处理器
type AgentHandler struct {
	runner *agentService.Runner
}

// NewAgentHandler 创建代理处理器
func NewAgentHandler(runner *agentService.Runner) *AgentHandler {
	return &AgentHandler{runner: runner}
}

// Run 运行单个代理操作
// @Summary 运行代理
// @Description agent 为 pricing 或 availability；pricing 支持 analyze/apply，availability 支持 analyze/fix
// @Tags 后台-代理
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body agentService.RunRequest true "调用参数"
// @Success 200 {object} response.Response
// @Router /api/admin/agents/run [post]
func (h *AgentHandler) Run(c *gin.Context) {
	var req agentService.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	commonMiddleware.SetSpanAttributes(c,
		attribute.String("agent.name", req.Agent),
		attribute.String("agent.action", req.Action),
	)

	result, err := h.runner.Run(c.Request.Context(), &req)
	respondAgentResult(c, result, err)
}

// RunAll 同时运行两个代理
// @Summary 运行全部代理
// @Tags 后台-代理
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body agentService.RunAllRequest false "调用参数"
// @Success 200 {object} response.Response{data=agentService.RunAllResult}
// @Router /api/admin/agents/run-all [post]
func (h *AgentHandler) RunAll(c *gin.Context) {
	var req agentService.RunAllRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "参数错误")
			return
		}
	}

	result, err := h.runner.RunAll(c.Request.Context(), &req)
	respondAgentResult(c, result, err)
}

// Logs 最近的代理审计记录
// @Summary 代理审计记录
// @Tags 后台-代理
// @Produce json
// @Security Bearer
// @Param agent query string false "代理名 pricing/availability/admin"
// @Param limit query int false "返回条数，默认 50"
// @Success 200 {object} response.Response{data=[]models.AgentLog}
// @Router /api/admin/agents/logs [get]
func (h *AgentHandler) Logs(c *gin.Context) {
	limit, ok := handler.ParseQueryInt(c, "limit", 0)
	if !ok {
		return
	}

	logs, err := h.runner.Logs(c.Request.Context(), c.Query("agent"), limit)
	handler.MustSucceed(c, err, logs)
}

// respondAgentResult 分析失败时连同日志轨迹一起返回
func respondAgentResult(c *gin.Context, result interface{}, err error) {
	if err != nil {
		commonMiddleware.RecordSpanError(c, err)
	}
	var appErr *errors.AppError
	if err != nil && stderrors.As(err, &appErr) && appErr.Code == errors.ErrAnalysisFailed.Code && result != nil {
		response.ErrorWithData(c, appErr.Code, appErr.Message, result)
		return
	}
	handler.MustSucceed(c, err, result)
}
