// Package middleware 提供 HTTP 中间件
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/bnb-booking-backend/internal/common/logger"
	"github.com/dumeirei/bnb-booking-backend/internal/models"
	"github.com/dumeirei/bnb-booking-backend/internal/repository"
)

// OperationAgent 后台操作在审计表中的 agent 字段
const OperationAgent = "admin"

// OperationLogger 后台写操作审计中间件，记录写入 agent_logs
type OperationLogger struct {
	repo    *repository.AgentLogRepository
	logger  *zap.Logger
	actions map[string]string
}

// NewOperationLogger 创建操作审计中间件
func NewOperationLogger(repo *repository.AgentLogRepository, log *zap.Logger) *OperationLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &OperationLogger{
		repo:    repo,
		logger:  log,
		actions: defaultActions(),
	}
}

// defaultActions 路由到审计动作的映射，未列出的路由不记录
// 可用性批量写入由服务自身审计
func defaultActions() map[string]string {
	return map[string]string{
		"POST /api/admin/rooms":              "create_room",
		"PUT /api/admin/rooms/:id":           "update_room",
		"PUT /api/admin/rooms/:id/toggle":    "toggle_room",
		"DELETE /api/admin/rooms/:id":        "delete_room",
		"PUT /api/admin/bookings/:id/status": "update_booking_status",
		"PUT /api/admin/bookings/:id/notes":  "update_booking_notes",
		"DELETE /api/admin/bookings/:id":     "delete_booking",
		"POST /api/admin/notifications/send": "send_notification",
		"PUT /api/admin/settings/:key":       "update_setting",
	}
}

// operation 请求结束时采集的审计数据，脱离 gin.Context 后异步写入
type operation struct {
	action  string
	adminID int64
	target  *int64
	status  int
	ip      string
	body    interface{}
}

// Log 操作审计中间件处理函数
func (l *OperationLogger) Log() gin.HandlerFunc {
	return func(c *gin.Context) {
		action, ok := l.actions[c.Request.Method+" "+c.FullPath()]
		if !ok {
			c.Next()
			return
		}

		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		c.Next()

		adminID, ok := c.Get("admin_id")
		if !ok {
			return
		}
		op := operation{
			action: action,
			status: c.Writer.Status(),
			ip:     c.ClientIP(),
			target: parseTargetID(c.Param("id")),
		}
		op.adminID, _ = adminID.(int64)
		if len(requestBody) > 0 {
			var data interface{}
			if err := json.Unmarshal(requestBody, &data); err == nil {
				op.body = filterSensitiveData(data)
			}
		}

		go l.write(op)
	}
}

func (l *OperationLogger) write(op operation) {
	details := models.JSON{
		"admin_id":    op.adminID,
		"ip":          op.ip,
		"http_status": op.status,
	}
	if op.target != nil {
		details["target_id"] = *op.target
	}
	if op.body != nil {
		details["request"] = op.body
	}
	status := models.AgentLogStatusCompleted
	if op.status >= 400 {
		status = models.AgentLogStatusError
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	entry := &models.AgentLog{
		Agent:   OperationAgent,
		Action:  op.action,
		Details: details,
		Status:  status,
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.logger.Error("write operation log failed", logger.Action(op.action), zap.Error(err))
	}
}

func parseTargetID(s string) *int64 {
	if s == "" {
		return nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

var sensitiveFields = []string{
	"password", "token", "secret", "api_key", "document_number",
}

// filterSensitiveData 过滤敏感字段
func filterSensitiveData(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				result[key] = "***"
				continue
			}
			result[key] = filterSensitiveData(value)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = filterSensitiveData(item)
		}
		return result
	default:
		return data
	}
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, sf := range sensitiveFields {
		if strings.Contains(lower, sf) {
			return true
		}
	}
	return false
}
