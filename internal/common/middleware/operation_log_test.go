package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/bnb-booking-backend/internal/models"
	"github.com/dumeirei/bnb-booking-backend/internal/repository"
)

func setupOperationLogTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.AgentLog{}))
	return db
}

func waitForOperationLog(t *testing.T, db *gorm.DB, action string) *models.AgentLog {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var log models.AgentLog
		err := db.Where("agent = ? AND action = ?", OperationAgent, action).Order("id DESC").First(&log).Error
		if err == nil {
			return &log
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("operation log not created: %s", action)
	return nil
}

func setupOperationRouter(db *gorm.DB, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	op := NewOperationLogger(repository.NewAgentLogRepository(db), nil)

	r := gin.New()
	admin := r.Group("/api/admin")
	admin.Use(func(c *gin.Context) {
		c.Set("admin_id", int64(1))
		c.Next()
	})
	admin.Use(op.Log())

	ok := func(c *gin.Context) { c.JSON(status, gin.H{"code": 0}) }
	admin.POST("/rooms", ok)
	admin.PUT("/bookings/:id/status", ok)
	admin.GET("/rooms", ok)
	admin.POST("/availability", ok)
	return r
}

func send(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOperationLogger_LogsMappedWrites(t *testing.T) {
	db := setupOperationLogTestDB(t)
	r := setupOperationRouter(db, http.StatusOK)

	w := send(r, http.MethodPost, "/api/admin/rooms", map[string]interface{}{"name": "Glicine", "base_price": 120})
	require.Equal(t, http.StatusOK, w.Code)

	log := waitForOperationLog(t, db, "create_room")
	assert.Equal(t, models.AgentLogStatusCompleted, log.Status)
	assert.EqualValues(t, 1, log.Details["admin_id"])
	request, ok := log.Details["request"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Glicine", request["name"])
	_, hasTarget := log.Details["target_id"]
	assert.False(t, hasTarget)

	w = send(r, http.MethodPut, "/api/admin/bookings/123/status", map[string]interface{}{"status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code)

	log = waitForOperationLog(t, db, "update_booking_status")
	assert.EqualValues(t, 123, log.Details["target_id"])
}

func TestOperationLogger_SkipsUnmappedRoutes(t *testing.T) {
	db := setupOperationLogTestDB(t)
	r := setupOperationRouter(db, http.StatusOK)

	send(r, http.MethodGet, "/api/admin/rooms", nil)
	send(r, http.MethodPost, "/api/admin/availability", []interface{}{})
	send(r, http.MethodPost, "/api/admin/rooms", map[string]interface{}{"name": "X"})
	waitForOperationLog(t, db, "create_room")

	var count int64
	require.NoError(t, db.Model(&models.AgentLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestOperationLogger_FailedRequestIsError(t *testing.T) {
	db := setupOperationLogTestDB(t)
	r := setupOperationRouter(db, http.StatusBadRequest)

	send(r, http.MethodPost, "/api/admin/rooms", map[string]interface{}{"name": "X"})

	log := waitForOperationLog(t, db, "create_room")
	assert.Equal(t, models.AgentLogStatusError, log.Status)
}

func TestFilterSensitiveData(t *testing.T) {
	data := map[string]interface{}{
		"username": "host",
		"password": "secret",
		"guest": map[string]interface{}{
			"document_number": "AB123",
			"first_name":      "Anna",
		},
		"items": []interface{}{map[string]interface{}{"api_key": "k"}},
	}

	filtered := filterSensitiveData(data).(map[string]interface{})
	assert.Equal(t, "host", filtered["username"])
	assert.Equal(t, "***", filtered["password"])
	guest := filtered["guest"].(map[string]interface{})
	assert.Equal(t, "***", guest["document_number"])
	assert.Equal(t, "Anna", guest["first_name"])
	item := filtered["items"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "***", item["api_key"])
}
