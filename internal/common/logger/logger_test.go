package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/dumeirei/bnb-booking-backend/internal/common/config"
)

func initFileLogger(t *testing.T, level string) string {
	t.Helper()
	logFile := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Init(&config.LoggerConfig{
		Level:    level,
		Format:   "json",
		Output:   OutputFile,
		FilePath: logFile,
		MaxSize:  1,
	}))
	t.Cleanup(func() { log = nil })
	return logFile
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	_ = Sync()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func TestInit_JSONFileOutput(t *testing.T) {
	logFile := initFileLogger(t, "info")

	GetLogger().Info("availability analysis completed",
		Agent("availabilityAgent"),
		Action("analyzeAvailability"),
		RoomID(3),
		Date("start_date", time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC)),
		Latency(1500*time.Millisecond),
	)

	lines := readLines(t, logFile)
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "availability analysis completed", entry["msg"])
	assert.Equal(t, "availabilityAgent", entry["agent"])
	assert.Equal(t, "analyzeAvailability", entry["action"])
	assert.Equal(t, float64(3), entry["room_id"])
	assert.Equal(t, "2026-07-04", entry["start_date"])
	assert.Equal(t, float64(1500), entry["latency"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestInit_LevelFiltering(t *testing.T) {
	logFile := initFileLogger(t, "warn")

	l := GetLogger()
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("visible warn", BookingNo("BNB1"))
	l.Error("visible error")

	lines := readLines(t, logFile)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"booking_no":"BNB1"`)
	assert.Contains(t, lines[1], "visible error")
	assert.Contains(t, lines[1], "stacktrace")
}

func TestInit_OutputValidation(t *testing.T) {
	t.Cleanup(func() { log = nil })

	assert.NoError(t, Init(&config.LoggerConfig{Format: "console", Caller: true}))
	assert.NoError(t, Init(&config.LoggerConfig{Output: OutputBoth, FilePath: filepath.Join(t.TempDir(), "both.log")}))

	err := Init(&config.LoggerConfig{Output: OutputFile})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file_path")

	err = Init(&config.LoggerConfig{Output: "syslog"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syslog")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), "level %q", tt.in)
	}
}

func TestGetLogger_Lazy(t *testing.T) {
	log = nil
	assert.NoError(t, Sync())

	l := GetLogger()
	require.NotNil(t, l)
	assert.Same(t, l, GetLogger())
	log = nil
}

func TestFields(t *testing.T) {
	assert.Equal(t, "room_id", RoomID(12).Key)
	assert.Equal(t, int64(12), RoomID(12).Integer)
	assert.Equal(t, int64(1), AdminID(1).Integer)
	assert.Equal(t, "BNB20260704120000123456", BookingNo("BNB20260704120000123456").String)
	assert.Equal(t, "2026-12-31", Date("date", time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC)).String)

	for key, field := range map[string]string{
		"request_id":  RequestID("r").Key,
		"status_code": StatusCode(200).Key,
		"method":      Method("GET").Key,
		"path":        Path("/health").Key,
		"ip":          IP("10.0.0.1").Key,
		"module":      Module("booking").Key,
	} {
		assert.Equal(t, key, field)
	}
}
