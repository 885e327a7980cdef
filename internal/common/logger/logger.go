// Package logger 提供结构化日志和常用业务字段
package logger

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dumeirei/bnb-booking-backend/internal/common/config"
)

// 输出目标
const (
	OutputStdout = "stdout"
	OutputFile   = "file"
	OutputBoth   = "both"
)

var log *zap.Logger

// Init 按配置初始化全局日志器
// 文件输出使用 lumberjack 按大小切割
func Init(cfg *config.LoggerConfig) error {
	sink, err := newSink(cfg)
	if err != nil {
		return err
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Caller {
		opts = append(opts, zap.AddCaller())
	}
	log = zap.New(zapcore.NewCore(newEncoder(cfg.Format), sink, parseLevel(cfg.Level)), opts...)
	return nil
}

func newEncoder(format string) zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if format == "json" {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func newSink(cfg *config.LoggerConfig) (zapcore.WriteSyncer, error) {
	stdout := zapcore.Lock(os.Stdout)
	output := cfg.Output
	if output == "" {
		output = OutputStdout
	}
	if output == OutputStdout {
		return stdout, nil
	}
	if output != OutputFile && output != OutputBoth {
		return nil, fmt.Errorf("unknown log output %q", cfg.Output)
	}
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("log output %q requires file_path", output)
	}

	file := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  true,
	})
	if output == OutputBoth {
		return zapcore.NewMultiWriteSyncer(stdout, file), nil
	}
	return file, nil
}

// parseLevel 解析日志级别，无法识别时用 info
func parseLevel(level string) zapcore.Level {
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// GetLogger 全局日志器，未初始化时返回开发模式日志器
func GetLogger() *zap.Logger {
	if log == nil {
		log, _ = zap.NewDevelopment()
	}
	return log
}

// Sync 刷新缓冲
func Sync() error {
	if log == nil {
		return nil
	}
	return log.Sync()
}

// RequestID 请求 ID
func RequestID(id string) zap.Field {
	return zap.String("request_id", id)
}

// AdminID 管理员 ID
func AdminID(id int64) zap.Field {
	return zap.Int64("admin_id", id)
}

// RoomID 房间 ID
func RoomID(id int64) zap.Field {
	return zap.Int64("room_id", id)
}

// BookingNo 预订编号
func BookingNo(no string) zap.Field {
	return zap.String("booking_no", no)
}

// Agent 分析代理名称
func Agent(name string) zap.Field {
	return zap.String("agent", name)
}

// Action 代理动作或后台操作
func Action(name string) zap.Field {
	return zap.String("action", name)
}

// Date 日期，按 YYYY-MM-DD 输出
func Date(key string, t time.Time) zap.Field {
	return zap.String(key, t.Format("2006-01-02"))
}

// Module 模块
func Module(name string) zap.Field {
	return zap.String("module", name)
}

// Latency 请求耗时
func Latency(d time.Duration) zap.Field {
	return zap.Duration("latency", d)
}

// StatusCode HTTP 状态码
func StatusCode(code int) zap.Field {
	return zap.Int("status_code", code)
}

// Method HTTP 方法
func Method(method string) zap.Field {
	return zap.String("method", method)
}

// Path 请求路径
func Path(path string) zap.Field {
	return zap.String("path", path)
}

// IP 客户端地址
func IP(ip string) zap.Field {
	return zap.String("ip", ip)
}
