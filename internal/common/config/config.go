// Package config 提供应用配置管理功能
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	globalConfig *Config
	once         sync.Once
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Crypto    CryptoConfig    `mapstructure:"crypto"`
	SMS       SMSConfig       `mapstructure:"sms"`
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Booking   BookingConfig   `mapstructure:"booking"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Name            string `mapstructure:"name"`
	Mode            string `mapstructure:"mode"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Name            string `mapstructure:"name"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogMode         bool   `mapstructure:"log_mode"`
	SlowThreshold   int    `mapstructure:"slow_threshold"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.Timezone,
	)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  int    `mapstructure:"dial_timeout"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// Addr 返回 Redis 地址
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret             string `mapstructure:"secret"`
	AccessTokenExpire  int    `mapstructure:"access_token_expire"`
	RefreshTokenExpire int    `mapstructure:"refresh_token_expire"`
	Issuer             string `mapstructure:"issuer"`
}

// AccessTokenDuration 返回访问令牌有效期
func (j *JWTConfig) AccessTokenDuration() time.Duration {
	return time.Duration(j.AccessTokenExpire) * time.Hour
}

// RefreshTokenDuration 返回刷新令牌有效期
func (j *JWTConfig) RefreshTokenDuration() time.Duration {
	return time.Duration(j.RefreshTokenExpire) * time.Hour
}

// CryptoConfig 加密配置
type CryptoConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// SMSConfig 短信配置
type SMSConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Provider        string `mapstructure:"provider"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	RegionID        string `mapstructure:"region_id"`
	SignName        string `mapstructure:"sign_name"`
	TemplateID      string `mapstructure:"template_id"`
}

// WhatsAppConfig WhatsApp 通知配置 (CallMeBot)
type WhatsAppConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	BaseURL           string  `mapstructure:"base_url"`
	APIKey            string  `mapstructure:"api_key"`
	Timeout           int     `mapstructure:"timeout"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	MaxRetryElapsed   int     `mapstructure:"max_retry_elapsed"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	Caller     bool   `mapstructure:"caller"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	BookingLimit  int  `mapstructure:"booking_limit"`
	BookingWindow int  `mapstructure:"booking_window"`
	LoginLimit    int  `mapstructure:"login_limit"`
	LoginWindow   int  `mapstructure:"login_window"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// BookingConfig 预订配置
type BookingConfig struct {
	NumberPrefix   string `mapstructure:"number_prefix"`
	LockTTLSeconds int    `mapstructure:"lock_ttl_seconds"`
	DefaultAdults  int    `mapstructure:"default_adults"`
	MaxNights      int    `mapstructure:"max_nights"`
	Timezone       string `mapstructure:"timezone"`
}

// LockTTL 返回房间锁有效期
func (b *BookingConfig) LockTTL() time.Duration {
	return time.Duration(b.LockTTLSeconds) * time.Second
}

// Location 返回业务时区，"今天" 按该时区计算
func (b *BookingConfig) Location() *time.Location {
	if b.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AgentConfig 定价/可用性分析参数
type AgentConfig struct {
	AnalysisWindowDays      int     `mapstructure:"analysis_window_days"`
	AvailabilityWindowDays  int     `mapstructure:"availability_window_days"`
	MaxWindowDays           int     `mapstructure:"max_window_days"`
	PriceChangeThreshold    float64 `mapstructure:"price_change_threshold"`
	MaxPriceChangeThreshold float64 `mapstructure:"max_price_change_threshold"`
	LowAvailabilityMinRun   int     `mapstructure:"low_availability_min_run"`
	HighSeverityRun         int     `mapstructure:"high_severity_run"`
	CheckerboardRatio       float64 `mapstructure:"checkerboard_ratio"`
	AdvanceLongDays         int     `mapstructure:"advance_long_days"`
	AdvanceLongDiscount     float64 `mapstructure:"advance_long_discount"`
	AdvanceShortDays        int     `mapstructure:"advance_short_days"`
	AdvanceShortDiscount    float64 `mapstructure:"advance_short_discount"`
	WeekendSurcharge        float64 `mapstructure:"weekend_surcharge"`
	DemandHighBookings      int     `mapstructure:"demand_high_bookings"`
	DemandHighMultiplier    float64 `mapstructure:"demand_high_multiplier"`
	DemandLowBookings       int     `mapstructure:"demand_low_bookings"`
	DemandLowMultiplier     float64 `mapstructure:"demand_low_multiplier"`
	MaxAlternatives         int     `mapstructure:"max_alternatives"`
	LogsLimit               int     `mapstructure:"logs_limit"`
}

// AdminConfig 后台管理员初始化配置，库中没有管理员时按此创建
type AdminConfig struct {
	InitialUsername string `mapstructure:"initial_username"`
	InitialPassword string `mapstructure:"initial_password"`
	InitialName     string `mapstructure:"initial_name"`
}

// SchedulerConfig 定时任务配置
type SchedulerConfig struct {
	Enabled                   bool `mapstructure:"enabled"`
	BookingCompletionInterval int  `mapstructure:"booking_completion_interval"`
	NotificationRetryInterval int  `mapstructure:"notification_retry_interval"`
	NotificationMaxAttempts   int  `mapstructure:"notification_max_attempts"`
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	var err error
	once.Do(func() {
		v := viper.New()

		// 设置配置文件路径
		if configPath != "" {
			v.SetConfigFile(configPath)
		} else {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath("./configs")
			v.AddConfigPath(".")
		}

		// 环境变量支持
		v.AutomaticEnv()
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

		setDefaults(v)

		if err = v.ReadInConfig(); err != nil {
			// 如果配置文件不存在，使用默认值
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return
			}
			err = nil
		}

		globalConfig = &Config{}
		if err = v.Unmarshal(globalConfig); err != nil {
			return
		}
	})

	return globalConfig, err
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		globalConfig = Default()
	}
	return globalConfig
}

// Default 返回只包含默认值的配置，测试中常用
// Default 返回只包含默认值的配置
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	_ = v.Unmarshal(cfg)
	return cfg
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.name", "bnb-booking-backend")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.shutdown_timeout", 10)

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "bnb")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "Europe/Rome")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_mode", true)
	v.SetDefault("database.slow_threshold", 200)
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	// JWT defaults
	v.SetDefault("jwt.secret", "your-super-secret-key-change-in-production")
	v.SetDefault("jwt.access_token_expire", 12)
	v.SetDefault("jwt.refresh_token_expire", 168)
	v.SetDefault("jwt.issuer", "bnb-booking")

	// Crypto defaults
	v.SetDefault("crypto.bcrypt_cost", 10)

	// SMS defaults
	v.SetDefault("sms.enabled", false)
	v.SetDefault("sms.provider", "aliyun")
	v.SetDefault("sms.region_id", "ap-southeast-1")

	// WhatsApp defaults
	v.SetDefault("whatsapp.enabled", false)
	v.SetDefault("whatsapp.base_url", "https://api.callmebot.com")
	v.SetDefault("whatsapp.timeout", 10)
	v.SetDefault("whatsapp.requests_per_second", 1.0)
	v.SetDefault("whatsapp.max_retry_elapsed", 30)

	// Logger defaults
	v.SetDefault("logger.level", "debug")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "./logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.caller", true)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "bnb")
	v.SetDefault("metrics.path", "/metrics")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "bnb-booking-backend")
	v.SetDefault("tracing.sample_rate", 1.0)

	// Rate limit defaults
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.booking_limit", 10)
	v.SetDefault("ratelimit.booking_window", 60)
	v.SetDefault("ratelimit.login_limit", 5)
	v.SetDefault("ratelimit.login_window", 60)

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"})
	v.SetDefault("cors.exposed_headers", []string{"X-Request-ID"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 86400)

	// Booking defaults
	v.SetDefault("booking.number_prefix", "BNB")
	v.SetDefault("booking.lock_ttl_seconds", 10)
	v.SetDefault("booking.default_adults", 2)
	v.SetDefault("booking.max_nights", 30)
	v.SetDefault("booking.timezone", "Europe/Rome")

	// Agent defaults
	v.SetDefault("agent.analysis_window_days", 90)
	v.SetDefault("agent.availability_window_days", 30)
	v.SetDefault("agent.max_window_days", 366)
	v.SetDefault("agent.price_change_threshold", 5.0)
	v.SetDefault("agent.max_price_change_threshold", 50.0)
	v.SetDefault("agent.low_availability_min_run", 3)
	v.SetDefault("agent.high_severity_run", 7)
	v.SetDefault("agent.checkerboard_ratio", 0.4)
	v.SetDefault("agent.advance_long_days", 60)
	v.SetDefault("agent.advance_long_discount", 0.10)
	v.SetDefault("agent.advance_short_days", 30)
	v.SetDefault("agent.advance_short_discount", 0.05)
	v.SetDefault("agent.weekend_surcharge", 0.15)
	v.SetDefault("agent.demand_high_bookings", 3)
	v.SetDefault("agent.demand_high_multiplier", 1.2)
	v.SetDefault("agent.demand_low_bookings", 1)
	v.SetDefault("agent.demand_low_multiplier", 1.1)
	v.SetDefault("agent.max_alternatives", 3)
	v.SetDefault("agent.logs_limit", 50)

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.booking_completion_interval", 60)
	v.SetDefault("scheduler.notification_retry_interval", 10)
	v.SetDefault("scheduler.notification_max_attempts", 3)

	// Admin defaults
	v.SetDefault("admin.initial_username", "admin")
	v.SetDefault("admin.initial_password", "")
	v.SetDefault("admin.initial_name", "Host")
}

// IsDebug 是否为调试模式
func (c *Config) IsDebug() bool {
	return c.Server.Mode == "debug"
}

// IsRelease 是否为发布模式
func (c *Config) IsRelease() bool {
	return c.Server.Mode == "release"
}
