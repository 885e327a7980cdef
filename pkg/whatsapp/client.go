// Package whatsapp 通过 CallMeBot 发送 WhatsApp 通知
package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
	"go.uber.org/zap"
)

const sendPath = "/whatsapp.php"

// Options 客户端选项
type Options struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetryElapsed   time.Duration
}

// Client CallMeBot 客户端，发送前经过令牌桶限流，失败按指数退避重试
type Client struct {
	http            *resty.Client
	apiKey          string
	limiter         *rate.Limiter
	maxRetryElapsed time.Duration
	logger          *zap.Logger
}

// StatusError 非 2xx 响应
type StatusError struct {
	StatusCode int
	Body       string
}

// Error 实现 error 接口
func (e *StatusError) Error() string {
	return fmt.Sprintf("whatsapp api returned %d: %s", e.StatusCode, e.Body)
}

// NewClient 创建客户端
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.MaxRetryElapsed <= 0 {
		opts.MaxRetryElapsed = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "text/html")

	return &Client{
		http:            client,
		apiKey:          opts.APIKey,
		limiter:         rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		maxRetryElapsed: opts.MaxRetryElapsed,
		logger:          logger,
	}
}

// Send 发送一条消息，4xx（429 除外）不重试
func (c *Client) Send(ctx context.Context, phone, message string) error {
	if phone == "" {
		return fmt.Errorf("whatsapp recipient is empty")
	}

	attempt := 0
	operation := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"phone":  phone,
				"text":   message,
				"apikey": c.apiKey,
			}).
			Get(sendPath)
		if err != nil {
			c.logger.Warn("whatsapp request failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}

		if resp.IsError() {
			statusErr := &StatusError{StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 200)}
			c.logger.Warn("whatsapp api error",
				zap.Int("attempt", attempt),
				zap.Int("status_code", resp.StatusCode()),
			)
			if retryable(resp.StatusCode()) {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = 200 * time.Millisecond
	strategy.MaxElapsedTime = c.maxRetryElapsed

	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	c.logger.Debug("whatsapp message sent", zap.Int("attempts", attempt))
	return nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
