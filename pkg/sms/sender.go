// Package sms 短信服务
package sms

import (
	"context"
	"sync"
	"time"
)

// Sender 短信发送器接口
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// MockSender 模拟短信发送器（用于开发/测试）
type MockSender struct {
	mu           sync.Mutex
	SentMessages []MockMessage
	// Err 非空时 Send 返回该错误且不记录消息
	Err error
}

// MockMessage 模拟消息
type MockMessage struct {
	Phone   string
	Message string
	SentAt  time.Time
}

// NewMockSender 创建模拟发送器
func NewMockSender() *MockSender {
	return &MockSender{
		SentMessages: make([]MockMessage, 0),
	}
}

// Send 模拟发送
func (s *MockSender) Send(ctx context.Context, phone, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	s.SentMessages = append(s.SentMessages, MockMessage{
		Phone:   phone,
		Message: message,
		SentAt:  time.Now(),
	})
	return nil
}

// Count 已发送消息数
func (s *MockSender) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.SentMessages)
}

// GetLastMessage 获取最后发送的消息
func (s *MockSender) GetLastMessage() *MockMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.SentMessages) == 0 {
		return nil
	}
	msg := s.SentMessages[len(s.SentMessages)-1]
	return &msg
}

// Clear 清空消息记录
func (s *MockSender) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SentMessages = make([]MockMessage, 0)
}
