// Package qrcode 生成预订凭证二维码
package qrcode

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/skip2/go-qrcode"
)

const dataURLPrefix = "data:image/png;base64,"

// ErrEmptyContent 二维码内容为空
var ErrEmptyContent = errors.New("qrcode content is empty")

// 纠错级别
const (
	Low     = qrcode.Low
	Medium  = qrcode.Medium
	High    = qrcode.High
	Highest = qrcode.Highest
)

// Generator 二维码生成器，输出 PNG
type Generator struct {
	size  int
	level qrcode.RecoveryLevel
}

// Option 生成器选项
type Option func(*Generator)

// WithSize 图片边长（像素）
func WithSize(size int) Option {
	return func(g *Generator) { g.size = size }
}

// WithRecoveryLevel 纠错级别
func WithRecoveryLevel(level qrcode.RecoveryLevel) Option {
	return func(g *Generator) { g.level = level }
}

// NewGenerator 默认 256 像素、中等纠错
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{size: 256, level: Medium}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GeneratePNG 编码为 PNG
func (g *Generator) GeneratePNG(content string) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	data, err := qrcode.Encode(content, g.level, g.size)
	if err != nil {
		return nil, fmt.Errorf("encode qrcode: %w", err)
	}
	return data, nil
}

// GenerateDataURL 编码为可直接放进 <img src> 的 data URL
func (g *Generator) GenerateDataURL(content string) (string, error) {
	data, err := g.GeneratePNG(content)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(data), nil
}
