package sms

import (
	"context"
	"encoding/json"
	"fmt"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	dysmsapi "github.com/alibabacloud-go/dysmsapi-20170525/v3/client"
	"github.com/alibabacloud-go/tea/tea"
)

const defaultEndpoint = "dysmsapi.aliyuncs.com"

// Config 阿里云短信配置
type Config struct {
	AccessKeyID     string
	AccessKeySecret string
	RegionID        string
	Endpoint        string
	SignName        string
	// TemplateCode 预订通知模板，模板变量为 ${content}
	TemplateCode string
}

// AliyunSender 阿里云短信发送器
type AliyunSender struct {
	client       *dysmsapi.Client
	signName     string
	templateCode string
}

// NewAliyunSender 创建阿里云短信发送器
func NewAliyunSender(cfg *Config) (*AliyunSender, error) {
	if cfg.TemplateCode == "" {
		return nil, fmt.Errorf("sms template code is required")
	}

	config := &openapi.Config{
		AccessKeyId:     tea.String(cfg.AccessKeyID),
		AccessKeySecret: tea.String(cfg.AccessKeySecret),
		Endpoint:        tea.String(defaultEndpoint),
	}
	if cfg.Endpoint != "" {
		config.Endpoint = tea.String(cfg.Endpoint)
	}
	if cfg.RegionID != "" {
		config.RegionId = tea.String(cfg.RegionID)
	}

	client, err := dysmsapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sms client: %w", err)
	}

	return &AliyunSender{
		client:       client,
		signName:     cfg.SignName,
		templateCode: cfg.TemplateCode,
	}, nil
}

// Send 发送通知短信
func (s *AliyunSender) Send(ctx context.Context, phone, message string) error {
	request, err := buildRequest(phone, s.signName, s.templateCode, message)
	if err != nil {
		return err
	}

	response, err := s.client.SendSms(request)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	return checkResponse(response)
}

func buildRequest(phone, signName, templateCode, message string) (*dysmsapi.SendSmsRequest, error) {
	templateParam, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal template param: %w", err)
	}

	return &dysmsapi.SendSmsRequest{
		PhoneNumbers:  tea.String(phone),
		SignName:      tea.String(signName),
		TemplateCode:  tea.String(templateCode),
		TemplateParam: tea.String(string(templateParam)),
	}, nil
}

func checkResponse(response *dysmsapi.SendSmsResponse) error {
	if response == nil || response.Body == nil || response.Body.Code == nil {
		return fmt.Errorf("sms send failed: empty response")
	}
	if tea.StringValue(response.Body.Code) != "OK" {
		return fmt.Errorf("sms send failed: %s - %s",
			tea.StringValue(response.Body.Code), tea.StringValue(response.Body.Message))
	}
	return nil
}
