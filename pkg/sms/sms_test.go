// Package sms 短信服务单元测试
package sms

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	dysmsapi "github.com/alibabacloud-go/dysmsapi-20170525/v3/client"
	"github.com/alibabacloud-go/tea/tea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSender_Send(t *testing.T) {
	sender := NewMockSender()
	ctx := context.Background()

	t.Run("发送短信", func(t *testing.T) {
		err := sender.Send(ctx, "+393331234567", "Booking BNB123 confirmed")
		require.NoError(t, err)

		assert.Len(t, sender.SentMessages, 1)
		msg := sender.SentMessages[0]
		assert.Equal(t, "+393331234567", msg.Phone)
		assert.Equal(t, "Booking BNB123 confirmed", msg.Message)
		assert.NotZero(t, msg.SentAt)
	})

	t.Run("发送多条短信", func(t *testing.T) {
		sender.Clear()

		_ = sender.Send(ctx, "+391", "a")
		_ = sender.Send(ctx, "+392", "b")
		_ = sender.Send(ctx, "+393", "c")

		assert.Equal(t, 3, sender.Count())
		assert.Equal(t, "c", sender.GetLastMessage().Message)
	})
}

func TestMockSender_Err(t *testing.T) {
	sender := NewMockSender()
	sender.Err = errors.New("gateway down")

	err := sender.Send(context.Background(), "+391", "a")
	assert.EqualError(t, err, "gateway down")
	assert.Equal(t, 0, sender.Count())
	assert.Nil(t, sender.GetLastMessage())
}

func TestBuildRequest(t *testing.T) {
	req, err := buildRequest("+393331234567", "Casa Mia", "SMS_001", "Booking BNB1 confirmed")
	require.NoError(t, err)

	assert.Equal(t, "+393331234567", tea.StringValue(req.PhoneNumbers))
	assert.Equal(t, "Casa Mia", tea.StringValue(req.SignName))
	assert.Equal(t, "SMS_001", tea.StringValue(req.TemplateCode))

	var params map[string]string
	require.NoError(t, json.Unmarshal([]byte(tea.StringValue(req.TemplateParam)), &params))
	assert.Equal(t, "Booking BNB1 confirmed", params["content"])
}

func TestCheckResponse(t *testing.T) {
	assert.Error(t, checkResponse(nil))
	assert.Error(t, checkResponse(&dysmsapi.SendSmsResponse{}))

	ok := &dysmsapi.SendSmsResponse{Body: &dysmsapi.SendSmsResponseBody{Code: tea.String("OK")}}
	assert.NoError(t, checkResponse(ok))

	failed := &dysmsapi.SendSmsResponse{Body: &dysmsapi.SendSmsResponseBody{
		Code:    tea.String("isv.BUSINESS_LIMIT_CONTROL"),
		Message: tea.String("limit"),
	}}
	err := checkResponse(failed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "isv.BUSINESS_LIMIT_CONTROL")
}

func TestNewAliyunSender_RequiresTemplate(t *testing.T) {
	_, err := NewAliyunSender(&Config{AccessKeyID: "id", AccessKeySecret: "secret"})
	assert.Error(t, err)
}

func TestSenderInterfaceImpl(t *testing.T) {
	var _ Sender = (*MockSender)(nil)
	var _ Sender = (*AliyunSender)(nil)
}
