// Package crypto 提供密码哈希和脱敏工具
package crypto

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword 对密码进行哈希，cost 不在 bcrypt 允许范围内时使用默认值
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// VerifyPassword 验证密码
func VerifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// MaskPhone 电话号码脱敏，保留前 3 位和后 3 位
func MaskPhone(phone string) string {
	phone = strings.ReplaceAll(phone, " ", "")
	if len(phone) <= 6 {
		return phone
	}
	return phone[:3] + strings.Repeat("*", len(phone)-6) + phone[len(phone)-3:]
}

// MaskEmail 邮箱脱敏
func MaskEmail(email string) string {
	i := strings.IndexByte(email, '@')
	if i <= 2 {
		return email
	}
	return email[:2] + "***" + email[i:]
}
