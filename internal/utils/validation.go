package utils

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// SanitizeString 移除控制字符(保留换行符和制表符)
func SanitizeString(input string) string {
	var result strings.Builder
	for _, r := range input {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}

// ValidateID 验证 ID 格式
func ValidateID(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if len(id) > 64 {
		return ErrIDTooLong
	}
	// 只允许字母、数字、连字符、下划线
	if !idPattern.MatchString(id) {
		return ErrInvalidIDFormat
	}
	return nil
}

// TrimAndValidate 清理并验证字符串,maxLen 按字符计
func TrimAndValidate(s string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(SanitizeString(s))
	if trimmed == "" {
		return "", ErrEmptyString
	}
	if maxLen > 0 && utf8.RuneCountInString(trimmed) > maxLen {
		return "", ErrStringTooLong
	}
	return trimmed, nil
}

// NormalizeEmail 校验并规范化邮箱地址
func NormalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", ErrInvalidEmail
	}
	return trimmed, nil
}

// 错误定义
var (
	ErrEmptyID         = &ValidationError{Code: "EMPTY_ID", Message: "id cannot be empty"}
	ErrInvalidIDFormat = &ValidationError{Code: "INVALID_ID_FORMAT", Message: "id contains invalid characters"}
	ErrIDTooLong       = &ValidationError{Code: "ID_TOO_LONG", Message: "id exceeds maximum length"}
	ErrEmptyString     = &ValidationError{Code: "EMPTY_STRING", Message: "string cannot be empty"}
	ErrStringTooLong   = &ValidationError{Code: "STRING_TOO_LONG", Message: "string exceeds maximum length"}
	ErrInvalidEmail    = &ValidationError{Code: "INVALID_EMAIL", Message: "email address is invalid"}
	ErrWeakPassword    = &ValidationError{Code: "WEAK_PASSWORD", Message: "password must be at least 8 characters"}
)

// ValidationError 验证错误
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
