package service

import "time"

// Clock 时间来源
type Clock interface {
	Now() time.Time
}

// SystemClock 使用系统时间,统一为 UTC
type SystemClock struct{}

// Now 当前时间
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
