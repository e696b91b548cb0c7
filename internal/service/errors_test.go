package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestError_Is 测试类别匹配
func TestError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", ErrMinistryInUse)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.True(t, errors.Is(err, ErrMinistryInUse))
	assert.False(t, errors.Is(err, ErrAlreadyResolved))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

// TestUnavailableError 存储错误不泄露细节
func TestUnavailableError(t *testing.T) {
	cause := errors.New(`pq: relation "data_requests" does not exist`)
	err := asWorkflowError(cause)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Equal(t, "service temporarily unavailable", err.Error())
	assert.True(t, errors.Is(err, cause))

	timeout := asWorkflowError(fmt.Errorf("begin: %w", context.DeadlineExceeded))
	assert.Equal(t, "operation timed out", timeout.Error())

	typed := validationError("title: %s", "empty")
	assert.Same(t, typed, asWorkflowError(typed))
}

// TestKind_String 测试类别名
func TestKind_String(t *testing.T) {
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "unavailable", KindUnavailable.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
