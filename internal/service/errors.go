package service

import (
	"context"
	"errors"
	"fmt"
)

// Kind 工作流错误类别
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthorization
	KindConflict
	KindNotFound
	KindUnavailable
)

// String 返回类别名
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Error 工作流返回的类型化错误
// Message 面向调用方,Err 只用于服务端日志
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error 实现 error 接口,不包含内部错误细节
func (e *Error) Error() string {
	return e.Message
}

// Unwrap 返回内部错误
func (e *Error) Unwrap() error {
	return e.Err
}

// Is 同类别即匹配;目标带 Message 时还要求消息一致
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// 类别哨兵,配合 errors.Is 使用
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrUnavailable   = &Error{Kind: KindUnavailable}
)

// ErrMinistryInUse 部委仍被用户或数据请求引用
var ErrMinistryInUse = &Error{Kind: KindConflict, Message: "ministry is still referenced by users or requests"}

// ErrAlreadyResolved 请求已处于终态
var ErrAlreadyResolved = &Error{Kind: KindConflict, Message: "request already resolved"}

// KindOf 返回错误类别,非工作流错误返回 0
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func validationError(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(what string) error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func conflictError(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

func authorizationError() error {
	return &Error{Kind: KindAuthorization, Message: "not authorized"}
}

// unavailableError 包装存储错误,调用方只看到通用消息
func unavailableError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindUnavailable, Message: "operation timed out", Err: err}
	}
	return &Error{Kind: KindUnavailable, Message: "service temporarily unavailable", Err: err}
}

// asWorkflowError 已是工作流错误时原样返回,否则视为存储故障
func asWorkflowError(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return unavailableError(err)
}
