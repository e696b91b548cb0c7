package model

import "fmt"

// RequestStatus 数据请求状态
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// Valid 是否为合法状态
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	}
	return false
}

// IsTerminal 终态不再允许任何状态迁移
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// CanTransitionTo 状态机: 只允许 pending -> approved/rejected
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return s == RequestStatusPending && next.IsTerminal()
}

// ParseRequestStatus 解析状态字符串
func ParseRequestStatus(s string) (RequestStatus, error) {
	st := RequestStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid request status %q", s)
	}
	return st, nil
}

// Role 用户角色
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid 是否为合法角色
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// ParseRole 解析角色字符串
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}

// RequestType 请求类型
type RequestType string

const (
	RequestTypeData        RequestType = "data"
	RequestTypeDocument    RequestType = "document"
	RequestTypeInformation RequestType = "information"
	RequestTypeOther       RequestType = "other"
)

// Valid 是否为合法请求类型
func (t RequestType) Valid() bool {
	switch t {
	case RequestTypeData, RequestTypeDocument, RequestTypeInformation, RequestTypeOther:
		return true
	}
	return false
}

// Priority 优先级
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid 是否为合法优先级
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// MinistryStatus 部委状态
type MinistryStatus string

const (
	MinistryStatusActive   MinistryStatus = "active"
	MinistryStatusInactive MinistryStatus = "inactive"
)

// Valid 是否为合法部委状态
func (s MinistryStatus) Valid() bool {
	return s == MinistryStatusActive || s == MinistryStatusInactive
}

// 审计动作
const (
	ActionCreate       = "CREATE"
	ActionUpdate       = "UPDATE"
	ActionDelete       = "DELETE"
	ActionAccessDenied = "access_denied"
	ActionLogin        = "login"
	ActionFailedLogin  = "failed_login"
)

// 审计涉及的表
const (
	TableDataRequest = "data_request"
	TableMinistry    = "ministry"
	TableUser        = "user"
)
