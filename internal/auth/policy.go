package auth

import "github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"

// Operation 受控操作
type Operation string

const (
	OpCreateRequest        Operation = "CreateRequest"
	OpViewRequest          Operation = "ViewRequest"
	OpApproveRequest       Operation = "ApproveRequest"
	OpRejectRequest        Operation = "RejectRequest"
	OpDeleteRequest        Operation = "DeleteRequest"
	OpListMinistryRequests Operation = "ListMinistryRequests"
	OpManageMinistries     Operation = "ManageMinistries"
)

// 判定原因
const (
	ReasonSuperAdmin      = "super_admin"
	ReasonOwner           = "ministry_owner"
	ReasonParticipant     = "ministry_participant"
	ReasonNotPending      = "request_not_pending"
	ReasonNotAuthorized   = "not authorized for this ministry/role"
	ReasonUnauthenticated = "unauthenticated"
)

// Target 被判定的对象快照
// 创建请求时行还不存在,只需填写双方部委及其状态
type Target struct {
	RequestingMinistryID     string
	TargetMinistryID         string
	RequestingMinistryActive bool
	TargetMinistryActive     bool
	Status                   model.RequestStatus
}

// TargetFromRequest 由已有请求构建判定对象
func TargetFromRequest(r *model.DataRequestModel) Target {
	return Target{
		RequestingMinistryID: r.RequestingMinistryID,
		TargetMinistryID:     r.TargetMinistryID,
		Status:               r.Status,
	}
}

// Decision 判定结果,拒绝不是错误,调用方必须分支处理
type Decision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

// Authorize 访问策略判定表,按顺序匹配,首个命中的规则生效
// 纯函数,无副作用
func Authorize(p model.Principal, op Operation, t Target) Decision {
	if p.UserID == "" || p.MinistryID == "" || !p.Role.Valid() {
		return deny(ReasonUnauthenticated)
	}

	// 1. 超级管理员不受部委限制
	if p.Role == model.RoleSuperAdmin {
		return allow(ReasonSuperAdmin)
	}

	switch op {
	case OpCreateRequest:
		// 2. 只能以本部委名义向其他激活部委发起
		if p.MinistryID == t.RequestingMinistryID &&
			t.RequestingMinistryActive && t.TargetMinistryActive &&
			t.RequestingMinistryID != t.TargetMinistryID {
			return allow(ReasonOwner)
		}
	case OpApproveRequest, OpRejectRequest:
		// 3. 只有被请求部委可以处理,且请求必须处于 pending
		if p.MinistryID == t.TargetMinistryID {
			if t.Status == model.RequestStatusPending {
				return allow(ReasonOwner)
			}
			return deny(ReasonNotPending)
		}
	case OpDeleteRequest:
		// 4. 只有被请求部委可以删除
		if p.MinistryID == t.TargetMinistryID {
			return allow(ReasonOwner)
		}
	case OpViewRequest, OpListMinistryRequests:
		// 5. 双方部委均可查看
		if p.MinistryID == t.RequestingMinistryID || p.MinistryID == t.TargetMinistryID {
			return allow(ReasonParticipant)
		}
	}

	// 6. 默认拒绝
	return deny(ReasonNotAuthorized)
}
