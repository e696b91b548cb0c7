package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/auth"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/metrics"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/repository"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RequestService 数据请求工作流
// 每个变更操作与其审计记录在同一个事务中提交
type RequestService interface {
	Create(ctx context.Context, p model.Principal, in CreateRequestInput) (*model.DataRequestModel, error)
	Approve(ctx context.Context, p model.Principal, id string) error
	Reject(ctx context.Context, p model.Principal, id string) error
	Delete(ctx context.Context, p model.Principal, id string) error
	Get(ctx context.Context, p model.Principal, id string) (*model.DataRequestModel, error)
	History(ctx context.Context, p model.Principal, id string) ([]*model.AuditLogModel, error)
	ListForMinistry(ctx context.Context, p model.Principal, filter ListFilter) (*MinistryRequests, error)
	ListOutgoing(ctx context.Context, p model.Principal, filter ListFilter) ([]*model.DataRequestModel, error)
	ListIncoming(ctx context.Context, p model.Principal, filter ListFilter) ([]*model.DataRequestModel, error)
	Export(ctx context.Context, p model.Principal, ministryID string) ([]*model.DataRequestModel, error)
}

// CreateRequestInput 创建数据请求参数
// RequestingMinistryID 为空时取调用方所属部委
type CreateRequestInput struct {
	RequestingMinistryID string            `json:"requesting_ministry_id"`
	TargetMinistryID     string            `json:"target_ministry_id" binding:"required"`
	Title                string            `json:"title" binding:"required"`
	Description          string            `json:"description" binding:"required"`
	RequestType          model.RequestType `json:"request_type" binding:"required"`
	Priority             model.Priority    `json:"priority" binding:"required"`
}

// ListFilter 列表过滤条件
// MinistryID 为空时取调用方所属部委
type ListFilter struct {
	MinistryID string
	Status     *model.RequestStatus
}

// MinistryRequests 某部委的发出与收到的请求,均按请求时间倒序
type MinistryRequests struct {
	MinistryID string                    `json:"ministry_id"`
	Outgoing   []*model.DataRequestModel `json:"outgoing"`
	Incoming   []*model.DataRequestModel `json:"incoming"`
}

type requestService struct {
	base
}

// NewRequestService 创建数据请求工作流服务
func NewRequestService(opts Options) RequestService {
	return &requestService{base: newBase(opts)}
}

func (s *requestService) log(ctx context.Context, p model.Principal) logrus.FieldLogger {
	return s.logger.WithFields(logrus.Fields{
		"user_id":     p.UserID,
		"ministry_id": p.MinistryID,
		"request_id":  RequestMetaFromContext(ctx).RequestID,
	})
}

func validateCreateInput(p model.Principal, in CreateRequestInput) (CreateRequestInput, error) {
	if in.RequestingMinistryID == "" {
		in.RequestingMinistryID = p.MinistryID
	}
	if in.TargetMinistryID == "" {
		return in, validationError("target_ministry_id is required")
	}
	if in.RequestingMinistryID == in.TargetMinistryID {
		return in, validationError("requesting and target ministry must differ")
	}

	title, err := utils.TrimAndValidate(in.Title, 255)
	if err != nil {
		return in, validationError("title: %s", err.Error())
	}
	description, err := utils.TrimAndValidate(in.Description, 0)
	if err != nil {
		return in, validationError("description: %s", err.Error())
	}
	in.Title = title
	in.Description = description

	if !in.RequestType.Valid() {
		return in, validationError("invalid request_type %q", in.RequestType)
	}
	if !in.Priority.Valid() {
		return in, validationError("invalid priority %q", in.Priority)
	}
	return in, nil
}

// Create 创建数据请求
func (s *requestService) Create(ctx context.Context, p model.Principal, in CreateRequestInput) (*model.DataRequestModel, error) {
	in, err := validateCreateInput(p, in)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var created *model.DataRequestModel
	err = s.transaction(ctx, false, func(tx *gorm.DB) error {
		ministries, err := repository.NewMinistryRepository(tx).FindByIDs(ctx, in.RequestingMinistryID, in.TargetMinistryID)
		if err != nil {
			return err
		}
		target, ok := ministries[in.TargetMinistryID]
		if !ok || !target.IsActive() {
			return validationError("target ministry must be an active ministry")
		}
		requesting := ministries[in.RequestingMinistryID]

		// 请求行尚不存在,按双方部委构建判定对象
		decision := auth.Authorize(p, auth.OpCreateRequest, auth.Target{
			RequestingMinistryID:     in.RequestingMinistryID,
			TargetMinistryID:         in.TargetMinistryID,
			RequestingMinistryActive: requesting.IsActive(),
			TargetMinistryActive:     target.IsActive(),
		})
		if !decision.Allowed {
			return deny(auth.OpCreateRequest, model.TableDataRequest, "", decision)
		}
		if requesting == nil || !requesting.IsActive() {
			return validationError("requesting ministry must be an active ministry")
		}
		// requested_by 必须属于请求方部委
		if p.MinistryID != in.RequestingMinistryID {
			return validationError("requester must belong to the requesting ministry")
		}

		req := &model.DataRequestModel{
			ID:                   uuid.New().String(),
			RequestingMinistryID: in.RequestingMinistryID,
			TargetMinistryID:     in.TargetMinistryID,
			RequestedBy:          p.UserID,
			Title:                in.Title,
			Description:          in.Description,
			RequestType:          in.RequestType,
			Priority:             in.Priority,
			Status:               model.RequestStatusPending,
			RequestedDate:        s.clock.Now(),
		}
		if err := req.Validate(); err != nil {
			return validationError("%s", err.Error())
		}
		if err := repository.NewDataRequestRepository(tx).Create(ctx, req); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, AuditEntry{
			UserID:   p.UserID,
			Action:   model.ActionCreate,
			Table:    model.TableDataRequest,
			RecordID: req.ID,
			Details:  fmt.Sprintf("Request created: %s (to %s, priority %s)", req.Title, target.Abbreviation, req.Priority),
		}); err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, s.finish(ctx, p, auth.OpCreateRequest, err)
	}

	metrics.RecordRequestCreated()
	s.log(ctx, p).WithField("data_request_id", created.ID).Info("data request created")
	return created, nil
}

// Approve 批准数据请求
func (s *requestService) Approve(ctx context.Context, p model.Principal, id string) error {
	return s.decide(ctx, p, id, model.RequestStatusApproved)
}

// Reject 拒绝数据请求
func (s *requestService) Reject(ctx context.Context, p model.Principal, id string) error {
	return s.decide(ctx, p, id, model.RequestStatusRejected)
}

// decide 处理 pending 请求
// 条件更新只改写 pending 行,并发处理同一请求时只有一个成功
func (s *requestService) decide(ctx context.Context, p model.Principal, id string, status model.RequestStatus) error {
	op, action, details := auth.OpApproveRequest, "approve", "Request approved"
	if status == model.RequestStatusRejected {
		op, action, details = auth.OpRejectRequest, "reject", "Request rejected"
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.transaction(ctx, false, func(tx *gorm.DB) error {
		requests := repository.NewDataRequestRepository(tx)
		req, err := findRequest(ctx, requests, id)
		if err != nil {
			return err
		}

		decision := auth.Authorize(p, op, auth.TargetFromRequest(req))
		if !decision.Allowed {
			if decision.Reason == auth.ReasonNotPending {
				return ErrAlreadyResolved
			}
			return deny(op, model.TableDataRequest, id, decision)
		}
		if !req.Status.CanTransitionTo(status) {
			return ErrAlreadyResolved
		}

		// 引用的部委被停用后不再处理该请求
		ministries, err := repository.NewMinistryRepository(tx).FindByIDs(ctx, req.RequestingMinistryID, req.TargetMinistryID)
		if err != nil {
			return err
		}
		if !ministries[req.RequestingMinistryID].IsActive() || !ministries[req.TargetMinistryID].IsActive() {
			return conflictError("a ministry referenced by this request is no longer active")
		}

		rows, err := requests.Resolve(ctx, id, status, s.clock.Now(), p.UserID)
		if err != nil {
			return err
		}
		if rows == 0 {
			if _, err := findRequest(ctx, requests, id); err != nil {
				return err
			}
			return ErrAlreadyResolved
		}

		return s.audit.Record(ctx, tx, AuditEntry{
			UserID:   p.UserID,
			Action:   model.ActionUpdate,
			Table:    model.TableDataRequest,
			RecordID: id,
			Details:  details,
		})
	})
	if err != nil {
		return s.finish(ctx, p, op, err)
	}

	metrics.RecordDecision(action)
	s.log(ctx, p).WithFields(logrus.Fields{"data_request_id": id, "status": status}).Info("data request resolved")
	return nil
}

// Delete 删除数据请求,任何状态均可,删除本身不可逆
func (s *requestService) Delete(ctx context.Context, p model.Principal, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.transaction(ctx, false, func(tx *gorm.DB) error {
		requests := repository.NewDataRequestRepository(tx)
		req, err := findRequest(ctx, requests, id)
		if err != nil {
			return err
		}

		decision := auth.Authorize(p, auth.OpDeleteRequest, auth.TargetFromRequest(req))
		if !decision.Allowed {
			return deny(auth.OpDeleteRequest, model.TableDataRequest, id, decision)
		}

		rows, err := requests.Delete(ctx, id)
		if err != nil {
			return err
		}
		// 并发删除时后到者得到 NotFound
		if rows == 0 {
			return notFoundError("data request")
		}

		return s.audit.Record(ctx, tx, AuditEntry{
			UserID:   p.UserID,
			Action:   model.ActionDelete,
			Table:    model.TableDataRequest,
			RecordID: id,
			Details:  fmt.Sprintf("Request deleted: %s (status %s)", req.Title, req.Status),
		})
	})
	if err != nil {
		return s.finish(ctx, p, auth.OpDeleteRequest, err)
	}

	metrics.RecordDecision("delete")
	s.log(ctx, p).WithField("data_request_id", id).Info("data request deleted")
	return nil
}

// Get 查看数据请求
func (s *requestService) Get(ctx context.Context, p model.Principal, id string) (*model.DataRequestModel, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req, err := s.view(ctx, p, id)
	if err != nil {
		return nil, s.finish(ctx, p, auth.OpViewRequest, err)
	}
	return req, nil
}

// History 查看数据请求的审计轨迹,按时间正序
func (s *requestService) History(ctx context.Context, p model.Principal, id string) ([]*model.AuditLogModel, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.view(ctx, p, id); err != nil {
		return nil, s.finish(ctx, p, auth.OpViewRequest, err)
	}

	entries, err := s.audit.ListByRecord(ctx, model.TableDataRequest, id)
	if err != nil {
		return nil, s.finish(ctx, p, auth.OpViewRequest, err)
	}
	return entries, nil
}

func (s *requestService) view(ctx context.Context, p model.Principal, id string) (*model.DataRequestModel, error) {
	req, err := findRequest(ctx, repository.NewDataRequestRepository(s.db), id)
	if err != nil {
		return nil, err
	}
	decision := auth.Authorize(p, auth.OpViewRequest, auth.TargetFromRequest(req))
	if !decision.Allowed {
		return nil, deny(auth.OpViewRequest, model.TableDataRequest, id, decision)
	}
	return req, nil
}

// authorizeList 校验列表过滤条件与范围
func (s *requestService) authorizeList(p model.Principal, filter ListFilter) (string, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return "", validationError("invalid status %q", *filter.Status)
	}
	return authorizeScope(p, filter.MinistryID)
}

// authorizeScope 校验部委范围,返回实际查询的部委
// user 角色只能查看本部委,admin 的显式过滤同样受策略表约束
func authorizeScope(p model.Principal, ministryID string) (string, error) {
	if ministryID == "" {
		ministryID = p.MinistryID
	}

	decision := auth.Authorize(p, auth.OpListMinistryRequests, auth.Target{
		RequestingMinistryID: ministryID,
		TargetMinistryID:     ministryID,
	})
	if p.Role == model.RoleUser && ministryID != p.MinistryID {
		decision = auth.Decision{Allowed: false, Reason: auth.ReasonNotAuthorized}
	}
	if !decision.Allowed {
		return "", deny(auth.OpListMinistryRequests, model.TableDataRequest, ministryID, decision)
	}
	return ministryID, nil
}

// ListForMinistry 列出某部委发出与收到的请求
func (s *requestService) ListForMinistry(ctx context.Context, p model.Principal, filter ListFilter) (*MinistryRequests, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ministryID, err := s.authorizeList(p, filter)
	if err != nil {
		return nil, s.finish(ctx, p, auth.OpListMinistryRequests, err)
	}

	requests := repository.NewDataRequestRepository(s.db)
	outgoing, err := requests.FindByFilter(ctx, &repository.DataRequestFilter{RequestingMinistryID: &ministryID, Status: filter.Status})
	if err != nil {
		return nil, s.finish(ctx, p, auth.OpListMinistryRequests, err)
	}
	incoming, err := requests.FindByFilter(ctx, &repository.DataRequestFilter{TargetMinistryID: &ministryID, Status: filter.Status})
	if err != nil {
		return nil, s.finish(ctx, p, auth.OpListMinistryRequests, err)
	}

	return &MinistryRequests{MinistryID: ministryID, Outgoing: outgoing, Incoming: incoming}, nil
}

// ListOutgoing 列出发出的请求
func (s *requestService) ListOutgoing(ctx context.Context, p model.Principal, filter ListFilter) ([]*model.DataRequestModel, error) {
	return s.listOneSide(ctx, p, filter, true)
}

// ListIncoming 列出收到的请求
func (s *requestService) ListIncoming(ctx context.Context, p model.Principal, filter ListFilter) ([]*model.DataRequestModel, error) {
	return s.listOneSide(ctx, p, filter, false)
}

func (s *requestService) listOneSide(ctx context.Context, p model.Principal, filter ListFilter, outgoing bool) ([]*model.DataRequestModel, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ministryID, err := s.authorizeList(p, filter)
	if err != nil {
		return nil, s.finish(ctx, p, auth.OpListMinistryRequests, err)
	}

	f := &repository.DataRequestFilter{Status: filter.Status}
	if outgoing {
		f.RequestingMinistryID = &ministryID
	} else {
		f.TargetMinistryID = &ministryID
	}
	list, err := repository.NewDataRequestRepository(s.db).FindByFilter(ctx, f)
	if err != nil {
		return nil, s.finish(ctx, p, auth.OpListMinistryRequests, err)
	}
	return list, nil
}

// Export 导出某部委参与的全部请求,供 CSV/PDF 渲染使用
func (s *requestService) Export(ctx context.Context, p model.Principal, ministryID string) ([]*model.DataRequestModel, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ministryID, err := s.authorizeList(p, ListFilter{MinistryID: ministryID})
	if err != nil {
		return nil, s.finish(ctx, p, auth.OpListMinistryRequests, err)
	}

	list, err := repository.NewDataRequestRepository(s.db).FindByFilter(ctx, &repository.DataRequestFilter{AnyMinistryID: &ministryID})
	if err != nil {
		return nil, s.finish(ctx, p, auth.OpListMinistryRequests, err)
	}
	return list, nil
}

func findRequest(ctx context.Context, repo repository.DataRequestRepository, id string) (*model.DataRequestModel, error) {
	if err := utils.ValidateID(id); err != nil {
		return nil, notFoundError("data request")
	}
	req, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("data request")
		}
		return nil, err
	}
	return req, nil
}
