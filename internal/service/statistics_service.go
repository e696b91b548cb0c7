package service

import (
	"context"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/auth"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/repository"
)

// StatisticsService 统计服务接口
type StatisticsService interface {
	GetStatistics(ctx context.Context, p model.Principal, ministryID string) (*Statistics, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// Statistics 数据请求统计
type Statistics struct {
	MinistryID             string                        `json:"ministry_id,omitempty"` // 为空表示全部部委
	ByStatus               map[model.RequestStatus]int64 `json:"by_status"`
	Total                  int64                         `json:"total"`
	Outgoing               int64                         `json:"outgoing"`
	Incoming               int64                         `json:"incoming"`
	ApprovalRate           float64                       `json:"approval_rate"`            // 已处理请求中批准的百分比
	AverageResponseSeconds float64                       `json:"average_response_seconds"` // 从提交到处理的平均时长
}

// statisticsService 统计服务实现
type statisticsService struct {
	base
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(opts Options) StatisticsService {
	return &statisticsService{base: newBase(opts)}
}

// GetStatistics 获取统计数据
// 超级管理员不指定部委时统计全部,其他角色只能统计本部委
func (s *statisticsService) GetStatistics(ctx context.Context, p model.Principal, ministryID string) (*Statistics, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	scope := ""
	if !(p.IsSuperAdmin() && ministryID == "") {
		var err error
		scope, err = authorizeScope(p, ministryID)
		if err != nil {
			return nil, s.finish(ctx, p, auth.OpListMinistryRequests, err)
		}
	}

	requests := repository.NewDataRequestRepository(s.db)
	byStatus, err := requests.CountByStatus(ctx, scope)
	if err != nil {
		return nil, s.finish(ctx, p, auth.OpListMinistryRequests, err)
	}

	stats := &Statistics{MinistryID: scope, ByStatus: byStatus}
	for _, count := range byStatus {
		stats.Total += count
	}

	filter := &repository.DataRequestFilter{}
	if scope != "" {
		filter.AnyMinistryID = &scope
	}
	list, err := requests.FindByFilter(ctx, filter)
	if err != nil {
		return nil, s.finish(ctx, p, auth.OpListMinistryRequests, err)
	}

	var resolved, approved int64
	var totalSeconds float64
	for _, r := range list {
		if scope != "" {
			if r.RequestingMinistryID == scope {
				stats.Outgoing++
			}
			if r.TargetMinistryID == scope {
				stats.Incoming++
			}
		}
		if !r.Status.IsTerminal() || r.ResponseDate == nil {
			continue
		}
		resolved++
		if r.Status == model.RequestStatusApproved {
			approved++
		}
		totalSeconds += r.ResponseDate.Sub(r.RequestedDate).Seconds()
	}

	if resolved > 0 {
		stats.ApprovalRate = float64(approved) / float64(resolved) * 100
		stats.AverageResponseSeconds = totalSeconds / float64(resolved)
	}

	return stats, nil
}

// CountByStatus 按状态统计全部请求,供指标收集器使用
func (s *statisticsService) CountByStatus(ctx context.Context) (map[string]int64, error) {
	counts, err := repository.NewDataRequestRepository(s.db).CountByStatus(ctx, "")
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(counts))
	for status, count := range counts {
		result[string(status)] = count
	}
	return result, nil
}
