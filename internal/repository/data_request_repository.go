package repository

import (
	"context"
	"time"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"gorm.io/gorm"
)

// DataRequestRepository 数据请求仓储接口
type DataRequestRepository interface {
	Create(ctx context.Context, req *model.DataRequestModel) error
	FindByID(ctx context.Context, id string) (*model.DataRequestModel, error)
	FindByFilter(ctx context.Context, filter *DataRequestFilter) ([]*model.DataRequestModel, error)
	Resolve(ctx context.Context, id string, status model.RequestStatus, at time.Time, by string) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
	CountByMinistry(ctx context.Context, ministryID string) (int64, error)
	CountByStatus(ctx context.Context, ministryID string) (map[model.RequestStatus]int64, error)
}

// DataRequestFilter 数据请求查询过滤器
type DataRequestFilter struct {
	RequestingMinistryID *string
	TargetMinistryID     *string
	// AnyMinistryID 匹配请求方或被请求方
	AnyMinistryID *string
	Status        *model.RequestStatus
}

// dataRequestRepository 数据请求仓储实现
type dataRequestRepository struct {
	db *gorm.DB
}

// NewDataRequestRepository 创建数据请求仓储
func NewDataRequestRepository(db *gorm.DB) DataRequestRepository {
	return &dataRequestRepository{db: db}
}

// Create 新增数据请求
func (r *dataRequestRepository) Create(ctx context.Context, req *model.DataRequestModel) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// FindByID 根据 ID 查找数据请求
func (r *dataRequestRepository) FindByID(ctx context.Context, id string) (*model.DataRequestModel, error) {
	var req model.DataRequestModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// FindByFilter 根据过滤器查找数据请求,按请求时间倒序
func (r *dataRequestRepository) FindByFilter(ctx context.Context, filter *DataRequestFilter) ([]*model.DataRequestModel, error) {
	var reqs []*model.DataRequestModel
	query := r.db.WithContext(ctx).Model(&model.DataRequestModel{})

	if filter != nil {
		if filter.RequestingMinistryID != nil {
			query = query.Where("requesting_ministry_id = ?", *filter.RequestingMinistryID)
		}
		if filter.TargetMinistryID != nil {
			query = query.Where("target_ministry_id = ?", *filter.TargetMinistryID)
		}
		if filter.AnyMinistryID != nil {
			query = query.Where("requesting_ministry_id = ? OR target_ministry_id = ?", *filter.AnyMinistryID, *filter.AnyMinistryID)
		}
		if filter.Status != nil {
			query = query.Where("status = ?", string(*filter.Status))
		}
	}

	err := query.Order("requested_date DESC, id DESC").Find(&reqs).Error
	return reqs, err
}

// Resolve 条件更新: 只有 pending 状态的请求才会被改写
// 返回 0 表示请求已被处理或已不存在
func (r *dataRequestRepository) Resolve(ctx context.Context, id string, status model.RequestStatus, at time.Time, by string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.DataRequestModel{}).
		Where("id = ? AND status = ?", id, model.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":        status,
			"response_date": at,
			"approved_by":   by,
		})
	return result.RowsAffected, result.Error
}

// Delete 删除数据请求,返回受影响行数
func (r *dataRequestRepository) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.DataRequestModel{})
	return result.RowsAffected, result.Error
}

// CountByMinistry 统计引用某部委的请求数(任一方向)
func (r *dataRequestRepository) CountByMinistry(ctx context.Context, ministryID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.DataRequestModel{}).
		Where("requesting_ministry_id = ? OR target_ministry_id = ?", ministryID, ministryID).
		Count(&count).Error
	return count, err
}

// CountByStatus 按状态统计请求数,ministryID 为空时统计全部
func (r *dataRequestRepository) CountByStatus(ctx context.Context, ministryID string) (map[model.RequestStatus]int64, error) {
	var rows []struct {
		Status model.RequestStatus
		Count  int64
	}
	query := r.db.WithContext(ctx).Model(&model.DataRequestModel{}).Select("status, COUNT(*) AS count")
	if ministryID != "" {
		query = query.Where("requesting_ministry_id = ? OR target_ministry_id = ?", ministryID, ministryID)
	}
	if err := query.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := map[model.RequestStatus]int64{
		model.RequestStatusPending:  0,
		model.RequestStatusApproved: 0,
		model.RequestStatusRejected: 0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
