package repository

import (
	"context"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"gorm.io/gorm"
)

// AuditLogRepository 审计日志仓储接口
// 只提供追加与查询,不提供任何更新或删除方法
type AuditLogRepository interface {
	Create(ctx context.Context, log *model.AuditLogModel) error
	FindByUserID(ctx context.Context, userID string) ([]*model.AuditLogModel, error)
	FindByRecord(ctx context.Context, table string, recordID string) ([]*model.AuditLogModel, error)
	CountByAction(ctx context.Context, action string) (int64, error)
}

// auditLogRepository 审计日志仓储实现
type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志仓储,db 可以是事务句柄
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Create 追加审计日志
func (r *auditLogRepository) Create(ctx context.Context, log *model.AuditLogModel) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// FindByUserID 根据用户 ID 查找审计日志
func (r *auditLogRepository) FindByUserID(ctx context.Context, userID string) ([]*model.AuditLogModel, error) {
	var logs []*model.AuditLogModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("timestamp DESC, id DESC").Find(&logs).Error
	return logs, err
}

// FindByRecord 根据被操作记录查找审计日志,按时间正序
func (r *auditLogRepository) FindByRecord(ctx context.Context, table string, recordID string) ([]*model.AuditLogModel, error) {
	var logs []*model.AuditLogModel
	err := r.db.WithContext(ctx).
		Where("table_affected = ? AND record_id = ?", table, recordID).
		Order("timestamp ASC, id ASC").
		Find(&logs).Error
	return logs, err
}

// CountByAction 统计某类动作的审计日志数
func (r *auditLogRepository) CountByAction(ctx context.Context, action string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.AuditLogModel{}).Where("action = ?", action).Count(&count).Error
	return count, err
}
