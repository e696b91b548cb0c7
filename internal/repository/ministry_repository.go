package repository

import (
	"context"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 行锁强度
const (
	LockForUpdate = clause.LockingStrengthUpdate
	LockForShare  = clause.LockingStrengthShare
)

// MinistryRepository 部委仓储接口
type MinistryRepository interface {
	Create(ctx context.Context, ministry *model.MinistryModel) error
	Save(ctx context.Context, ministry *model.MinistryModel) error
	FindByID(ctx context.Context, id string) (*model.MinistryModel, error)
	FindByIDs(ctx context.Context, ids ...string) (map[string]*model.MinistryModel, error)
	LockByID(ctx context.Context, id string, strength string) (*model.MinistryModel, error)
	FindAll(ctx context.Context) ([]*model.MinistryModel, error)
	FindActive(ctx context.Context) ([]*model.MinistryModel, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// ministryRepository 部委仓储实现
type ministryRepository struct {
	db *gorm.DB
}

// NewMinistryRepository 创建部委仓储
func NewMinistryRepository(db *gorm.DB) MinistryRepository {
	return &ministryRepository{db: db}
}

// Create 新增部委
func (r *ministryRepository) Create(ctx context.Context, ministry *model.MinistryModel) error {
	return r.db.WithContext(ctx).Create(ministry).Error
}

// Save 保存部委
func (r *ministryRepository) Save(ctx context.Context, ministry *model.MinistryModel) error {
	return r.db.WithContext(ctx).Save(ministry).Error
}

// FindByID 根据 ID 查找部委
func (r *ministryRepository) FindByID(ctx context.Context, id string) (*model.MinistryModel, error) {
	var ministry model.MinistryModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ministry).Error; err != nil {
		return nil, err
	}
	return &ministry, nil
}

// FindByIDs 批量查找部委,返回 id -> 部委
func (r *ministryRepository) FindByIDs(ctx context.Context, ids ...string) (map[string]*model.MinistryModel, error) {
	var ministries []*model.MinistryModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ministries).Error; err != nil {
		return nil, err
	}
	result := make(map[string]*model.MinistryModel, len(ministries))
	for _, m := range ministries {
		result[m.ID] = m
	}
	return result, nil
}

// LockByID 在当前事务中对部委行加锁后读取
// SQLite 方言会忽略锁子句,此时依赖数据库级写锁串行化
func (r *ministryRepository) LockByID(ctx context.Context, id string, strength string) (*model.MinistryModel, error) {
	var ministry model.MinistryModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: strength}).
		Where("id = ?", id).
		First(&ministry).Error
	if err != nil {
		return nil, err
	}
	return &ministry, nil
}

// FindAll 查找所有部委
func (r *ministryRepository) FindAll(ctx context.Context) ([]*model.MinistryModel, error) {
	var ministries []*model.MinistryModel
	err := r.db.WithContext(ctx).Order("name ASC").Find(&ministries).Error
	return ministries, err
}

// FindActive 查找所有激活的部委
func (r *ministryRepository) FindActive(ctx context.Context) ([]*model.MinistryModel, error) {
	var ministries []*model.MinistryModel
	err := r.db.WithContext(ctx).
		Where("status = ?", model.MinistryStatusActive).
		Order("name ASC").
		Find(&ministries).Error
	return ministries, err
}

// Delete 删除部委,返回受影响行数
func (r *ministryRepository) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.MinistryModel{})
	return result.RowsAffected, result.Error
}
