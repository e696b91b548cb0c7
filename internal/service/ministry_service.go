package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/auth"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/repository"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MinistryDirectory 部委目录,工作流只读使用
type MinistryDirectory interface {
	Get(ctx context.Context, id string) (*model.MinistryModel, error)
	IsActive(ctx context.Context, id string) bool
	ListActive(ctx context.Context) ([]*model.MinistryModel, error)
}

// MinistryService 部委目录与管理操作
type MinistryService interface {
	MinistryDirectory
	ListAll(ctx context.Context, p model.Principal) ([]*model.MinistryModel, error)
	Create(ctx context.Context, p model.Principal, in MinistryInput) (*model.MinistryModel, error)
	Update(ctx context.Context, p model.Principal, id string, in MinistryInput) (*model.MinistryModel, error)
	SetStatus(ctx context.Context, p model.Principal, id string, status model.MinistryStatus) (*model.MinistryModel, error)
	Delete(ctx context.Context, p model.Principal, id string) error
	// Provision 命令行初始化部委,不经过授权也不写审计
	Provision(ctx context.Context, in MinistryInput) (*model.MinistryModel, error)
}

// MinistryInput 部委创建/修改参数
type MinistryInput struct {
	Name         string `json:"name" binding:"required"`
	Abbreviation string `json:"abbreviation" binding:"required"`
}

// ministryService 部委服务实现
type ministryService struct {
	base
	cache *DirectoryCache
}

// NewMinistryService 创建部委服务
func NewMinistryService(opts Options, cache *DirectoryCache) MinistryService {
	b := newBase(opts)
	if cache == nil {
		cache = NewDirectoryCache(0, b.clock)
	}
	return &ministryService{base: b, cache: cache}
}

// Get 获取部委
func (s *ministryService) Get(ctx context.Context, id string) (*model.MinistryModel, error) {
	if m, ok := s.cache.Get(id); ok {
		return m, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	m, err := repository.NewMinistryRepository(s.db).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("ministry")
		}
		return nil, s.finish(ctx, model.Principal{}, "GetMinistry", err)
	}
	s.cache.Set(m)
	return m, nil
}

// IsActive 部委是否存在且处于激活状态
func (s *ministryService) IsActive(ctx context.Context, id string) bool {
	m, err := s.Get(ctx, id)
	return err == nil && m.IsActive()
}

// ListActive 列出激活的部委
func (s *ministryService) ListActive(ctx context.Context) ([]*model.MinistryModel, error) {
	if list, ok := s.cache.GetActive(); ok {
		return list, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	list, err := repository.NewMinistryRepository(s.db).FindActive(ctx)
	if err != nil {
		return nil, s.finish(ctx, model.Principal{}, "ListActiveMinistries", err)
	}
	s.cache.SetActive(list)
	return list, nil
}

// ListAll 列出全部部委(含未激活),仅超级管理员
func (s *ministryService) ListAll(ctx context.Context, p model.Principal) ([]*model.MinistryModel, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if d := auth.Authorize(p, auth.OpManageMinistries, auth.Target{}); !d.Allowed {
		return nil, s.finish(ctx, p, auth.OpManageMinistries, deny(auth.OpManageMinistries, model.TableMinistry, "", d))
	}

	list, err := repository.NewMinistryRepository(s.db).FindAll(ctx)
	if err != nil {
		return nil, s.finish(ctx, p, auth.OpManageMinistries, err)
	}
	return list, nil
}

func normalizeMinistryInput(in MinistryInput) (MinistryInput, error) {
	name, err := utils.TrimAndValidate(in.Name, 255)
	if err != nil {
		return in, validationError("name: %s", err.Error())
	}
	abbr, err := utils.TrimAndValidate(in.Abbreviation, 32)
	if err != nil {
		return in, validationError("abbreviation: %s", err.Error())
	}
	return MinistryInput{Name: name, Abbreviation: strings.ToUpper(abbr)}, nil
}

// duplicateAbbreviation 唯一索引冲突转换为 Conflict
func duplicateAbbreviation(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return conflictError("ministry abbreviation already exists")
	}
	return err
}

// Create 创建部委
func (s *ministryService) Create(ctx context.Context, p model.Principal, in MinistryInput) (*model.MinistryModel, error) {
	in, err := normalizeMinistryInput(in)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.clock.Now()
	ministry := &model.MinistryModel{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Abbreviation: in.Abbreviation,
		Status:       model.MinistryStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.transaction(ctx, false, func(tx *gorm.DB) error {
		if d := auth.Authorize(p, auth.OpManageMinistries, auth.Target{}); !d.Allowed {
			return deny(auth.OpManageMinistries, model.TableMinistry, "", d)
		}
		if err := repository.NewMinistryRepository(tx).Create(ctx, ministry); err != nil {
			return duplicateAbbreviation(err)
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			UserID:   p.UserID,
			Action:   model.ActionCreate,
			Table:    model.TableMinistry,
			RecordID: ministry.ID,
			Details:  fmt.Sprintf("Ministry created: %s (%s)", ministry.Name, ministry.Abbreviation),
		})
	})
	if err != nil {
		return nil, s.finish(ctx, p, auth.OpManageMinistries, err)
	}

	s.cache.Invalidate()
	s.logger.WithFields(logrus.Fields{"ministry_id": ministry.ID, "user_id": p.UserID}).Info("ministry created")
	return ministry, nil
}

// Update 修改部委名称与缩写
func (s *ministryService) Update(ctx context.Context, p model.Principal, id string, in MinistryInput) (*model.MinistryModel, error) {
	in, err := normalizeMinistryInput(in)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, p, id, func(m *model.MinistryModel) string {
		details := fmt.Sprintf("Ministry updated: %s (%s) -> %s (%s)", m.Name, m.Abbreviation, in.Name, in.Abbreviation)
		m.Name = in.Name
		m.Abbreviation = in.Abbreviation
		return details
	})
}

// SetStatus 激活或停用部委
// 停用不影响已有请求,后续对引用它的 pending 请求的处理会返回 Conflict
func (s *ministryService) SetStatus(ctx context.Context, p model.Principal, id string, status model.MinistryStatus) (*model.MinistryModel, error) {
	if !status.Valid() {
		return nil, validationError("invalid ministry status %q", status)
	}
	return s.mutate(ctx, p, id, func(m *model.MinistryModel) string {
		details := fmt.Sprintf("Ministry status changed: %s -> %s", m.Status, status)
		m.Status = status
		return details
	})
}

// mutate 锁定部委行后修改并审计
func (s *ministryService) mutate(ctx context.Context, p model.Principal, id string, apply func(m *model.MinistryModel) string) (*model.MinistryModel, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var ministry *model.MinistryModel
	err := s.transaction(ctx, false, func(tx *gorm.DB) error {
		if d := auth.Authorize(p, auth.OpManageMinistries, auth.Target{}); !d.Allowed {
			return deny(auth.OpManageMinistries, model.TableMinistry, id, d)
		}

		repo := repository.NewMinistryRepository(tx)
		m, err := repo.LockByID(ctx, id, repository.LockForUpdate)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("ministry")
			}
			return err
		}

		details := apply(m)
		m.UpdatedAt = s.clock.Now()
		if err := m.Validate(); err != nil {
			return validationError("%s", err.Error())
		}
		if err := repo.Save(ctx, m); err != nil {
			return duplicateAbbreviation(err)
		}
		ministry = m

		return s.audit.Record(ctx, tx, AuditEntry{
			UserID:   p.UserID,
			Action:   model.ActionUpdate,
			Table:    model.TableMinistry,
			RecordID: m.ID,
			Details:  details,
		})
	})
	if err != nil {
		return nil, s.finish(ctx, p, auth.OpManageMinistries, err)
	}

	s.cache.Invalidate()
	return ministry, nil
}

// Delete 删除部委
// 行锁、引用计数与删除在同一个事务中完成,并发创建用户的事务会对同一行加共享锁
func (s *ministryService) Delete(ctx context.Context, p model.Principal, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.transaction(ctx, true, func(tx *gorm.DB) error {
		if d := auth.Authorize(p, auth.OpManageMinistries, auth.Target{}); !d.Allowed {
			return deny(auth.OpManageMinistries, model.TableMinistry, id, d)
		}

		ministries := repository.NewMinistryRepository(tx)
		m, err := ministries.LockByID(ctx, id, repository.LockForUpdate)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("ministry")
			}
			return err
		}

		users, err := repository.NewUserRepository(tx).CountByMinistry(ctx, id)
		if err != nil {
			return err
		}
		requests, err := repository.NewDataRequestRepository(tx).CountByMinistry(ctx, id)
		if err != nil {
			return err
		}
		if users > 0 || requests > 0 {
			return ErrMinistryInUse
		}

		rows, err := ministries.Delete(ctx, id)
		if err != nil {
			return err
		}
		if rows == 0 {
			return notFoundError("ministry")
		}

		return s.audit.Record(ctx, tx, AuditEntry{
			UserID:   p.UserID,
			Action:   model.ActionDelete,
			Table:    model.TableMinistry,
			RecordID: id,
			Details:  fmt.Sprintf("Ministry deleted: %s (%s)", m.Name, m.Abbreviation),
		})
	})
	if err != nil {
		return s.finish(ctx, p, auth.OpManageMinistries, err)
	}

	s.cache.Invalidate()
	s.logger.WithFields(logrus.Fields{"ministry_id": id, "user_id": p.UserID}).Info("ministry deleted")
	return nil
}

// Provision 命令行初始化部委
func (s *ministryService) Provision(ctx context.Context, in MinistryInput) (*model.MinistryModel, error) {
	in, err := normalizeMinistryInput(in)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.clock.Now()
	ministry := &model.MinistryModel{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Abbreviation: in.Abbreviation,
		Status:       model.MinistryStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repository.NewMinistryRepository(s.db).Create(ctx, ministry); err != nil {
		return nil, s.finish(ctx, model.Principal{}, "ProvisionMinistry", duplicateAbbreviation(err))
	}

	s.cache.Invalidate()
	s.logger.WithField("ministry_id", ministry.ID).Info("ministry provisioned")
	return ministry, nil
}
