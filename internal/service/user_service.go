package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/auth"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/repository"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UserService 用户开通与登录
type UserService interface {
	Create(ctx context.Context, p model.Principal, in UserInput) (*model.UserModel, error)
	// Provision 命令行开通用户,审计记录归属于新用户本身
	Provision(ctx context.Context, in UserInput) (*model.UserModel, error)
	Authenticate(ctx context.Context, email, password string) (*model.UserModel, error)
}

// UserInput 用户开通参数
type UserInput struct {
	MinistryID string     `json:"ministry_id" binding:"required"`
	Email      string     `json:"email" binding:"required"`
	Password   string     `json:"password" binding:"required"`
	Role       model.Role `json:"role" binding:"required"`
}

// ErrInvalidCredentials 邮箱或密码错误
var ErrInvalidCredentials = &Error{Kind: KindAuthorization, Message: "invalid email or password"}

type userService struct {
	base
}

// NewUserService 创建用户服务
func NewUserService(opts Options) UserService {
	return &userService{base: newBase(opts)}
}

// Create 由超级管理员开通用户
func (s *userService) Create(ctx context.Context, p model.Principal, in UserInput) (*model.UserModel, error) {
	return s.create(ctx, &p, in)
}

// Provision 命令行开通用户
func (s *userService) Provision(ctx context.Context, in UserInput) (*model.UserModel, error) {
	return s.create(ctx, nil, in)
}

func (s *userService) create(ctx context.Context, actor *model.Principal, in UserInput) (*model.UserModel, error) {
	email, err := utils.NormalizeEmail(in.Email)
	if err != nil {
		return nil, validationError("email: %s", err.Error())
	}
	if !in.Role.Valid() {
		return nil, validationError("invalid role %q", in.Role)
	}
	if in.MinistryID == "" {
		return nil, validationError("ministry_id is required")
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		var verr *utils.ValidationError
		if errors.As(err, &verr) {
			return nil, validationError("password: %s", verr.Message)
		}
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user := &model.UserModel{
		ID:           uuid.New().String(),
		MinistryID:   in.MinistryID,
		Role:         in.Role,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now(),
	}

	var principal model.Principal
	if actor != nil {
		principal = *actor
	}

	err = s.transaction(ctx, true, func(tx *gorm.DB) error {
		if actor != nil {
			if d := auth.Authorize(*actor, auth.OpManageMinistries, auth.Target{}); !d.Allowed {
				return deny(auth.OpManageMinistries, model.TableUser, "", d)
			}
		}

		// 共享锁与部委删除的排他锁互斥
		if _, err := repository.NewMinistryRepository(tx).LockByID(ctx, in.MinistryID, repository.LockForShare); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return validationError("ministry %s does not exist", in.MinistryID)
			}
			return err
		}

		if err := repository.NewUserRepository(tx).Create(ctx, user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflictError("email already registered")
			}
			return err
		}

		auditor := user.ID
		if actor != nil {
			auditor = actor.UserID
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			UserID:   auditor,
			Action:   model.ActionCreate,
			Table:    model.TableUser,
			RecordID: user.ID,
			Details:  fmt.Sprintf("User created: %s (%s)", user.Email, user.Role),
		})
	})
	if err != nil {
		return nil, s.finish(ctx, principal, auth.OpManageMinistries, err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"ministry_id": user.MinistryID,
		"role":        user.Role,
	}).Info("user created")
	return user, nil
}

// Authenticate 校验邮箱密码,成功与失败都写审计
func (s *userService) Authenticate(ctx context.Context, email, password string) (*model.UserModel, error) {
	normalized, err := utils.NormalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var user *model.UserModel
	var failed bool
	err = s.transaction(ctx, false, func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)
		u, err := users.FindByEmail(ctx, normalized)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				failed = true
				return nil
			}
			return err
		}

		now := s.clock.Now()
		if !utils.VerifyPassword(password, u.PasswordHash) {
			failed = true
			return s.audit.Record(ctx, tx, AuditEntry{
				UserID:   u.ID,
				Action:   model.ActionFailedLogin,
				Table:    model.TableUser,
				RecordID: u.ID,
				Details:  "Invalid password",
			})
		}

		if err := users.TouchLastLogin(ctx, u.ID, now); err != nil {
			return err
		}
		u.LastLogin = &now
		user = u
		return s.audit.Record(ctx, tx, AuditEntry{
			UserID:   u.ID,
			Action:   model.ActionLogin,
			Table:    model.TableUser,
			RecordID: u.ID,
			Details:  "User logged in",
		})
	})
	if err != nil {
		return nil, s.finish(ctx, model.Principal{}, "Authenticate", err)
	}
	if failed {
		s.logger.WithField("email", normalized).Warn("failed login attempt")
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
