package model

import (
	"errors"
	"time"
)

// UserModel 用户数据模型
type UserModel struct {
	ID           string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	MinistryID   string     `gorm:"type:varchar(64);not null;index" json:"ministry_id"`
	Role         Role       `gorm:"type:varchar(16);not null" json:"role"`
	Email        string     `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
}

// TableName 指定表名
func (UserModel) TableName() string {
	return "users"
}

// Validate 验证用户模型
func (u *UserModel) Validate() error {
	if u.ID == "" {
		return errors.New("user ID is required")
	}
	if u.MinistryID == "" {
		return errors.New("ministry ID is required")
	}
	if !u.Role.Valid() {
		return errors.New("user role is invalid")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}

// Principal 已认证的调用方身份,显式传入每个工作流调用
type Principal struct {
	UserID     string `json:"user_id"`
	MinistryID string `json:"ministry_id"`
	Role       Role   `json:"role"`
}

// IsSuperAdmin 是否为超级管理员
func (p Principal) IsSuperAdmin() bool {
	return p.Role == RoleSuperAdmin
}

// Principal 从用户记录构建调用方身份
func (u *UserModel) Principal() Principal {
	return Principal{UserID: u.ID, MinistryID: u.MinistryID, Role: u.Role}
}
