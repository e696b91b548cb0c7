package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrAuditLogImmutable 审计日志只允许追加
var ErrAuditLogImmutable = errors.New("audit log entries are append-only")

// AuditLogModel 审计日志数据模型
type AuditLogModel struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID        string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Action        string    `gorm:"type:varchar(64);not null;index" json:"action"` // CREATE/UPDATE/DELETE/access_denied
	TableAffected string    `gorm:"type:varchar(32);not null" json:"table_affected"`
	RecordID      string    `gorm:"type:varchar(64);not null;index" json:"record_id"` // 登录类动作可以为空
	Details       string    `gorm:"type:text" json:"details"`
	RequestID     string    `gorm:"type:varchar(64);index" json:"request_id,omitempty"`
	IP            string    `gorm:"type:varchar(45)" json:"ip,omitempty"` // IPv4 或 IPv6
	UserAgent     string    `gorm:"type:text" json:"user_agent,omitempty"`
	Timestamp     time.Time `gorm:"not null;index" json:"timestamp"`
}

// TableName 指定表名
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// Validate 验证审计日志模型
func (alm *AuditLogModel) Validate() error {
	if alm.ID == "" {
		return errors.New("audit log ID is required")
	}
	if alm.UserID == "" {
		return errors.New("user ID is required")
	}
	if alm.Action == "" {
		return errors.New("action is required")
	}
	if alm.TableAffected == "" {
		return errors.New("table affected is required")
	}
	return nil
}

// BeforeUpdate 拒绝任何更新
func (alm *AuditLogModel) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditLogImmutable
}

// BeforeDelete 拒绝任何删除
func (alm *AuditLogModel) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditLogImmutable
}
