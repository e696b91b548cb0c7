package model

import (
	"errors"
	"time"
)

// MinistryModel 部委数据模型
type MinistryModel struct {
	ID           string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Abbreviation string         `gorm:"type:varchar(32);not null;uniqueIndex" json:"abbreviation"`
	Status       MinistryStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (MinistryModel) TableName() string {
	return "ministries"
}

// IsActive 部委是否处于激活状态
func (m *MinistryModel) IsActive() bool {
	return m != nil && m.Status == MinistryStatusActive
}

// Validate 验证部委模型
func (m *MinistryModel) Validate() error {
	if m.ID == "" {
		return errors.New("ministry ID is required")
	}
	if m.Name == "" {
		return errors.New("ministry name is required")
	}
	if m.Abbreviation == "" {
		return errors.New("ministry abbreviation is required")
	}
	if !m.Status.Valid() {
		return errors.New("ministry status is invalid")
	}
	return nil
}
