package model

import (
	"errors"
	"time"
)

// DataRequestModel 部委间数据请求
type DataRequestModel struct {
	ID                   string        `gorm:"primaryKey;type:varchar(64)" json:"id"`
	RequestingMinistryID string        `gorm:"type:varchar(64);not null;index" json:"requesting_ministry_id"`
	TargetMinistryID     string        `gorm:"type:varchar(64);not null;index" json:"target_ministry_id"`
	RequestedBy          string        `gorm:"type:varchar(64);not null" json:"requested_by"`
	Title                string        `gorm:"type:varchar(255);not null" json:"title"`
	Description          string        `gorm:"type:text;not null" json:"description"`
	RequestType          RequestType   `gorm:"type:varchar(16);not null" json:"request_type"`
	Priority             Priority      `gorm:"type:varchar(16);not null" json:"priority"`
	Status               RequestStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	RequestedDate        time.Time     `gorm:"not null;index" json:"requested_date"`
	ResponseDate         *time.Time    `json:"response_date,omitempty"`
	ApprovedBy           *string       `gorm:"type:varchar(64)" json:"approved_by,omitempty"`
}

// TableName 指定表名
func (DataRequestModel) TableName() string {
	return "data_requests"
}

// Validate 验证数据请求,包括 response_date/approved_by 与状态的一致性
func (r *DataRequestModel) Validate() error {
	if r.ID == "" {
		return errors.New("request ID is required")
	}
	if r.RequestingMinistryID == "" || r.TargetMinistryID == "" {
		return errors.New("requesting and target ministry are required")
	}
	if r.RequestingMinistryID == r.TargetMinistryID {
		return errors.New("requesting and target ministry must differ")
	}
	if !r.Status.Valid() {
		return errors.New("request status is invalid")
	}
	resolved := r.ResponseDate != nil && r.ApprovedBy != nil
	unresolved := r.ResponseDate == nil && r.ApprovedBy == nil
	if r.Status == RequestStatusPending && !unresolved {
		return errors.New("pending request must not carry response data")
	}
	if r.Status.IsTerminal() && !resolved {
		return errors.New("resolved request must carry response date and approver")
	}
	return nil
}
