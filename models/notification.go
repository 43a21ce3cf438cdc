// Package models contains domain entities and business models for the CRM platform
package models

import (
	"time"
)

type Notification struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TenantID uint   `gorm:"not null;index:idx_notifications_tenant_id" json:"tenant_id"`
	Tenant   Tenant `gorm:"foreignKey:TenantID;references:ID" json:"-"`

	// UserID is the recipient. Quota alerts resolve this to the tenant owner.
	UserID uint `gorm:"not null;index:idx_notifications_user_id" json:"user_id"`
	User   User `gorm:"foreignKey:UserID;references:ID" json:"-"`

	Type    string  `gorm:"size:30;not null;index:idx_notifications_type" json:"type"`
	Title   string  `gorm:"size:255;not null" json:"title"`
	Message string  `gorm:"type:text;not null" json:"message"`
	Link    *string `gorm:"size:255" json:"link,omitempty"`

	Read   *bool      `gorm:"default:false;index:idx_notifications_read" json:"read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_notifications_created_at" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// Notification type constants
const (
	NotificationTypeQuotaWarning     = "quota_warning"
	NotificationTypeQuotaLimit       = "quota_limit"
	NotificationTypeQuotaBlocked     = "quota_blocked"
	NotificationTypeDealStage        = "deal_stage"
	NotificationTypeProposalResponse = "proposal_response"
	NotificationTypeTaskDue          = "task_due"
)

// NotificationFilter represents filter criteria for notification queries
type NotificationFilter struct {
	ID            *uint
	TenantID      *uint
	UserID        *uint
	Type          *string
	Read          *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
