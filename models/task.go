// Package models contains domain entities and business models for the CRM platform
package models

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UUID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_tasks_uuid" json:"uuid"`
	TenantID uint      `gorm:"not null;index:idx_tasks_tenant_id" json:"tenant_id"`
	Tenant   Tenant    `gorm:"foreignKey:TenantID;references:ID" json:"-"`

	Title       string  `gorm:"size:255;not null" json:"title"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
	Status      string  `gorm:"size:20;not null;default:'pending';index:idx_tasks_status" json:"status"`
	Priority    string  `gorm:"size:10;not null;default:'normal';index:idx_tasks_priority" json:"priority"`

	// AssigneeID is the user responsible for the task
	AssigneeID uint `gorm:"not null;index:idx_tasks_assignee_id" json:"assignee_id"`
	Assignee   User `gorm:"foreignKey:AssigneeID;references:ID" json:"assignee,omitempty"`

	// Optional attachments to a lead, contact, or deal
	LeadID    *uint `gorm:"index:idx_tasks_lead_id" json:"lead_id,omitempty"`
	ContactID *uint `gorm:"index:idx_tasks_contact_id" json:"contact_id,omitempty"`
	DealID    *uint `gorm:"index:idx_tasks_deal_id" json:"deal_id,omitempty"`

	DueAt       *time.Time `gorm:"index:idx_tasks_due_at" json:"due_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ReminderSentAt records the one-time due-soon notification
	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_tasks_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// Task status constants
const (
	TaskStatusPending   = "pending"
	TaskStatusDone      = "done"
	TaskStatusCancelled = "cancelled"
)

// Task priority constants
const (
	TaskPriorityLow    = "low"
	TaskPriorityNormal = "normal"
	TaskPriorityHigh   = "high"
)

// TaskFilter represents filter criteria for task queries
type TaskFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	TenantID      *uint
	AssigneeID    *uint
	LeadID        *uint
	ContactID     *uint
	DealID        *uint
	Status        *string
	Priority      *string
	DueBefore     *time.Time
	DueAfter      *time.Time
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (t *Task) IsOverdue() bool {
	return t.Status == TaskStatusPending && t.DueAt != nil && time.Now().UTC().After(*t.DueAt)
}
