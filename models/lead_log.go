// Package models contains domain entities and business models for the CRM platform
package models

import (
	"encoding/json"
	"time"
)

// LeadLog is the append-only activity trail of a lead. Rows are written in the
// same transaction as the mutation they document and are never updated or
// deleted; insertion order is the causal order.
type LeadLog struct {
	ID     uint  `gorm:"primaryKey" json:"id"`
	LeadID uint  `gorm:"not null;index:idx_lead_logs_lead_id" json:"lead_id"`
	Lead   Lead  `gorm:"foreignKey:LeadID;references:ID" json:"-"`
	UserID *uint `gorm:"index:idx_lead_logs_user_id" json:"user_id,omitempty"` // nil for system actions
	User   *User `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`

	Action  string          `gorm:"size:30;not null;index:idx_lead_logs_action" json:"action"`
	Details json.RawMessage `gorm:"type:jsonb" json:"details,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_lead_logs_created_at" json:"created_at"`
}

func (LeadLog) TableName() string {
	return "lead_logs"
}

// Lead log action constants
const (
	LeadActionCreated     = "created"
	LeadActionImported    = "imported"
	LeadActionUpdated     = "updated"
	LeadActionClaimed     = "claimed"
	LeadActionLost        = "lost"
	LeadActionConverted   = "converted"
	LeadActionTaskCreated = "task_created"
)

// LeadLogFilter represents filter criteria for lead log queries
type LeadLogFilter struct {
	ID            *uint
	LeadID        *uint
	UserID        *uint
	Action        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
