// Package models contains domain entities and business models for the CRM platform
package models

import (
	"time"

	"github.com/google/uuid"
)

type Lead struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UUID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_leads_uuid" json:"uuid"`
	TenantID uint      `gorm:"not null;index:idx_leads_tenant_id" json:"tenant_id"`
	Tenant   Tenant    `gorm:"foreignKey:TenantID;references:ID" json:"-"`

	Name     string  `gorm:"size:255;not null" json:"name"`
	Email    *string `gorm:"size:255;index:idx_leads_email" json:"email,omitempty"`
	Phone    *string `gorm:"size:20" json:"phone,omitempty"`
	Mobile   *string `gorm:"size:20" json:"mobile,omitempty"`
	Company  *string `gorm:"size:255" json:"company,omitempty"`
	Position *string `gorm:"size:100" json:"position,omitempty"`
	Address  *string `gorm:"size:255" json:"address,omitempty"`
	Website  *string `gorm:"size:255" json:"website,omitempty"`
	Source   *string `gorm:"size:50;index:idx_leads_source" json:"source,omitempty"`
	Notes    *string `gorm:"type:text" json:"notes,omitempty"`

	// Status and ownership move together: a lead is new iff it has no owner,
	// in_progress iff it has one. Transitions are forward-only and converted
	// and lost are terminal.
	Status string `gorm:"size:20;not null;default:'new';index:idx_leads_status" json:"status"`
	UserID *uint  `gorm:"index:idx_leads_user_id" json:"user_id,omitempty"`
	User   *User  `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`

	LossReason  *string    `gorm:"size:255" json:"loss_reason,omitempty"`
	CapturedAt  *time.Time `json:"captured_at,omitempty"`
	ConvertedAt *time.Time `json:"converted_at,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_leads_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Logs  []LeadLog `gorm:"foreignKey:LeadID" json:"logs,omitempty"`
	Tasks []Task    `gorm:"foreignKey:LeadID" json:"-"`
}

func (Lead) TableName() string {
	return "leads"
}

// Lead status constants
const (
	LeadStatusNew        = "new"
	LeadStatusInProgress = "in_progress"
	LeadStatusConverted  = "converted"
	LeadStatusLost       = "lost"
)

// Lead source constants
const (
	LeadSourceManual  = "manual"
	LeadSourceImport  = "import"
	LeadSourceWebForm = "web_form"
	LeadSourceAPI     = "api"
)

// LeadFilter represents filter criteria for lead queries
type LeadFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	TenantID      *uint
	UserID        *uint
	Unassigned    *bool // true selects leads with no owner
	Status        *string
	Source        *string
	Email         *string
	Company       *string
	Search        *string // matches name, email, or company
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (l *Lead) IsTerminal() bool {
	return l.Status == LeadStatusConverted || l.Status == LeadStatusLost
}

func (l *Lead) IsClaimed() bool {
	return l.UserID != nil
}

// IsValidLeadStatus reports whether status is a recognized lead status
func IsValidLeadStatus(status string) bool {
	switch status {
	case LeadStatusNew, LeadStatusInProgress, LeadStatusConverted, LeadStatusLost:
		return true
	}
	return false
}
