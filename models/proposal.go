// Package models contains domain entities and business models for the CRM platform
package models

import (
	"time"

	"github.com/google/uuid"
)

type Proposal struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UUID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_proposals_uuid" json:"uuid"`
	TenantID uint      `gorm:"not null;index:idx_proposals_tenant_id" json:"tenant_id"`
	Tenant   Tenant    `gorm:"foreignKey:TenantID;references:ID" json:"-"`

	DealID uint `gorm:"not null;index:idx_proposals_deal_id" json:"deal_id"`
	Deal   Deal `gorm:"foreignKey:DealID;references:ID" json:"deal,omitempty"`

	UserID uint `gorm:"not null;index:idx_proposals_user_id" json:"user_id"`
	User   User `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`

	Title  string `gorm:"size:255;not null" json:"title"`
	Body   string `gorm:"type:text;not null" json:"body"`
	Amount int64  `gorm:"not null;default:0" json:"amount"` // smallest currency unit

	// draft -> sent -> accepted|declined. The sent -> responded edge is
	// guarded by a conditional update so a proposal cannot be answered twice.
	Status string `gorm:"size:20;not null;default:'draft';index:idx_proposals_status" json:"status"`

	SentAt      *time.Time `json:"sent_at,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_proposals_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (Proposal) TableName() string {
	return "proposals"
}

// Proposal status constants
const (
	ProposalStatusDraft    = "draft"
	ProposalStatusSent     = "sent"
	ProposalStatusAccepted = "accepted"
	ProposalStatusDeclined = "declined"
)

// ProposalFilter represents filter criteria for proposal queries
type ProposalFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	TenantID      *uint
	DealID        *uint
	UserID        *uint
	Status        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (p *Proposal) IsResponded() bool {
	return p.Status == ProposalStatusAccepted || p.Status == ProposalStatusDeclined
}
