// Package models contains domain entities and business models for the CRM platform
package models

import (
	"time"

	"github.com/google/uuid"
)

type Deal struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UUID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_deals_uuid" json:"uuid"`
	TenantID uint      `gorm:"not null;index:idx_deals_tenant_id" json:"tenant_id"`
	Tenant   Tenant    `gorm:"foreignKey:TenantID;references:ID" json:"-"`

	Title    string `gorm:"size:255;not null" json:"title"`
	Stage    string `gorm:"size:30;not null;default:'qualification';index:idx_deals_stage" json:"stage"`
	Value    int64  `gorm:"not null;default:0" json:"value"` // smallest currency unit
	Currency string `gorm:"size:3;not null;default:'USD'" json:"currency"`

	ContactID uint     `gorm:"not null;index:idx_deals_contact_id" json:"contact_id"`
	Contact   Contact  `gorm:"foreignKey:ContactID;references:ID" json:"contact,omitempty"`
	CompanyID *uint    `gorm:"index:idx_deals_company_id" json:"company_id,omitempty"`
	Company   *Company `gorm:"foreignKey:CompanyID;references:ID" json:"company,omitempty"`

	UserID uint `gorm:"not null;index:idx_deals_user_id" json:"user_id"`
	User   User `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`

	ExpectedCloseAt *time.Time `json:"expected_close_at,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	Notes           *string    `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_deals_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Proposals []Proposal `gorm:"foreignKey:DealID" json:"-"`
}

func (Deal) TableName() string {
	return "deals"
}

// Deal stage constants, in pipeline order
const (
	DealStageQualification = "qualification"
	DealStageProposal      = "proposal"
	DealStageNegotiation   = "negotiation"
	DealStageWon           = "won"
	DealStageLost          = "lost"
)

// DealFilter represents filter criteria for deal queries
type DealFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	TenantID      *uint
	UserID        *uint
	ContactID     *uint
	CompanyID     *uint
	Stage         *string
	MinValue      *int64
	MaxValue      *int64
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// DealStageTotals aggregates the deals sitting in one pipeline stage
type DealStageTotals struct {
	Count int64
	Value int64
}

// DealStages lists the pipeline stages in order
func DealStages() []string {
	return []string{DealStageQualification, DealStageProposal, DealStageNegotiation, DealStageWon, DealStageLost}
}

func (d *Deal) IsClosed() bool {
	return d.Stage == DealStageWon || d.Stage == DealStageLost
}

// IsValidDealStage reports whether stage is a recognized pipeline stage
func IsValidDealStage(stage string) bool {
	switch stage {
	case DealStageQualification, DealStageProposal, DealStageNegotiation, DealStageWon, DealStageLost:
		return true
	}
	return false
}
