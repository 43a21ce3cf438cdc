// Package models contains domain entities and business models for the CRM platform
package models

import (
	"time"

	"github.com/google/uuid"
)

type Contact struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UUID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_contacts_uuid" json:"uuid"`
	TenantID uint      `gorm:"not null;index:idx_contacts_tenant_id" json:"tenant_id"`
	Tenant   Tenant    `gorm:"foreignKey:TenantID;references:ID" json:"-"`

	Name     string  `gorm:"size:255;not null" json:"name"`
	Email    *string `gorm:"size:255;index:idx_contacts_email" json:"email,omitempty"`
	Phone    *string `gorm:"size:20" json:"phone,omitempty"`
	Mobile   *string `gorm:"size:20" json:"mobile,omitempty"`
	Position *string `gorm:"size:100" json:"position,omitempty"`
	Address  *string `gorm:"size:255" json:"address,omitempty"`
	Notes    *string `gorm:"type:text" json:"notes,omitempty"`

	CompanyID *uint    `gorm:"index:idx_contacts_company_id" json:"company_id,omitempty"`
	Company   *Company `gorm:"foreignKey:CompanyID;references:ID" json:"company,omitempty"`

	// LeadID links back to the lead this contact was converted from, if any
	LeadID *uint `gorm:"index:idx_contacts_lead_id" json:"lead_id,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_contacts_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Deals []Deal `gorm:"foreignKey:ContactID" json:"-"`
}

func (Contact) TableName() string {
	return "contacts"
}

// ContactFilter represents filter criteria for contact queries
type ContactFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	TenantID      *uint
	CompanyID     *uint
	LeadID        *uint
	Email         *string
	Search        *string // matches name or email
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
